/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Country Grid relay
//
// Each room is a broadcast channel with presence. The relay takes no part in
// the game itself: whichever member the presence feed elects as host runs the
// room, and the relay only fans its frames out.
//
// Features:
// - WebSockets per room ID: /room/:roomid/ws?client=<id>&nickname=<name>
// - Presence (nickname, client id, join time) pushed to every member on join and leave
// - Client and server frames relayed to every other member, never echoed
// - Last snapshot replayed to newcomers before their first presence frame
// - Client and server frames stamped with the sender's client id
// - Inbound frames rate limited per connection
// - Rooms auto-reaped after configurable idle timeout
// - Random 8-char room IDs via crypto/rand, with server-side collision check
// - PNG QR code of the room URL, backed by go-qrcode

package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/countrygrid/realtime"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

type Member struct {
	conn    *websocket.Conn
	send    chan realtime.Frame
	meta    realtime.PresenceMeta
	limiter *rate.Limiter
}

type inbound struct {
	from  *Member
	frame realtime.Frame
}

type Hub struct {
	id      string
	members map[*Member]bool
	last    *realtime.Frame

	register chan *Member
	unreg    chan *Member
	frames   chan inbound
	quit     chan struct{}
	quitOnce sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(roomID string) *Hub {
	now := time.Now()
	return &Hub{
		id:         roomID,
		members:    make(map[*Member]bool),
		register:   make(chan *Member),
		unreg:      make(chan *Member),
		frames:     make(chan inbound),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case m := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.members[m] = true
			membersConnected.Inc()

			// Snapshot first, so a newcomer elected host resumes instead of
			// starting over.
			if h.last != nil {
				h.deliverLocked(m, *h.last)
			}
			h.announceLocked()
			h.mu.Unlock()

			logf(cfg, "RELAY: %s joined room %s", m.meta.ClientID, h.id)

		case m := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if h.members[m] {
				h.removeLocked(m)
				h.announceLocked()
			}
			h.mu.Unlock()

			logf(cfg, "RELAY: %s left room %s", m.meta.ClientID, h.id)

		case in := <-h.frames:
			h.mu.Lock()
			h.lastActive = time.Now()

			if !h.members[in.from] {
				h.mu.Unlock()
				continue
			}

			if in.frame.IsState() {
				f := in.frame
				h.last = &f
			}

			for m := range h.members {
				if m != in.from {
					h.deliverLocked(m, in.frame)
				}
			}
			h.mu.Unlock()

			framesRelayed.WithLabelValues(string(in.frame.Type)).Inc()

		case <-h.quit:
			h.mu.Lock()
			for m := range h.members {
				h.removeLocked(m)
			}
			h.mu.Unlock()

			return
		}
	}
}

// deliverLocked queues f for m. A member too slow to drain its queue is
// disconnected; its read pump then unregisters it.
func (h *Hub) deliverLocked(m *Member, f realtime.Frame) {
	select {
	case m.send <- f:
	default:
		framesDropped.WithLabelValues(dropSlowMember).Inc()
		_ = m.conn.Close()
	}
}

func (h *Hub) removeLocked(m *Member) {
	delete(h.members, m)
	close(m.send)
	membersConnected.Dec()
}

func (h *Hub) presenceLocked() realtime.Presence {
	p := make(realtime.Presence, len(h.members))
	for m := range h.members {
		p[m.meta.ClientID] = append(p[m.meta.ClientID], m.meta)
	}
	return p
}

func (h *Hub) announceLocked() {
	f := realtime.Frame{Type: realtime.FramePresence, Presence: h.presenceLocked()}
	for m := range h.members {
		h.deliverLocked(m, f)
	}
}

func (h *Hub) stop() {
	h.quitOnce.Do(func() {
		close(h.quit)
	})
}

// RoomInfo is the JSON descriptor served at /room/:roomid.
type RoomInfo struct {
	ID         string                  `json:"id"`
	Members    []realtime.PresenceMeta `json:"members"`
	HasState   bool                    `json:"hasState"`
	CreatedAt  time.Time               `json:"createdAt"`
	LastActive time.Time               `json:"lastActive"`
}

func (h *Hub) info() RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]realtime.PresenceMeta, 0, len(h.members))
	for m := range h.members {
		members = append(members, m.meta)
	}

	slices.SortFunc(members, func(a, b realtime.PresenceMeta) int {
		if c := cmp.Compare(a.JoinedAt, b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ClientID, b.ClientID)
	})

	return RoomInfo{
		ID:         h.id,
		Members:    members,
		HasState:   h.last != nil,
		CreatedAt:  h.createdAt,
		LastActive: h.lastActive,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const clientCookieName = "countrygrid_id"

// getOrSetClientID falls back to a cookie-backed id for clients that do not
// bring their own.
func getOrSetClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// RoomManager holds a set of hubs keyed by room ID, so each /room/:roomid
// is its own isolated channel.
type RoomManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newRoomManager(ctx context.Context, idleTimeout time.Duration) *RoomManager {
	rm := &RoomManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}

	go rm.reaperLoop(ctx)

	return rm
}

func (rm *RoomManager) getHub(cfg *Config, roomID string) *Hub {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if hub, ok := rm.hubs[roomID]; ok {
		return hub
	}

	hub := newHub(roomID)
	rm.hubs[roomID] = hub
	roomsOpen.Inc()
	go hub.run(cfg)
	return hub
}

func (rm *RoomManager) lookup(roomID string) (*Hub, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	hub, ok := rm.hubs[roomID]
	return hub, ok
}

// newRoomID generates a crypto-random room ID and ensures it doesn't
// collide with existing rooms.
func (rm *RoomManager) newRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		rm.mu.Lock()
		_, exists := rm.hubs[id]
		rm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop closes rooms idle longer than idleTimeout, and every room once
// ctx is done.
func (rm *RoomManager) reaperLoop(ctx context.Context) {
	var tick <-chan time.Time
	if rm.idleTimeout > 0 {
		ticker := time.NewTicker(rm.idleTimeout / 2)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			rm.reap(time.Time{})
			return
		case now := <-tick:
			rm.reap(now.Add(-rm.idleTimeout))
		}
	}
}

// reap stops hubs last active before cutoff; the zero cutoff stops all.
func (rm *RoomManager) reap(cutoff time.Time) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, hub := range rm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if cutoff.IsZero() || last.Before(cutoff) {
			delete(rm.hubs, id)
			roomsOpen.Dec()
			hub.stop()
		}
	}
}

// WebSocket handler that picks the hub based on :roomid
func serveRoomSocket(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		clientID := r.URL.Query().Get("client")
		if clientID == "" {
			clientID = getOrSetClientID(w, r)
		}
		if clientID == "" {
			http.Error(w, "unable to assign client id", http.StatusInternalServerError)
			return
		}

		hub := rm.getHub(cfg, roomID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.log.Debug().Err(err).Str("room", roomID).Msg("upgrade")
			return
		}

		m := &Member{
			conn: conn,
			send: make(chan realtime.Frame, sendBuffer),
			meta: realtime.PresenceMeta{
				Nickname: r.URL.Query().Get("nickname"),
				ClientID: clientID,
				JoinedAt: time.Now().UnixMilli(),
			},
			limiter: rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
		}

		select {
		case hub.register <- m:
		case <-hub.quit:
			_ = conn.Close()
			return
		}

		go m.writePump()
		m.readPump(cfg, hub)
	}
}

func (m *Member) readPump(cfg *Config, h *Hub) {
	defer func() {
		select {
		case h.unreg <- m:
		case <-h.quit:
		}
		_ = m.conn.Close()
	}()

	m.conn.SetReadLimit(maxFrameSize)
	_ = m.conn.SetReadDeadline(time.Now().Add(pongWait))
	m.conn.SetPongHandler(func(string) error {
		return m.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = m.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !m.limiter.Allow() {
			framesDropped.WithLabelValues(dropRateLimited).Inc()
			continue
		}

		var f realtime.Frame
		if err := json.Unmarshal(data, &f); err != nil || !m.accept(&f) {
			framesDropped.WithLabelValues(dropInvalid).Inc()
			logf(cfg, "RELAY: Dropped invalid frame (%s) from %s", humanReadableSize(int64(len(data))), m.meta.ClientID)
			continue
		}

		select {
		case h.frames <- inbound{from: m, frame: f}:
		case <-h.quit:
			return
		}
	}
}

// accept checks that f is something a member may send, and strips anything
// the member must not control.
func (m *Member) accept(f *realtime.Frame) bool {
	f.Presence = nil

	switch f.Type {
	case realtime.FrameClient:
		if f.Client == nil {
			return false
		}
		f.Client.ClientID = m.meta.ClientID
		f.Server = nil
	case realtime.FrameServer:
		if f.Server == nil {
			return false
		}
		f.Server.SenderID = m.meta.ClientID
		f.Client = nil
	default:
		return false
	}

	return true
}

func (m *Member) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = m.conn.Close()
	}()

	for {
		select {
		case f, ok := <-m.send:
			_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = m.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := m.conn.WriteJSON(f); err != nil {
				return
			}

		case <-ticker.C:
			_ = m.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := m.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serveRoomInfo(cfg *Config, rm *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		hub, ok := rm.lookup(ps.ByName("roomid"))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"room not found"}` + "\n"))
			return
		}

		if err := json.NewEncoder(w).Encode(hub.info()); err != nil {
			errs <- err
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewRoom handles GET /room by opening a room under a new random ID
// and redirecting to /room/:roomid.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := rm.newRoomID()
		rm.getHub(cfg, roomID)

		logf(cfg, "ROOMS: Created room %s/%s", path, roomID)
		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerRelay sets up routes so that:
//   - $path                  → redirects to a new random room (8-char ID)
//   - $path/:roomid          → JSON room descriptor
//   - $path/:roomid/ws       → WebSocket for that room
//   - $path/:roomid/qr       → PNG QR code for that room URL
func registerRelay(ctx context.Context, cfg *Config, path string, mux *httprouter.Router) {
	rm := newRoomManager(ctx, cfg.sessionTimeout)

	errs := make(chan error, 1)
	go func() {
		for err := range errs {
			cfg.log.Debug().Err(err).Msg("room descriptor")
		}
	}()

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rm))

	mux.GET(cfg.prefix+path+"/:roomid", serveRoomInfo(cfg, rm, errs))

	mux.GET(cfg.prefix+path+"/:roomid/ws", serveRoomSocket(cfg, rm))

	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler)
}
