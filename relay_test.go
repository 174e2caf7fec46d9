package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/countrygrid/game"
	"github.com/Seednode/countrygrid/realtime"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		bind:           "127.0.0.1",
		port:           8080,
		rateBurst:      1000,
		rateLimit:      1000,
		sessionTimeout: time.Minute,
		log:            zerolog.Nop(),
	}
}

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 64)

	srv := httptest.NewServer(newRouter(ctx, cfg, errs))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return srv
}

func socketURL(srv *httptest.Server, room string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/room/" + room + "/ws"
}

func join(t *testing.T, srv *httptest.Server, room, id string) *realtime.WebSocketConn {
	t.Helper()

	conn, err := realtime.Dial(context.Background(), socketURL(srv, room), id, strings.ToUpper(id))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Leave() })

	return conn
}

func next(t *testing.T, c realtime.Conn) realtime.Frame {
	t.Helper()

	select {
	case f, ok := <-c.Events():
		require.True(t, ok, "connection closed")
		return f
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for frame")
	}

	return realtime.Frame{}
}

// nextOfType skips frames until one of type ft arrives.
func nextOfType(t *testing.T, c realtime.Conn, ft realtime.FrameType) realtime.Frame {
	t.Helper()

	for {
		if f := next(t, c); f.Type == ft {
			return f
		}
	}
}

func silent(t *testing.T, c realtime.Conn, d time.Duration) {
	t.Helper()

	select {
	case f := <-c.Events():
		assert.Failf(t, "unexpected frame", "%+v", f)
	case <-time.After(d):
	}
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func TestNewRoomRedirect(t *testing.T) {
	srv := newTestServer(t, testConfig())
	client := &http.Client{CheckRedirect: noRedirects}

	resp, err := client.Get(srv.URL + "/room")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "/room/"), location)
	assert.Len(t, strings.TrimPrefix(location, "/room/"), 8)

	resp, err = http.Get(srv.URL + location)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, strings.TrimPrefix(location, "/room/"), info.ID)
	assert.Empty(t, info.Members)
	assert.False(t, info.HasState)
}

func TestHomeRedirectsIntoRoom(t *testing.T) {
	srv := newTestServer(t, testConfig())
	client := &http.Client{CheckRedirect: noRedirects}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/room", resp.Header.Get("Location"))
}

func TestUnknownRoomInfo(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/room/nowhere")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for path, want := range map[string]string{
		"/healthz":    "Ok\n",
		"/version":    "countrygrid v" + releaseVersion + "\n",
		"/robots.txt": "User-agent: *\nDisallow: /room/",
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, want, string(body))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		})
	}
}

func TestRoomQRCode(t *testing.T) {
	srv := newTestServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/room/abcd1234/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func TestRelayPresenceAndFanOut(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, testConfig())

	alice := join(t, srv, "lobby", "alice")
	f := next(t, alice)
	require.Equal(t, realtime.FramePresence, f.Type)
	assert.Equal(t, "ALICE", f.Presence["alice"][0].Nickname)

	bob := join(t, srv, "lobby", "bob")
	f = next(t, alice)
	require.Equal(t, realtime.FramePresence, f.Type)
	assert.True(t, f.Presence.Has("bob"))
	assert.Equal(t, realtime.FramePresence, next(t, bob).Type)

	state := game.GameState{RoomID: "lobby", Seed: "relay-seed", Phase: game.PhaseLobby}
	require.NoError(t, alice.SendServer(ctx, game.ServerMessage{Type: game.MessageState, State: &state}))

	f = next(t, bob)
	require.True(t, f.IsState())
	assert.Equal(t, "relay-seed", f.Server.Message.State.Seed)
	assert.Equal(t, "alice", f.Server.SenderID)
	silent(t, alice, 100*time.Millisecond)

	carol := join(t, srv, "lobby", "carol")

	f = next(t, carol)
	require.True(t, f.IsState(), "cached snapshot comes before presence")
	assert.Equal(t, "relay-seed", f.Server.Message.State.Seed)

	f = next(t, carol)
	require.Equal(t, realtime.FramePresence, f.Type)
	assert.Len(t, f.Presence, 3)

	nextOfType(t, alice, realtime.FramePresence)
	nextOfType(t, bob, realtime.FramePresence)

	require.NoError(t, bob.SendClient(ctx, game.Pass()))

	for _, c := range []realtime.Conn{alice, carol} {
		f = next(t, c)
		require.Equal(t, realtime.FrameClient, f.Type)
		assert.Equal(t, "bob", f.Client.ClientID)
		assert.Equal(t, game.ActionPass, f.Client.Message.Type)
	}

	require.NoError(t, carol.Leave())

	f = next(t, alice)
	require.Equal(t, realtime.FramePresence, f.Type)
	assert.False(t, f.Presence.Has("carol"))

	resp, err := http.Get(srv.URL + "/room/lobby")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.True(t, info.HasState)
	require.Len(t, info.Members, 2)
	assert.Equal(t, "alice", info.Members[0].ClientID)
	assert.Equal(t, "bob", info.Members[1].ClientID)
}

func TestRelayStampsClientID(t *testing.T) {
	srv := newTestServer(t, testConfig())

	alice := join(t, srv, "stamp", "alice")
	next(t, alice)

	raw, _, err := websocket.DefaultDialer.Dial(socketURL(srv, "stamp")+"?client=mallory", nil)
	require.NoError(t, err)
	defer raw.Close()

	nextOfType(t, alice, realtime.FramePresence)

	forged := realtime.Frame{
		Type: realtime.FrameClient,
		Client: &realtime.ClientEnvelope{
			ClientID: "alice",
			Message:  game.Pass(),
		},
	}
	require.NoError(t, raw.WriteJSON(forged))

	f := next(t, alice)
	require.Equal(t, realtime.FrameClient, f.Type)
	assert.Equal(t, "mallory", f.Client.ClientID)

	state := game.GameState{Seed: "forged", Phase: game.PhaseLobby}
	require.NoError(t, raw.WriteJSON(realtime.Frame{
		Type: realtime.FrameServer,
		Server: &realtime.ServerEnvelope{
			SenderID: "alice",
			Message:  game.ServerMessage{Type: game.MessageState, State: &state},
		},
	}))

	f = next(t, alice)
	require.True(t, f.IsState())
	assert.Equal(t, "mallory", f.Server.SenderID)
}

func TestRelayDropsInvalidFrames(t *testing.T) {
	srv := newTestServer(t, testConfig())

	alice := join(t, srv, "invalid", "alice")
	next(t, alice)

	raw, _, err := websocket.DefaultDialer.Dial(socketURL(srv, "invalid")+"?client=mallory", nil)
	require.NoError(t, err)
	defer raw.Close()

	nextOfType(t, alice, realtime.FramePresence)

	before := testutil.ToFloat64(framesDropped.WithLabelValues(dropInvalid))

	require.NoError(t, raw.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, raw.WriteJSON(realtime.Frame{Type: realtime.FramePresence, Presence: realtime.Presence{}}))
	require.NoError(t, raw.WriteJSON(realtime.Frame{Type: realtime.FrameClient}))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(framesDropped.WithLabelValues(dropInvalid))-before >= 3
	}, 2*time.Second, 10*time.Millisecond)

	silent(t, alice, 100*time.Millisecond)
}

func TestRelayRateLimit(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.rateLimit = 0.001
	cfg.rateBurst = 1

	srv := newTestServer(t, cfg)

	alice := join(t, srv, "limited", "alice")
	next(t, alice)

	bob := join(t, srv, "limited", "bob")
	nextOfType(t, alice, realtime.FramePresence)
	next(t, bob)

	before := testutil.ToFloat64(framesDropped.WithLabelValues(dropRateLimited))

	require.NoError(t, bob.SendClient(ctx, game.Pass()))
	require.NoError(t, bob.SendClient(ctx, game.Pass()))

	f := next(t, alice)
	assert.Equal(t, realtime.FrameClient, f.Type)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(framesDropped.WithLabelValues(dropRateLimited))-before >= 1
	}, 2*time.Second, 10*time.Millisecond)

	silent(t, alice, 100*time.Millisecond)
}

func TestReapIdleRooms(t *testing.T) {
	cfg := testConfig()
	rm := newRoomManager(t.Context(), 0)

	hub := rm.getHub(cfg, "stale")
	_, ok := rm.lookup("stale")
	require.True(t, ok)

	rm.reap(time.Now().Add(time.Minute))

	_, ok = rm.lookup("stale")
	assert.False(t, ok)

	select {
	case <-hub.quit:
	default:
		assert.Fail(t, "hub not stopped")
	}
}
