/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package peer runs one participant of a room. Whichever participant the
// presence feed elects as host drives the orchestrator and broadcasts its
// snapshots; everyone else submits actions and mirrors what the host sends.
package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/countrygrid/dataset"
	"github.com/Seednode/countrygrid/game"
	"github.com/Seednode/countrygrid/realtime"
	"github.com/rs/zerolog"
)

var (
	ErrDisconnected = errors.New("relay connection lost")
	ErrStopped      = errors.New("peer stopped")
)

type Options struct {
	Conn      realtime.Conn
	RoomID    string
	ClientID  string
	Nickname  string
	Catalog   []dataset.Country
	Durations game.Durations

	// TickInterval is both the timer cadence and the game time it advances.
	// Defaults to one second.
	TickInterval time.Duration

	Logger zerolog.Logger
	Now    func() time.Time
}

// View is a consistent read-only picture of the room as this peer knows it.
type View struct {
	State   *game.GameState
	Results []game.Score
	Err     *game.ActionError
	HostID  string
	IsHost  bool
	Rules   []game.Rule
}

type Peer struct {
	opts Options
	log  zerolog.Logger

	commands chan game.Action
	changed  chan struct{}
	done     chan struct{}

	mu   sync.RWMutex
	view View

	// Owned by the Run goroutine.
	presence  realtime.Presence
	host      string
	orch      *game.Orchestrator
	snapshot  *game.GameState
	results   []game.Score
	lastErr   *game.ActionError
	queue     []realtime.ClientEnvelope
	rulesSeed string
	rules     []game.Rule
}

func New(opts Options) *Peer {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = dataset.Countries()
	}

	return &Peer{
		opts:     opts,
		log:      opts.Logger.With().Str("room", opts.RoomID).Str("client", opts.ClientID).Logger(),
		commands: make(chan game.Action),
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// View returns the latest view. It is safe to call from any goroutine.
func (p *Peer) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.view
}

// Changed is signalled, without blocking, whenever the view changes.
func (p *Peer) Changed() <-chan struct{} {
	return p.changed
}

// Place submits the current country for a slot.
func (p *Peer) Place(ctx context.Context, countryCode string, slot int) error {
	return p.submit(ctx, game.Place(countryCode, slot))
}

func (p *Peer) Pass(ctx context.Context) error {
	return p.submit(ctx, game.Pass())
}

func (p *Peer) submit(ctx context.Context, action game.Action) error {
	select {
	case p.commands <- action:
		return nil
	case <-p.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run joins the room and processes traffic until ctx is cancelled or the
// connection drops. All room mutation happens on this goroutine.
func (p *Peer) Run(ctx context.Context) error {
	defer close(p.done)
	defer func() {
		if err := p.opts.Conn.Leave(); err != nil {
			p.log.Debug().Err(err).Msg("leave")
		}
	}()

	if err := p.local(ctx, game.Join(p.opts.Nickname)); err != nil {
		return err
	}

	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()

	events := p.opts.Conn.Events()

	for {
		var err error

		select {
		case <-ctx.Done():
			return ctx.Err()

		case f, ok := <-events:
			if !ok {
				return ErrDisconnected
			}
			err = p.handle(ctx, f)

		case action := <-p.commands:
			err = p.local(ctx, action)

		case <-ticker.C:
			if p.orch != nil {
				err = p.broadcast(ctx, p.orch.Tick(p.opts.TickInterval.Seconds()), "")
			}
		}

		if err != nil {
			return err
		}

		p.refresh()
	}
}

func (p *Peer) isHost() bool {
	return p.host != "" && p.host == p.opts.ClientID
}

// local routes an action of this participant: applied when hosting, sent
// when a host is known, queued otherwise.
func (p *Peer) local(ctx context.Context, action game.Action) error {
	env := realtime.ClientEnvelope{ClientID: p.opts.ClientID, Message: action}

	switch {
	case p.isHost():
		return p.apply(ctx, env)
	case p.host != "":
		return p.opts.Conn.SendClient(ctx, action)
	default:
		p.queue = append(p.queue, env)
		p.log.Debug().Str("action", string(action.Type)).Msg("queued until a host is known")
		return nil
	}
}

func (p *Peer) handle(ctx context.Context, f realtime.Frame) error {
	switch f.Type {
	case realtime.FramePresence:
		p.presence = f.Presence
		return p.elect(ctx)

	case realtime.FrameClient:
		if f.Client == nil {
			return nil
		}

		switch {
		case p.isHost():
			return p.apply(ctx, *f.Client)
		case p.host == "":
			p.queue = append(p.queue, *f.Client)
		}

	case realtime.FrameServer:
		if f.Server == nil || p.isHost() {
			return nil
		}

		// Until presence names a host, take whatever the room last saw.
		if p.host != "" && f.Server.SenderID != p.host {
			p.log.Debug().Str("sender", f.Server.SenderID).Msg("ignoring frame from non-host")
			return nil
		}
		p.observe(f.Server.Message)
	}

	return nil
}

// elect recomputes the host after a presence change and hands authority
// over when it moves to or away from this peer.
func (p *Peer) elect(ctx context.Context) error {
	prev := p.host
	next := game.ElectHost(p.presence.Candidates(), prev)

	if next != prev {
		p.log.Info().Str("from", prev).Str("to", next).Msg("host changed")
	}
	p.host = next

	switch {
	case p.isHost() && p.orch == nil:
		return p.takeOver(ctx)

	case p.isHost():
		return p.sweep(ctx)

	case prev == p.opts.ClientID:
		p.orch = nil
	}

	if p.host != "" {
		return p.forward(ctx)
	}

	return nil
}

// takeOver builds an orchestrator from the last known snapshot, or a fresh
// room when there is none, then replays everything queued meanwhile.
func (p *Peer) takeOver(ctx context.Context) error {
	cfg := game.Config{
		RoomID:    p.opts.RoomID,
		Catalog:   p.opts.Catalog,
		Durations: p.opts.Durations,
	}

	if p.snapshot != nil {
		cfg.InitialState = p.snapshot
	} else {
		cfg.Seed = p.freshSeed()
	}

	orch, err := game.NewOrchestrator(cfg)
	if err != nil && cfg.InitialState != nil {
		p.log.Warn().Err(err).Msg("discarding snapshot")

		p.snapshot = nil
		p.results = nil
		cfg.InitialState = nil
		cfg.Seed = p.freshSeed()

		orch, err = game.NewOrchestrator(cfg)
	}
	if err != nil {
		p.log.Error().Err(err).Msg("start room")
		return fmt.Errorf("start room: %w", err)
	}

	p.orch = orch

	p.log.Info().
		Str("seed", orch.State().Seed).
		Bool("resumed", p.snapshot != nil).
		Int("queued", len(p.queue)).
		Msg("hosting")

	state := orch.State()
	if err := p.broadcast(ctx, game.Update{State: &state}, ""); err != nil {
		return err
	}

	queued := p.queue
	p.queue = nil

	for _, env := range queued {
		if err := p.apply(ctx, env); err != nil {
			return err
		}
	}

	return p.sweep(ctx)
}

func (p *Peer) freshSeed() string {
	return fmt.Sprintf("%s-%d", p.opts.RoomID, p.opts.Now().UnixMilli())
}

// forward sends this peer's queued actions to the elected host. Queued
// actions of others are dropped; the host received them as well.
func (p *Peer) forward(ctx context.Context) error {
	queued := p.queue
	p.queue = nil

	for _, env := range queued {
		if env.ClientID != p.opts.ClientID {
			continue
		}

		if err := p.opts.Conn.SendClient(ctx, env.Message); err != nil {
			return err
		}
	}

	return nil
}

// sweep marks registered players that left the presence feed as
// disconnected.
func (p *Peer) sweep(ctx context.Context) error {
	for _, player := range p.orch.State().Players {
		if !player.Connected || p.presence.Has(player.ID) {
			continue
		}

		p.log.Debug().Str("player", player.ID).Msg("disconnected")

		if err := p.broadcast(ctx, p.orch.MarkDisconnected(player.ID), ""); err != nil {
			return err
		}
	}

	return nil
}

func (p *Peer) apply(ctx context.Context, env realtime.ClientEnvelope) error {
	u := p.orch.ApplyAction(env.Message, env.ClientID)
	if u.Err != nil {
		p.log.Debug().
			Str("player", env.ClientID).
			Str("action", string(env.Message.Type)).
			Str("code", string(u.Err.Code)).
			Msg("rejected")
	}

	return p.broadcast(ctx, u, env.ClientID)
}

// broadcast applies an orchestrator update locally and sends it to the room.
func (p *Peer) broadcast(ctx context.Context, u game.Update, actor string) error {
	for _, msg := range u.Messages(actor) {
		p.observe(msg)

		if err := p.opts.Conn.SendServer(ctx, msg); err != nil {
			return err
		}
	}

	return nil
}

func (p *Peer) observe(msg game.ServerMessage) {
	switch msg.Type {
	case game.MessageState:
		if msg.State == nil {
			return
		}

		p.snapshot = msg.State
		if msg.State.Phase == game.PhaseLobby {
			p.results = nil
		}

	case game.MessageResults:
		p.results = msg.Scores

	case game.MessageError:
		if msg.To == p.opts.ClientID {
			p.lastErr = &game.ActionError{Code: msg.Code, Message: msg.Message}
		}
	}
}

func (p *Peer) refresh() {
	if p.snapshot != nil && p.snapshot.Seed != p.rulesSeed {
		board, err := game.GenerateBoard(p.snapshot.Seed, p.opts.Catalog)
		if err != nil {
			p.log.Warn().Err(err).Str("seed", p.snapshot.Seed).Msg("derive rules")
		} else {
			p.rules = board.Rules
		}
		p.rulesSeed = p.snapshot.Seed
	}

	p.mu.Lock()
	p.view = View{
		State:   p.snapshot,
		Results: p.results,
		Err:     p.lastErr,
		HostID:  p.host,
		IsHost:  p.isHost(),
		Rules:   p.rules,
	}
	p.mu.Unlock()

	select {
	case p.changed <- struct{}{}:
	default:
	}
}
