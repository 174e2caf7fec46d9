/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Seednode/countrygrid/game"
	"github.com/Seednode/countrygrid/peer"
	"github.com/Seednode/countrygrid/realtime"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// roomSocketURL turns the relay base URL into the websocket endpoint for room.
func roomSocketURL(server, room string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/room/" + url.PathEscape(room) + "/ws"
	u.RawQuery = ""

	return u.String(), nil
}

// RunBot joins cfg.bot.room and plays until the game ends or ctx is done.
func RunBot(ctx context.Context, cfg *Config) error {
	b := cfg.bot

	endpoint, err := roomSocketURL(b.server, b.room)
	if err != nil {
		return err
	}

	clientID := uuid.NewString()

	conn, err := realtime.Dial(ctx, endpoint, clientID, b.nickname)
	if err != nil {
		return fmt.Errorf("joining room %s: %w", b.room, err)
	}

	log := cfg.log.With().Str("nickname", b.nickname).Logger()

	p := peer.New(peer.Options{
		Conn:     conn,
		RoomID:   b.room,
		ClientID: clientID,
		Nickname: b.nickname,
		Durations: game.Durations{
			Countdown: b.countdownSeconds,
			Playing:   b.playingSeconds,
			Reveal:    b.revealSeconds,
		},
		Logger: log,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		defer cancel()

		return play(gctx, p, b.thinkTime, log)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// chooseMove places the current country on the first open slot whose rule
// it satisfies, and passes when there is none.
func chooseMove(v peer.View) (game.Action, bool) {
	if v.State == nil || v.State.Phase != game.PhasePlaying || v.State.CurrentCountry == nil {
		return game.Action{}, false
	}

	current := *v.State.CurrentCountry

	rules := make(map[string]game.Rule, len(v.Rules))
	for _, r := range v.Rules {
		rules[r.ID] = r
	}

	for _, slot := range v.State.Board {
		if slot.Solved() {
			continue
		}

		if r, ok := rules[slot.RuleID]; ok && r.Validate(current) {
			return game.Place(current.Code, slot.Index), true
		}
	}

	return game.Pass(), true
}

func play(ctx context.Context, p *peer.Peer, think time.Duration, log zerolog.Logger) error {
	var (
		acted   string
		lastErr *game.ActionError
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.Changed():
		}

		v := p.View()
		if v.State == nil {
			continue
		}

		if v.Err != nil && v.Err != lastErr {
			lastErr = v.Err
			log.Debug().Str("code", string(v.Err.Code)).Msg(v.Err.Message)

			// Rejected, so the same country is still up.
			acted = ""
		}

		if v.State.Phase == game.PhaseEnded && v.Results != nil {
			for i, s := range v.Results {
				log.Info().Int("rank", i+1).Str("player", s.Nickname).Int("score", s.Score).Msg("result")
			}
			return nil
		}

		if v.State.Phase != game.PhasePlaying || v.State.CurrentCountry == nil {
			continue
		}

		code := v.State.CurrentCountry.Code
		if code == acted {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(think):
		}

		v = p.View()

		action, ok := chooseMove(v)
		if !ok || v.State.CurrentCountry.Code != code {
			continue
		}

		acted = code

		switch action.Type {
		case game.ActionPlace:
			err := p.Place(ctx, action.Country, action.Slot)
			if err != nil {
				return err
			}
			log.Debug().Str("country", action.Country).Int("slot", action.Slot).Msg("placed")
		default:
			if err := p.Pass(ctx); err != nil {
				return err
			}
			log.Debug().Str("country", code).Msg("passed")
		}
	}
}
