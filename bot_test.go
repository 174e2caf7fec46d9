package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Seednode/countrygrid/dataset"
	"github.com/Seednode/countrygrid/game"
	"github.com/Seednode/countrygrid/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRoomSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
		err    bool
	}{
		{server: "http://localhost:8080", want: "ws://localhost:8080/room/abc/ws"},
		{server: "https://example.com/grid/", want: "wss://example.com/grid/room/abc/ws"},
		{server: "ws://10.0.0.1:9000?x=1", want: "ws://10.0.0.1:9000/room/abc/ws"},
		{server: "ftp://example.com", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, err := roomSocketURL(tt.server, "abc")
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func playingView(t *testing.T, code string) (peer.View, *game.GeneratedBoard) {
	t.Helper()

	board, err := game.GenerateBoard("bot-seed", dataset.Countries())
	require.NoError(t, err)

	country, ok := dataset.ByCode(code)
	require.True(t, ok, code)

	state := game.GameState{
		Seed:           "bot-seed",
		Phase:          game.PhasePlaying,
		Board:          append([]game.BoardSlot(nil), board.Board...),
		CurrentCountry: &country,
	}

	return peer.View{State: &state, Rules: board.Rules}, board
}

func TestChooseMovePlacesOnMatchingRule(t *testing.T) {
	board, err := game.GenerateBoard("bot-seed", dataset.Countries())
	require.NoError(t, err)

	for _, slot := range board.Board {
		code := board.AssignedMatches[slot.RuleID]

		v, _ := playingView(t, code)
		action, ok := chooseMove(v)
		require.True(t, ok)
		require.Equal(t, game.ActionPlace, action.Type)
		assert.Equal(t, code, action.Country)

		rule, found := board.Rule(v.State.Board[action.Slot].RuleID)
		require.True(t, found)

		country, _ := dataset.ByCode(code)
		assert.True(t, rule.Validate(country))
	}
}

func TestChooseMovePassesWithoutMatch(t *testing.T) {
	board, err := game.GenerateBoard("bot-seed", dataset.Countries())
	require.NoError(t, err)

	var unmatched string
	for _, c := range dataset.Countries() {
		if !matchesAny(board.Rules, c) {
			unmatched = c.Code
			break
		}
	}
	require.NotEmpty(t, unmatched)

	v, _ := playingView(t, unmatched)
	action, ok := chooseMove(v)
	require.True(t, ok)
	assert.Equal(t, game.ActionPass, action.Type)

	code := board.AssignedMatches[board.Board[0].RuleID]
	v, _ = playingView(t, code)
	for i := range v.State.Board {
		v.State.Board[i].SolvedBy = "someone"
	}
	action, ok = chooseMove(v)
	require.True(t, ok)
	assert.Equal(t, game.ActionPass, action.Type, "solved slots are skipped")
}

func matchesAny(rules []game.Rule, c dataset.Country) bool {
	for _, r := range rules {
		if r.Validate(c) {
			return true
		}
	}
	return false
}

func TestChooseMoveIdleOutsidePlaying(t *testing.T) {
	_, ok := chooseMove(peer.View{})
	assert.False(t, ok)

	v, _ := playingView(t, "FR")
	v.State.Phase = game.PhaseReveal
	_, ok = chooseMove(v)
	assert.False(t, ok)

	v, _ = playingView(t, "FR")
	v.State.CurrentCountry = nil
	_, ok = chooseMove(v)
	assert.False(t, ok)
}

func TestBotsPlayThroughRelay(t *testing.T) {
	srv := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	for _, nickname := range []string{"Ada", "Grace"} {
		cfg := testConfig()
		cfg.bot = BotConfig{
			server:           srv.URL,
			room:             "bots",
			nickname:         nickname,
			countdownSeconds: 1,
			playingSeconds:   60,
			revealSeconds:    1,
		}

		g.Go(func() error {
			return RunBot(gctx, cfg)
		})
	}

	require.NoError(t, g.Wait())
	require.NoError(t, ctx.Err(), "bots did not finish")

	resp, err := http.Get(srv.URL + "/room/bots")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.True(t, info.HasState)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "cert without key", mutate: func(c *Config) { c.tlsCert = "cert.pem" }, err: true},
		{name: "port zero", mutate: func(c *Config) { c.port = 0 }, err: true},
		{name: "port too high", mutate: func(c *Config) { c.port = 70000 }, err: true},
		{name: "no rate", mutate: func(c *Config) { c.rateLimit = 0 }, err: true},
		{name: "no burst", mutate: func(c *Config) { c.rateBurst = 0 }, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			if tt.err {
				assert.Error(t, cfg.validate())
			} else {
				assert.NoError(t, cfg.validate())
			}
		})
	}
}

func TestBotConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  BotConfig
		err  bool
	}{
		{name: "ok", cfg: BotConfig{server: "http://localhost:8080", room: "abc"}},
		{name: "websocket scheme", cfg: BotConfig{server: "wss://example.com", room: "abc"}},
		{name: "missing room", cfg: BotConfig{server: "http://localhost:8080"}, err: true},
		{name: "bad scheme", cfg: BotConfig{server: "gopher://example.com", room: "abc"}, err: true},
		{name: "negative think", cfg: BotConfig{server: "http://localhost:8080", room: "abc", thinkTime: -time.Second}, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err {
				assert.Error(t, tt.cfg.validate())
			} else {
				assert.NoError(t, tt.cfg.validate())
			}
		})
	}
}
