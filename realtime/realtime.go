/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package realtime carries room traffic between peers: a presence feed
// keyed by participant id, and a broadcast channel for action and state
// envelopes.
package realtime

import (
	"context"
	"errors"
	"slices"

	"github.com/Seednode/countrygrid/game"
)

var ErrClosed = errors.New("connection closed")

// PresenceMeta describes one connection of a participant. JoinedAt is in
// Unix milliseconds, as stamped by the relay.
type PresenceMeta struct {
	Nickname string `json:"nickname"`
	ClientID string `json:"clientId"`
	JoinedAt int64  `json:"joinedAt"`
}

// Presence maps participant ids to their live connections.
type Presence map[string][]PresenceMeta

func (p Presence) Has(id string) bool {
	return len(p[id]) > 0
}

// Candidates lists every present participant for host election, in id
// order, each with its earliest join time.
func (p Presence) Candidates() []game.Candidate {
	ids := make([]string, 0, len(p))
	for id, metas := range p {
		if len(metas) > 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]game.Candidate, 0, len(ids))
	for _, id := range ids {
		joined := p[id][0].JoinedAt
		for _, m := range p[id][1:] {
			joined = min(joined, m.JoinedAt)
		}

		out = append(out, game.Candidate{ID: id, JoinedAt: joined, Connected: true})
	}

	return out
}

type ClientEnvelope struct {
	ClientID string      `json:"clientId"`
	Message  game.Action `json:"message"`
}

// ServerEnvelope carries a host broadcast. SenderID is set by the relay.
type ServerEnvelope struct {
	SenderID string             `json:"senderId,omitempty"`
	Message  game.ServerMessage `json:"message"`
}

type FrameType string

const (
	FramePresence FrameType = "presence"
	FrameClient   FrameType = "client"
	FrameServer   FrameType = "server"
)

// Frame is the unit exchanged with the relay. Exactly one payload is set,
// matching Type.
type Frame struct {
	Type     FrameType       `json:"type"`
	Presence Presence        `json:"presence,omitempty"`
	Client   *ClientEnvelope `json:"client,omitempty"`
	Server   *ServerEnvelope `json:"server,omitempty"`
}

// IsState reports whether f is a server frame carrying a snapshot.
func (f Frame) IsState() bool {
	return f.Type == FrameServer && f.Server != nil &&
		f.Server.Message.Type == game.MessageState && f.Server.Message.State != nil
}

// Conn is a participant's membership in one room. Frames sent on a Conn are
// delivered to every other member, never echoed back.
type Conn interface {
	Events() <-chan Frame
	SendClient(ctx context.Context, action game.Action) error
	SendServer(ctx context.Context, msg game.ServerMessage) error
	Leave() error
}
