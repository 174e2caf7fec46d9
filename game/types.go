/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"slices"

	"github.com/Seednode/countrygrid/dataset"
)

type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseReveal    Phase = "reveal"
	PhaseEnded     Phase = "ended"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseCountdown, PhasePlaying, PhaseReveal, PhaseEnded:
		return true
	}
	return false
}

// Timed reports whether the phase runs on a countdown driven by Tick.
func (p Phase) Timed() bool {
	switch p {
	case PhaseCountdown, PhasePlaying, PhaseReveal:
		return true
	}
	return false
}

// BoardSlot is one cell of the board. It is claimed at most once; Correct
// stays nil until the reveal.
type BoardSlot struct {
	Index       int    `json:"index"`
	RuleID      string `json:"ruleId"`
	SolvedBy    string `json:"solvedBy,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Correct     *bool  `json:"correct,omitempty"`
}

func (s BoardSlot) Solved() bool {
	return s.SolvedBy != ""
}

type Player struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	Score     int       `json:"score"`
	Connected bool      `json:"connected"`
	History   []Outcome `json:"history,omitempty"`
}

// GameState is the replicated snapshot broadcast by the host. It is treated
// as a value: slices inside a published snapshot are never written again.
type GameState struct {
	RoomID         string           `json:"roomId"`
	Seed           string           `json:"seed"`
	Phase          Phase            `json:"phase"`
	TimeLeft       int              `json:"timeLeft"`
	Board          []BoardSlot      `json:"board"`
	CurrentCountry *dataset.Country `json:"currentCountry"`
	PoolLeft       int              `json:"poolLeft"`
	Players        []Player         `json:"players"`
}

// Clone returns a deep copy of s.
func (s GameState) Clone() GameState {
	out := s

	out.Board = make([]BoardSlot, len(s.Board))
	for i, slot := range s.Board {
		if slot.Correct != nil {
			correct := *slot.Correct
			slot.Correct = &correct
		}
		out.Board[i] = slot
	}

	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.History = slices.Clone(p.History)
		out.Players[i] = p
	}

	if s.CurrentCountry != nil {
		current := *s.CurrentCountry
		out.CurrentCountry = &current
	}

	return out
}

// Player returns the snapshot entry for id.
func (s GameState) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

type ActionType string

const (
	ActionJoin  ActionType = "JOIN"
	ActionPlace ActionType = "PLACE"
	ActionPass  ActionType = "PASS"
)

// Action is a player request, tagged by Type. Slot and Country are only
// meaningful for PLACE, Nickname only for JOIN.
type Action struct {
	Type     ActionType `json:"t"`
	Nickname string     `json:"nickname,omitempty"`
	Country  string     `json:"country,omitempty"`
	Slot     int        `json:"slot"`
}

// UnmarshalJSON decodes a missing slot as -1, so a PLACE without one is
// rejected instead of landing on slot 0.
func (a *Action) UnmarshalJSON(data []byte) error {
	type wire Action

	w := wire{Slot: -1}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*a = Action(w)
	return nil
}

func Join(nickname string) Action {
	return Action{Type: ActionJoin, Nickname: nickname}
}

func Place(countryCode string, slot int) Action {
	return Action{Type: ActionPlace, Country: countryCode, Slot: slot}
}

func Pass() Action {
	return Action{Type: ActionPass}
}

// Score is one line of the results payload.
type Score struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

type ServerMessageType string

const (
	MessageState   ServerMessageType = "STATE"
	MessageError   ServerMessageType = "ERROR"
	MessageResults ServerMessageType = "RESULTS"
)

// ServerMessage is what the host broadcasts. ERROR messages carry the
// participant they are addressed to in To.
type ServerMessage struct {
	Type    ServerMessageType `json:"t"`
	State   *GameState        `json:"s,omitempty"`
	Code    ErrorCode         `json:"code,omitempty"`
	Message string            `json:"m,omitempty"`
	To      string            `json:"to,omitempty"`
	Scores  []Score           `json:"scores,omitempty"`
}

// Update is the outcome of a single call into the orchestrator. Any field
// may be empty; Err is set only when the request was rejected, in which
// case nothing else is.
type Update struct {
	State   *GameState
	Results []Score
	Err     *ActionError
}

func (u Update) Empty() bool {
	return u.State == nil && u.Results == nil && u.Err == nil
}

// Messages renders u as the server messages to broadcast, in order: the
// error for actor, then the state, then the results.
func (u Update) Messages(actor string) []ServerMessage {
	var out []ServerMessage

	if u.Err != nil {
		out = append(out, ServerMessage{
			Type:    MessageError,
			Code:    u.Err.Code,
			Message: u.Err.Message,
			To:      actor,
		})
	}

	if u.State != nil {
		out = append(out, ServerMessage{Type: MessageState, State: u.State})
	}

	if u.Results != nil {
		out = append(out, ServerMessage{Type: MessageResults, Scores: u.Results})
	}

	return out
}

// merge folds a follow-up transition into u, keeping the latest state.
func (u Update) merge(next Update) Update {
	if next.State != nil {
		u.State = next.State
	}
	if next.Results != nil {
		u.Results = next.Results
	}
	return u
}
