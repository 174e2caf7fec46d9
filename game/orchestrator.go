/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/Seednode/countrygrid/dataset"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultNickname = "Guest"
	MaxNicknameLen  = 24
)

type Config struct {
	RoomID    string
	Seed      string
	Catalog   []dataset.Country
	Durations Durations

	// Board and Pool are derived from Seed when nil.
	Board *GeneratedBoard
	Pool  *GeneratedPool

	// InitialState resumes a room from the last snapshot broadcast by a
	// previous host.
	InitialState *GameState
}

// Orchestrator is the authoritative state machine of one room. It is not
// safe for concurrent use; a single goroutine owns it.
type Orchestrator struct {
	roomID    string
	seed      string
	durations Durations

	board     *GeneratedBoard
	pool      *GeneratedPool
	rules     map[string]Rule
	countries map[string]dataset.Country

	phase     Phase
	remaining float64
	slots     []BoardSlot
	current   *dataset.Country
	queue     []dataset.Country
	players   []*Player
	host      string

	resultsEmitted bool

	state GameState
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	seed, roomID := cfg.Seed, cfg.RoomID
	if cfg.InitialState != nil {
		if seed == "" {
			seed = cfg.InitialState.Seed
		}
		if roomID == "" {
			roomID = cfg.InitialState.RoomID
		}
		if seed != cfg.InitialState.Seed {
			return nil, generationError(ErrSnapshotMismatch, "seed %q, snapshot seed %q", seed, cfg.InitialState.Seed)
		}
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = dataset.Countries()
	}

	board := cfg.Board
	if board == nil {
		var err error

		board, err = GenerateBoard(seed, catalog)
		if err != nil {
			return nil, err
		}
	}

	pool := cfg.Pool
	if pool == nil {
		var err error

		pool, err = GeneratePool(seed, catalog, board)
		if err != nil {
			return nil, err
		}
	}

	o := &Orchestrator{
		roomID:    roomID,
		seed:      seed,
		durations: cfg.Durations.Normalize(),
		board:     board,
		pool:      pool,
		rules:     make(map[string]Rule, len(board.Rules)),
		countries: make(map[string]dataset.Country, len(pool.Pool)),
	}

	for _, r := range board.Rules {
		o.rules[r.ID] = r
	}

	for _, c := range pool.Pool {
		o.countries[c.Code] = c
	}

	if cfg.InitialState != nil {
		if err := o.restore(*cfg.InitialState); err != nil {
			return nil, err
		}
	} else {
		o.phase = PhaseLobby
		o.slots = slices.Clone(board.Board)
		o.queue = slices.Clone(pool.Pool)
	}

	o.electHost()
	o.publish()

	return o, nil
}

func (o *Orchestrator) restore(s GameState) error {
	if !s.Phase.Valid() {
		return generationError(ErrSnapshotMismatch, "unknown phase %q", s.Phase)
	}

	if s.TimeLeft < 0 {
		return generationError(ErrSnapshotMismatch, "negative time left %d", s.TimeLeft)
	}

	if s.PoolLeft < 0 || s.PoolLeft > len(o.pool.Pool) {
		return generationError(ErrSnapshotMismatch, "%d countries left of a pool of %d", s.PoolLeft, len(o.pool.Pool))
	}

	if len(s.Board) != len(o.board.Board) {
		return generationError(ErrSnapshotMismatch, "snapshot has %d slots, board has %d", len(s.Board), len(o.board.Board))
	}

	for i, slot := range s.Board {
		if slot.RuleID != o.board.Board[i].RuleID {
			return generationError(ErrSnapshotMismatch, "slot %d holds rule %s, want %s", i, slot.RuleID, o.board.Board[i].RuleID)
		}
	}

	s = s.Clone()

	o.phase = s.Phase
	o.remaining = float64(s.TimeLeft)
	o.slots = s.Board
	o.current = s.CurrentCountry

	o.queue = slices.Clone(o.pool.Pool[len(o.pool.Pool)-s.PoolLeft:])

	for i := range s.Players {
		o.players = append(o.players, &s.Players[i])
	}

	o.resultsEmitted = s.Phase == PhaseReveal || s.Phase == PhaseEnded

	return nil
}

// State returns the current snapshot. Callers must not modify it.
func (o *Orchestrator) State() GameState {
	return o.state
}

// HostID is the host by arrival order among registered players. Peers elect
// from relay presence instead; this mirrors that election for a room driven
// without a relay.
func (o *Orchestrator) HostID() string {
	return o.host
}

func (o *Orchestrator) Rules() []Rule {
	return slices.Clone(o.board.Rules)
}

func (o *Orchestrator) ValidCountries() []dataset.Country {
	return slices.Clone(o.pool.ValidCountries)
}

// History returns the outcomes recorded for a player, oldest first.
func (o *Orchestrator) History(id string) []Outcome {
	p := o.player(id)
	if p == nil {
		return nil
	}

	return slices.Clone(p.History)
}

// ApplyAction is the single entry point for player requests.
func (o *Orchestrator) ApplyAction(action Action, actor string) Update {
	switch action.Type {
	case ActionJoin:
		return o.join(actor, action.Nickname)
	case ActionPlace:
		return o.place(actor, action.Country, action.Slot)
	case ActionPass:
		return o.pass(actor)
	default:
		return rejected(CodeUnsupported)
	}
}

// Tick advances the phase timer. It does nothing outside timed phases, and a
// non-finite delta counts as no time at all.
func (o *Orchestrator) Tick(delta float64) Update {
	if !o.phase.Timed() {
		return Update{}
	}

	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		delta = 0
	}

	o.remaining = max(0, o.remaining-max(0, delta))

	if o.remaining > 0 {
		return o.publish()
	}

	switch o.phase {
	case PhaseCountdown:
		return o.enterPlaying()
	case PhasePlaying:
		return o.enterReveal()
	default:
		return o.enterEnded()
	}
}

// MarkDisconnected flags a player as gone while keeping score and history.
func (o *Orchestrator) MarkDisconnected(id string) Update {
	p := o.player(id)
	if p == nil || !p.Connected {
		return Update{}
	}

	p.Connected = false
	o.electHost()

	return o.publish()
}

func (o *Orchestrator) join(actor, nickname string) Update {
	name := sanitizeNickname(nickname)

	if p := o.player(actor); p != nil {
		p.Nickname = name
		p.Connected = true
	} else {
		o.players = append(o.players, &Player{
			ID:        actor,
			Nickname:  name,
			Connected: true,
		})
	}

	o.electHost()

	u := o.publish()

	if o.phase == PhaseLobby && o.connectedCount() > 0 {
		u = u.merge(o.enterCountdown())
	}

	return u
}

func (o *Orchestrator) place(actor, code string, index int) Update {
	if o.phase != PhasePlaying {
		return rejected(CodeNotPlaying)
	}

	p := o.player(actor)
	if p == nil {
		return rejected(CodeUnknownPlayer)
	}

	if index < 0 || index >= len(o.slots) {
		return rejected(CodeInvalidSlot)
	}

	slot := o.slots[index]
	if slot.Solved() {
		return rejected(CodeAlreadySolved)
	}

	if o.current == nil {
		return rejected(CodeNoCurrentItem)
	}

	if o.current.Code != code {
		return rejected(CodeStaleItem)
	}

	rule, ok := o.rules[slot.RuleID]
	if !ok {
		return rejected(CodeUnknownRule)
	}

	outcome := OutcomeIncorrect
	if rule.Validate(*o.current) {
		outcome = OutcomeCorrect
	}

	o.record(p, outcome)

	o.slots[index] = BoardSlot{
		Index:       slot.Index,
		RuleID:      slot.RuleID,
		SolvedBy:    actor,
		CountryCode: o.current.Code,
	}

	o.drawNext()

	if o.boardComplete() || o.exhausted() {
		return o.enterReveal()
	}

	return o.publish()
}

func (o *Orchestrator) pass(actor string) Update {
	if o.phase != PhasePlaying {
		return rejected(CodeNotPlaying)
	}

	p := o.player(actor)
	if p == nil {
		return rejected(CodeUnknownPlayer)
	}

	o.record(p, OutcomePass)

	o.drawNext()

	if o.exhausted() {
		return o.enterReveal()
	}

	return o.publish()
}

// record scores an outcome. Acting counts as being connected again.
func (o *Orchestrator) record(p *Player, outcome Outcome) {
	p.Score = ApplyScore(p.Score, outcome)
	p.History = append(p.History, outcome)

	if !p.Connected {
		p.Connected = true
		o.electHost()
	}
}

func (o *Orchestrator) enterCountdown() Update {
	o.setPhase(PhaseCountdown)

	return o.publish()
}

func (o *Orchestrator) enterPlaying() Update {
	o.setPhase(PhasePlaying)

	if o.current == nil {
		o.drawNext()
	}

	if o.exhausted() {
		return o.enterReveal()
	}

	return o.publish()
}

func (o *Orchestrator) enterReveal() Update {
	if o.phase == PhaseReveal || o.phase == PhaseEnded {
		return Update{}
	}

	o.setPhase(PhaseReveal)
	o.current = nil
	o.annotate()

	u := o.publish()

	if !o.resultsEmitted {
		o.resultsEmitted = true
		u.Results = o.results()
	}

	return u
}

func (o *Orchestrator) enterEnded() Update {
	o.setPhase(PhaseEnded)
	o.current = nil
	o.queue = nil
	o.annotate()

	return o.publish()
}

func (o *Orchestrator) setPhase(phase Phase) {
	o.phase = phase
	o.remaining = o.durations.For(phase)
}

func (o *Orchestrator) drawNext() {
	if len(o.queue) == 0 {
		o.current = nil
		return
	}

	next := o.queue[0]
	o.current = &next
	o.queue = o.queue[1:]
}

func (o *Orchestrator) exhausted() bool {
	return o.current == nil && len(o.queue) == 0
}

func (o *Orchestrator) boardComplete() bool {
	for _, slot := range o.slots {
		if !slot.Solved() {
			return false
		}
	}
	return true
}

// annotate marks every claimed slot with whether its country satisfies
// the slot's rule.
func (o *Orchestrator) annotate() {
	for i, slot := range o.slots {
		if !slot.Solved() || slot.CountryCode == "" {
			continue
		}

		rule, ok := o.rules[slot.RuleID]
		if !ok {
			continue
		}

		c, ok := o.countries[slot.CountryCode]
		if !ok {
			continue
		}

		correct := rule.Validate(c)
		slot.Correct = &correct
		o.slots[i] = slot
	}
}

// results ranks players by descending score, keeping arrival order on ties.
func (o *Orchestrator) results() []Score {
	scores := make([]Score, 0, len(o.players))
	for _, p := range o.players {
		scores = append(scores, Score{ID: p.ID, Nickname: p.Nickname, Score: p.Score})
	}

	slices.SortStableFunc(scores, func(a, b Score) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return scores
}

func (o *Orchestrator) player(id string) *Player {
	for _, p := range o.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (o *Orchestrator) connectedCount() int {
	n := 0
	for _, p := range o.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (o *Orchestrator) electHost() {
	candidates := make([]Candidate, len(o.players))
	for i, p := range o.players {
		candidates[i] = Candidate{ID: p.ID, JoinedAt: int64(i), Connected: p.Connected}
	}

	o.host = ElectHost(candidates, o.host)
}

// publish builds a fresh snapshot so earlier ones stay untouched.
func (o *Orchestrator) publish() Update {
	timeLeft := 0
	if o.phase.Timed() {
		timeLeft = int(math.Ceil(o.remaining))
	}

	s := GameState{
		RoomID:   o.roomID,
		Seed:     o.seed,
		Phase:    o.phase,
		TimeLeft: timeLeft,
		Board:    o.slots,
		PoolLeft: len(o.queue),
	}

	if o.current != nil {
		current := *o.current
		s.CurrentCountry = &current
	}

	s.Players = make([]Player, len(o.players))
	for i, p := range o.players {
		s.Players[i] = *p
	}

	s = s.Clone()
	o.state = s

	return Update{State: &s}
}

func sanitizeNickname(nickname string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFC.String(nickname))

	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultNickname
	}

	if runes := []rune(name); len(runes) > MaxNicknameLen {
		name = strings.TrimSpace(string(runes[:MaxNicknameLen]))
	}

	return name
}
