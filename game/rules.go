/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"github.com/Seednode/countrygrid/dataset"
	"github.com/Seednode/countrygrid/rng"
)

const (
	BoardSize         = 10
	requiredFlagCount = 1
)

type Kind string

const (
	KindEquality       Kind = "equality"
	KindComparison     Kind = "comparison"
	KindCategory       Kind = "category"
	KindHintedEquality Kind = "hinted-equality"
)

// Hint is a visual cue shown next to a rule, keyed by Type ("flag").
type Hint struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

type Rule struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
	Hint  *Hint  `json:"hint,omitempty"`

	predicate func(dataset.Country) bool
}

// Validate reports whether c satisfies the rule.
func (r Rule) Validate(c dataset.Country) bool {
	return r.predicate != nil && r.predicate(c)
}

type blueprint struct {
	id        string
	label     string
	kind      Kind
	hint      *Hint
	predicate func(dataset.Country) bool
}

func (b blueprint) rule() Rule {
	return Rule{
		ID:        b.id,
		Label:     b.label,
		Kind:      b.kind,
		Hint:      b.hint,
		predicate: b.predicate,
	}
}

// conflictCodes lists every country in catalog that would satisfy b.
func (b blueprint) conflictCodes(catalog []dataset.Country) []string {
	var codes []string
	for _, c := range catalog {
		if b.predicate(c) {
			codes = append(codes, c.Code)
		}
	}
	return codes
}

func populationAbove(id, label string, n int64) blueprint {
	return blueprint{
		id:        id,
		label:     label,
		kind:      KindComparison,
		predicate: func(c dataset.Country) bool { return c.Population > n },
	}
}

func gdpBelow(id, label string, n int64) blueprint {
	return blueprint{
		id:        id,
		label:     label,
		kind:      KindComparison,
		predicate: func(c dataset.Country) bool { return c.GDPUSD < n },
	}
}

func continent(id, label, name string) blueprint {
	return blueprint{
		id:        id,
		label:     label,
		kind:      KindCategory,
		predicate: func(c dataset.Country) bool { return c.Continent == name },
	}
}

func capital(id, city string) blueprint {
	return blueprint{
		id:        id,
		label:     "Capital = " + city,
		kind:      KindEquality,
		predicate: func(c dataset.Country) bool { return c.Capital == city },
	}
}

func flag(id, code string) blueprint {
	return blueprint{
		id:        id,
		label:     "Match the flag",
		kind:      KindHintedEquality,
		hint:      &Hint{Type: "flag", Code: code},
		predicate: func(c dataset.Country) bool { return c.Code == code },
	}
}

var comparisonBlueprints = []blueprint{
	populationAbove("population-gt-200m", "Population > 200M", 200_000_000),
	gdpBelow("gdp-lt-50b", "GDP < $50B", 50_000_000_000),
}

var categoryBlueprint = continent("continent-europe", "Country in Europe", dataset.Europe)

var flagBlueprints = []blueprint{
	flag("flag-canada", "CA"),
	flag("flag-australia", "AU"),
	flag("flag-chile", "CL"),
	flag("flag-uruguay", "UY"),
	flag("flag-japan", "JP"),
	flag("flag-south-korea", "KR"),
	flag("flag-new-zealand", "NZ"),
	flag("flag-brazil", "BR"),
}

var equalityBlueprints = []blueprint{
	capital("capital-lima", "Lima"),
	capital("capital-bogota", "Bogotá"),
	capital("capital-santiago", "Santiago"),
	capital("capital-buenos-aires", "Buenos Aires"),
	capital("capital-quito", "Quito"),
	capital("capital-montevideo", "Montevideo"),
	capital("capital-ottawa", "Ottawa"),
	capital("capital-mexico-city", "Mexico City"),
	capital("capital-washington", "Washington"),
	capital("capital-canberra", "Canberra"),
	capital("capital-wellington", "Wellington"),
	capital("capital-tokyo", "Tokyo"),
	capital("capital-seoul", "Seoul"),
	capital("capital-bangkok", "Bangkok"),
	capital("capital-hanoi", "Hanoi"),
	capital("capital-manila", "Manila"),
	capital("capital-kuala-lumpur", "Kuala Lumpur"),
	capital("capital-dhaka", "Dhaka"),
	capital("capital-riyadh", "Riyadh"),
	capital("capital-abu-dhabi", "Abu Dhabi"),
	capital("capital-doha", "Doha"),
	capital("capital-baghdad", "Baghdad"),
	capital("capital-astana", "Astana"),
	capital("capital-muscat", "Muscat"),
	capital("capital-ankara", "Ankara"),
	capital("capital-cairo", "Cairo"),
	capital("capital-rabat", "Rabat"),
	capital("capital-algiers", "Algiers"),
	capital("capital-pretoria", "Pretoria"),
	capital("capital-nairobi", "Nairobi"),
	capital("capital-addis-ababa", "Addis Ababa"),
	capital("capital-accra", "Accra"),
	capital("capital-dodoma", "Dodoma"),
	capital("capital-luanda", "Luanda"),
	capital("capital-freetown", "Freetown"),
}

// GeneratedBoard is produced once per room and never mutated afterwards.
type GeneratedBoard struct {
	Rules           []Rule
	Board           []BoardSlot
	RuleMatches     map[string][]string
	AssignedMatches map[string]string
}

// Rule looks up a generated rule by id.
func (g *GeneratedBoard) Rule(id string) (Rule, bool) {
	for _, r := range g.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

type boardBuilder struct {
	catalog  []dataset.Country
	rng      *rng.RNG
	claimed  map[string]bool
	accepted []blueprint
	matches  map[string][]string
	assigned map[string]string
}

// GenerateBoard selects BoardSize conflict-free rules for seed. No country of
// catalog can satisfy two of the selected rules, and each rule is assigned
// the one country that will be dealt into the pool for it.
func GenerateBoard(seed string, catalog []dataset.Country) (*GeneratedBoard, error) {
	b := &boardBuilder{
		catalog:  catalog,
		rng:      rng.New(seed + "-rules"),
		claimed:  make(map[string]bool),
		matches:  make(map[string][]string),
		assigned: make(map[string]string),
	}

	for _, bp := range comparisonBlueprints {
		if err := b.require(bp); err != nil {
			return nil, err
		}
	}

	if err := b.require(categoryBlueprint); err != nil {
		return nil, err
	}

	if err := b.pick("flag", flagBlueprints, requiredFlagCount); err != nil {
		return nil, err
	}

	if err := b.pick("capital", equalityBlueprints, BoardSize-len(b.accepted)); err != nil {
		return nil, err
	}

	if len(b.accepted) != BoardSize {
		return nil, generationError(ErrWrongCount, "selected %d rules, want %d", len(b.accepted), BoardSize)
	}

	ordered := rng.Shuffle(b.rng, b.accepted)

	rules := make([]Rule, len(ordered))
	board := make([]BoardSlot, len(ordered))
	for i, bp := range ordered {
		rules[i] = bp.rule()
		board[i] = BoardSlot{Index: i, RuleID: bp.id}
	}

	return &GeneratedBoard{
		Rules:           rules,
		Board:           board,
		RuleMatches:     b.matches,
		AssignedMatches: b.assigned,
	}, nil
}

// require accepts a mandatory blueprint or fails.
func (b *boardBuilder) require(bp blueprint) error {
	codes := bp.conflictCodes(b.catalog)
	if len(codes) == 0 {
		return generationError(ErrNoCandidate, "rule %s", bp.id)
	}

	if code, ok := b.overlap(codes); ok {
		return generationError(ErrConflict, "rule %s claims %s", bp.id, code)
	}

	return b.accept(bp, codes)
}

// pick accepts count blueprints from a tier, in seeded order, skipping those
// without candidates or overlapping earlier claims. Falling short is an error.
func (b *boardBuilder) pick(name string, tier []blueprint, count int) error {
	want := count

	var available []blueprint
	for _, bp := range tier {
		codes := bp.conflictCodes(b.catalog)
		if len(codes) == 0 {
			continue
		}
		if _, ok := b.overlap(codes); ok {
			continue
		}
		available = append(available, bp)
	}

	for _, bp := range rng.Shuffle(b.rng, available) {
		if count <= 0 {
			break
		}

		codes := bp.conflictCodes(b.catalog)
		if _, ok := b.overlap(codes); ok {
			continue
		}

		if err := b.accept(bp, codes); err != nil {
			return err
		}
		count--
	}

	if count > 0 {
		return generationError(ErrWrongCount, "only %d of %d %s rules available", want-count, want, name)
	}

	return nil
}

func (b *boardBuilder) overlap(codes []string) (string, bool) {
	for _, code := range codes {
		if b.claimed[code] {
			return code, true
		}
	}
	return "", false
}

func (b *boardBuilder) accept(bp blueprint, codes []string) error {
	chosen := codes[0]
	if len(codes) > 1 {
		i, err := b.rng.NextInt(len(codes))
		if err != nil {
			return err
		}
		chosen = codes[i]
	}

	for _, code := range codes {
		b.claimed[code] = true
	}

	b.accepted = append(b.accepted, bp)
	b.matches[bp.id] = codes
	b.assigned[bp.id] = chosen

	return nil
}
