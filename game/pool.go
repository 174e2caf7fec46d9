/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"github.com/Seednode/countrygrid/dataset"
	"github.com/Seednode/countrygrid/rng"
)

const PoolSize = 30

// GeneratedPool is the draw deck of a room. Pool is in draw order.
type GeneratedPool struct {
	Pool           []dataset.Country
	ValidCountries []dataset.Country
}

// GeneratePool deals one assigned country per rule plus enough filler
// countries, satisfying none of the rules, to reach PoolSize.
func GeneratePool(seed string, catalog []dataset.Country, board *GeneratedBoard) (*GeneratedPool, error) {
	if len(board.AssignedMatches) != len(board.Rules) {
		return nil, generationError(ErrWrongCount, "%d assignments for %d rules", len(board.AssignedMatches), len(board.Rules))
	}

	index := make(map[string]dataset.Country, len(catalog))
	for _, c := range catalog {
		index[c.Code] = c
	}

	seen := make(map[string]bool, len(board.Rules))
	valid := make([]dataset.Country, 0, len(board.Rules))
	for _, rule := range board.Rules {
		code, ok := board.AssignedMatches[rule.ID]
		if !ok {
			return nil, generationError(ErrWrongCount, "rule %s has no assignment", rule.ID)
		}

		c, ok := index[code]
		if !ok {
			return nil, generationError(ErrNoCandidate, "assignment %s of rule %s is not in the catalog", code, rule.ID)
		}

		if seen[code] {
			return nil, generationError(ErrDuplicateAssignment, "%s assigned twice", code)
		}
		seen[code] = true

		valid = append(valid, c)
	}

	forbidden := make(map[string]bool)
	for _, codes := range board.RuleMatches {
		for _, code := range codes {
			forbidden[code] = true
		}
	}

	filler := dataset.Filter(catalog, func(c dataset.Country) bool {
		return !forbidden[c.Code]
	})

	needed := PoolSize - len(valid)
	if len(filler) < needed {
		return nil, generationError(ErrInsufficientFiller, "have %d, need %d", len(filler), needed)
	}

	r := rng.New(seed + "-pool")

	selected := rng.Shuffle(r, filler)[:needed]

	pool := make([]dataset.Country, 0, PoolSize)
	pool = append(pool, valid...)
	pool = append(pool, selected...)

	return &GeneratedPool{
		Pool:           rng.Shuffle(r, pool),
		ValidCountries: valid,
	}, nil
}
