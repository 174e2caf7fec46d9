/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Candidate is one participant as seen by host election.
type Candidate struct {
	ID        string
	JoinedAt  int64
	Connected bool
}

// ElectHost returns the participant that should hold authority. A connected
// incumbent keeps the role; otherwise the earliest connected joiner wins,
// ties going to the lowest id. It returns "" when nobody is connected.
func ElectHost(candidates []Candidate, incumbent string) string {
	var best *Candidate

	for i := range candidates {
		c := &candidates[i]
		if !c.Connected {
			continue
		}

		if incumbent != "" && c.ID == incumbent {
			return incumbent
		}

		if best == nil || c.JoinedAt < best.JoinedAt || (c.JoinedAt == best.JoinedAt && c.ID < best.ID) {
			best = c
		}
	}

	if best == nil {
		return ""
	}

	return best.ID
}
