/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

const (
	DefaultCountdownSeconds = 3
	DefaultPlayingSeconds   = 90
	DefaultRevealSeconds    = 10
)

// Durations holds the length of each timed phase, in seconds.
type Durations struct {
	Countdown float64
	Playing   float64
	Reveal    float64
}

// Normalize replaces non-positive durations with the defaults.
func (d Durations) Normalize() Durations {
	if d.Countdown <= 0 {
		d.Countdown = DefaultCountdownSeconds
	}
	if d.Playing <= 0 {
		d.Playing = DefaultPlayingSeconds
	}
	if d.Reveal <= 0 {
		d.Reveal = DefaultRevealSeconds
	}
	return d
}

// For returns the duration of phase, or zero for untimed phases.
func (d Durations) For(phase Phase) float64 {
	switch phase {
	case PhaseCountdown:
		return d.Countdown
	case PhasePlaying:
		return d.Playing
	case PhaseReveal:
		return d.Reveal
	}
	return 0
}
