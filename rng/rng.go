/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rng provides the seeded pseudo-random stream shared by every peer
// in a room. Two generators built from the same seed produce the same
// sequence on any platform, which lets peers re-derive a board from its seed
// instead of receiving it over the wire.
//
// The seed is hashed one UTF-16 code unit at a time into four 32-bit words,
// which then drive an sfc32-style counter mixer. Outputs match the browser
// implementation bit for bit.
package rng

import (
	"errors"
	"unicode/utf16"
)

// ErrInvalidArgument is returned by NextInt for a non-positive bound.
var ErrInvalidArgument = errors.New("nextInt requires a positive maximum")

const twoPow32 = 4294967296.0

type RNG struct {
	a, b, c, d uint32
}

func New(seed string) *RNG {
	a, b, c, d := hashSeed(seed)

	return &RNG{a: a, b: b, c: c, d: d}
}

func hashSeed(seed string) (uint32, uint32, uint32, uint32) {
	h1 := uint32(1779033703)
	h2 := uint32(3144134277)
	h3 := uint32(1013904242)
	h4 := uint32(2773480762)

	for _, unit := range utf16.Encode([]rune(seed)) {
		ch := uint32(unit)
		h1 = (h1 ^ ch) * 597399067
		h2 = (h2 ^ ch) * 2869860233
		h3 = (h3 ^ ch) * 951274213
		h4 = (h4 ^ ch) * 2716044179
	}

	h1 ^= h2 >> 18
	h2 ^= h3 >> 22
	h3 ^= h4 >> 17
	h4 ^= h1 >> 19

	return h1, h2, h3, h4
}

// Uint32 advances the stream and returns the raw 32-bit output.
func (r *RNG) Uint32() uint32 {
	t := r.a + r.b
	r.a = r.b ^ (r.b >> 9)
	r.b = r.c + (r.c << 3)
	r.c = (r.c << 21) | (r.c >> 11)
	r.d++

	return t + r.d
}

// Next returns a float in [0, 1).
func (r *RNG) Next() float64 {
	return float64(r.Uint32()) / twoPow32
}

// NextInt returns an integer in [0, n).
func (r *RNG) NextInt(n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidArgument
	}

	return r.intn(n), nil
}

func (r *RNG) intn(n int) int {
	return int(r.Next() * float64(n))
}

// Shuffle returns a shuffled copy of list, leaving list untouched. It draws
// len(list)-1 values from r.
func Shuffle[T any](r *RNG, list []T) []T {
	out := make([]T, len(list))
	copy(out, list)

	for i := len(out) - 1; i > 0; i-- {
		j := r.intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
