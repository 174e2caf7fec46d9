/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vectors produced by the browser implementation of the same generator.
func TestGoldenVectors(t *testing.T) {
	tests := []struct {
		name   string
		seed   string
		hash   [4]uint32
		raw    []uint32
		floats []float64
		ints   []int
	}{
		{
			name:   "test seed",
			seed:   "test-seed",
			hash:   [4]uint32{0xd35eabce, 0xf5d5974e, 0x75fb043b, 0xd3e327b7},
			raw:    []uint32{2635557588, 4016425809, 3163140506, 3808513159},
			floats: []float64{0.6136385696008801, 0.935147006297484, 0.7364760399796069},
			ints:   []int{61, 93, 73, 88, 70, 78, 85, 26},
		},
		{
			name:   "empty seed",
			seed:   "",
			hash:   [4]uint32{0x6a09c8be, 0xbb67ae74, 0x3c6ea1d5, 0xa54ff87b},
			raw:    []uint32{3401674670, 2154677917, 3575658135, 1140195970},
			floats: []float64{0.7920141029171646, 0.5016750462818891, 0.8325227850582451},
			ints:   []int{79, 50, 83, 26, 76, 23, 45, 20},
		},
		{
			name:   "suffixed seed",
			seed:   "room-42-rules",
			hash:   [4]uint32{0x4e05afa0, 0x286d1cc7, 0xa9ba4355, 0xdc1ffc94},
			raw:    []uint32{1385351420, 4230317276, 2490796530, 3453413214},
			floats: []float64{0.3225522628054023, 0.9849474942311645, 0.579933759290725},
			ints:   []int{32, 98, 57, 80, 53, 21, 83, 69},
		},
		{
			name:   "non-ascii seed",
			seed:   "héllo-☃",
			hash:   [4]uint32{0xa51677b3, 0x68795dec, 0xec405bc8, 0x7eb5b4b4},
			raw:    []uint32{2353367636, 893800448, 253991087, 3452355192},
			floats: []float64{0.5479361014440656, 0.20810413360595703, 0.059136908268556},
			ints:   []int{54, 20, 5, 80, 69, 27, 65, 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, c, d := hashSeed(tt.seed)
			assert.Equal(t, tt.hash, [4]uint32{a, b, c, d})

			r := New(tt.seed)
			for i, want := range tt.raw {
				assert.Equal(t, want, r.Uint32(), "raw output %d", i)
			}

			r = New(tt.seed)
			for i, want := range tt.floats {
				assert.Equal(t, want, r.Next(), "float %d", i)
			}

			r = New(tt.seed)
			for i, want := range tt.ints {
				got, err := r.NextInt(100)
				require.NoError(t, err)
				assert.Equal(t, want, got, "int %d", i)
			}
		})
	}
}

func TestNextRange(t *testing.T) {
	r := New("range")
	for i := 0; i < 10000; i++ {
		f := r.Next()
		if f < 0 || f >= 1 {
			t.Fatalf("float %d out of range [0, 1): %f", i, f)
		}
	}
}

func TestNextIntRejectsNonPositive(t *testing.T) {
	r := New("bounds")

	for _, n := range []int{0, -1, -100} {
		_, err := r.NextInt(n)
		assert.ErrorIs(t, err, ErrInvalidArgument, "n=%d", n)
	}

	got, err := r.NextInt(1)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestIndependentSuffixedStreams(t *testing.T) {
	rules := New("seed-rules")
	pool := New("seed-pool")

	same := 0
	for i := 0; i < 16; i++ {
		if rules.Uint32() == pool.Uint32() {
			same++
		}
	}
	assert.Less(t, same, 16)
}

func TestShuffle(t *testing.T) {
	list := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	original := append([]string(nil), list...)

	first := Shuffle(New("shuffle"), list)
	second := Shuffle(New("shuffle"), list)

	assert.Equal(t, original, list, "input must not be modified")
	assert.Equal(t, first, second)
	assert.ElementsMatch(t, list, first)
}

func TestShuffleConsumesLenMinusOne(t *testing.T) {
	r := New("consume")
	Shuffle(r, []int{1, 2, 3, 4, 5})

	ref := New("consume")
	for i := 0; i < 4; i++ {
		ref.Uint32()
	}

	assert.Equal(t, ref.Uint32(), r.Uint32())
}

func TestShuffleEmpty(t *testing.T) {
	assert.Empty(t, Shuffle(New("empty"), []int{}))
	assert.Equal(t, []int{7}, Shuffle(New("one"), []int{7}))
}
