package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElectHost(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		incumbent  string
		want       string
	}{
		{
			name: "nobody",
			want: "",
		},
		{
			name: "earliest joiner",
			candidates: []Candidate{
				{ID: "b", JoinedAt: 20, Connected: true},
				{ID: "a", JoinedAt: 10, Connected: true},
			},
			want: "a",
		},
		{
			name: "tie broken by id",
			candidates: []Candidate{
				{ID: "zed", JoinedAt: 10, Connected: true},
				{ID: "amy", JoinedAt: 10, Connected: true},
			},
			want: "amy",
		},
		{
			name: "disconnected skipped",
			candidates: []Candidate{
				{ID: "a", JoinedAt: 10},
				{ID: "b", JoinedAt: 20, Connected: true},
			},
			want: "b",
		},
		{
			name: "incumbent retained",
			candidates: []Candidate{
				{ID: "a", JoinedAt: 10, Connected: true},
				{ID: "b", JoinedAt: 20, Connected: true},
			},
			incumbent: "b",
			want:      "b",
		},
		{
			name: "disconnected incumbent replaced",
			candidates: []Candidate{
				{ID: "a", JoinedAt: 10, Connected: true},
				{ID: "b", JoinedAt: 5},
			},
			incumbent: "b",
			want:      "a",
		},
		{
			name: "absent incumbent replaced",
			candidates: []Candidate{
				{ID: "c", JoinedAt: 30, Connected: true},
			},
			incumbent: "b",
			want:      "c",
		},
		{
			name: "all disconnected",
			candidates: []Candidate{
				{ID: "a", JoinedAt: 10},
			},
			incumbent: "a",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElectHost(tt.candidates, tt.incumbent))
		})
	}
}
