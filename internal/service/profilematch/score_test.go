package profilematch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/destined/internal/db"
	"github.com/oggyb/destined/internal/service/profilematch"
)

var (
	rock = db.Interest{Interest: "Music", SelectedOption: "Rock"}
	jazz = db.Interest{Interest: "Music", SelectedOption: "Jazz"}
	asia = db.Interest{Interest: "Travel", SelectedOption: "Asia"}
	dogs = db.Interest{Interest: "Pets", SelectedOption: "Dogs"}
)

func TestScoreInterests(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []db.Interest
		shared  int
		score   float64
		perfect bool
	}{
		{"one of three", []db.Interest{rock}, []db.Interest{rock, asia}, 1, 66.67, false},
		{"identical", []db.Interest{rock, asia}, []db.Interest{asia, rock}, 2, 100, true},
		{"same category other option", []db.Interest{rock}, []db.Interest{jazz}, 0, 0, false},
		{"disjoint", []db.Interest{rock, asia}, []db.Interest{dogs}, 0, 0, false},
		{"empty candidate", []db.Interest{rock}, nil, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := profilematch.ScoreInterests(tt.a, tt.b)
			assert.Len(t, got.Shared, tt.shared)
			assert.InDelta(t, tt.score, got.Value, 0.01)
			assert.Equal(t, tt.perfect, got.Perfect)
		})
	}
}

func TestScoreInterests_IsSymmetricOnDistinctLists(t *testing.T) {
	a := []db.Interest{rock, asia, dogs}
	b := []db.Interest{rock, jazz}
	assert.InDelta(t, profilematch.ScoreInterests(a, b).Value, profilematch.ScoreInterests(b, a).Value, 1e-9)
}

// Duplicate pairs on the candidate are each counted as shared, so the
// score can exceed 100. It is reported as is.
func TestScoreInterests_NotClamped(t *testing.T) {
	got := profilematch.ScoreInterests([]db.Interest{rock}, []db.Interest{rock, rock, rock})
	assert.Len(t, got.Shared, 3)
	assert.InDelta(t, 150.0, got.Value, 1e-9)
	assert.False(t, got.Perfect)
}
