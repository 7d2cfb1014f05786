package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/odds-cli/internal/model"
)

func TestSubstitute_DropsUnmapped(t *testing.T) {
	s := newMemStore()
	s.matches[key{"M1", "CS2"}] = "2025_major"
	s.matches[key{"M2", "CS2"}] = "2025_major"

	in := []model.RawObservation{
		noisy("M1", "A", "B", 0),
		noisy("M2", "C", "D", 0),
		noisy("M3", "E", "F", 0),
	}

	out, stats, err := Substitute(context.Background(), s, "CS2", in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, SubstituteStats{Kept: 2, Dropped: 1}, stats)
	for _, o := range out {
		assert.Equal(t, "2025_major", o.MatchName)
	}
}

func TestSubstitute_PerField(t *testing.T) {
	s := newMemStore()
	s.matches[key{"M1", "CS2"}] = "2025_major"
	s.teams[key{"Liquid", "CS2"}] = "Team Liquid"

	in := []model.RawObservation{noisy("M1", "Heroic", "Liquid", 0)}
	out, stats, err := Substitute(context.Background(), s, "CS2", in)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "2025_major", out[0].MatchName)
	assert.Equal(t, "Heroic", out[0].TeamA)
	assert.Equal(t, "Team Liquid", out[0].TeamB)
	assert.Equal(t, 1, stats.TeamsReplaced)

	assert.Equal(t, "M1", in[0].MatchName, "input is not modified")
	assert.Equal(t, "Liquid", in[0].TeamB)
}

func TestSubstitute_ScopedByCompetition(t *testing.T) {
	s := newMemStore()
	s.matches[key{"M1", "DOTA2"}] = "2025_ti"

	out, _, err := Substitute(context.Background(), s, "CS2", []model.RawObservation{noisy("M1", "A", "B", 0)})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSubstitute_KeepsMatchID(t *testing.T) {
	s := newMemStore()
	s.matches[key{"M1", "CS2"}] = "2025_major"
	obs := noisy("M1", "A", "B", 0)
	obs.MatchID = "777"

	out, _, err := Substitute(context.Background(), s, "CS2", []model.RawObservation{obs})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "777", out[0].MatchID)
}

func TestSubstitute_StoreError(t *testing.T) {
	s := newMemStore()
	s.failGet = true
	_, _, err := Substitute(context.Background(), s, "CS2", []model.RawObservation{noisy("M1", "A", "B", 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "substitute: get match mapping")
}
