package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/odds-cli/internal/kelly"
	"github.com/sells-group/odds-cli/internal/model"
	"github.com/sells-group/odds-cli/internal/pipeline"
	"github.com/sells-group/odds-cli/internal/resolve"
	"github.com/sells-group/odds-cli/internal/store"
)

var testNow = time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC)

func testStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewSQLiteRegistry(t.TempDir())
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []*pipeline.Result{
		{
			Competition:  "CS2",
			Status:       "ok",
			Clean:        4,
			Noisy:        3,
			Resolution:   resolve.BatchStats{Created: 2, Mapped: 1},
			Substitution: resolve.SubstituteStats{Dropped: 0},
			Persisted:    3,
		},
		{Competition: "DOTA2", Status: pipeline.StatusSkipped},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"COMPETITION", "STATUS", "CLEAN", "NOISY", "CREATED", "MAPPED", "DROPPED", "PERSISTED"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"CS2", "ok", "4", "3", "2", "1", "0", "3"}, strings.Fields(lines[1]))
	assert.Equal(t, "DOTA2", strings.Fields(lines[2])[0])
}

func TestMappingsExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := testStore(t)
	require.NoError(t, src.PutMatchMapping(ctx, "iem cologne 2025", "iem_cologne_2025", "CS2", testNow))
	require.NoError(t, src.PutTeamMapping(ctx, "Vitalty", "Vitality", "CS2", testNow))

	var buf bytes.Buffer
	require.NoError(t, exportMappings(ctx, &buf, src, "CS2", testNow))
	assert.Contains(t, buf.String(), "competition: CS2")

	dst := testStore(t)
	n, err := importMappings(ctx, strings.NewReader(buf.String()), dst, "CS2", testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clean, ok, err := dst.GetTeamMapping(ctx, "Vitalty", "CS2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Vitality", clean)

	clean, ok, err = dst.GetMatchMapping(ctx, "iem cologne 2025", "CS2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "iem_cologne_2025", clean)
}

func TestImportMappings_ReplacesAndStamps(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.PutTeamMapping(ctx, "NAV", "NAVI Junior", "CS2", testNow.Add(-time.Hour)))

	doc := "competition: CS2\nteams:\n  - noisy: NAV\n    clean: NAVI\n"
	n, err := importMappings(ctx, strings.NewReader(doc), st, "", testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	teams, err := st.ListTeamMappings(ctx, "CS2")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "NAVI", teams[0].CleanTeam)
	assert.True(t, testNow.Equal(teams[0].LastUpdated))
}

func TestImportMappings_CompetitionMismatch(t *testing.T) {
	st := testStore(t)
	_, err := importMappings(context.Background(), strings.NewReader("competition: DOTA2\n"), st, "CS2", testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"DOTA2"`)
}

func TestListMappings(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.PutMatchMapping(ctx, "blast major", "2025_blast_austin_major", "CS2", testNow))
	require.NoError(t, st.PutTeamMapping(ctx, "HEROIC", "Heroic", "CS2", testNow))

	var all bytes.Buffer
	require.NoError(t, listMappings(ctx, &all, st, "CS2", ""))
	assert.Contains(t, all.String(), "2025_blast_austin_major")
	assert.Contains(t, all.String(), "Heroic")

	var teams bytes.Buffer
	require.NoError(t, listMappings(ctx, &teams, st, "CS2", model.MappingKindTeam))
	assert.Contains(t, teams.String(), "Heroic")
	assert.NotContains(t, teams.String(), "blast")

	var matches bytes.Buffer
	require.NoError(t, listMappings(ctx, &matches, st, "CS2", model.MappingKindMatch))
	assert.Contains(t, matches.String(), "blast")
	assert.NotContains(t, matches.String(), "Heroic")

	err := listMappings(ctx, &bytes.Buffer{}, st, "CS2", "player")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mapping kind")
}

func TestAdhocStake(t *testing.T) {
	calc := kelly.NewCalculator(kelly.DefaultConfig())

	s, err := adhocStake(calc, 3.0, 1.6, 2.4)
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.Coins)
	f, _ := s.Probability.Float64()
	assert.InDelta(t, 0.6, f, 1e-9)

	_, err = adhocStake(calc, 3.0, 0, 2.4)
	assert.Error(t, err)
}

func TestStakesFor(t *testing.T) {
	calc := kelly.NewCalculator(kelly.DefaultConfig())
	records := []model.MatchRecord{
		{MatchID: "111", TeamA: "Vitality", TeamB: "Heroic", OddsA: 3.0, OddsB: 1.5},
		{MatchID: "CS2_x_20250720", TeamA: "A", TeamB: "B", OddsA: 2, OddsB: 2},
	}
	clean := []model.CleanObservation{{MatchID: "111", TeamA: "Vitality", TeamB: "Heroic", OddsA: 1.6, OddsB: 2.4}}

	stakes := stakesFor(calc, records, clean)
	require.Len(t, stakes, 2, "only the match with a clean listing is priced")
	assert.Equal(t, "Vitality", stakes[0].Team)

	var buf bytes.Buffer
	printStakes(&buf, stakes)
	assert.Contains(t, buf.String(), "MATCH")
	assert.Contains(t, buf.String(), "Heroic")
}
