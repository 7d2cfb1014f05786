package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/odds-cli/internal/model"
)

var at = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

func TestWriteMatchesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cs2.xlsx")
	records := []model.MatchRecord{
		{MatchID: "111", MatchName: "iem_cologne_2025", TeamA: "Vitality", TeamB: "Heroic", OddsA: 1.45, OddsB: 2.7, MatchTime: at, UpdatedAt: at},
		{MatchID: "112", MatchName: "iem_cologne_2025", TeamA: "NAVI", TeamB: "FaZe", OddsA: 1.8, OddsB: 2, MatchTime: at.Add(time.Hour), UpdatedAt: at},
	}
	require.NoError(t, WriteMatchesXLSX(path, "CS2", records))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "CS2", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	var header []string
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	assert.Equal(t, MatchColumns, header)

	row := sheet.Rows[1].Cells
	assert.Equal(t, "111", row[0].String())
	assert.Equal(t, "2025-06-01 18:30:00", row[2].String())
	odds, err := row[5].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1.45, odds, 1e-9)
}

func TestWriteMatchesXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteMatchesXLSX(path, "DOTA2", nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Sheets[0].Rows, 1)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "CS2", sheetName("CS2"))
	assert.Equal(t, "a_b", sheetName("a/b"))
	assert.Equal(t, "matches", sheetName(""))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), 31)
}

func TestMappingsRoundTrip(t *testing.T) {
	doc := MappingsDocument{
		Competition: "CS2",
		ExportedAt:  at,
		Matches:     []model.MatchNameMapping{{NoisyMatchName: "IEM科隆BO3", CleanMatchName: "iem_cologne_2025", LastUpdated: at}},
		Teams:       []model.TeamMapping{{NoisyTeam: "Vitalty", CleanTeam: "Vitality"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMappings(&buf, doc))
	assert.Contains(t, buf.String(), "noisy: Vitalty")
	assert.NotContains(t, buf.String(), "game_name")

	got, err := ReadMappings(&buf)
	require.NoError(t, err)
	assert.Equal(t, "CS2", got.Competition)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, "iem_cologne_2025", got.Matches[0].CleanMatchName)
	assert.Equal(t, "CS2", got.Matches[0].Competition)
	assert.True(t, at.Equal(got.Matches[0].LastUpdated))
	require.Len(t, got.Teams, 1)
	assert.Equal(t, "CS2", got.Teams[0].Competition)
	assert.True(t, got.Teams[0].LastUpdated.IsZero())
}

func TestReadMappings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", "", "decode mappings"},
		{"no competition", "teams: []\n", "has no competition"},
		{"incomplete team", "competition: CS2\nteams:\n  - noisy: G2\n", "team mapping 0 is incomplete"},
		{"incomplete match", "competition: CS2\nmatches:\n  - clean: x\n", "match mapping 0 is incomplete"},
		{"malformed", "competition: [", "decode mappings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMappings(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
