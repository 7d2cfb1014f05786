package scrape

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestTournamentName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://odds.example.com/esports/cs2/tournament/iem-cologne-2025/", "iem_cologne_2025"},
		{"https://odds.example.com/esports/cs2/tournament/iem-cologne-2025-play-in-12/", "iem_cologne_2025"},
		{"https://odds.example.com/esports/dota2/tournament/dreamleague-season-25-12/", "2025_dreamleague_season"},
		{"https://odds.example.com/esports/lol/tournament/LCK-Spring", "2025_lck_spring"},
		{"https://odds.example.com/esports/lol/tournament/msi-play-in", "2025_msi"},
		{"https://odds.example.com/esports/cs2/matches/", UnknownTournament},
		{"https://odds.example.com/esports/cs2/tournament/", UnknownTournament},
		{"/tournament/blast-premier-2024-fall-final?lang=zh", "blast_premier_2024_fall_final"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, TournamentName(tt.url, now))
		})
	}
}

func TestAdjustOdds(t *testing.T) {
	assert.Equal(t, "1.01", AdjustOdds("-"))
	assert.Equal(t, "1.85", AdjustOdds("1.85"))
	assert.Equal(t, "", AdjustOdds(""))
}

func TestParseTimeLabel(t *testing.T) {
	tests := []struct {
		name     string
		timeText string
		dateText string
		want     time.Time
		wantSkip bool
	}{
		{"today", "18:30", "今天", time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC), false},
		{"tomorrow", "09:05", "明天", time.Date(2025, 6, 2, 9, 5, 0, 0, time.UTC), false},
		{"month day", "20:00", "6月 15", time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC), false},
		{"month day no space", "20:00", "12月3", time.Date(2025, 12, 3, 20, 0, 0, 0, time.UTC), false},
		{"series live", "BO3", "1 - 0", now, true},
		{"unknown date", "20:00", "周五", now, false},
		{"bad time", "8pm", "今天", now, false},
		{"impossible date", "10:00", "2月 30", now, false},
		{"hour out of range", "25:00", "今天", now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skip := ParseTimeLabel(tt.timeText, tt.dateText, now)
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.want, got)
		})
	}
}

func button(id, side, title, price string) string {
	return fmt.Sprintf(`<button data-test="odd-button" data-label="%s~1~%s">
  <span data-test="odd-button__title">%s</span>
  <span data-test="odd-button__result">%s</span>
</button>`, id, side, title, price)
}

func timeLabel(tm, date string) string {
	return fmt.Sprintf(`<div class="text-sm text-grey-500"><div>%s</div><div>%s</div></div>`, tm, date)
}

func page(parts ...string) string {
	return "<html><body><main>" + strings.Join(parts, "\n") + "</main></body></html>"
}

func TestParseOddsPage(t *testing.T) {
	html := page(
		timeLabel("18:30", "今天"),
		button("111", "1", "Vitality", "1.45"),
		button("111", "2", "Heroic", "2.70"),
		timeLabel("BO3", "1 - 0"),
		button("222", "1", "NAVI", "1.20"),
		button("222", "2", "FaZe", "4.10"),
		timeLabel("09:00", "明天"),
		button("333", "1", "G2", "-"),
		button("333", "2", "MOUZ", "2.05"),
		`<button data-test="odd-button" data-label="333~2~1"><span data-test="odd-button__title">handicap</span></button>`,
		timeLabel("10:00", "明天"),
		button("444", "1", "Spirit", "1.90"),
	)

	obs, err := ParseOddsPage(html, "2025_iem_cologne", now)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "111", obs[0].MatchID)
	assert.Equal(t, "2025_iem_cologne", obs[0].MatchName)
	assert.Equal(t, "Vitality", obs[0].TeamA)
	assert.Equal(t, "Heroic", obs[0].TeamB)
	assert.Equal(t, 1.45, obs[0].OddsA)
	assert.Equal(t, 2.70, obs[0].OddsB)
	assert.Equal(t, time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC), obs[0].Time)

	// "-" becomes the minimum price; the handicap market is ignored.
	assert.Equal(t, "333", obs[1].MatchID)
	assert.Equal(t, "G2", obs[1].TeamA)
	assert.Equal(t, 1.01, obs[1].OddsA)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), obs[1].Time)
}

func TestParseOddsPage_MissingTimeLabelUsesNow(t *testing.T) {
	html := page(
		button("1", "1", "A", "1.5"),
		button("1", "2", "B", "2.5"),
	)
	obs, err := ParseOddsPage(html, "m", now)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, now, obs[0].Time)
}

func TestParseOddsPage_UnreadableOddsSkipped(t *testing.T) {
	html := page(
		button("1", "1", "A", "suspended"),
		button("1", "2", "B", "2.5"),
		button("2", "1", "C", "1.5"),
		button("2", "2", "D", "2.5"),
	)
	obs, err := ParseOddsPage(html, "m", now)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "2", obs[0].MatchID)
}

func TestParseOddsPage_NoButtons(t *testing.T) {
	_, err := ParseOddsPage(page("<div class='loader'></div>"), "m", now)
	assert.ErrorIs(t, err, ErrNoOdds)
}

func TestParseOddsPage_Blocked(t *testing.T) {
	html := "<html><body><h1>Error 1000</h1><p>DNS points to prohibited IP</p></body></html>"
	_, err := ParseOddsPage(html, "m", now)
	require.ErrorIs(t, err, ErrBlocked)
	assert.Contains(t, err.Error(), "error_1000")
}
