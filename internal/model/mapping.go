package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MappingKind distinguishes the two mapping relations.
type MappingKind string

const (
	MappingKindTeam  MappingKind = "team"
	MappingKindMatch MappingKind = "match"
)

// TeamMapping maps a noisy team name to its clean name within a competition.
type TeamMapping struct {
	NoisyTeam   string    `json:"noisy_team" yaml:"noisy"`
	CleanTeam   string    `json:"clean_team" yaml:"clean"`
	Competition string    `json:"competition" yaml:"-"`
	LastUpdated time.Time `json:"last_updated" yaml:"last_updated,omitempty"`
}

// MatchNameMapping maps a noisy match name to its clean name within a competition.
type MatchNameMapping struct {
	NoisyMatchName string    `json:"noisy_match_name" yaml:"noisy"`
	CleanMatchName string    `json:"clean_match_name" yaml:"clean"`
	Competition    string    `json:"competition" yaml:"-"`
	LastUpdated    time.Time `json:"last_updated" yaml:"last_updated,omitempty"`
}

// MatchRecord is a reconciled match ready for persistence.
type MatchRecord struct {
	MatchID     string    `json:"match_id"`
	Competition string    `json:"competition"`
	MatchName   string    `json:"match_name"`
	TeamA       string    `json:"team_a"`
	TeamB       string    `json:"team_b"`
	OddsA       float64   `json:"odds_a"`
	OddsB       float64   `json:"odds_b"`
	MatchTime   time.Time `json:"match_time"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SafeName replaces characters that are unsafe in file names and ids.
func SafeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// FallbackMatchID derives a match id for observations that never got a
// clean-source id: {competition}_{safe match name}_{time digits}.
func FallbackMatchID(competition, matchName string, t time.Time) string {
	digits := strings.NewReplacer(":", "", " ", "").Replace(t.Format(TimeLayout))
	return fmt.Sprintf("%s_%s_%s", competition, SafeName(matchName), digits)
}

// RecordFromObservation converts a substituted observation into a MatchRecord.
func RecordFromObservation(competition string, obs RawObservation, now time.Time) MatchRecord {
	id := obs.MatchID
	if id == "" {
		id = FallbackMatchID(competition, obs.MatchName, obs.Time)
	}
	return MatchRecord{
		MatchID:     id,
		Competition: competition,
		MatchName:   obs.MatchName,
		TeamA:       obs.TeamA,
		TeamB:       obs.TeamB,
		OddsA:       obs.OddsA,
		OddsB:       obs.OddsB,
		MatchTime:   obs.Time,
		UpdatedAt:   now,
	}
}
