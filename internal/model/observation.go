package model

import (
	"strings"
	"time"
)

// TimeLayout is the wall-clock rendering used for persisted match times.
const TimeLayout = "2006-01-02 15:04:05"

// RawObservation is one match read from the app screen via OCR. MatchName
// is not stable across observations of the same real-world match.
type RawObservation struct {
	MatchName string    `json:"match_name"`
	TeamA     string    `json:"team_a"`
	TeamB     string    `json:"team_b"`
	OddsA     float64   `json:"odds_a"`
	OddsB     float64   `json:"odds_b"`
	Time      time.Time `json:"time"`
	MatchID   string    `json:"match_id,omitempty"` // clean-source id, attached by the resolver
}

// Valid reports whether the observation carries both teams and both odds.
func (o RawObservation) Valid() bool {
	return strings.TrimSpace(o.MatchName) != "" &&
		strings.TrimSpace(o.TeamA) != "" &&
		strings.TrimSpace(o.TeamB) != "" &&
		o.OddsA > 0 && o.OddsB > 0
}

// CleanObservation is one match scraped from the odds website.
type CleanObservation struct {
	MatchID   string    `json:"match_id"`
	MatchName string    `json:"match_name"`
	TeamA     string    `json:"team_a"`
	TeamB     string    `json:"team_b"`
	OddsA     float64   `json:"odds_a"`
	OddsB     float64   `json:"odds_b"`
	Time      time.Time `json:"time"`
}

// TextItem is a single recognised text box.
type TextItem struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Frame is one OCR pass over a match card on screen.
type Frame struct {
	Competition string     `json:"competition"`
	CapturedAt  time.Time  `json:"captured_at"`
	Items       []TextItem `json:"items"`
}
