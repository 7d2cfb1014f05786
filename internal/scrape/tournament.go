package scrape

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// UnknownTournament is returned when a URL carries no tournament segment.
const UnknownTournament = "unknown_match"

// TournamentName derives the clean match name shared by every match on a
// tournament page, e.g. ".../tournament/iem-cologne-2025-play-in-12/" gives
// "iem_cologne_2025". Names without a year get now's year prefixed.
func TournamentName(rawURL string, now time.Time) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}

	parts := strings.Split(path, "/")
	idx := -1
	for i, p := range parts {
		if p == "tournament" {
			idx = i
			break
		}
	}
	if idx < 0 || idx+1 >= len(parts) || parts[idx+1] == "" {
		return UnknownTournament
	}

	name := strings.ToLower(strings.ReplaceAll(parts[idx+1], "-", "_"))
	segs := strings.Split(name, "_")

	for len(segs) > 0 && len(segs[len(segs)-1]) == 2 && isDigits(segs[len(segs)-1]) {
		segs = segs[:len(segs)-1]
	}
	if n := len(segs); n > 1 && segs[n-2] == "play" && segs[n-1] == "in" {
		segs = segs[:n-2]
	}

	hasYear := false
	for _, s := range segs {
		if len(s) == 4 && isDigits(s) {
			hasYear = true
			break
		}
	}
	if !hasYear {
		segs = append([]string{strconv.Itoa(now.Year())}, segs...)
	}
	return strings.Join(segs, "_")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
