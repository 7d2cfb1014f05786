// Package ocr turns recognised app-screen text into noisy match observations.
package ocr

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/sells-group/odds-cli/internal/model"
)

var (
	// ErrNoMatchName means no text box carried a best-of label.
	ErrNoMatchName = eris.New("ocr: no match name in frame")
	// ErrInsufficient means fewer than two teams or two odds were read.
	ErrInsufficient = eris.New("ocr: insufficient teams or odds")
)

// UI chrome that appears around a match card.
var skipKeywords = []string{"预测中", "猜胜负", "奖励率", "后", "刷新"}

var (
	nonLabelChars = regexp.MustCompile(`[^a-zA-Z0-9:]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// NormalizeText folds full-width digits and punctuation to ASCII so strings
// like "１．８５" parse as odds.
func NormalizeText(s string) string {
	return strings.TrimSpace(width.Narrow.String(norm.NFKC.String(s)))
}

// ParseFrame extracts one observation from a frame. Items are classified by
// their vertical position: odds contain '.', countdowns contain ':' and the
// rest are team names. now anchors the countdown.
func ParseFrame(frame model.Frame, now time.Time) (model.RawObservation, error) {
	var (
		matchName string
		kept      []model.TextItem
	)
	for _, item := range frame.Items {
		text := NormalizeText(item.Text)
		label := strings.ToUpper(nonLabelChars.ReplaceAllString(text, ""))
		if strings.Contains(label, "BO") || strings.Contains(label, "B0") {
			matchName = whitespace.ReplaceAllString(text, "")
			continue
		}
		if containsAny(text, skipKeywords) {
			continue
		}
		kept = append(kept, model.TextItem{Text: text, X: item.X, Y: item.Y})
	}
	if matchName == "" {
		return model.RawObservation{}, ErrNoMatchName
	}

	slices.SortStableFunc(kept, func(a, b model.TextItem) int {
		switch {
		case a.Y < b.Y:
			return -1
		case a.Y > b.Y:
			return 1
		}
		return 0
	})

	var (
		teams []string
		odds  []float64
		times []string
	)
	for _, item := range kept {
		switch {
		case strings.Contains(item.Text, "."):
			v, err := strconv.ParseFloat(item.Text, 64)
			if err != nil {
				return model.RawObservation{}, eris.Wrapf(err, "ocr: parse odds %q", item.Text)
			}
			odds = append(odds, v)
		case strings.Contains(item.Text, ":"):
			times = append(times, item.Text)
		default:
			if item.Text != "" && !slices.Contains(teams, item.Text) {
				teams = append(teams, item.Text)
			}
		}
	}
	if len(teams) < 2 || len(odds) < 2 {
		return model.RawObservation{}, eris.Wrapf(ErrInsufficient, "ocr: %s has %d teams, %d odds", matchName, len(teams), len(odds))
	}

	start := now
	if len(times) > 0 {
		var err error
		// A bad countdown still leaves a usable observation at now.
		if start, err = ParseExtendedTime(times[0], now); err != nil {
			zap.L().With(zap.String("component", "ocr")).Warn("ocr: malformed countdown, using capture time",
				zap.String("match", matchName),
				zap.String("countdown", times[0]),
				zap.Error(err),
			)
		}
	}

	return model.RawObservation{
		MatchName: matchName,
		TeamA:     teams[0],
		TeamB:     teams[1],
		OddsA:     odds[0],
		OddsB:     odds[1],
		Time:      start,
	}, nil
}

// ParseExtendedTime reads an "H:M:S" countdown whose hour field may exceed
// 23 and returns now plus that duration. Malformed input returns now and an
// error.
func ParseExtendedTime(s string, now time.Time) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return now, eris.Errorf("ocr: countdown %q is not H:M:S", s)
	}

	var hms [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return now, eris.Wrapf(err, "ocr: countdown %q", s)
		}
		hms[i] = n
	}

	days, hours := hms[0]/24, hms[0]%24
	return now.Add(time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second), nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
