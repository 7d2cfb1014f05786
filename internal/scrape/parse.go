package scrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
)

var (
	// ErrBlocked means the site served a block page instead of odds.
	ErrBlocked = eris.New("scrape: page blocked")
	// ErrNoOdds means the page rendered without any odds buttons, usually
	// because dynamic content had not loaded yet.
	ErrNoOdds = eris.New("scrape: no odds on page")
)

// MinOdds stands in for a price shown as "-".
const MinOdds = "1.01"

// AdjustOdds maps the site's "-" placeholder to the minimum price.
func AdjustOdds(text string) string {
	if text == "-" {
		return MinOdds
	}
	return text
}

var (
	hhmm      = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	monthDay  = regexp.MustCompile(`^(\d{1,2})月\s*(\d{1,2})$`)
	spaceRuns = regexp.MustCompile(`\s+`)
)

// ParseTimeLabel reads the two lines of a match time label: "HH:MM" above a
// date of 今天 (today), 明天 (tomorrow) or "M月 D". Labels whose first line
// starts with "BO" mark a series in progress and are skipped. Anything else
// that cannot be read yields now.
func ParseTimeLabel(timeText, dateText string, now time.Time) (time.Time, bool) {
	timeText = strings.TrimSpace(timeText)
	dateText = strings.TrimSpace(dateText)
	if strings.HasPrefix(timeText, "BO") {
		return now, true
	}

	var year, day int
	var month time.Month
	switch {
	case dateText == "今天":
		year, month, day = now.Date()
	case dateText == "明天":
		year, month, day = now.AddDate(0, 0, 1).Date()
	case strings.Contains(dateText, "月"):
		m := monthDay.FindStringSubmatch(spaceRuns.ReplaceAllString(dateText, " "))
		if m == nil {
			return now, false
		}
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return now, false
		}
		year, month, day = now.Year(), time.Month(mo), d
	default:
		return now, false
	}

	hm := hhmm.FindStringSubmatch(timeText)
	if hm == nil {
		return now, false
	}
	h, _ := strconv.Atoi(hm[1])
	mi, _ := strconv.Atoi(hm[2])
	if h > 23 || mi > 59 {
		return now, false
	}

	t := time.Date(year, month, day, h, mi, 0, 0, now.Location())
	if t.Day() != day {
		// 2月 30 and the like roll over; treat as unreadable.
		return now, false
	}
	return t, false
}

type pageMatch struct {
	id                   string
	teamA, teamB         string
	oddsTextA, oddsTextB string
}

// ParseOddsPage extracts clean observations from a rendered tournament page.
// Every match is labelled with matchName; times come from the time label at
// the same position as the match's first odds button.
func ParseOddsPage(html, matchName string, now time.Time) ([]model.CleanObservation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}
	if blocked, kind := DetectBlock(doc); blocked {
		return nil, eris.Wrapf(ErrBlocked, "scrape: %s", kind)
	}

	buttons := doc.Find(`[data-test^="odd-button"]`)
	if buttons.Length() == 0 {
		return nil, ErrNoOdds
	}

	var (
		order   []string
		matches = make(map[string]*pageMatch)
	)
	buttons.Each(func(_ int, s *goquery.Selection) {
		label, ok := s.Attr("data-label")
		if !ok {
			return
		}
		parts := strings.Split(label, "~")
		if len(parts) != 3 || parts[1] != "1" {
			return
		}
		id, side := parts[0], parts[2]

		title := strings.TrimSpace(s.Find(`[data-test="odd-button__title"]`).First().Text())
		price := AdjustOdds(strings.TrimSpace(s.Find(`[data-test="odd-button__result"]`).First().Text()))

		m, seen := matches[id]
		if !seen {
			m = &pageMatch{id: id}
			matches[id] = m
			order = append(order, id)
		}
		switch side {
		case "1":
			m.teamA, m.oddsTextA = title, price
		case "2":
			m.teamB, m.oddsTextB = title, price
		}
	})

	timeLabels := doc.Find("div.text-sm.text-grey-500")

	log := zap.L().With(zap.String("component", "scrape"), zap.String("match_name", matchName))
	out := make([]model.CleanObservation, 0, len(order))
	for i, id := range order {
		m := matches[id]

		start := now
		if i < timeLabels.Length() {
			lines := timeLabels.Eq(i).ChildrenFiltered("div")
			if lines.Length() >= 2 {
				var skip bool
				start, skip = ParseTimeLabel(lines.Eq(0).Text(), lines.Eq(1).Text(), now)
				if skip {
					log.Debug("skipping live series", zap.String("match_id", id))
					continue
				}
			}
		}

		if m.teamA == "" || m.teamB == "" || m.oddsTextA == "" || m.oddsTextB == "" {
			log.Debug("skipping incomplete match", zap.String("match_id", id))
			continue
		}
		oddsA, errA := strconv.ParseFloat(m.oddsTextA, 64)
		oddsB, errB := strconv.ParseFloat(m.oddsTextB, 64)
		if errA != nil || errB != nil {
			log.Debug("skipping unreadable odds",
				zap.String("match_id", id),
				zap.String("odds_a", m.oddsTextA),
				zap.String("odds_b", m.oddsTextB),
			)
			continue
		}

		out = append(out, model.CleanObservation{
			MatchID:   id,
			MatchName: matchName,
			TeamA:     m.teamA,
			TeamB:     m.teamB,
			OddsA:     oddsA,
			OddsB:     oddsB,
			Time:      start,
		})
	}
	return out, nil
}
