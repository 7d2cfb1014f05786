package resolve

import (
	"time"

	"github.com/sells-group/odds-cli/internal/model"
)

// DefaultMaxSkew bounds how far apart a noisy and a clean observation may
// be in time and still describe the same match.
const DefaultMaxSkew = 30 * time.Minute

// SelectClosest returns the clean observation nearest in time to t. Equal
// distances go to the smallest MatchID, then to input order. It reports
// false when there are no candidates or the nearest one is further than
// maxSkew away.
func SelectClosest(t time.Time, candidates []model.CleanObservation, maxSkew time.Duration) (model.CleanObservation, bool) {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}

	best := -1
	var bestDiff time.Duration
	for i, c := range candidates {
		diff := absDuration(c.Time.Sub(t))
		switch {
		case best < 0, diff < bestDiff:
			best, bestDiff = i, diff
		case diff == bestDiff && c.MatchID < candidates[best].MatchID:
			best = i
		}
	}

	if best < 0 || bestDiff > maxSkew {
		return model.CleanObservation{}, false
	}
	return candidates[best], true
}

// latest returns the most recent clean observation, smallest MatchID on ties.
func latest(clean []model.CleanObservation) (model.CleanObservation, bool) {
	if len(clean) == 0 {
		return model.CleanObservation{}, false
	}
	out := clean[0]
	for _, c := range clean[1:] {
		if c.Time.After(out.Time) || (c.Time.Equal(out.Time) && c.MatchID < out.MatchID) {
			out = c
		}
	}
	return out, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
