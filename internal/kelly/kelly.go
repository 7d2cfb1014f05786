// Package kelly sizes stakes on reconciled matches with the Kelly criterion.
//
// The noisy source supplies the price being offered. The clean source's
// two-way market, with its margin removed, supplies the probability.
package kelly

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/odds-cli/internal/config"
	"github.com/sells-group/odds-cli/internal/model"
)

// Side identifies one half of a two-way market.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Stake is the sizing suggestion for one side of a match.
type Stake struct {
	MatchID     string          `json:"match_id"`
	Side        Side            `json:"side"`
	Team        string          `json:"team"`
	Odds        decimal.Decimal `json:"odds"`
	Probability decimal.Decimal `json:"probability"`
	Fraction    decimal.Decimal `json:"fraction"`
	Coins       int64           `json:"coins"`
}

// Calculator applies a fixed set of sizing parameters.
type Calculator struct {
	minFraction decimal.Decimal // below this no stake is placed
	maxFraction decimal.Decimal // cap on the Kelly fraction
	scale       decimal.Decimal // coins per unit of fraction above minFraction
	roundTo     decimal.Decimal
}

// DefaultConfig returns the stock sizing parameters.
func DefaultConfig() config.KellyConfig {
	return config.KellyConfig{
		MinFraction: 0.02,
		MaxFraction: 0.5,
		Scale:       200,
		RoundTo:     100,
	}
}

// NewCalculator builds a Calculator. Zero fields fall back to DefaultConfig.
func NewCalculator(cfg config.KellyConfig) *Calculator {
	defaults := DefaultConfig()
	if cfg.MinFraction == 0 {
		cfg.MinFraction = defaults.MinFraction
	}
	if cfg.MaxFraction == 0 {
		cfg.MaxFraction = defaults.MaxFraction
	}
	if cfg.Scale == 0 {
		cfg.Scale = defaults.Scale
	}
	if cfg.RoundTo <= 0 {
		cfg.RoundTo = defaults.RoundTo
	}
	return &Calculator{
		minFraction: decimal.NewFromFloat(cfg.MinFraction),
		maxFraction: decimal.NewFromFloat(cfg.MaxFraction),
		scale:       decimal.NewFromFloat(cfg.Scale),
		roundTo:     decimal.NewFromFloat(cfg.RoundTo),
	}
}

// Fraction returns the Kelly fraction f* = (b*p - q) / b for net odds b and
// win probability p, clamped to [0, max].
func (c *Calculator) Fraction(b, p decimal.Decimal) decimal.Decimal {
	if !b.IsPositive() {
		return decimal.Zero
	}
	q := decimal.NewFromInt(1).Sub(p)
	f := b.Mul(p).Sub(q).Div(b)
	if f.IsNegative() {
		return decimal.Zero
	}
	if f.GreaterThan(c.maxFraction) {
		return c.maxFraction
	}
	return f
}

// Coins converts a fraction into a stake rounded to the nearest roundTo,
// half away from zero. Fractions at or below the minimum stake nothing.
func (c *Calculator) Coins(f decimal.Decimal) int64 {
	if f.LessThanOrEqual(c.minFraction) {
		return 0
	}
	units := f.Sub(c.minFraction).Mul(c.scale).Div(c.roundTo).Round(0)
	return units.Mul(c.roundTo).IntPart()
}

// ImpliedProbability removes the margin from a two-way market and returns
// the probability of the side priced at odds. ok is false when either price
// is not positive.
func ImpliedProbability(odds, other decimal.Decimal) (p decimal.Decimal, ok bool) {
	if !odds.IsPositive() || !other.IsPositive() {
		return decimal.Zero, false
	}
	// (1/odds) / (1/odds + 1/other) simplifies to other / (odds + other).
	return other.Div(odds.Add(other)), true
}

// Evaluate sizes both sides of a reconciled match against the clean market
// for the same match. Clean sides are aligned to the record by team name, so
// a clean listing in the opposite order still prices the right team. It
// returns nil when the clean market is unusable.
func (c *Calculator) Evaluate(rec model.MatchRecord, clean model.CleanObservation) []Stake {
	cleanA := decimal.NewFromFloat(clean.OddsA)
	cleanB := decimal.NewFromFloat(clean.OddsB)
	if rec.TeamA == clean.TeamB && rec.TeamB == clean.TeamA && rec.TeamA != rec.TeamB {
		cleanA, cleanB = cleanB, cleanA
	}

	pA, ok := ImpliedProbability(cleanA, cleanB)
	if !ok {
		return nil
	}
	pB := decimal.NewFromInt(1).Sub(pA)

	return []Stake{
		c.stake(rec.MatchID, SideA, rec.TeamA, rec.OddsA, pA),
		c.stake(rec.MatchID, SideB, rec.TeamB, rec.OddsB, pB),
	}
}

func (c *Calculator) stake(matchID string, side Side, team string, odds float64, p decimal.Decimal) Stake {
	o := decimal.NewFromFloat(odds)
	f := c.Fraction(o.Sub(decimal.NewFromInt(1)), p)
	return Stake{
		MatchID:     matchID,
		Side:        side,
		Team:        team,
		Odds:        o,
		Probability: p,
		Fraction:    f,
		Coins:       c.Coins(f),
	}
}
