package domain

import (
	"fmt"
	"time"
)

// ReferenceOdds are the external sportsbook's moneyline odds for one game.
type ReferenceOdds struct {
	EventID      string
	Sport        string
	HomeTeam     string // as named by the feed
	AwayTeam     string
	HomeAmerican int
	AwayAmerican int
	Scheduled    time.Time
	Status       string

	// Derived, clamped implied probabilities.
	HomeProb float64
	AwayProb float64
}

// AmericanToProbability converts American moneyline odds to implied probability.
//
//	+150 → 100/250 = 0.400
//	-150 → 150/250 = 0.600
func AmericanToProbability(american int) (float64, error) {
	switch {
	case american == 0:
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	case american > 0:
		return 100.0 / (float64(american) + 100.0), nil
	default:
		a := float64(-american)
		return a / (a + 100.0), nil
	}
}

// RemoveVig normalizes a two-way market so both probabilities sum to 1
// (multiplicative method). Inputs that already sum to ≤ 1 are returned as-is.
func RemoveVig(p1, p2 float64) (float64, float64) {
	total := p1 + p2
	if total <= 1.0 || total <= 0 {
		return p1, p2
	}
	return p1 / total, p2 / total
}

// NewReferenceOdds derives the implied probabilities for a feed record.
func NewReferenceOdds(o ReferenceOdds, removeVig bool) (ReferenceOdds, error) {
	home, err := AmericanToProbability(o.HomeAmerican)
	if err != nil {
		return ReferenceOdds{}, fmt.Errorf("home odds: %w", err)
	}
	away, err := AmericanToProbability(o.AwayAmerican)
	if err != nil {
		return ReferenceOdds{}, fmt.Errorf("away odds: %w", err)
	}
	if removeVig {
		home, away = RemoveVig(home, away)
	}
	o.HomeProb = ClampProbability(home)
	o.AwayProb = ClampProbability(away)
	return o, nil
}
