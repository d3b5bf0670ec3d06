package domain

import "time"

// OrderRecord is a journaled order decision, live or dry run.
type OrderRecord struct {
	ID         string
	Strategy   Strategy
	GameKey    string
	Symbol     string
	Side       Side
	Action     Action
	Quantity   int
	PriceCents int
	Stake      float64
	DryRun     bool
	Reason     string // exit reason for sells, empty for entries
	CreatedAt  time.Time
}

// CycleReport summarises one engine cycle.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Balance   float64
	Live      bool

	Comparisons   []Comparison
	Opportunities int
	Bundles       []ArbitrageBundle
	Extremes      []SpreadExtreme
	Orders        []OrderRecord
	Rejections    int
	Errors        []string
}
