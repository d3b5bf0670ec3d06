// Package detector finds trading candidates in venue quotes: probability
// divergences against a reference feed, two-leg arbitrage bundles and
// near-certain spread extremes.
package detector

import (
	"github.com/alejandrodnm/oddsbot/internal/identity"
)

// Config holds the detection thresholds.
type Config struct {
	Threshold        float64 // minimum net divergence to flag, percentage points
	MinEdgeAfterCost float64 // assumed execution cost subtracted from raw divergence, pp
	FeeBuffer        float64 // probability units reserved for fees in bundle arbitrage
	ExtremeLow       float64 // quotes at or below are extremes
	ExtremeHigh      float64 // quotes at or above are extremes
}

// DefaultConfig returns conservative thresholds.
func DefaultConfig() Config {
	return Config{
		Threshold:        10,
		MinEdgeAfterCost: 0,
		FeeBuffer:        0.01,
		ExtremeLow:       0.15,
		ExtremeHigh:      0.85,
	}
}

// Detector runs the three detection passes over one series' quotes.
type Detector struct {
	cfg      Config
	resolver *identity.Resolver
}

// New creates a Detector. Zero-valued bands fall back to the defaults.
func New(cfg Config, resolver *identity.Resolver) *Detector {
	def := DefaultConfig()
	if cfg.ExtremeLow <= 0 {
		cfg.ExtremeLow = def.ExtremeLow
	}
	if cfg.ExtremeHigh <= 0 {
		cfg.ExtremeHigh = def.ExtremeHigh
	}
	return &Detector{cfg: cfg, resolver: resolver}
}

// Config returns the active thresholds.
func (d *Detector) Config() Config {
	return d.cfg
}
