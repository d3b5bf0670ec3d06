// Package risk enforces the pre-trade limits and keeps the durable daily
// counters they are checked against.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/alejandrodnm/oddsbot/internal/ports"
)

// Config holds the risk limits. A zero limit disables its check.
type Config struct {
	MaxPositions     int     // open positions plus resting buy orders
	MaxOrderNotional float64 // dollars per order
	MaxDailyTrades   int
	MaxDailyNotional float64 // dollars per UTC day
	MaxDailyLoss     float64 // positive dollars of realized loss per UTC day
	MinBalance       float64 // dollars that must remain after the order
}

// Decision is the outcome of a pre-trade check.
type Decision struct {
	Allowed bool
	Reason  string // first failed check, empty when allowed
}

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Service checks orders against Config and the day's counters.
type Service struct {
	store ports.StatsStore
	cfg   Config
	now   func() time.Time
}

// NewService creates a Service persisting its counters in store.
func NewService(store ports.StatsStore, cfg Config) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// SetClock replaces the time source used for the UTC day boundary.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Config returns the active limits.
func (s *Service) Config() Config {
	return s.cfg
}

// Stats returns today's counters. Counters saved on a previous UTC day are
// reset and the reset is persisted.
func (s *Service) Stats(ctx context.Context) (domain.DailyStats, error) {
	stored, err := s.store.Load(ctx)
	if err != nil {
		return domain.DailyStats{}, fmt.Errorf("risk.Stats: load: %w", err)
	}
	stats, reset := stored.ForDay(s.now())
	if !reset {
		return stats, nil
	}
	if stored.Date != "" {
		slog.Info("risk: new trading day, counters reset",
			"previous", stored.Date,
			"trades", stored.Trades,
			"pnl", fmt.Sprintf("$%.2f", stored.RealizedPnL),
		)
	}
	if err := s.store.Save(ctx, stats); err != nil {
		return domain.DailyStats{}, fmt.Errorf("risk.Stats: save reset: %w", err)
	}
	return stats, nil
}

// CanPlaceTrade runs the pre-trade checks in fixed order and stops at the
// first failure:
//  1. open positions plus resting buys
//  2. single-order notional
//  3. trades today
//  4. projected daily notional
//  5. realized daily loss
//  6. balance left after the order
//
// Counters that cannot be read deny the trade.
func (s *Service) CanPlaceTrade(ctx context.Context, notional, balance float64, totalOpenPositions int, orders []domain.Order) Decision {
	if s.cfg.MaxPositions > 0 {
		exposure := totalOpenPositions + restingBuys(orders)
		if exposure >= s.cfg.MaxPositions {
			return deny("max positions reached (%d/%d)", exposure, s.cfg.MaxPositions)
		}
	}

	if s.cfg.MaxOrderNotional > 0 && notional > s.cfg.MaxOrderNotional {
		return deny("order notional $%.2f exceeds max $%.2f", notional, s.cfg.MaxOrderNotional)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		slog.Warn("risk: daily stats unavailable", "err", err)
		return deny("daily stats unavailable")
	}

	if s.cfg.MaxDailyTrades > 0 && stats.Trades >= s.cfg.MaxDailyTrades {
		return deny("max daily trades reached (%d/%d)", stats.Trades, s.cfg.MaxDailyTrades)
	}

	if s.cfg.MaxDailyNotional > 0 && stats.Notional+notional > s.cfg.MaxDailyNotional {
		return deny("daily notional $%.2f would exceed max $%.2f", stats.Notional+notional, s.cfg.MaxDailyNotional)
	}

	if s.cfg.MaxDailyLoss > 0 && -stats.RealizedPnL >= s.cfg.MaxDailyLoss {
		return deny("daily loss $%.2f reached max $%.2f", -stats.RealizedPnL, s.cfg.MaxDailyLoss)
	}

	if s.cfg.MinBalance > 0 && balance-notional < s.cfg.MinBalance {
		return deny("balance after order $%.2f below min $%.2f", balance-notional, s.cfg.MinBalance)
	}

	return Decision{Allowed: true}
}

// RecordTrade adds one executed entry to today's counters.
func (s *Service) RecordTrade(ctx context.Context, notional float64) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("risk.RecordTrade: %w", err)
	}
	stats.Trades++
	stats.Notional += notional
	if err := s.store.Save(ctx, stats); err != nil {
		return fmt.Errorf("risk.RecordTrade: save: %w", err)
	}
	slog.Debug("risk: trade recorded",
		"trades", stats.Trades,
		"notional", fmt.Sprintf("$%.2f", stats.Notional),
	)
	return nil
}

// UpdateRealizedPnL adds pnl (negative for a loss) to today's realized PnL.
func (s *Service) UpdateRealizedPnL(ctx context.Context, pnl float64) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("risk.UpdateRealizedPnL: %w", err)
	}
	stats.RealizedPnL += pnl
	if err := s.store.Save(ctx, stats); err != nil {
		return fmt.Errorf("risk.UpdateRealizedPnL: save: %w", err)
	}
	if s.cfg.MaxDailyLoss > 0 && -stats.RealizedPnL >= s.cfg.MaxDailyLoss {
		slog.Warn("risk: daily loss limit reached, entries blocked until UTC midnight",
			"pnl", fmt.Sprintf("$%.2f", stats.RealizedPnL),
			"max", fmt.Sprintf("$%.2f", s.cfg.MaxDailyLoss),
		)
	}
	return nil
}

func restingBuys(orders []domain.Order) int {
	n := 0
	for _, o := range orders {
		if o.Action == domain.ActionBuy && o.IsOpen() {
			n++
		}
	}
	return n
}
