// Package position decides when held contracts should be sold and places
// the exit orders.
package position

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/alejandrodnm/oddsbot/internal/ports"
	"github.com/alejandrodnm/oddsbot/internal/risk"
)

// DryRunOrderID is returned for exits that were only logged.
const DryRunOrderID = "dry-run"

// Config holds the exit rules. A zero threshold disables its rule.
type Config struct {
	Live            bool
	TakeProfitCents int     // per-contract gain
	TakeProfitPct   float64 // gain as % of cost
	StopLossPct     float64 // loss as % of cost, positive
	MaxHold         time.Duration
	TickImprove     int // cents below the bid for the exit limit
	RequestTimeout  time.Duration
}

// ExitDecision is the outcome of evaluating one position.
type ExitDecision struct {
	Exit       bool
	Position   domain.Position
	Quantity   int // contracts not already covered by resting sells
	PriceCents int // current bid of the held side
	EntryCents float64
	PnLCents   float64 // unrealized, per contract
	PnLPct     float64
	Reason     string
}

// pendingExit is a live exit not yet fully seen as filled.
type pendingExit struct {
	held       int     // contracts held at the last sweep
	remaining  int     // exit contracts not yet booked
	limitCents float64 // quantity-weighted limit
	entryCents float64
}

// Manager evaluates and exits positions.
type Manager struct {
	cfg     Config
	quotes  ports.QuoteSource
	account ports.Account
	risk    *risk.Service
	journal ports.Journal
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]pendingExit // by symbol
}

// NewManager creates a Manager. journal may be nil.
func NewManager(cfg Config, quotes ports.QuoteSource, account ports.Account, riskSvc *risk.Service, journal ports.Journal) *Manager {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Manager{
		cfg:     cfg,
		quotes:  quotes,
		account: account,
		risk:    riskSvc,
		journal: journal,
		now:     time.Now,
		pending: make(map[string]pendingExit),
	}
}

// SetClock replaces the time source used for the max-hold rule.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// EvaluateExit checks a position against the exit rules in priority order:
// take-profit cents, take-profit %, stop-loss %, max hold.
func (m *Manager) EvaluateExit(ctx context.Context, pos domain.Position, orders []domain.Order) (ExitDecision, error) {
	d := ExitDecision{Position: pos}

	d.Quantity = pos.Contracts() - restingSells(pos, orders)
	if d.Quantity <= 0 {
		return d, nil
	}

	cctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	q, err := m.quotes.FetchQuote(cctx, pos.Symbol)
	cancel()
	if err != nil {
		return d, fmt.Errorf("position.EvaluateExit: quote %s: %w", pos.Symbol, err)
	}

	d.PriceCents = q.BidFor(pos.Side)
	d.EntryCents = pos.EntryPriceCents()

	if d.PriceCents > 0 && d.EntryCents > 0 {
		d.PnLCents = float64(d.PriceCents) - d.EntryCents
		d.PnLPct = d.PnLCents / d.EntryCents * 100

		switch {
		case m.cfg.TakeProfitCents > 0 && d.PnLCents >= float64(m.cfg.TakeProfitCents):
			d.Exit = true
			d.Reason = fmt.Sprintf("TP: +%d¢/contract", int(math.Round(d.PnLCents)))
			return d, nil
		case m.cfg.TakeProfitPct > 0 && d.PnLPct >= m.cfg.TakeProfitPct:
			d.Exit = true
			d.Reason = fmt.Sprintf("TP: +%.1f%%", d.PnLPct)
			return d, nil
		case m.cfg.StopLossPct > 0 && d.PnLPct <= -m.cfg.StopLossPct:
			d.Exit = true
			d.Reason = fmt.Sprintf("SL: %.1f%%", d.PnLPct)
			return d, nil
		}
	}

	if m.cfg.MaxHold > 0 && !pos.OpenedAt.IsZero() && d.PriceCents > 0 {
		if held := m.now().Sub(pos.OpenedAt); held >= m.cfg.MaxHold {
			d.Exit = true
			d.Reason = fmt.Sprintf("max hold: %s", held.Round(time.Minute))
		}
	}
	return d, nil
}

// ExitLimit is the sell limit for a decision: the bid improved by
// TickImprove cents, inside [1, 99].
func (m *Manager) ExitLimit(d ExitDecision) int {
	return domain.ClampPrice(d.PriceCents - m.cfg.TickImprove)
}

// PlaceExitOrder sells the uncovered quantity of d. In dry-run mode it only
// logs. A live exit is tracked until later sweeps see the position shrink;
// only the filled contracts reach the risk service as realized PnL.
func (m *Manager) PlaceExitOrder(ctx context.Context, d ExitDecision) (domain.OrderRecord, error) {
	pos := d.Position
	limit := m.ExitLimit(d)
	record := domain.OrderRecord{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Action:     domain.ActionSell,
		Quantity:   d.Quantity,
		PriceCents: limit,
		Stake:      float64(d.Quantity) * float64(limit) / 100,
		Reason:     d.Reason,
		CreatedAt:  m.now(),
	}

	if !m.cfg.Live {
		slog.Info("exits: DRY RUN would sell",
			"symbol", pos.Symbol,
			"side", pos.Side,
			"qty", d.Quantity,
			"limit", fmt.Sprintf("%d¢", limit),
			"reason", d.Reason,
		)
		record.ID = DryRunOrderID
		record.DryRun = true
		m.journalOrder(ctx, record)
		return record, nil
	}

	spec := domain.OrderSpec{
		Symbol:           pos.Symbol,
		Side:             pos.Side,
		Action:           domain.ActionSell,
		Quantity:         d.Quantity,
		LimitPriceCents:  limit,
		IdempotencyToken: uuid.NewString(),
	}
	if err := spec.Validate(); err != nil {
		return record, fmt.Errorf("position.PlaceExitOrder: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	id, err := m.account.CreateOrder(cctx, spec)
	cancel()
	if err != nil {
		return record, fmt.Errorf("position.PlaceExitOrder: create order: %w", err)
	}
	record.ID = id
	m.journalOrder(ctx, record)
	if d.EntryCents > 0 {
		m.trackExit(pos, d.Quantity, limit, d.EntryCents)
	}

	slog.Info("exits: EXIT PLACED",
		"id", id,
		"symbol", pos.Symbol,
		"side", pos.Side,
		"qty", d.Quantity,
		"limit", fmt.Sprintf("%d¢", limit),
		"expected_pnl", fmt.Sprintf("$%.2f", (float64(limit)-d.EntryCents)*float64(d.Quantity)/100),
		"reason", d.Reason,
	)
	return record, nil
}

func (m *Manager) trackExit(pos domain.Position, qty, limit int, entry float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[pos.Symbol]
	if !ok {
		p = pendingExit{held: pos.Contracts(), entryCents: entry}
	}
	p.limitCents = (p.limitCents*float64(p.remaining) + float64(limit*qty)) / float64(p.remaining+qty)
	p.remaining += qty
	m.pending[pos.Symbol] = p
}

// SettleFills books realized PnL for tracked exits whose positions shrank
// since the last sweep. An exit with no resting sell left is forgotten, so
// a cancelled exit that gets re-placed is never booked twice.
func (m *Manager) SettleFills(ctx context.Context, positions []domain.Position, orders []domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for symbol, p := range m.pending {
		held := heldContracts(positions, symbol)
		if filled := min(p.held-held, p.remaining); filled > 0 {
			pnl := (p.limitCents - p.entryCents) * float64(filled) / 100
			if m.risk != nil {
				if err := m.risk.UpdateRealizedPnL(ctx, pnl); err != nil {
					slog.Warn("exits: realized pnl not recorded", "symbol", symbol, "err", err)
				}
			}
			slog.Info("exits: exit filled",
				"symbol", symbol,
				"qty", filled,
				"pnl", fmt.Sprintf("$%.2f", pnl),
			)
			p.remaining -= filled
		}
		p.held = held

		if p.remaining <= 0 || !hasRestingSell(symbol, orders) {
			delete(m.pending, symbol)
			continue
		}
		m.pending[symbol] = p
	}
}

// Sweep books fills of earlier exits, then evaluates every open position
// and places the exits that trigger. Failures are logged per position and
// never stop the sweep.
func (m *Manager) Sweep(ctx context.Context, positions []domain.Position, orders []domain.Order) []domain.OrderRecord {
	m.SettleFills(ctx, positions, orders)

	var placed []domain.OrderRecord
	for _, pos := range positions {
		if pos.Contracts() == 0 {
			continue
		}
		d, err := m.EvaluateExit(ctx, pos, orders)
		if err != nil {
			slog.Warn("exits: evaluation failed", "symbol", pos.Symbol, "err", err)
			continue
		}
		if !d.Exit {
			slog.Debug("exits: holding",
				"symbol", pos.Symbol,
				"bid", d.PriceCents,
				"entry", fmt.Sprintf("%.1f", d.EntryCents),
				"pnl_pct", fmt.Sprintf("%.1f%%", d.PnLPct),
			)
			continue
		}
		r, err := m.PlaceExitOrder(ctx, d)
		if err != nil {
			slog.Error("exits: exit order failed", "symbol", pos.Symbol, "reason", d.Reason, "err", err)
			continue
		}
		placed = append(placed, r)
	}
	return placed
}

func (m *Manager) journalOrder(ctx context.Context, r domain.OrderRecord) {
	if m.journal == nil {
		return
	}
	if err := m.journal.SaveOrder(ctx, r); err != nil {
		slog.Warn("exits: journal error", "err", err)
	}
}

// restingSells counts contracts already offered for sale on the same
// symbol and side.
func restingSells(pos domain.Position, orders []domain.Order) int {
	n := 0
	for _, o := range orders {
		if o.Symbol == pos.Symbol && o.Side == pos.Side && o.Action == domain.ActionSell && o.IsOpen() {
			n += o.RemainingCount
		}
	}
	return n
}

func hasRestingSell(symbol string, orders []domain.Order) bool {
	for _, o := range orders {
		if o.Symbol == symbol && o.Action == domain.ActionSell && o.IsOpen() {
			return true
		}
	}
	return false
}

func heldContracts(positions []domain.Position, symbol string) int {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p.Contracts()
		}
	}
	return 0
}
