// Package engine runs the trading cycle: fetch quotes and odds, detect
// opportunities, place entries under the per-run capital ledger, then sweep
// exits.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/detector"
	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/alejandrodnm/oddsbot/internal/identity"
	"github.com/alejandrodnm/oddsbot/internal/ports"
	"github.com/alejandrodnm/oddsbot/internal/position"
)

// Config holds the cycle settings.
type Config struct {
	Series         []string
	Interval       time.Duration
	MinBalance     float64 // entries are skipped below this balance
	DryRunBalance  float64 // balance assumed when a dry run cannot read the account
	SpreadFarming  bool    // trade extremes when a series has no bundle
	RequestTimeout time.Duration
	Live           bool
}

// Engine wires the detectors, placer and position manager to the venue.
type Engine struct {
	cfg       Config
	resolver  *identity.Resolver
	detector  *detector.Detector
	quotes    ports.QuoteSource
	odds      ports.OddsSource
	account   ports.Account
	placer    *Placer
	positions *position.Manager
	journal   ports.Journal
	notifier  ports.Notifier
	session   *Session
}

// New creates an Engine. odds, journal and notifier may be nil.
func New(
	cfg Config,
	resolver *identity.Resolver,
	det *detector.Detector,
	quotes ports.QuoteSource,
	odds ports.OddsSource,
	account ports.Account,
	placer *Placer,
	positions *position.Manager,
	journal ports.Journal,
	notifier ports.Notifier,
	session *Session,
) *Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Engine{
		cfg:       cfg,
		resolver:  resolver,
		detector:  det,
		quotes:    quotes,
		odds:      odds,
		account:   account,
		placer:    placer,
		positions: positions,
		journal:   journal,
		notifier:  notifier,
		session:   session,
	}
}

// Session returns the run's capital ledger.
func (e *Engine) Session() *Session {
	return e.session
}

// Run executes cycles every Interval until ctx is cancelled. With a zero
// interval it runs a single cycle.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine: starting",
		"series", len(e.cfg.Series),
		"interval", e.cfg.Interval,
		"live", e.cfg.Live,
	)

	if _, err := e.RunOnce(ctx); err != nil {
		slog.Error("engine: cycle failed", "err", err)
		if e.cfg.Interval <= 0 {
			return err
		}
	}
	if e.cfg.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: stopped")
			return nil
		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				slog.Error("engine: cycle failed", "err", err)
			}
		}
	}
}

// cycleState is the account snapshot carried through one cycle.
type cycleState struct {
	balance      float64
	positions    []domain.Position
	positionsErr error // entries and exits need a known book
	orders       []domain.Order
	odds         map[string][]domain.ReferenceOdds
}

// RunOnce executes one full cycle. Series are processed sequentially; a
// failing series is skipped and recorded in the report.
func (e *Engine) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	report := domain.CycleReport{StartedAt: time.Now(), Live: e.cfg.Live}

	st, err := e.snapshot(ctx)
	if err != nil {
		return report, err
	}
	report.Balance = st.balance
	if st.positionsErr != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("positions: %v", st.positionsErr))
	}

	for _, series := range e.cfg.Series {
		if ctx.Err() != nil {
			break
		}
		e.runSeries(ctx, series, st, &report)
	}

	if e.positions != nil && ctx.Err() == nil && st.positionsErr == nil {
		exits := e.positions.Sweep(ctx, st.positions, st.orders)
		report.Orders = append(report.Orders, exits...)
	}

	if e.journal != nil && len(report.Comparisons) > 0 {
		if err := e.journal.SaveComparisons(ctx, report.StartedAt, report.Comparisons); err != nil {
			slog.Warn("engine: journal error", "err", err)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	if e.notifier != nil {
		if err := e.notifier.NotifyCycle(ctx, report); err != nil {
			slog.Warn("engine: notifier error", "err", err)
		}
	}

	slog.Info("engine: cycle complete",
		"comparisons", len(report.Comparisons),
		"opportunities", report.Opportunities,
		"bundles", len(report.Bundles),
		"orders", len(report.Orders),
		"rejections", report.Rejections,
		"errors", len(report.Errors),
		"balance", fmt.Sprintf("$%.2f", st.balance),
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

func (e *Engine) snapshot(ctx context.Context) (*cycleState, error) {
	st := &cycleState{odds: make(map[string][]domain.ReferenceOdds)}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	balance, err := e.account.GetBalance(cctx)
	cancel()
	if err != nil {
		if e.cfg.Live {
			return nil, fmt.Errorf("engine.RunOnce: balance: %w", err)
		}
		slog.Warn("engine: balance unavailable, using dry-run balance",
			"balance", fmt.Sprintf("$%.2f", e.cfg.DryRunBalance),
			"err", err,
		)
		st.balance = e.cfg.DryRunBalance
		return st, nil
	}
	st.balance = balance

	cctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
	st.positions, err = e.account.GetPositions(cctx)
	cancel()
	if err != nil {
		slog.Warn("engine: positions unavailable, entries and exits skipped", "err", err)
		st.positionsErr = err
	}

	cctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
	st.orders, err = e.account.GetOrders(cctx, domain.OrderResting)
	cancel()
	if err != nil {
		slog.Warn("engine: open orders unavailable", "err", err)
	}
	return st, nil
}

func (e *Engine) runSeries(ctx context.Context, series string, st *cycleState, report *domain.CycleReport) {
	sport, ok := e.resolver.SportForSymbol(series)
	if !ok {
		slog.Warn("engine: unknown series, skipped", "series", series)
		report.Errors = append(report.Errors, fmt.Sprintf("%s: unknown series", series))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	raw, err := e.quotes.FetchQuotes(cctx, series)
	cancel()
	if err != nil {
		slog.Warn("engine: quotes unavailable, series skipped", "series", series, "err", err)
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", series, err))
		return
	}

	quotes := e.resolve(raw)
	bySymbol := make(map[string]domain.MarketQuote, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q
	}

	res := e.detector.FindOpportunities(quotes, e.oddsFor(ctx, sport, st))
	bundles := e.detector.FindBundles(quotes)
	extremes := e.detector.FindExtremes(quotes)

	report.Comparisons = append(report.Comparisons, res.Comparisons...)
	report.Opportunities += len(res.Opportunities)
	report.Bundles = append(report.Bundles, bundles...)
	report.Extremes = append(report.Extremes, extremes...)

	slog.Info("engine: series scanned",
		"series", series,
		"quotes", len(raw),
		"resolved", len(quotes),
		"compared", len(res.Comparisons),
		"flagged", len(res.Opportunities),
		"bundles", len(bundles),
		"extremes", len(extremes),
	)

	if st.balance < e.cfg.MinBalance {
		slog.Warn("engine: balance below minimum, entries skipped",
			"balance", fmt.Sprintf("$%.2f", st.balance),
			"min", fmt.Sprintf("$%.2f", e.cfg.MinBalance),
		)
		return
	}
	if st.positionsErr != nil {
		return
	}

	var stats pipelineStats
	defer stats.log(series)

	for _, opp := range res.Opportunities {
		r := e.placer.PlaceTrade(ctx, e.session, TradeRequest{
			Strategy:    domain.StrategyMispricing,
			Opportunity: opp,
			Quote:       bySymbol[opp.Symbol],
			Positions:   st.positions,
			Orders:      st.orders,
			Balance:     st.balance,
		})
		e.collect(r, st, report, &stats)
	}

	if len(bundles) > 0 {
		for _, b := range bundles {
			br := e.placer.PlaceBundle(ctx, e.session, BundleRequest{
				Bundle:    b,
				Positions: st.positions,
				Orders:    st.orders,
				Balance:   st.balance,
			})
			if len(br.Legs) == 0 {
				stats.recordReason(br.Reason)
				report.Rejections++
			}
			for _, r := range br.Legs {
				e.collect(r, st, report, &stats)
			}
		}
		return
	}

	if !e.cfg.SpreadFarming {
		return
	}
	for _, x := range extremes {
		r := e.placer.PlaceTrade(ctx, e.session, TradeRequest{
			Strategy:    domain.StrategySpread,
			Opportunity: x.AsOpportunity(),
			Quote:       x.Quote,
			Positions:   st.positions,
			Orders:      st.orders,
			Balance:     st.balance,
		})
		e.collect(r, st, report, &stats)
	}
}

func (e *Engine) collect(r PlaceResult, st *cycleState, report *domain.CycleReport, stats *pipelineStats) {
	stats.record(r)
	if r.Placed {
		report.Orders = append(report.Orders, r.Record)
		st.balance -= r.Notional
		return
	}
	if r.Err != nil {
		report.Errors = append(report.Errors, r.Err.Error())
		return
	}
	report.Rejections++
}

// resolve attaches a GameIdentity to each open quote and drops the rest.
func (e *Engine) resolve(raw []domain.MarketQuote) []domain.MarketQuote {
	out := make([]domain.MarketQuote, 0, len(raw))
	for _, q := range raw {
		if !q.IsOpen() {
			continue
		}
		id, ok := e.resolver.Resolve(identity.MarketRef{
			Symbol:      q.Symbol,
			EventSymbol: q.EventSymbol,
			Title:       q.Title,
		})
		if !ok {
			slog.Debug("engine: unresolvable market dropped", "symbol", q.Symbol)
			continue
		}
		q.Game = id
		out = append(out, q)
	}
	return out
}

// oddsFor fetches reference odds once per sport per cycle. A failed fetch is
// cached as empty so the cycle continues without mispricing.
func (e *Engine) oddsFor(ctx context.Context, sport identity.Sport, st *cycleState) []domain.ReferenceOdds {
	if e.odds == nil || sport.OddsKey == "" {
		return nil
	}
	if odds, ok := st.odds[sport.Name]; ok {
		return odds
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	odds, err := e.odds.FetchOdds(cctx, sport.OddsKey)
	cancel()
	if err != nil {
		slog.Warn("engine: reference odds unavailable, mispricing skipped", "sport", sport.Name, "err", err)
		st.odds[sport.Name] = nil
		return nil
	}
	for i := range odds {
		odds[i].Sport = sport.Name
	}
	st.odds[sport.Name] = odds
	return odds
}
