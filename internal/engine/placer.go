package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/alejandrodnm/oddsbot/internal/identity"
	"github.com/alejandrodnm/oddsbot/internal/ports"
	"github.com/alejandrodnm/oddsbot/internal/risk"
)

// DryRunOrderID is returned for orders that were only logged.
const DryRunOrderID = "dry-run"

const minStake = 1.0

// Rejection reasons returned in PlaceResult.Reason.
const (
	ReasonExistingPosition = "existing position"
	ReasonPendingOrder     = "pending order"
	ReasonCapitalExhausted = "capital exhausted"
	ReasonRiskLimit        = "risk limit"
	ReasonSubmitFailed     = "submission failed"
)

// PlacerConfig holds sizing and execution settings.
type PlacerConfig struct {
	Live                 bool
	MaxBet               float64 // stake used when the caller gives none
	MaxPerMarket         float64 // 0 disables the per-market cap
	DefaultStakePerPoint float64 // dollars per point of divergence when MaxBet is 0
	TakeProfitTicks      int     // spread-farming companion sell, cents above entry
	TakeProfitMultiplier float64 // spread-farming companion sell, multiple of entry
	RequestTimeout       time.Duration
}

// TradeRequest is one directional entry candidate.
type TradeRequest struct {
	Strategy     domain.Strategy
	Opportunity  domain.Opportunity
	Quote        domain.MarketQuote // cached quote, used when the refresh fails
	Positions    []domain.Position
	Orders       []domain.Order // cached orders, used when the refresh fails
	Balance      float64
	DesiredStake float64
}

// BundleRequest is one two-leg arbitrage candidate.
type BundleRequest struct {
	Bundle       domain.ArbitrageBundle
	Positions    []domain.Position
	Orders       []domain.Order
	Balance      float64
	DesiredStake float64 // total across both legs
}

// PlaceResult is the outcome of a placement. Business rejections set
// Reason and leave Err nil.
type PlaceResult struct {
	Placed     bool
	OrderID    string
	Reason     string
	Contracts  int
	PriceCents int
	Stake      float64 // sized stake before rounding to contracts
	Notional   float64 // contracts × price
	Record     domain.OrderRecord
	Err        error
}

// BundleResult reports both legs of a bundle placement.
type BundleResult struct {
	Placed  bool // at least one leg placed
	Partial bool // the first leg placed and the second did not
	Reason  string
	Legs    []PlaceResult
}

// Placer turns opportunities into orders, one entry per game per run.
type Placer struct {
	cfg      PlacerConfig
	account  ports.Account
	quotes   ports.QuoteSource
	risk     *risk.Service
	journal  ports.Journal
	resolver *identity.Resolver
	now      func() time.Time
}

// NewPlacer creates a Placer. journal may be nil.
func NewPlacer(cfg PlacerConfig, account ports.Account, quotes ports.QuoteSource, riskSvc *risk.Service, journal ports.Journal, resolver *identity.Resolver) *Placer {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Placer{
		cfg:      cfg,
		account:  account,
		quotes:   quotes,
		risk:     riskSvc,
		journal:  journal,
		resolver: resolver,
		now:      time.Now,
	}
}

// leg is a single buy the placer will size and submit.
type leg struct {
	strategy  domain.Strategy
	gameKey   string
	symbol    string
	side      domain.Side
	quote     domain.MarketQuote
	fallback  int // cached price of side, cents
	stake     float64
	positions int
	orders    []domain.Order
	balance   float64
}

// PlaceTrade runs the entry pipeline for one opportunity.
func (p *Placer) PlaceTrade(ctx context.Context, session *Session, req TradeRequest) PlaceResult {
	opp := req.Opportunity
	gameKey := p.resolver.GameKey(opp.Symbol)

	orders, reason := p.gate(ctx, session, gameKey, []string{opp.Symbol}, req.Positions, req.Orders)
	if reason != "" {
		p.logReject(req.Strategy, opp.Symbol, reason)
		return PlaceResult{Reason: reason}
	}

	stake := req.DesiredStake
	if stake <= 0 {
		stake = p.cfg.MaxBet
	}
	if stake <= 0 {
		stake = opp.Divergence * p.cfg.DefaultStakePerPoint
	}

	return p.submit(ctx, session, leg{
		strategy:  req.Strategy,
		gameKey:   gameKey,
		symbol:    opp.Symbol,
		side:      opp.BuySide(),
		quote:     req.Quote,
		fallback:  opp.PriceCents(),
		stake:     stake,
		positions: openPositions(req.Positions),
		orders:    orders,
		balance:   req.Balance,
	})
}

// PlaceBundle buys YES on both sides of a game, home leg first, each leg
// sized at half the stake.
func (p *Placer) PlaceBundle(ctx context.Context, session *Session, req BundleRequest) BundleResult {
	b := req.Bundle
	gameKey := p.resolver.GameKey(b.Home.Symbol)

	orders, reason := p.gate(ctx, session, gameKey, []string{b.Home.Symbol, b.Away.Symbol}, req.Positions, req.Orders)
	if reason != "" {
		p.logReject(domain.StrategyBundle, b.Home.Symbol, reason)
		return BundleResult{Reason: reason}
	}

	stake := req.DesiredStake
	if stake <= 0 {
		stake = p.cfg.MaxBet
	}
	if stake <= 0 {
		stake = b.EdgePct * p.cfg.DefaultStakePerPoint
	}

	var res BundleResult
	balance := req.Balance
	positions := openPositions(req.Positions)
	for i, q := range []domain.MarketQuote{b.Home, b.Away} {
		r := p.submit(ctx, session, leg{
			strategy:  domain.StrategyBundle,
			gameKey:   gameKey,
			symbol:    q.Symbol,
			side:      domain.SideYes,
			quote:     q,
			fallback:  q.PriceCents(),
			stake:     stake / 2,
			positions: positions,
			orders:    orders,
			balance:   balance,
		})
		res.Legs = append(res.Legs, r)

		if !r.Placed {
			if i == 0 {
				res.Reason = r.Reason
				return res
			}
			res.Partial = true
			slog.Warn("placer: bundle second leg failed, holding one side",
				"game", gameKey,
				"symbol", q.Symbol,
				"reason", r.Reason,
				"err", r.Err,
			)
			return res
		}
		res.Placed = true
		balance -= r.Notional
		positions++
	}
	return res
}

// gate applies the once-per-game rules and returns the freshest order
// snapshot it could get.
func (p *Placer) gate(ctx context.Context, session *Session, gameKey string, symbols []string, positions []domain.Position, cached []domain.Order) ([]domain.Order, string) {
	if session.Traded(gameKey) {
		return cached, ReasonExistingPosition
	}

	orders := cached
	if p.account != nil {
		cctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		fresh, err := p.account.GetOrders(cctx, "")
		cancel()
		if err != nil {
			slog.Debug("placer: order refresh failed, using snapshot", "err", err)
		} else {
			orders = fresh
		}
	}

	for _, pos := range positions {
		if pos.Contracts() == 0 {
			continue
		}
		if p.sameGame(pos.Symbol, gameKey, symbols) {
			return orders, ReasonExistingPosition
		}
	}

	for _, o := range orders {
		if !o.IsOpen() {
			continue
		}
		if p.sameGame(o.Symbol, gameKey, symbols) {
			return orders, ReasonPendingOrder
		}
	}
	return orders, ""
}

func (p *Placer) sameGame(symbol, gameKey string, symbols []string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return p.resolver.GameKey(symbol) == gameKey
}

// submit prices, sizes, risk-checks and places one buy.
func (p *Placer) submit(ctx context.Context, session *Session, l leg) PlaceResult {
	price := p.discoverPrice(ctx, l)

	stake := math.Max(l.stake, minStake)
	if p.cfg.MaxPerMarket > 0 {
		stake = math.Min(stake, p.cfg.MaxPerMarket)
	}
	stake = math.Min(stake, session.Remaining(l.strategy))
	if stake < minStake {
		p.logReject(l.strategy, l.symbol, ReasonCapitalExhausted)
		return PlaceResult{Reason: ReasonCapitalExhausted, PriceCents: price}
	}

	contracts := int(math.Floor(stake / (float64(price) / 100)))
	if contracts < 1 {
		contracts = 1
	}
	notional := float64(contracts) * float64(price) / 100

	res := PlaceResult{Contracts: contracts, PriceCents: price, Stake: stake, Notional: notional}

	if p.risk != nil {
		d := p.risk.CanPlaceTrade(ctx, notional, l.balance, l.positions, l.orders)
		if !d.Allowed {
			res.Reason = ReasonRiskLimit + ": " + d.Reason
			p.logReject(l.strategy, l.symbol, res.Reason)
			return res
		}
	}

	record := domain.OrderRecord{
		Strategy:   l.strategy,
		GameKey:    l.gameKey,
		Symbol:     l.symbol,
		Side:       l.side,
		Action:     domain.ActionBuy,
		Quantity:   contracts,
		PriceCents: price,
		Stake:      notional,
		CreatedAt:  p.now(),
	}

	if !p.cfg.Live {
		slog.Info("placer: DRY RUN would buy",
			"strategy", l.strategy,
			"symbol", l.symbol,
			"side", l.side,
			"contracts", contracts,
			"price", fmt.Sprintf("%d¢", price),
			"notional", fmt.Sprintf("$%.2f", notional),
		)
		session.MarkTraded(l.gameKey)
		session.Register(l.strategy, notional)
		record.ID = DryRunOrderID
		record.DryRun = true
		p.journalOrder(ctx, record)
		res.Placed = true
		res.OrderID = DryRunOrderID
		res.Record = record
		return res
	}

	spec := domain.OrderSpec{
		Symbol:           l.symbol,
		Side:             l.side,
		Action:           domain.ActionBuy,
		Quantity:         contracts,
		LimitPriceCents:  price,
		IdempotencyToken: uuid.NewString(),
	}
	id, err := p.create(ctx, spec)
	if err != nil {
		slog.Error("placer: order submission failed",
			"strategy", l.strategy,
			"symbol", l.symbol,
			"side", l.side,
			"contracts", contracts,
			"price", price,
			"err", err,
		)
		res.Reason = ReasonSubmitFailed
		res.Err = err
		return res
	}

	session.MarkTraded(l.gameKey)
	session.Register(l.strategy, notional)
	if p.risk != nil {
		if err := p.risk.RecordTrade(ctx, notional); err != nil {
			slog.Warn("placer: risk counters not updated", "err", err)
		}
	}
	record.ID = id
	p.journalOrder(ctx, record)

	slog.Info("placer: ORDER PLACED",
		"strategy", l.strategy,
		"id", id,
		"symbol", l.symbol,
		"side", l.side,
		"contracts", contracts,
		"price", fmt.Sprintf("%d¢", price),
		"notional", fmt.Sprintf("$%.2f", notional),
		"strategy_left", fmt.Sprintf("$%.2f", session.Remaining(l.strategy)),
	)

	if l.strategy == domain.StrategySpread {
		p.placeTakeProfit(ctx, l, contracts, price)
	}

	res.Placed = true
	res.OrderID = id
	res.Record = record
	return res
}

// discoverPrice refreshes the quote and picks the side ask, then the side
// bid, then the last trade, then the cached opportunity price.
func (p *Placer) discoverPrice(ctx context.Context, l leg) int {
	q := l.quote
	if p.quotes != nil {
		cctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		fresh, err := p.quotes.FetchQuote(cctx, l.symbol)
		cancel()
		if err != nil {
			slog.Debug("placer: quote refresh failed, using cached quote", "symbol", l.symbol, "err", err)
		} else {
			q = fresh
		}
	}

	price := q.AskFor(l.side)
	if price <= 0 {
		price = q.BidFor(l.side)
	}
	if price <= 0 {
		price = q.LastFor(l.side)
	}
	if price <= 0 {
		price = l.fallback
	}
	return domain.ClampPrice(price)
}

// TakeProfitPrice is the companion sell price for a spread-farming entry:
// the nearer of entry+ticks and entry×multiplier, inside [1, 99].
func TakeProfitPrice(entryCents, ticks int, multiplier float64) int {
	tp := entryCents + ticks
	if multiplier > 0 {
		if m := int(math.Round(float64(entryCents) * multiplier)); ticks <= 0 || m < tp {
			tp = m
		}
	}
	return domain.ClampPrice(tp)
}

func (p *Placer) placeTakeProfit(ctx context.Context, l leg, contracts, entry int) {
	tp := TakeProfitPrice(entry, p.cfg.TakeProfitTicks, p.cfg.TakeProfitMultiplier)
	if tp <= entry {
		slog.Info("placer: no take-profit room above entry", "symbol", l.symbol, "entry", entry)
		return
	}
	spec := domain.OrderSpec{
		Symbol:           l.symbol,
		Side:             l.side,
		Action:           domain.ActionSell,
		Quantity:         contracts,
		LimitPriceCents:  tp,
		IdempotencyToken: uuid.NewString(),
	}
	id, err := p.create(ctx, spec)
	if err != nil {
		slog.Warn("placer: take-profit order failed, entry kept",
			"symbol", l.symbol,
			"tp", tp,
			"err", err,
		)
		return
	}
	p.journalOrder(ctx, domain.OrderRecord{
		ID:         id,
		Strategy:   l.strategy,
		GameKey:    l.gameKey,
		Symbol:     l.symbol,
		Side:       l.side,
		Action:     domain.ActionSell,
		Quantity:   contracts,
		PriceCents: tp,
		Reason:     "take-profit companion",
		CreatedAt:  p.now(),
	})
	slog.Info("placer: take-profit resting", "symbol", l.symbol, "id", id, "price", fmt.Sprintf("%d¢", tp))
}

func (p *Placer) create(ctx context.Context, spec domain.OrderSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", fmt.Errorf("engine.Placer: %w", err)
	}
	cctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()
	id, err := p.account.CreateOrder(cctx, spec)
	if err != nil {
		return "", fmt.Errorf("engine.Placer: create order: %w", err)
	}
	return id, nil
}

func (p *Placer) journalOrder(ctx context.Context, r domain.OrderRecord) {
	if p.journal == nil {
		return
	}
	if err := p.journal.SaveOrder(ctx, r); err != nil {
		slog.Warn("placer: journal error", "err", err)
	}
}

func (p *Placer) logReject(strategy domain.Strategy, symbol, reason string) {
	slog.Info("placer: skipped", "strategy", strategy, "symbol", symbol, "reason", reason)
}

func openPositions(positions []domain.Position) int {
	n := 0
	for _, pos := range positions {
		if pos.Contracts() > 0 {
			n++
		}
	}
	return n
}
