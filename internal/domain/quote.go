package domain

import "time"

// Probability bounds applied to every implied probability in the system.
const (
	MinProbability = 0.001
	MaxProbability = 0.999
)

// Side is one of the two contract sides of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposite returns the other contract side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Action is the order direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// ClampProbability keeps p inside [MinProbability, MaxProbability].
func ClampProbability(p float64) float64 {
	if p < MinProbability {
		return MinProbability
	}
	if p > MaxProbability {
		return MaxProbability
	}
	return p
}

// ImpliedProbability converts a price in cents (0–100) to a clamped probability.
func ImpliedProbability(priceCents int) float64 {
	return ClampProbability(float64(priceCents) / 100)
}

// ClampPrice keeps a limit price inside the venue's tradable range [1, 99].
func ClampPrice(cents int) int {
	if cents < 1 {
		return 1
	}
	if cents > 99 {
		return 99
	}
	return cents
}

// MarketQuote is the venue's current pricing for one side of a game.
// All prices are integer cents; zero means "not available".
type MarketQuote struct {
	Symbol      string
	EventSymbol string
	Series      string
	Title       string
	Game        GameIdentity

	YesBid    int
	YesAsk    int
	NoBid     int
	NoAsk     int
	LastPrice int

	Status    string
	CloseTime time.Time
	UpdatedAt time.Time
}

// PriceCents is the reference price used for probability comparisons:
// YES ask, then last trade, then YES bid.
func (q MarketQuote) PriceCents() int {
	switch {
	case q.YesAsk > 0:
		return q.YesAsk
	case q.LastPrice > 0:
		return q.LastPrice
	default:
		return q.YesBid
	}
}

// Probability is the clamped implied probability of the YES side.
func (q MarketQuote) Probability() float64 {
	return ImpliedProbability(q.PriceCents())
}

// AskFor returns the best ask for side, deriving it from the opposite bid
// (100 − bid) when the venue did not quote it directly. Zero if unknown.
func (q MarketQuote) AskFor(side Side) int {
	if side == SideYes {
		if q.YesAsk > 0 {
			return q.YesAsk
		}
		return complement(q.NoBid)
	}
	if q.NoAsk > 0 {
		return q.NoAsk
	}
	return complement(q.YesBid)
}

// BidFor returns the best bid for side, deriving it from the opposite ask
// when missing. Zero if unknown.
func (q MarketQuote) BidFor(side Side) int {
	if side == SideYes {
		if q.YesBid > 0 {
			return q.YesBid
		}
		return complement(q.NoAsk)
	}
	if q.NoBid > 0 {
		return q.NoBid
	}
	return complement(q.YesAsk)
}

// LastFor returns the last traded price expressed for side.
func (q MarketQuote) LastFor(side Side) int {
	if side == SideYes {
		return q.LastPrice
	}
	return complement(q.LastPrice)
}

// IsOpen reports whether the market is accepting orders. An empty status is
// treated as open (fixtures and partial payloads).
func (q MarketQuote) IsOpen() bool {
	return q.Status == "" || q.Status == "open" || q.Status == "active"
}

func complement(cents int) int {
	if cents <= 0 || cents >= 100 {
		return 0
	}
	return 100 - cents
}
