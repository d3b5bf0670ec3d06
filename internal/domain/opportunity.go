package domain

import "math"

// Strategy identifies one of the competing trading approaches. Each has an
// independent capital cap.
type Strategy string

const (
	StrategyMispricing Strategy = "mispricing"
	StrategyBundle     Strategy = "bundle_arb"
	StrategySpread     Strategy = "spread_farming"
)

// Direction says how the venue prices a side relative to the reference.
type Direction string

const (
	Overvalues  Direction = "overvalues"
	Undervalues Direction = "undervalues"
)

// Opportunity is one side of a game whose venue price diverges from the
// reference probability.
type Opportunity struct {
	Game      GameIdentity
	Symbol    string
	SideTeam  string
	QuoteProb float64
	RefProb   float64

	Divergence    float64 // |quote − ref| × 100, percentage points
	NetDivergence float64 // Divergence − assumed execution cost
	Direction     Direction
}

// BuySide is the contract side to buy: YES when the venue undervalues the
// team, NO when it overvalues it.
func (o Opportunity) BuySide() Side {
	if o.Direction == Undervalues {
		return SideYes
	}
	return SideNo
}

// PriceCents is the cached venue price of the side being bought.
func (o Opportunity) PriceCents() int {
	yes := int(math.Round(o.QuoteProb * 100))
	if o.BuySide() == SideYes {
		return yes
	}
	return 100 - yes
}

// Comparison is one row of the full venue-vs-reference table, emitted for
// every matched game side whether flagged or not.
type Comparison struct {
	GameKey    string
	Game       GameIdentity
	Symbol     string
	SideTeam   string
	QuoteProb  float64
	RefProb    float64
	Divergence float64
	Flagged    bool
	Fuzzy      bool // joined through the order-independent fallback
}

// ArbitrageBundle pairs the two sides of one game.
type ArbitrageBundle struct {
	GameKey      string
	Game         GameIdentity
	Home         MarketQuote
	Away         MarketQuote
	CombinedProb float64
	EdgePct      float64
}

// SpreadExtreme is a near-certain quote used for spread farming.
type SpreadExtreme struct {
	Quote       MarketQuote
	Probability float64
	Distance    float64 // |p − 0.5|
}

// FavoredSide is the near-certain side: YES for high probabilities, NO for low.
func (s SpreadExtreme) FavoredSide() Side {
	if s.Probability >= 0.5 {
		return SideYes
	}
	return SideNo
}

// AsOpportunity expresses the extreme as a directional opportunity so it
// can flow through the order placer.
func (s SpreadExtreme) AsOpportunity() Opportunity {
	dir := Undervalues
	if s.FavoredSide() == SideNo {
		dir = Overvalues
	}
	return Opportunity{
		Game:       s.Quote.Game,
		Symbol:     s.Quote.Symbol,
		SideTeam:   s.Quote.Game.SideTeam,
		QuoteProb:  s.Probability,
		RefProb:    s.Probability,
		Divergence: s.Distance * 100,
		Direction:  dir,
	}
}
