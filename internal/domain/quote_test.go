package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpliedProbability_ClampedAndMonotonic(t *testing.T) {
	prev := -1.0
	for cents := -5; cents <= 105; cents++ {
		p := ImpliedProbability(cents)
		assert.GreaterOrEqual(t, p, MinProbability, "cents=%d", cents)
		assert.LessOrEqual(t, p, MaxProbability, "cents=%d", cents)
		assert.GreaterOrEqual(t, p, prev, "not monotonic at cents=%d", cents)
		prev = p
	}
	assert.InDelta(t, 0.001, ImpliedProbability(0), 1e-9)
	assert.InDelta(t, 0.999, ImpliedProbability(100), 1e-9)
	assert.InDelta(t, 0.42, ImpliedProbability(42), 1e-9)
}

func TestClampPrice(t *testing.T) {
	assert.Equal(t, 1, ClampPrice(0))
	assert.Equal(t, 1, ClampPrice(-3))
	assert.Equal(t, 57, ClampPrice(57))
	assert.Equal(t, 99, ClampPrice(100))
}

func TestMarketQuote_PriceCentsFallback(t *testing.T) {
	assert.Equal(t, 44, MarketQuote{YesAsk: 44, LastPrice: 40, YesBid: 41}.PriceCents())
	assert.Equal(t, 40, MarketQuote{LastPrice: 40, YesBid: 41}.PriceCents())
	assert.Equal(t, 41, MarketQuote{YesBid: 41}.PriceCents())
	assert.Equal(t, 0, MarketQuote{}.PriceCents())
	assert.InDelta(t, MinProbability, MarketQuote{}.Probability(), 1e-9)
}

func TestMarketQuote_DerivedSidePrices(t *testing.T) {
	q := MarketQuote{YesBid: 40, YesAsk: 43}

	assert.Equal(t, 43, q.AskFor(SideYes))
	assert.Equal(t, 40, q.BidFor(SideYes))
	// NO side derived from the complement of the YES book
	assert.Equal(t, 60, q.AskFor(SideNo))
	assert.Equal(t, 57, q.BidFor(SideNo))

	q.NoAsk = 59
	assert.Equal(t, 59, q.AskFor(SideNo), "direct quote wins over derivation")

	assert.Equal(t, 0, MarketQuote{}.AskFor(SideNo))
	assert.Equal(t, 0, MarketQuote{}.LastFor(SideNo))
	assert.Equal(t, 65, MarketQuote{LastPrice: 35}.LastFor(SideNo))
}

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, SideNo, SideYes.Opposite())
	assert.Equal(t, SideYes, SideNo.Opposite())
}

func TestAmericanToProbability(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"even +100", 100, 0.5},
		{"underdog +150", 150, 0.4},
		{"favorite -150", -150, 0.6},
		{"favorite -110", -110, 0.5238},
		{"heavy favorite -400", -400, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmericanToProbability(tt.american)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}

	_, err := AmericanToProbability(0)
	assert.Error(t, err)
}

func TestNewReferenceOdds_RemovesVig(t *testing.T) {
	o, err := NewReferenceOdds(ReferenceOdds{HomeAmerican: -110, AwayAmerican: -110}, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, o.HomeProb, 1e-9)
	assert.InDelta(t, 0.5, o.AwayProb, 1e-9)

	raw, err := NewReferenceOdds(ReferenceOdds{HomeAmerican: -110, AwayAmerican: -110}, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.5238, raw.HomeProb, 0.0001)

	_, err = NewReferenceOdds(ReferenceOdds{HomeAmerican: 0, AwayAmerican: 120}, true)
	assert.Error(t, err)
}

func TestGame_KeyIsSideIndependent(t *testing.T) {
	a := GameIdentity{Game: Game{Sport: "NBA", DateCode: "25OCT21", Away: "HOU", Home: "OKC"}, SideTeam: "OKC"}
	b := a
	b.SideTeam = "HOU"
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "NBA:25OCT21:HOU-OKC", a.Key())
	assert.True(t, a.IsHomeSide())
	assert.Equal(t, "HOU", a.Opponent())
	assert.False(t, b.IsHomeSide())
}

func TestOpportunity_BuySideAndPrice(t *testing.T) {
	under := Opportunity{QuoteProb: 0.30, RefProb: 0.45, Direction: Undervalues}
	assert.Equal(t, SideYes, under.BuySide())
	assert.Equal(t, 30, under.PriceCents())

	over := Opportunity{QuoteProb: 0.70, RefProb: 0.55, Direction: Overvalues}
	assert.Equal(t, SideNo, over.BuySide())
	assert.Equal(t, 30, over.PriceCents())
}

func TestSpreadExtreme_AsOpportunity(t *testing.T) {
	high := SpreadExtreme{Quote: MarketQuote{Symbol: "A"}, Probability: 0.9, Distance: 0.4}
	assert.Equal(t, SideYes, high.AsOpportunity().BuySide())

	low := SpreadExtreme{Quote: MarketQuote{Symbol: "B"}, Probability: 0.1, Distance: 0.4}
	assert.Equal(t, SideNo, low.AsOpportunity().BuySide())
	assert.Equal(t, 90, low.AsOpportunity().PriceCents())
}

func TestOrderSpec_Validate(t *testing.T) {
	ok := OrderSpec{Symbol: "X", Side: SideYes, Action: ActionBuy, Quantity: 3, LimitPriceCents: 40, IdempotencyToken: "t"}
	require.NoError(t, ok.Validate())
	assert.InDelta(t, 1.20, ok.Notional(), 1e-9)

	bad := ok
	bad.LimitPriceCents = 100
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Quantity = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Side = "maybe"
	assert.Error(t, bad.Validate())
}

func TestPosition_SideFollowsSign(t *testing.T) {
	now := time.Now()
	yes := NewPosition("X", 5, 40, 0, now)
	assert.Equal(t, SideYes, yes.Side)
	assert.Equal(t, 5, yes.Contracts())

	no := NewPosition("X", -4, 0, 240, now)
	assert.Equal(t, SideNo, no.Side)
	assert.Equal(t, 4, no.Contracts())
	assert.InDelta(t, 60, no.EntryPriceCents(), 1e-9)
}

func TestDailyStats_ForDay(t *testing.T) {
	yesterday := DailyStats{Date: "2026-10-14", Trades: 7, Notional: 312.5, RealizedPnL: -20}
	now := time.Date(2026, 10, 15, 0, 0, 1, 0, time.UTC)

	fresh, reset := yesterday.ForDay(now)
	assert.True(t, reset)
	assert.Equal(t, "2026-10-15", fresh.Date)
	assert.Zero(t, fresh.Trades)
	assert.Zero(t, fresh.Notional)
	assert.Zero(t, fresh.RealizedPnL)

	same, reset := fresh.ForDay(now.Add(23 * time.Hour))
	assert.False(t, reset)
	assert.Equal(t, fresh, same)
}
