package detector

import (
	"math"
	"sort"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// FindBundles pairs the home and away quotes of each game and keeps the
// pairs whose combined YES probability is below 1 − FeeBuffer.
//
// Best-available prices stand in for two-sided depth; independent fill
// risk on the two legs is not modelled.
func (d *Detector) FindBundles(quotes []domain.MarketQuote) []domain.ArbitrageBundle {
	var bundles []domain.ArbitrageBundle
	for _, g := range groupByGame(quotes) {
		var home, away *domain.MarketQuote
		for i := range g.quotes {
			q := &g.quotes[i]
			switch {
			case q.Game.SideTeam == q.Game.Home && home == nil:
				home = q
			case q.Game.SideTeam == q.Game.Away && away == nil:
				away = q
			}
		}
		if home == nil || away == nil {
			continue
		}
		if home.PriceCents() <= 0 || away.PriceCents() <= 0 {
			continue
		}

		sum := home.Probability() + away.Probability()
		limit := 1 - d.cfg.FeeBuffer
		if sum >= limit {
			continue
		}
		bundles = append(bundles, domain.ArbitrageBundle{
			GameKey:      g.key,
			Game:         g.game,
			Home:         *home,
			Away:         *away,
			CombinedProb: sum,
			EdgePct:      (limit - sum) * 100,
		})
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].EdgePct > bundles[j].EdgePct
	})
	return bundles
}

// FindExtremes returns quotes at or beyond the extreme band, furthest from
// 0.5 first.
func (d *Detector) FindExtremes(quotes []domain.MarketQuote) []domain.SpreadExtreme {
	var out []domain.SpreadExtreme
	for _, q := range quotes {
		if q.PriceCents() <= 0 {
			continue
		}
		p := q.Probability()
		if p > d.cfg.ExtremeLow && p < d.cfg.ExtremeHigh {
			continue
		}
		out = append(out, domain.SpreadExtreme{
			Quote:       q,
			Probability: p,
			Distance:    math.Abs(p - 0.5),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance > out[j].Distance
	})
	return out
}
