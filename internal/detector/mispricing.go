package detector

import (
	"math"
	"sort"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// Result is the output of one mispricing pass.
type Result struct {
	Opportunities []domain.Opportunity // flagged only, best net divergence first
	Comparisons   []domain.Comparison  // every matched game side
}

// gameGroup is the set of quotes sharing one game key, in first-seen order.
type gameGroup struct {
	key    string
	game   domain.GameIdentity
	quotes []domain.MarketQuote
}

// resolvedOdds caches the team codes of a reference record.
type resolvedOdds struct {
	odds       domain.ReferenceOdds
	home, away string
}

// FindOpportunities joins quotes to reference odds by team pair and flags
// sides whose divergence, net of MinEdgeAfterCost, reaches Threshold.
// Quotes must carry a resolved Game.
func (d *Detector) FindOpportunities(quotes []domain.MarketQuote, odds []domain.ReferenceOdds) Result {
	var res Result
	groups := groupByGame(quotes)
	if len(groups) == 0 || len(odds) == 0 {
		return res
	}

	resolved := make([]resolvedOdds, 0, len(odds))
	for _, o := range odds {
		ro := resolvedOdds{odds: o}
		ro.home, _ = d.resolver.ResolveTeamName(o.Sport, o.HomeTeam)
		ro.away, _ = d.resolver.ResolveTeamName(o.Sport, o.AwayTeam)
		resolved = append(resolved, ro)
	}

	for _, g := range groups {
		match, fuzzy, ok := matchOdds(g.game, resolved)
		if !ok {
			continue
		}

		seen := make(map[string]bool, 2)
		for _, q := range g.quotes {
			team := q.Game.SideTeam
			if seen[team] {
				continue
			}
			refProb, ok := match.probFor(team)
			if !ok {
				continue
			}
			seen[team] = true

			quoteProb := q.Probability()
			divergence := math.Abs(quoteProb-refProb) * 100
			net := divergence - d.cfg.MinEdgeAfterCost
			flagged := net >= d.cfg.Threshold

			res.Comparisons = append(res.Comparisons, domain.Comparison{
				GameKey:    g.key,
				Game:       q.Game,
				Symbol:     q.Symbol,
				SideTeam:   team,
				QuoteProb:  quoteProb,
				RefProb:    refProb,
				Divergence: divergence,
				Flagged:    flagged,
				Fuzzy:      fuzzy,
			})

			if !flagged {
				continue
			}
			dir := domain.Overvalues
			if quoteProb < refProb {
				dir = domain.Undervalues
			}
			res.Opportunities = append(res.Opportunities, domain.Opportunity{
				Game:          q.Game,
				Symbol:        q.Symbol,
				SideTeam:      team,
				QuoteProb:     quoteProb,
				RefProb:       refProb,
				Divergence:    divergence,
				NetDivergence: net,
				Direction:     dir,
			})
		}
	}

	sort.SliceStable(res.Opportunities, func(i, j int) bool {
		return res.Opportunities[i].NetDivergence > res.Opportunities[j].NetDivergence
	})
	return res
}

// matchOdds prefers an exact (away, home) match over an order-independent
// one; within each class the first record wins.
func matchOdds(game domain.GameIdentity, odds []resolvedOdds) (resolvedOdds, bool, bool) {
	if game.Placeholder {
		return resolvedOdds{}, false, false
	}
	for _, o := range odds {
		if o.home == game.Home && o.away == game.Away && o.home != "" {
			return o, false, true
		}
	}
	for _, o := range odds {
		if o.home == "" || o.away == "" {
			continue
		}
		if (o.home == game.Away && o.away == game.Home) || (o.home == game.Home && o.away == game.Away) {
			return o, true, true
		}
	}
	return resolvedOdds{}, false, false
}

func (o resolvedOdds) probFor(team string) (float64, bool) {
	switch team {
	case o.home:
		return o.odds.HomeProb, true
	case o.away:
		return o.odds.AwayProb, true
	}
	return 0, false
}

// groupByGame buckets quotes by game key, keeping first-seen order.
func groupByGame(quotes []domain.MarketQuote) []gameGroup {
	index := make(map[string]int)
	var groups []gameGroup
	for _, q := range quotes {
		if !q.Game.Valid() {
			continue
		}
		key := q.Game.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, gameGroup{key: key, game: q.Game})
		}
		groups[i].quotes = append(groups[i].quotes, q)
	}
	return groups
}
