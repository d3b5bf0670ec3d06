// Package identity resolves opaque venue market symbols into canonical game
// identities.
//
// Symbol grammar: SERIES-YYMONDD[HHMM]TEAMBLOCK-SIDE, e.g.
//
//	KXNBAGAME-25OCT21HOUOKC-OKC
//	KXMLBGAME-25OCT151905LADMIL-LAD
//
// The team block is the away code followed by the home code, concatenated
// without a separator; the trailing segment is the team the market pays YES on.
package identity

import (
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// MarketRef carries every anchor the venue gives us for one market.
type MarketRef struct {
	Symbol      string
	EventSymbol string
	Title       string
}

// parser is one strategy in the fallback chain.
type parser struct {
	name string
	fn   func(r *Resolver, ref MarketRef) (domain.GameIdentity, bool)
}

// Resolver turns market references into game identities using a
// declarative per-sport table.
type Resolver struct {
	sports   []Sport
	bySeries map[string]int
	byName   map[string]int
	parsers  []parser
}

// NewResolver builds a resolver over the given sports table.
func NewResolver(sports []Sport) *Resolver {
	r := &Resolver{
		sports:   sports,
		bySeries: make(map[string]int),
		byName:   make(map[string]int),
	}
	for i, s := range sports {
		r.byName[strings.ToUpper(s.Name)] = i
		for _, prefix := range s.Series {
			r.bySeries[strings.ToUpper(prefix)] = i
		}
	}
	r.parsers = []parser{
		{name: "event", fn: (*Resolver).parseEvent},
		{name: "symbol", fn: (*Resolver).parseSymbol},
		{name: "title", fn: (*Resolver).parseTitle},
		{name: "placeholder", fn: (*Resolver).parsePlaceholder},
	}
	return r
}

// Sports returns the configured sports table.
func (r *Resolver) Sports() []Sport {
	return r.sports
}

// Sport looks a sport up by its league label.
func (r *Resolver) Sport(name string) (Sport, bool) {
	i, ok := r.byName[strings.ToUpper(name)]
	if !ok {
		return Sport{}, false
	}
	return r.sports[i], true
}

// SportForSymbol finds the sport whose series prefix starts the symbol.
func (r *Resolver) SportForSymbol(symbol string) (Sport, bool) {
	series, _, _ := strings.Cut(strings.ToUpper(symbol), "-")
	i, ok := r.bySeries[series]
	if !ok {
		return Sport{}, false
	}
	return r.sports[i], true
}

// ParseSymbol resolves a bare symbol.
func (r *Resolver) ParseSymbol(symbol string) (domain.GameIdentity, bool) {
	return r.Resolve(MarketRef{Symbol: symbol})
}

// Resolve runs the parser chain: event identifier, symbol, title, then
// placeholder labels for sports without a team table.
func (r *Resolver) Resolve(ref MarketRef) (domain.GameIdentity, bool) {
	ref.Symbol = strings.ToUpper(strings.TrimSpace(ref.Symbol))
	ref.EventSymbol = strings.ToUpper(strings.TrimSpace(ref.EventSymbol))
	for _, p := range r.parsers {
		if id, ok := p.fn(r, ref); ok {
			return id, true
		}
	}
	return domain.GameIdentity{}, false
}

// GameKey returns the side-independent key for symbol. The key comes from
// the date+team token alone, so every side market of one game shares it.
// Unresolvable symbols fall back to their shared event prefix (everything
// before the trailing side segment).
func (r *Resolver) GameKey(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if sport, ok := r.SportForSymbol(symbol); ok && sport.HasTable() {
		if parts := strings.Split(symbol, "-"); len(parts) >= 2 {
			if g, _, ok := gameFromToken(sport, parts[0], parts[1]); ok {
				return g.Key()
			}
		}
	}
	if id, ok := r.ParseSymbol(symbol); ok {
		return id.Key()
	}
	return eventPrefix(symbol)
}

// ResolveTeamName maps a reference-feed team name (full name, code,
// nickname or city) to the sport's team code.
func (r *Resolver) ResolveTeamName(sportName, name string) (string, bool) {
	sport, ok := r.Sport(sportName)
	if !ok || !sport.HasTable() {
		return "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	upper := strings.ToUpper(name)
	if _, ok := sport.Teams[upper]; ok {
		return upper, true
	}
	if canon, ok := sport.Aliases[upper]; ok {
		return canon, true
	}
	mentions := teamMentions(sport, name)
	if len(mentions) == 1 {
		return mentions[0], true
	}
	return "", false
}

// --- parsers ---

func (r *Resolver) parseEvent(ref MarketRef) (domain.GameIdentity, bool) {
	if ref.EventSymbol == "" {
		return domain.GameIdentity{}, false
	}
	sport, ok := r.SportForSymbol(ref.EventSymbol)
	if !ok || !sport.HasTable() {
		return domain.GameIdentity{}, false
	}
	parts := strings.Split(ref.EventSymbol, "-")
	if len(parts) < 2 {
		return domain.GameIdentity{}, false
	}
	return fromToken(sport, parts[0], parts[1], sideSegment(ref.Symbol))
}

func (r *Resolver) parseSymbol(ref MarketRef) (domain.GameIdentity, bool) {
	sport, ok := r.SportForSymbol(ref.Symbol)
	if !ok || !sport.HasTable() {
		return domain.GameIdentity{}, false
	}
	parts := strings.Split(ref.Symbol, "-")
	if len(parts) < 3 {
		return domain.GameIdentity{}, false
	}
	return fromToken(sport, parts[0], parts[1], parts[len(parts)-1])
}

func (r *Resolver) parseTitle(ref MarketRef) (domain.GameIdentity, bool) {
	if ref.Title == "" {
		return domain.GameIdentity{}, false
	}
	anchor := ref.Symbol
	if anchor == "" {
		anchor = ref.EventSymbol
	}
	sport, ok := r.SportForSymbol(anchor)
	if !ok || !sport.HasTable() {
		return domain.GameIdentity{}, false
	}
	teams := teamMentions(sport, ref.Title)
	if len(teams) < 2 {
		return domain.GameIdentity{}, false
	}
	away, home := teams[0], teams[1]

	side, ok := sport.resolveCode(sideSegment(ref.Symbol))
	if !ok || (side != away && side != home) {
		return domain.GameIdentity{}, false
	}

	series, _, _ := strings.Cut(anchor, "-")
	g := domain.Game{Sport: sport.Name, Series: series, Away: away, Home: home}
	if token := tokenOf(ref); token != "" {
		if date, clock, _, ok := sport.splitToken(token); ok {
			g.DateCode = date + clock
			g.EventCode = token
			g.Scheduled = parseDate(date, clock)
		}
	}
	return domain.GameIdentity{Game: g, SideTeam: side}, true
}

func (r *Resolver) parsePlaceholder(ref MarketRef) (domain.GameIdentity, bool) {
	anchor := ref.Symbol
	if anchor == "" {
		anchor = ref.EventSymbol
	}
	sport, ok := r.SportForSymbol(anchor)
	if !ok || sport.HasTable() {
		return domain.GameIdentity{}, false
	}
	token := tokenOf(ref)
	date, clock, block, ok := sport.splitToken(token)
	if !ok {
		return domain.GameIdentity{}, false
	}
	side := sideSegment(ref.Symbol)

	away, home := "TEAM1", "TEAM2"
	switch {
	case side != "" && len(block) > len(side) && strings.HasPrefix(block, side):
		away, home = side, block[len(side):]
	case side != "" && len(block) > len(side) && strings.HasSuffix(block, side):
		away, home = block[:len(block)-len(side)], side
	}
	if side == "" {
		side = away
	}

	series, _, _ := strings.Cut(anchor, "-")
	return domain.GameIdentity{
		Game: domain.Game{
			Sport:       sport.Name,
			Series:      series,
			DateCode:    date + clock,
			EventCode:   token,
			Away:        away,
			Home:        home,
			Scheduled:   parseDate(date, clock),
			Placeholder: true,
		},
		SideTeam: side,
	}, true
}

// --- helpers ---

type split struct {
	away, home string
	rawA, rawB string
}

// fromToken resolves the date+team block token for a sport with a table
// and maps the side segment onto one of the two teams.
func fromToken(sport Sport, series, token, side string) (domain.GameIdentity, bool) {
	if side == "" {
		return domain.GameIdentity{}, false
	}
	g, c, ok := gameFromToken(sport, series, token)
	if !ok {
		return domain.GameIdentity{}, false
	}
	sideTeam, ok := c.sideOf(sport, side)
	if !ok {
		return domain.GameIdentity{}, false
	}
	return domain.GameIdentity{Game: g, SideTeam: sideTeam}, true
}

func gameFromToken(sport Sport, series, token string) (domain.Game, split, bool) {
	date, clock, block, ok := sport.splitToken(token)
	if !ok {
		return domain.Game{}, split{}, false
	}
	c, ok := bestSplit(sport, block)
	if !ok {
		return domain.Game{}, split{}, false
	}
	return domain.Game{
		Sport:     sport.Name,
		Series:    series,
		DateCode:  date + clock,
		EventCode: token,
		Away:      c.away,
		Home:      c.home,
		Scheduled: parseDate(date, clock),
	}, c, true
}

// bestSplit cuts the team block into away and home codes without looking at
// the side segment. Table codes beat override aliases, which beat unique
// prefixes; ties go to the shorter away code.
func bestSplit(sport Sport, block string) (split, bool) {
	var best split
	bestScore := -1
	for i := 2; i <= 4; i++ {
		rest := len(block) - i
		if rest < 2 || rest > 4 {
			continue
		}
		a, kindA, okA := sport.lookupCode(block[:i])
		b, kindB, okB := sport.lookupCode(block[i:])
		if !okA || !okB || a == b {
			continue
		}
		if score := int(kindA) + int(kindB); score > bestScore {
			best = split{away: a, home: b, rawA: block[:i], rawB: block[i:]}
			bestScore = score
		}
	}
	return best, bestScore >= 0
}

// sideOf maps the trailing side segment onto one half of the split.
func (c split) sideOf(sport Sport, side string) (string, bool) {
	resolved, ok := sport.resolveCode(side)
	switch {
	case side == c.rawA || (ok && resolved == c.away):
		return c.away, true
	case side == c.rawB || (ok && resolved == c.home):
		return c.home, true
	}
	// Short side codes the table cannot resolve on their own ("LA").
	matchA := strings.HasPrefix(c.away, side)
	matchB := strings.HasPrefix(c.home, side)
	if matchA == matchB {
		return "", false
	}
	if matchA {
		return c.away, true
	}
	return c.home, true
}

type mention struct {
	pos  int
	code string
}

// teamMentions returns the team codes mentioned in text, ordered by first
// appearance. Full names win; nicknames and cities only count when they are
// unique within the sport.
func teamMentions(sport Sport, text string) []string {
	lower := strings.ToLower(text)
	cityCount := make(map[string]int)
	nickCount := make(map[string]int)
	for _, full := range sport.Teams {
		city, nick := nameTokens(full)
		cityCount[strings.ToLower(city)]++
		nickCount[strings.ToLower(nick)]++
	}

	var found []mention
	for _, code := range sport.codes() {
		full := sport.Teams[code]
		pos := strings.Index(lower, strings.ToLower(full))
		if pos < 0 {
			city, nick := nameTokens(full)
			nick, city = strings.ToLower(nick), strings.ToLower(city)
			if nickCount[nick] == 1 {
				pos = wordIndex(lower, nick)
			}
			if pos < 0 && city != "" && cityCount[city] == 1 {
				pos = wordIndex(lower, city)
			}
		}
		if pos >= 0 {
			found = append(found, mention{pos: pos, code: code})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m.code)
	}
	return out
}

// wordIndex finds word in text only at word boundaries.
func wordIndex(text, word string) int {
	if word == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		if (i == 0 || !isLetter(text[i-1])) && (end == len(text) || !isLetter(text[end])) {
			return i
		}
		from = i + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func sideSegment(symbol string) string {
	parts := strings.Split(symbol, "-")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-1]
}

func eventPrefix(symbol string) string {
	parts := strings.Split(symbol, "-")
	if len(parts) < 3 {
		return symbol
	}
	return strings.Join(parts[:len(parts)-1], "-")
}

// tokenOf returns the date+team token from the event symbol, or the symbol.
func tokenOf(ref MarketRef) string {
	for _, s := range []string{ref.EventSymbol, ref.Symbol} {
		parts := strings.Split(s, "-")
		if len(parts) >= 2 {
			return parts[1]
		}
	}
	return ""
}

func parseDate(date, clock string) time.Time {
	layout, value := "06Jan02", date
	if clock != "" {
		layout, value = "06Jan021504", date+clock
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
