package identity

import (
	"regexp"
	"sort"
	"strings"
)

var eventToken = regexp.MustCompile(`^(\d{2}[A-Z]{3}\d{2})(\d{4})?([A-Z]+)$`)

// Sport describes how one league's markets are named on the venue and how
// the reference feed names the same league.
type Sport struct {
	Name     string   // canonical league label, e.g. "NBA"
	Series   []string // venue series prefixes carrying game-winner markets
	OddsKey  string   // reference feed sport key
	Teams    map[string]string
	Aliases  map[string]string
	HasClock bool // date token carries a 4-digit start time (HHMM)
}

// HasTable reports whether team codes can be validated for this sport.
func (s Sport) HasTable() bool {
	return len(s.Teams) > 0
}

// DefaultSports is the declarative table of supported leagues. Sports
// without a team table still resolve, with placeholder labels.
func DefaultSports() []Sport {
	return []Sport{
		{Name: "NBA", Series: []string{"KXNBAGAME"}, OddsKey: "basketball_nba", Teams: nbaTeams, Aliases: nbaAliases},
		{Name: "NFL", Series: []string{"KXNFLGAME"}, OddsKey: "americanfootball_nfl", Teams: nflTeams, Aliases: nflAliases},
		{Name: "MLB", Series: []string{"KXMLBGAME"}, OddsKey: "baseball_mlb", Teams: mlbTeams, Aliases: mlbAliases, HasClock: true},
		{Name: "NHL", Series: []string{"KXNHLGAME"}, OddsKey: "icehockey_nhl", Teams: nhlTeams, Aliases: nhlAliases},
		{Name: "NCAAF", Series: []string{"KXNCAAFGAME"}, OddsKey: "americanfootball_ncaaf"},
		{Name: "NCAAB", Series: []string{"KXNCAAMBGAME"}, OddsKey: "basketball_ncaab"},
		{Name: "WNBA", Series: []string{"KXWNBAGAME"}, OddsKey: "basketball_wnba"},
	}
}

// splitToken breaks a date+team token into its date, start time and team
// block. Only sports with HasClock may carry the start time.
func (s Sport) splitToken(token string) (date, clock, block string, ok bool) {
	m := eventToken.FindStringSubmatch(token)
	if m == nil || (m[2] != "" && !s.HasClock) {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// codeMatch ranks how a raw code reached its canonical team code.
type codeMatch int

const (
	matchPrefix codeMatch = iota
	matchAlias
	matchExact
)

// resolveCode maps a raw code to the canonical team code: exact table code,
// then the override table, then a unique prefix of a table code.
func (s Sport) resolveCode(raw string) (string, bool) {
	code, _, ok := s.lookupCode(raw)
	return code, ok
}

func (s Sport) lookupCode(raw string) (string, codeMatch, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", 0, false
	}
	if _, ok := s.Teams[code]; ok {
		return code, matchExact, true
	}
	if canon, ok := s.Aliases[code]; ok {
		return canon, matchAlias, true
	}
	if len(code) < 2 {
		return "", 0, false
	}
	match := ""
	for c := range s.Teams {
		if strings.HasPrefix(c, code) {
			if match != "" {
				return "", 0, false // ambiguous prefix
			}
			match = c
		}
	}
	return match, matchPrefix, match != ""
}

// codes returns the table codes sorted, for deterministic iteration.
func (s Sport) codes() []string {
	out := make([]string, 0, len(s.Teams))
	for c := range s.Teams {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// nameTokens splits a full team name into the city part and the nickname
// (last word).
func nameTokens(full string) (city, nickname string) {
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return "", full
	}
	return full[:i], full[i+1:]
}
