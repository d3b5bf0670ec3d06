package identity_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver() *identity.Resolver {
	return identity.NewResolver(identity.DefaultSports())
}

func TestParseSymbol_NBAHomeSide(t *testing.T) {
	r := newResolver()

	id, ok := r.ParseSymbol("KXNBAGAME-25OCT21HOUOKC-OKC")
	require.True(t, ok)
	assert.Equal(t, "NBA", id.Sport)
	assert.Equal(t, "KXNBAGAME", id.Series)
	assert.Equal(t, "25OCT21", id.DateCode)
	assert.Equal(t, "HOU", id.Away)
	assert.Equal(t, "OKC", id.Home)
	assert.Equal(t, "OKC", id.SideTeam)
	assert.True(t, id.IsHomeSide())
	assert.Equal(t, time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC), id.Scheduled)
}

func TestParseSymbol_MLBWithStartTime(t *testing.T) {
	r := newResolver()

	id, ok := r.ParseSymbol("KXMLBGAME-25OCT151905LADMIL-LAD")
	require.True(t, ok)
	assert.Equal(t, "LAD", id.Away)
	assert.Equal(t, "MIL", id.Home)
	assert.Equal(t, "LAD", id.SideTeam)
	assert.Equal(t, "25OCT151905", id.DateCode)
	assert.Equal(t, time.Date(2025, 10, 15, 19, 5, 0, 0, time.UTC), id.Scheduled)
}

func TestParseSymbol_TwoLetterCodes(t *testing.T) {
	r := newResolver()

	id, ok := r.ParseSymbol("KXNFLGAME-25OCT19NEKC-KC")
	require.True(t, ok)
	assert.Equal(t, "NE", id.Away)
	assert.Equal(t, "KC", id.Home)
	assert.Equal(t, "KC", id.SideTeam)
}

func TestParseSymbol_CollisionOverride(t *testing.T) {
	r := newResolver()

	// "LA" is ambiguous between LAR and LAC; the override table decides.
	id, ok := r.ParseSymbol("KXNFLGAME-25OCT20LAJAC-LA")
	require.True(t, ok)
	assert.Equal(t, "LAR", id.Away)
	assert.Equal(t, "JAX", id.Home)
	assert.Equal(t, "LAR", id.SideTeam)
}

func TestParseSymbol_UniquePrefixFallback(t *testing.T) {
	r := newResolver()

	id, ok := r.ParseSymbol("KXNBAGAME-25OCT21OKSAS-OK")
	require.True(t, ok)
	assert.Equal(t, "OKC", id.Away)
	assert.Equal(t, "SAS", id.Home)
	assert.Equal(t, "OKC", id.SideTeam)
}

func TestParseSymbol_Unresolvable(t *testing.T) {
	r := newResolver()

	_, ok := r.ParseSymbol("KXFOOGAME-25OCT21AAABBB-AAA")
	assert.False(t, ok, "unknown sport prefix")

	_, ok = r.ParseSymbol("KXNBAGAME-25OCT21ZZZYYY-ZZZ")
	assert.False(t, ok, "teams not in the NBA table")

	_, ok = r.ParseSymbol("KXNBAGAME")
	assert.False(t, ok)

	_, ok = r.ParseSymbol("")
	assert.False(t, ok)
}

func TestResolve_EventIdentifierFirst(t *testing.T) {
	r := newResolver()

	id, ok := r.Resolve(identity.MarketRef{
		Symbol:      "KXNBAGAME-LEGACY-OKC",
		EventSymbol: "KXNBAGAME-25OCT21HOUOKC",
	})
	require.True(t, ok)
	assert.Equal(t, "HOU", id.Away)
	assert.Equal(t, "OKC", id.Home)
	assert.Equal(t, "OKC", id.SideTeam)
}

func TestResolve_TitleFallback(t *testing.T) {
	r := newResolver()

	id, ok := r.Resolve(identity.MarketRef{
		Symbol: "KXNBAGAME-XYZ-OKC",
		Title:  "Houston at Oklahoma City Winner?",
	})
	require.True(t, ok)
	assert.Equal(t, "HOU", id.Away)
	assert.Equal(t, "OKC", id.Home)
	assert.Equal(t, "OKC", id.SideTeam)
	assert.False(t, id.Placeholder)
}

func TestResolve_PlaceholderForSportsWithoutTable(t *testing.T) {
	r := newResolver()

	a, ok := r.ParseSymbol("KXNCAAFGAME-25OCT18OSUMICH-OSU")
	require.True(t, ok)
	assert.True(t, a.Placeholder)
	assert.Equal(t, "OSU", a.Away)
	assert.Equal(t, "MICH", a.Home)

	b, ok := r.ParseSymbol("KXNCAAFGAME-25OCT18OSUMICH-MICH")
	require.True(t, ok)
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "MICH", b.SideTeam)

	c, ok := r.ParseSymbol("KXNCAAFGAME-25OCT18OSUMICH-TIE")
	require.True(t, ok, "placeholder never fails on an anchored sport")
	assert.Equal(t, "TEAM1", c.Away)
	assert.Equal(t, a.Key(), c.Key())
}

func TestGameKey_SameEventBothSides(t *testing.T) {
	r := newResolver()

	pairs := [][2]string{
		{"KXNBAGAME-25OCT21HOUOKC-OKC", "KXNBAGAME-25OCT21HOUOKC-HOU"},
		{"KXNFLGAME-25OCT19NEKC-KC", "KXNFLGAME-25OCT19NEKC-NE"},
		{"KXNFLGAME-25OCT20LAJAC-LA", "KXNFLGAME-25OCT20LAJAC-JAC"},
		{"KXMLBGAME-25OCT151905LADMIL-LAD", "KXMLBGAME-25OCT151905LADMIL-MIL"},
		{"KXNHLGAME-25OCT14LAVGK-LA", "KXNHLGAME-25OCT14LAVGK-VGK"},
		{"KXNCAAFGAME-25OCT18OSUMICH-OSU", "KXNCAAFGAME-25OCT18OSUMICH-MICH"},
		{"KXFOOGAME-25OCT21AAABBB-AAA", "KXFOOGAME-25OCT21AAABBB-BBB"},
	}
	for _, p := range pairs {
		t.Run(p[0], func(t *testing.T) {
			assert.Equal(t, r.GameKey(p[0]), r.GameKey(p[1]))
		})
	}

	assert.NotEqual(t,
		r.GameKey("KXNBAGAME-25OCT21HOUOKC-OKC"),
		r.GameKey("KXNBAGAME-25OCT22HOUOKC-OKC"),
		"different dates are different events")
	assert.Equal(t, "KXFOOGAME-25OCT21AAABBB", r.GameKey("KXFOOGAME-25OCT21AAABBB-AAA"))
}

func TestGameKey_PrefixSplitDoesNotDependOnSide(t *testing.T) {
	r := newResolver()

	// "BUFLA" also reads as BU(F)+FLA; both sides must land on BUF@LA.
	buf, ok := r.ParseSymbol("KXNHLGAME-25OCT21BUFLA-BUF")
	require.True(t, ok)
	la, ok := r.ParseSymbol("KXNHLGAME-25OCT21BUFLA-LA")
	require.True(t, ok)

	assert.Equal(t, "BUF", buf.Away)
	assert.Equal(t, "LA", buf.Home)
	assert.Equal(t, buf.Game, la.Game)
	assert.Equal(t, "BUF", buf.SideTeam)
	assert.Equal(t, "LA", la.SideTeam)
	assert.Equal(t, "NHL:25OCT21:BUF-LA", r.GameKey("KXNHLGAME-25OCT21BUFLA-BUF"))
	assert.Equal(t, r.GameKey("KXNHLGAME-25OCT21BUFLA-BUF"), r.GameKey("KXNHLGAME-25OCT21BUFLA-LA"))
}

func TestGameKey_EveryTeamPair(t *testing.T) {
	r := newResolver()

	for _, sport := range r.Sports() {
		if !sport.HasTable() {
			continue
		}
		series := sport.Series[0]
		t.Run(sport.Name, func(t *testing.T) {
			for away := range sport.Teams {
				for home := range sport.Teams {
					if away == home {
						continue
					}
					event := series + "-25OCT21" + away + home
					awaySym, homeSym := event+"-"+away, event+"-"+home

					a, ok := r.ParseSymbol(awaySym)
					require.True(t, ok, awaySym)
					h, ok := r.ParseSymbol(homeSym)
					require.True(t, ok, homeSym)

					assert.Equal(t, away, a.Away, awaySym)
					assert.Equal(t, home, a.Home, awaySym)
					assert.Equal(t, away, a.SideTeam, awaySym)
					assert.Equal(t, home, h.SideTeam, homeSym)
					assert.Equal(t, a.Game, h.Game, event)
					assert.Equal(t, r.GameKey(awaySym), r.GameKey(homeSym), event)
					assert.Equal(t, a.Key(), r.GameKey(awaySym), event)
				}
			}
		})
	}
}

func TestParseSymbol_StartTimeOnlyWhereTheSportHasOne(t *testing.T) {
	r := newResolver()

	_, ok := r.ParseSymbol("KXNBAGAME-25OCT211930HOUOKC-OKC")
	assert.False(t, ok, "NBA tokens carry no start time")

	_, ok = r.ParseSymbol("KXMLBGAME-25OCT151905LADMIL-MIL")
	assert.True(t, ok)
}

func TestResolveTeamName(t *testing.T) {
	r := newResolver()

	tests := []struct {
		sport, name, want string
		ok                bool
	}{
		{"NBA", "Houston Rockets", "HOU", true},
		{"NBA", "Oklahoma City Thunder", "OKC", true},
		{"NBA", "LA Clippers", "LAC", true},
		{"NBA", "GS", "GSW", true},
		{"NBA", "okc", "OKC", true},
		{"NBA", "Los Angeles", "", false},
		{"NFL", "Kansas City Chiefs", "KC", true},
		{"MLB", "Chicago White Sox", "CWS", true},
		{"NCAAF", "Ohio State Buckeyes", "", false},
		{"CRICKET", "Anyone", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.sport+"/"+tt.name, func(t *testing.T) {
			got, ok := r.ResolveTeamName(tt.sport, tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
