package domain

import (
	"fmt"
	"time"
)

// Game is the canonical sporting event behind one or more venue markets.
// The same Game is produced regardless of which side's symbol was parsed.
type Game struct {
	Sport     string // "NBA", "NFL", ...
	Series    string // venue series prefix, e.g. KXNBAGAME
	DateCode  string // venue date token, e.g. 25OCT21
	EventCode string // date token plus the raw team block, e.g. 25OCT21HOUOKC
	Away      string // away team code
	Home      string // home team code
	Scheduled time.Time
	Status    string

	// Placeholder is true when the sport has no abbreviation table and the
	// team codes are unvalidated labels.
	Placeholder bool
}

// ID returns a stable identifier for the event.
func (g Game) ID() string {
	return g.Key()
}

// Key is the side-independent event key: sport, date and the sorted team
// pair. Placeholder games fall back to the raw event code.
func (g Game) Key() string {
	if g.Placeholder {
		return fmt.Sprintf("%s:%s", g.Sport, g.EventCode)
	}
	a, b := g.Away, g.Home
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s:%s-%s", g.Sport, g.DateCode, a, b)
}

// Teams returns "AWAY@HOME" for log output.
func (g Game) Teams() string {
	return g.Away + "@" + g.Home
}

// GameIdentity is a Game seen through one market symbol: SideTeam is the
// team whose win pays YES on that symbol.
type GameIdentity struct {
	Game
	SideTeam string
}

// IsHomeSide reports whether this symbol's YES pays on the home team.
func (id GameIdentity) IsHomeSide() bool {
	return id.SideTeam == id.Home
}

// Opponent returns the team code on the other side of this symbol.
func (id GameIdentity) Opponent() string {
	if id.IsHomeSide() {
		return id.Away
	}
	return id.Home
}

// Valid reports whether the identity carries both teams and a side.
func (id GameIdentity) Valid() bool {
	return id.Away != "" && id.Home != "" && id.SideTeam != ""
}
