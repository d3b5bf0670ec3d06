package engine

import "github.com/alejandrodnm/oddsbot/internal/domain"

// Session is the process-scoped ledger: dollars committed per strategy and
// the games already entered during this run. It is not persisted.
type Session struct {
	caps   map[domain.Strategy]float64
	used   map[domain.Strategy]float64
	traded map[string]bool
}

// NewSession creates a ledger with the given per-strategy caps. A strategy
// without a cap has no capital.
func NewSession(caps map[domain.Strategy]float64) *Session {
	c := make(map[domain.Strategy]float64, len(caps))
	for k, v := range caps {
		c[k] = v
	}
	return &Session{
		caps:   c,
		used:   make(map[domain.Strategy]float64),
		traded: make(map[string]bool),
	}
}

// Remaining is the capital still available to strategy.
func (s *Session) Remaining(strategy domain.Strategy) float64 {
	left := s.caps[strategy] - s.used[strategy]
	if left < 0 {
		return 0
	}
	return left
}

// Used is the capital committed so far by strategy.
func (s *Session) Used(strategy domain.Strategy) float64 {
	return s.used[strategy]
}

// Register commits amount dollars to strategy.
func (s *Session) Register(strategy domain.Strategy, amount float64) {
	s.used[strategy] += amount
}

// MarkTraded records that gameKey has been entered this run.
func (s *Session) MarkTraded(gameKey string) {
	s.traded[gameKey] = true
}

// Traded reports whether gameKey was entered this run.
func (s *Session) Traded(gameKey string) bool {
	return s.traded[gameKey]
}

// TradedCount is the number of games entered this run.
func (s *Session) TradedCount() int {
	return len(s.traded)
}
