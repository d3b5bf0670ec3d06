package domain

import "time"

const dateLayout = "2006-01-02"

// DailyStats are the durable risk counters for one UTC calendar day.
type DailyStats struct {
	Date        string  `json:"date"` // YYYY-MM-DD, UTC
	Trades      int     `json:"trades"`
	Notional    float64 `json:"notional"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// UTCDate formats t as the UTC calendar date used by DailyStats.
func UTCDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ForDay returns s if it belongs to the UTC day of now, or fresh zeroed
// counters otherwise. The second return is true when a reset happened.
func (s DailyStats) ForDay(now time.Time) (DailyStats, bool) {
	today := UTCDate(now)
	if s.Date == today {
		return s, false
	}
	return DailyStats{Date: today}, true
}
