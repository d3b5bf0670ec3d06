package engine

import (
	"log/slog"
	"strings"
)

// pipelineStats counts placement outcomes for one series.
type pipelineStats struct {
	placed, existing, pending, capital, risk, failed, other int
}

func (s *pipelineStats) record(r PlaceResult) {
	if r.Placed {
		s.placed++
		return
	}
	s.recordReason(r.Reason)
}

func (s *pipelineStats) recordReason(reason string) {
	switch {
	case reason == ReasonExistingPosition:
		s.existing++
	case reason == ReasonPendingOrder:
		s.pending++
	case reason == ReasonCapitalExhausted:
		s.capital++
	case strings.HasPrefix(reason, ReasonRiskLimit):
		s.risk++
	case reason == ReasonSubmitFailed:
		s.failed++
	default:
		s.other++
	}
}

func (s *pipelineStats) total() int {
	return s.placed + s.existing + s.pending + s.capital + s.risk + s.failed + s.other
}

func (s *pipelineStats) log(series string) {
	if s.total() == 0 {
		return
	}
	slog.Info("engine: placement pipeline",
		"series", series,
		"skip_existing", s.existing,
		"skip_pending", s.pending,
		"skip_capital", s.capital,
		"skip_risk", s.risk,
		"failed", s.failed,
		"skip_other", s.other,
		"placed", s.placed,
	)
}
