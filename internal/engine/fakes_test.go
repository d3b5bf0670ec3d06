package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

type fakeAccount struct {
	balance      float64
	balanceErr   error
	positions    []domain.Position
	positionsErr error
	orders       []domain.Order
	ordersErr    error
	created      []domain.OrderSpec
	createErr    func(domain.OrderSpec) error
}

func (f *fakeAccount) GetBalance(_ context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeAccount) GetPositions(_ context.Context) ([]domain.Position, error) {
	return f.positions, f.positionsErr
}

func (f *fakeAccount) GetOrders(_ context.Context, _ domain.OrderStatus) ([]domain.Order, error) {
	return f.orders, f.ordersErr
}

func (f *fakeAccount) CreateOrder(_ context.Context, spec domain.OrderSpec) (string, error) {
	if f.createErr != nil {
		if err := f.createErr(spec); err != nil {
			return "", err
		}
	}
	f.created = append(f.created, spec)
	return fmt.Sprintf("ord-%d", len(f.created)), nil
}

type fakeQuotes struct {
	quotes    map[string]domain.MarketQuote
	seriesErr map[string]error
}

func newFakeQuotes(qs ...domain.MarketQuote) *fakeQuotes {
	f := &fakeQuotes{quotes: make(map[string]domain.MarketQuote), seriesErr: make(map[string]error)}
	for _, q := range qs {
		f.quotes[q.Symbol] = q
	}
	return f
}

func (f *fakeQuotes) FetchQuotes(_ context.Context, series string) ([]domain.MarketQuote, error) {
	if err := f.seriesErr[series]; err != nil {
		return nil, err
	}
	var out []domain.MarketQuote
	for _, q := range f.quotes {
		if strings.HasPrefix(q.Symbol, series+"-") {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuotes) FetchQuote(_ context.Context, symbol string) (domain.MarketQuote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return domain.MarketQuote{}, errors.New("not found")
	}
	return q, nil
}

type fakeOdds struct {
	odds  map[string][]domain.ReferenceOdds
	calls int
}

func (f *fakeOdds) FetchOdds(_ context.Context, sport string) ([]domain.ReferenceOdds, error) {
	f.calls++
	odds, ok := f.odds[sport]
	if !ok {
		return nil, errors.New("no odds")
	}
	out := make([]domain.ReferenceOdds, len(odds))
	copy(out, odds)
	return out, nil
}

type memStats struct {
	stats domain.DailyStats
}

func (m *memStats) Load(_ context.Context) (domain.DailyStats, error) { return m.stats, nil }

func (m *memStats) Save(_ context.Context, s domain.DailyStats) error {
	m.stats = s
	return nil
}

type recordingNotifier struct {
	reports []domain.CycleReport
}

func (n *recordingNotifier) NotifyCycle(_ context.Context, r domain.CycleReport) error {
	n.reports = append(n.reports, r)
	return nil
}

type memJournal struct {
	comparisons []domain.Comparison
	orders      []domain.OrderRecord
}

func (j *memJournal) SaveComparisons(_ context.Context, _ time.Time, rows []domain.Comparison) error {
	j.comparisons = append(j.comparisons, rows...)
	return nil
}

func (j *memJournal) SaveOrder(_ context.Context, o domain.OrderRecord) error {
	j.orders = append(j.orders, o)
	return nil
}

func (j *memJournal) RecentOrders(_ context.Context, limit int) ([]domain.OrderRecord, error) {
	if limit > len(j.orders) {
		limit = len(j.orders)
	}
	return j.orders[:limit], nil
}

func (j *memJournal) Close() error { return nil }
