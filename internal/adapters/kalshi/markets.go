package kalshi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

const (
	marketsPageSize = 200
	maxPages        = 20
)

// FetchQuotes returns every open market in series. Game identity is left
// for the caller to resolve.
func (c *Client) FetchQuotes(ctx context.Context, series string) ([]domain.MarketQuote, error) {
	var quotes []domain.MarketQuote
	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("series_ticker", series)
		q.Set("status", "open")
		q.Set("limit", strconv.Itoa(marketsPageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp marketsResponse
		if err := c.do(ctx, request{method: http.MethodGet, path: "/markets", query: q, signed: c.HasCredentials()}, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.FetchQuotes: %s: %w", series, err)
		}
		for _, m := range resp.Markets {
			quotes = append(quotes, toQuote(m, series))
		}

		if resp.Cursor == "" || len(resp.Markets) == 0 {
			break
		}
		cursor = resp.Cursor
	}
	return quotes, nil
}

// FetchQuote returns the current quote for one market ticker.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (domain.MarketQuote, error) {
	var resp marketResponse
	path := "/markets/" + url.PathEscape(symbol)
	if err := c.do(ctx, request{method: http.MethodGet, path: path, signed: c.HasCredentials()}, &resp); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("kalshi.FetchQuote: %s: %w", symbol, err)
	}
	series, _, _ := strings.Cut(resp.Market.Ticker, "-")
	return toQuote(resp.Market, series), nil
}

func toQuote(m marketDTO, series string) domain.MarketQuote {
	return domain.MarketQuote{
		Symbol:      m.Ticker,
		EventSymbol: m.EventTicker,
		Series:      series,
		Title:       m.Title,
		YesBid:      intOr(m.YesBid, 0),
		YesAsk:      intOr(m.YesAsk, 0),
		NoBid:       intOr(m.NoBid, 0),
		NoAsk:       intOr(m.NoAsk, 0),
		LastPrice:   intOr(m.LastPrice, 0),
		Status:      m.Status,
		CloseTime:   parseTime(m.CloseTime),
		UpdatedAt:   time.Now(),
	}
}
