package kalshi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/oddsbot/internal/domain"
)

// GetBalance returns the available cash balance in dollars.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/portfolio/balance", signed: true}, &resp); err != nil {
		return 0, fmt.Errorf("kalshi.GetBalance: %w", err)
	}
	if resp.Balance == nil {
		return 0, fmt.Errorf("kalshi.GetBalance: balance missing from response")
	}
	return float64(*resp.Balance) / 100, nil
}

// GetPositions returns every market position with a nonzero quantity.
// Kalshi reports exposure rather than an average price, so entry is
// derived from total cost over quantity.
func (c *Client) GetPositions(ctx context.Context) ([]domain.Position, error) {
	var out []domain.Position
	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(marketsPageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp positionsResponse
		if err := c.do(ctx, request{method: http.MethodGet, path: "/portfolio/positions", query: q, signed: true}, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.GetPositions: %w", err)
		}
		for _, p := range resp.MarketPositions {
			if p.Position == 0 {
				continue
			}
			out = append(out, domain.NewPosition(
				p.Ticker,
				p.Position,
				0,
				float64(int64Or(p.MarketExposure, 0)),
				parseTime(p.LastUpdatedTS),
			))
		}

		if resp.Cursor == "" || len(resp.MarketPositions) == 0 {
			break
		}
		cursor = resp.Cursor
	}
	return out, nil
}

// GetOrders returns orders with the given status, or all orders when
// status is empty.
func (c *Client) GetOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(marketsPageSize))
		if status != "" {
			q.Set("status", string(status))
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp ordersResponse
		if err := c.do(ctx, request{method: http.MethodGet, path: "/portfolio/orders", query: q, signed: true}, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.GetOrders: %w", err)
		}
		for _, o := range resp.Orders {
			out = append(out, toOrder(o))
		}

		if resp.Cursor == "" || len(resp.Orders) == 0 {
			break
		}
		cursor = resp.Cursor
	}
	return out, nil
}

// CreateOrder submits a limit order. It is sent once: a retry could double
// the exposure if the first attempt reached the exchange.
func (c *Client) CreateOrder(ctx context.Context, spec domain.OrderSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", fmt.Errorf("kalshi.CreateOrder: %w", err)
	}

	price := spec.LimitPriceCents
	body := createOrderRequest{
		Ticker:        spec.Symbol,
		Action:        string(spec.Action),
		Side:          string(spec.Side),
		Type:          "limit",
		Count:         spec.Quantity,
		ClientOrderID: spec.IdempotencyToken,
	}
	if spec.Side == domain.SideYes {
		body.YesPrice = &price
	} else {
		body.NoPrice = &price
	}

	var resp createOrderResponse
	r := request{method: http.MethodPost, path: "/portfolio/orders", body: body, signed: true, noRetry: true}
	if err := c.do(ctx, r, &resp); err != nil {
		return "", fmt.Errorf("kalshi.CreateOrder: %s: %w", spec.Symbol, err)
	}
	if resp.Order.Status == string(domain.OrderCanceled) {
		return "", fmt.Errorf("kalshi.CreateOrder: %s: order was immediately cancelled", spec.Symbol)
	}
	if resp.Order.OrderID == "" {
		return "", fmt.Errorf("kalshi.CreateOrder: %s: no order id in response", spec.Symbol)
	}
	return resp.Order.OrderID, nil
}

func toOrder(o orderDTO) domain.Order {
	side := domain.Side(o.Side)
	price := intOr(o.YesPrice, 0)
	if side == domain.SideNo {
		price = intOr(o.NoPrice, 0)
	}
	remaining := intOr(o.RemainingCount, 0)
	return domain.Order{
		ID:               o.OrderID,
		Symbol:           o.Ticker,
		Side:             side,
		Action:           domain.Action(o.Action),
		Quantity:         intOr(o.InitialCount, remaining),
		RemainingCount:   remaining,
		LimitPriceCents:  price,
		IdempotencyToken: o.ClientOrderID,
		Status:           domain.OrderStatus(o.Status),
		CreatedAt:        parseTime(o.CreatedTime),
	}
}
