package kalshi

import "time"

// Wire DTOs. Prices are integer cents; optional numeric fields are
// pointers so "absent" and "zero" stay distinguishable.

type marketDTO struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"yes_sub_title"`
	Status      string `json:"status"` // "active", "open", "closed", "settled"
	YesBid      *int   `json:"yes_bid"`
	YesAsk      *int   `json:"yes_ask"`
	NoBid       *int   `json:"no_bid"`
	NoAsk       *int   `json:"no_ask"`
	LastPrice   *int   `json:"last_price"`
	CloseTime   string `json:"close_time"`
}

type marketsResponse struct {
	Markets []marketDTO `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type marketResponse struct {
	Market marketDTO `json:"market"`
}

type balanceResponse struct {
	Balance *int64 `json:"balance"` // cents
}

type positionDTO struct {
	Ticker         string `json:"ticker"`
	Position       int    `json:"position"` // signed: >0 YES, <0 NO
	MarketExposure *int64 `json:"market_exposure"`
	TotalTraded    *int64 `json:"total_traded"`
	RealizedPnL    *int64 `json:"realized_pnl"`
	LastUpdatedTS  string `json:"last_updated_ts"`
}

type positionsResponse struct {
	MarketPositions []positionDTO `json:"market_positions"`
	Cursor          string        `json:"cursor"`
}

type orderDTO struct {
	OrderID        string `json:"order_id"`
	ClientOrderID  string `json:"client_order_id"`
	Ticker         string `json:"ticker"`
	Status         string `json:"status"` // "resting", "canceled", "executed", "pending"
	Action         string `json:"action"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	YesPrice       *int   `json:"yes_price"`
	NoPrice        *int   `json:"no_price"`
	InitialCount   *int   `json:"initial_count"`
	RemainingCount *int   `json:"remaining_count"`
	CreatedTime    string `json:"created_time"`
}

type ordersResponse struct {
	Orders []orderDTO `json:"orders"`
	Cursor string     `json:"cursor"`
}

type createOrderRequest struct {
	Ticker        string `json:"ticker"`
	Action        string `json:"action"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Count         int    `json:"count"`
	YesPrice      *int   `json:"yes_price,omitempty"`
	NoPrice       *int   `json:"no_price,omitempty"`
	ClientOrderID string `json:"client_order_id"`
}

type createOrderResponse struct {
	Order orderDTO `json:"order"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Error   *errorBody `json:"error"`
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func int64Or(p *int64, def int64) int64 {
	if p == nil {
		return def
	}
	return *p
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
