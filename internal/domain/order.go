package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the venue lifecycle of an order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderResting  OrderStatus = "resting"
	OrderExecuted OrderStatus = "executed"
	OrderCanceled OrderStatus = "canceled"
)

// Order is an order as reported by the venue.
type Order struct {
	ID               string
	Symbol           string
	Side             Side
	Action           Action
	Quantity         int
	RemainingCount   int
	LimitPriceCents  int
	IdempotencyToken string
	Status           OrderStatus
	CreatedAt        time.Time
}

// IsOpen reports whether the order can still fill.
func (o Order) IsOpen() bool {
	return (o.Status == OrderResting || o.Status == OrderPending) && o.RemainingCount > 0
}

// OrderSpec is what the system submits to the venue.
type OrderSpec struct {
	Symbol           string
	Side             Side
	Action           Action
	Quantity         int
	LimitPriceCents  int
	IdempotencyToken string
}

// Validate checks the order against the venue contract.
func (s OrderSpec) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("order spec: empty symbol")
	}
	if s.Side != SideYes && s.Side != SideNo {
		return fmt.Errorf("order spec: invalid side %q", s.Side)
	}
	if s.Action != ActionBuy && s.Action != ActionSell {
		return fmt.Errorf("order spec: invalid action %q", s.Action)
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("order spec: quantity must be > 0, got %d", s.Quantity)
	}
	if s.LimitPriceCents < 1 || s.LimitPriceCents > 99 {
		return fmt.Errorf("order spec: limit price %d outside [1,99]", s.LimitPriceCents)
	}
	if s.IdempotencyToken == "" {
		return fmt.Errorf("order spec: empty idempotency token")
	}
	return nil
}

// Notional is the dollar cost of the order at its limit price.
func (s OrderSpec) Notional() float64 {
	return float64(s.Quantity) * float64(s.LimitPriceCents) / 100
}

// Position is a holding on one symbol. Quantity is signed: positive holds
// YES contracts, negative holds NO contracts.
type Position struct {
	Symbol         string
	Side           Side
	Quantity       int
	AvgPriceCents  float64 // 0 when the venue does not report it
	TotalCostCents float64
	OpenedAt       time.Time
}

// NewPosition builds a position from a signed venue quantity so that Side
// always matches the direction the position was opened on.
func NewPosition(symbol string, signedQty int, avgPriceCents, totalCostCents float64, openedAt time.Time) Position {
	side := SideYes
	if signedQty < 0 {
		side = SideNo
	}
	return Position{
		Symbol:         symbol,
		Side:           side,
		Quantity:       signedQty,
		AvgPriceCents:  avgPriceCents,
		TotalCostCents: totalCostCents,
		OpenedAt:       openedAt,
	}
}

// Contracts is the absolute number of contracts held.
func (p Position) Contracts() int {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// EntryPriceCents is the explicit average price, or total cost divided by
// quantity when no average is reported.
func (p Position) EntryPriceCents() float64 {
	if p.AvgPriceCents > 0 {
		return p.AvgPriceCents
	}
	if n := p.Contracts(); n > 0 {
		return p.TotalCostCents / float64(n)
	}
	return 0
}
