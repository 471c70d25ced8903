package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is an immutable order value. A partially filled order is never
// mutated in place; Reduce produces a replacement value with the smaller
// remaining amount.
type Order struct {
	id     string
	side   Side
	price  fpdecimal.Decimal
	amount int64
}

// NewOrder creates a new Order value. The transport layer validates input
// before submission, but malformed orders are still rejected here.
func NewOrder(orderID string, side Side, price fpdecimal.Decimal, amount int64) (Order, error) {
	if side != Buy && side != Sell {
		return Order{}, ErrInvalidSide
	}

	if price.LessThan(fpdecimal.Zero) {
		return Order{}, ErrInvalidPrice
	}

	if amount < 1 {
		return Order{}, ErrInvalidAmount
	}

	return Order{
		id:     orderID,
		side:   side,
		price:  price,
		amount: amount,
	}, nil
}

// ID returns the engine-assigned order ID
func (o Order) ID() string {
	return o.id
}

// Side returns side of the Order
func (o Order) Side() Side {
	return o.side
}

// Price returns Price field copy
func (o Order) Price() fpdecimal.Decimal {
	return o.price
}

// Amount returns the remaining unmatched amount
func (o Order) Amount() int64 {
	return o.amount
}

// Reduce returns a copy of the order with matched subtracted from the
// remaining amount. The receiver is left untouched.
func (o Order) Reduce(matched int64) Order {
	return Order{
		id:     o.id,
		side:   o.side,
		price:  o.price,
		amount: o.amount - matched,
	}
}

// IsFilled reports whether no amount remains
func (o Order) IsFilled() bool {
	return o.amount <= 0
}

// MarshalJSON implements custom JSON marshaling for Order
func (o Order) MarshalJSON() ([]byte, error) {
	type OrderJSON struct {
		ID     string `json:"id"`
		Side   string `json:"side"`
		Price  string `json:"price"`
		Amount int64  `json:"amount"`
	}

	return json.Marshal(OrderJSON{
		ID:     o.id,
		Side:   o.side.String(),
		Price:  o.price.String(),
		Amount: o.amount,
	})
}

// String implements Stringer interface
func (o Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
