// Package domain defines the core entities shared across the
// simulation kernel: orders, trades, book snapshots, and the agent
// index used to avoid back-reference cycles.
package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderID opaquely and globally identifies an order. A cancel order
// reuses the OrderID of the order it targets rather than minting a
// new one.
type OrderID = uuid.UUID

// NewOrderID mints a fresh, globally unique order identity.
func NewOrderID() OrderID {
	return uuid.New()
}

// Side is the side of the book an order rests on.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// AgentIndex is a stable index into Simulation's agent slice. Orders
// and Trades carry an AgentIndex rather than an *Agent pointer, which
// keeps ownership acyclic and iteration order deterministic.
type AgentIndex int

// Order is a limit order (or a cancel instruction targeting one).
// Residual amount is mutated in place by matching; identity fields
// never change after construction.
type Order struct {
	ID     OrderID
	Owner  AgentIndex
	Side   Side
	Symbol string

	// Residual is the quantity still unfilled. Must stay > 0 for any
	// order resident in a book; zero means "fully filled, remove".
	Residual int64

	// Price is rounded to 2 places at submission.
	Price decimal.Decimal

	SubmitTime  int64 // virtual time the agent decided to submit
	ReceiveTime int64 // virtual time the order arrived at the engine gate
	ProcessTime int64 // virtual time the engine actually admitted it

	IsCancel bool
	CancelID OrderID // only set when IsCancel
}

// Clone returns a shallow copy suitable for requeuing without
// aliasing the original order's mutable Residual/ProcessTime.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

// BookLevel is a read-only view of one price level, used by snapshot
// queries and the CSV output writer.
type BookLevel struct {
	Price  decimal.Decimal
	Amount int64
}

// BookView is a top-N snapshot of one side of a book.
type BookView struct {
	Buy  []BookLevel
	Sell []BookLevel
}
