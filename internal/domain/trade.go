package domain

import "github.com/shopspring/decimal"

// Trade records one matched fill. Process() is the only place cash
// and shares move between agents; it latches Completed so a Trade can
// never be processed twice.
type Trade struct {
	Buyer  AgentIndex
	Seller AgentIndex

	BuyOrderID  OrderID
	SellOrderID OrderID

	Price  decimal.Decimal
	Symbol string
	Amount int64
	Time   int64

	Completed bool
}

// AgentBook is the narrow slice of Simulation that Trade.Process needs:
// moving one side's balance and shares for a fill. Matched counters and
// price histories are recorded by the simulation, not through this
// interface.
type AgentBook interface {
	ApplyFill(agent AgentIndex, counterparty AgentIndex, symbol string, amount int64, price decimal.Decimal, isBuy bool)
}

// Process transfers amount shares seller->buyer and amount*price cash
// buyer->seller via one ApplyFill call per side. A Trade that has already completed is a programming error to
// process again.
func (t *Trade) Process(agents AgentBook) {
	if t.Completed {
		panic("trade processed twice")
	}
	agents.ApplyFill(t.Buyer, t.Seller, t.Symbol, t.Amount, t.Price, true)
	agents.ApplyFill(t.Seller, t.Buyer, t.Symbol, t.Amount, t.Price, false)
	t.Completed = true
}
