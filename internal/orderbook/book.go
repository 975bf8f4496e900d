// Package orderbook implements a single-instrument limit order book
// with price-time priority matching and single-order-per-tick
// admission control.
package orderbook

import (
	"fmt"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

// orderLoc locates a resident order within its price tree for O(log n)
// removal on cancel.
type orderLoc struct {
	side  domain.Side
	price decimal.Decimal
}

// Book is a single-symbol limit order book. Bids are ordered by price
// descending, Asks by price ascending; within a price, orders FIFO by
// arrival.
type Book struct {
	Symbol string

	Bids *rbt.Tree[decimal.Decimal, *Level]
	Asks *rbt.Tree[decimal.Decimal, *Level]

	index    map[domain.OrderID]*domain.Order
	location map[domain.OrderID]orderLoc

	LastTradePrice       decimal.Decimal
	LastOrderServiceTime int64
	LastUnqueueTime      int64

	Trades []*domain.Trade
}

func bidComparator(a, b decimal.Decimal) int {
	return -a.Cmp(b)
}

func askComparator(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// New creates an empty book seeded with a starting price used only as
// the initial LastTradePrice (for the t=0 synthetic broadcast).
func New(symbol string, startingPrice decimal.Decimal) *Book {
	return &Book{
		Symbol:         symbol,
		Bids:           rbt.NewWith[decimal.Decimal, *Level](bidComparator),
		Asks:           rbt.NewWith[decimal.Decimal, *Level](askComparator),
		index:          make(map[domain.OrderID]*domain.Order),
		location:       make(map[domain.OrderID]orderLoc),
		LastTradePrice: startingPrice,
	}
}

func (b *Book) treeFor(side domain.Side) *rbt.Tree[decimal.Decimal, *Level] {
	if side == domain.Buy {
		return b.Bids
	}
	return b.Asks
}

// NextAdmissionTime implements the single-order-per-tick serialization
// policy: an order arriving at least one tick after the last admission
// is admitted immediately; otherwise it is deferred to the next free
// slot, and that slot is consumed immediately so a run of arrivals
// serializes in order.
func (b *Book) NextAdmissionTime(fireTime int64) (admitTime int64, deferred bool) {
	if fireTime-b.LastOrderServiceTime >= 1 {
		b.LastOrderServiceTime = fireTime
		return fireTime, false
	}
	b.LastOrderServiceTime++
	return b.LastOrderServiceTime, true
}

// Admit matches order against the opposite side and, if residual
// remains, rests it on its own side. Returns every Trade generated, in
// the order they were matched. order.Residual must be positive.
func (b *Book) Admit(order *domain.Order) []*domain.Trade {
	if order.Residual <= 0 {
		panic(fmt.Sprintf("admit: order %s has non-positive residual %d", order.ID, order.Residual))
	}

	opp := b.treeFor(order.Side.Opposite())
	var trades []*domain.Trade

	for order.Residual > 0 {
		node := opp.Left()
		if node == nil {
			break
		}
		level := node.Value

		if order.Side == domain.Buy && order.Price.LessThan(level.Price) {
			break
		}
		if order.Side == domain.Sell && order.Price.GreaterThan(level.Price) {
			break
		}

		for len(level.Orders) > 0 && order.Residual > 0 {
			resting := level.Orders[0]
			fill := order.Residual
			if resting.Residual < fill {
				fill = resting.Residual
			}

			tradeTime := order.ProcessTime
			if resting.ProcessTime > tradeTime {
				tradeTime = resting.ProcessTime
			}

			trade := b.newTrade(order, resting, level.Price, fill, tradeTime)
			trades = append(trades, trade)
			b.LastTradePrice = level.Price

			order.Residual -= fill
			resting.Residual -= fill

			if resting.Residual == 0 {
				level.Orders = level.Orders[1:]
				delete(b.index, resting.ID)
				delete(b.location, resting.ID)
			}
		}

		if len(level.Orders) == 0 {
			opp.Remove(level.Price)
		}
	}

	if order.Residual > 0 {
		b.insert(order)
	}

	return trades
}

func (b *Book) newTrade(incoming, resting *domain.Order, price decimal.Decimal, amount int64, t int64) *domain.Trade {
	buyOrder, sellOrder := incoming, resting
	if incoming.Side == domain.Sell {
		buyOrder, sellOrder = resting, incoming
	}
	return &domain.Trade{
		Buyer:       buyOrder.Owner,
		Seller:      sellOrder.Owner,
		BuyOrderID:  buyOrder.ID,
		SellOrderID: sellOrder.ID,
		Price:       price,
		Symbol:      b.Symbol,
		Amount:      amount,
		Time:        t,
	}
}

func (b *Book) insert(order *domain.Order) {
	tree := b.treeFor(order.Side)
	level, found := tree.Get(order.Price)
	if !found {
		level = &Level{Price: order.Price}
		tree.Put(order.Price, level)
	}
	level.Orders = append(level.Orders, order)
	b.index[order.ID] = order
	b.location[order.ID] = orderLoc{side: order.Side, price: order.Price}
}

// Cancel removes the resident order matching id, if any, and returns
// the residual amount that was removed. A cancel for an unknown or
// already-filled id is a silent no-op.
func (b *Book) Cancel(id domain.OrderID) (int64, bool) {
	order, ok := b.index[id]
	if !ok || order.Residual <= 0 {
		return 0, false
	}
	loc := b.location[id]
	tree := b.treeFor(loc.side)
	level, found := tree.Get(loc.price)
	if found {
		for i, o := range level.Orders {
			if o.ID == id {
				level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
				break
			}
		}
		if len(level.Orders) == 0 {
			tree.Remove(loc.price)
		}
	}
	residual := order.Residual
	order.Residual = 0
	delete(b.index, id)
	delete(b.location, id)
	return residual, true
}

// BBO returns the best bid and best ask prices, or ok=false for a side
// with no resident orders.
func (b *Book) BBO() (bid decimal.Decimal, bidOK bool, ask decimal.Decimal, askOK bool) {
	if node := b.Bids.Left(); node != nil {
		bid, bidOK = node.Value.Price, true
	}
	if node := b.Asks.Left(); node != nil {
		ask, askOK = node.Value.Price, true
	}
	return
}

// Snapshot captures the top depth levels of each side without mutating
// the book, suitable for latency-delayed delivery to a requester.
func (b *Book) Snapshot(depth int) domain.BookView {
	return domain.BookView{
		Buy:  topLevels(b.Bids, depth),
		Sell: topLevels(b.Asks, depth),
	}
}

func topLevels(tree *rbt.Tree[decimal.Decimal, *Level], depth int) []domain.BookLevel {
	out := make([]domain.BookLevel, 0, depth)
	it := tree.Iterator()
	for it.Next() && len(out) < depth {
		level := it.Value()
		out = append(out, domain.BookLevel{Price: level.Price, Amount: level.TotalQty()})
	}
	return out
}

// Depth reports the resident order count on both sides. Data-point
// capture uses TotalResidual instead.
func (b *Book) Depth() int {
	return len(b.index)
}

// ResidualOf returns the current residual for a resident order, or 0
// if the order is unknown (already fully filled or canceled).
func (b *Book) ResidualOf(id domain.OrderID) int64 {
	if o, ok := b.index[id]; ok {
		return o.Residual
	}
	return 0
}

// TotalResidual sums residual across every resident order.
func (b *Book) TotalResidual() int64 {
	var total int64
	for _, o := range b.index {
		total += o.Residual
	}
	return total
}

// AssertInvariants checks the structural invariants that must hold
// after every Admit: no zero/negative residuals, no id aliasing
// between the index and tree contents, and no crossed book.
func (b *Book) AssertInvariants() error {
	seen := make(map[domain.OrderID]bool, len(b.index))
	check := func(tree *rbt.Tree[decimal.Decimal, *Level]) error {
		it := tree.Iterator()
		for it.Next() {
			level := it.Value()
			if len(level.Orders) == 0 {
				return fmt.Errorf("empty price level %s resident in tree", level.Price)
			}
			for _, o := range level.Orders {
				if o.Residual <= 0 {
					return fmt.Errorf("order %s has non-positive residual %d", o.ID, o.Residual)
				}
				if !o.Price.Equal(level.Price) {
					return fmt.Errorf("order %s price %s does not match level price %s", o.ID, o.Price, level.Price)
				}
				if seen[o.ID] {
					return fmt.Errorf("order %s resident twice", o.ID)
				}
				seen[o.ID] = true
			}
		}
		return nil
	}
	if err := check(b.Bids); err != nil {
		return err
	}
	if err := check(b.Asks); err != nil {
		return err
	}
	if len(seen) != len(b.index) {
		return fmt.Errorf("index has %d orders, trees hold %d", len(b.index), len(seen))
	}

	bid, bidOK, ask, askOK := b.BBO()
	if bidOK && askOK && bid.GreaterThan(ask) {
		return fmt.Errorf("crossed book: best bid %s > best ask %s", bid, ask)
	}
	return nil
}
