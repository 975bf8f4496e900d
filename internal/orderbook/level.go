package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

// Level holds all resting orders at a single price, in FIFO order.
type Level struct {
	Price  decimal.Decimal
	Orders []*domain.Order
}

// TotalQty sums the remaining residual across every order at this level.
func (l *Level) TotalQty() int64 {
	var total int64
	for _, o := range l.Orders {
		total += o.Residual
	}
	return total
}

// removeFilled compacts out any order whose Residual has reached zero.
func (l *Level) removeFilled() {
	n := 0
	for _, o := range l.Orders {
		if o.Residual > 0 {
			l.Orders[n] = o
			n++
		}
	}
	l.Orders = l.Orders[:n]
}

// queuePosition returns the 1-based FIFO position of an order at this
// level, or 0 if not present.
func (l *Level) queuePosition(id domain.OrderID) int {
	for i, o := range l.Orders {
		if o.ID == id {
			return i + 1
		}
	}
	return 0
}
