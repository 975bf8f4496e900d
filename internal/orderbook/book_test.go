package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aehmttw/marketsim/internal/domain"
)

func limit(side domain.Side, qty int64, price float64, t int64) *domain.Order {
	return &domain.Order{
		ID:          domain.NewOrderID(),
		Side:        side,
		Symbol:      "A",
		Residual:    qty,
		Price:       domain.Price(price),
		ReceiveTime: t,
		ProcessTime: t,
	}
}

func bidPrices(b *Book) []string {
	var out []string
	it := b.Bids.Iterator()
	for it.Next() {
		out = append(out, it.Value().Price.String())
	}
	return out
}

func askPrices(b *Book) []string {
	var out []string
	it := b.Asks.Iterator()
	for it.Next() {
		out = append(out, it.Value().Price.String())
	}
	return out
}

func TestBuyStacking(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Buy, 100, 50, 1))
	b.Admit(limit(domain.Buy, 80, 52, 2))
	b.Admit(limit(domain.Buy, 120, 49, 3))
	b.Admit(limit(domain.Buy, 200, 45, 4))

	got := bidPrices(b)
	want := []string{"52", "50", "49", "45"}
	if len(got) != len(want) {
		t.Fatalf("bid levels = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bid levels = %v, want %v", got, want)
		}
	}
	if len(askPrices(b)) != 0 {
		t.Fatalf("sellbook should be empty, got %v", askPrices(b))
	}
}

func TestSellStacking(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Sell, 100, 50, 1))
	b.Admit(limit(domain.Sell, 80, 52, 2))
	b.Admit(limit(domain.Sell, 120, 49, 3))
	b.Admit(limit(domain.Sell, 200, 45, 4))

	got := askPrices(b)
	want := []string{"45", "49", "50", "52"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ask levels = %v, want %v", got, want)
		}
	}
}

func TestPerfectMatch(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Sell, 100, 50, 1))
	trades := b.Admit(limit(domain.Buy, 100, 50, 2))

	if len(trades) != 1 {
		t.Fatalf("want 1 trade, got %d", len(trades))
	}
	if trades[0].Amount != 100 || !trades[0].Price.Equal(domain.Price(50)) {
		t.Fatalf("unexpected trade %+v", trades[0])
	}
	if b.Depth() != 0 {
		t.Fatalf("both books should be empty, depth=%d", b.Depth())
	}
}

func TestPartialMatchResidualOnRestingSide(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Sell, 50, 100, 1))
	trades := b.Admit(limit(domain.Buy, 30, 100, 2))

	if len(trades) != 1 || trades[0].Amount != 30 {
		t.Fatalf("unexpected trades %+v", trades)
	}
	asks := askPrices(b)
	if len(asks) != 1 || asks[0] != "100" {
		t.Fatalf("sellbook = %v, want one level at 100", asks)
	}
	if len(bidPrices(b)) != 0 {
		t.Fatalf("buybook should be empty")
	}
}

func TestSweepAcrossLevels(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Sell, 100, 10, 1))
	b.Admit(limit(domain.Sell, 100, 20, 2))
	b.Admit(limit(domain.Sell, 100, 30, 3))

	trades := b.Admit(limit(domain.Buy, 150, 60, 4))
	if len(trades) != 2 {
		t.Fatalf("want 2 trades, got %d", len(trades))
	}
	if trades[0].Amount != 100 || !trades[0].Price.Equal(domain.Price(10)) {
		t.Fatalf("first trade = %+v", trades[0])
	}
	if trades[1].Amount != 50 || !trades[1].Price.Equal(domain.Price(20)) {
		t.Fatalf("second trade = %+v", trades[1])
	}

	asks := askPrices(b)
	if len(asks) != 2 || asks[0] != "20" || asks[1] != "30" {
		t.Fatalf("sellbook = %v, want [20 30]", asks)
	}

	var cash decimal.Decimal
	for _, tr := range trades {
		cash = cash.Add(tr.Price.Mul(decimal.NewFromInt(tr.Amount)))
	}
	if !cash.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("cash transferred = %s, want 2000", cash)
	}
}

func TestNoCross(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Sell, 50, 100, 1))
	trades := b.Admit(limit(domain.Buy, 80, 99, 2))

	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if asks := askPrices(b); len(asks) != 1 || asks[0] != "100" {
		t.Fatalf("sellbook = %v, want [100]", asks)
	}
	if bids := bidPrices(b); len(bids) != 1 || bids[0] != "99" {
		t.Fatalf("buybook = %v, want [99]", bids)
	}
}

func TestAdmissionSerialization(t *testing.T) {
	b := New("A", decimal.Zero)

	var admitTimes []int64
	for i := 0; i < 4; i++ {
		at, _ := b.NextAdmissionTime(1)
		admitTimes = append(admitTimes, at)
	}

	want := []int64{1, 2, 3, 4}
	for i, w := range want {
		if admitTimes[i] != w {
			t.Fatalf("admit times = %v, want %v", admitTimes, want)
		}
	}
}

func TestCancelUnknownIsNoop(t *testing.T) {
	b := New("A", decimal.Zero)
	if _, ok := b.Cancel(domain.NewOrderID()); ok {
		t.Fatal("cancel of unknown id should report not-found")
	}
}

func TestCancelRemovesResident(t *testing.T) {
	b := New("A", decimal.Zero)
	o := limit(domain.Buy, 10, 5, 1)
	b.Admit(o)

	residual, ok := b.Cancel(o.ID)
	if !ok || residual != 10 {
		t.Fatalf("cancel = (%d, %v), want (10, true)", residual, ok)
	}
	if b.Depth() != 0 {
		t.Fatalf("book should be empty after cancel, depth=%d", b.Depth())
	}
	if err := b.AssertInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
}

func TestAssertInvariantsOnStackedBook(t *testing.T) {
	b := New("A", decimal.Zero)
	b.Admit(limit(domain.Buy, 100, 50, 1))
	b.Admit(limit(domain.Sell, 50, 60, 2))
	if err := b.AssertInvariants(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
}
