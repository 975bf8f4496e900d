package stats

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecordFillAverages(t *testing.T) {
	a := NewAgentStats("alice")
	a.RecordFill("market_makers", decimal.NewFromInt(100), true)
	a.RecordFill("market_makers", decimal.NewFromInt(102), true)
	a.RecordFill("noise_traders", decimal.NewFromInt(98), false)

	if got := a.AvgBuyPrice(); !got.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("avg buy price = %s, want 101", got)
	}
	if got := a.AvgSellPrice(); !got.Equal(decimal.NewFromInt(98)) {
		t.Fatalf("avg sell price = %s, want 98", got)
	}
	if a.OrdersMatched != 3 {
		t.Fatalf("matched = %d, want 3", a.OrdersMatched)
	}
}

func TestCounterpartyBreakdownSortedAndSeparated(t *testing.T) {
	a := NewAgentStats("alice")
	a.RecordFill("zebras", decimal.NewFromInt(10), true)
	a.RecordFill("aardvarks", decimal.NewFromInt(20), false)

	cps := a.Counterparties()
	if len(cps) != 2 || cps[0].Group != "aardvarks" || cps[1].Group != "zebras" {
		t.Fatalf("counterparties = %+v, want [aardvarks zebras]", cps)
	}
	if cps[0].BuyCount != 0 || cps[0].SellCount != 1 {
		t.Fatalf("aardvarks counts = %+v", cps[0])
	}
	if cps[1].BuyCount != 1 || cps[1].SellCount != 0 {
		t.Fatalf("zebras counts = %+v", cps[1])
	}
}

func TestTablePreservesDeclarationOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Register(2, "third")
	tbl.Register(0, "first")
	tbl.Register(1, "second")

	rows := tbl.Rows()
	names := []string{rows[0].Name, rows[1].Name, rows[2].Name}
	want := []string{"third", "first", "second"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("rows order = %v, want %v", names, want)
		}
	}
}

func TestEmptyAgentAveragesAreZero(t *testing.T) {
	a := NewAgentStats("idle")
	if !a.AvgMatchPrice().Equal(decimal.Zero) {
		t.Fatalf("avg match price = %s, want 0", a.AvgMatchPrice())
	}
}
