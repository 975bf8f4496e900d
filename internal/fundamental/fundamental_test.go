package fundamental

import "testing"

func TestDeterministicSameSeed(t *testing.T) {
	a := New(0.1, 100, 1, 0.05, 7)
	b := New(0.1, 100, 1, 0.05, 7)
	for i := 0; i < 50; i++ {
		av := a.Value(float64(i))
		bv := b.Value(float64(i))
		if av != bv {
			t.Fatalf("tick %d: %v != %v", i, av, bv)
		}
	}
}

func TestMemoizedStable(t *testing.T) {
	f := New(0.1, 100, 1, 0.5, 1)
	first := f.Value(20)
	second := f.Value(20)
	if first != second {
		t.Fatalf("value at same tick changed: %v != %v", first, second)
	}
}

func TestNoShockHoldsFlat(t *testing.T) {
	f := New(0.1, 100, 1, 0, 1)
	v0 := f.Value(0)
	for i := 1; i < 10; i++ {
		if v := f.Value(float64(i)); v != v0 {
			t.Fatalf("tick %d drifted with shock_prob=0: %v != %v", i, v, v0)
		}
	}
}

func TestNegativeTimeClampsToZero(t *testing.T) {
	f := New(0.1, 100, 1, 0.05, 3)
	if f.Value(-5) != f.Value(0) {
		t.Fatal("negative time should clamp to index 0")
	}
}
