package models

import (
	"math"
	"testing"
	"time"
)

func d(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestConcatUnionSorted(t *testing.T) {
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(2), d(0)}, Values: []float64{20, 10}},
		{Label: "B", Dates: []time.Time{d(1)}, Values: []float64{5}},
	})
	if p.Rows() != 3 {
		t.Fatalf("expected union of 3 dates, got %d", p.Rows())
	}
	for i := 1; i < p.Rows(); i++ {
		if !p.Dates[i-1].Before(p.Dates[i]) {
			t.Fatalf("dates not strictly increasing at %d", i)
		}
	}
	a := p.Columns["A"]
	if a[0] != 10 || !math.IsNaN(a[1]) || a[2] != 20 {
		t.Fatalf("unexpected column A: %v", a)
	}
	b := p.Columns["B"]
	if !math.IsNaN(b[0]) || b[1] != 5 || !math.IsNaN(b[2]) {
		t.Fatalf("unexpected column B: %v", b)
	}
}

func TestConcatColumnOrder(t *testing.T) {
	p := Concat([]Series{
		{Label: "Y1", Dates: []time.Time{d(0)}, Values: []float64{1}},
		{Label: "BTC", Dates: []time.Time{d(0)}, Values: []float64{2}},
	})
	if p.Labels[0] != "Y1" || p.Labels[1] != "BTC" {
		t.Fatalf("column order must follow input order, got %v", p.Labels)
	}
}

func TestConcatIntradayStampsCollapse(t *testing.T) {
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(0).Add(14 * time.Hour)}, Values: []float64{1}},
		{Label: "B", Dates: []time.Time{d(0).Add(9 * time.Hour)}, Values: []float64{2}},
	})
	if p.Rows() != 1 {
		t.Fatalf("same calendar day should land on one row, got %d", p.Rows())
	}
}

func TestConcatEmpty(t *testing.T) {
	if p := Concat(nil); !p.IsEmpty() {
		t.Fatalf("expected empty panel")
	}
}

func TestFillForwardBackward(t *testing.T) {
	nan := math.NaN()
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(0), d(1), d(2), d(3)}, Values: []float64{nan, 2, nan, 4}},
	})
	p.FillForwardBackward()
	want := []float64{2, 2, 2, 4}
	for i, v := range p.Columns["A"] {
		if v != want[i] {
			t.Fatalf("filled[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestFillForwardBackwardIdempotent(t *testing.T) {
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(0), d(2)}, Values: []float64{1, 3}},
		{Label: "B", Dates: []time.Time{d(1)}, Values: []float64{2}},
	})
	p.FillForwardBackward()
	first := append([]float64(nil), p.Columns["A"]...)
	p.FillForwardBackward()
	for i, v := range p.Columns["A"] {
		if v != first[i] {
			t.Fatalf("second fill changed value at %d", i)
		}
	}
}

func TestDropGapRowsRemovesDeadColumnFirst(t *testing.T) {
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(0), d(1)}, Values: []float64{1, 2}},
		{Label: "Dead", Dates: nil, Values: nil},
	})
	clean := p.DropGapRows()
	if clean.HasColumn("Dead") {
		t.Fatalf("all-NaN column should be dropped")
	}
	// The dead column must not wipe out rows the live column has.
	if clean.Rows() != 2 {
		t.Fatalf("expected 2 rows, got %d", clean.Rows())
	}
}

func TestDropGapRows(t *testing.T) {
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(0), d(1), d(2)}, Values: []float64{1, 2, 3}},
		{Label: "B", Dates: []time.Time{d(0), d(2)}, Values: []float64{9, 7}},
	})
	clean := p.DropGapRows()
	if clean.Rows() != 2 {
		t.Fatalf("row with a gap should be dropped, got %d rows", clean.Rows())
	}
	if clean.Columns["A"][1] != 3 || clean.Columns["B"][1] != 7 {
		t.Fatalf("unexpected surviving rows: %v %v", clean.Columns["A"], clean.Columns["B"])
	}
}

func TestSubset(t *testing.T) {
	p := Concat([]Series{
		{Label: "A", Dates: []time.Time{d(0)}, Values: []float64{1}},
		{Label: "B", Dates: []time.Time{d(0)}, Values: []float64{2}},
	})
	s := p.Subset([]string{"B", "missing"})
	if len(s.Labels) != 1 || s.Labels[0] != "B" {
		t.Fatalf("unexpected subset labels %v", s.Labels)
	}
	if s.Rows() != p.Rows() {
		t.Fatalf("subset must keep the row set")
	}
}

func TestSnapshotDropsNaNStats(t *testing.T) {
	p := Concat([]Series{
		{Label: "BTC", Dates: []time.Time{d(0), d(1)}, Values: []float64{100, 110}},
	})
	m := &DerivedMetrics{
		Window:      Window1y,
		Generated:   d(1),
		Panel:       p,
		Volatility:  map[string]float64{"BTC": math.NaN()},
		MaxDrawdown: map[string]float64{"BTC": -0.1},
	}
	snap := m.Snapshot()
	if len(snap.Instruments) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(snap.Instruments))
	}
	inst := snap.Instruments[0]
	if inst.Volatility != 0 {
		t.Fatalf("NaN volatility must be dropped, got %v", inst.Volatility)
	}
	if inst.MaxDrawdown != -0.1 || inst.LastPrice != 110 {
		t.Fatalf("unexpected stats %+v", inst)
	}
}

func TestNormalizeWindow(t *testing.T) {
	if w := NormalizeWindow("180d"); w.Key != "180d" || w.LookbackDays != 180 {
		t.Fatalf("unexpected window %+v", w)
	}
	if w := NormalizeWindow("bogus"); w.Key != Window1y.Key {
		t.Fatalf("unknown key should fall back to default, got %+v", w)
	}
}

func TestNormalizeView(t *testing.T) {
	if v := NormalizeView("drawdown"); v != ViewDrawdown {
		t.Fatalf("got %v", v)
	}
	if v := NormalizeView(""); v != ViewVolatility {
		t.Fatalf("empty view should default to volatility, got %v", v)
	}
}

func TestCatalogLabelsMacroFirst(t *testing.T) {
	c := DefaultCatalog()
	labels := c.Labels()
	if len(labels) != len(c.Macro)+len(c.Market) {
		t.Fatalf("expected %d labels, got %d", len(c.Macro)+len(c.Market), len(labels))
	}
	for i := 0; i < len(c.Macro); i++ {
		if _, ok := c.Macro[labels[i]]; !ok {
			t.Fatalf("label %q at %d should be a macro label", labels[i], i)
		}
	}
}

func TestCatalogLabelForSymbol(t *testing.T) {
	c := DefaultCatalog()
	label, ok := c.LabelForSymbol("BTC-USD")
	if !ok || label != "BTC" {
		t.Fatalf("got %q %v", label, ok)
	}
	if _, ok := c.LabelForSymbol("NOPE"); ok {
		t.Fatalf("unknown symbol should not resolve")
	}
}
