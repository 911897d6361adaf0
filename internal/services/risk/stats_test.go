package risk

import (
	"math"
	"testing"
	"time"

	"CrossRisk/internal/domain/models"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func panelOf(labels []string, cols map[string][]float64) *models.TimeSeriesPanel {
	rows := 0
	for _, c := range cols {
		rows = len(c)
		break
	}
	dates := make([]time.Time, rows)
	for i := range dates {
		dates[i] = day(i)
	}
	return &models.TimeSeriesPanel{Dates: dates, Labels: labels, Columns: cols}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPctChangeReturns(t *testing.T) {
	p := panelOf([]string{"BTC"}, map[string][]float64{
		"BTC": {100, 110, 99, 105},
	})
	r := PctChangeReturns(p)
	if r.Rows() != 3 {
		t.Fatalf("expected 3 return rows, got %d", r.Rows())
	}
	want := []float64{0.10, -0.10, 105.0/99.0 - 1}
	got := r.Columns["BTC"]
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("return[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !r.Dates[0].Equal(day(1)) {
		t.Fatalf("first return date should be the second price date, got %v", r.Dates[0])
	}
}

func TestPctChangeReturnsZeroPrior(t *testing.T) {
	p := panelOf([]string{"X"}, map[string][]float64{
		"X": {0, 10, 11},
	})
	r := PctChangeReturns(p)
	// The return off a zero prior price is undefined and its row is dropped.
	if r.Rows() != 1 {
		t.Fatalf("expected 1 row, got %d", r.Rows())
	}
	if !almostEqual(r.Columns["X"][0], 0.1) {
		t.Fatalf("got %v", r.Columns["X"][0])
	}
}

func TestPctChangeReturnsTooShort(t *testing.T) {
	p := panelOf([]string{"X"}, map[string][]float64{"X": {100}})
	if r := PctChangeReturns(p); !r.IsEmpty() {
		t.Fatalf("expected empty returns panel")
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	rets := []float64{0.01, -0.02, 0.03, 0.01}
	got := AnnualizedVolatility(rets)
	if math.IsNaN(got) || got <= 0 {
		t.Fatalf("expected positive volatility, got %v", got)
	}
	// StdDev of identical returns is zero.
	if v := AnnualizedVolatility([]float64{0.01, 0.01, 0.01}); !almostEqual(v, 0) {
		t.Fatalf("constant returns should have zero vol, got %v", v)
	}
}

func TestAnnualizedVolatilityUndefined(t *testing.T) {
	if !math.IsNaN(AnnualizedVolatility(nil)) {
		t.Fatalf("expected NaN for empty returns")
	}
	if !math.IsNaN(AnnualizedVolatility([]float64{0.01})) {
		t.Fatalf("expected NaN for a single return")
	}
}

func TestMaxDrawdown(t *testing.T) {
	got := MaxDrawdown([]float64{100, 110, 99, 105})
	if !almostEqual(got, -0.10) {
		t.Fatalf("expected -0.10, got %v", got)
	}
}

func TestMaxDrawdownMonotonic(t *testing.T) {
	if got := MaxDrawdown([]float64{100, 101, 102}); !almostEqual(got, 0) {
		t.Fatalf("non-decreasing series should have zero drawdown, got %v", got)
	}
}

func TestMaxDrawdownEmpty(t *testing.T) {
	if !math.IsNaN(MaxDrawdown(nil)) {
		t.Fatalf("expected NaN for empty series")
	}
}

func TestMaxDrawdownBounds(t *testing.T) {
	got := MaxDrawdown([]float64{100, 1})
	if got <= -1 || got > 0 {
		t.Fatalf("drawdown must be in (-1, 0], got %v", got)
	}
}

func TestRollingCorrelationPadding(t *testing.T) {
	n := 40
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i%7) - 3
		y[i] = x[i] * 2
	}
	out := RollingCorrelation(x, y, RollingWindow)
	if len(out) != n {
		t.Fatalf("expected %d points, got %d", n, len(out))
	}
	for i := 0; i < RollingWindow-1; i++ {
		if !math.IsNaN(out[i]) {
			t.Fatalf("point %d should be NaN", i)
		}
	}
	defined := 0
	for i := RollingWindow - 1; i < n; i++ {
		if math.IsNaN(out[i]) {
			t.Fatalf("point %d should be defined", i)
		}
		defined++
	}
	if defined != n-RollingWindow+1 {
		t.Fatalf("expected %d defined points, got %d", n-RollingWindow+1, defined)
	}
	// y is a scaled copy of x, so every defined correlation is 1.
	if !almostEqual(out[n-1], 1) {
		t.Fatalf("expected correlation 1, got %v", out[n-1])
	}
}

func TestRollingCorrelationShortSeries(t *testing.T) {
	out := RollingCorrelation([]float64{1, 2, 3}, []float64{1, 2, 3}, RollingWindow)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Fatalf("point %d should be NaN for a series shorter than the window", i)
		}
	}
}

func TestCorrelationMatrix(t *testing.T) {
	p := panelOf([]string{"A", "B", "C"}, map[string][]float64{
		"A": {0.01, -0.02, 0.03, 0.005, -0.01},
		"B": {0.02, -0.04, 0.06, 0.010, -0.02},
		"C": {-0.01, 0.03, -0.02, 0.004, 0.01},
	})
	m := CorrelationMatrix(p)
	if len(m.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(m.Labels))
	}
	for i := range m.Values {
		if m.Values[i][i] != 1 {
			t.Fatalf("diagonal[%d] = %v, want exactly 1", i, m.Values[i][i])
		}
		for j := range m.Values[i] {
			if m.Values[i][j] != m.Values[j][i] {
				t.Fatalf("matrix not symmetric at (%d,%d)", i, j)
			}
			if v := m.Values[i][j]; !math.IsNaN(v) && (v < -1 || v > 1) {
				t.Fatalf("correlation out of range: %v", v)
			}
		}
	}
	// B is A scaled by 2: perfect correlation after rounding.
	if m.Values[0][1] != 1 {
		t.Fatalf("identical-shape series should correlate 1.000, got %v", m.Values[0][1])
	}
	// Rounded to 3 decimals.
	for i := range m.Values {
		for j := range m.Values[i] {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			if r := math.Round(v*1000) / 1000; r != v {
				t.Fatalf("value %v not rounded to 3 decimals", v)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	p := panelOf([]string{"A"}, map[string][]float64{"A": {50, 100, 25}})
	n := Normalize(p)
	want := []float64{1, 2, 0.5}
	for i, v := range n.Columns["A"] {
		if !almostEqual(v, want[i]) {
			t.Fatalf("normalized[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestNormalizeZeroBase(t *testing.T) {
	p := panelOf([]string{"A"}, map[string][]float64{"A": {0, 100}})
	n := Normalize(p)
	for i, v := range n.Columns["A"] {
		if !math.IsNaN(v) {
			t.Fatalf("normalized[%d] should be NaN with a zero base, got %v", i, v)
		}
	}
}
