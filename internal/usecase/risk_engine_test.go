package usecase

import (
	"context"
	"math"
	"testing"

	"CrossRisk/internal/domain/models"
)

func TestComputeEmptyPanel(t *testing.T) {
	e := NewRiskEngine()
	m := e.Compute(models.EmptyPanel(), smallCatalog(), models.Window1y, tday(0))
	if !m.NoData {
		t.Fatalf("empty panel must produce a no-data result")
	}
	if m.Window.Key != "1y" || !m.Generated.Equal(tday(0)) {
		t.Fatalf("no-data result must still carry window and timestamp")
	}
}

func TestComputeRollingCorrelationAgainstReference(t *testing.T) {
	n := 40
	series := make([]models.Series, 0)
	ref := models.Series{Label: "Nasdaq"}
	btc := models.Series{Label: "BTC"}
	yld := models.Series{Label: "10Y_Yield"}
	for i := 0; i < n; i++ {
		d := tday(i)
		v := 100 + float64(i%7)
		ref.Dates = append(ref.Dates, d)
		ref.Values = append(ref.Values, v*150)
		btc.Dates = append(btc.Dates, d)
		btc.Values = append(btc.Values, v)
		yld.Dates = append(yld.Dates, d)
		yld.Values = append(yld.Values, 4+float64(i%3)/10)
	}
	series = append(series, yld, btc, ref)
	panel := models.Concat(series)
	panel.FillForwardBackward()

	e := NewRiskEngine()
	m := e.Compute(panel, smallCatalog(), models.Window1y, tday(n))
	rc, ok := m.RollingCorrelation["BTC"]
	if !ok {
		t.Fatalf("expected rolling correlation for BTC")
	}
	defined := 0
	for _, v := range rc.Values {
		if !math.IsNaN(v) {
			defined++
		}
	}
	// n-1 return rows, first window-1 of them undefined.
	if want := (n - 1) - 29; defined != want {
		t.Fatalf("expected %d defined correlation points, got %d", want, defined)
	}
	// BTC prices are the reference divided by a constant: correlation 1.
	if last := rc.Values[len(rc.Values)-1]; math.Abs(last-1) > 1e-9 {
		t.Fatalf("expected correlation 1 with scaled reference, got %v", last)
	}
	if _, ok := m.RollingCorrelation["Nasdaq"]; ok {
		t.Fatalf("reference itself is not a risk asset")
	}
}

func TestComputeMatrixCoversAllColumns(t *testing.T) {
	market, macro := workingSources()
	p, _ := newTestPipeline(t, market, macro)
	panel, err := p.BuildPanel(context.Background(), models.Window1y, smallCatalog())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	m := NewRiskEngine().Compute(panel, smallCatalog(), models.Window1y, tday(5))
	if m.Matrix == nil {
		t.Fatalf("expected a correlation matrix")
	}
	if len(m.Matrix.Labels) != 3 {
		t.Fatalf("matrix must span macro and market columns, got %v", m.Matrix.Labels)
	}
	for i := range m.Matrix.Values {
		if m.Matrix.Values[i][i] != 1 {
			t.Fatalf("diagonal must be exactly 1")
		}
	}
}

func TestComputeNormalizedStartsAtOne(t *testing.T) {
	market, macro := workingSources()
	p, _ := newTestPipeline(t, market, macro)
	panel, _ := p.BuildPanel(context.Background(), models.Window1y, smallCatalog())

	m := NewRiskEngine().Compute(panel, smallCatalog(), models.Window1y, tday(5))
	for _, label := range m.Normalized.Labels {
		if v := m.Normalized.Columns[label][0]; math.Abs(v-1) > 1e-9 {
			t.Fatalf("normalized %s starts at %v, want 1", label, v)
		}
	}
}
