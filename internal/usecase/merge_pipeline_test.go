package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"CrossRisk/internal/domain/models"
)

func newTestPipeline(t *testing.T, market *fakeMarket, macro *fakeMacro) (*MergePipeline, *nopMetrics) {
	t.Helper()
	m := newNopMetrics()
	p := NewMergePipeline(market, macro, m, testLogger(t))
	p.now = func() time.Time { return tday(10) }
	return p, m
}

func TestBuildPanelMergesAndFills(t *testing.T) {
	market := &fakeMarket{series: map[string]models.Series{
		"^IXIC":   seriesOf("^IXIC", 15000, 15100, 14900),
		"BTC-USD": seriesOf("BTC-USD", 100, 110, 99),
	}}
	// The yield series misses the middle day; the fill must bridge it.
	macro := &fakeMacro{series: map[string]models.Series{
		"DGS10": {
			Label:  "DGS10",
			Dates:  []time.Time{tday(0), tday(2)},
			Values: []float64{4.1, 4.3},
		},
	}}
	p, _ := newTestPipeline(t, market, macro)

	panel, err := p.BuildPanel(context.Background(), models.Window1y, smallCatalog())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if panel.Rows() != 3 {
		t.Fatalf("expected 3 rows, got %d", panel.Rows())
	}
	// Macro columns come first, then market, both under display labels.
	want := []string{"10Y_Yield", "BTC", "Nasdaq"}
	if strings.Join(panel.Labels, ",") != strings.Join(want, ",") {
		t.Fatalf("labels = %v, want %v", panel.Labels, want)
	}
	y := panel.Columns["10Y_Yield"]
	if y[1] != 4.1 {
		t.Fatalf("gap should forward-fill to 4.1, got %v", y[1])
	}
}

func TestBuildPanelEmptyMarket(t *testing.T) {
	market := &fakeMarket{series: map[string]models.Series{}}
	macro := &fakeMacro{}
	p, _ := newTestPipeline(t, market, macro)

	panel, err := p.BuildPanel(context.Background(), models.Window1y, smallCatalog())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !panel.IsEmpty() {
		t.Fatalf("expected empty panel")
	}
	if macro.calls != 0 {
		t.Fatalf("macro fetch must be skipped when market data is empty")
	}
}

func TestBuildPanelMarketError(t *testing.T) {
	market := &fakeMarket{err: errors.New("rate limited")}
	p, m := newTestPipeline(t, market, &fakeMacro{})

	if _, err := p.BuildPanel(context.Background(), models.Window1y, smallCatalog()); err == nil {
		t.Fatalf("expected error")
	}
	if m.fetchErrors["market"] != 1 {
		t.Fatalf("expected market fetch error, got %v", m.fetchErrors)
	}
}

func TestBuildPanelMacroError(t *testing.T) {
	market := &fakeMarket{series: map[string]models.Series{
		"^IXIC":   seriesOf("^IXIC", 15000),
		"BTC-USD": seriesOf("BTC-USD", 100),
	}}
	macro := &fakeMacro{err: errors.New("fred down")}
	p, m := newTestPipeline(t, market, macro)

	if _, err := p.BuildPanel(context.Background(), models.Window1y, smallCatalog()); err == nil {
		t.Fatalf("expected error")
	}
	if m.fetchErrors["macro"] != 1 {
		t.Fatalf("expected macro fetch error, got %v", m.fetchErrors)
	}
}

func TestBuildPanelMacroBounds(t *testing.T) {
	market := &fakeMarket{series: map[string]models.Series{
		"^IXIC":   seriesOf("^IXIC", 15000),
		"BTC-USD": seriesOf("BTC-USD", 100),
	}}
	var gotFrom, gotTo time.Time
	macro := &boundsMacro{from: &gotFrom, to: &gotTo}
	m := newNopMetrics()
	p := NewMergePipeline(market, macro, m, testLogger(t))
	p.now = func() time.Time { return tday(10) }

	if _, err := p.BuildPanel(context.Background(), models.Window180d, smallCatalog()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !gotTo.Equal(tday(10)) {
		t.Fatalf("to = %v, want now", gotTo)
	}
	if !gotFrom.Equal(tday(10).AddDate(0, 0, -180)) {
		t.Fatalf("from = %v, want now-180d", gotFrom)
	}
}

type boundsMacro struct {
	from, to *time.Time
}

func (b *boundsMacro) FetchSeries(_ context.Context, id string, from, to time.Time) (models.Series, error) {
	*b.from = from
	*b.to = to
	return models.Series{Label: id}, nil
}
