package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"CrossRisk/internal/domain/models"
	applogger "CrossRisk/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// nopMetrics counts calls so tests can assert on recorded outcomes.
type nopMetrics struct {
	refreshes   map[string]int
	fetchErrors map[string]int
}

func newNopMetrics() *nopMetrics {
	return &nopMetrics{refreshes: map[string]int{}, fetchErrors: map[string]int{}}
}

func (m *nopMetrics) RecordRefresh(status string)    { m.refreshes[status]++ }
func (m *nopMetrics) RecordError(string)             {}
func (m *nopMetrics) RecordFetchError(source string) { m.fetchErrors[source]++ }
func (m *nopMetrics) RecordLastPrice(string, float64) {}
func (m *nopMetrics) RecordLatency(string, float64)   {}
func (m *nopMetrics) RecordSnapshotSent(string)       {}

type fakeMarket struct {
	series map[string]models.Series
	err    error
	calls  int
}

func (f *fakeMarket) FetchDailyCloses(_ context.Context, symbols []string, _ models.RiskWindow) (map[string]models.Series, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Series, len(symbols))
	for _, sym := range symbols {
		out[sym] = f.series[sym]
	}
	return out, nil
}

type fakeMacro struct {
	series map[string]models.Series
	err    error
	calls  int
}

func (f *fakeMacro) FetchSeries(_ context.Context, id string, _, _ time.Time) (models.Series, error) {
	f.calls++
	if f.err != nil {
		return models.Series{}, f.err
	}
	return f.series[id], nil
}

func tday(n int) time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func seriesOf(label string, vals ...float64) models.Series {
	s := models.Series{Label: label}
	for i, v := range vals {
		s.Dates = append(s.Dates, tday(i))
		s.Values = append(s.Values, v)
	}
	return s
}

func smallCatalog() *models.InstrumentCatalog {
	return &models.InstrumentCatalog{
		Market: map[string]string{
			"Nasdaq": "^IXIC",
			"BTC":    "BTC-USD",
		},
		Macro:      map[string]string{"10Y_Yield": "DGS10"},
		RiskAssets: []string{"BTC"},
		Reference:  "Nasdaq",
	}
}

func workingSources() (*fakeMarket, *fakeMacro) {
	market := &fakeMarket{series: map[string]models.Series{
		"^IXIC":   seriesOf("^IXIC", 15000, 15100, 14900, 15200, 15300),
		"BTC-USD": seriesOf("BTC-USD", 100, 110, 99, 105, 112),
	}}
	macro := &fakeMacro{series: map[string]models.Series{
		"DGS10": seriesOf("DGS10", 4.1, 4.2, 4.15, 4.3, 4.25),
	}}
	return market, macro
}

func newTestRefresher(t *testing.T, market *fakeMarket, macro *fakeMacro) (*Refresher, *nopMetrics) {
	t.Helper()
	m := newNopMetrics()
	l := testLogger(t)
	pipeline := NewMergePipeline(market, macro, m, l)
	proc := NewSnapshotProcessor(nil, nil, m, BackendNone)
	r := NewRefresher(pipeline, NewRiskEngine(), proc, smallCatalog(), m, l, time.Minute, models.Window1y)
	return r, m
}

func TestRefreshOncePopulatesMetrics(t *testing.T) {
	market, macro := workingSources()
	r, m := newTestRefresher(t, market, macro)

	res, err := r.RefreshOnce(context.Background(), models.Window1y)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.NoData {
		t.Fatalf("expected data")
	}
	if res.Panel.Rows() != 5 {
		t.Fatalf("expected 5 panel rows, got %d", res.Panel.Rows())
	}
	if v, ok := res.Volatility["BTC"]; !ok || math.IsNaN(v) {
		t.Fatalf("expected BTC volatility, got %v (ok=%v)", v, ok)
	}
	if dd := res.MaxDrawdown["BTC"]; math.Abs(dd-(-0.10)) > 1e-9 {
		t.Fatalf("BTC drawdown = %v, want -0.10", dd)
	}
	if _, ok := res.Volatility["Nasdaq"]; ok {
		t.Fatalf("reference instrument is not a risk asset")
	}
	if res.Matrix == nil || len(res.Matrix.Labels) != 3 {
		t.Fatalf("expected full 3x3 matrix")
	}
	if m.refreshes["ok"] != 1 {
		t.Fatalf("expected one ok refresh, got %v", m.refreshes)
	}
}

func TestRefreshOnceNoData(t *testing.T) {
	market := &fakeMarket{series: map[string]models.Series{}}
	macro := &fakeMacro{}
	r, m := newTestRefresher(t, market, macro)

	res, err := r.RefreshOnce(context.Background(), models.Window180d)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !res.NoData {
		t.Fatalf("expected no-data result")
	}
	if macro.calls != 0 {
		t.Fatalf("macro must not be fetched when market returned nothing")
	}
	if m.refreshes["no_data"] != 1 {
		t.Fatalf("expected one no_data refresh, got %v", m.refreshes)
	}
}

func TestRefreshKeepsPreviousSnapshotOnError(t *testing.T) {
	market, macro := workingSources()
	r, _ := newTestRefresher(t, market, macro)

	ctx := context.Background()
	r.refresh(ctx, models.Window1y)
	first := r.Latest()
	if first == nil {
		t.Fatalf("expected a snapshot after the first refresh")
	}

	market.err = errors.New("upstream down")
	r.refresh(ctx, models.Window1y)
	if r.Latest() != first {
		t.Fatalf("failed refresh must keep the previous snapshot")
	}
}

func TestRefreshErrorRecordsMetric(t *testing.T) {
	market := &fakeMarket{err: errors.New("boom")}
	r, m := newTestRefresher(t, market, &fakeMacro{})

	if _, err := r.RefreshOnce(context.Background(), models.Window1y); err == nil {
		t.Fatalf("expected error")
	}
	if m.refreshes["error"] != 1 {
		t.Fatalf("expected one error refresh, got %v", m.refreshes)
	}
	if m.fetchErrors["market"] != 1 {
		t.Fatalf("expected market fetch error recorded, got %v", m.fetchErrors)
	}
}

func TestTriggerCoalesces(t *testing.T) {
	market, macro := workingSources()
	r, _ := newTestRefresher(t, market, macro)

	r.Trigger(models.Window180d)
	r.Trigger(models.Window1y) // coalesced away while one is pending
	if len(r.triggerCh) != 1 {
		t.Fatalf("expected a single pending trigger, got %d", len(r.triggerCh))
	}
	if w := <-r.triggerCh; w.Key != "180d" {
		t.Fatalf("pending trigger should be the first one, got %s", w.Key)
	}
}

func TestRefreshNotifiesHub(t *testing.T) {
	market, macro := workingSources()
	r, _ := newTestRefresher(t, market, macro)

	got := make(chan *models.RefreshSnapshot, 1)
	r.SetNotifier(notifierFunc(func(s *models.RefreshSnapshot) { got <- s }))

	r.refresh(context.Background(), models.Window1y)
	select {
	case snap := <-got:
		if snap.Window != "1y" || len(snap.Instruments) == 0 {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	default:
		t.Fatalf("notifier was not called")
	}
}

type notifierFunc func(*models.RefreshSnapshot)

func (f notifierFunc) NotifySnapshot(s *models.RefreshSnapshot) { f(s) }
