package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CrossRisk/internal/domain/models"
)

func chartBody(symbol string, ts []int64, closes []float64) []byte {
	resp := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []map[string]interface{}{{
				"timestamp": ts,
				"indicators": map[string]interface{}{
					"quote": []map[string]interface{}{{"close": closes}},
				},
			}},
		},
	}
	b, _ := json.Marshal(resp)
	return b
}

func TestFetchDailyCloses(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Errorf("missing User-Agent header")
		}
		// Middle bar is a null close, which decodes to 0 and must be skipped.
		w.Write(chartBody("BTC-USD",
			[]int64{base.Unix(), base.AddDate(0, 0, 1).Unix(), base.AddDate(0, 0, 2).Unix()},
			[]float64{100, 0, 105}))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-agent", 5*time.Second)
	out, err := c.FetchDailyCloses(context.Background(), []string{"BTC-USD"}, models.Window1y)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	s := out["BTC-USD"]
	if s.Len() != 2 {
		t.Fatalf("expected 2 closes after dropping the null bar, got %d", s.Len())
	}
	if s.Values[0] != 100 || s.Values[1] != 105 {
		t.Fatalf("unexpected closes %v", s.Values)
	}
}

func TestFetchDailyClosesChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-agent", 5*time.Second)
	if _, err := c.FetchDailyCloses(context.Background(), []string{"NOPE"}, models.Window1y); err == nil {
		t.Fatalf("expected error for chart error payload")
	}
}

func TestFetchDailyClosesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-agent", 5*time.Second)
	if _, err := c.FetchDailyCloses(context.Background(), []string{"BTC-USD"}, models.Window1y); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestRangeParam(t *testing.T) {
	if got := rangeParam(models.Window180d); got != "6mo" {
		t.Fatalf("got %q", got)
	}
	if got := rangeParam(models.Window1y); got != "1y" {
		t.Fatalf("got %q", got)
	}
}
