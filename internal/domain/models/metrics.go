package models

import (
	"math"
	"time"
)

// CorrelationMatrix is the full pairwise Pearson correlation of the returns
// panel: symmetric, diagonal 1, values rounded to 3 decimals for display.
type CorrelationMatrix struct {
	Labels []string
	Values [][]float64
}

// DerivedMetrics holds everything one refresh computes. Recomputed from
// scratch every refresh and never merged with prior results.
type DerivedMetrics struct {
	Window    RiskWindow
	Generated time.Time
	NoData    bool

	Panel      *TimeSeriesPanel
	Returns    *TimeSeriesPanel
	Normalized *TimeSeriesPanel

	// Per risk asset. NaN means the statistic is undefined for the window.
	Volatility  map[string]float64
	MaxDrawdown map[string]float64

	// Rolling correlation of each risk asset's returns vs the reference
	// instrument. The first windowSize-1 points are NaN.
	RollingCorrelation map[string]Series

	Matrix *CorrelationMatrix
}

// NoDataMetrics is the result of a refresh whose market-data fetch returned
// zero rows. Callers short-circuit to a "no data" display state.
func NoDataMetrics(w RiskWindow, at time.Time) *DerivedMetrics {
	return &DerivedMetrics{Window: w, Generated: at, NoData: true, Panel: EmptyPanel()}
}

// InstrumentStat is one archived statistic row in a refresh snapshot.
type InstrumentStat struct {
	Label       string  `json:"label"`
	LastPrice   float64 `json:"last_price"`
	Volatility  float64 `json:"volatility,omitempty"`
	MaxDrawdown float64 `json:"max_drawdown,omitempty"`
}

// RefreshSnapshot is the compact per-refresh record handed to downstream
// sinks (Kafka topic, ClickHouse archive) and pushed to websocket clients.
// NaN statistics are dropped before the snapshot is built so it always
// marshals cleanly.
type RefreshSnapshot struct {
	Window      string           `json:"window"`
	GeneratedAt time.Time        `json:"generated_at"`
	NoData      bool             `json:"no_data"`
	Rows        int              `json:"rows"`
	Instruments []InstrumentStat `json:"instruments"`
}

// Snapshot condenses derived metrics into a sink-ready record.
func (m *DerivedMetrics) Snapshot() *RefreshSnapshot {
	snap := &RefreshSnapshot{
		Window:      m.Window.Key,
		GeneratedAt: m.Generated,
		NoData:      m.NoData,
		Rows:        m.Panel.Rows(),
	}
	if m.NoData {
		return snap
	}
	for _, label := range m.Panel.Labels {
		col := m.Panel.Columns[label]
		if len(col) == 0 || math.IsNaN(col[len(col)-1]) {
			continue
		}
		stat := InstrumentStat{Label: label, LastPrice: col[len(col)-1]}
		if v, ok := m.Volatility[label]; ok && !math.IsNaN(v) {
			stat.Volatility = v
		}
		if v, ok := m.MaxDrawdown[label]; ok && !math.IsNaN(v) {
			stat.MaxDrawdown = v
		}
		snap.Instruments = append(snap.Instruments, stat)
	}
	return snap
}
