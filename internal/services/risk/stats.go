package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"CrossRisk/internal/domain/models"
)

// Crypto instruments trade every calendar day, so annualization uses 365
// periods rather than a trading-day convention.
const periodsPerYear = 365

// RollingWindow is the trailing observation count for rolling correlations.
const RollingWindow = 30

// PctChangeReturns converts a price panel into simple row-over-row returns.
// The first row (no prior value) is dropped; rows with any residual gap are
// dropped before computation.
func PctChangeReturns(panel *models.TimeSeriesPanel) *models.TimeSeriesPanel {
	clean := panel.DropGapRows()
	if clean.Rows() < 2 {
		return models.EmptyPanel()
	}
	out := &models.TimeSeriesPanel{
		Dates:   clean.Dates[1:],
		Labels:  clean.Labels,
		Columns: make(map[string][]float64, len(clean.Labels)),
	}
	for _, label := range clean.Labels {
		col := clean.Columns[label]
		rets := make([]float64, len(col)-1)
		for i := 1; i < len(col); i++ {
			if col[i-1] == 0 {
				rets[i-1] = math.NaN()
				continue
			}
			rets[i-1] = col[i]/col[i-1] - 1
		}
		out.Columns[label] = rets
	}
	// A zero prior price yields a NaN return; drop such rows too.
	return out.DropGapRows()
}

// AnnualizedVolatility is the sample standard deviation of returns scaled by
// sqrt(365). NaN when fewer than two observations exist.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear)
}

// MaxDrawdown is the most negative peak-to-trough decline of a raw price
// series: min over t of price(t)/runningMax(t) - 1. Zero when the series
// only made new highs; NaN for an empty series.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return math.NaN()
	}
	runningMax := prices[0]
	worst := 0.0
	for _, p := range prices {
		if p > runningMax {
			runningMax = p
		}
		if runningMax > 0 {
			if dd := p/runningMax - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// RollingCorrelation computes the Pearson correlation of x and y over a
// trailing window of the given size. The first window-1 points are NaN; the
// whole result is NaN when len(x) < window.
func RollingCorrelation(x, y []float64, window int) []float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 || n < window {
		return out
	}
	for i := window - 1; i < n; i++ {
		out[i] = stat.Correlation(x[i-window+1:i+1], y[i-window+1:i+1], nil)
	}
	return out
}

// CorrelationMatrix computes the full pairwise Pearson correlation of a
// returns panel, rounded to 3 decimals. Diagonal entries are exactly 1.
func CorrelationMatrix(returns *models.TimeSeriesPanel) *models.CorrelationMatrix {
	labels := returns.Labels
	n := len(labels)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		values[i][i] = 1
		for j := i + 1; j < n; j++ {
			c := round3(stat.Correlation(returns.Columns[labels[i]], returns.Columns[labels[j]], nil))
			values[i][j] = c
			values[j][i] = c
		}
	}
	return &models.CorrelationMatrix{Labels: labels, Values: values}
}

// Normalize divides every column by its first value, the base-100-style
// transform behind the normalized movement chart.
func Normalize(panel *models.TimeSeriesPanel) *models.TimeSeriesPanel {
	if panel.IsEmpty() {
		return models.EmptyPanel()
	}
	out := &models.TimeSeriesPanel{
		Dates:   panel.Dates,
		Labels:  panel.Labels,
		Columns: make(map[string][]float64, len(panel.Labels)),
	}
	for _, label := range panel.Labels {
		col := panel.Columns[label]
		base := col[0]
		norm := make([]float64, len(col))
		for i, v := range col {
			if base == 0 || math.IsNaN(base) {
				norm[i] = math.NaN()
				continue
			}
			norm[i] = v / base
		}
		out.Columns[label] = norm
	}
	return out
}

func round3(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*1000) / 1000
}
