package models

// RiskWindow is a (lookback period, sampling interval) pair drawn from a
// small enumerated set, selected per refresh.
type RiskWindow struct {
	Key          string
	LookbackDays int
	Interval     string
}

// Enumerated windows. Lookbacks of a year or less are forced to daily
// sampling: the market-data source only serves sub-daily history for a short
// trailing window.
var (
	Window180d = RiskWindow{Key: "180d", LookbackDays: 180, Interval: "1d"}
	Window1y   = RiskWindow{Key: "1y", LookbackDays: 365, Interval: "1d"}
)

// Windows lists every selectable window.
func Windows() []RiskWindow {
	return []RiskWindow{Window180d, Window1y}
}

// DefaultWindow is the window used when the trigger supplies none.
func DefaultWindow() RiskWindow { return Window1y }

// NormalizeWindow converts a raw key to a valid window (or the default).
func NormalizeWindow(key string) RiskWindow {
	for _, w := range Windows() {
		if w.Key == key {
			return w
		}
	}
	return DefaultWindow()
}

// SelectedView is the risk view the dashboard currently shows. Explicit
// enumerated state set by the event handler, not inferred from click counts.
type SelectedView string

const (
	ViewVolatility  SelectedView = "vol"
	ViewDrawdown    SelectedView = "drawdown"
	ViewCorrelation SelectedView = "correlation"
)

// NormalizeView converts a raw view key to a valid view (default volatility).
func NormalizeView(s string) SelectedView {
	switch SelectedView(s) {
	case ViewVolatility, ViewDrawdown, ViewCorrelation:
		return SelectedView(s)
	default:
		return ViewVolatility
	}
}
