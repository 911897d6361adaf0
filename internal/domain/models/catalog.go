package models

import "sort"

// InstrumentCatalog maps display labels to source identifiers, partitioned by
// which upstream serves the instrument. Immutable for the process lifetime.
type InstrumentCatalog struct {
	// Market maps display label -> market-data symbol (e.g. "BTC" -> "BTC-USD").
	Market map[string]string
	// Macro maps display label -> macro series id (e.g. "10Y_Yield" -> "DGS10").
	Macro map[string]string
	// RiskAssets are the labels vol/drawdown/rolling-correlation are computed
	// for. Must be a subset of Market labels.
	RiskAssets []string
	// Reference is the instrument rolling correlations are computed against.
	Reference string
}

// DefaultCatalog returns the built-in cross-asset instrument set.
func DefaultCatalog() *InstrumentCatalog {
	return &InstrumentCatalog{
		Market: map[string]string{
			"Nasdaq": "^IXIC",
			"Gold":   "GC=F",
			"BTC":    "BTC-USD",
			"ETH":    "ETH-USD",
			"SOL":    "SOL-USD",
			"XRP":    "XRP-USD",
		},
		Macro: map[string]string{
			"3M_Yield":  "DGS3MO",
			"1Y_Yield":  "DGS1",
			"2Y_Yield":  "DGS2",
			"10Y_Yield": "DGS10",
			"30Y_Yield": "DGS30",
		},
		RiskAssets: []string{"BTC", "ETH", "SOL", "XRP"},
		Reference:  "Nasdaq",
	}
}

// MarketLabels returns market display labels in deterministic order.
func (c *InstrumentCatalog) MarketLabels() []string {
	return sortedKeys(c.Market)
}

// MacroLabels returns macro display labels in deterministic order.
func (c *InstrumentCatalog) MacroLabels() []string {
	return sortedKeys(c.Macro)
}

// Labels returns every display label, macro first then market, matching the
// column order of the merged panel.
func (c *InstrumentCatalog) Labels() []string {
	out := c.MacroLabels()
	return append(out, c.MarketLabels()...)
}

// MarketSymbols returns the market source identifiers in the same order as
// MarketLabels.
func (c *InstrumentCatalog) MarketSymbols() []string {
	labels := c.MarketLabels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = c.Market[l]
	}
	return out
}

// LabelForSymbol resolves a market symbol back to its display label.
func (c *InstrumentCatalog) LabelForSymbol(symbol string) (string, bool) {
	for label, sym := range c.Market {
		if sym == symbol {
			return label, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
