package usecase

import (
	"time"

	"CrossRisk/internal/domain/models"
	"CrossRisk/internal/services/risk"
)

// RiskEngine derives risk statistics from a merged panel: returns panel,
// annualized volatility, maximum drawdown, rolling correlation vs the
// reference instrument, and the full correlation matrix. Purely functional;
// undefined statistics are NaN, never a fault.
type RiskEngine struct{}

// NewRiskEngine creates a new RiskEngine instance.
func NewRiskEngine() *RiskEngine { return &RiskEngine{} }

// Compute runs every derived statistic for one refresh. An empty panel
// short-circuits to a no-data result without touching the statistics.
func (e *RiskEngine) Compute(panel *models.TimeSeriesPanel, catalog *models.InstrumentCatalog, window models.RiskWindow, at time.Time) *models.DerivedMetrics {
	if panel.IsEmpty() {
		return models.NoDataMetrics(window, at)
	}

	clean := panel.DropGapRows()
	if clean.IsEmpty() {
		return models.NoDataMetrics(window, at)
	}

	returnsAll := risk.PctChangeReturns(clean)

	riskAssets := catalog.RiskAssets
	if len(riskAssets) == 0 {
		riskAssets = clean.Labels
	}
	pricesRisk := clean.Subset(riskAssets)
	returnsRisk := returnsAll.Subset(riskAssets)

	m := &models.DerivedMetrics{
		Window:             window,
		Generated:          at,
		Panel:              clean,
		Returns:            returnsAll,
		Normalized:         risk.Normalize(clean),
		Volatility:         make(map[string]float64, len(pricesRisk.Labels)),
		MaxDrawdown:        make(map[string]float64, len(pricesRisk.Labels)),
		RollingCorrelation: make(map[string]models.Series, len(returnsRisk.Labels)),
	}

	for _, label := range pricesRisk.Labels {
		m.MaxDrawdown[label] = risk.MaxDrawdown(pricesRisk.Columns[label])
	}
	for _, label := range returnsRisk.Labels {
		m.Volatility[label] = risk.AnnualizedVolatility(returnsRisk.Columns[label])
	}

	if refRets := returnsAll.Column(catalog.Reference); refRets != nil {
		for _, label := range returnsRisk.Labels {
			corr := risk.RollingCorrelation(returnsAll.Column(label), refRets, risk.RollingWindow)
			m.RollingCorrelation[label] = models.Series{
				Label:  label,
				Dates:  returnsAll.Dates,
				Values: corr,
			}
		}
	}

	if !returnsAll.IsEmpty() {
		m.Matrix = risk.CorrelationMatrix(returnsAll)
	}
	return m
}
