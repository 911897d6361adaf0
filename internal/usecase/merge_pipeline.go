package usecase

import (
	"context"
	"fmt"
	"time"

	"CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
	applogger "CrossRisk/pkg/logger"
)

// MergePipeline fetches raw price and yield series from the two upstream
// sources and merges them onto a unified daily index. It performs no retries
// and no partial-result suppression: source errors propagate to the caller,
// and an empty market-data result yields an empty panel.
type MergePipeline struct {
	market  drepo.MarketDataSource
	macro   drepo.MacroSeriesSource
	metrics drepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

// NewMergePipeline creates a new MergePipeline instance.
func NewMergePipeline(market drepo.MarketDataSource, macro drepo.MacroSeriesSource, metrics drepo.Metrics, logger *applogger.Logger) *MergePipeline {
	return &MergePipeline{
		market:  market,
		macro:   macro,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildPanel produces a single panel containing every catalog instrument:
// batched market fetch, one macro fetch per series, rename to display
// labels, concat on the union of dates, sort ascending, forward-fill then
// backward-fill.
func (p *MergePipeline) BuildPanel(ctx context.Context, window models.RiskWindow, catalog *models.InstrumentCatalog) (*models.TimeSeriesPanel, error) {
	closes, err := p.market.FetchDailyCloses(ctx, catalog.MarketSymbols(), window)
	if err != nil {
		p.metrics.RecordFetchError("market")
		return nil, fmt.Errorf("market fetch: %w", err)
	}

	marketRows := 0
	for _, s := range closes {
		marketRows += s.Len()
	}
	if marketRows == 0 {
		p.logger.Warn("market fetch returned no rows",
			applogger.String("window", window.Key))
		return models.EmptyPanel(), nil
	}

	end := p.now().UTC()
	start := end.AddDate(0, 0, -window.LookbackDays)

	// Macro series first, then market closes, matching the merged column
	// order the dashboard expects.
	series := make([]models.Series, 0, len(catalog.Macro)+len(catalog.Market))
	for _, label := range catalog.MacroLabels() {
		id := catalog.Macro[label]
		s, err := p.macro.FetchSeries(ctx, id, start, end)
		if err != nil {
			p.metrics.RecordFetchError("macro")
			return nil, fmt.Errorf("macro fetch %s: %w", id, err)
		}
		s.Label = label
		series = append(series, s)
	}
	for _, label := range catalog.MarketLabels() {
		s := closes[catalog.Market[label]]
		s.Label = label
		series = append(series, s)
	}

	panel := models.Concat(series)
	panel.FillForwardBackward()

	p.logger.Debug("panel built",
		applogger.String("window", window.Key),
		applogger.Int("rows", panel.Rows()),
		applogger.Int("columns", len(panel.Labels)))
	return panel, nil
}
