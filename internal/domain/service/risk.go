package service

import (
	"context"
	"time"

	"CrossRisk/internal/domain/models"
)

// MergePipeline builds one merged cross-source panel per refresh.
type MergePipeline interface {
	BuildPanel(ctx context.Context, window models.RiskWindow, catalog *models.InstrumentCatalog) (*models.TimeSeriesPanel, error)
}

// RiskEngine derives risk statistics from a merged panel. Purely functional:
// no side effects, undefined statistics come back as NaN.
type RiskEngine interface {
	Compute(panel *models.TimeSeriesPanel, catalog *models.InstrumentCatalog, window models.RiskWindow, at time.Time) *models.DerivedMetrics
}

// RefreshNotifier is told about every completed refresh. The websocket hub
// implements this to push snapshot summaries to connected dashboards.
type RefreshNotifier interface {
	NotifySnapshot(snap *models.RefreshSnapshot)
}
