package repository

import (
	"context"
	"time"

	"CrossRisk/internal/domain/models"
)

// MarketDataSource serves closing prices for market instruments. One call
// covers every requested symbol; only the closing-price field of the source's
// OHLC payload is surfaced.
type MarketDataSource interface {
	FetchDailyCloses(ctx context.Context, symbols []string, window models.RiskWindow) (map[string]models.Series, error)
}

// MacroSeriesSource serves a single daily macro series per request, bounded
// by [from, to]. The source does not support batching.
type MacroSeriesSource interface {
	FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (models.Series, error)
}

// SnapshotPublisher hands refresh snapshots to a message broker.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap *models.RefreshSnapshot) error
	Close() error
}

// SnapshotArchive persists refresh snapshots for offline inspection.
type SnapshotArchive interface {
	Store(ctx context.Context, snap *models.RefreshSnapshot) error
	Query(ctx context.Context, window string, from, to time.Time, limit int) ([]*models.RefreshSnapshot, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational metrics for the refresh pipeline.
type Metrics interface {
	RecordRefresh(status string)
	RecordError(kind string)
	RecordFetchError(source string)
	RecordLastPrice(label string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSnapshotSent(backend string)
}
