package usecase

import (
	"context"
	"fmt"
	"time"

	"CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
)

// Backend types for the snapshot sink.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendNone       = "none"
)

// SnapshotProcessor routes refresh snapshots to the configured sink backend.
// The dashboard itself serves from the in-process latest snapshot; sinks are
// for downstream consumers and offline inspection.
type SnapshotProcessor struct {
	pub     drepo.SnapshotPublisher
	archive drepo.SnapshotArchive
	metrics drepo.Metrics
	backend string
}

// NewSnapshotProcessor creates a new SnapshotProcessor instance.
func NewSnapshotProcessor(pub drepo.SnapshotPublisher, archive drepo.SnapshotArchive, metrics drepo.Metrics, backend string) *SnapshotProcessor {
	return &SnapshotProcessor{pub: pub, archive: archive, metrics: metrics, backend: backend}
}

// Process hands one snapshot to the configured backend.
func (p *SnapshotProcessor) Process(ctx context.Context, snap *models.RefreshSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.Publish(ctx, snap)
	case BackendClickHouse:
		err = p.archive.Store(ctx, snap)
	case BackendNone, "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("snapshot_sink")
		return fmt.Errorf("process snapshot: %w", err)
	}

	p.metrics.RecordSnapshotSent(p.backend)
	p.metrics.RecordLatency("snapshot_sink", time.Since(start).Seconds())
	return nil
}

// Close closes underlying sink resources if available.
func (p *SnapshotProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.archive != nil {
		_ = p.archive.Close()
	}
}
