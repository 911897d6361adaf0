package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CrossRisk/internal/domain/models"
	domrepo "CrossRisk/internal/domain/repository"
	pkgkafka "CrossRisk/pkg/kafka"
)

// KafkaSnapshotsHandler consumes published refresh snapshots and archives
// them to storage. Runs when the sink backend is kafka so the ClickHouse
// archive stays populated without the refresher writing to it directly.
type KafkaSnapshotsHandler struct {
	topic   string
	archive domrepo.SnapshotArchive
	metrics domrepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, archive domrepo.SnapshotArchive, metrics domrepo.Metrics) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	var snap models.RefreshSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	h.metrics.RecordLatency("snapshot_e2e_seconds", time.Since(snap.GeneratedAt).Seconds())

	start := time.Now()
	err := h.archive.Store(ctx, &snap)
	h.metrics.RecordLatency("archive_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordSnapshotSent("clickhouse")
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
