package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CrossRisk/internal/domain/models"
)

type fakePublisher struct {
	published []*models.RefreshSnapshot
	err       error
	closed    bool
}

func (f *fakePublisher) Publish(_ context.Context, snap *models.RefreshSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, snap)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type fakeArchive struct {
	stored []*models.RefreshSnapshot
	err    error
	closed bool
}

func (f *fakeArchive) Store(_ context.Context, snap *models.RefreshSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, snap)
	return nil
}

func (f *fakeArchive) Query(context.Context, string, time.Time, time.Time, int) ([]*models.RefreshSnapshot, error) {
	return f.stored, nil
}

func (f *fakeArchive) Health(context.Context) error { return nil }

func (f *fakeArchive) Close() error {
	f.closed = true
	return nil
}

func testSnap() *models.RefreshSnapshot {
	return &models.RefreshSnapshot{
		Window:      "1y",
		GeneratedAt: tday(3),
		Rows:        100,
		Instruments: []models.InstrumentStat{{Label: "BTC", LastPrice: 105}},
	}
}

func TestProcessKafkaBackend(t *testing.T) {
	pub := &fakePublisher{}
	arch := &fakeArchive{}
	p := NewSnapshotProcessor(pub, arch, newNopMetrics(), BackendKafka)

	if err := p.Process(context.Background(), testSnap()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(pub.published) != 1 || len(arch.stored) != 0 {
		t.Fatalf("kafka backend must publish only, got pub=%d arch=%d", len(pub.published), len(arch.stored))
	}
}

func TestProcessClickHouseBackend(t *testing.T) {
	pub := &fakePublisher{}
	arch := &fakeArchive{}
	p := NewSnapshotProcessor(pub, arch, newNopMetrics(), BackendClickHouse)

	if err := p.Process(context.Background(), testSnap()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(arch.stored) != 1 || len(pub.published) != 0 {
		t.Fatalf("clickhouse backend must archive only, got pub=%d arch=%d", len(pub.published), len(arch.stored))
	}
}

func TestProcessNoneBackend(t *testing.T) {
	p := NewSnapshotProcessor(nil, nil, newNopMetrics(), BackendNone)
	if err := p.Process(context.Background(), testSnap()); err != nil {
		t.Fatalf("none backend must be a no-op, got %v", err)
	}
}

func TestProcessSinkError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewSnapshotProcessor(pub, nil, newNopMetrics(), BackendKafka)
	if err := p.Process(context.Background(), testSnap()); err == nil {
		t.Fatalf("expected sink error to propagate")
	}
}

func TestProcessorClose(t *testing.T) {
	pub := &fakePublisher{}
	arch := &fakeArchive{}
	p := NewSnapshotProcessor(pub, arch, newNopMetrics(), BackendKafka)
	p.Close()
	if !pub.closed || !arch.closed {
		t.Fatalf("close must reach both sinks")
	}
}

func TestKafkaSnapshotsHandlerArchives(t *testing.T) {
	arch := &fakeArchive{}
	h := NewKafkaSnapshotsHandler("risk.snapshots", arch, newNopMetrics())
	if h.Topic() != "risk.snapshots" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}

	payload := []byte(`{"window":"1y","generated_at":"2024-05-04T00:00:00Z","rows":10,"instruments":[{"label":"BTC","last_price":105}]}`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(arch.stored) != 1 || arch.stored[0].Instruments[0].Label != "BTC" {
		t.Fatalf("snapshot not archived: %+v", arch.stored)
	}
}

func TestKafkaSnapshotsHandlerBadPayload(t *testing.T) {
	h := NewKafkaSnapshotsHandler("risk.snapshots", &fakeArchive{}, newNopMetrics())
	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}
