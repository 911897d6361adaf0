package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CrossRisk/internal/domain/models"
	"CrossRisk/internal/domain/repository"
	pkgkafka "CrossRisk/pkg/kafka"
)

// ClickHouseSnapshotArchive implements SnapshotArchive for ClickHouse. Each
// snapshot is stored as one row per instrument, keyed by (window, ts).
type ClickHouseSnapshotArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseSnapshotArchive creates ClickHouse snapshot storage.
func NewClickHouseSnapshotArchive(db *sql.DB, table string) repository.SnapshotArchive {
	return &ClickHouseSnapshotArchive{db: db, table: table}
}

func (s *ClickHouseSnapshotArchive) Store(ctx context.Context, snap *models.RefreshSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if snap.NoData || len(snap.Instruments) == 0 {
		// Archive a marker row so no-data cycles remain visible.
		q := fmt.Sprintf("INSERT INTO %s (ts, window, label, last_price, volatility, max_drawdown, panel_rows, no_data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
		_, err := s.db.ExecContext(ctx, q, snap.GeneratedAt, snap.Window, "", 0.0, 0.0, 0.0, snap.Rows, 1)
		return err
	}

	values := make([]string, 0, len(snap.Instruments))
	args := make([]interface{}, 0, len(snap.Instruments)*8)
	for _, inst := range snap.Instruments {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			snap.GeneratedAt,
			snap.Window,
			inst.Label,
			inst.LastPrice,
			inst.Volatility,
			inst.MaxDrawdown,
			snap.Rows,
			0,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, window, label, last_price, volatility, max_drawdown, panel_rows, no_data) VALUES %s", s.table, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseSnapshotArchive) Query(ctx context.Context, window string, from, to time.Time, limit int) ([]*models.RefreshSnapshot, error) {
	q := fmt.Sprintf("SELECT ts, window, label, last_price, volatility, max_drawdown, panel_rows, no_data FROM %s WHERE window = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, window, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTS := make(map[int64]*models.RefreshSnapshot)
	var order []*models.RefreshSnapshot
	for rows.Next() {
		var (
			ts     time.Time
			w      string
			inst   models.InstrumentStat
			nRows  int
			noData int
		)
		if err := rows.Scan(&ts, &w, &inst.Label, &inst.LastPrice, &inst.Volatility, &inst.MaxDrawdown, &nRows, &noData); err != nil {
			return nil, err
		}
		snap, ok := byTS[ts.Unix()]
		if !ok {
			snap = &models.RefreshSnapshot{Window: w, GeneratedAt: ts, Rows: nRows, NoData: noData != 0}
			byTS[ts.Unix()] = snap
			order = append(order, snap)
		}
		if inst.Label != "" {
			snap.Instruments = append(snap.Instruments, inst)
		}
	}
	return order, rows.Err()
}

func (s *ClickHouseSnapshotArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotArchive) Close() error {
	return nil // Connection pool managed by pkg
}

// KafkaSnapshotPublisher implements SnapshotPublisher for Kafka.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates a Kafka snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) repository.SnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, snap *models.RefreshSnapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	// Key by window so consumers see per-window ordering.
	return p.producer.Publish(ctx, p.topic, []byte(snap.Window), snap)
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
