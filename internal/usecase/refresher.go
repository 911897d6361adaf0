package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
	domsvc "CrossRisk/internal/domain/service"
	applogger "CrossRisk/pkg/logger"
)

// Refresher drives the refresh cycle: a recurring timer plus manual triggers
// feed a single worker goroutine, so refreshes never overlap and the last
// completed refresh wins. One refresh is a pure function of
// (RiskWindow, InstrumentCatalog); the only state kept between cycles is the
// latest completed result.
type Refresher struct {
	pipeline domsvc.MergePipeline
	engine   domsvc.RiskEngine
	proc     *SnapshotProcessor
	catalog  *models.InstrumentCatalog
	metrics  drepo.Metrics
	logger   *applogger.Logger
	notifier domsvc.RefreshNotifier

	interval time.Duration
	window   models.RiskWindow

	triggerCh chan models.RiskWindow

	mu     sync.RWMutex
	latest *models.DerivedMetrics
}

// NewRefresher creates a new Refresher instance. notifier may be nil.
func NewRefresher(
	pipeline domsvc.MergePipeline,
	engine domsvc.RiskEngine,
	proc *SnapshotProcessor,
	catalog *models.InstrumentCatalog,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	interval time.Duration,
	defaultWindow models.RiskWindow,
) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Refresher{
		pipeline:  pipeline,
		engine:    engine,
		proc:      proc,
		catalog:   catalog,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		window:    defaultWindow,
		triggerCh: make(chan models.RiskWindow, 1),
	}
}

// SetNotifier injects the refresh notifier (websocket hub).
func (r *Refresher) SetNotifier(n domsvc.RefreshNotifier) { r.notifier = n }

// Catalog returns the immutable instrument catalog.
func (r *Refresher) Catalog() *models.InstrumentCatalog { return r.catalog }

// Latest returns the most recently completed refresh result, or nil before
// the first cycle finishes.
func (r *Refresher) Latest() *models.DerivedMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// Trigger requests a refresh for the given window. Non-blocking: a trigger
// arriving while one is already pending is coalesced.
func (r *Refresher) Trigger(window models.RiskWindow) {
	select {
	case r.triggerCh <- window:
	default:
	}
}

// Run executes an initial refresh, then serves timer ticks and manual
// triggers until the context is done.
func (r *Refresher) Run(ctx context.Context) error {
	r.refresh(ctx, r.window)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx, r.window)
		case w := <-r.triggerCh:
			r.window = w
			r.refresh(ctx, w)
		}
	}
}

// RefreshOnce runs one full cycle for the given window and returns its
// result without touching the timer loop. This is the explicit
// (RiskWindow, InstrumentCatalog) -> DerivedMetrics entry point.
func (r *Refresher) RefreshOnce(ctx context.Context, window models.RiskWindow) (*models.DerivedMetrics, error) {
	start := time.Now()

	panel, err := r.pipeline.BuildPanel(ctx, window, r.catalog)
	if err != nil {
		r.metrics.RecordRefresh("error")
		return nil, err
	}

	m := r.engine.Compute(panel, r.catalog, window, time.Now().UTC())
	r.metrics.RecordLatency("refresh", time.Since(start).Seconds())
	if m.NoData {
		r.metrics.RecordRefresh("no_data")
	} else {
		r.metrics.RecordRefresh("ok")
		r.recordLastPrices(m)
	}
	return m, nil
}

// refresh runs one cycle, keeping the previous snapshot on upstream failure.
func (r *Refresher) refresh(ctx context.Context, window models.RiskWindow) {
	m, err := r.RefreshOnce(ctx, window)
	if err != nil {
		r.logger.Error("refresh failed, keeping previous snapshot",
			applogger.String("window", window.Key),
			applogger.Error(err))
		return
	}

	r.mu.Lock()
	r.latest = m
	r.mu.Unlock()

	snap := m.Snapshot()
	if r.proc != nil {
		if err := r.proc.Process(ctx, snap); err != nil {
			r.logger.Warn("snapshot sink error", applogger.Error(err))
		}
	}
	if r.notifier != nil {
		r.notifier.NotifySnapshot(snap)
	}

	r.logger.Info("refresh complete",
		applogger.String("window", window.Key),
		applogger.Int("rows", m.Panel.Rows()),
		applogger.Bool("no_data", m.NoData))
}

func (r *Refresher) recordLastPrices(m *models.DerivedMetrics) {
	for _, label := range m.Panel.Labels {
		col := m.Panel.Columns[label]
		if len(col) == 0 {
			continue
		}
		if last := col[len(col)-1]; !math.IsNaN(last) {
			r.metrics.RecordLastPrice(label, last)
		}
	}
}
