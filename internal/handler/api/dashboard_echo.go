package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	models "CrossRisk/internal/domain/models"
	drepo "CrossRisk/internal/domain/repository"
	icache "CrossRisk/internal/service/cache"
	svcmetrics "CrossRisk/internal/service/metrics"
	"CrossRisk/internal/usecase"
	xhttp "CrossRisk/pkg/http"
	xlogger "CrossRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the derived-metrics API the chart frontend renders
// from. All endpoints read the latest completed refresh; none of them run
// business logic.
type DashboardHandler struct {
	logger    *xlogger.Logger
	refresher *usecase.Refresher
	hub       *Hub
	archive   drepo.SnapshotArchive
	cache     icache.BytesCache
	cacheTTL  time.Duration
}

func NewDashboardHandler(logger *xlogger.Logger, refresher *usecase.Refresher, hub *Hub, archive drepo.SnapshotArchive, cache icache.BytesCache, cacheTTL time.Duration) *DashboardHandler {
	return &DashboardHandler{
		logger:    logger,
		refresher: refresher,
		hub:       hub,
		archive:   archive,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/windows", h.Windows)
	g.GET("/panel", h.Panel)
	g.GET("/normalized", h.Normalized)
	g.GET("/risk", h.Risk)
	g.GET("/matrix", h.Matrix)
	g.GET("/history", h.History)
	g.POST("/refresh", h.Refresh)
	g.GET("/health", h.Health)
	if h.hub != nil {
		e.GET("/ws", h.hub.Serve)
	}
}

// seriesDTO is one chart trace: defined points only, never NaN.
type seriesDTO struct {
	Label  string    `json:"label"`
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
}

type barDTO struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type noDataDTO struct {
	NoData  bool   `json:"no_data"`
	Message string `json:"message"`
}

func noDataPayload() noDataDTO {
	return noDataDTO{NoData: true, Message: "No data returned"}
}

// Windows lists the selectable risk windows.
func (h *DashboardHandler) Windows(c echo.Context) error {
	type windowDTO struct {
		Key          string `json:"key"`
		LookbackDays int    `json:"lookback_days"`
		Interval     string `json:"interval"`
	}
	out := make([]windowDTO, 0, len(models.Windows()))
	for _, w := range models.Windows() {
		out = append(out, windowDTO{Key: w.Key, LookbackDays: w.LookbackDays, Interval: w.Interval})
	}
	return xhttp.SuccessResponse(c, out)
}

// Panel returns the merged raw panel for the line-chart collaborator.
func (h *DashboardHandler) Panel(c echo.Context) error {
	req := &models.PanelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.panelResponse(c, "panel", req.Window, func(m *models.DerivedMetrics) *models.TimeSeriesPanel {
		return m.Panel
	})
}

// Normalized returns the panel divided by its first row.
func (h *DashboardHandler) Normalized(c echo.Context) error {
	req := &models.PanelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.panelResponse(c, "normalized", req.Window, func(m *models.DerivedMetrics) *models.TimeSeriesPanel {
		return m.Normalized
	})
}

// Risk returns the selected risk view: volatility or drawdown bars, or the
// rolling-correlation traces vs the reference instrument.
func (h *DashboardHandler) Risk(c echo.Context) error {
	start := time.Now()
	req := &models.RiskViewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view := models.NormalizeView(req.View)
	defer func() {
		svcmetrics.DashboardLatency.WithLabelValues("risk_" + string(view)).Observe(time.Since(start).Seconds())
	}()

	m, ok := h.snapshotFor(req.Window)
	if !ok {
		return xhttp.NotFoundResponse(c, "no refresh has completed yet")
	}
	if m.NoData {
		return xhttp.SuccessResponse(c, noDataPayload())
	}

	key := h.cacheKey("risk_"+string(view), m)
	if b, hit := h.cached(key); hit {
		return c.JSONBlob(http.StatusOK, b)
	}

	var payload interface{}
	switch view {
	case models.ViewVolatility:
		payload = barsPayload("Annualized Volatility", m.Volatility, m)
	case models.ViewDrawdown:
		payload = barsPayload("Max Drawdown", m.MaxDrawdown, m)
	case models.ViewCorrelation:
		payload = h.correlationPayload(m)
	}
	return h.respondCached(c, key, payload)
}

// Matrix returns the full cross-asset correlation matrix.
func (h *DashboardHandler) Matrix(c echo.Context) error {
	req := &models.MatrixRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	m, ok := h.snapshotFor(req.Window)
	if !ok {
		return xhttp.NotFoundResponse(c, "no refresh has completed yet")
	}
	if m.NoData || m.Matrix == nil {
		return xhttp.SuccessResponse(c, noDataPayload())
	}

	key := h.cacheKey("matrix", m)
	if b, hit := h.cached(key); hit {
		return c.JSONBlob(http.StatusOK, b)
	}

	// Degenerate columns produce NaN correlations; marshal those as null.
	values := make([][]*float64, len(m.Matrix.Values))
	for i, row := range m.Matrix.Values {
		values[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				values[i][j] = &v
			}
		}
	}
	payload := map[string]interface{}{
		"window":       m.Window.Key,
		"generated_at": m.Generated,
		"labels":       m.Matrix.Labels,
		"values":       values,
	}
	return h.respondCached(c, key, payload)
}

// History lists archived refresh snapshots for a window. Only available when
// a ClickHouse archive is wired.
func (h *DashboardHandler) History(c echo.Context) error {
	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("snapshot archive not configured"))
	}

	window := models.NormalizeWindow(c.QueryParam("window")).Key
	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.AddDate(0, 0, -7))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 100)

	snaps, err := h.archive.Query(c.Request().Context(), window, from, to, limit)
	if err != nil {
		svcmetrics.DashboardErrors.WithLabelValues("history").Inc()
		h.logger.Error("snapshot history query", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("snapshot history query failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, snaps)
}

// Refresh triggers an out-of-band refresh for the given window.
func (h *DashboardHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.refresher.Trigger(models.NormalizeWindow(req.Window))
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"window": req.Window, "state": "scheduled"})
}

// Health reports whether at least one refresh has completed.
func (h *DashboardHandler) Health(c echo.Context) error {
	m := h.refresher.Latest()
	status := map[string]interface{}{"ready": m != nil}
	if m != nil {
		status["last_refresh"] = m.Generated
		status["no_data"] = m.NoData
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *DashboardHandler) panelResponse(c echo.Context, kind, window string, pick func(*models.DerivedMetrics) *models.TimeSeriesPanel) error {
	m, ok := h.snapshotFor(window)
	if !ok {
		return xhttp.NotFoundResponse(c, "no refresh has completed yet")
	}
	if m.NoData {
		return xhttp.SuccessResponse(c, noDataPayload())
	}

	key := h.cacheKey(kind, m)
	if b, hit := h.cached(key); hit {
		return c.JSONBlob(http.StatusOK, b)
	}

	panel := pick(m)
	dates := formatDates(panel.Dates)
	series := make([]seriesDTO, 0, len(panel.Labels))
	for _, label := range panel.Labels {
		dto := seriesDTO{Label: label, Dates: dates}
		for _, v := range panel.Columns[label] {
			dto.Values = append(dto.Values, v)
		}
		if hasNaN(dto.Values) {
			dto.Dates, dto.Values = definedPoints(panel.Dates, panel.Columns[label])
		}
		series = append(series, dto)
	}
	payload := map[string]interface{}{
		"window":       m.Window.Key,
		"generated_at": m.Generated,
		"series":       series,
	}
	return h.respondCached(c, key, payload)
}

func (h *DashboardHandler) correlationPayload(m *models.DerivedMetrics) interface{} {
	series := make([]seriesDTO, 0, len(m.RollingCorrelation))
	for _, label := range m.Returns.Labels {
		rc, ok := m.RollingCorrelation[label]
		if !ok {
			continue
		}
		dates, values := definedPoints(rc.Dates, rc.Values)
		if len(values) == 0 {
			// Undefined for the whole window; exclude the trace entirely.
			continue
		}
		series = append(series, seriesDTO{Label: label, Dates: dates, Values: values})
	}
	return map[string]interface{}{
		"window":       m.Window.Key,
		"generated_at": m.Generated,
		"reference":    h.refresher.Catalog().Reference,
		"series":       series,
	}
}

// snapshotFor returns the latest result if it matches the requested window.
// A mismatching window schedules a refresh for it and still serves the
// current snapshot: last completed refresh wins.
func (h *DashboardHandler) snapshotFor(window string) (*models.DerivedMetrics, bool) {
	m := h.refresher.Latest()
	if m == nil {
		return nil, false
	}
	if w := models.NormalizeWindow(window); w.Key != m.Window.Key {
		h.refresher.Trigger(w)
	}
	return m, true
}

func (h *DashboardHandler) cacheKey(kind string, m *models.DerivedMetrics) string {
	// Generation timestamp in the key makes stale entries unreachable the
	// moment a new snapshot lands.
	return fmt.Sprintf("dash:%s:%s:%d", kind, m.Window.Key, m.Generated.Unix())
}

func (h *DashboardHandler) cached(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	return b, true
}

func (h *DashboardHandler) respondCached(c echo.Context, key string, payload interface{}) error {
	wrapped := xhttp.APIResponse{Status: http.StatusOK, Message: http.StatusText(http.StatusOK), Data: payload}
	b, err := json.Marshal(wrapped)
	if err != nil {
		svcmetrics.DashboardErrors.WithLabelValues("marshal").Inc()
		h.logger.Error("marshal dashboard payload", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		_ = h.cache.SetBytes(key, b, h.cacheTTL)
	}
	return c.JSONBlob(http.StatusOK, b)
}

func barsPayload(title string, stats map[string]float64, m *models.DerivedMetrics) interface{} {
	bars := make([]barDTO, 0, len(stats))
	for _, label := range m.Panel.Labels {
		v, ok := stats[label]
		if !ok || math.IsNaN(v) {
			// Undefined statistics are excluded, never plotted as zero.
			continue
		}
		bars = append(bars, barDTO{Label: label, Value: v})
	}
	return map[string]interface{}{
		"window":       m.Window.Key,
		"generated_at": m.Generated,
		"title":        title,
		"bars":         bars,
	}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}

func definedPoints(dates []time.Time, values []float64) ([]string, []float64) {
	var ds []string
	var vs []float64
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		ds = append(ds, dates[i].Format("2006-01-02"))
		vs = append(vs, v)
	}
	return ds, vs
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
