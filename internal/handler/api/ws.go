package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CrossRisk/internal/domain/models"
	domsvc "CrossRisk/internal/domain/service"
	xlogger "CrossRisk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsSendBuffer   = 8
)

// Hub pushes refresh-complete notifications to connected dashboard clients.
// Clients reconnect and re-fetch via the REST API; the hub only tells them
// when a new snapshot exists.
type Hub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *xlogger.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*wsClient]struct{}),
	}
}

// Serve upgrades the request and keeps the connection registered until the
// peer goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.conns[cl] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// NotifySnapshot broadcasts a snapshot summary to every connected client.
// Slow clients are dropped rather than blocking the refresh cycle.
func (h *Hub) NotifySnapshot(snap *models.RefreshSnapshot) {
	if snap == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{
		"event":        "refresh",
		"window":       snap.Window,
		"generated_at": snap.GeneratedAt,
		"no_data":      snap.NoData,
	})
	if err != nil {
		h.logger.Error("marshal ws notification", xlogger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.conns {
		select {
		case cl.send <- msg:
		default:
			delete(h.conns, cl)
			close(cl.send)
		}
	}
}

func (h *Hub) writeLoop(cl *wsClient) {
	for msg := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	_ = cl.conn.Close()
}

// readLoop drains and discards client frames so control messages are
// processed and closes are detected.
func (h *Hub) readLoop(cl *wsClient) {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, ok := h.conns[cl]; ok {
		delete(h.conns, cl)
		close(cl.send)
	}
	h.mu.Unlock()
	_ = cl.conn.Close()
}

// Close drops every connection, used at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.conns {
		delete(h.conns, cl)
		close(cl.send)
	}
}

var _ domsvc.RefreshNotifier = (*Hub)(nil)
