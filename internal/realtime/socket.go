package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/config"
	svcErr "github.com/oggyb/destined/internal/errors"
	"github.com/oggyb/destined/internal/metrics"
)

const writeWait = 10 * time.Second

// Result is what an event handler answers on the requesting socket.
type Result struct {
	Event   string
	Message string
	Data    any
}

// EventFunc handles one inbound event. ctx carries the caller identity.
// A returned error is sent back as an "error" event; the socket stays open.
type EventFunc func(ctx context.Context, data json.RawMessage) (Result, error)

// Handler upgrades authenticated requests to WebSockets, joins them to the
// user's room and dispatches inbound events.
type Handler struct {
	registry *Registry
	verifier auth.Verifier
	cfg      config.SocketConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	events   map[string]EventFunc
}

func NewHandler(appCtx *app.AppContext, registry *Registry, verifier auth.Verifier) *Handler {
	return &Handler{
		registry: registry,
		verifier: verifier,
		cfg:      appCtx.Config.Socket,
		logger:   appCtx.Logger,
		metrics:  appCtx.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		events: make(map[string]EventFunc),
	}
}

// On registers fn for event. Must be called before serving.
func (h *Handler) On(event string, fn EventFunc) {
	h.events[event] = fn
}

// RegisterRoutes mounts the socket endpoint. The handshake authenticates
// on its own, so it lives on the public group.
func (h *Handler) RegisterRoutes(public, _ *gin.RouterGroup) {
	public.GET("/ws", h.Serve)
}

// Serve verifies the credential, upgrades, and runs the connection until
// either side closes it.
func (h *Handler) Serve(c *gin.Context) {
	id, err := h.verifier.Authenticate(auth.TokenFromRequest(c.Request))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user", id.UserID, "err", err)
		return
	}

	conn := NewConn(id.UserID, h.cfg.SendBuffer)
	if err := h.registry.Join(conn); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	h.metrics.SocketOpened()
	h.logger.Info("socket connected", "user", id.UserID)

	ctx, cancel := context.WithCancel(auth.WithIdentity(c.Request.Context(), id))
	defer func() {
		cancel()
		h.registry.Leave(conn)
		conn.Close()
		h.metrics.SocketClosed()
		h.logger.Info("socket disconnected", "user", id.UserID)
	}()

	go h.writePump(ws, conn)
	h.readPump(ctx, ws, conn)
}

func (h *Handler) readPump(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	idle := h.cfg.PingInterval + h.cfg.PongTimeout
	if h.cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(h.cfg.MaxMessageSize)
	}
	_ = ws.SetReadDeadline(time.Now().Add(idle))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("socket read failed", "user", conn.UserID, "err", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(idle))
		h.dispatch(ctx, conn, raw)
	}
}

// writePump is the only goroutine writing to ws.
func (h *Handler) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg := <-conn.Frames():
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-conn.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// dispatch runs one inbound frame. Events of a connection are handled in
// arrival order.
func (h *Handler) dispatch(ctx context.Context, conn *Conn, raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Event == "" {
		h.fail(conn, svcErr.InvalidArgument("Invalid message format"))
		return
	}

	fn, ok := h.events[in.Event]
	if !ok {
		h.fail(conn, svcErr.InvalidArgument("Unknown event"))
		return
	}

	data := bytes.TrimSpace(in.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		h.fail(conn, svcErr.InvalidArgument("No data provided"))
		return
	}

	res, err := fn(ctx, data)
	if err != nil {
		h.logger.Debug("socket event failed", "event", in.Event, "user", conn.UserID, "err", err)
		h.fail(conn, err)
		return
	}
	h.reply(conn, res.Event, Payload{Success: true, Message: res.Message, Data: res.Data})
}

func (h *Handler) fail(conn *Conn, err error) {
	h.reply(conn, EventError, Payload{Success: false, Message: svcErr.PublicMessage(err)})
}

func (h *Handler) reply(conn *Conn, event string, payload Payload) {
	msg, err := encode(event, payload)
	if err != nil {
		h.logger.Error("failed to encode reply", "event", event, "err", err)
		return
	}
	if !conn.push(msg) {
		h.logger.Debug("reply dropped on closed socket", "event", event, "user", conn.UserID)
	}
}
