package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/destined/internal/app"
	"github.com/oggyb/destined/internal/auth"
	"github.com/oggyb/destined/internal/realtime"
)

// SocketServer is a running /ws endpoint backed by a fresh Registry.
type SocketServer struct {
	URL      string
	Registry *realtime.Registry
	Handler  *realtime.Handler
	JWT      *auth.JWTService
}

// NewSocketServer starts an httptest server serving /ws. bind registers
// events on the handler before the server starts.
func NewSocketServer(t *testing.T, appCtx *app.AppContext, bind func(h *realtime.Handler, reg *realtime.Registry)) *SocketServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt := auth.NewJWTService(appCtx.Config.Auth)
	reg := realtime.NewRegistry(appCtx.Logger, appCtx.Metrics)
	h := realtime.NewHandler(appCtx, reg, jwt)
	if bind != nil {
		bind(h, reg)
	}

	r := gin.New()
	h.RegisterRoutes(r.Group("/"), nil)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		reg.Close()
		srv.Close()
	})

	return &SocketServer{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		Registry: reg,
		Handler:  h,
		JWT:      jwt,
	}
}

// Dial connects as userID and waits until the connection joined its room.
func (s *SocketServer) Dial(t *testing.T, userID uint64) *websocket.Conn {
	t.Helper()
	token, err := s.JWT.Issue(auth.Identity{UserID: userID, Role: auth.RoleUser})
	require.NoError(t, err)

	before := s.Registry.Connections(userID)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	ws, _, err := websocket.DefaultDialer.Dial(s.URL, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.Eventually(t, func() bool {
		return s.Registry.Connections(userID) > before
	}, 2*time.Second, 10*time.Millisecond)
	return ws
}

// Frame is a decoded server frame.
type Frame struct {
	Event string `json:"event"`
	Data  struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"data"`
}

// Send writes {"event": event, "data": data}.
func Send(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(map[string]any{"event": event, "data": data}))
}

// Read waits for the next frame.
func Read(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}
