package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"propshare/internal/events"
	"propshare/internal/logger"
	"propshare/internal/middleware"
	"propshare/internal/uuid"
)

// authDeadline bounds how long a freshly upgraded connection may take to
// present its credential before being dropped.
const authDeadline = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browsers connect from the app origin; CORS-style checks happen at
	// the HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// authFrame is the first message a client must send after the upgrade.
type authFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// WSHandler upgrades event transport connections and attaches them to
// the hub.
type WSHandler struct {
	hub *events.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *events.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve upgrades the connection, performs the auth handshake, and
// registers the session for event fan-out
// @Summary     Event transport
// @Description WebSocket endpoint; the first frame must be {"type":"auth","token":"<jwt>"}
// @Tags        events
// @Router      /ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Get().Warnw("websocket upgrade failed", "error", err.Error())
		return
	}

	userID, ok := h.authenticate(conn)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth required"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	session := events.NewSession(uuid.New(), userID, conn, h.hub, logger.Get())
	h.hub.Register(session)
	session.Start()
}

// authenticate reads the handshake frame and validates its token.
func (h *WSHandler) authenticate(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(authDeadline))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	var frame authFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != "auth" {
		logger.Get().Warnw("rejecting connection without auth handshake")
		return "", false
	}

	claims, err := middleware.ParseToken(frame.Token)
	if err != nil {
		logger.Get().Warnw("rejecting connection with invalid token")
		return "", false
	}
	return claims.UserID, true
}
