package events

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Session adapts one server-side WebSocket connection to the hub's
// Subscriber interface. Outbound messages flow through a buffered channel
// drained by a single writer goroutine, which preserves publish order for
// this client.
type Session struct {
	id        string
	userID    string
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
	closeOnce sync.Once
	logger    *zap.SugaredLogger
}

// NewSession wraps an upgraded, authenticated connection.
func NewSession(id, userID string, conn *websocket.Conn, hub *Hub, logger *zap.SugaredLogger) *Session {
	return &Session{
		id:     id,
		userID: userID,
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
	}
}

// ID implements Subscriber.
func (s *Session) ID() string { return s.id }

// UserID implements Subscriber.
func (s *Session) UserID() string { return s.userID }

// Close implements Subscriber. Only the send channel is closed; the
// writer goroutine owns closing the underlying connection. Unregister
// and hub shutdown can race here, hence the once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// SendBytes implements Subscriber. Full buffers drop the message rather
// than blocking the hub's broadcast.
func (s *Session) SendBytes(b []byte) {
	select {
	case s.send <- b:
	default:
		s.logger.Warnw("dropping event for slow client", "client_id", s.id)
	}
}

// Start launches the read and write pumps.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// readPump consumes inbound frames. Clients only talk to the broker
// through the auth handshake (handled before the session starts), so
// inbound traffic here just keeps the connection liveness state fresh.
func (s *Session) readPump() {
	defer s.hub.Unregister(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
