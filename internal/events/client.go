package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnState is the lifecycle state of a broker client connection.
type ConnState int32

const (
	StateClosed ConnState = iota
	StateConnecting
	StateOpen
	StateReconnectWait
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnectWait:
		return "reconnect_wait"
	default:
		return "closed"
	}
}

// DefaultReconnectDelay is the fixed wait between a dropped connection
// and the next dial attempt.
const DefaultReconnectDelay = 5 * time.Second

// Conn is the minimal transport surface the client needs. Production
// uses gorilla/websocket; tests inject an in-memory fake.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens broker connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error { return c.conn.Close() }

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct{}

// Dial implements Dialer.
func (WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// Handler consumes one dispatched event.
type Handler func(event Event)

type handlerEntry struct {
	fn Handler
}

// Client maintains a persistent, auto-reconnecting connection to the
// event broker and dispatches inbound events to subscribed handlers.
//
// State machine: CLOSED -> CONNECTING -> OPEN; from OPEN, on transport
// error or remote close -> RECONNECT_WAIT -> CONNECTING -> ... The only
// terminal CLOSED transition is an explicit Close.
type Client struct {
	url       string
	authToken string
	dialer    Dialer
	delay     time.Duration
	logger    *zap.SugaredLogger

	mu       sync.RWMutex
	state    ConnState
	conn     Conn
	handlers map[string][]*handlerEntry

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialer injects the transport dialer. Tests use this to run the
// state machine against a fake connection.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// WithReconnectDelay overrides the fixed reconnect delay.
func WithReconnectDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.delay = d }
}

// WithAuthToken stores the credential sent in the handshake frame each
// time the connection opens.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) { c.authToken = token }
}

// NewClient creates a broker client for the given endpoint URL. Call
// Start to begin connecting.
func NewClient(url string, logger *zap.SugaredLogger, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		dialer:   WebsocketDialer{},
		delay:    DefaultReconnectDelay,
		logger:   logger,
		state:    StateClosed,
		handlers: make(map[string][]*handlerEntry),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Subscribe registers a handler for an event type and returns a function
// that removes exactly that handler. Multiple handlers per type are
// permitted.
func (c *Client) Subscribe(eventType string, fn Handler) func() {
	entry := &handlerEntry{fn: fn}

	c.mu.Lock()
	c.handlers[eventType] = append(c.handlers[eventType], entry)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.handlers[eventType]
		for i, e := range entries {
			if e == entry {
				c.handlers[eventType] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// Send writes an event to the broker. If the connection is not open the
// event is dropped with a warning; nothing is queued silently.
func (c *Client) Send(event Event) {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	if state != StateOpen || conn == nil {
		c.logger.Warnw("dropping outbound event, connection not open",
			"type", event.Type, "state", state.String())
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Warnw("dropping unmarshalable outbound event", "type", event.Type)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		c.logger.Warnw("outbound event write failed", "type", event.Type, "error", err.Error())
	}
}

// WakeUp triggers an immediate reconnect attempt when the client is
// waiting out the delay. Callers hook this to foreground-visibility
// changes so a backgrounded consumer recovers as soon as it is resumed.
func (c *Client) WakeUp() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Start runs the connect/dispatch/reconnect loop until Close is called
// or ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	go c.run(ctx)
}

// Close tears the connection down and parks the state machine in CLOSED.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateClosed
	c.mu.Unlock()
}

func (c *Client) run(ctx context.Context) {
	for {
		if c.stopped(ctx) {
			return
		}

		c.setState(StateConnecting)
		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			c.logger.Warnw("broker dial failed", "url", c.url, "error", err.Error())
			if !c.waitForRetry(ctx) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.state = StateOpen
		c.mu.Unlock()
		c.logger.Infow("broker connection open", "url", c.url)

		c.sendAuthHandshake(conn)
		c.readLoop(conn)

		_ = conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if c.stopped(ctx) {
			c.setState(StateClosed)
			return
		}

		c.setState(StateReconnectWait)
		if !c.waitForRetry(ctx) {
			return
		}
	}
}

// sendAuthHandshake sends the stored credential on entering OPEN, if any.
func (c *Client) sendAuthHandshake(conn Conn) {
	if c.authToken == "" {
		return
	}
	frame, _ := json.Marshal(map[string]string{"type": "auth", "token": c.authToken})
	if err := conn.WriteMessage(frame); err != nil {
		c.logger.Warnw("auth handshake failed", "error", err.Error())
	}
}

func (c *Client) readLoop(conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warnw("broker connection lost", "error", err.Error())
			return
		}
		c.dispatch(data)
	}
}

// dispatch parses one inbound frame and invokes every handler registered
// for its type. Malformed frames are dropped with a warning; they must
// never take the loop down.
func (c *Client) dispatch(data []byte) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil || event.Type == "" {
		c.logger.Warnw("dropping malformed broker message", "payload_bytes", len(data))
		return
	}

	c.mu.RLock()
	entries := make([]*handlerEntry, len(c.handlers[event.Type]))
	copy(entries, c.handlers[event.Type])
	c.mu.RUnlock()

	for _, e := range entries {
		e.fn(event)
	}
}

func (c *Client) stopped(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// waitForRetry blocks for the fixed reconnect delay, a WakeUp, or
// shutdown. Returns false when the client should stop.
func (c *Client) waitForRetry(ctx context.Context) bool {
	c.setState(StateReconnectWait)

	timer := time.NewTimer(c.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.wake:
		return true
	case <-c.done:
		c.setState(StateClosed)
		return false
	case <-ctx.Done():
		c.setState(StateClosed)
		return false
	}
}
