package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxlate/voxlate/pkg/errorsx"
	"github.com/voxlate/voxlate/pkg/logging"
)

// Conn is the message transport behind a session. Production sessions
// run over a websocket; tests substitute an in-memory fake.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer establishes transport connections.
type Dialer interface {
	Dial(ctx context.Context, endpoint, credential string) (Conn, error)
}

// Config carries the controller's connection settings.
type Config struct {
	Endpoint   string
	Credential string
	Model      string

	// IdleTimeout bounds the wait for the first response fragment after
	// a commit; FragmentTimeout bounds the gap between fragments.
	IdleTimeout     time.Duration
	FragmentTimeout time.Duration

	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-realtime"
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.FragmentTimeout <= 0 {
		c.FragmentTimeout = 10 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 256
	}
	return c
}

// Controller creates sessions against one realtime endpoint. It owns no
// session state itself; every Connect returns an independent Session
// with an exclusively owned connection.
type Controller struct {
	cfg    Config
	dialer Dialer
	logger *slog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithDialer substitutes the transport dialer. Used by tests.
func WithDialer(d Dialer) Option {
	return func(c *Controller) { c.dialer = d }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = logging.NewComponentLogger(l, "session") }
}

func NewController(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg.withDefaults(),
		dialer: &wsDialer{},
		logger: logging.NewComponentLogger(slog.Default(), "session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wsDialer struct{}

func (d *wsDialer) Dial(ctx context.Context, endpoint, credential string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
	}
	header := http.Header{
		"Authorization": []string{"Bearer " + credential},
		"OpenAI-Beta":   []string{"realtime=v1"},
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errorsx.Wrap(fmt.Errorf("handshake rejected: %s", resp.Status), errorsx.ReasonAuth)
		}
		return nil, errorsx.Wrap(fmt.Errorf("dial %s: %w", endpoint, err), errorsx.ReasonConnection)
	}
	return &wsConn{conn: conn}, nil
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

func (c *wsConn) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
