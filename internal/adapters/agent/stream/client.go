package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

const (
	DefaultCeiling = 15 * time.Second
	DefaultSettle  = 500 * time.Millisecond

	writeWait = 5 * time.Second
)

// Client is the streaming transport. Every Ask opens its own connection.
type Client struct {
	url     string
	apiKey  string
	agentID string
	prompt  string

	ceiling time.Duration
	settle  time.Duration
	dialer  *websocket.Dialer
	metrics *observability.Metrics
}

type Option func(*Client)

// WithCeiling bounds a session, measured from connection open.
func WithCeiling(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ceiling = d
		}
	}
}

// WithSettleDelay is the pause between the initiation and transcript messages.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.settle = d
		}
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(rawURL, apiKey, agentID, prompt string, opts ...Option) *Client {
	c := &Client{
		url:     rawURL,
		apiKey:  apiKey,
		agentID: agentID,
		prompt:  prompt,
		ceiling: DefaultCeiling,
		settle:  DefaultSettle,
		dialer:  websocket.DefaultDialer,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string {
	return "stream"
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", err
	}
	if c.agentID != "" {
		q := u.Query()
		q.Set("agent_id", c.agentID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type frame struct {
	data []byte
	err  error
}

// writeJSON is only ever called from the Ask goroutine; gorilla allows one
// concurrent writer.
func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	logger := observability.LoggerFromContext(ctx).With("transport", "stream")

	endpoint, err := c.endpoint()
	if err != nil {
		return "", fmt.Errorf("%w: bad stream url: %v", domain.ErrConfiguration, err)
	}

	header := http.Header{}
	header.Set("xi-api-key", c.apiKey)

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: dial: %v", domain.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: dial: %v", domain.ErrTransport, err)
	}
	defer conn.Close()

	ceiling := time.NewTimer(c.ceiling)
	defer ceiling.Stop()

	state := Reduce(Session{}, Event{Kind: EventOpened})

	if err := writeJSON(conn, newInitiation(c.prompt)); err != nil {
		state = Reduce(state, Event{Kind: EventError})
		logger.Warn("stream init failed", "error", err)
		return state.Result()
	}

	settle := time.NewTimer(c.settle)
	defer settle.Stop()

	done := make(chan struct{})
	defer close(done)
	frames := make(chan frame)
	go readLoop(conn, frames, done)

	for state.State != StateResolved {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				state = Reduce(state, Event{Kind: EventTimeout})
				continue
			}
			return "", fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())

		case <-ceiling.C:
			logger.Warn("stream ceiling reached", "ceiling", c.ceiling.String())
			state = Reduce(state, Event{Kind: EventTimeout})

		case <-settle.C:
			if err := writeJSON(conn, newTranscript(question)); err != nil {
				logger.Warn("stream transcript write failed", "error", err)
				state = Reduce(state, Event{Kind: EventError})
				continue
			}
			state = Reduce(state, Event{Kind: EventTranscriptSent})

		case f := <-frames:
			if f.err != nil {
				kind := EventError
				var ce *websocket.CloseError
				if errors.As(f.err, &ce) {
					kind = EventClosed
				}
				logger.Debug("stream ended", "error", f.err, "accumulated", len(state.Accumulated))
				state = Reduce(state, Event{Kind: kind})
				continue
			}
			state = c.handleFrame(conn, state, f.data, logger)
		}
	}

	return state.Result()
}

func (c *Client) handleFrame(conn *websocket.Conn, state Session, data []byte, logger *slog.Logger) Session {
	msg, err := decodeInbound(data)
	if err != nil {
		logger.Debug("stream: ignoring malformed frame", "error", err)
		return state
	}

	if id, ok := msg.pingID(); ok {
		c.metrics.StreamPing()
		if err := writeJSON(conn, pongMessage{Type: typePong, EventID: id}); err != nil {
			return Reduce(state, Event{Kind: EventError})
		}
		return state
	}

	if ev, ok := msg.event(); ok {
		return Reduce(state, ev)
	}
	return state
}

// readLoop forwards frames until the connection fails or Ask returns.
func readLoop(conn *websocket.Conn, out chan<- frame, done <-chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		select {
		case out <- frame{data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}
