// Package relayclient talks to a running relay over HTTP. It is what the chat
// front-end and the meeting bot use when they are not in-process.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

const maxBody = 1 << 20

type Client struct {
	baseURL string
	path    string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRoom sends questions to /rooms/{id}/ask instead of /ask.
func WithRoom(id domain.RoomID) Option {
	return func(c *Client) { c.path = "/rooms/" + string(id) + "/ask" }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    "/ask",
		// above the relay's own agent ceiling so the relay's fallback wins the race
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type askRequest struct {
	Question string          `json:"question"`
	Context  *requestContext `json:"context,omitempty"`
}

type requestContext struct {
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	MeetingID string `json:"meetingId,omitempty"`
}

type answerResponse struct {
	ID        string    `json:"id"`
	Answer    *string   `json:"answer"`
	Respond   bool      `json:"respond"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Source    string    `json:"source"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) Ask(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	req := askRequest{Question: q.Text}
	if qc := q.Context; qc != nil {
		rc := &requestContext{Source: qc.Source, MeetingID: qc.MeetingID}
		if !qc.Timestamp.IsZero() {
			rc.Timestamp = qc.Timestamp.UTC().Format(time.RFC3339)
		}
		req.Context = rc
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("relayclient: encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relayclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: relayclient: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: relayclient: read body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, e.Error)
		}
		return nil, fmt.Errorf("%w: relay returned %d: %s", domain.ErrTransport, resp.StatusCode, e.Error)
	}

	var out answerResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: relayclient: malformed answer: %v", domain.ErrTransport, err)
	}

	return &domain.Answer{
		ID:        out.ID,
		Text:      out.Answer,
		Respond:   out.Respond,
		Timestamp: out.Timestamp,
		Agent:     out.Agent,
		Source:    domain.AnswerSource(out.Source),
	}, nil
}

// End closes the room this client was bound to with WithRoom.
func (c *Client) End(ctx context.Context) error {
	if !strings.HasPrefix(c.path, "/rooms/") {
		return nil
	}
	url := c.baseURL + strings.TrimSuffix(c.path, "/ask")

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("relayclient: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: relayclient: %v", domain.ErrTransport, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrRoomNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: relay returned %d", domain.ErrTransport, resp.StatusCode)
	}
	return nil
}
