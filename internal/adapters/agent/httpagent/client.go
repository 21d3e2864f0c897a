package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// maximum response body we are willing to read from the agent
const maxBody = 1 << 20

// Client is the request/response transport: one POST per question.
type Client struct {
	url     string
	apiKey  string
	agentID string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(url, apiKey, agentID string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		apiKey:  apiKey,
		agentID: agentID,
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string {
	return "http"
}

type askRequest struct {
	AgentID string `json:"agent_id"`
	Text    string `json:"text"`
}

// the agent has used all three field names over time
type askResponse struct {
	Text     string `json:"text"`
	Response string `json:"response"`
	Message  string `json:"message"`
}

func (r askResponse) answer() string {
	for _, s := range []string{r.Text, r.Response, r.Message} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(askRequest{AgentID: c.agentID, Text: question})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var out askResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: malformed payload: %v", domain.ErrTransport, err)
	}

	answer := out.answer()
	if answer == "" {
		return "", fmt.Errorf("%w: payload has no answer text", domain.ErrTransport)
	}
	return answer, nil
}
