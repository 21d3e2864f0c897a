package httpagent_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/adapters/agent/httpagent"
	"github.com/PabloGalante/instructor-relay/internal/domain"
)

func TestAskSendsAgentIDAndKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "agent-1", body["agent_id"])
		assert.Equal(t, "what is ICS?", body["text"])

		_, _ = w.Write([]byte(`{"text":"X"}`))
	}))
	defer srv.Close()

	c := httpagent.NewClient(srv.URL, "secret", "agent-1")
	answer, err := c.Ask(context.Background(), "what is ICS?")
	require.NoError(t, err)
	assert.Equal(t, "X", answer)
}

func TestAskAcceptsAlternateFields(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"response":"from response"}`, "from response"},
		{`{"message":"from message"}`, "from message"},
		{`{"text":"","response":"second wins"}`, "second wins"},
		{`{"text":"first","message":"ignored"}`, "first"},
	}

	for _, tc := range cases {
		body, want := tc.body, tc.want
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		answer, err := httpagent.NewClient(srv.URL, "k", "a").Ask(context.Background(), "q")
		srv.Close()

		require.NoError(t, err, body)
		assert.Equal(t, want, answer)
	}
}

func TestAskErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"text":"ignored"}`))
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		},
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := httpagent.NewClient(srv.URL, "k", "a").Ask(context.Background(), "q")
			assert.ErrorIs(t, err, domain.ErrTransport)
		})
	}
}

func TestAskHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := httpagent.NewClient(srv.URL, "k", "a").Ask(ctx, "q")
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
