package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

func TestPersonaPromptUsesName(t *testing.T) {
	p := PersonaPrompt("Sage")
	assert.Contains(t, p, `"Sage"`)
	assert.Contains(t, p, "training instructor")

	assert.Contains(t, PersonaPrompt("  "), `"Atlas"`)
}

func TestMockAgentIsDeterministic(t *testing.T) {
	m := NewMockAgent("Atlas")
	assert.Equal(t, "mock", m.Name())

	a, err := m.Ask(context.Background(), "What is a tourniquet?")
	require.NoError(t, err)
	b, _ := m.Ask(context.Background(), "What is a tourniquet?")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "What is a tourniquet?")

	_, err = m.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Ask(ctx, "q")
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestOpenAIAgentRequiresKey(t *testing.T) {
	_, err := NewOpenAIAgent("", "gpt-4o-mini", "sys")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestOpenAIAgentAsk(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Keep your hands visible."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	agent, err := NewOpenAIAgent("sk-test", "gpt-4o-mini", "persona", WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "openai", agent.Name())

	answer, err := agent.Ask(context.Background(), "How should I approach a vehicle?")
	require.NoError(t, err)
	assert.Equal(t, "Keep your hands visible.", answer)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "persona", got.Messages[0].Content)
	assert.Equal(t, "How should I approach a vehicle?", got.Messages[1].Content)
}

func TestOpenAIAgentErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"no choices", http.StatusOK, `{"id":"c1","choices":[]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			agent, err := NewOpenAIAgent("sk-test", "m", "p", WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = agent.Ask(context.Background(), "q")
			assert.ErrorIs(t, err, domain.ErrTransport)
		})
	}
}

func TestVertexAgentRequiresProject(t *testing.T) {
	_, err := NewVertexAgent(context.Background(), "", "us-central1", "", "p")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
