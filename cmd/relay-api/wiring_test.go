package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/adapters/agent/httpagent"
	"github.com/PabloGalante/instructor-relay/internal/adapters/agent/stream"
	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/config"
	"github.com/PabloGalante/instructor-relay/internal/domain"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, val := range env {
		t.Setenv(k, val)
	}
	cfg, err := config.FromViper(config.New())
	require.NoError(t, err)
	return cfg
}

func TestBuildAgentUnconfiguredIsNil(t *testing.T) {
	cfg := testConfig(t, map[string]string{"AGENT_API_KEY": "your_api_key_here"})

	agent, err := buildAgent(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, agent)
}

func TestBuildAgentPerProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"http", "http"},
		{"stream", "stream"},
		{"mock", "mock"},
		{"openai", "openai"},
	}

	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			cfg := testConfig(t, map[string]string{
				"AGENT_PROVIDER": tc.provider,
				"AGENT_API_KEY":  "xi-real-key",
				"OPENAI_API_KEY": "sk-real-key",
			})

			agent, err := buildAgent(context.Background(), cfg, nil)
			require.NoError(t, err)
			require.NotNil(t, agent)
			assert.Equal(t, tc.want, agent.Name())
		})
	}
}

func TestBuildAgentTypes(t *testing.T) {
	cfg := testConfig(t, map[string]string{"AGENT_PROVIDER": "stream", "AGENT_API_KEY": "k"})
	agent, err := buildAgent(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &stream.Client{}, agent)

	cfg = testConfig(t, map[string]string{"AGENT_PROVIDER": "http", "AGENT_API_KEY": "k"})
	agent, err = buildAgent(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &httpagent.Client{}, agent)
}

func TestBuildStore(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t, map[string]string{"ROOM_STORE": "redis", "REDIS_ADDR": mr.Addr()})
	store, closer, err := buildStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	require.NoError(t, store.Save(context.Background(), &domain.RoomSession{ID: "r1"}))
	assert.True(t, mr.Exists("relay:room:r1"))

	cfg = testConfig(t, map[string]string{"ROOM_STORE": "carrier-pigeon"})
	_, _, err = buildStore(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	cfg = testConfig(t, map[string]string{"ROOM_STORE": "firestore", "GCP_PROJECT": ""})
	_, _, err = buildStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBuildStackAnswersLocally(t *testing.T) {
	cfg := testConfig(t, map[string]string{"AGENT_API_KEY": ""})

	st, err := buildStack(context.Background(), cfg)
	require.NoError(t, err)
	defer st.Close(context.Background())

	assert.Equal(t, "local", st.gateway.Provider())

	out, err := st.relay.Ask(context.Background(), relay.AskInput{
		Question: domain.Question{Text: "What is the ICS structure?"},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Answer.Text)
	assert.Contains(t, *out.Answer.Text, "Incident Command System")
	assert.Equal(t, domain.SourceFallback, out.Answer.Source)
}
