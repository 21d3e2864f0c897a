package rooms_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/adapters/storage/memory"
	"github.com/PabloGalante/instructor-relay/internal/app/classifier"
	"github.com/PabloGalante/instructor-relay/internal/app/gateway"
	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/app/rooms"
	"github.com/PabloGalante/instructor-relay/internal/app/topics"
	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// blockingAgent answers only after release is closed, or fails when ctx ends.
type blockingAgent struct {
	started  chan struct{}
	finished chan struct{}
}

func newBlockingAgent() *blockingAgent {
	return &blockingAgent{started: make(chan struct{}, 1), finished: make(chan struct{}, 1)}
}

func (b *blockingAgent) Name() string { return "blocking" }

func (b *blockingAgent) Ask(ctx context.Context, _ string) (string, error) {
	b.started <- struct{}{}
	<-ctx.Done()
	b.finished <- struct{}{}
	return "", ctx.Err()
}

type instantAgent struct{}

func (instantAgent) Name() string { return "instant" }
func (instantAgent) Ask(_ context.Context, q string) (string, error) {
	return "agent: " + q, nil
}

func newManager(agent domain.AgentClient) (*rooms.Manager, *memory.RoomStore) {
	gw := gateway.New(agent, topics.NewResponder("Atlas"), gateway.Options{Configured: true, Timeout: 10 * time.Second})
	svc := relay.NewService(classifier.New("Atlas"), gw, "Atlas", nil)
	store := memory.NewRoomStore()
	return rooms.NewManager(svc, store), store
}

func TestAskClassifiesAndCountsStats(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(instantAgent{})

	out, err := m.Ask(ctx, "room-1", domain.Question{Text: "ok sounds good"})
	require.NoError(t, err)
	assert.False(t, out.Answer.Respond)

	out, err = m.Ask(ctx, "room-1", domain.Question{Text: "what is ICS?"})
	require.NoError(t, err)
	assert.True(t, out.Answer.Respond)
	assert.Equal(t, "agent: what is ICS?", *out.Answer.Text)

	stats, err := m.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.QuestionsAsked)
	assert.Equal(t, 1, stats.Answered)
	assert.Equal(t, 1, stats.Ignored)
	assert.Equal(t, "training_room", stats.Source)

	stored, err := store.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.QuestionsAsked)
}

func TestAskRequiresRoomID(t *testing.T) {
	m, _ := newManager(instantAgent{})
	_, err := m.Ask(context.Background(), "", domain.Question{Text: "why?"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestEndCancelsInFlightAgentSession(t *testing.T) {
	ctx := context.Background()
	agent := newBlockingAgent()
	m, store := newManager(agent)

	type result struct {
		out *relay.AskOutput
		err error
	}
	results := make(chan result, 1)
	go func() {
		out, err := m.Ask(ctx, "meeting-7", domain.Question{Text: "how do I pack a wound?"})
		results <- result{out, err}
	}()

	select {
	case <-agent.started:
	case <-time.After(time.Second):
		t.Fatal("agent was never called")
	}

	require.NoError(t, m.End(ctx, "meeting-7"))

	select {
	case <-agent.finished:
	case <-time.After(time.Second):
		t.Fatal("agent session was not torn down after End")
	}

	r := <-results
	require.NoError(t, r.err)
	assert.Equal(t, domain.SourceFallback, r.out.Answer.Source)
	assert.Equal(t, gateway.ReasonCanceled, r.out.FallbackReason)

	// the room is gone and nothing touched its stats after End
	_, err := store.Get(ctx, "meeting-7")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = m.Get(ctx, "meeting-7")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestEndUnknownRoom(t *testing.T) {
	m, _ := newManager(instantAgent{})
	assert.ErrorIs(t, m.End(context.Background(), "nope"), domain.ErrRoomNotFound)
}

func TestRequestCancelDoesNotEndRoom(t *testing.T) {
	agent := newBlockingAgent()
	m, _ := newManager(agent)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_, _ = m.Ask(ctx, "r", domain.Question{Text: "why?"})
		close(done)
	}()
	<-agent.started
	cancel()
	<-done

	stats, err := m.Get(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fallbacks)
}

func TestShutdownEndsAllRooms(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(instantAgent{})

	for _, id := range []domain.RoomID{"a", "b"} {
		_, err := m.Ask(ctx, id, domain.Question{Text: "who?"})
		require.NoError(t, err)
	}
	require.NoError(t, m.Shutdown(ctx))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
