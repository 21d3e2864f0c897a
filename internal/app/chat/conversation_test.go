package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

type stubAsker struct {
	answer *domain.Answer
	err    error
	got    []domain.Question
}

func (s *stubAsker) Ask(_ context.Context, q domain.Question) (*domain.Answer, error) {
	s.got = append(s.got, q)
	return s.answer, s.err
}

func text(s string) *string { return &s }

func TestSubmitAppendsBothTurns(t *testing.T) {
	asker := &stubAsker{answer: &domain.Answer{Text: text("Apply pressure."), Respond: true}}
	c := NewConversation(asker, "")

	a, err := c.Submit(context.Background(), "  How do I stop bleeding?  ")
	require.NoError(t, err)
	require.NotNil(t, a)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "How do I stop bleeding?", msgs[0].Text)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Apply pressure.", msgs[1].Text)
	assert.Equal(t, StateIdle, c.State())

	require.Len(t, asker.got, 1)
	assert.Equal(t, "cli", asker.got[0].Context.Source)
}

func TestSubmitFailureAppendsErrorText(t *testing.T) {
	c := NewConversation(&stubAsker{err: errors.New("connection refused")}, "cli")

	a, err := c.Submit(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Nil(t, a)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, ErrorText, msgs[1].Text)
	assert.Equal(t, StateIdle, c.State())
}

func TestQuietAnswerAddsNothing(t *testing.T) {
	c := NewConversation(&stubAsker{answer: &domain.Answer{Respond: false}}, "cli")

	_, err := c.Submit(context.Background(), "ok")
	require.NoError(t, err)
	assert.Len(t, c.Messages(), 1)
}

func TestBeginRules(t *testing.T) {
	c := NewConversation(&stubAsker{}, "cli")

	_, err := c.Begin("   ")
	assert.ErrorIs(t, err, domain.ErrEmpty)
	assert.Empty(t, c.Messages())

	_, err = c.Begin("first")
	require.NoError(t, err)
	assert.Equal(t, StateSending, c.State())

	c.Sent()
	assert.Equal(t, StateAwaitingAnswer, c.State())

	_, err = c.Begin("second")
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Len(t, c.Messages(), 1)
}

func TestResolveWhenIdleIsIgnored(t *testing.T) {
	c := NewConversation(&stubAsker{}, "cli")

	c.Resolve(&domain.Answer{Text: text("stray"), Respond: true})
	c.Fail(errors.New("stray"))
	assert.Empty(t, c.Messages())
}

func TestMessagesReturnsCopy(t *testing.T) {
	c := NewConversation(&stubAsker{answer: &domain.Answer{Text: text("a"), Respond: true}}, "cli")
	_, _ = c.Submit(context.Background(), "q?")

	msgs := c.Messages()
	msgs[0].Text = "mutated"
	assert.Equal(t, "q?", c.Messages()[0].Text)
}
