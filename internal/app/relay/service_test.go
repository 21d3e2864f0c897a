package relay_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/app/classifier"
	"github.com/PabloGalante/instructor-relay/internal/app/gateway"
	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/app/topics"
	"github.com/PabloGalante/instructor-relay/internal/domain"
)

type countingAnswerer struct {
	calls atomic.Int32
}

func (c *countingAnswerer) GetAnswer(_ context.Context, q string) gateway.Result {
	c.calls.Add(1)
	return gateway.Result{Text: "answer to " + q, Source: domain.SourceAgent}
}

func newService(a relay.Answerer) *relay.Service {
	return relay.NewService(classifier.New("Atlas"), a, "Atlas", nil)
}

func TestAskRequiresQuestion(t *testing.T) {
	a := &countingAnswerer{}
	svc := newService(a)

	_, err := svc.Ask(context.Background(), relay.AskInput{Question: domain.Question{Text: "   "}})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, int32(0), a.calls.Load())
}

func TestAskWithoutClassificationAlwaysAnswers(t *testing.T) {
	a := &countingAnswerer{}
	svc := newService(a)

	out, err := svc.Ask(context.Background(), relay.AskInput{Question: domain.Question{Text: "ok"}})
	require.NoError(t, err)

	require.NotNil(t, out.Answer.Text)
	assert.Equal(t, "answer to ok", *out.Answer.Text)
	assert.True(t, out.Answer.Respond)
	assert.Equal(t, "Atlas", out.Answer.Agent)
	assert.NotEmpty(t, out.Answer.ID)
	assert.False(t, out.Answer.Timestamp.IsZero())
}

func TestAskClassifiedChatterIsNoop(t *testing.T) {
	a := &countingAnswerer{}
	svc := newService(a)

	out, err := svc.Ask(context.Background(), relay.AskInput{
		Question: domain.Question{Text: "ok sounds good"},
		Classify: true,
	})
	require.NoError(t, err)

	assert.Nil(t, out.Answer.Text)
	assert.False(t, out.Answer.Respond)
	assert.Equal(t, domain.SourceNone, out.Answer.Source)
	assert.Equal(t, domain.KindNotAQuestion, out.Classification)
	assert.Equal(t, int32(0), a.calls.Load())
}

func TestAskClassifiedQuestionIsAnswered(t *testing.T) {
	a := &countingAnswerer{}
	svc := newService(a)

	out, err := svc.Ask(context.Background(), relay.AskInput{
		Question: domain.Question{Text: "  Atlas, tourniquet placement  "},
		Classify: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.KindAddressed, out.Classification)
	assert.Equal(t, "answer to Atlas, tourniquet placement", *out.Answer.Text)
}

func TestAskUnconfiguredGatewayUsesTopicAnswer(t *testing.T) {
	responder := topics.NewResponder("Atlas")
	gw := gateway.New(nil, responder, gateway.Options{})
	svc := newService(gw)

	out, err := svc.Ask(context.Background(), relay.AskInput{Question: domain.Question{Text: "What is the ICS structure?"}})
	require.NoError(t, err)

	assert.Equal(t, responder.Respond("What is the ICS structure?"), *out.Answer.Text)
	assert.Equal(t, domain.SourceFallback, out.Answer.Source)
	assert.Equal(t, gateway.ReasonUnconfigured, out.FallbackReason)
}
