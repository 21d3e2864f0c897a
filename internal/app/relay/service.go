package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/instructor-relay/internal/app/classifier"
	"github.com/PabloGalante/instructor-relay/internal/app/gateway"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

// Answerer is the part of the agent gateway the relay depends on.
type Answerer interface {
	GetAnswer(ctx context.Context, question string) gateway.Result
}

type Service struct {
	classifier *classifier.Classifier
	answerer   Answerer
	assistant  string
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewService(
	cls *classifier.Classifier,
	answerer Answerer,
	assistantName string,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		classifier: cls,
		answerer:   answerer,
		assistant:  assistantName,
		metrics:    metrics,
		now:        time.Now,
	}
}

type AskInput struct {
	Question domain.Question
	// Classify gates the agent: non-questions get a "display nothing" answer.
	Classify bool
	// Endpoint labels metrics, e.g. "ask", "room", "cli".
	Endpoint string
}

type AskOutput struct {
	Answer         *domain.Answer
	Classification domain.Classification
	// FallbackReason is set when the answer came from the topic responder.
	FallbackReason string
}

// Ask turns one question into exactly one answer. The only error it returns is
// ErrInvalidRequest; every agent failure has already become a fallback answer.
func (s *Service) Ask(ctx context.Context, in AskInput) (*AskOutput, error) {
	endpoint := in.Endpoint
	if endpoint == "" {
		endpoint = "ask"
	}

	text := strings.TrimSpace(in.Question.Text)
	if text == "" {
		s.metrics.Question(endpoint, "invalid")
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}

	log := observability.LoggerFromContext(ctx).With("endpoint", endpoint)
	if qc := in.Question.Context; qc != nil {
		log = log.With("source", qc.Source, "meeting_id", qc.MeetingID)
	}

	id := uuid.NewString()
	kind := domain.KindQuestion
	if in.Classify {
		kind = s.classifier.Kind(text)
		if kind == domain.KindNotAQuestion {
			log.Debug("not a question, staying quiet", "answer_id", id)
			s.metrics.Question(endpoint, "ignored")
			return &AskOutput{
				Answer: &domain.Answer{
					ID:        id,
					Text:      nil,
					Respond:   false,
					Timestamp: s.now(),
					Agent:     s.assistant,
					Source:    domain.SourceNone,
				},
				Classification: kind,
			}, nil
		}
	}

	start := s.now()
	res := s.answerer.GetAnswer(ctx, text)

	log.Info("question answered",
		"answer_id", id,
		"classification", kind.String(),
		"source", res.Source,
		"fallback_reason", res.Reason,
		"elapsed_ms", s.now().Sub(start).Milliseconds(),
	)
	s.metrics.Question(endpoint, "answered")

	answer := res.Text
	return &AskOutput{
		Answer: &domain.Answer{
			ID:        id,
			Text:      &answer,
			Respond:   true,
			Timestamp: s.now(),
			Agent:     s.assistant,
			Source:    res.Source,
		},
		Classification: kind,
		FallbackReason: res.Reason,
	}, nil
}
