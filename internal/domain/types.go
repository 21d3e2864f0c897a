package domain

import "time"

type RoomID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AnswerSource tells where an answer's text came from.
type AnswerSource string

const (
	SourceAgent    AnswerSource = "agent"    // remote conversational agent
	SourceFallback AnswerSource = "fallback" // topic responder after a failed/skipped agent call
	SourceNone     AnswerSource = "none"     // nothing to display
)

// Classification is the tri-state result of the question classifier.
type Classification int

const (
	KindNotAQuestion Classification = iota
	KindQuestion
	KindAddressed // mentions the assistant by name or call-sign
)

func (c Classification) String() string {
	switch c {
	case KindQuestion:
		return "question"
	case KindAddressed:
		return "addressed"
	default:
		return "not_a_question"
	}
}

type Timestamp = time.Time
