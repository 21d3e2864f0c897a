package stream

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// State of one AgentSession on the streaming transport.
type State int

const (
	StateConnecting State = iota
	StateInitiated
	StateAwaitingAnswer
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateInitiated:
		return "initiated"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a resolved session ended.
type Outcome int

const (
	OutcomePending  Outcome = iota
	OutcomeAnswered         // terminal answer event
	OutcomePartial          // error/close after some partial text
	OutcomeTimedOut
	OutcomeFailed // error/close with nothing received
)

type EventKind int

const (
	EventOpened EventKind = iota
	EventTranscriptSent
	EventPartial // partial text to append
	EventFinal   // terminal answer; Text may be empty to mean "what was accumulated"
	EventTimeout
	EventError
	EventClosed
)

type Event struct {
	Kind EventKind
	Text string
}

// Session is the reducer's state. The zero value is a session still connecting.
type Session struct {
	State   State
	Outcome Outcome
	// Accumulated holds partial text received so far.
	Accumulated string
	// Answer is set once the session resolves with text.
	Answer string
}

// Reduce applies one protocol event. It is pure; a resolved session absorbs
// every later event, which is what discards a success arriving after a timeout.
func Reduce(s Session, ev Event) Session {
	if s.State == StateResolved {
		return s
	}

	switch ev.Kind {
	case EventOpened:
		if s.State == StateConnecting {
			s.State = StateInitiated
		}

	case EventTranscriptSent:
		if s.State == StateInitiated {
			s.State = StateAwaitingAnswer
		}

	case EventPartial:
		s.Accumulated += ev.Text

	case EventFinal:
		answer := ev.Text
		if strings.TrimSpace(answer) == "" {
			answer = s.Accumulated
		}
		if strings.TrimSpace(answer) == "" {
			// an empty terminal event carries nothing; keep waiting
			return s
		}
		s.State = StateResolved
		s.Outcome = OutcomeAnswered
		s.Answer = answer

	case EventTimeout:
		s.State = StateResolved
		s.Outcome = OutcomeTimedOut

	case EventError, EventClosed:
		s.State = StateResolved
		if strings.TrimSpace(s.Accumulated) != "" {
			s.Outcome = OutcomePartial
			s.Answer = s.Accumulated
		} else {
			s.Outcome = OutcomeFailed
		}
	}

	return s
}

// Result maps a resolved session onto the AgentClient contract.
func (s Session) Result() (string, error) {
	switch s.Outcome {
	case OutcomeAnswered, OutcomePartial:
		return strings.TrimSpace(s.Answer), nil
	case OutcomeTimedOut:
		return "", fmt.Errorf("%w: no answer before ceiling", domain.ErrTimeout)
	case OutcomeFailed:
		return "", fmt.Errorf("%w: stream ended without an answer", domain.ErrTransport)
	default:
		return "", fmt.Errorf("%w: session unresolved in state %s", domain.ErrTransport, s.State)
	}
}
