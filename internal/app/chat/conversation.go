// Package chat holds the client-side transcript of a chat with the relay and
// the turn-taking rules around it.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// ErrorText replaces the assistant's turn when the relay cannot be reached.
const ErrorText = "Sorry, I encountered an error. Please try again."

type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingAnswer
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Asker sends one question to the relay.
type Asker interface {
	Ask(ctx context.Context, q domain.Question) (*domain.Answer, error)
}

// Conversation is an append-only transcript plus the one-turn-at-a-time rule.
// It is safe for concurrent use.
type Conversation struct {
	asker  Asker
	source string
	now    func() time.Time

	mu       sync.Mutex
	state    State
	messages []domain.ChatMessage
}

func NewConversation(asker Asker, source string) *Conversation {
	if source == "" {
		source = "cli"
	}
	return &Conversation{asker: asker, source: source, now: time.Now}
}

// Begin records the user's message and moves to Sending.
func (c *Conversation) Begin(text string) (domain.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Question{}, domain.ErrEmpty
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return domain.Question{}, domain.ErrBusy
	}

	now := c.now()
	c.messages = append(c.messages, domain.ChatMessage{Text: text, Role: domain.RoleUser, Timestamp: now})
	c.state = StateSending

	return domain.Question{
		Text:    text,
		Context: &domain.QuestionContext{Source: c.source, Timestamp: now},
	}, nil
}

// Sent marks the request as on the wire.
func (c *Conversation) Sent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending {
		c.state = StateAwaitingAnswer
	}
}

// Resolve closes the turn. A "display nothing" answer adds no message.
func (c *Conversation) Resolve(a *domain.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	if a != nil && a.Respond && a.Text != nil {
		ts := a.Timestamp
		if ts.IsZero() {
			ts = c.now()
		}
		c.messages = append(c.messages, domain.ChatMessage{Text: *a.Text, Role: domain.RoleAssistant, Timestamp: ts})
	}
	c.state = StateIdle
}

// Fail closes the turn with the generic error message.
func (c *Conversation) Fail(error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	c.messages = append(c.messages, domain.ChatMessage{Text: ErrorText, Role: domain.RoleAssistant, Timestamp: c.now()})
	c.state = StateIdle
}

// Submit runs a whole turn synchronously. Relay failures are folded into the
// transcript; only ErrEmpty and ErrBusy are returned.
func (c *Conversation) Submit(ctx context.Context, text string) (*domain.Answer, error) {
	q, err := c.Begin(text)
	if err != nil {
		return nil, err
	}
	c.Sent()

	a, err := c.asker.Ask(ctx, q)
	if err != nil {
		c.Fail(err)
		return nil, nil
	}
	c.Resolve(a)
	return a, nil
}

func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
