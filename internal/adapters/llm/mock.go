package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// MockAgent answers deterministically without any network I/O.
type MockAgent struct {
	name string
}

func NewMockAgent(name string) *MockAgent {
	return &MockAgent{name: name}
}

func (m *MockAgent) Name() string {
	return "mock"
}

func (m *MockAgent) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	q := strings.TrimSpace(question)
	if q == "" {
		return "", fmt.Errorf("%w: empty question", domain.ErrInvalidRequest)
	}
	return fmt.Sprintf("%s here. You asked: %q. Review your agency's guidance on this and ask me to go deeper on any step.", m.name, q), nil
}
