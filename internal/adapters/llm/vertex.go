package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

type VertexAgent struct {
	client    *genai.Client
	modelName string
	system    string
}

// NewVertexAgent creates an AgentClient backed by Vertex AI (Gemini).
func NewVertexAgent(ctx context.Context, projectID, location, modelName, system string) (*VertexAgent, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("%w: vertex project and location must be set", domain.ErrConfiguration)
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexAgent{
		client:    client,
		modelName: modelName,
		system:    system,
	}, nil
}

func (v *VertexAgent) Name() string {
	return "vertex"
}

func (v *VertexAgent) Ask(ctx context.Context, question string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(question, genai.RoleUser),
	}

	temp := float32(0.3)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(v.system, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(1024),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: vertex: %v", domain.ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: vertex generate content: %v", domain.ErrTransport, err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("%w: vertex returned empty text", domain.ErrTransport)
	}
	return text, nil
}
