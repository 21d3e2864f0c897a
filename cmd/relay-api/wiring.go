package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/PabloGalante/instructor-relay/internal/adapters/agent/httpagent"
	"github.com/PabloGalante/instructor-relay/internal/adapters/agent/stream"
	"github.com/PabloGalante/instructor-relay/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/instructor-relay/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/instructor-relay/internal/adapters/storage/memory"
	redisstore "github.com/PabloGalante/instructor-relay/internal/adapters/storage/redis"
	"github.com/PabloGalante/instructor-relay/internal/app/classifier"
	"github.com/PabloGalante/instructor-relay/internal/app/gateway"
	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/app/rooms"
	"github.com/PabloGalante/instructor-relay/internal/app/topics"
	"github.com/PabloGalante/instructor-relay/internal/config"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

// stack is everything a command needs to answer questions in-process.
type stack struct {
	cfg     *config.Config
	metrics *observability.Metrics
	gateway *gateway.Gateway
	relay   *relay.Service
	rooms   *rooms.Manager
	closers []io.Closer
}

func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	log := observability.Logger()
	metrics := observability.NewMetrics()

	agent, err := buildAgent(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		log.Warn("agent credential missing, answering from built-in topics only",
			"provider", string(cfg.Agent.Provider))
	}

	var limiter *rate.Limiter
	if cfg.Agent.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Agent.RatePerSecond), max(cfg.Agent.RateBurst, 1))
	}

	gw := gateway.New(agent, topics.NewResponder(cfg.AssistantName), gateway.Options{
		Configured: agent != nil,
		Timeout:    cfg.Agent.Timeout,
		Limiter:    limiter,
		Metrics:    metrics,
	})

	callSigns := append([]string{cfg.AssistantName}, cfg.CallSigns...)
	svc := relay.NewService(classifier.New(callSigns...), gw, cfg.AssistantName, metrics)

	store, closer, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &stack{
		cfg:     cfg,
		metrics: metrics,
		gateway: gw,
		relay:   svc,
		rooms:   rooms.NewManager(svc, store),
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}

	log.Info("relay stack ready",
		"provider", gw.Provider(),
		"agent_configured", gw.Configured(),
		"room_store", cfg.Rooms.Store,
	)
	return s, nil
}

// Close ends live rooms, then releases storage clients.
func (s *stack) Close(ctx context.Context) error {
	errs := []error{s.rooms.Shutdown(ctx)}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// buildAgent returns nil when the selected provider has no usable credential.
func buildAgent(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (domain.AgentClient, error) {
	if !cfg.AgentConfigured() {
		return nil, nil
	}
	persona := llm.PersonaPrompt(cfg.AssistantName)

	switch cfg.Agent.Provider {
	case config.ProviderMock:
		return llm.NewMockAgent(cfg.AssistantName), nil

	case config.ProviderStream:
		return stream.NewClient(cfg.Agent.StreamURL, cfg.Agent.APIKey, cfg.Agent.ID, persona,
			stream.WithCeiling(cfg.Agent.Timeout),
			stream.WithSettleDelay(cfg.Agent.SettleDelay),
			stream.WithMetrics(metrics),
		), nil

	case config.ProviderOpenAI:
		agent, err := llm.NewOpenAIAgent(cfg.OpenAI.APIKey, cfg.OpenAI.Model, persona)
		if err != nil {
			return nil, err
		}
		return agent, nil

	case config.ProviderVertex:
		agent, err := llm.NewVertexAgent(ctx, cfg.Vertex.Project, cfg.Vertex.Location, cfg.Vertex.Model, persona)
		if err != nil {
			return nil, err
		}
		return agent, nil

	default:
		return httpagent.NewClient(cfg.Agent.HTTPURL, cfg.Agent.APIKey, cfg.Agent.ID), nil
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (domain.RoomStore, io.Closer, error) {
	switch cfg.Rooms.Store {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Rooms.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Rooms.RedisAddr, err)
		}
		observability.Logger().Info("using redis room store", "addr", cfg.Rooms.RedisAddr, "ttl", cfg.Rooms.RedisTTL.String())
		store := redisstore.NewRoomStore(client, cfg.Rooms.RedisTTL)
		return store, store, nil

	case "firestore":
		store, err := firestorestore.NewStore(ctx, cfg.Rooms.GCPProject)
		if err != nil {
			return nil, nil, err
		}
		observability.Logger().Info("using firestore room store", "project", cfg.Rooms.GCPProject)
		return store, store, nil

	case "", "memory":
		return memstore.NewRoomStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown room store %q", domain.ErrConfiguration, cfg.Rooms.Store)
	}
}
