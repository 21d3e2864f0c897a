// Package gateway mediates calls to the remote conversational agent. Its one
// guarantee is that GetAnswer always returns displayable text: transport
// errors, timeouts, rate limiting and missing credentials all resolve to the
// topic responder's answer.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/PabloGalante/instructor-relay/internal/app/topics"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

// DefaultTimeout is the AgentSession ceiling.
const DefaultTimeout = 15 * time.Second

// Fallback reasons, also used as metric labels.
const (
	ReasonUnconfigured = "unconfigured"
	ReasonTransport    = "transport"
	ReasonTimeout      = "timeout"
	ReasonRateLimited  = "rate_limited"
	ReasonCanceled     = "canceled"
)

type Options struct {
	// Configured is false when the agent credential is absent or a placeholder.
	Configured bool
	Timeout    time.Duration
	// Limiter bounds outbound agent calls; nil means unlimited.
	Limiter *rate.Limiter
	Metrics *observability.Metrics
}

// Result is the gateway's guaranteed answer. Reason is set when Source is fallback.
type Result struct {
	Text   string
	Source domain.AnswerSource
	Reason string
	Err    error
}

type Gateway struct {
	agent     domain.AgentClient
	responder *topics.Responder
	opts      Options
}

func New(agent domain.AgentClient, responder *topics.Responder, opts Options) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if agent == nil {
		opts.Configured = false
	}
	return &Gateway{
		agent:     agent,
		responder: responder,
		opts:      opts,
	}
}

// Provider names the underlying agent transport, "local" when there is none.
func (g *Gateway) Provider() string {
	if g.agent == nil {
		return "local"
	}
	return g.agent.Name()
}

func (g *Gateway) Configured() bool {
	return g.opts.Configured
}

// GetAnswer never fails. Each call is an independent AgentSession bounded by
// the configured timeout; a result arriving after the timeout is discarded.
func (g *Gateway) GetAnswer(ctx context.Context, question string) Result {
	log := observability.LoggerFromContext(ctx).With("provider", g.Provider())

	if !g.opts.Configured {
		log.Debug("agent credential not configured, answering locally")
		return g.fallback(question, ReasonUnconfigured, domain.ErrConfiguration)
	}

	if g.opts.Limiter != nil && !g.opts.Limiter.Allow() {
		log.Warn("agent rate limit reached, answering locally")
		return g.fallback(question, ReasonRateLimited, domain.ErrRateLimited)
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	// buffered so a late reply never blocks the agent goroutine
	replies := make(chan reply, 1)

	done := g.opts.Metrics.AgentStarted(g.Provider())
	go func() {
		text, err := g.agent.Ask(ctx, question)
		replies <- reply{text: text, err: err}
	}()

	select {
	case r := <-replies:
		switch {
		case r.err != nil:
			if errors.Is(r.err, domain.ErrTimeout) || errors.Is(r.err, context.DeadlineExceeded) {
				done("timeout")
				log.Warn("agent timed out", "error", r.err)
				return g.fallback(question, ReasonTimeout, r.err)
			}
			done("error")
			log.Warn("agent call failed", "error", r.err)
			return g.fallback(question, ReasonTransport, r.err)
		case strings.TrimSpace(r.text) == "":
			done("error")
			log.Warn("agent returned empty answer")
			return g.fallback(question, ReasonTransport, domain.ErrTransport)
		default:
			done("success")
			return Result{Text: strings.TrimSpace(r.text), Source: domain.SourceAgent}
		}

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			done("timeout")
			log.Warn("agent session exceeded ceiling", "timeout", g.opts.Timeout)
			return g.fallback(question, ReasonTimeout, domain.ErrTimeout)
		}
		done("canceled")
		log.Info("agent session canceled")
		return g.fallback(question, ReasonCanceled, ctx.Err())
	}
}

// AnswerLocally bypasses the remote agent entirely.
func (g *Gateway) AnswerLocally(question string) string {
	return g.responder.Respond(question)
}

func (g *Gateway) fallback(question, reason string, err error) Result {
	g.opts.Metrics.Fallback(reason)
	return Result{
		Text:   g.responder.Respond(question),
		Source: domain.SourceFallback,
		Reason: reason,
		Err:    err,
	}
}
