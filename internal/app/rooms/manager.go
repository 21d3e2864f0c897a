// Package rooms keeps one explicit session per live meeting or training room.
// Ending a room cancels every AgentSession still waiting on its behalf.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

// Asker is the relay operation rooms delegate to.
type Asker interface {
	Ask(ctx context.Context, in relay.AskInput) (*relay.AskOutput, error)
}

type room struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	stats  domain.RoomSession
}

type Manager struct {
	asker Asker
	store domain.RoomStore
	now   func() time.Time

	mu    sync.Mutex
	rooms map[domain.RoomID]*room
}

func NewManager(asker Asker, store domain.RoomStore) *Manager {
	return &Manager{
		asker: asker,
		store: store,
		now:   time.Now,
		rooms: make(map[domain.RoomID]*room),
	}
}

// open returns the live room, creating it on first use, and registers one
// in-flight ask on it. The caller must call r.wg.Done.
func (m *Manager) open(ctx context.Context, id domain.RoomID, source string) (*room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[id]; ok {
		r.wg.Add(1)
		return r, nil
	}

	now := m.now()
	stats := domain.RoomSession{
		ID:        id,
		Source:    source,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, &stats); err != nil {
		return nil, fmt.Errorf("rooms: open %s: %w", id, err)
	}

	// a room outlives the request that opened it
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &room{ctx: rctx, cancel: cancel, stats: stats}
	r.wg.Add(1)
	m.rooms[id] = r

	observability.LoggerFromContext(ctx).Info("room opened", "room_id", id, "source", source)
	return r, nil
}

// Ask answers a question on behalf of a room, always classifying first so the
// assistant does not interject on chatter. The agent wait is cancelled when
// either the caller's ctx or the room ends.
func (m *Manager) Ask(ctx context.Context, id domain.RoomID, q domain.Question) (*relay.AskOutput, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: room id is required", domain.ErrInvalidRequest)
	}

	source := "training_room"
	if q.Context != nil && q.Context.Source != "" {
		source = q.Context.Source
	}

	r, err := m.open(ctx, id, source)
	if err != nil {
		return nil, err
	}
	defer r.wg.Done()

	askCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(r.ctx, cancel)
	defer stop()

	out, err := m.asker.Ask(askCtx, relay.AskInput{
		Question: q,
		Classify: true,
		Endpoint: "room",
	})
	if err != nil {
		return nil, err
	}

	m.record(ctx, r, out)
	return out, nil
}

// record updates room stats unless the room has ended meanwhile.
func (m *Manager) record(ctx context.Context, r *room, out *relay.AskOutput) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.stats.QuestionsAsked++
	switch {
	case !out.Answer.Respond:
		r.stats.Ignored++
	case out.Answer.Source == domain.SourceFallback:
		r.stats.Answered++
		r.stats.Fallbacks++
	default:
		r.stats.Answered++
	}
	r.stats.UpdatedAt = m.now()
	snapshot := r.stats
	r.mu.Unlock()

	// the asker may have returned because ctx was cancelled; the stats still count
	if err := m.store.Save(context.WithoutCancel(ctx), &snapshot); err != nil {
		observability.LoggerFromContext(ctx).Warn("failed to save room stats", "room_id", snapshot.ID, "error", err)
	}
}

// Get returns the room's current stats, from memory when live, else from the store.
func (m *Manager) Get(ctx context.Context, id domain.RoomID) (*domain.RoomSession, error) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	m.mu.Unlock()

	if ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		stats := r.stats
		return &stats, nil
	}
	return m.store.Get(ctx, id)
}

func (m *Manager) List(ctx context.Context, limit int) ([]*domain.RoomSession, error) {
	return m.store.List(ctx, limit)
}

// End closes a room: outstanding agent waits are cancelled, End blocks until
// they have returned, and no stats are written afterwards.
func (m *Manager) End(ctx context.Context, id domain.RoomID) error {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	if !ok {
		if _, err := m.store.Get(ctx, id); err != nil {
			return err
		}
		return m.store.Delete(ctx, id)
	}

	r.mu.Lock()
	r.closed = true
	stats := r.stats
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	observability.LoggerFromContext(ctx).Info("room ended",
		"room_id", id,
		"questions_asked", stats.QuestionsAsked,
		"answered", stats.Answered,
		"fallbacks", stats.Fallbacks,
	)
	return m.store.Delete(ctx, id)
}

// Shutdown ends every live room.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]domain.RoomID, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.End(ctx, id); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
