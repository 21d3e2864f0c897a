package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

// RoomStore is an in-memory domain.RoomStore.
// It is NOT persistent and is only suitable for a single process.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]domain.RoomSession
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[domain.RoomID]domain.RoomSession),
	}
}

func (s *RoomStore) Save(_ context.Context, room *domain.RoomSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// store a copy so callers can't mutate what we hold
	s.rooms[room.ID] = *room
	return nil
}

func (s *RoomStore) Get(_ context.Context, id domain.RoomID) (*domain.RoomSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &room, nil
}

func (s *RoomStore) Delete(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, id)
	return nil
}

func (s *RoomStore) List(_ context.Context, limit int) ([]*domain.RoomSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RoomSession, 0, len(s.rooms))
	for _, room := range s.rooms {
		r := room
		out = append(out, &r)
	}
	sortByUpdated(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByUpdated(rooms []*domain.RoomSession) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].UpdatedAt.Equal(rooms[j].UpdatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
	})
}
