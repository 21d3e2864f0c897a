package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

const (
	roomKeyPrefix = "relay:room:"
	defaultTTL    = 24 * time.Hour
)

// RoomStore keeps RoomSession bookkeeping in Redis so several relay
// instances behind a load balancer report the same room stats.
type RoomStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRoomStore(client *goredis.Client, ttl time.Duration) *RoomStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RoomStore{
		client: client,
		ttl:    ttl,
	}
}

// Save writes the room and refreshes its TTL.
func (s *RoomStore) Save(ctx context.Context, room *domain.RoomSession) error {
	val, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("redis RoomStore.Save encode: %w", err)
	}

	if err := s.client.Set(ctx, s.key(room.ID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis RoomStore.Save: %w", err)
	}
	return nil
}

func (s *RoomStore) Get(ctx context.Context, id domain.RoomID) (*domain.RoomSession, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis RoomStore.Get: %w", err)
	}

	var room domain.RoomSession
	if err := json.Unmarshal(val, &room); err != nil {
		return nil, fmt.Errorf("redis RoomStore.Get decode: %w", err)
	}
	return &room, nil
}

func (s *RoomStore) Delete(ctx context.Context, id domain.RoomID) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis RoomStore.Delete: %w", err)
	}
	return nil
}

// List scans the room keyspace; meant for admin views, not hot paths.
func (s *RoomStore) List(ctx context.Context, limit int) ([]*domain.RoomSession, error) {
	var out []*domain.RoomSession

	iter := s.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("redis RoomStore.List: %w", err)
		}

		var room domain.RoomSession
		if err := json.Unmarshal(val, &room); err != nil {
			return nil, fmt.Errorf("redis RoomStore.List decode: %w", err)
		}
		out = append(out, &room)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis RoomStore.List scan: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RoomStore) Close() error {
	return s.client.Close()
}

func (s *RoomStore) key(id domain.RoomID) string {
	return roomKeyPrefix + string(id)
}
