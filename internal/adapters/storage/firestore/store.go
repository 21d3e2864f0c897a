package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/instructor-relay/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore room store for the given project (GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) roomsCol() *firestore.CollectionRef {
	return s.client.Collection("rooms")
}

func (s *Store) roomDoc(id domain.RoomID) *firestore.DocumentRef {
	return s.roomsCol().Doc(string(id))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type roomDoc struct {
	Source         string    `firestore:"source"`
	StartedAt      time.Time `firestore:"started_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
	QuestionsAsked int       `firestore:"questions_asked"`
	Answered       int       `firestore:"answered"`
	Ignored        int       `firestore:"ignored"`
	Fallbacks      int       `firestore:"fallbacks"`
}

func toRoomDoc(r *domain.RoomSession) roomDoc {
	return roomDoc{
		Source:         r.Source,
		StartedAt:      r.StartedAt,
		UpdatedAt:      r.UpdatedAt,
		QuestionsAsked: r.QuestionsAsked,
		Answered:       r.Answered,
		Ignored:        r.Ignored,
		Fallbacks:      r.Fallbacks,
	}
}

func fromRoomDoc(id domain.RoomID, d roomDoc) *domain.RoomSession {
	return &domain.RoomSession{
		ID:             id,
		Source:         d.Source,
		StartedAt:      d.StartedAt,
		UpdatedAt:      d.UpdatedAt,
		QuestionsAsked: d.QuestionsAsked,
		Answered:       d.Answered,
		Ignored:        d.Ignored,
		Fallbacks:      d.Fallbacks,
	}
}

// ─────────────────────────────────────────
// RoomStore implementation
// ─────────────────────────────────────────

func (s *Store) Save(ctx context.Context, room *domain.RoomSession) error {
	_, err := s.roomDoc(room.ID).Set(ctx, toRoomDoc(room))
	if err != nil {
		return fmt.Errorf("firestore SaveRoom: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.RoomID) (*domain.RoomSession, error) {
	snap, err := s.roomDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("firestore GetRoom: %w", err)
	}

	var doc roomDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetRoom decode: %w", err)
	}

	return fromRoomDoc(id, doc), nil
}

func (s *Store) Delete(ctx context.Context, id domain.RoomID) error {
	if _, err := s.roomDoc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteRoom: %w", err)
	}
	return nil
}

// List returns the most recently updated rooms, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*domain.RoomSession, error) {
	q := s.roomsCol().OrderBy("updated_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.RoomSession
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListRooms: %w", err)
		}

		var doc roomDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode roomDoc: %w", err)
		}
		out = append(out, fromRoomDoc(domain.RoomID(snap.Ref.ID), doc))
	}
	return out, nil
}
