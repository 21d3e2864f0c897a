package domain

import "context"

// AgentClient is one transport to a remote conversational agent.
// Implementations return ErrTransport / ErrTimeout wrapped errors; the
// gateway is responsible for turning those into a displayable answer.
type AgentClient interface {
	Name() string
	Ask(ctx context.Context, question string) (string, error)
}

// RoomStore persists RoomSession bookkeeping.
// Get returns ErrRoomNotFound when the room does not exist.
type RoomStore interface {
	Save(ctx context.Context, room *RoomSession) error
	Get(ctx context.Context, id RoomID) (*RoomSession, error)
	Delete(ctx context.Context, id RoomID) error
	// List returns up to limit rooms, most recently updated first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*RoomSession, error)
}
