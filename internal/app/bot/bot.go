// Package bot sits in a meeting, listens to captions and posts the relay's
// answers into the meeting chat.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

// Caption is one finished line of speech-to-text from the meeting.
type Caption struct {
	Speaker string
	Text    string
	At      time.Time
}

// Meeting is what a conferencing platform has to offer the bot.
type Meeting interface {
	Join(ctx context.Context, meetingID string) error
	Captions(ctx context.Context) (<-chan Caption, error)
	SendChatMessage(ctx context.Context, text string) error
	Leave(ctx context.Context) error
}

// Rooms is the part of the room manager the bot drives.
type Rooms interface {
	Ask(ctx context.Context, id domain.RoomID, q domain.Question) (*relay.AskOutput, error)
	End(ctx context.Context, id domain.RoomID) error
}

type Bot struct {
	meeting Meeting
	rooms   Rooms
}

func New(meeting Meeting, rooms Rooms) *Bot {
	return &Bot{meeting: meeting, rooms: rooms}
}

// Run joins the meeting and answers captions until they stop or ctx ends.
// Captions are handled one at a time, in order.
func (b *Bot) Run(ctx context.Context, meetingID string) error {
	if strings.TrimSpace(meetingID) == "" {
		return fmt.Errorf("%w: meeting id is required", domain.ErrInvalidRequest)
	}
	log := observability.LoggerFromContext(ctx).With("meeting_id", meetingID)

	if err := b.meeting.Join(ctx, meetingID); err != nil {
		return fmt.Errorf("bot: join %s: %w", meetingID, err)
	}
	log.Info("bot joined meeting")

	room := domain.RoomID(meetingID)
	cleanup := context.WithoutCancel(ctx)
	defer func() {
		if err := b.rooms.End(cleanup, room); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			log.Warn("bot: ending room failed", "error", err)
		}
		if err := b.meeting.Leave(cleanup); err != nil {
			log.Warn("bot: leave failed", "error", err)
		}
		log.Info("bot left meeting")
	}()

	captions, err := b.meeting.Captions(ctx)
	if err != nil {
		return fmt.Errorf("bot: captions: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-captions:
			if !ok {
				return nil
			}
			b.handle(ctx, log, room, meetingID, c)
		}
	}
}

func (b *Bot) handle(ctx context.Context, log *slog.Logger, room domain.RoomID, meetingID string, c Caption) {
	if strings.TrimSpace(c.Text) == "" {
		return
	}
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}

	out, err := b.rooms.Ask(ctx, room, domain.Question{
		Text:    c.Text,
		Context: &domain.QuestionContext{Source: "bot", Timestamp: at, MeetingID: meetingID},
	})
	if err != nil {
		log.Warn("bot: ask failed", "error", err)
		return
	}
	if !out.Answer.Respond || out.Answer.Text == nil {
		return
	}
	if err := b.meeting.SendChatMessage(ctx, *out.Answer.Text); err != nil {
		log.Warn("bot: posting answer failed", "error", err)
	}
}
