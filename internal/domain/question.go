package domain

import "time"

// QuestionContext is optional metadata supplied by the front-end that captured the text.
type QuestionContext struct {
	Source    string    `json:"source,omitempty"` // sidebar, bot, training_room, cli
	Timestamp time.Time `json:"timestamp,omitempty"`
	MeetingID string    `json:"meetingId,omitempty"`
}

// Question is created by a UI and passed by value; nothing mutates it.
type Question struct {
	Text    string
	Context *QuestionContext
}

// Answer is produced exactly once per accepted Question.
// Text == nil together with Respond == false means "display nothing".
type Answer struct {
	ID        string
	Text      *string
	Respond   bool
	Timestamp Timestamp
	Agent     string
	Source    AnswerSource
}

// ChatMessage lives only in a client's local, append-only transcript.
type ChatMessage struct {
	Text      string
	Role      Role
	Timestamp Timestamp
}

// RoomSession is the bookkeeping kept for a live meeting or training room.
type RoomSession struct {
	ID             RoomID    `json:"id"`
	Source         string    `json:"source"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	QuestionsAsked int       `json:"questions_asked"`
	Answered       int       `json:"answered"`
	Ignored        int       `json:"ignored"`
	Fallbacks      int       `json:"fallbacks"`
}
