package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/instructor-relay/internal/app/relay"
	"github.com/PabloGalante/instructor-relay/internal/domain"
	"github.com/PabloGalante/instructor-relay/internal/observability"
)

// maximum accepted request body
const maxBody = 64 << 10

// Asker is the relay operation behind POST / and POST /ask.
type Asker interface {
	Ask(ctx context.Context, in relay.AskInput) (*relay.AskOutput, error)
}

// Rooms is the room manager surface used by /rooms routes.
type Rooms interface {
	Ask(ctx context.Context, id domain.RoomID, q domain.Question) (*relay.AskOutput, error)
	Get(ctx context.Context, id domain.RoomID) (*domain.RoomSession, error)
	List(ctx context.Context, limit int) ([]*domain.RoomSession, error)
	End(ctx context.Context, id domain.RoomID) error
}

type Options struct {
	// Classify applies the question gate on POST / and /ask. Rooms always classify.
	Classify        bool
	Service         string
	Provider        string
	AgentConfigured bool
	Metrics         *observability.Metrics
}

type Server struct {
	relay Asker
	rooms Rooms
	opts  Options
	now   func() time.Time
}

func NewServer(svc Asker, rooms Rooms, opts Options) http.Handler {
	if opts.Service == "" {
		opts.Service = "instructor-relay"
	}
	s := &Server{relay: svc, rooms: rooms, opts: opts, now: time.Now}
	mux := http.NewServeMux()

	// method checks for these two are done by hand so a wrong method gets the JSON 405
	mux.HandleFunc("/{$}", s.handleAsk)
	mux.HandleFunc("/ask", s.handleAsk)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", opts.Metrics.Handler())

	if rooms != nil {
		mux.HandleFunc("GET /rooms", s.handleListRooms)
		mux.HandleFunc("POST /rooms/{roomID}/ask", s.handleRoomAsk)
		mux.HandleFunc("GET /rooms/{roomID}", s.handleGetRoom)
		mux.HandleFunc("DELETE /rooms/{roomID}", s.handleEndRoom)
	}

	return chainMiddlewares(mux,
		withRecover,
		withLogging,
		withRequestID,
		withCORS,
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type askRequest struct {
	Question string          `json:"question"`
	Context  *contextRequest `json:"context,omitempty"`
}

type contextRequest struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	MeetingID string `json:"meetingId"`
}

type answerResponse struct {
	ID        string    `json:"id"`
	Answer    *string   `json:"answer"`
	Respond   bool      `json:"respond"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Source    string    `json:"source"`
}

type healthResponse struct {
	Status          string    `json:"status"`
	Service         string    `json:"service"`
	Timestamp       time.Time `json:"timestamp"`
	AgentConfigured bool      `json:"agent_configured"`
	Provider        string    `json:"provider"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type roomsResponse struct {
	Rooms []*domain.RoomSession `json:"rooms"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	q, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	out, err := s.relay.Ask(r.Context(), relay.AskInput{
		Question: q,
		Classify: s.opts.Classify,
		Endpoint: endpointName(r.URL.Path),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerResponse(out.Answer))
}

func (s *Server) handleRoomAsk(w http.ResponseWriter, r *http.Request) {
	q, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	out, err := s.rooms.Ask(r.Context(), domain.RoomID(r.PathValue("roomID")), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerResponse(out.Answer))
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.Get(r.Context(), domain.RoomID(r.PathValue("roomID")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rooms, err := s.rooms.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []*domain.RoomSession{}
	}
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: rooms})
}

func (s *Server) handleEndRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.rooms.End(r.Context(), domain.RoomID(r.PathValue("roomID"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Service:         s.opts.Service,
		Timestamp:       s.now().UTC(),
		AgentConfigured: s.opts.AgentConfigured,
		Provider:        s.opts.Provider,
	})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func decodeQuestion(w http.ResponseWriter, r *http.Request) (domain.Question, bool) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		badRequest(w, "Invalid JSON body")
		return domain.Question{}, false
	}

	if strings.TrimSpace(req.Question) == "" {
		badRequest(w, "Question is required")
		return domain.Question{}, false
	}

	q := domain.Question{Text: req.Question}
	if c := req.Context; c != nil {
		qc := &domain.QuestionContext{Source: c.Source, MeetingID: c.MeetingID}
		// front-ends send various formats; an unparseable timestamp is dropped
		if ts, err := time.Parse(time.RFC3339, c.Timestamp); err == nil {
			qc.Timestamp = ts
		}
		q.Context = qc
	}
	return q, true
}

func endpointName(path string) string {
	if path == "/ask" {
		return "ask"
	}
	return "root"
}

func toAnswerResponse(a *domain.Answer) answerResponse {
	return answerResponse{
		ID:        a.ID,
		Answer:    a.Text,
		Respond:   a.Respond,
		Timestamp: a.Timestamp.UTC(),
		Agent:     a.Agent,
		Source:    string(a.Source),
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		badRequest(w, "Question is required")
	case errors.Is(err, domain.ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Room not found"})
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		internalError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
}
