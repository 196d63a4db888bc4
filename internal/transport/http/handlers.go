// Package http exposes the poll-friendly JSON API. Clients poll the read
// endpoints on their own interval; nothing here pushes. Room-driving
// operations require the room's host token, submissions the player's token,
// both carried as opaque bearer values.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/gamemode"
	"quizroom-service/internal/poll"
)

// SyncConfig is the poll cadence the server advertises; clients pace their
// tickers from it instead of hard-coding intervals.
type SyncConfig struct {
	HostInterval   time.Duration
	PlayerInterval time.Duration
}

type Handler struct {
	quizzes *app.QuizService
	rooms   *app.RoomService
	ledger  *app.Ledger
	sync    SyncConfig
}

func NewHandler(quizzes *app.QuizService, rooms *app.RoomService, ledger *app.Ledger, sync SyncConfig) *Handler {
	if sync.HostInterval <= 0 {
		sync.HostInterval = poll.DefaultHostInterval
	}
	if sync.PlayerInterval <= 0 {
		sync.PlayerInterval = poll.DefaultPlayerInterval
	}
	return &Handler{quizzes: quizzes, rooms: rooms, ledger: ledger, sync: sync}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /sync", h.syncConfig)
	mux.HandleFunc("GET /gamemodes", h.gameModes)

	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes/{id}", h.quizContent)
	mux.HandleFunc("PUT /quizzes/{id}/questions", h.replaceQuestions)

	mux.HandleFunc("POST /rooms", h.createRoom)
	mux.HandleFunc("GET /rooms/{code}", h.roomByCode)
	mux.HandleFunc("POST /rooms/{code}/join", h.joinRoom)

	mux.HandleFunc("POST /rooms/{id}/start", h.hostTransition(h.rooms.Start))
	mux.HandleFunc("POST /rooms/{id}/advance", h.advance)
	mux.HandleFunc("POST /rooms/{id}/retreat", h.hostTransition(h.rooms.Retreat))
	mux.HandleFunc("POST /rooms/{id}/finish", h.hostTransition(h.rooms.Finish))
	mux.HandleFunc("GET /rooms/{id}/snapshot", h.snapshot)
	mux.HandleFunc("POST /rooms/{id}/reveal", h.reveal)
	mux.HandleFunc("GET /rooms/{id}/scoreboard", h.scoreboard)
	mux.HandleFunc("GET /rooms/{id}/summary", h.summary)

	mux.HandleFunc("POST /submissions", h.submit)
	mux.HandleFunc("GET /rooms/{id}/submissions/own", h.ownSubmission)
	mux.HandleFunc("GET /rooms/{id}/placements/own", h.ownPlacements)
	mux.HandleFunc("POST /submissions/{id}/evaluate", h.evaluate)
}

// syncConfig tells clients how often to poll.
func (h *Handler) syncConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hostIntervalMs":   h.sync.HostInterval.Milliseconds(),
		"playerIntervalMs": h.sync.PlayerInterval.Milliseconds(),
	})
}

// gameModes lists the playable quiz types so authoring clients never
// hard-code the registry.
func (h *Handler) gameModes(w http.ResponseWriter, r *http.Request) {
	types := gamemode.Types()
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	modes := make([]map[string]any, 0, len(types))
	for _, t := range types {
		mode, _ := gamemode.Lookup(t)
		modes = append(modes, map[string]any{
			"type":   mode.Type(),
			"label":  mode.Label(),
			"policy": mode.Policy(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"modes": modes})
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string          `json:"title"`
		QuizType domain.QuizType `json:"quizType"`
	}
	if !decode(w, r, &body) {
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), body.Title, body.QuizType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) quizContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.quizzes.Content(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *Handler) replaceQuestions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Questions []domain.Question `json:"questions"`
	}
	if !decode(w, r, &body) {
		return
	}
	questions, err := h.quizzes.ReplaceQuestions(r.Context(), r.PathValue("id"), body.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuizID         string `json:"quizId"`
		ScoringEnabled *bool  `json:"scoringEnabled"`
	}
	if !decode(w, r, &body) {
		return
	}
	scoring := true
	if body.ScoringEnabled != nil {
		scoring = *body.ScoringEnabled
	}
	room, err := h.rooms.CreateRoom(r.Context(), body.QuizID, scoring)
	if err != nil {
		writeError(w, err)
		return
	}
	// the host token is returned exactly once, at creation
	writeJSON(w, http.StatusCreated, map[string]any{"room": room, "hostToken": room.HostToken})
}

func (h *Handler) roomByCode(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.RoomByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *Handler) joinRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname"`
	}
	if !decode(w, r, &body) {
		return
	}
	player, room, err := h.rooms.Join(r.Context(), r.PathValue("code"), body.Nickname)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"player":      player,
		"playerToken": player.Token,
		"room":        room,
	})
}

// hostTransition adapts the host-driven state transitions that share the
// (roomID, hostToken) -> Room shape.
func (h *Handler) hostTransition(op func(ctx context.Context, roomID, hostToken string) (domain.Room, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := op(r.Context(), r.PathValue("id"), bearer(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmed bool `json:"confirmed"`
	}
	if r.ContentLength > 0 && !decode(w, r, &body) {
		return
	}
	room, err := h.rooms.Advance(r.Context(), r.PathValue("id"), bearer(r), body.Confirmed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.rooms.Snapshot(r.Context(), r.PathValue("id"), bearer(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) reveal(w http.ResponseWriter, r *http.Request) {
	result, err := h.rooms.RevealResults(r.Context(), r.PathValue("id"), bearer(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) scoreboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rooms.Scoreboard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.rooms.Summary(r.Context(), r.PathValue("id"), bearer(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": summary})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomID     string `json:"roomId"`
		QuestionID string `json:"questionId"`
		PlayerID   string `json:"playerId"`
		AnswerText string `json:"answerText"`
	}
	if !decode(w, r, &body) {
		return
	}
	result, err := h.ledger.Submit(r.Context(), body.RoomID, body.QuestionID, body.PlayerID, bearer(r), body.AnswerText)
	if err != nil {
		writeError(w, err)
		return
	}
	// a reconciled duplicate is a success from the player's point of view
	status := http.StatusCreated
	if result.AlreadySubmitted {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (h *Handler) ownSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.ledger.OwnSubmission(r.Context(),
		r.PathValue("id"),
		r.URL.Query().Get("questionId"),
		r.URL.Query().Get("playerId"),
		bearer(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) ownPlacements(w http.ResponseWriter, r *http.Request) {
	placements, err := h.ledger.Placements(r.Context(),
		r.PathValue("id"),
		r.URL.Query().Get("playerId"),
		bearer(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"placements": placements})
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Correct bool `json:"correct"`
	}
	if !decode(w, r, &body) {
		return
	}
	sub, err := h.rooms.Evaluate(r.Context(), r.PathValue("id"), bearer(r), body.Correct)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var precondition *domain.PreconditionError
	switch {
	case errors.Is(err, domain.ErrPendingAnswers):
		// protocol-level confirmation step: the host retries with confirmed=true
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "confirm_required"})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation"})
	case errors.As(err, &precondition):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "precondition"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "store unavailable, try again"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
