// Package handler exposes the interview API over HTTP as JSON.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/interviewer/internal/evaluator"
	appI18n "github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/session"
)

const (
	maxBodyBytes  = 1 << 20
	MaxBatchItems = 50
)

// Sessions is the session lifecycle API.
type Sessions interface {
	Start(ctx context.Context, req session.StartRequest) (*session.StartResult, error)
	ProcessAnswer(ctx context.Context, id int64, text string) (*session.AnswerResult, error)
	Pause(ctx context.Context, id int64) error
	Resume(ctx context.Context, id int64) (*session.ResumeResult, error)
	EndEarly(ctx context.Context, id int64) (*session.EndResult, error)
	Status(ctx context.Context, id int64) (*model.Session, error)
}

// Profiles is the user profile API.
type Profiles interface {
	Create(ctx context.Context, u model.User) (*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Analytics(ctx context.Context, id int64) (*model.UserAnalytics, error)
	Recommendations(ctx context.Context, id int64) ([]string, error)
}

// BatchEvaluator scores independent (question, answer) pairs.
type BatchEvaluator interface {
	EvaluateBatch(ctx context.Context, items []evaluator.Item) []model.Evaluation
}

// AdminStore backs the admin routes.
type AdminStore interface {
	ListSessions() ([]model.SessionRecord, error)
	Export(now time.Time) (*model.InterviewExport, error)
	GetAdminKeyHash() (string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	sessions Sessions
	profiles Profiles
	eval     BatchEvaluator
	admin    AdminStore
	now      func() time.Time
}

// New creates a new Handler.
func New(sessions Sessions, profiles Profiles, eval BatchEvaluator, admin AdminStore) *Handler {
	return &Handler{sessions: sessions, profiles: profiles, eval: eval, admin: admin, now: time.Now}
}

// Router returns a chi router with the standard middleware stack and all
// routes mounted. lang is the fallback language for localized text.
func (h *Handler) Router(lang string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/users", h.handleCreateUser)
	r.Get("/users/{userID}", h.handleGetUser)
	r.Get("/users/{userID}/analytics", h.handleUserAnalytics)

	r.Post("/sessions", h.handleStartSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleSessionStatus)
		r.Post("/answers", h.handleAnswer)
		r.Post("/pause", h.handlePause)
		r.Post("/resume", h.handleResume)
		r.Post("/end", h.handleEnd)
	})

	r.Post("/evaluate", h.handleEvaluate)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/sessions", h.handleAdminSessions)
		r.Get("/export", h.handleAdminExport)
	})
}

type createUserRequest struct {
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	Domain          string                `json:"domain"`
	ExperienceLevel model.ExperienceLevel `json:"experience_level"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.profiles.Create(r.Context(), model.User{
		Name:            req.Name,
		Email:           req.Email,
		Domain:          req.Domain,
		ExperienceLevel: req.ExperienceLevel,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	u, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type analyticsResponse struct {
	*model.UserAnalytics
	Recommendations []string `json:"recommendations"`
}

func (h *Handler) handleUserAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	a, err := h.profiles.Analytics(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := h.profiles.Recommendations(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyticsResponse{UserAnalytics: a, Recommendations: recs})
}

type startSessionRequest struct {
	UserID      int64           `json:"user_id"`
	Domain      string          `json:"domain"`
	JobContext  string          `json:"job_context"`
	Preferences json.RawMessage `json:"preferences"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start := session.StartRequest{UserID: req.UserID, Domain: req.Domain, JobContext: req.JobContext}
	if len(req.Preferences) > 0 && string(req.Preferences) != "null" {
		// Fields the client leaves out keep their defaults.
		prefs := model.DefaultPreferences()
		if err := json.Unmarshal(req.Preferences, &prefs); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid preferences: " + err.Error()})
			return
		}
		start.Preferences = &prefs
	}

	res, err := h.sessions.Start(r.Context(), start)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	s, err := h.sessions.Status(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s == nil {
		writeError(w, r, fmt.Errorf("session %d: %w", id, model.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.sessions.ProcessAnswer(r.Context(), id, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	if err := h.sessions.Pause(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.SessionStatus{"status": model.StatusPaused})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	res, err := h.sessions.Resume(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	res, err := h.sessions.EndEarly(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type evaluateRequest struct {
	Items []evaluator.Item `json:"items"`
}

type evaluateResponse struct {
	Evaluations []model.Evaluation `json:"evaluations"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 || len(req.Items) > MaxBatchItems {
		writeError(w, r, fmt.Errorf("items must contain 1 to %d entries: %w", MaxBatchItems, model.ErrValidation))
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Evaluations: h.eval.EvaluateBatch(r.Context(), req.Items)})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps domain errors to HTTP status codes. ErrNotFound is checked
// first so errors matching several sentinels get 404.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}
