// Package session runs interview sessions: it issues questions, scores
// answers, tracks progress, and rebuilds sessions from the store when the
// in-memory copy is gone.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/questions"
	"github.com/pavelanni/interviewer/internal/summary"
)

// Store is the persistence the manager needs.
type Store interface {
	GetUserByID(id int64) (*model.User, error)
	CreateSession(userID int64, domain, jobContext string, startedAt time.Time, qs []model.Question) (int64, []model.Question, error)
	GetSession(id int64) (*model.SessionRecord, error)
	GetSessionQuestions(sessionID int64) ([]model.Question, error)
	SaveAnswer(a model.Answer, ev model.Evaluation) (int64, error)
	GetSessionAnswers(sessionID int64) ([]model.AnswerRecord, error)
	FinishSession(id int64, questionsAsked int, avgScore float64, duration time.Duration) error
}

// QuestionSource supplies the questions of a new session.
type QuestionSource interface {
	Generate(ctx context.Context, req model.QuestionRequest) []model.Question
}

// Evaluator scores one answer. It never fails.
type Evaluator interface {
	Evaluate(ctx context.Context, q model.Question, answer string) model.Evaluation
}

// StartRequest describes a new session. A nil Preferences means defaults.
type StartRequest struct {
	UserID      int64
	Domain      string
	JobContext  string
	Preferences *model.Preferences
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID      int64          `json:"session_id"`
	Question       model.Question `json:"question"`
	TotalQuestions int            `json:"total_questions"`
}

// AnswerResult is returned by ProcessAnswer. NextQuestion is nil and
// Summary is set once the last question has been answered.
type AnswerResult struct {
	Evaluation    model.Evaluation      `json:"evaluation"`
	NextQuestion  *model.Question       `json:"next_question,omitempty"`
	FollowUp      string                `json:"follow_up,omitempty"`
	Encouragement string                `json:"encouragement,omitempty"`
	Progress      float64               `json:"progress"`
	Completed     bool                  `json:"session_complete"`
	Summary       *model.SessionSummary `json:"summary,omitempty"`
}

// ResumeResult is returned by Resume.
type ResumeResult struct {
	Question       model.Question `json:"question"`
	QuestionNumber int            `json:"question_number"`
	TotalQuestions int            `json:"total_questions"`
	Progress       float64        `json:"progress"`
}

// EndResult is returned by EndEarly. Partial is nil for cancelled sessions.
type EndResult struct {
	Status  model.SessionStatus   `json:"status"`
	Partial *model.PartialSummary `json:"partial_summary,omitempty"`
}

// Manager owns the lifecycle of all sessions. Operations on one session ID
// are serialized; different sessions proceed independently.
type Manager struct {
	store     Store
	questions QuestionSource
	eval      Evaluator
	registry  Registry
	locks     keyedMutex
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry sets the live-session registry. The default is a MemoryRegistry.
func WithRegistry(r Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager.
func New(store Store, source QuestionSource, eval Evaluator, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		questions: source,
		eval:      eval,
		tracer:    otel.Tracer("github.com/pavelanni/interviewer/internal/session"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.registry == nil {
		m.registry = NewMemoryRegistry()
	}
	return m
}

func validatePreferences(p model.Preferences) error {
	if p.NumQuestions < 1 || p.NumQuestions > model.MaxQuestionsPerSession {
		return fmt.Errorf("num_questions must be between 1 and %d, got %d: %w",
			model.MaxQuestionsPerSession, p.NumQuestions, model.ErrValidation)
	}
	for _, t := range p.QuestionTypes {
		if !model.IsValidQuestionType(t) {
			return fmt.Errorf("unknown question type %q: %w", t, model.ErrValidation)
		}
	}
	return nil
}

// Start creates a session for req.UserID and returns its first question.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	ctx, span := m.tracer.Start(ctx, "session.Start", trace.WithAttributes(
		attribute.Int64("user.id", req.UserID),
	))
	defer span.End()

	prefs := model.DefaultPreferences()
	if req.Preferences != nil {
		prefs = *req.Preferences
		prefs.QuestionTypes = slices.Clone(prefs.QuestionTypes)
	}
	if len(prefs.QuestionTypes) == 0 {
		prefs.QuestionTypes = slices.Clone(model.QuestionTypes)
	}
	if err := validatePreferences(prefs); err != nil {
		return nil, err
	}

	user, err := m.store.GetUserByID(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", req.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", req.UserID, model.ErrNotFound)
	}
	domain := req.Domain
	if domain == "" {
		domain = user.Domain
	}

	qs := m.questions.Generate(ctx, model.QuestionRequest{
		Domain:          domain,
		ExperienceLevel: user.ExperienceLevel,
		JobContext:      req.JobContext,
		Count:           prefs.NumQuestions,
		Types:           prefs.QuestionTypes,
		Progression:     prefs.DifficultyProgression,
	})
	if len(qs) == 0 {
		return nil, fmt.Errorf("question source returned no questions for %q", domain)
	}
	if len(qs) < prefs.NumQuestions {
		slog.Warn("question source returned fewer questions than requested",
			"requested", prefs.NumQuestions, "got", len(qs))
	}

	started := m.now()
	id, stored, err := m.store.CreateSession(user.ID, domain, req.JobContext, started, qs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create session")
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.registry.Put(&model.Session{
		ID:              id,
		UserID:          user.ID,
		UserName:        user.Name,
		ExperienceLevel: user.ExperienceLevel,
		Domain:          domain,
		JobContext:      req.JobContext,
		Questions:       stored,
		Status:          model.StatusActive,
		StartedAt:       started,
		Preferences:     prefs,
	})
	span.SetAttributes(attribute.Int64("session.id", id), attribute.Int("session.questions", len(stored)))
	slog.Info("session started", "session_id", id, "user_id", user.ID, "domain", domain, "questions", len(stored))

	return &StartResult{SessionID: id, Question: stored[0], TotalQuestions: len(stored)}, nil
}

// ProcessAnswer scores text against the current question and advances the
// session. Nothing changes if the answer cannot be persisted.
func (m *Manager) ProcessAnswer(ctx context.Context, id int64, text string) (*AnswerResult, error) {
	ctx, span := m.tracer.Start(ctx, "session.ProcessAnswer", trace.WithAttributes(
		attribute.Int64("session.id", id),
	))
	defer span.End()

	unlock := m.locks.lock(id)
	defer unlock()

	cur, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("session %d: %w", id, model.ErrNotFound)
	}
	q, ok := cur.CurrentQuestion()
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, model.ErrNoMoreQuestions)
	}
	if cur.Status != model.StatusActive {
		return nil, fmt.Errorf("session %d is %s: %w", id, cur.Status, model.ErrInvalidState)
	}

	ev := m.eval.Evaluate(ctx, q, text)
	ev.QuestionID = q.ID
	answer := model.Answer{QuestionID: q.ID, Text: text, SubmittedAt: m.now()}
	if _, err := m.store.SaveAnswer(answer, ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save answer")
		return nil, fmt.Errorf("save answer for session %d: %w", id, err)
	}

	next := cur.Clone()
	next.Answers = append(next.Answers, answer)
	next.Evaluations = append(next.Evaluations, ev)
	next.Cursor++

	res := &AnswerResult{Evaluation: ev, Progress: next.Progress()}
	span.SetAttributes(attribute.Int("session.cursor", next.Cursor), attribute.Float64("score.overall", ev.Overall))

	if nq, ok := next.CurrentQuestion(); ok {
		m.registry.Put(next)
		res.NextQuestion = &nq
		res.FollowUp, res.Encouragement = questions.Prompts(ctx, q, ev.Overall)
		slog.Debug("answer processed", "session_id", id, "cursor", next.Cursor, "overall", ev.Overall)
		return res, nil
	}

	// The answer is durable at this point, so the in-memory session must
	// advance even if the session row update below fails.
	end := answer.SubmittedAt
	next.Status = model.StatusCompleted
	next.EndedAt = &end
	m.registry.Put(next)

	sum := summary.Build(ctx, next, end)
	res.Completed = true
	res.Summary = &sum
	slog.Info("session completed", "session_id", id, "average", sum.AverageScore, "duration_minutes", sum.DurationMinutes)

	if err := m.store.FinishSession(id, len(next.Evaluations), sum.AverageScore, end.Sub(next.StartedAt)); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("finish session %d: %w", id, err)
	}
	return res, nil
}

// Pause suspends an active session.
func (m *Manager) Pause(ctx context.Context, id int64) error {
	return m.transition(ctx, id, func(s *model.Session) error {
		if s.Status != model.StatusActive {
			return fmt.Errorf("cannot pause %s session %d: %w", s.Status, id, model.ErrInvalidState)
		}
		s.Status = model.StatusPaused
		return nil
	})
}

// Resume reactivates a paused session and returns its current question.
func (m *Manager) Resume(ctx context.Context, id int64) (*ResumeResult, error) {
	var res *ResumeResult
	err := m.transition(ctx, id, func(s *model.Session) error {
		if s.Status != model.StatusPaused {
			return fmt.Errorf("cannot resume %s session %d: %w", s.Status, id, model.ErrInvalidState)
		}
		q, ok := s.CurrentQuestion()
		if !ok {
			return fmt.Errorf("session %d: %w", id, model.ErrNoMoreQuestions)
		}
		s.Status = model.StatusActive
		res = &ResumeResult{
			Question:       q,
			QuestionNumber: s.Cursor + 1,
			TotalQuestions: len(s.Questions),
			Progress:       s.Progress(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EndEarly stops a session before its last question. Sessions with at least
// one answer end as ended_early with a partial summary; others are cancelled.
func (m *Manager) EndEarly(ctx context.Context, id int64) (*EndResult, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	cur, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("session %d: %w", id, model.ErrNotFound)
	}
	if cur.Status.Terminal() {
		return nil, fmt.Errorf("session %d is already %s: %w", id, cur.Status, model.ErrInvalidState)
	}

	now := m.now()
	next := cur.Clone()
	next.EndedAt = &now
	res := &EndResult{}
	var avg float64
	if len(next.Evaluations) > 0 {
		next.Status = model.StatusEndedEarly
		partial := summary.Partial(ctx, next)
		res.Partial = &partial
		avg = partial.AverageScore
	} else {
		next.Status = model.StatusCancelled
	}
	res.Status = next.Status

	if err := m.store.FinishSession(id, len(next.Evaluations), avg, now.Sub(next.StartedAt)); err != nil {
		return nil, fmt.Errorf("finish session %d: %w", id, err)
	}
	m.registry.Put(next)
	slog.Info("session ended early", "session_id", id, "status", next.Status, "answered", len(next.Evaluations))
	return res, nil
}

// Status returns a snapshot of the session, or nil if it does not exist.
func (m *Manager) Status(ctx context.Context, id int64) (*model.Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	s, err := m.load(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	return s.Clone(), nil
}

// transition applies fn to a copy of the session and stores the copy if fn succeeds.
func (m *Manager) transition(ctx context.Context, id int64, fn func(*model.Session) error) error {
	unlock := m.locks.lock(id)
	defer unlock()

	cur, err := m.load(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("session %d: %w", id, model.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	m.registry.Put(next)
	slog.Debug("session transition", "session_id", id, "status", next.Status)
	return nil
}

// load returns the live session, reconciling it from the store when the
// registry does not have it. Callers must hold the session lock.
func (m *Manager) load(ctx context.Context, id int64) (*model.Session, error) {
	if s, ok := m.registry.Get(id); ok {
		return s, nil
	}
	s, err := m.reconcile(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	m.registry.Put(s)
	return s, nil
}
