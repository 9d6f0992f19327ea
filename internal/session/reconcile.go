package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

// reconcile rebuilds a session from durable records. The cursor is the
// number of answered questions. It returns nil, nil when the session, its
// user or its questions are missing.
func (m *Manager) reconcile(ctx context.Context, id int64) (*model.Session, error) {
	_, span := m.tracer.Start(ctx, "session.reconcile")
	defer span.End()

	rec, err := m.store.GetSession(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	user, err := m.store.GetUserByID(rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", rec.UserID, err)
	}
	if user == nil {
		return nil, nil
	}
	qs, err := m.store.GetSessionQuestions(id)
	if err != nil {
		return nil, fmt.Errorf("get questions for session %d: %w", id, err)
	}
	if len(qs) == 0 {
		return nil, nil
	}
	answers, err := m.store.GetSessionAnswers(id)
	if err != nil {
		return nil, fmt.Errorf("get answers for session %d: %w", id, err)
	}

	s := &model.Session{
		ID:              rec.ID,
		UserID:          user.ID,
		UserName:        user.Name,
		ExperienceLevel: user.ExperienceLevel,
		Domain:          rec.Domain,
		JobContext:      rec.JobContext,
		Questions:       qs,
		StartedAt:       rec.SessionDate,
		Preferences: model.Preferences{
			NumQuestions:          len(qs),
			QuestionTypes:         questionTypes(qs),
			DifficultyProgression: true,
		},
	}

	seen := make(map[int64]bool, len(answers))
	for _, a := range answers {
		if seen[a.QuestionID] || len(s.Answers) == len(qs) {
			continue
		}
		seen[a.QuestionID] = true
		s.Answers = append(s.Answers, model.Answer{QuestionID: a.QuestionID, Text: a.Text, SubmittedAt: a.AnsweredAt})
		s.Evaluations = append(s.Evaluations, store.EvaluationFromRecord(a))
	}
	s.Cursor = len(s.Answers)

	s.Status = model.StatusActive
	if s.Cursor == len(qs) {
		s.Status = model.StatusCompleted
		end := s.Answers[len(s.Answers)-1].SubmittedAt
		s.EndedAt = &end
	}
	slog.Info("session reconciled from store", "session_id", id, "cursor", s.Cursor, "questions", len(qs), "status", s.Status)
	return s, nil
}

func questionTypes(qs []model.Question) []model.QuestionType {
	var types []model.QuestionType
	for _, q := range qs {
		if !slices.Contains(types, q.Type) {
			types = append(types, q.Type)
		}
	}
	return types
}
