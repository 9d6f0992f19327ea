package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/interviewer/internal/model"
)

// Export wraps every session in an export envelope with a fresh export ID.
func (s *Store) Export(now time.Time) (*model.InterviewExport, error) {
	results, err := s.ExportAllSessions()
	if err != nil {
		return nil, err
	}
	return &model.InterviewExport{
		ExportID:    uuid.NewString(),
		GeneratedAt: now.UTC(),
		NumSessions: len(results),
		Results:     results,
	}, nil
}

// ExportAllSessions builds export-ready results for every session, oldest first.
func (s *Store) ExportAllSessions() ([]model.SessionResult, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	slices.Reverse(sessions)

	// Track session count per user for session_number.
	userSessionCount := make(map[int64]int)
	users := make(map[int64]*model.User)

	results := make([]model.SessionResult, 0, len(sessions))
	for _, sess := range sessions {
		userSessionCount[sess.UserID]++

		user, ok := users[sess.UserID]
		if !ok {
			user, err = s.GetUserByID(sess.UserID)
			if err != nil {
				return nil, fmt.Errorf("get user %d: %w", sess.UserID, err)
			}
			users[sess.UserID] = user
		}

		questions, err := s.GetSessionQuestions(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get questions for session %d: %w", sess.ID, err)
		}
		answers, err := s.GetSessionAnswers(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get answers for session %d: %w", sess.ID, err)
		}
		byQuestion := make(map[int64]model.AnswerRecord, len(answers))
		for _, a := range answers {
			byQuestion[a.QuestionID] = a
		}

		r := model.SessionResult{
			SessionID:       sess.ID,
			SessionNumber:   userSessionCount[sess.UserID],
			Domain:          sess.Domain,
			SessionDate:     sess.SessionDate,
			QuestionsAsked:  sess.QuestionsAsked,
			AvgScore:        sess.AvgScore,
			DurationSeconds: sess.DurationSeconds,
		}
		if user != nil {
			r.UserName = user.Name
			r.UserEmail = user.Email
			r.ExperienceLevel = user.ExperienceLevel
		}

		for _, q := range questions {
			qr := model.QuestionResult{
				Text:       q.Text,
				Type:       q.Type,
				Difficulty: q.Difficulty,
				Keywords:   q.Keywords,
			}
			if a, ok := byQuestion[q.ID]; ok {
				at := a.AnsweredAt
				qr.Answer = a.Text
				qr.AnsweredAt = &at
				qr.Evaluation = a.Evaluation
				if qr.Evaluation == nil {
					ev := EvaluationFromRecord(a)
					qr.Evaluation = &ev
				}
			}
			r.Questions = append(r.Questions, qr)
		}
		results = append(results, r)
	}
	return results, nil
}

// EvaluationFromRecord returns the stored evaluation of an answer, rebuilding
// it from the score columns when the row has no full payload.
func EvaluationFromRecord(a model.AnswerRecord) model.Evaluation {
	if a.Evaluation != nil {
		ev := *a.Evaluation
		ev.QuestionID = a.QuestionID
		return ev
	}
	level, color := model.LevelFor(a.Overall)
	return model.Evaluation{
		QuestionID: a.QuestionID,
		Semantic:   a.Semantic,
		Keyword:    a.Keyword,
		Structure:  a.Structure,
		Overall:    a.Overall,
		Level:      level,
		Color:      color,
		Feedback:   a.Feedback,
	}
}

