package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/store"
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func validUser() model.User {
	return model.User{
		Name:            "  Eve  ",
		Email:           "eve@example.com",
		Domain:          "Data Science",
		ExperienceLevel: model.LevelAdvanced,
	}
}

func ptr(v float64) *float64 { return &v }

func TestCreateAndGet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, validUser())
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Eve", u.Name)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validUser())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*model.User)
	}{
		{"blank name", func(u *model.User) { u.Name = "  " }},
		{"unsupported domain", func(u *model.User) { u.Domain = "Astrology" }},
		{"bad level", func(u *model.User) { u.ExperienceLevel = "Guru" }},
		{"duplicate email", func(u *model.User) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(&u)
			_, err := svc.Create(ctx, u)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("no sessions", func(t *testing.T) {
		a := analyze(nil)
		assert.Equal(t, 0, a.TotalSessions)
		assert.Equal(t, TrendNoData, a.ImprovementTrend)
		assert.Empty(t, a.ScoreHistory)
		assert.NotNil(t, a.RecentSessions)
	})

	t.Run("single scored session", func(t *testing.T) {
		a := analyze([]model.SessionProgress{{SessionID: 1, AverageScore: ptr(0.7)}, {SessionID: 2}})
		assert.Equal(t, 2, a.TotalSessions)
		assert.Equal(t, 0.7, a.AverageScore)
		assert.Equal(t, TrendInsufficient, a.ImprovementTrend)
	})

	t.Run("improving", func(t *testing.T) {
		var progress []model.SessionProgress
		for i, s := range []float64{0.4, 0.5, 0.45, 0.6, 0.7, 0.8, 0.9} {
			progress = append(progress, model.SessionProgress{SessionID: int64(i + 1), AverageScore: ptr(s)})
		}
		a := analyze(progress)
		assert.Equal(t, TrendImproving, a.ImprovementTrend)
		assert.Equal(t, 0.62, a.AverageScore)
		require.Len(t, a.RecentSessions, 5)
		assert.Equal(t, int64(7), a.RecentSessions[0].SessionID, "newest first")
		assert.Equal(t, int64(3), a.RecentSessions[4].SessionID)
		assert.Equal(t, []float64{0.4, 0.5, 0.45, 0.6, 0.7, 0.8, 0.9}, a.ScoreHistory)
	})

	t.Run("declining", func(t *testing.T) {
		a := analyze([]model.SessionProgress{{AverageScore: ptr(0.8)}, {AverageScore: ptr(0.5)}})
		assert.Equal(t, TrendNeedsFocus, a.ImprovementTrend)
	})
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	got := recommend(ctx, &model.UserAnalytics{TotalSessions: 2, AverageScore: 0.5, ImprovementTrend: TrendNeedsFocus})
	assert.Equal(t, []string{
		"Focus on structuring your answers using the STAR method (Situation, Task, Action, Result)",
		"Practice explaining technical concepts in simple terms",
		"Work on providing specific examples from your experience",
		"Continue regular practice to build confidence",
		"Review feedback from previous sessions and work on identified weak areas",
	}, got)

	got = recommend(ctx, &model.UserAnalytics{TotalSessions: 5, AverageScore: 0.8, ImprovementTrend: TrendImproving})
	assert.Equal(t, []string{"Keep up the great work! Continue practicing regularly."}, got)
}

func TestAnalyticsFromStore(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u, err := svc.Create(ctx, validUser())
	require.NoError(t, err)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, score := range []float64{0.5, 0.9} {
		_, qs, err := st.CreateSession(u.ID, u.Domain, "", base.Add(time.Duration(i)*time.Hour),
			[]model.Question{{Text: "Q?", Type: model.TypeTechnical, Difficulty: model.DifficultyEasy}})
		require.NoError(t, err)
		_, err = st.SaveAnswer(model.Answer{QuestionID: qs[0].ID, Text: "a", SubmittedAt: base}, model.Evaluation{Overall: score})
		require.NoError(t, err)
	}

	a, err := svc.Analytics(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalSessions)
	assert.Equal(t, 0.7, a.AverageScore)
	assert.Equal(t, TrendImproving, a.ImprovementTrend)

	recs, err := svc.Recommendations(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Continue regular practice to build confidence"}, recs)

	_, err = svc.Analytics(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
