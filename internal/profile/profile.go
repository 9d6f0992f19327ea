// Package profile manages candidate profiles and their practice analytics.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
)

// Improvement trend labels.
const (
	TrendNoData       = "No data"
	TrendInsufficient = "Insufficient data"
	TrendImproving    = "Improving"
	TrendNeedsFocus   = "Needs Focus"
)

const (
	recentSessions = 5
	trendWindow    = 3
	lowAverage     = 0.6
	fewSessions    = 3
)

// Store is the persistence the service needs.
type Store interface {
	CreateUser(u model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	UserProgress(userID int64) ([]model.SessionProgress, error)
}

// Service implements profile operations.
type Service struct {
	store Store
}

// New creates a Service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Create validates and stores a new profile.
func (s *Service) Create(ctx context.Context, u model.User) (*model.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if u.Name == "" {
		return nil, fmt.Errorf("name is required: %w", model.ErrValidation)
	}
	if !model.IsSupportedDomain(u.Domain) {
		return nil, fmt.Errorf("domain %q not supported, choose from %s: %w",
			u.Domain, strings.Join(model.SupportedDomains, ", "), model.ErrValidation)
	}
	if !model.IsValidExperienceLevel(u.ExperienceLevel) {
		return nil, fmt.Errorf("experience level must be Beginner, Intermediate, or Advanced: %w", model.ErrValidation)
	}
	if u.Email != "" {
		existing, err := s.store.GetUserByEmail(u.Email)
		if err != nil {
			return nil, fmt.Errorf("look up email: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("email %q already registered: %w", u.Email, model.ErrValidation)
		}
	}

	id, err := s.store.CreateUser(u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	created, err := s.store.GetUserByID(id)
	if err != nil {
		return nil, fmt.Errorf("reload user %d: %w", id, err)
	}
	if created == nil {
		return nil, fmt.Errorf("user %d vanished after insert", id)
	}
	slog.InfoContext(ctx, "profile created", "user_id", id, "domain", u.Domain)
	return created, nil
}

// Get returns a profile or ErrNotFound.
func (s *Service) Get(_ context.Context, id int64) (*model.User, error) {
	u, err := s.store.GetUserByID(id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
	}
	return u, nil
}

// Analytics summarizes a user's session history.
func (s *Service) Analytics(ctx context.Context, id int64) (*model.UserAnalytics, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	progress, err := s.store.UserProgress(id)
	if err != nil {
		return nil, fmt.Errorf("user progress %d: %w", id, err)
	}
	return analyze(progress), nil
}

// analyze expects progress in chronological order.
func analyze(progress []model.SessionProgress) *model.UserAnalytics {
	a := &model.UserAnalytics{
		TotalSessions:    len(progress),
		ImprovementTrend: TrendNoData,
		RecentSessions:   []model.SessionProgress{},
		ScoreHistory:     []float64{},
	}
	if len(progress) == 0 {
		return a
	}

	// Sessions without answers, or scoring zero, carry no signal.
	for _, p := range progress {
		if p.AverageScore != nil && *p.AverageScore != 0 {
			a.ScoreHistory = append(a.ScoreHistory, *p.AverageScore)
		}
	}
	if len(a.ScoreHistory) > 0 {
		a.AverageScore = round2(mean(a.ScoreHistory))
	}

	a.ImprovementTrend = TrendInsufficient
	if n := len(a.ScoreHistory); n >= 2 {
		early := mean(a.ScoreHistory[:min(trendWindow, n)])
		recent := mean(a.ScoreHistory[max(n-trendWindow, 0):])
		a.ImprovementTrend = TrendNeedsFocus
		if recent > early {
			a.ImprovementTrend = TrendImproving
		}
	}

	recent := slices.Clone(progress[max(len(progress)-recentSessions, 0):])
	slices.Reverse(recent)
	a.RecentSessions = recent
	return a
}

// Recommendations returns advice derived from the user's analytics.
func (s *Service) Recommendations(ctx context.Context, id int64) ([]string, error) {
	a, err := s.Analytics(ctx, id)
	if err != nil {
		return nil, err
	}
	return recommend(ctx, a), nil
}

func recommend(ctx context.Context, a *model.UserAnalytics) []string {
	var out []string
	if a.AverageScore < lowAverage {
		out = append(out,
			i18n.T(ctx, "ProfileLowAverage1"),
			i18n.T(ctx, "ProfileLowAverage2"),
			i18n.T(ctx, "ProfileLowAverage3"),
		)
	}
	if a.TotalSessions < fewSessions {
		out = append(out, i18n.T(ctx, "ProfileFewSessions"))
	}
	if a.ImprovementTrend == TrendNeedsFocus {
		out = append(out, i18n.T(ctx, "ProfileNeedsFocus"))
	}
	if len(out) == 0 {
		out = append(out, i18n.T(ctx, "ProfileKeepGoing"))
	}
	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
