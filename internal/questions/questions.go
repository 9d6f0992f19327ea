// Package questions supplies interview questions for a session. Questions
// come from an LLM generator when one is configured and from a static bank
// otherwise or when the generator fails.
package questions

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/model"
)

// Score thresholds for follow-up and encouragement prompts.
const (
	FollowUpBelow      = 0.5
	EncouragementAbove = 0.8
)

// Generator produces the raw text of one question. It may fail.
type Generator interface {
	GenerateQuestion(ctx context.Context, d prompts.QuestionData) (string, error)
}

var progression = map[model.ExperienceLevel][]model.Difficulty{
	model.LevelBeginner:     {model.DifficultyEasy, model.DifficultyEasy, model.DifficultyMedium},
	model.LevelIntermediate: {model.DifficultyEasy, model.DifficultyMedium, model.DifficultyMedium, model.DifficultyHard},
	model.LevelAdvanced:     {model.DifficultyMedium, model.DifficultyMedium, model.DifficultyHard, model.DifficultyHard},
}

var flat = map[model.ExperienceLevel]model.Difficulty{
	model.LevelBeginner:     model.DifficultyEasy,
	model.LevelIntermediate: model.DifficultyMedium,
	model.LevelAdvanced:     model.DifficultyHard,
}

// DifficultyFor returns the difficulty of the question at index for a
// candidate of the given level.
func DifficultyFor(level model.ExperienceLevel, index int, progressive bool) model.Difficulty {
	if !progressive {
		if d, ok := flat[level]; ok {
			return d
		}
		return model.DifficultyMedium
	}
	steps, ok := progression[level]
	if !ok {
		return model.DifficultyMedium
	}
	return steps[index%len(steps)]
}

// Source implements the session question source.
type Source struct {
	gen  Generator
	bank *Bank

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Source.
type Option func(*Source)

// WithRand sets the random source used to pick types and bank questions.
func WithRand(r *rand.Rand) Option {
	return func(s *Source) { s.rnd = r }
}

// WithBank replaces the built-in bank.
func WithBank(b *Bank) Option {
	return func(s *Source) { s.bank = b }
}

// NewSource creates a Source. gen may be nil, in which case only the bank is used.
func NewSource(gen Generator, opts ...Option) *Source {
	s := &Source{gen: gen}
	for _, o := range opts {
		o(s)
	}
	if s.bank == nil {
		s.bank = DefaultBank()
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Generate returns req.Count questions. It never fails: every generator
// problem falls back to the bank.
func (s *Source) Generate(ctx context.Context, req model.QuestionRequest) []model.Question {
	types := req.Types
	if len(types) == 0 {
		types = model.QuestionTypes
	}

	out := make([]model.Question, 0, max(req.Count, 0))
	for i := range req.Count {
		t := types[s.intN(len(types))]
		d := DifficultyFor(req.ExperienceLevel, i, req.Progression)
		q := s.generateOne(ctx, req, t, d)
		q.Type = t
		q.Difficulty = d
		out = append(out, q)
	}
	return out
}

func (s *Source) generateOne(ctx context.Context, req model.QuestionRequest, t model.QuestionType, d model.Difficulty) model.Question {
	if s.gen == nil {
		return s.fromBank(req.Domain, t, d)
	}

	raw, err := s.gen.GenerateQuestion(ctx, prompts.QuestionData{
		Domain:     req.Domain,
		Type:       t,
		Difficulty: d,
		JobContext: req.JobContext,
	})
	if err != nil {
		slog.Warn("question generation failed, using bank", "domain", req.Domain, "type", t, "error", err)
		return s.fromBank(req.Domain, t, d)
	}

	g, ok, err := parseResponse(raw)
	if err != nil || !ok || g.Question == "" {
		slog.Warn("unusable generated question, using bank", "domain", req.Domain, "type", t, "error", err)
		return s.fromBank(req.Domain, t, d)
	}
	return model.Question{
		Text:         g.Question,
		Keywords:     nonEmpty(g.Keywords),
		Criteria:     nonEmpty(g.Criteria),
		SampleAnswer: g.SampleAnswer,
	}
}

func (s *Source) fromBank(domain string, t model.QuestionType, d model.Difficulty) model.Question {
	list := s.bank.candidates(domain, t, d)
	return model.Question{
		Text:     list[s.intN(len(list))],
		Keywords: s.bank.keywords(domain),
		Criteria: slices.Clone(s.bank.Criteria),
	}
}

func (s *Source) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// Prompts returns the follow-up for a weak answer or the encouragement for
// a strong one. Both are empty for scores in between.
func Prompts(ctx context.Context, q model.Question, overall float64) (followUp, encouragement string) {
	switch {
	case overall < FollowUpBelow:
		return i18n.Td(ctx, "FollowUpElaborate", map[string]any{"Question": q.Text}), ""
	case overall > EncouragementAbove:
		return "", i18n.T(ctx, "Encouragement")
	}
	return "", ""
}

func nonEmpty(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return items
}
