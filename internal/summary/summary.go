// Package summary derives session-level metrics, narrative feedback and
// recommendations from a session's evaluations.
package summary

import (
	"context"
	"strings"
	"time"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/textmetrics"
)

const maxRecommendations = 5

// Summarize computes averages, strongest/weakest areas and the score
// distribution of evals.
func Summarize(evals []model.Evaluation) model.SessionMetrics {
	if len(evals) == 0 {
		return model.SessionMetrics{StrongestArea: model.AreaNone, WeakestArea: model.AreaNone}
	}

	var overall, semantic, keyword, structure float64
	var dist model.Distribution
	for _, ev := range evals {
		overall += ev.Overall
		semantic += ev.Semantic
		keyword += ev.Keyword
		structure += ev.Structure

		switch {
		case ev.Overall >= 0.8:
			dist.Excellent++
		case ev.Overall >= 0.6:
			dist.Good++
		case ev.Overall >= 0.4:
			dist.Fair++
		default:
			dist.NeedsImprovement++
		}
	}
	n := float64(len(evals))
	semAvg, kwAvg, stAvg := semantic/n, keyword/n, structure/n

	areas := []struct {
		name string
		avg  float64
	}{
		{model.AreaContentRelevance, semAvg},
		{model.AreaTechnicalKnowledge, kwAvg},
		{model.AreaCommunicationStructure, stAvg},
	}
	strongest, weakest := areas[0], areas[0]
	for _, a := range areas[1:] {
		if a.avg > strongest.avg {
			strongest = a
		}
		if a.avg < weakest.avg {
			weakest = a
		}
	}

	return model.SessionMetrics{
		SessionAverage:   textmetrics.Round3(overall / n),
		SemanticAverage:  textmetrics.Round3(semAvg),
		KeywordAverage:   textmetrics.Round3(kwAvg),
		StructureAverage: textmetrics.Round3(stAvg),
		StrongestArea:    strongest.name,
		WeakestArea:      weakest.name,
		TotalQuestions:   len(evals),
		Distribution:     dist,
	}
}

// Narrate composes the multi-sentence session feedback.
func Narrate(ctx context.Context, s *model.Session, m model.SessionMetrics) string {
	var parts []string
	switch avg := m.SessionAverage; {
	case avg >= 0.8:
		parts = append(parts, i18n.T(ctx, "NarrativeExcellent"))
	case avg >= 0.6:
		parts = append(parts, i18n.T(ctx, "NarrativeGood"))
	case avg >= 0.4:
		parts = append(parts, i18n.T(ctx, "NarrativeFair"))
	default:
		parts = append(parts, i18n.T(ctx, "NarrativePoor"))
	}

	parts = append(parts, i18n.Td(ctx, "NarrativeStrongest",
		map[string]any{"Area": strings.ToLower(m.StrongestArea)}))
	if m.WeakestArea != m.StrongestArea {
		parts = append(parts, i18n.Td(ctx, "NarrativeWeakest",
			map[string]any{"Area": strings.ToLower(m.WeakestArea)}))
	}

	high := 0
	for _, ev := range s.Evaluations {
		if ev.Overall >= 0.7 {
			high++
		}
	}
	if high > 0 {
		parts = append(parts, i18n.Tp(ctx, "NarrativeHighScoring", high,
			map[string]any{"Total": len(s.Evaluations)}))
	}

	return strings.Join(parts, " ")
}

// Recommend returns at most five recommendations: component-based first,
// then question-type based, then the generic and closing sentences.
func Recommend(ctx context.Context, s *model.Session, m model.SessionMetrics) []string {
	var recs []string
	if m.SemanticAverage < 0.6 {
		recs = append(recs, i18n.T(ctx, "RecommendSemantic"))
	}
	if m.KeywordAverage < 0.6 {
		recs = append(recs, i18n.T(ctx, "RecommendKeyword"))
	}
	if m.StructureAverage < 0.6 {
		recs = append(recs, i18n.T(ctx, "RecommendStructure"))
	}

	for _, ta := range typeAverages(s) {
		if ta.avg >= 0.5 {
			continue
		}
		switch ta.typ {
		case model.TypeTechnical:
			recs = append(recs, i18n.T(ctx, "RecommendTechnical"))
		case model.TypeBehavioral:
			recs = append(recs, i18n.T(ctx, "RecommendBehavioral"))
		case model.TypeSituational:
			recs = append(recs, i18n.T(ctx, "RecommendSituational"))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, i18n.T(ctx, "RecommendGeneric"))
	}
	recs = append(recs, i18n.T(ctx, "RecommendReview"))

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

type typeAverage struct {
	typ model.QuestionType
	avg float64
}

// typeAverages returns the mean overall score per question type in the
// order types first appear among the answered questions.
func typeAverages(s *model.Session) []typeAverage {
	var order []model.QuestionType
	sums := make(map[model.QuestionType]float64)
	counts := make(map[model.QuestionType]int)
	for i, ev := range s.Evaluations {
		if i >= len(s.Questions) {
			break
		}
		t := s.Questions[i].Type
		if counts[t] == 0 {
			order = append(order, t)
		}
		sums[t] += ev.Overall
		counts[t]++
	}
	out := make([]typeAverage, 0, len(order))
	for _, t := range order {
		out = append(out, typeAverage{typ: t, avg: sums[t] / float64(counts[t])})
	}
	return out
}

// Build assembles the summary returned when a session completes.
func Build(ctx context.Context, s *model.Session, now time.Time) model.SessionSummary {
	m := Summarize(s.Evaluations)
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	level, _ := model.LevelFor(m.SessionAverage)
	return model.SessionSummary{
		TotalQuestions:   len(s.Questions),
		AverageScore:     m.SessionAverage,
		DurationMinutes:  textmetrics.Round3(end.Sub(s.StartedAt).Minutes()),
		StrongestArea:    m.StrongestArea,
		WeakestArea:      m.WeakestArea,
		PerformanceLevel: level,
		Metrics:          m,
		Feedback:         Narrate(ctx, s, m),
		Recommendations:  Recommend(ctx, s, m),
	}
}

// Partial builds the summary returned when a session ends early.
func Partial(ctx context.Context, s *model.Session) model.PartialSummary {
	var sum float64
	for _, ev := range s.Evaluations {
		sum += ev.Overall
	}
	var avg float64
	if len(s.Evaluations) > 0 {
		avg = textmetrics.Round3(sum / float64(len(s.Evaluations)))
	}
	return model.PartialSummary{
		QuestionsAnswered: len(s.Evaluations),
		TotalQuestions:    len(s.Questions),
		AverageScore:      avg,
		Message:           i18n.T(ctx, "SessionEndedEarly"),
	}
}
