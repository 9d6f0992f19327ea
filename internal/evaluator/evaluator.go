// Package evaluator scores free-text interview answers. Every scoring step
// has a named fallback, so Evaluate always returns a complete Evaluation.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/textmetrics"
)

// Fixed scores used when a component cannot be computed.
const (
	ShortAnswerScore     = 0.1
	NeutralSemanticScore = 0.5
	NoKeywordsScore      = 0.7
)

// Overall score weights.
const (
	weightSemantic  = 0.3
	weightKeyword   = 0.25
	weightStructure = 0.25
	weightNLP       = 0.2
)

var discourseMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(first|firstly|second|secondly|third|thirdly|finally|lastly)\b`),
	regexp.MustCompile(`(?i)\b(however|therefore|moreover|furthermore|additionally)\b`),
	regexp.MustCompile(`(?i)\b(for example|such as|specifically|particularly)\b`),
	regexp.MustCompile(`(?i)\b(in conclusion|to summarize|overall)\b`),
}

// FeedbackGenerator produces coaching text for an answer. It may fail.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, q model.Question, answer string) (string, error)
}

// Evaluator scores answers. The zero value is not usable; call New.
type Evaluator struct {
	feedback  FeedbackGenerator
	minLength int
	workers   int
	tracer    trace.Tracer

	similarity func(a, b string) (float64, error)
	nlp        func(q model.Question, answer string) model.NLPMetrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMinAnswerLength sets the trimmed length below which answers are
// rejected as too short.
func WithMinAnswerLength(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.minLength = n
		}
	}
}

// WithWorkers bounds the parallelism of EvaluateBatch.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an Evaluator. fb may be nil, in which case the deterministic
// fallback feedback is always used.
func New(fb FeedbackGenerator, opts ...Option) *Evaluator {
	e := &Evaluator{
		feedback:   fb,
		minLength:  model.DefaultMinAnswerLength,
		workers:    4,
		tracer:     otel.Tracer("github.com/pavelanni/interviewer/internal/evaluator"),
		similarity: textmetrics.TFIDFCosine,
		nlp:        computeNLPMetrics,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate scores answer against q.
func (e *Evaluator) Evaluate(ctx context.Context, q model.Question, answer string) model.Evaluation {
	ctx, span := e.tracer.Start(ctx, "evaluator.Evaluate", trace.WithAttributes(
		attribute.String("question.type", string(q.Type)),
		attribute.String("question.difficulty", string(q.Difficulty)),
	))
	defer span.End()

	if utf8.RuneCountInString(strings.TrimSpace(answer)) < e.minLength {
		span.SetAttributes(attribute.Bool("answer.too_short", true))
		return e.build(ctx, ShortAnswerScore, ShortAnswerScore, ShortAnswerScore, ShortAnswerScore,
			i18n.T(ctx, "EvalShortAnswer"), nil)
	}

	semantic := e.semanticScore(q, answer)
	keyword := KeywordScore(q.Keywords, answer)
	structure := StructureScore(answer)
	nlp := e.nlpMetrics(q, answer)

	overall := weightSemantic*semantic + weightKeyword*keyword +
		weightStructure*structure + weightNLP*nlp.Composite
	span.SetAttributes(attribute.Float64("score.overall", overall))

	return e.build(ctx, semantic, keyword, structure, overall, e.feedbackText(ctx, q, answer), &nlp)
}

func (e *Evaluator) build(ctx context.Context, semantic, keyword, structure, overall float64, feedback string, nlp *model.NLPMetrics) model.Evaluation {
	overall = textmetrics.Round3(overall)
	level, color := model.LevelFor(overall)
	return model.Evaluation{
		Semantic:     textmetrics.Round3(semantic),
		Keyword:      textmetrics.Round3(keyword),
		Structure:    textmetrics.Round3(structure),
		Overall:      overall,
		Level:        level,
		Color:        color,
		Feedback:     feedback,
		Strengths:    strengths(ctx, semantic, keyword, structure),
		Improvements: improvements(ctx, semantic, keyword, structure),
		NLP:          nlp,
	}
}

// SemanticReference joins the material an answer is compared against.
func SemanticReference(q model.Question) string {
	var parts []string
	if q.SampleAnswer != "" {
		parts = append(parts, q.SampleAnswer)
	}
	if len(q.Keywords) > 0 {
		parts = append(parts, "Key topics: "+strings.Join(q.Keywords, " "))
	}
	if len(q.Criteria) > 0 {
		parts = append(parts, "Important aspects: "+strings.Join(q.Criteria, " "))
	}
	if q.Text != "" {
		parts = append(parts, q.Text)
	}
	return strings.Join(parts, " ")
}

func (e *Evaluator) semanticScore(q model.Question, answer string) float64 {
	ref := SemanticReference(q)
	if ref == "" {
		return NeutralSemanticScore
	}
	sim, err := guard(func() (float64, error) { return e.similarity(answer, ref) })
	if err != nil {
		slog.Debug("semantic similarity unavailable, using neutral score", "error", err)
		return NeutralSemanticScore
	}
	return max(0.2, min(1.0, sim+0.3))
}

// KeywordScore returns the fraction of expected keywords present in answer.
func KeywordScore(keywords []string, answer string) float64 {
	if len(keywords) == 0 {
		return NoKeywordsScore
	}
	lower := strings.ToLower(answer)
	tokens := textmetrics.ContentWords(lower)

	matched := 0
	for _, k := range keywords {
		if keywordMatches(strings.ToLower(k), lower, tokens) {
			matched++
		}
	}
	return min(1.0, float64(matched)/float64(len(keywords)))
}

func keywordMatches(kw, text string, tokens []string) bool {
	if kw == "" {
		return false
	}
	if strings.Contains(text, kw) {
		return true
	}
	for _, t := range tokens {
		if t == kw || strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// StructureScore rewards answers with a moderate number of sentences and
// words and the use of discourse markers.
func StructureScore(answer string) float64 {
	var score float64

	switch sc := len(textmetrics.Sentences(answer)); {
	case sc >= 3 && sc <= 8:
		score += 0.3
	case sc > 1:
		score += 0.2
	}

	switch wc := len(textmetrics.Words(answer)); {
	case wc >= 30 && wc <= 200:
		score += 0.3
	case wc >= 20 && wc <= 300:
		score += 0.2
	}

	for _, re := range discourseMarkers {
		if re.MatchString(answer) {
			score += 0.1
		}
	}
	return min(score, 1.0)
}

// guard runs fn and converts a panic into an error.
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metric panicked: %v", r)
		}
	}()
	return fn()
}
