package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/interviewer/internal/model"
)

type fakeFeedback struct {
	text  string
	err   error
	calls int
}

func (f *fakeFeedback) GenerateFeedback(_ context.Context, _ model.Question, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

var restQuestion = model.Question{
	ID:         7,
	Text:       "How do you consume a web service?",
	Type:       model.TypeTechnical,
	Difficulty: model.DifficultyEasy,
	Keywords:   []string{"API", "REST"},
}

const restAnswer = "I used a REST API to fetch data, which improved performance."

var allLevels = []model.PerformanceLevel{
	model.PerformanceExcellent, model.PerformanceGood, model.PerformanceFair, model.PerformanceNeedsImprovement,
}

func TestEvaluateShortAnswer(t *testing.T) {
	fb := &fakeFeedback{text: "should not be used"}
	e := New(fb)

	for _, answer := range []string{"", "   yes   ", "too short"} {
		ev := e.Evaluate(context.Background(), restQuestion, answer)
		assert.Equal(t, 0.1, ev.Overall, answer)
		assert.Equal(t, 0.1, ev.Semantic)
		assert.Equal(t, 0.1, ev.Keyword)
		assert.Equal(t, 0.1, ev.Structure)
		assert.Nil(t, ev.NLP)
		assert.Equal(t, "Answer is too short. Please provide a more detailed response.", ev.Feedback)
		assert.Equal(t, model.PerformanceNeedsImprovement, ev.Level)
		assert.Equal(t, []string{"Shows understanding of the topic"}, ev.Strengths)
		assert.Len(t, ev.Improvements, 3)
	}
	assert.Zero(t, fb.calls)
}

func TestEvaluateMinLengthOption(t *testing.T) {
	e := New(nil, WithMinAnswerLength(100))
	ev := e.Evaluate(context.Background(), restQuestion, restAnswer)
	assert.Nil(t, ev.NLP)
	assert.Equal(t, 0.1, ev.Overall)
}

func TestEvaluateRestExample(t *testing.T) {
	e := New(nil)
	ev := e.Evaluate(context.Background(), restQuestion, restAnswer)

	assert.Equal(t, 1.0, ev.Keyword)
	assert.NotEmpty(t, ev.Feedback)
	assert.Contains(t, allLevels, ev.Level)
	require.NotNil(t, ev.NLP)
	assert.Equal(t,
		"Consider providing more detail in your response. Great job mentioning: API, REST. "+
			"Try organizing your answer with clear, separate points.",
		ev.Feedback)
}

func TestEvaluateScoresBoundedAndWeighted(t *testing.T) {
	e := New(nil)
	questions := []model.Question{
		restQuestion,
		{Text: "Tell me about a conflict.", Type: model.TypeBehavioral},
		{
			Text:         "Explain the CAP theorem.",
			Type:         model.TypeTechnical,
			Keywords:     []string{"consistency", "availability", "partition"},
			Criteria:     []string{"Clarity"},
			SampleAnswer: "The CAP theorem says a distributed system can provide only two of consistency, availability and partition tolerance at once.",
		},
	}
	answers := []string{
		restAnswer,
		"First, I listened to both sides. However, the deadline was close. For example, we split the work. In conclusion, we shipped on time and kept the team together.",
		"Consistency means every read sees the latest write. Availability means every request gets a response. Partition tolerance means the system keeps working when the network splits, therefore you trade consistency against availability during partitions.",
	}

	for i, q := range questions {
		ev := e.Evaluate(context.Background(), q, answers[i])
		for _, s := range []float64{ev.Semantic, ev.Keyword, ev.Structure, ev.Overall} {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
		require.NotNil(t, ev.NLP)
		want := 0.3*ev.Semantic + 0.25*ev.Keyword + 0.25*ev.Structure + 0.2*ev.NLP.Composite
		assert.InDelta(t, want, ev.Overall, 0.002)
		assert.Contains(t, allLevels, ev.Level)
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		answer   string
		want     float64
	}{
		{"no keywords", nil, "anything at all", 0.7},
		{"none matched", []string{"docker", "kubernetes"}, "I like cooking pasta", 0},
		{"half matched", []string{"docker", "kubernetes"}, "We deploy with Docker images", 0.5},
		{"substring of token", []string{"test"}, "unittests everywhere", 1},
		{"case insensitive", []string{"GraphQL"}, "we moved to graphql", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, KeywordScore(tt.keywords, tt.answer), 1e-9)
		})
	}
}

func TestKeywordScoreMonotonic(t *testing.T) {
	keywords := []string{"cache", "latency", "replica"}
	base := "We added a layer in front of the database to speed things up."
	before := KeywordScore(keywords, base)
	for _, k := range keywords {
		after := KeywordScore(keywords, base+" "+k)
		assert.GreaterOrEqual(t, after, before, k)
	}
}

func TestStructureScore(t *testing.T) {
	assert.Equal(t, 0.0, StructureScore("one clause only"))
	assert.InDelta(t, 0.7, StructureScore("First, we profile. However, caching helps. For example, Redis. In conclusion, measure."), 1e-9)

	long := strings.Repeat("This sentence has exactly seven words here. ", 5)
	assert.InDelta(t, 0.6, StructureScore(long), 1e-9)
}

func TestSemanticFallbacks(t *testing.T) {
	answer := "A long enough answer about service design and trade-offs."

	t.Run("similarity error", func(t *testing.T) {
		e := New(nil)
		e.similarity = func(string, string) (float64, error) { return 0, errors.New("boom") }
		assert.Equal(t, NeutralSemanticScore, e.Evaluate(context.Background(), restQuestion, answer).Semantic)
	})

	t.Run("similarity panic", func(t *testing.T) {
		e := New(nil)
		e.similarity = func(string, string) (float64, error) { panic("bad vector") }
		assert.Equal(t, NeutralSemanticScore, e.Evaluate(context.Background(), restQuestion, answer).Semantic)
	})

	t.Run("no reference material", func(t *testing.T) {
		e := New(nil)
		assert.Equal(t, NeutralSemanticScore, e.semanticScore(model.Question{}, answer))
	})

	t.Run("clamped to floor", func(t *testing.T) {
		e := New(nil)
		e.similarity = func(string, string) (float64, error) { return -1, nil }
		assert.Equal(t, 0.2, e.semanticScore(restQuestion, answer))
	})
}

func TestNLPFallback(t *testing.T) {
	e := New(nil)
	e.nlp = func(model.Question, string) model.NLPMetrics { panic("tokenizer exploded") }

	ev := e.Evaluate(context.Background(), restQuestion, restAnswer)
	require.NotNil(t, ev.NLP)
	assert.Equal(t, DefaultNLPMetrics(), *ev.NLP)
	assert.Equal(t, model.PerformanceAverage, ev.NLP.Category)
}

func TestReferences(t *testing.T) {
	q := model.Question{Text: "Q?", Keywords: []string{"a", "b"}, Criteria: []string{"Clarity"}, SampleAnswer: "sample"}
	assert.Equal(t, []string{"sample", "A good answer should include: a, b, Clarity."}, References(q))
	assert.Equal(t, []string{"Q?"}, References(model.Question{Text: "Q?"}))
}

func TestFeedbackGenerator(t *testing.T) {
	t.Run("generator text used", func(t *testing.T) {
		fb := &fakeFeedback{text: "  Nice use of REST.  "}
		ev := New(fb).Evaluate(context.Background(), restQuestion, restAnswer)
		assert.Equal(t, "Nice use of REST.", ev.Feedback)
		assert.Equal(t, 1, fb.calls)
	})

	t.Run("generator error falls back", func(t *testing.T) {
		fb := &fakeFeedback{err: errors.New("upstream down")}
		ev := New(fb).Evaluate(context.Background(), restQuestion, restAnswer)
		assert.Equal(t, FallbackFeedback(context.Background(), restQuestion, restAnswer), ev.Feedback)
	})

	t.Run("blank text falls back", func(t *testing.T) {
		fb := &fakeFeedback{text: "   "}
		ev := New(fb).Evaluate(context.Background(), restQuestion, restAnswer)
		assert.Equal(t, FallbackFeedback(context.Background(), restQuestion, restAnswer), ev.Feedback)
	})
}

func TestFallbackFeedback(t *testing.T) {
	ctx := context.Background()
	q := model.Question{Keywords: []string{"docker", "kubernetes", "helm", "istio"}}

	got := FallbackFeedback(ctx, q, "I mostly write shell scripts: they work.")
	assert.Equal(t, "Consider providing more detail in your response. "+
		"Consider including these key concepts: docker, kubernetes, helm. "+
		"Good structure with clear points.", got)

	long := strings.Repeat("word ", 160)
	got = FallbackFeedback(ctx, model.Question{}, long)
	assert.Equal(t, "Try to be more concise while maintaining key points. "+
		"Try organizing your answer with clear, separate points.", got)

	mid := strings.Repeat("word ", 30)
	assert.True(t, strings.HasPrefix(FallbackFeedback(ctx, model.Question{}, mid), "Good answer length."))
}

func TestStrengthsAndImprovements(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, []string{"Strong content relevance", "Good use of technical terminology", "Well-organized response"},
		strengths(ctx, 0.8, 0.9, 0.75))
	assert.Equal(t, []string{"Continue practicing to build confidence"}, improvements(ctx, 0.6, 0.6, 0.6))
	assert.Equal(t, []string{"Include more relevant technical terms"}, improvements(ctx, 0.6, 0.4, 0.5))
}

func TestEvaluateBatch(t *testing.T) {
	e := New(nil, WithWorkers(2))
	items := []Item{
		{Question: model.Question{ID: 1, Text: "One?"}, Answer: "short"},
		{Question: restQuestion, Answer: restAnswer},
		{Question: model.Question{ID: 3, Text: "Three?"}, Answer: "Another sufficiently long answer here."},
	}

	got := e.EvaluateBatch(context.Background(), items)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].QuestionID)
	assert.Equal(t, int64(7), got[1].QuestionID)
	assert.Equal(t, int64(3), got[2].QuestionID)
	assert.Equal(t, 0.1, got[0].Overall)
	assert.Equal(t, e.Evaluate(context.Background(), restQuestion, restAnswer).Overall, got[1].Overall)
}
