package evaluator

import (
	"log/slog"
	"strings"

	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/textmetrics"
)

// DefaultNLPMetrics is returned when the NLP sub-metrics cannot be computed.
func DefaultNLPMetrics() model.NLPMetrics {
	return model.NLPMetrics{
		Rouge:     model.RougeScores{Rouge1: 0.5, Rouge2: 0.4, RougeL: 0.45},
		BLEU:      0.5,
		F1:        model.F1Metrics{Accuracy: 0.5, F1: 0.5, Correlation: 0},
		Composite: 0.5,
		Category:  model.PerformanceAverage,
	}
}

func (e *Evaluator) nlpMetrics(q model.Question, answer string) model.NLPMetrics {
	m, err := guard(func() (model.NLPMetrics, error) { return e.nlp(q, answer), nil })
	if err != nil {
		slog.Warn("NLP metrics failed, using defaults", "error", err)
		return DefaultNLPMetrics()
	}
	return m
}

// References returns the texts the NLP metrics compare against. The first
// entry is the primary reference.
func References(q model.Question) []string {
	var refs []string
	if q.SampleAnswer != "" {
		refs = append(refs, q.SampleAnswer)
	}
	if len(q.Keywords) > 0 || len(q.Criteria) > 0 {
		items := append(append([]string{}, q.Keywords...), q.Criteria...)
		refs = append(refs, "A good answer should include: "+strings.Join(items, ", ")+".")
	}
	if len(refs) == 0 {
		refs = append(refs, q.Text)
	}
	return refs
}

func computeNLPMetrics(q model.Question, answer string) model.NLPMetrics {
	refs := References(q)

	rouge := textmetrics.Rouge(answer, refs[0])
	bleu := textmetrics.BLEU(answer, refs)
	f1 := textmetrics.SinglePairF1(textmetrics.QualityEstimate(answer), textmetrics.ReferenceQuality)

	composite := textmetrics.Round3(0.3*rouge.Rouge1 + 0.3*rouge.RougeL + 0.25*bleu + 0.15*f1.F1)
	return model.NLPMetrics{
		Rouge:     rouge,
		BLEU:      textmetrics.Round3(bleu),
		F1:        f1,
		Composite: composite,
		Category:  model.CategoryFor(composite),
	}
}
