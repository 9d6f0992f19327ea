package textmetrics

import (
	"math"
	"strings"

	"github.com/pavelanni/interviewer/internal/model"
)

// QualityThreshold binarizes quality estimates for the F1 comparison.
const QualityThreshold = 0.6

// ReferenceQuality is the quality a good answer is assumed to have.
const ReferenceQuality = 0.8

var connectives = []string{"however", "therefore", "moreover", "furthermore", "additionally"}

// Round3 rounds x to three decimal places.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// Rouge returns the ROUGE-style family for candidate against reference:
// rouge1 is the share of distinct reference words that also occur in the
// candidate, rouge2 and rougeL are fixed fractions of it.
func Rouge(candidate, reference string) model.RougeScores {
	ref := wordSet(reference)
	if len(ref) == 0 {
		return model.RougeScores{}
	}
	cand := wordSet(candidate)
	overlap := 0
	for w := range ref {
		if _, ok := cand[w]; ok {
			overlap++
		}
	}
	r1 := float64(overlap) / float64(len(ref))
	return model.RougeScores{
		Rouge1: Round3(r1),
		Rouge2: Round3(r1 * 0.8),
		RougeL: Round3(r1 * 0.9),
	}
}

// BLEU returns the best unigram precision of candidate over references.
// Empty references are skipped; an empty candidate scores 0.
func BLEU(candidate string, references []string) float64 {
	cand := strings.Fields(strings.ToLower(candidate))
	if len(cand) == 0 {
		return 0
	}
	var best float64
	for _, r := range references {
		ref := wordSet(r)
		if len(ref) == 0 {
			continue
		}
		matched := 0
		for _, w := range cand {
			if _, ok := ref[w]; ok {
				matched++
			}
		}
		best = max(best, float64(matched)/float64(len(cand)))
	}
	return best
}

// QualityEstimate scores text in [0,1] from length, sentence count,
// vocabulary diversity and the use of connectives.
func QualityEstimate(text string) float64 {
	words := strings.Fields(text)
	wc := len(words)

	var score float64
	switch {
	case wc >= 30 && wc <= 200:
		score += 0.3
	case wc >= 20 && wc <= 300:
		score += 0.2
	}

	if sc := len(Sentences(text)); sc >= 2 && sc <= 8 {
		score += 0.3
	}

	unique := make(map[string]struct{}, wc)
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	if float64(len(unique))/float64(max(wc, 1)) > 0.5 {
		score += 0.2
	}

	lower := strings.ToLower(text)
	for _, c := range connectives {
		if strings.Contains(lower, c) {
			score += 0.2
			break
		}
	}

	return min(score, 1.0)
}

// SinglePairF1 compares one predicted quality against one reference
// quality after binarizing both at QualityThreshold. With a single pair
// accuracy and weighted F1 coincide and correlation is undefined (reported 0).
func SinglePairF1(predicted, reference float64) model.F1Metrics {
	var hit float64
	if (predicted >= QualityThreshold) == (reference >= QualityThreshold) {
		hit = 1
	}
	return model.F1Metrics{
		Accuracy:        hit,
		F1:              hit,
		Correlation:     0,
		MeanPrediction:  Round3(predicted),
		MeanGroundTruth: reference,
	}
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
