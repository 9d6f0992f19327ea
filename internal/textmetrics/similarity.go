package textmetrics

import (
	"errors"
	"math"
)

// ErrEmptyVocabulary is returned when neither document has a usable term.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words")

// TFIDFCosine returns the cosine similarity between the TF-IDF vectors of a
// and b, with the IDF fitted on the two documents (smoothed: ln((1+n)/(1+df))+1)
// and both vectors L2-normalized.
func TFIDFCosine(a, b string) (float64, error) {
	docs := [2]map[string]float64{termCounts(a), termCounts(b)}
	if len(docs[0]) == 0 && len(docs[1]) == 0 {
		return 0, ErrEmptyVocabulary
	}

	df := make(map[string]int)
	for _, d := range docs {
		for term := range d {
			df[term]++
		}
	}
	n := float64(len(docs))
	for _, d := range docs {
		var sum float64
		for term, tf := range d {
			w := tf * (math.Log((1+n)/(1+float64(df[term]))) + 1)
			d[term] = w
			sum += w * w
		}
		if sum == 0 {
			continue
		}
		norm := math.Sqrt(sum)
		for term := range d {
			d[term] /= norm
		}
	}

	var dot float64
	for term, w := range docs[0] {
		dot += w * docs[1][term]
	}
	return dot, nil
}

func termCounts(text string) map[string]float64 {
	counts := make(map[string]float64)
	for _, t := range termTokens(text) {
		counts[t]++
	}
	return counts
}
