package textmetrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"I", "used", "a", "REST", "API", "v2"}, Words("I used a REST-API (v2)."))
	assert.Empty(t, Words(" ... !! "))
}

func TestContentWordsDropsStopWords(t *testing.T) {
	got := ContentWords("The cache is in front of the database")
	assert.Equal(t, []string{"cache", "front", "database"}, got)
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "   ", 0},
		{"no terminator", "just one clause", 1},
		{"three", "First point. Second point! Third point?", 3},
		{"decimal not split", "The value is 3.5 today. Done.", 2},
		{"ellipsis", "Well... I think so. Yes.", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Sentences(tt.text), tt.want)
		})
	}
}

func TestTFIDFCosine(t *testing.T) {
	t.Run("identical documents", func(t *testing.T) {
		sim, err := TFIDFCosine("distributed cache servers", "distributed cache servers")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9)
	})

	t.Run("disjoint documents", func(t *testing.T) {
		sim, err := TFIDFCosine("kubernetes pods", "watercolor painting")
		require.NoError(t, err)
		assert.InDelta(t, 0.0, sim, 1e-9)
	})

	t.Run("partial overlap is between 0 and 1", func(t *testing.T) {
		sim, err := TFIDFCosine("cache invalidation strategy", "cache eviction policy")
		require.NoError(t, err)
		assert.Greater(t, sim, 0.0)
		assert.Less(t, sim, 1.0)
	})

	t.Run("only stop words", func(t *testing.T) {
		_, err := TFIDFCosine("it is a", "the of and")
		assert.ErrorIs(t, err, ErrEmptyVocabulary)
	})
}

func TestRouge(t *testing.T) {
	got := Rouge("rest api design", "rest api testing tools")
	assert.Equal(t, 0.5, got.Rouge1)
	assert.Equal(t, 0.4, got.Rouge2)
	assert.Equal(t, 0.45, got.RougeL)

	assert.Zero(t, Rouge("anything", "   "))
}

func TestBLEU(t *testing.T) {
	assert.Equal(t, 0.0, BLEU("", []string{"a b"}))
	assert.Equal(t, 0.5, BLEU("rest api is fun", []string{"", "REST api"}))
	assert.Equal(t, 1.0, BLEU("rest api", []string{"nothing here", "api rest"}))
}

func TestQualityEstimate(t *testing.T) {
	assert.Equal(t, 0.2, QualityEstimate("short"))

	long := strings.Repeat("Caching reduces latency for repeated reads. ", 3) +
		"However, invalidation must be handled with care when data changes often across many services."
	got := QualityEstimate(long)
	assert.GreaterOrEqual(t, got, 0.6)
	assert.LessOrEqual(t, got, 1.0)
}

func TestSinglePairF1(t *testing.T) {
	hit := SinglePairF1(0.7, ReferenceQuality)
	assert.Equal(t, 1.0, hit.Accuracy)
	assert.Equal(t, 1.0, hit.F1)
	assert.Equal(t, 0.0, hit.Correlation)
	assert.Equal(t, 0.8, hit.MeanGroundTruth)

	miss := SinglePairF1(0.2, ReferenceQuality)
	assert.Equal(t, 0.0, miss.Accuracy)
	assert.Equal(t, 0.0, miss.F1)
	assert.Equal(t, 0.2, miss.MeanPrediction)
}
