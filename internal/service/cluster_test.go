package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekstlab/interlink/internal/domain"
)

func vec(dims ...int) []float32 {
	v := make([]float32, 8)
	for _, d := range dims {
		v[d] = 1
	}
	return v
}

func TestClusterRegistry_ClassifyEmpty(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)

	c := r.Classify(vec(0), "https://example.pl/a")
	assert.Nil(t, c.Match)
	assert.False(t, c.Conflict)
}

func TestClusterRegistry_SameMeaningSameURL(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.Register("kredyt hipoteczny", vec(0, 1), "https://example.pl/kredyt")

	// An identical meaning pointed at the same URL is no conflict.
	c := r.Classify(vec(0, 1), "https://example.pl/kredyt")
	require.NotNil(t, c.Match)
	assert.False(t, c.Conflict)
}

func TestClusterRegistry_SameMeaningDifferentURLConflicts(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.Register("kredyt hipoteczny", vec(0, 1), "https://example.pl/kredyt")

	c := r.Classify(vec(0, 1), "https://example.pl/inny")
	require.NotNil(t, c.Match)
	assert.True(t, c.Conflict)
	assert.Equal(t, "kredyt hipoteczny", c.Match.Anchor)
	assert.Equal(t, "https://example.pl/kredyt", c.Match.TargetURL)
}

func TestClusterRegistry_BelowThresholdNoMatch(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.Register("kredyt hipoteczny", vec(0, 1), "https://example.pl/kredyt")

	// cos({0},{0,1}) ~= 0.707, under the 0.75 threshold.
	c := r.Classify(vec(0), "https://example.pl/inny")
	assert.Nil(t, c.Match)
	assert.False(t, c.Conflict)
}

func TestClusterRegistry_HighestSimilarityWins(t *testing.T) {
	r := NewClusterRegistry(0.5, 100)
	r.Register("anchor a", vec(0, 1), "https://example.pl/a")
	r.Register("anchor b", vec(0, 2), "https://example.pl/b")

	c := r.Classify(vec(0, 2), "https://example.pl/x")
	require.NotNil(t, c.Match)
	assert.Equal(t, "anchor b", c.Match.Anchor)
}

func TestClusterRegistry_RegisterDedupsSameMeaning(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.Register("kredyt hipoteczny", vec(0, 1), "https://example.pl/kredyt")
	r.Register("Kredyt Hipoteczny", vec(0, 1), "https://example.pl/kredyt")

	assert.Equal(t, 1, r.Len())
}

func TestClusterRegistry_MaxClustersTruncates(t *testing.T) {
	r := NewClusterRegistry(0.99, 2)
	r.Register("a", vec(0), "https://example.pl/a")
	r.Register("b", vec(1), "https://example.pl/b")
	assert.False(t, r.Truncated())

	r.Register("c", vec(2), "https://example.pl/c")
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Truncated())

	// The overflow anchor is still tracked by text.
	assert.True(t, r.KnownText("c"))
	tc := r.ClassifyText("c", "https://example.pl/other")
	assert.True(t, tc.Conflict)
}

func TestClusterRegistry_ClassifyText(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.SeedTexts([]ActiveAnchor{
		{Anchor: "Kredyt Hipoteczny", TargetURL: "https://example.pl/kredyt"},
	})

	c := r.ClassifyText("kredyt hipoteczny", "https://example.pl/kredyt")
	require.NotNil(t, c.Match)
	assert.False(t, c.Conflict)

	c = r.ClassifyText("KREDYT HIPOTECZNY", "https://example.pl/inny")
	assert.True(t, c.Conflict)

	c = r.ClassifyText("zupełnie inna fraza", "https://example.pl/inny")
	assert.Nil(t, c.Match)
}

func TestClusterRegistry_Seed(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.Seed([]domain.AnchorCluster{
		{Anchor: "kredyt hipoteczny", Vector: vec(0, 1), TargetURL: "https://example.pl/kredyt"},
		{Anchor: "ciasto drożdżowe", Vector: vec(4, 5), TargetURL: "https://example.pl/ciasto"},
	})

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.KnownText("kredyt hipoteczny"))
	assert.True(t, r.KnownText("CIASTO DROŻDŻOWE"))
}

func TestClusterRegistry_RegisterWithoutVector(t *testing.T) {
	r := NewClusterRegistry(0.75, 100)
	r.Register("kredyt hipoteczny", nil, "https://example.pl/kredyt")

	assert.Equal(t, 0, r.Len())
	assert.True(t, r.KnownText("kredyt hipoteczny"))
}
