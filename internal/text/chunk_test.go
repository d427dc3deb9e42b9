package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Empty(t *testing.T) {
	assert.Nil(t, Chunk("", DefaultChunkConfig()))
	assert.Nil(t, Chunk("   \n\t  ", DefaultChunkConfig()))
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	body := "Krótki akapit o finansach osobistych."
	chunks := Chunk(body, DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, body, chunks[0])
}

func TestChunk_LongTextSplits(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 100, MinChars: 40, Overlap: 20, MaxChunks: 40}
	body := strings.Repeat("Oprocentowanie zmienne zależy od stawki referencyjnej. ", 20)

	chunks := Chunk(body, cfg)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), cfg.MaxChars, "chunk %d exceeds max", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunk_CutsAtWhitespace(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 30, MinChars: 10, Overlap: 0, MaxChunks: 40}
	body := "jeden dwa trzy cztery pięć sześć siedem osiem dziewięć dziesięć"

	chunks := Chunk(body, cfg)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		// A whitespace cut never splits a word in half.
		for _, w := range strings.Fields(c) {
			assert.Contains(t, body, w)
		}
	}
}

func TestChunk_OverlapRepeatsTail(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 50, MinChars: 20, Overlap: 15, MaxChunks: 40}
	body := strings.Repeat("rata kapitałowa i odsetkowa ", 10)

	chunks := Chunk(body, cfg)
	require.Greater(t, len(chunks), 1)

	// The overlap window makes consecutive chunks share text.
	words := strings.Fields(chunks[0])
	require.NotEmpty(t, words)
	assert.Contains(t, chunks[1], words[len(words)-1])
}

func TestChunk_MaxChunksCap(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 20, MinChars: 5, Overlap: 0, MaxChunks: 3}
	body := strings.Repeat("słowo ", 100)

	chunks := Chunk(body, cfg)
	assert.Len(t, chunks, 3)
}

func TestChunk_NeverSplitsMultibyteRunes(t *testing.T) {
	cfg := ChunkConfig{MaxChars: 25, MinChars: 10, Overlap: 5, MaxChunks: 40}
	body := strings.Repeat("zażółć gęślą jaźń ", 15)

	chunks := Chunk(body, cfg)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8", i)
	}
}

func TestChunk_ZeroConfigFallsBackToDefaults(t *testing.T) {
	body := strings.Repeat("a ", 2000)
	chunks := Chunk(body, ChunkConfig{})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultChunkConfig().MaxChars)
	}
}
