package ingest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/factgraph/pkg/ingest"
)

func TestSplitNoOverlap(t *testing.T) {
	chunks := ingest.Split("aaaaabbbbbcc", 5, 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, "aaaaa", chunks[0].Text)
	assert.Equal(t, "bbbbb", chunks[1].Text)
	assert.Equal(t, "cc", chunks[2].Text)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 5, chunks[0].EndOffset)
	assert.Equal(t, 10, chunks[2].StartOffset)
	assert.Equal(t, 12, chunks[2].EndOffset)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestSplitOverlap(t *testing.T) {
	chunks := ingest.Split("abcdefghij", 4, 2)

	require.Len(t, chunks, 4)
	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, "cdef", chunks[1].Text)
	assert.Equal(t, "efgh", chunks[2].Text)
	assert.Equal(t, "ghij", chunks[3].Text)
	assert.Equal(t, 6, chunks[3].StartOffset)
	assert.Equal(t, 10, chunks[3].EndOffset)
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox ", 500)
	first := ingest.Split(text, 2000, 200)
	second := ingest.Split(text, 2000, 200)
	assert.Equal(t, first, second)
}

func TestSplitShortText(t *testing.T) {
	chunks := ingest.Split("short", 2000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 5, chunks[0].EndOffset)
}

func TestSplitEmptyText(t *testing.T) {
	assert.Empty(t, ingest.Split("", 2000, 200))
}

func TestSplitRuneBoundaries(t *testing.T) {
	// Multi-byte runes must never be cut mid-sequence.
	chunks := ingest.Split("日本語の文章です", 4, 0)
	require.Len(t, chunks, 2)
	assert.Equal(t, "日本語の", chunks[0].Text)
	assert.Equal(t, "文章です", chunks[1].Text)
}

func TestSplitInvalidOverlapIgnored(t *testing.T) {
	// An overlap at or above the chunk size would never advance; it is
	// treated as no overlap.
	chunks := ingest.Split("abcdef", 3, 3)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abc", chunks[0].Text)
	assert.Equal(t, "def", chunks[1].Text)
}
