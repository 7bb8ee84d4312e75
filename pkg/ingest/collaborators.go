package ingest

import (
	"context"
)

// Fetcher retrieves raw text for a document locator. Transient network
// failures propagate; the pipeline records them per item and never retries
// within the same batch.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// Chunk is one retrievable unit produced by splitting a document.
type Chunk struct {
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
}

// Split divides text into overlapping chunks of at most size runes. It is
// deterministic and pure, so re-running ingestion reproduces identical
// chunk boundaries and offsets.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	chunks := []Chunk{}
	step := size - overlap

	for start, index := 0, 0; start < len(runes); start, index = start+step, index+1 {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index:       index,
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
