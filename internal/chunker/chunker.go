package chunker

import (
	"strings"
)

// Options controls how extracted text is chunked.
type Options struct {
	// ChunkSize is the maximum chunk length in characters. Chunks close at
	// paragraph boundaries, so a chunk may run slightly over when the final
	// paragraph pushes past the limit.
	ChunkSize int
	// OverlapWords is the number of trailing words of a closed chunk that
	// seed the next chunk, preserving context across boundaries.
	OverlapWords int
}

const (
	defaultChunkSize    = 1000
	defaultOverlapWords = 200
)

// Split breaks text into overlapping chunks at paragraph boundaries
// (double-newline delimited). Paragraphs accumulate into a chunk until adding
// the next one would exceed ChunkSize; the chunk then closes and the next one
// starts with the trailing OverlapWords words of the closed chunk followed by
// the new paragraph.
//
// Split is a pure function: identical input always yields the identical
// sequence. Empty input yields nil. A single paragraph longer than ChunkSize
// is kept whole rather than cut mid-sentence, except in the pathological case
// of a lone paragraph over twice ChunkSize, which falls back to fixed
// character windows to bound the worst case.
func Split(text string, opts Options) []string {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.OverlapWords < 0 {
		opts.OverlapWords = 0
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current string

	for _, para := range paragraphs {
		switch {
		case current != "" && len(current)+len(para) > opts.ChunkSize:
			chunks = append(chunks, strings.TrimSpace(current))
			current = overlapSeed(current, opts.OverlapWords) + "\n\n" + para
		case current != "":
			current += "\n\n" + para
		default:
			current = para
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	// Bound the worst case: a single paragraph more than twice the chunk
	// size gets windowed. Multi-paragraph chunks are never windowed.
	if len(chunks) == 1 && !strings.Contains(chunks[0], "\n\n") && len(chunks[0]) > 2*opts.ChunkSize {
		return window(chunks[0], opts.ChunkSize)
	}
	return chunks
}

// overlapSeed returns the trailing n words of closed chunk text, joined by
// single spaces.
func overlapSeed(closed string, n int) string {
	if n == 0 {
		return ""
	}
	words := strings.Fields(closed)
	start := len(words) - n
	if start < 0 {
		start = 0
	}
	return strings.Join(words[start:], " ")
}

// window splits text into fixed-size character windows with no overlap.
// Windows close on rune boundaries so multi-byte characters never split.
func window(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
