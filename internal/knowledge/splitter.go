package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default splitter geometry.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// boundarySeparators lists cut boundaries from most to least preferred:
// paragraph break, line break, word break. A window is only ever cut
// mid-word when none of these occur inside it.
var boundarySeparators = []string{"\n\n", "\n", " "}

// Splitter cuts text into overlapping windows of roughly chunkSize
// characters with overlap characters shared between adjacent windows.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a splitter. chunkSize must be positive and overlap
// must be smaller than chunkSize.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split cuts text into overlapping windows. Every byte of the input
// appears in at least one window, and each window after the first begins
// inside the previous one, so stitching the windows back together with
// their overlaps removed reproduces the input exactly.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		cut := s.cutPoint(text, start, end)
		chunks = append(chunks, text[start:cut])

		next := cut - s.overlap
		if next <= start {
			// Overlap would stall the walk; give it up for this step.
			next = cut
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return chunks
}

// cutPoint picks where the window ending at end should actually be cut:
// after the last preferred boundary inside the window, or at end itself
// (backed off to a rune boundary) when the window has no usable boundary.
// A boundary is usable only if cutting there still advances the walk
// past the overlap region.
func (s *Splitter) cutPoint(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range boundarySeparators {
		if idx := strings.LastIndex(window, sep); idx > s.overlap {
			return start + idx + len(sep)
		}
	}
	for end > start+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// ChunkSize returns the configured window size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }
