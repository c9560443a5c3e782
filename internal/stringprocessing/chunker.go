// Package stringprocessing provides text utilities shared by the invoker and chat layers:
// overlapping chunking of oversized page text and page text cleanup.
package stringprocessing

import (
	"errors"
	"fmt"
	"iter"
)

// Default chunking parameters for long page content.
const (
	DefaultChunkSize    = 4096
	DefaultChunkOverlap = 200
)

// ErrInvalidChunking is returned when chunk size and overlap cannot produce progress.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// ValidateChunking checks that size is positive and overlap lies in [0, size).
func ValidateChunking(size, overlap int) error {
	if size < 1 {
		return fmt.Errorf("%w: chunk size %d must be at least 1", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, overlap, size)
	}
	return nil
}

// Split breaks text into chunks of at most size characters, each starting
// size-overlap characters after the previous one. Characters are runes.
//
// Dropping the first overlap characters of every chunk but the first and
// concatenating the remainder reproduces text exactly.
func Split(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunking(size, overlap); err != nil {
		return nil, err
	}

	out := make([]string, 0, ChunkCount(len([]rune(text)), size, overlap))
	for chunk := range chunks(text, size, overlap) {
		out = append(out, chunk)
	}
	return out, nil
}

// Chunks is the lazy form of Split. The sequence is restartable. Invalid
// parameters yield nothing; call ValidateChunking first to tell them apart
// from empty input.
func Chunks(text string, size, overlap int) iter.Seq[string] {
	if ValidateChunking(size, overlap) != nil {
		return func(func(string) bool) {}
	}
	return chunks(text, size, overlap)
}

func chunks(text string, size, overlap int) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		step := size - overlap
		for start := 0; start < len(runes); start += step {
			end := min(start+size, len(runes))
			if !yield(string(runes[start:end])) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}
}

// ChunkCount returns how many chunks Split produces for a text of n characters.
func ChunkCount(n, size, overlap int) int {
	if n <= 0 || ValidateChunking(size, overlap) != nil {
		return 0
	}
	if n <= size {
		return 1
	}
	step := size - overlap
	return 1 + (n-size+step-1)/step
}

// Join reverses Split for chunks produced with the given overlap.
func Join(parts []string, overlap int) string {
	var out []rune
	for i, chunk := range parts {
		r := []rune(chunk)
		if i > 0 {
			r = r[min(overlap, len(r)):]
		}
		out = append(out, r...)
	}
	return string(out)
}
