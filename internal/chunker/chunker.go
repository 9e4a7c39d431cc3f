package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults used when no chunking parameters are configured.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// ErrInvalidParams is returned when the window would not advance.
var ErrInvalidParams = errors.New("invalid chunk parameters")

// Validate checks that size and overlap produce a positive stride.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidParams, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidParams, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap (%d) must be smaller than chunk size (%d)", ErrInvalidParams, overlap, size)
	}
	return nil
}

// Split breaks text into windows of at most size whitespace-delimited words.
// Consecutive windows start size-overlap words apart, so each one repeats the
// last overlap words of its predecessor. The final window may be shorter.
func Split(text string, size, overlap int) ([]string, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	stride := size - overlap
	chunks := make([]string, 0, len(words)/stride+1)
	for start := 0; start < len(words); start += stride {
		end := min(start+size, len(words))
		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		// A window that already reached the last word makes any further
		// window a pure repeat of the overlap.
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
