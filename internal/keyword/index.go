// Package keyword provides literal term lookup over chunk text.
package keyword

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// StemBoost multiplies the score contribution from matches in the source file stem.
	// Use 1.0 for no boost.
	StemBoost float64
	// FuzzyEnabled enables matching terms within Fuzziness edits.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance (1 or 2). Default 1.
	Fuzziness int
}

// Index defines keyword lookup operations over chunks.
type Index interface {
	Index(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, terms string, limit int, opts *SearchOptions) ([]*Result, error)
	// Count returns the number of indexed chunks.
	Count() (uint64, error)
	Close() error
}

// Result is a single keyword hit keyed by chunk ID.
type Result struct {
	ID    string
	Score float64
}
