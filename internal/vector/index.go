// Package vector provides vector indexes and similarity search over chunk embeddings.
package vector

import "context"

// VectorIndex stores vectors by chunk ID and answers nearest-neighbour queries.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns at most k hits, best first.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// Reset drops every vector so a fresh build can start.
	Reset(ctx context.Context) error
	Save(path string) error
	Load(path string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}
