// Package rag retrieves indexed chunks for a query and generates grounded answers.
package rag

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// DefaultK is the number of chunks retrieved per query.
const DefaultK = 4

// Retriever finds the chunks most similar to a query.
type Retriever struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	k        int
}

// NewRetriever returns a retriever over store. embedder must be the one the store was built with.
func NewRetriever(embedder embedding.Embedder, store vectorstore.Store, k int) (*Retriever, error) {
	if k < 1 {
		return nil, fmt.Errorf("retrieval k must be at least 1, got %d", k)
	}
	return &Retriever{embedder: embedder, store: store, k: k}, nil
}

// K returns the number of chunks requested per query.
func (r *Retriever) K() int {
	return r.k
}

// Retrieve returns at most k chunks for query, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &ServiceError{Op: "embed", Err: err}
	}
	hits, err := r.store.Search(ctx, vec, r.k)
	if err != nil {
		return nil, &ServiceError{Op: "search", Err: err}
	}
	if len(hits) > r.k {
		hits = hits[:r.k]
	}
	return hits, nil
}
