package vector

import (
	"context"
	"fmt"
)

// Backend names a vector index implementation.
type Backend string

const (
	// BackendMemory uses in-memory brute-force search persisted to a local file.
	BackendMemory Backend = "memory"
	// BackendQdrant stores vectors in a Qdrant collection.
	BackendQdrant Backend = "qdrant"
)

// NewVectorIndex creates a vector index of the given backend. qdrant options are ignored for memory.
func NewVectorIndex(ctx context.Context, backend string, dimensions int, qdrantOpts QdrantOptions) (VectorIndex, error) {
	switch Backend(backend) {
	case BackendMemory, "":
		return NewMemoryIndex(dimensions)
	case BackendQdrant:
		return NewQdrantIndex(ctx, qdrantOpts, dimensions)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, qdrant)", backend)
	}
}
