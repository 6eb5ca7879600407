package models

// Chunk is a bounded span of document text with its source lineage.
// It is the unit of embedding and retrieval.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	Text       string `json:"text" db:"text"`
	SourcePath string `json:"source_path" db:"source_path"`
	SourceStem string `json:"source_stem" db:"source_stem"`
	ChunkIndex int    `json:"chunk_index" db:"chunk_index"`
	// ParentChunkIndex is the semantic group the chunk was split from.
	ParentChunkIndex *int `json:"parent_chunk_index,omitempty" db:"parent_chunk_index"`
}

// IndexEntry pairs an embedding with the chunk it was computed from.
type IndexEntry struct {
	Vector []float32
	Chunk  Chunk
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Chunks returns the chunks of hits in order.
func Chunks(hits []ScoredChunk) []Chunk {
	out := make([]Chunk, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk
	}
	return out
}
