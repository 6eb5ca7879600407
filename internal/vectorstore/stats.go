package vectorstore

import (
	"context"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// Stats summarises a persisted index.
type Stats struct {
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
	Vectors   int   `json:"vectors"`
	Keywords  int64 `json:"keyword_entries"`
	DiskBytes int64 `json:"disk_bytes"`
	// Files is filled by callers that list ingested documents.
	Files []*models.Document `json:"files,omitempty"`
	// Config is filled by callers that report settings alongside counts.
	Config *config.Summary `json:"config,omitempty"`
}

// Stats counts documents, chunks, vectors and on-disk size.
func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Documents, err = s.chunks.CountDocuments(ctx); err != nil {
		return st, err
	}
	if st.Chunks, err = s.chunks.CountChunks(ctx); err != nil {
		return st, err
	}
	if st.Vectors, err = s.vectors.Count(ctx); err != nil {
		return st, err
	}
	if s.keywords != nil {
		n, err := s.keywords.Count()
		if err != nil {
			return st, err
		}
		st.Keywords = int64(n)
	}
	st.DiskBytes, err = storage.DiskUsageBytes(
		filepath.Join(s.dir, ChunksFile),
		filepath.Join(s.dir, VectorsFile),
		filepath.Join(s.dir, KeywordDir),
	)
	return st, err
}

// Documents lists ingested files ordered by source path. A negative limit lists all.
func (s *LocalStore) Documents(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	return s.chunks.ListDocuments(ctx, offset, limit)
}

// Source returns the document row for sourcePath and its chunks in chunk order.
// An unknown path yields an error wrapping storage.ErrNotFound.
func (s *LocalStore) Source(ctx context.Context, sourcePath string) (*models.Document, []models.Chunk, error) {
	doc, err := s.chunks.GetDocument(ctx, fileid.DocumentID(sourcePath))
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.chunks.GetChunksBySource(ctx, doc.SourcePath)
	if err != nil {
		return nil, nil, err
	}
	return doc, chunks, nil
}
