// Package vectorstore persists embedded chunks and answers similarity queries.
package vectorstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// File and directory names inside the persist directory.
const (
	ChunksFile  = "chunks.db"
	VectorsFile = "vectors.bin"
	KeywordDir  = "keyword"
)

// ErrNoIndex is returned by Open when the persist directory holds no index.
var ErrNoIndex = errors.New("no index found; run ingest first")

// Store holds embedded chunks and returns the nearest ones to a query vector.
type Store interface {
	Insert(ctx context.Context, entries []models.IndexEntry) error
	// Search returns at most k chunks, most similar first.
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Persist() error
	Close() error
}

// Options configures a LocalStore.
type Options struct {
	Dimensions int
	Backend    string
	Qdrant     vector.QdrantOptions
	// Keyword feeds chunk text into a bleve index for literal lookup.
	Keyword bool
	Logger  *zap.Logger
}

// OptionsFromConfig derives store options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, dimensions int, logger *zap.Logger) Options {
	q := cfg.Vector.Qdrant
	opts := Options{
		Dimensions: dimensions,
		Backend:    cfg.Vector.Backend,
		Qdrant: vector.QdrantOptions{
			Host:       q.Host,
			Port:       q.Port,
			UseTLS:     q.UseTLS,
			Collection: q.Collection,
		},
		Keyword: true,
		Logger:  logger,
	}
	if q.APIKeyEnv != "" {
		opts.Qdrant.APIKey = os.Getenv(q.APIKeyEnv)
	}
	return opts
}

// LocalStore composes a vector index, a SQLite chunk store and an optional keyword index
// under one persist directory.
type LocalStore struct {
	dir      string
	dims     int
	vectors  vector.VectorIndex
	chunks   storage.Storage
	keywords keyword.Index
	logger   *zap.Logger
}

// Create starts a fresh store in dir, discarding any previous index there.
func Create(ctx context.Context, dir string, opts Options) (*LocalStore, error) {
	for _, name := range []string{ChunksFile, ChunksFile + "-wal", ChunksFile + "-shm", VectorsFile, KeywordDir} {
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("clear previous index: %w", err)
		}
	}
	s, err := open(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	if err := s.vectors.Reset(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("reset vector index: %w", err)
	}
	return s, nil
}

// Open reopens a store persisted in dir.
func Open(ctx context.Context, dir string, opts Options) (*LocalStore, error) {
	if _, err := os.Stat(filepath.Join(dir, ChunksFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIndex
		}
		return nil, err
	}
	s, err := open(ctx, dir, opts)
	if err != nil {
		return nil, err
	}
	if err := s.vectors.Load(filepath.Join(dir, VectorsFile)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return s, nil
}

func open(ctx context.Context, dir string, opts Options) (*LocalStore, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", opts.Dimensions)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create persist directory: %w", err)
	}

	chunks, err := storage.NewSQLiteStorage(filepath.Join(dir, ChunksFile))
	if err != nil {
		return nil, err
	}
	vecs, err := vector.NewVectorIndex(ctx, opts.Backend, opts.Dimensions, opts.Qdrant)
	if err != nil {
		_ = chunks.Close()
		return nil, err
	}
	s := &LocalStore{dir: dir, dims: opts.Dimensions, vectors: vecs, chunks: chunks, logger: logger}
	if opts.Keyword {
		kw, err := keyword.NewBleveIndex(filepath.Join(dir, KeywordDir))
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.keywords = kw
	}
	return s, nil
}

// Insert stores chunk records, per-file document rows, vectors and keyword entries.
func (s *LocalStore) Insert(ctx context.Context, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	vecs := make([][]float32, len(entries))
	chunks := make([]models.Chunk, len(entries))
	for i, e := range entries {
		if len(e.Vector) != s.dims {
			return fmt.Errorf("chunk %s: vector has %d dimensions, store expects %d", e.Chunk.ID, len(e.Vector), s.dims)
		}
		ids[i] = e.Chunk.ID
		vecs[i] = e.Vector
		chunks[i] = e.Chunk
	}

	if err := s.chunks.BatchCreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	for _, doc := range documentsOf(chunks) {
		if err := s.chunks.UpsertDocument(ctx, doc); err != nil {
			return fmt.Errorf("store document %s: %w", doc.SourcePath, err)
		}
	}
	if err := s.vectors.Add(ctx, ids, vecs); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	if s.keywords != nil {
		if err := s.keywords.Index(ctx, chunks); err != nil {
			return fmt.Errorf("keyword index: %w", err)
		}
	}
	s.logger.Debug("inserted entries", zap.Int("count", len(entries)))
	return nil
}

// documentsOf groups chunks by source path, preserving first-seen order.
func documentsOf(chunks []models.Chunk) []*models.Document {
	byPath := make(map[string]*models.Document)
	var docs []*models.Document
	for _, c := range chunks {
		doc, ok := byPath[c.SourcePath]
		if !ok {
			doc = &models.Document{ID: fileid.DocumentID(c.SourcePath), SourcePath: c.SourcePath, SourceStem: c.SourceStem}
			byPath[c.SourcePath] = doc
			docs = append(docs, doc)
		}
		doc.ChunkCount++
	}
	return docs
}

// Search returns the k chunks nearest to vec in descending similarity. Equal scores
// keep insertion order whichever backend produced them.
func (s *LocalStore) Search(ctx context.Context, vec []float32, k int) ([]models.ScoredChunk, error) {
	if len(vec) != s.dims {
		return nil, fmt.Errorf("query vector has %d dimensions, store expects %d", len(vec), s.dims)
	}
	hits, err := s.vectors.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	type ranked struct {
		hit models.ScoredChunk
		seq int64
	}
	rs := make([]ranked, 0, len(hits))
	for _, h := range hits {
		rec, ok := byID[h.ID]
		if !ok {
			s.logger.Warn("vector without chunk record", zap.String("id", h.ID))
			continue
		}
		rs = append(rs, ranked{hit: models.ScoredChunk{Chunk: rec.Chunk, Score: h.Score}, seq: rec.Seq})
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(b.hit.Score, a.hit.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	out := make([]models.ScoredChunk, len(rs))
	for i, r := range rs {
		out[i] = r.hit
	}
	return out, nil
}

// Lookup runs a keyword query and returns matching chunks in score order.
func (s *LocalStore) Lookup(ctx context.Context, terms string, limit int, opts *keyword.SearchOptions) ([]models.ScoredChunk, error) {
	if s.keywords == nil {
		return nil, errors.New("keyword index is disabled")
	}
	hits, err := s.keywords.Search(ctx, terms, limit, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	out := make([]models.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if rec, ok := byID[h.ID]; ok {
			out = append(out, models.ScoredChunk{Chunk: rec.Chunk, Score: h.Score})
		}
	}
	return out, nil
}

// Count returns the number of stored vectors.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	return s.vectors.Count(ctx)
}

// Persist flushes the vector index to disk. SQLite and bleve write through.
func (s *LocalStore) Persist() error {
	return s.vectors.Save(filepath.Join(s.dir, VectorsFile))
}

// Close releases every underlying index.
func (s *LocalStore) Close() error {
	var errs []error
	if s.keywords != nil {
		errs = append(errs, s.keywords.Close())
	}
	if s.vectors != nil {
		errs = append(errs, s.vectors.Close())
	}
	if s.chunks != nil {
		errs = append(errs, s.chunks.Close())
	}
	return errors.Join(errs...)
}
