package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of chunk texts sent per embedding call.
const DefaultBatchSize = 32

// Builder embeds chunks and loads them into a vector store.
type Builder struct {
	embedder  embedding.Embedder
	store     vectorstore.Store
	batchSize int
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBatchSize sets how many texts are embedded per call.
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// NewBuilder creates an index builder. logger may be nil.
func NewBuilder(embedder embedding.Embedder, store vectorstore.Store, logger *zap.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every chunk, bulk-inserts the entries and persists the store.
// An empty chunk collection returns ErrEmptyCorpus without touching the embedder or store.
func (b *Builder) Build(ctx context.Context, chunks []models.Chunk) (vectorstore.Store, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	entries := make([]models.IndexEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}
		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, &rag.ServiceError{Op: "embed", Err: err}
		}
		if len(vectors) != len(texts) {
			return nil, &rag.ServiceError{Op: "embed", Err: fmt.Errorf("got %d embeddings for %d texts", len(vectors), len(texts))}
		}
		for i, c := range chunks[start:end] {
			entries = append(entries, models.IndexEntry{Vector: vectors[i], Chunk: c})
		}
		b.logger.Debug("embedded batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(chunks)))
	}

	if err := b.store.Insert(ctx, entries); err != nil {
		return nil, &rag.ServiceError{Op: "insert", Err: err}
	}
	if err := b.store.Persist(); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	b.logger.Info("index built", zap.Int("chunks", len(entries)))
	return b.store, nil
}

// BuildReport builds the index from an ingestion report and advances it to StateReady.
func (b *Builder) BuildReport(ctx context.Context, report *Report) (vectorstore.Store, error) {
	if report == nil || len(report.Chunks) == 0 {
		if report != nil {
			report.State = StateEmptyCorpus
		}
		return nil, ErrEmptyCorpus
	}
	report.State = StateIndexing
	store, err := b.Build(ctx, report.Chunks)
	if err != nil {
		return nil, err
	}
	report.State = StateReady
	return store, nil
}
