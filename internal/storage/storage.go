// Package storage persists chunk records and per-file document rows.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Record is a stored chunk with its insertion sequence number.
type Record struct {
	models.Chunk
	Seq int64
}

// Storage defines document and chunk persistence operations.
type Storage interface {
	// Document operations
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []models.Chunk) error
	GetChunks(ctx context.Context, ids []string) (map[string]Record, error)
	GetChunksBySource(ctx context.Context, sourcePath string) ([]models.Chunk, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
