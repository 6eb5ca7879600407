// Package models defines core data structures for partitioned elements, chunks, and answers.
package models

import "time"

// ElementKind classifies a partitioned text element.
type ElementKind string

const (
	KindTitle    ElementKind = "title"
	KindBody     ElementKind = "body"
	KindListItem ElementKind = "list_item"
	KindOther    ElementKind = "other"
)

// RawElement is one typed unit of text produced by a partitioner.
// Order is the element's position within its source file.
type RawElement struct {
	Text  string      `json:"text"`
	Kind  ElementKind `json:"kind"`
	Order int         `json:"order"`
}

// Document records one ingested source file.
type Document struct {
	ID         string    `json:"id" db:"id"`
	SourcePath string    `json:"source_path" db:"source_path"`
	SourceStem string    `json:"source_stem" db:"source_stem"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
