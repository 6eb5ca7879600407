// Package extract partitions documents of various formats into ordered, typed elements.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrUnsupportedFile is returned for extensions no partitioner handles.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ErrMalformed is returned when a format parser panics on broken input.
var ErrMalformed = errors.New("malformed document")

// Partitioner converts documents into a sequence of raw elements.
type Partitioner struct{}

// NewPartitioner returns a new Partitioner.
func NewPartitioner() *Partitioner {
	return &Partitioner{}
}

// Partition reads the file at path and returns its elements in document order.
// Returns an error if the file cannot be read or is malformed.
func (p *Partitioner) Partition(path string) ([]models.RawElement, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return p.PartitionBytes(content, ext)
}

// PartitionBytes partitions content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). A parser panic is returned as ErrMalformed.
func (p *Partitioner) PartitionBytes(content []byte, ext string) (elements []models.RawElement, err error) {
	defer recoverMalformed(&err)
	switch strings.ToLower(ext) {
	case ".pdf":
		return partitionPDF(content)
	case ".docx":
		return partitionDOCX(content)
	case ".xlsx":
		return partitionExcel(content)
	case ".pptx":
		return partitionPPTX(content)
	case ".md", ".markdown":
		return partitionMarkdown(content), nil
	case ".txt":
		return partitionPlain(content), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
}

// Supported reports whether ext has a partitioner.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".xlsx", ".pptx", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// elementList accumulates elements and numbers them in arrival order.
type elementList []models.RawElement

func (l *elementList) add(kind models.ElementKind, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	*l = append(*l, models.RawElement{Text: text, Kind: kind, Order: len(*l)})
}

// recoverMalformed turns a panic in the deferring function into ErrMalformed.
// ledongthuc/pdf panics on some corrupt cross-reference tables.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}
