package indexer

import (
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
)

const (
	// DefaultChunkSize is the window size in characters.
	DefaultChunkSize = 3000
	// DefaultChunkOverlap is the number of characters shared by consecutive windows.
	DefaultChunkOverlap = 300
)

// Assembler performs hybrid chunking: elements are grouped under their titles and
// oversized groups are re-split into overlapping character windows.
type Assembler struct {
	chunkSize    int
	chunkOverlap int
}

// NewAssembler creates an assembler with the given size and overlap (in characters).
// An overlap that is not smaller than the size is clamped to a quarter of the size.
func NewAssembler(chunkSize, chunkOverlap int) *Assembler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}
	return &Assembler{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ChunkSize returns the effective window size.
func (a *Assembler) ChunkSize() int { return a.chunkSize }

// ChunkOverlap returns the effective window overlap.
func (a *Assembler) ChunkOverlap() int { return a.chunkOverlap }

// Assemble turns one file's elements into chunks. ChunkIndex runs from 0 over the
// final sequence; ParentChunkIndex is the title group each chunk came from.
func (a *Assembler) Assemble(path string, elements []models.RawElement) []models.Chunk {
	stem := SourceStem(path)
	var chunks []models.Chunk
	for groupIdx, group := range GroupByTitle(elements) {
		for _, window := range SplitText(group, a.chunkSize, a.chunkOverlap) {
			if strings.TrimSpace(window) == "" {
				continue
			}
			parent := groupIdx
			idx := len(chunks)
			chunks = append(chunks, models.Chunk{
				ID:               fileid.ChunkID(path, idx),
				Text:             window,
				SourcePath:       path,
				SourceStem:       stem,
				ChunkIndex:       idx,
				ParentChunkIndex: &parent,
			})
		}
	}
	return chunks
}

// GroupByTitle starts a new group at the beginning of the sequence and at every title
// element. A group's text is its elements' trimmed text joined by newlines; empty
// elements contribute nothing and empty groups are dropped.
func GroupByTitle(elements []models.RawElement) []string {
	var groups []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, strings.Join(cur, "\n"))
		}
		cur = nil
	}
	for _, el := range elements {
		if el.Kind == models.KindTitle {
			flush()
		}
		if text := strings.TrimSpace(el.Text); text != "" {
			cur = append(cur, text)
		}
	}
	flush()
	return groups
}

// SplitText cuts text into windows of at most size characters, advancing by
// size-overlap, so consecutive windows share exactly overlap characters. The last
// window ends at the end of the text. Text that already fits is returned whole.
func SplitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	step := size - overlap
	if step <= 0 {
		step = 1
	}
	var windows []string
	for start := 0; ; start += step {
		end := min(start+size, len(runes))
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}

// SourceStem returns the lowercased file name without its extension.
func SourceStem(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
