package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
)

// stubPartitioner fails for any path containing "bad" and otherwise returns one body element.
type stubPartitioner struct {
	calls []string
}

func (s *stubPartitioner) Partition(path string) ([]models.RawElement, error) {
	s.calls = append(s.calls, path)
	if strings.Contains(path, "bad") {
		return nil, errors.New("corrupt document")
	}
	if strings.Contains(path, "panic") {
		panic("parser blew up")
	}
	if strings.Contains(path, "blank") {
		return []models.RawElement{{Kind: models.KindBody, Text: "   "}}, nil
	}
	return []models.RawElement{{Kind: models.KindBody, Text: "content of " + filepath.Base(path)}}, nil
}

var allExts = []string{".pdf", ".txt", ".md", ".docx"}

func TestPipeline_partitionFailureContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_bad.pdf"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "x")
	writeFile(t, filepath.Join(dir, "c.md"), "x")

	report, err := NewPipeline(&stubPartitioner{}, NewAssembler(100, 10), allExts, nil).Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Failed != 1 || len(report.Files) != 3 {
		t.Errorf("failed=%d files=%d, want 1 and 3", report.Failed, len(report.Files))
	}
	var perr *PartitionError
	if !errors.As(report.Files[0].Err, &perr) || perr.Path != filepath.Join(dir, "a_bad.pdf") {
		t.Errorf("first file should carry a PartitionError, got %v", report.Files[0].Err)
	}
	if len(report.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(report.Chunks))
	}
	for _, c := range report.Chunks {
		if strings.Contains(c.SourcePath, "bad") {
			t.Errorf("failed file contributed chunk %+v", c)
		}
	}
	if report.State != StateChunking {
		t.Errorf("state = %s, want chunking", report.State)
	}
}

func TestPipeline_emptyCorpus(t *testing.T) {
	tests := []struct {
		name  string
		files []string
	}{
		{"no files", nil},
		{"only unsupported", []string{"x.png", "y.go"}},
		{"only failures", []string{"bad.pdf"}},
		{"only blank", []string{"blank.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, f), "x")
			}
			report, err := NewPipeline(&stubPartitioner{}, NewAssembler(100, 10), allExts, nil).Ingest(context.Background(), dir)
			if !errors.Is(err, ErrEmptyCorpus) {
				t.Fatalf("expected ErrEmptyCorpus, got %v", err)
			}
			if report.State != StateEmptyCorpus {
				t.Errorf("state = %s, want empty_corpus", report.State)
			}
		})
	}
}

func TestPipeline_stateTransitions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_bad.txt"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "x")

	var states []State
	p := NewPipeline(&stubPartitioner{}, NewAssembler(100, 10), allExts, nil,
		WithStateObserver(func(s State) { states = append(states, s) }))
	if _, err := p.Ingest(context.Background(), dir); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	want := []State{
		StateIdle, StateDiscovering,
		StatePartitioning, StateDiscovering, // a_bad fails and returns to discovery
		StatePartitioning, StateChunking, StateDiscovering,
		StateChunking,
	}
	if !slices.Equal(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestPipeline_partitionerPanicContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_panic.pdf"), "x")
	writeFile(t, filepath.Join(dir, "b.txt"), "x")

	report, err := NewPipeline(&stubPartitioner{}, NewAssembler(100, 10), allExts, nil).Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Failed != 1 || len(report.Chunks) != 1 {
		t.Errorf("failed=%d chunks=%d, want 1 and 1", report.Failed, len(report.Chunks))
	}
	var perr *PartitionError
	if !errors.As(report.Files[0].Err, &perr) || !strings.Contains(perr.Error(), "parser blew up") {
		t.Errorf("panic should be recorded as a PartitionError, got %v", report.Files[0].Err)
	}
}

func TestPipeline_corruptPDFContinues(t *testing.T) {
	dir := t.TempDir()
	var pdf bytes.Buffer
	pdf.WriteString("%PDF-1.4\n")
	objOffset := pdf.Len()
	pdf.WriteString("1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	pdf.WriteString("% padding so the trailer scan window stays inside the file\n")
	xrefOffset := pdf.Len()
	fmt.Fprintf(&pdf, "xref\n0 2\n0000000000 65535 f \n%010d 00000 n \n", objOffset+4)
	fmt.Fprintf(&pdf, "trailer\n<< /Size 2 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	writeFile(t, filepath.Join(dir, "broken.pdf"), pdf.String())
	writeFile(t, filepath.Join(dir, "notes.txt"), "plain notes survive.")

	report, err := NewPipeline(extract.NewPartitioner(), NewAssembler(100, 10), allExts, nil).
		Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Failed != 1 || len(report.Files) != 2 {
		t.Fatalf("failed=%d files=%d, want 1 and 2", report.Failed, len(report.Files))
	}
	if !errors.Is(report.Files[0].Err, extract.ErrMalformed) {
		t.Errorf("broken.pdf error = %v, want ErrMalformed", report.Files[0].Err)
	}
	if len(report.Chunks) != 1 || report.Chunks[0].Text != "plain notes survive." {
		t.Errorf("chunks = %+v", report.Chunks)
	}
}

func TestPipeline_missingRootIsEmptyCorpus(t *testing.T) {
	stub := &stubPartitioner{}
	report, err := NewPipeline(stub, NewAssembler(100, 10), allExts, nil).
		Ingest(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
	if report.State != StateEmptyCorpus || len(stub.calls) != 0 {
		t.Errorf("state=%s calls=%v, want empty_corpus and no partitioning", report.State, stub.calls)
	}
}

func TestPipeline_rootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "x")
	_, err := NewPipeline(&stubPartitioner{}, NewAssembler(100, 10), allExts, nil).Ingest(context.Background(), path)
	if err == nil || errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected a data path error, got %v", err)
	}
}

func TestPipeline_cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubPartitioner{}
	_, err := NewPipeline(stub, NewAssembler(100, 10), allExts, nil).Ingest(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(stub.calls) != 0 {
		t.Errorf("no file should be partitioned after cancellation, got %v", stub.calls)
	}
}

func TestPipeline_realPartitioner(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "guide.md"), "# Setup\n\nInstall the tool.\n\n# Usage\n\nRun it.")
	writeFile(t, filepath.Join(dir, "notes.txt"), "plain notes.")

	report, err := NewPipeline(extract.NewPartitioner(), NewAssembler(3000, 300), allExts, nil).
		Ingest(context.Background(), dir)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	var texts []string
	for _, c := range report.Chunks {
		texts = append(texts, c.Text)
	}
	want := []string{"Setup\nInstall the tool.", "Usage\nRun it.", "plain notes."}
	if !slices.Equal(texts, want) {
		t.Errorf("chunks = %q, want %q", texts, want)
	}
	if report.Chunks[1].ChunkIndex != 1 || *report.Chunks[1].ParentChunkIndex != 1 {
		t.Errorf("unexpected indices on second chunk: %+v", report.Chunks[1])
	}
	if report.Chunks[2].ChunkIndex != 0 {
		t.Errorf("chunk index must restart per file, got %d", report.Chunks[2].ChunkIndex)
	}
}

func TestStateString(t *testing.T) {
	if StateEmptyCorpus.String() != "empty_corpus" || StateReady.String() != "ready" {
		t.Error("unexpected state names")
	}
	if State(99).String() != "state(99)" {
		t.Errorf("got %s", State(99).String())
	}
}
