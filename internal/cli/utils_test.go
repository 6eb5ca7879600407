package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

func sampleAnswer() *models.Answer {
	return &models.Answer{
		Query: "what is kotae?",
		Text:  "A question answering tool.\n\tIndented line.",
		Sources: []models.Chunk{
			{SourcePath: "docs/intro.md", ChunkIndex: 0, Text: "intro"},
			{SourcePath: "docs/usage.txt", ChunkIndex: 3, Text: "usage"},
		},
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).WriteAnswer(sampleAnswer(), OutputText); err != nil {
		t.Fatalf("WriteAnswer: %v", err)
	}
	want := "\nAnswer:\nA question answering tool.\n\tIndented line.\n" +
		"\nSources:\n- docs/intro.md (chunk 0)\n- docs/usage.txt (chunk 3)\n"
	if got := buf.String(); got != want {
		t.Errorf("text output:\n%q\nwant:\n%q", got, want)
	}
}

func TestWriteAnswer_noSources(t *testing.T) {
	var buf bytes.Buffer
	_ = NewPrinter(&buf, false).WriteAnswer(&models.Answer{Text: "nothing"}, OutputText)
	if !strings.HasSuffix(buf.String(), "Sources:\n") {
		t.Errorf("expected output to end after Sources line, got %q", buf.String())
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).WriteAnswer(sampleAnswer(), OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Text != sampleAnswer().Text || len(decoded.Sources) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !strings.Contains(buf.String(), `"answer"`) {
		t.Errorf("expected answer key in JSON:\n%s", buf.String())
	}
}

func TestWriteAnswer_styledKeepsText(t *testing.T) {
	var buf bytes.Buffer
	_ = NewPrinter(&buf, true).WriteAnswer(sampleAnswer(), OutputText)
	out := buf.String()
	for _, sub := range []string{"Answer:", "\tIndented line.", "- docs/usage.txt (chunk 3)"} {
		if !strings.Contains(out, sub) {
			t.Errorf("styled output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteChunks(t *testing.T) {
	hits := []models.ScoredChunk{
		{Chunk: models.Chunk{SourcePath: "a.md", ChunkIndex: 2, Text: "line one\n\nline   two"}, Score: 1.5},
	}
	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).WriteChunks("line", hits, OutputText); err != nil {
		t.Fatalf("WriteChunks: %v", err)
	}
	out := buf.String()
	for _, sub := range []string{`Found 1 chunks for "line"`, "1. a.md (chunk 2)", "score 1.5000", "line one line two"} {
		if !strings.Contains(out, sub) {
			t.Errorf("output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := NewPrinter(&buf, false).WriteChunks("line", hits, OutputJSON); err != nil {
		t.Fatalf("WriteChunks(json): %v", err)
	}
	var decoded struct {
		Query   string               `json:"query"`
		Results []models.ScoredChunk `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Query != "line" || len(decoded.Results) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStatus(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	summary := cfg.Summary()
	st := &vectorstore.Stats{Documents: 2, Chunks: 7, Vectors: 7, Keywords: 7, DiskBytes: 2048, Config: &summary}

	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).WriteStatus(st, OutputText); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Documents:  2", "Chunks:     7", "2.0 KiB", "size 3000, overlap 300", "Top k:      4"} {
		if !strings.Contains(out, sub) {
			t.Errorf("status output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := NewPrinter(&buf, false).WriteStatus(st, OutputJSON); err != nil {
		t.Fatalf("WriteStatus(json): %v", err)
	}
	var decoded vectorstore.Stats
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Chunks != 7 || decoded.Config == nil || decoded.Config.K != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStatus_files(t *testing.T) {
	st := &vectorstore.Stats{Documents: 1, Files: []*models.Document{{SourcePath: "data/a.md", ChunkCount: 3}}}
	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).WriteStatus(st, OutputText); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if !strings.Contains(buf.String(), "Documents\n  data/a.md (3 chunks)\n") {
		t.Errorf("file listing missing:\n%s", buf.String())
	}
}

func TestWriteSource(t *testing.T) {
	doc := &models.Document{SourcePath: "data/a.md", ChunkCount: 2}
	chunks := []models.Chunk{
		{SourcePath: "data/a.md", ChunkIndex: 0, Text: "first part"},
		{SourcePath: "data/a.md", ChunkIndex: 1, Text: "second part"},
	}
	var buf bytes.Buffer
	if err := NewPrinter(&buf, false).WriteSource(doc, chunks, OutputText); err != nil {
		t.Fatalf("WriteSource: %v", err)
	}
	want := "data/a.md (2 chunks)\n\n[chunk 0]\nfirst part\n\n[chunk 1]\nsecond part\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := NewPrinter(&buf, false).WriteSource(doc, chunks, OutputJSON); err != nil {
		t.Fatalf("WriteSource(json): %v", err)
	}
	var decoded struct {
		Chunks []models.Chunk `json:"chunks"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded.Chunks) != 2 {
		t.Errorf("decoded = %+v, err = %v", decoded, err)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPrinter_ErrorAndPrompt(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.Error(errors.New("boom"))
	p.Prompt()
	if got := buf.String(); got != "Error: boom\n\n> " {
		t.Errorf("got %q", got)
	}
}

func TestIsTerminal_regularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}
