package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
)

func el(kind models.ElementKind, text string) models.RawElement {
	return models.RawElement{Kind: kind, Text: text}
}

func TestGroupByTitle(t *testing.T) {
	elements := []models.RawElement{
		el(models.KindBody, "preamble"),
		el(models.KindTitle, "Intro"),
		el(models.KindBody, "  first para  "),
		el(models.KindListItem, "- item"),
		el(models.KindTitle, "Empty Section"),
		el(models.KindTitle, "Next"),
		el(models.KindBody, "   "),
		el(models.KindBody, "last"),
	}
	got := GroupByTitle(elements)
	want := []string{"preamble", "Intro\nfirst para\n- item", "Empty Section", "Next\nlast"}
	if len(got) != len(want) {
		t.Fatalf("got %d groups %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGroupByTitle_emptyElementsDropped(t *testing.T) {
	got := GroupByTitle([]models.RawElement{el(models.KindTitle, " "), el(models.KindBody, "\n\t")})
	if len(got) != 0 {
		t.Errorf("expected no groups, got %q", got)
	}
	if GroupByTitle(nil) != nil {
		t.Error("nil input should give nil groups")
	}
}

func TestSplitText_fitsInOneWindow(t *testing.T) {
	text := strings.Repeat("a", 100)
	got := SplitText(text, 100, 10)
	if len(got) != 1 || got[0] != text {
		t.Errorf("text of exactly chunk size should pass through, got %d windows", len(got))
	}
}

func TestSplitText_overlapAndReconstruction(t *testing.T) {
	tests := []struct {
		name          string
		length        int
		size, overlap int
	}{
		{"default budgets", 7000, 3000, 300},
		{"exact multiple", 1000, 100, 0},
		{"small windows", 257, 10, 3},
		{"one over", 101, 100, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tt.length; i++ {
				b.WriteByte(byte('a' + i%26))
			}
			text := b.String()
			windows := SplitText(text, tt.size, tt.overlap)
			if len(windows) < 2 {
				t.Fatalf("expected several windows, got %d", len(windows))
			}
			var rebuilt strings.Builder
			for i, w := range windows {
				if n := utf8.RuneCountInString(w); n > tt.size {
					t.Errorf("window %d has %d chars, exceeds %d", i, n, tt.size)
				}
				if i == 0 {
					rebuilt.WriteString(w)
					continue
				}
				prev := windows[i-1]
				if prev[len(prev)-tt.overlap:] != w[:tt.overlap] {
					t.Errorf("windows %d and %d do not share exactly %d chars", i-1, i, tt.overlap)
				}
				rebuilt.WriteString(w[tt.overlap:])
			}
			if rebuilt.String() != text {
				t.Error("removing overlaps and concatenating should rebuild the text")
			}
			if !strings.HasSuffix(text, windows[len(windows)-1]) {
				t.Error("last window should end at the end of the text")
			}
		})
	}
}

func TestSplitText_multiByte(t *testing.T) {
	text := strings.Repeat("日本語", 10) // 30 characters, 90 bytes
	windows := SplitText(text, 12, 2)
	for i, w := range windows {
		if !utf8.ValidString(w) {
			t.Fatalf("window %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(w); n > 12 {
			t.Errorf("window %d has %d chars", i, n)
		}
	}
	if len(windows) != 3 {
		t.Errorf("got %d windows, want 3", len(windows))
	}
}

func TestNewAssembler_clampsOverlap(t *testing.T) {
	tests := []struct {
		size, overlap       int
		wantSize, wantOverl int
	}{
		{3000, 300, 3000, 300},
		{100, 100, 100, 25},
		{100, 500, 100, 25},
		{0, 0, DefaultChunkSize, 0},
		{50, -1, 50, 0},
	}
	for _, tt := range tests {
		a := NewAssembler(tt.size, tt.overlap)
		if a.ChunkSize() != tt.wantSize || a.ChunkOverlap() != tt.wantOverl {
			t.Errorf("NewAssembler(%d, %d) = (%d, %d), want (%d, %d)",
				tt.size, tt.overlap, a.ChunkSize(), a.ChunkOverlap(), tt.wantSize, tt.wantOverl)
		}
	}
}

func TestAssemble_metadata(t *testing.T) {
	long := strings.Repeat("x", 25)
	elements := []models.RawElement{
		el(models.KindTitle, "A"),
		el(models.KindBody, "short"),
		el(models.KindTitle, "B"),
		el(models.KindBody, long),
	}
	path := "data/Reports/Quarterly.PDF"
	chunks := NewAssembler(10, 2).Assemble(path, elements)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.SourcePath != path || c.SourceStem != "quarterly" {
			t.Errorf("chunk %d metadata: path=%q stem=%q", i, c.SourcePath, c.SourceStem)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is blank", i)
		}
		if c.ID != fileid.ChunkID(path, i) {
			t.Errorf("chunk %d id %q not deterministic", i, c.ID)
		}
		if c.ParentChunkIndex == nil {
			t.Fatalf("chunk %d missing parent index", i)
		}
	}
	if *chunks[0].ParentChunkIndex != 0 {
		t.Errorf("first chunk parent = %d, want 0", *chunks[0].ParentChunkIndex)
	}
	for _, c := range chunks[1:] {
		if *c.ParentChunkIndex != 1 {
			t.Errorf("chunk %d parent = %d, want 1", c.ChunkIndex, *c.ParentChunkIndex)
		}
	}
}

func TestAssemble_dropsWhitespaceWindows(t *testing.T) {
	// the second window of the group is all spaces
	elements := []models.RawElement{el(models.KindBody, "abcdefgh" + strings.Repeat(" ", 20) + "z")}
	chunks := NewAssembler(8, 0).Assemble("a.txt", elements)
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk indices must stay contiguous: position %d has %d", i, c.ChunkIndex)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("whitespace-only chunk kept at %d", i)
		}
	}
	if len(chunks) != 2 {
		t.Errorf("got %d chunks, want 2", len(chunks))
	}
}

func TestAssemble_emptyInput(t *testing.T) {
	if got := NewAssembler(10, 2).Assemble("a.txt", nil); len(got) != 0 {
		t.Errorf("expected no chunks, got %d", len(got))
	}
}

func TestSourceStem(t *testing.T) {
	tests := map[string]string{
		"data/Report.PDF":      "report",
		"notes.tar.md":         "notes.tar",
		"/abs/path/README":     "readme",
		"dir.with.dots/a.docx": "a",
	}
	for in, want := range tests {
		if got := SourceStem(in); got != want {
			t.Errorf("SourceStem(%q) = %q, want %q", in, got, want)
		}
	}
}
