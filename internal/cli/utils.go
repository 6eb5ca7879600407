// Package cli formats answers, keyword hits and index status for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// Printer writes command output to w. Styling applies only to labels, never to
// generated text, and only when the printer is styled.
type Printer struct {
	w        io.Writer
	styled   bool
	heading  lipgloss.Style
	muted    lipgloss.Style
	errStyle lipgloss.Style
}

// NewPrinter returns a printer for w. styled enables terminal colors.
func NewPrinter(w io.Writer, styled bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:        w,
		styled:   styled,
		heading:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("241")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// IsTerminal reports whether f is attached to a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// Banner prints the ready message shown before the first prompt.
func (p *Printer) Banner() {
	fmt.Fprintln(p.w, p.render(p.heading, "RAG system is ready. Ask your questions (type 'exit' to quit)."))
}

// Prompt writes the input prompt.
func (p *Printer) Prompt() {
	fmt.Fprint(p.w, "\n> ")
}

// Error prints err as an "Error: ..." line.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.render(p.errStyle, "Error: "+err.Error()))
}

// WriteAnswer writes an answer in the given format.
// Text output lists every retrieved chunk as "- <source_path> (chunk <chunk_index>)".
func (p *Printer) WriteAnswer(answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.w, answer)
	}
	fmt.Fprintf(p.w, "\n%s\n%s\n", p.render(p.heading, "Answer:"), answer.Text)
	fmt.Fprintf(p.w, "\n%s\n", p.render(p.heading, "Sources:"))
	for _, c := range answer.Sources {
		fmt.Fprintf(p.w, "- %s (chunk %d)\n", c.SourcePath, c.ChunkIndex)
	}
	return nil
}

// WriteChunks writes keyword hits with a one-line preview of each chunk.
func (p *Printer) WriteChunks(query string, hits []models.ScoredChunk, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.w, struct {
			Query   string               `json:"query"`
			Results []models.ScoredChunk `json:"results"`
		}{query, hits})
	}
	fmt.Fprintf(p.w, "Found %d chunks for %q\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(p.w, "\n%d. %s (chunk %d) %s\n", i+1, h.Chunk.SourcePath, h.Chunk.ChunkIndex,
			p.render(p.muted, fmt.Sprintf("score %.4f", h.Score)))
		fmt.Fprintf(p.w, "   %s\n", utils.Preview(h.Chunk.Text, 200))
	}
	return nil
}

// WriteSource writes every chunk of one ingested document in chunk order.
func (p *Printer) WriteSource(doc *models.Document, chunks []models.Chunk, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.w, struct {
			Document *models.Document `json:"document"`
			Chunks   []models.Chunk   `json:"chunks"`
		}{doc, chunks})
	}
	fmt.Fprintf(p.w, "%s (%d chunks)\n", p.render(p.heading, doc.SourcePath), doc.ChunkCount)
	for _, c := range chunks {
		fmt.Fprintf(p.w, "\n%s\n%s\n", p.render(p.muted, fmt.Sprintf("[chunk %d]", c.ChunkIndex)), c.Text)
	}
	return nil
}

// WriteStatus writes index statistics.
func (p *Printer) WriteStatus(st *vectorstore.Stats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(p.w, st)
	}
	fmt.Fprintln(p.w, p.render(p.heading, "Index"))
	fmt.Fprintf(p.w, "  Documents:  %d\n", st.Documents)
	fmt.Fprintf(p.w, "  Chunks:     %d\n", st.Chunks)
	fmt.Fprintf(p.w, "  Vectors:    %d\n", st.Vectors)
	fmt.Fprintf(p.w, "  Keywords:   %d\n", st.Keywords)
	fmt.Fprintf(p.w, "  Disk usage: %s\n", FormatBytes(st.DiskBytes))
	if len(st.Files) > 0 {
		fmt.Fprintln(p.w, p.render(p.heading, "Documents"))
		for _, d := range st.Files {
			fmt.Fprintf(p.w, "  %s %s\n", d.SourcePath, p.render(p.muted, fmt.Sprintf("(%d chunks)", d.ChunkCount)))
		}
	}
	if c := st.Config; c != nil {
		fmt.Fprintln(p.w, p.render(p.heading, "Config"))
		fmt.Fprintf(p.w, "  Data path:  %s\n", c.DataPath)
		fmt.Fprintf(p.w, "  Index dir:  %s\n", c.PersistDirectory)
		fmt.Fprintf(p.w, "  Vectors:    %s\n", c.VectorBackend)
		fmt.Fprintf(p.w, "  Embedding:  %s/%s (%d dims)\n", c.EmbeddingProvider, c.EmbeddingModel, c.Dimensions)
		fmt.Fprintf(p.w, "  LLM:        %s/%s\n", c.LLMProvider, c.LLMModel)
		fmt.Fprintf(p.w, "  Chunking:   size %d, overlap %d\n", c.ChunkSize, c.ChunkOverlap)
		fmt.Fprintf(p.w, "  Top k:      %d\n", c.K)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
