package models

// Answer is a generated response and the chunks it was grounded on, in retrieval order.
type Answer struct {
	Query   string  `json:"query"`
	Text    string  `json:"answer"`
	Sources []Chunk `json:"sources"`
}

// SourceFiles returns the distinct source paths of the answer, in first-seen order.
// Used for display only; Sources keeps every chunk.
func (a *Answer) SourceFiles() []string {
	seen := make(map[string]bool, len(a.Sources))
	var out []string
	for _, c := range a.Sources {
		if seen[c.SourcePath] {
			continue
		}
		seen[c.SourcePath] = true
		out = append(out, c.SourcePath)
	}
	return out
}
