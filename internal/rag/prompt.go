package rag

import (
	"strings"
	"text/template"

	"github.com/hyperjump/kotae/internal/models"
)

const answerTemplate = "Answer the question based ONLY on the following context:\n{{.Context}}\nQuestion: {{.Question}}"

var promptTmpl = template.Must(template.New("answer").Parse(answerTemplate))

type promptData struct {
	Context  string
	Question string
}

// BuildContext joins chunk texts as paragraphs in retrieval order.
func BuildContext(chunks []models.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

// BuildPrompt fills the answer template with the retrieved context and the raw question.
func BuildPrompt(chunks []models.Chunk, question string) (string, error) {
	var b strings.Builder
	if err := promptTmpl.Execute(&b, promptData{Context: BuildContext(chunks), Question: question}); err != nil {
		return "", err
	}
	return b.String(), nil
}
