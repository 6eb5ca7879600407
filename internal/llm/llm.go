// Package llm generates text from a prompt through a language model backend.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is what a backend returns: exactly one of TextResult or RawResult.
type Result interface {
	isResult()
}

// TextResult is plain generated text.
type TextResult struct {
	Text string
}

// RawResult is a backend payload that carried no text field.
type RawResult struct {
	Value any
}

func (TextResult) isResult() {}
func (RawResult) isResult()  {}

// Resolve turns a result into text. Raw values are rendered as JSON when possible.
func Resolve(r Result) string {
	switch v := r.(type) {
	case TextResult:
		return v.Text
	case *TextResult:
		return v.Text
	case RawResult:
		return stringify(v.Value)
	case *RawResult:
		return stringify(v.Value)
	default:
		return ""
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// Backend completes a prompt with a language model.
type Backend interface {
	Complete(ctx context.Context, prompt string, temperature float64) (Result, error)
}

// Generator resolves backend results to text so callers only handle strings.
type Generator struct {
	backend Backend
}

// NewGenerator wraps backend.
func NewGenerator(backend Backend) *Generator {
	return &Generator{backend: backend}
}

// Generate completes prompt at the given temperature and returns trimmed text.
func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	res, err := g.backend.Complete(ctx, prompt, temperature)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", fmt.Errorf("backend returned no result")
	}
	return strings.TrimSpace(Resolve(res)), nil
}
