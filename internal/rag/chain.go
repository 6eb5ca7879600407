package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.4

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Stage is a step of answering one query.
type Stage int

const (
	StageReady Stage = iota
	StageRetrieving
	StageGenerating
	StageAnswered
)

func (s Stage) String() string {
	switch s {
	case StageReady:
		return "ready"
	case StageRetrieving:
		return "retrieving"
	case StageGenerating:
		return "generating"
	case StageAnswered:
		return "answered"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithStageObserver registers fn to be called on every stage transition.
func WithStageObserver(fn func(Stage)) ChainOption {
	return func(c *Chain) { c.observe = fn }
}

// Chain answers questions from retrieved context.
type Chain struct {
	retriever   *Retriever
	generator   Generator
	temperature float64
	logger      *zap.Logger
	observe     func(Stage)
}

// NewChain creates an answer chain. logger may be nil.
func NewChain(retriever *Retriever, generator Generator, temperature float64, logger *zap.Logger, opts ...ChainOption) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{
		retriever:   retriever,
		generator:   generator,
		temperature: temperature,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) enter(s Stage) {
	if c.observe != nil {
		c.observe(s)
	}
}

// Answer retrieves context for query and generates an answer grounded on it.
// The chain is back at StageReady when Answer returns, whether or not it failed.
func (c *Chain) Answer(ctx context.Context, query string) (*models.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	defer c.enter(StageReady)
	start := time.Now()

	c.enter(StageRetrieving)
	hits, err := c.retriever.Retrieve(ctx, query)
	if err != nil {
		c.logger.Error("retrieval failed", zap.Error(err))
		return nil, err
	}
	sources := models.Chunks(hits)

	c.enter(StageGenerating)
	prompt, err := BuildPrompt(sources, query)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	c.logger.Debug("generating", zap.Int("chunks", len(sources)), zap.Int("prompt_len", len(prompt)))
	text, err := c.generator.Generate(ctx, prompt, c.temperature)
	if err != nil {
		c.logger.Error("generation failed", zap.Error(err))
		return nil, &ServiceError{Op: "generate", Err: err}
	}

	c.enter(StageAnswered)
	c.logger.Info("answered",
		zap.Int("sources", len(sources)),
		zap.Duration("took", time.Since(start)),
	)
	return &models.Answer{Query: query, Text: text, Sources: sources}, nil
}
