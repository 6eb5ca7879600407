package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyCorpus is returned when ingestion yields no chunks at all.
var ErrEmptyCorpus = errors.New("no chunks were produced from the corpus")

// PartitionError records a file that could not be partitioned.
type PartitionError struct {
	Path string
	Err  error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s: %v", e.Path, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// Partitioner converts one document into raw elements.
type Partitioner interface {
	Partition(path string) ([]models.RawElement, error)
}

// State is a step of the ingestion state machine.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StatePartitioning
	StateChunking
	StateIndexing
	StateReady
	StateEmptyCorpus
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StatePartitioning:
		return "partitioning"
	case StateChunking:
		return "chunking"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateEmptyCorpus:
		return "empty_corpus"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FileResult is the outcome for one discovered file: its chunks or the error that abandoned it.
type FileResult struct {
	Path   string
	Chunks []models.Chunk
	Err    error
}

// Report aggregates one ingestion run.
type Report struct {
	State  State
	Files  []FileResult
	Failed int
	Chunks []models.Chunk
}

// Pipeline runs discovery, partitioning and chunking over a folder.
type Pipeline struct {
	partitioner Partitioner
	assembler   *Assembler
	exts        []string
	logger      *zap.Logger
	observe     func(State)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(State)) PipelineOption {
	return func(p *Pipeline) { p.observe = fn }
}

// NewPipeline creates an ingestion pipeline. logger may be nil.
func NewPipeline(partitioner Partitioner, assembler *Assembler, exts []string, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		partitioner: partitioner,
		assembler:   assembler,
		exts:        exts,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest processes every supported file under root, one at a time. A file that fails
// to partition is recorded and skipped. When no chunks are produced, including when
// root does not exist, the report ends in StateEmptyCorpus and ErrEmptyCorpus is
// returned alongside it.
func (p *Pipeline) Ingest(ctx context.Context, root string) (*Report, error) {
	report := &Report{State: StateIdle}
	p.transition(report, StateIdle)

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		p.transition(report, StateEmptyCorpus)
		p.logger.Warn("data path does not exist; nothing to index", zap.String("root", root))
		return report, fmt.Errorf("data path %s: %w", root, ErrEmptyCorpus)
	}
	if err != nil {
		return report, fmt.Errorf("data path: %w", err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("data path is not a directory: %s", root)
	}

	p.transition(report, StateDiscovering)
	for path := range Discover(root, p.exts, p.logger) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := p.ingestFile(report, path)
		report.Files = append(report.Files, res)
		if res.Err != nil {
			report.Failed++
			p.logger.Error("failed to partition file", zap.String("path", path), zap.Error(res.Err))
		} else {
			report.Chunks = append(report.Chunks, res.Chunks...)
			p.logger.Info("file ingested", zap.String("path", path), zap.Int("chunks", len(res.Chunks)))
		}
		p.transition(report, StateDiscovering)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if len(report.Chunks) == 0 {
		p.transition(report, StateEmptyCorpus)
		p.logger.Warn("no chunks produced; nothing to index",
			zap.String("root", root), zap.Int("files", len(report.Files)), zap.Int("failed", report.Failed))
		return report, ErrEmptyCorpus
	}
	p.transition(report, StateChunking)
	p.logger.Info("ingestion finished",
		zap.Int("files", len(report.Files)), zap.Int("failed", report.Failed), zap.Int("chunks", len(report.Chunks)))
	return report, nil
}

func (p *Pipeline) ingestFile(report *Report, path string) FileResult {
	p.transition(report, StatePartitioning)
	elements, err := p.partition(path)
	if err != nil {
		return FileResult{Path: path, Err: &PartitionError{Path: path, Err: err}}
	}
	p.transition(report, StateChunking)
	chunks := p.assembler.Assemble(path, elements)
	if len(chunks) == 0 {
		p.logger.Debug("file produced no chunks", zap.String("path", path))
	}
	return FileResult{Path: path, Chunks: chunks}
}

// partition shields the run from a partitioner that panics on one file.
func (p *Pipeline) partition(path string) (elements []models.RawElement, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("partitioner panicked: %v", r)
		}
	}()
	return p.partitioner.Partition(path)
}

func (p *Pipeline) transition(report *Report, s State) {
	report.State = s
	if p.observe != nil {
		p.observe(s)
	}
}
