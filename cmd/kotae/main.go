// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/repl"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	command := "chat"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	c := &commandEnv{stdin: stdin, stdout: stdout, stderr: stderr}
	switch command {
	case "chat":
		return c.runChat(args)
	case "ingest":
		return c.runIngest(args)
	case "ask":
		return c.runAsk(args)
	case "serve":
		return c.runServe(args)
	case "grep":
		return c.runGrep(args)
	case "status":
		return c.runStatus(args)
	case "show":
		return c.runShow(args)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "kotae version %s\n", version)
		return exitOK
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return exitUsage
	}
}

type commandEnv struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// commonFlags are accepted by every subcommand that touches the index.
type commonFlags struct {
	configPath string
	debug      bool
	dataPath   string
}

func (c *commandEnv) newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", defaultConfigPath, "config file path")
	fs.BoolVar(&cf.debug, "debug", false, "enable debug logging")
	fs.StringVar(&cf.dataPath, "data", "", "override data_path from the config")
	return fs, cf
}

// loadConfig loads the config file, or defaults when the default path does not exist,
// then applies flag overrides.
func loadConfig(cf *commonFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cf.configPath == defaultConfigPath {
		cfg, err = config.LoadOrDefault(cf.configPath)
	} else {
		cfg, err = config.Load(cf.configPath)
	}
	if err != nil {
		return nil, err
	}
	if cf.dataPath != "" {
		cfg.DataPath = cf.dataPath
	}
	cfg.Debug = cfg.Debug || cf.debug
	return cfg, nil
}

// app bundles the components shared by subcommands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	embedder embedding.Embedder
	store    *vectorstore.LocalStore
}

func (c *commandEnv) newApp(cf *commonFlags) (*app, error) {
	cfg, err := loadConfig(cf)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := utils.SetupLogger(cfg.Debug)
	logger.Debug("config loaded",
		zap.String("config_path", cf.configPath),
		zap.String("data_path", cfg.DataPath),
		zap.String("persist_directory", cfg.Storage.PersistDirectory),
	)
	emb, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &app{cfg: cfg, logger: logger, embedder: emb}, nil
}

func (a *app) storeOptions() vectorstore.Options {
	return vectorstore.OptionsFromConfig(a.cfg, a.embedder.Dimensions(), a.logger)
}

// openStore reopens the persisted index.
func (a *app) openStore(ctx context.Context) error {
	store, err := vectorstore.Open(ctx, a.cfg.Storage.PersistDirectory, a.storeOptions())
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

// ingest builds a fresh index from the data path. ErrEmptyCorpus is returned
// before any index is created.
func (a *app) ingest(ctx context.Context) (*indexer.Report, error) {
	pipeline := indexer.NewPipeline(
		extract.NewPartitioner(),
		indexer.NewAssembler(a.cfg.Chunking.ChunkSize, a.cfg.Chunking.Overlap()),
		a.cfg.Ingest.Extensions,
		a.logger,
		indexer.WithStateObserver(func(s indexer.State) {
			a.logger.Debug("ingestion state", zap.Stringer("state", s))
		}),
	)
	report, err := pipeline.Ingest(ctx, a.cfg.DataPath)
	if err != nil {
		return report, err
	}

	store, err := vectorstore.Create(ctx, a.cfg.Storage.PersistDirectory, a.storeOptions())
	if err != nil {
		return report, err
	}
	a.store = store
	builder := indexer.NewBuilder(a.embedder, store, a.logger, indexer.WithBatchSize(a.cfg.Embedding.BatchSize))
	if _, err := builder.BuildReport(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

func (a *app) chain() (*rag.Chain, error) {
	retriever, err := rag.NewRetriever(a.embedder, a.store, a.cfg.Retrieval.K)
	if err != nil {
		return nil, err
	}
	generator, err := llm.New(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}
	return rag.NewChain(retriever, generator, a.cfg.LLM.Temp(), a.logger,
		rag.WithStageObserver(func(s rag.Stage) {
			a.logger.Debug("query stage", zap.Stringer("stage", s))
		}),
	), nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close index failed", zap.Error(err))
		}
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	_ = a.logger.Sync()
}

func (c *commandEnv) fail(format string, args ...any) int {
	fmt.Fprintf(c.stderr, format+"\n", args...)
	return exitError
}

// ingestOrExit runs ingestion and maps its failures to exit codes.
func (c *commandEnv) ingestOrExit(ctx context.Context, a *app) (*indexer.Report, int) {
	report, err := a.ingest(ctx)
	switch {
	case err == nil:
		return report, exitOK
	case errors.Is(err, indexer.ErrEmptyCorpus):
		fmt.Fprintf(c.stderr, "No documents found in %s\n", a.cfg.DataPath)
		return report, exitError
	default:
		return report, c.fail("Indexing failed: %v", err)
	}
}

func (c *commandEnv) runChat(args []string) int {
	fs, cf := c.newFlagSet("chat")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, code := c.ingestOrExit(ctx, a); code != exitOK {
		return code
	}
	chain, err := a.chain()
	if err != nil {
		return c.fail("%v", err)
	}
	styled := false
	if f, ok := c.stdout.(*os.File); ok {
		styled = cli.IsTerminal(f)
	}
	loop := repl.NewWithPrinter(chain, c.stdin, cli.NewPrinter(c.stdout, styled), a.logger)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return c.fail("%v", err)
	}
	return exitOK
}

func (c *commandEnv) runIngest(args []string) int {
	fs, cf := c.newFlagSet("ingest")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, code := c.ingestOrExit(ctx, a)
	if code != exitOK {
		return code
	}
	fmt.Fprintf(c.stdout, "Indexed %d chunks from %d files (%d failed) in %s\n",
		len(report.Chunks), len(report.Files)-report.Failed, report.Failed, time.Since(start).Round(time.Millisecond))
	return exitOK
}

func (c *commandEnv) runAsk(args []string) int {
	fs, cf := c.newFlagSet("ask")
	output := fs.String("output", "text", "output format: text or json")
	serverURL := fs.String("server", "", "ask a running kotae server instead of opening the index")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return exitUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return c.fail("%v", err)
	}
	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Fprintln(c.stderr, "Usage: kotae ask [flags] <question>")
		return exitUsage
	}
	printer := cli.NewPrinter(c.stdout, false)

	if *serverURL != "" {
		answer, err := askViaHTTP(*serverURL, query)
		if err != nil {
			return c.fail("Ask failed: %v", err)
		}
		if err := printer.WriteAnswer(answer, format); err != nil {
			return c.fail("Output failed: %v", err)
		}
		return exitOK
	}

	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()
	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return c.fail("Failed to open index: %v", err)
	}
	chain, err := a.chain()
	if err != nil {
		return c.fail("%v", err)
	}
	answer, err := chain.Answer(ctx, query)
	if err != nil {
		return c.fail("Error: %v", err)
	}
	if err := printer.WriteAnswer(answer, format); err != nil {
		return c.fail("Output failed: %v", err)
	}
	return exitOK
}

func (c *commandEnv) runServe(args []string) int {
	fs, cf := c.newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.openStore(ctx); err != nil {
		return c.fail("Failed to open index: %v", err)
	}
	chain, err := a.chain()
	if err != nil {
		return c.fail("%v", err)
	}

	srv := server.NewServer(chain, a.store, a.cfg, a.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return c.fail("Server failed: %v", err)
	case <-ctx.Done():
	}
	a.logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
	return exitOK
}

func (c *commandEnv) runGrep(args []string) int {
	fs, cf := c.newFlagSet("grep")
	limit := fs.Int("limit", 10, "maximum number of chunks")
	fuzzy := fs.Bool("fuzzy", false, "match terms within one edit")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return exitUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return c.fail("%v", err)
	}
	terms := joinArgs(fs.Args())
	if terms == "" {
		fmt.Fprintln(c.stderr, "Usage: kotae grep [flags] <terms>")
		return exitUsage
	}

	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()
	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return c.fail("Failed to open index: %v", err)
	}
	opts := &keyword.SearchOptions{StemBoost: 2, FuzzyEnabled: *fuzzy}
	hits, err := a.store.Lookup(ctx, terms, *limit, opts)
	if err != nil {
		return c.fail("Lookup failed: %v", err)
	}
	// retry with typo tolerance when exact terms found nothing
	if len(hits) == 0 && !*fuzzy {
		opts.FuzzyEnabled = true
		if fuzzyHits, err := a.store.Lookup(ctx, terms, *limit, opts); err == nil {
			hits = fuzzyHits
		}
	}
	if err := cli.NewPrinter(c.stdout, false).WriteChunks(terms, hits, format); err != nil {
		return c.fail("Output failed: %v", err)
	}
	return exitOK
}

func (c *commandEnv) runStatus(args []string) int {
	fs, cf := c.newFlagSet("status")
	output := fs.String("output", "text", "output format: text or json")
	serverURL := fs.String("server", "", "query a running kotae server instead of opening the index")
	documents := fs.Bool("documents", false, "list ingested documents")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return c.fail("%v", err)
	}
	printer := cli.NewPrinter(c.stdout, false)

	if *serverURL != "" {
		st, err := statusViaHTTP(*serverURL)
		if err != nil {
			return c.fail("Status failed: %v", err)
		}
		if err := printer.WriteStatus(st, format); err != nil {
			return c.fail("Output failed: %v", err)
		}
		return exitOK
	}

	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()
	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return c.fail("Failed to open index: %v", err)
	}
	st, err := a.store.Stats(ctx)
	if err != nil {
		return c.fail("Status failed: %v", err)
	}
	summary := a.cfg.Summary()
	st.Config = &summary
	if *documents {
		if st.Files, err = a.store.Documents(ctx, 0, -1); err != nil {
			return c.fail("Status failed: %v", err)
		}
	}
	if err := printer.WriteStatus(&st, format); err != nil {
		return c.fail("Output failed: %v", err)
	}
	return exitOK
}

func (c *commandEnv) runShow(args []string) int {
	fs, cf := c.newFlagSet("show")
	output := fs.String("output", "text", "output format: text or json")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return exitUsage
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return c.fail("%v", err)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: kotae show [flags] <path>")
		return exitUsage
	}

	a, err := c.newApp(cf)
	if err != nil {
		return c.fail("%v", err)
	}
	defer a.Close()
	ctx := context.Background()
	if err := a.openStore(ctx); err != nil {
		return c.fail("Failed to open index: %v", err)
	}
	for _, path := range sourceCandidates(fs.Arg(0), a.cfg.DataPath) {
		doc, chunks, err := a.store.Source(ctx, path)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return c.fail("Show failed: %v", err)
		}
		if err := cli.NewPrinter(c.stdout, false).WriteSource(doc, chunks, format); err != nil {
			return c.fail("Output failed: %v", err)
		}
		return exitOK
	}
	return c.fail("No ingested document at %s", fs.Arg(0))
}

// sourceCandidates lists the stored paths arg may refer to: as given, relative to
// the data path, then relative to the working directory.
func sourceCandidates(arg, dataPath string) []string {
	out := []string{arg}
	if filepath.IsAbs(arg) {
		return out
	}
	out = append(out, filepath.Join(dataPath, arg))
	if abs, err := filepath.Abs(arg); err == nil {
		out = append(out, abs)
	}
	return out
}

// joinArgs joins positional args with spaces so multi-word input works with or
// without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that appear after the positional text to the front so
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `kotae - ask questions about a folder of documents

Usage:
  kotae [chat] [flags]            Ingest data_path, build the index and start the prompt
  kotae ingest [flags]            Ingest data_path and build the index only
  kotae ask [flags] <question>    Answer one question from the persisted index
  kotae serve [flags]             Serve the HTTP API over the persisted index
  kotae grep [flags] <terms>      Find chunks containing literal terms
  kotae status [flags]            Show index statistics
  kotae show [flags] <path>       Print the stored chunks of one document
  kotae version                   Show version
  kotae help                      Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, defaults when missing)
  --debug            Enable debug logging
  --data string      Override data_path

Ask Flags:
  --output string    Output format: text or json (default: text)
  --server string    URL of a running kotae server (default: open the index directly)

Grep Flags:
  --limit int        Maximum number of chunks (default: 10)
  --fuzzy            Match terms within one edit
  --output string    Output format: text or json (default: text)

Status Flags:
  --output string    Output format: text or json (default: text)
  --server string    URL of a running kotae server
  --documents        List ingested documents

Show Flags:
  --output string    Output format: text or json (default: text)

A .env file in the working directory is loaded before the config, so API keys
named by api_key_env can live there.

Examples:
  kotae --data ./docs
  kotae ask "What does the onboarding guide say about laptops?"
  kotae grep --limit 5 invoice
  kotae status --documents
  kotae show guide.md`)
}
