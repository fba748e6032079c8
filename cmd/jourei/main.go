// Package main is the jourei CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/cli"
	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/internal/extract"
	"github.com/hyperjump/jourei/internal/indexer"
	"github.com/hyperjump/jourei/internal/keyword"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/server"
	"github.com/hyperjump/jourei/internal/watcher"
	"github.com/hyperjump/jourei/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/jourei/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present; when neither exists the built-in defaults are
// used with paths relative to the current directory.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for _, candidate := range []string{filepath.Join(cwd, "config.yaml"), defaultConfigPath} {
		if _, statErr := os.Stat(candidate); statErr == nil {
			cfg, loadErr := config.Load(candidate)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, candidate, nil
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	config.ExpandPaths(cfg, cwd)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func main() {
	// API keys may live in .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "server":
		runServer(args)
	case "structure":
		runStructure(args)
	case "index":
		runIndex(args)
	case "ask":
		runAsk(args)
	case "lookup":
		runLookup(args)
	case "status":
		runStatus(args)
	case "extract":
		runExtract(args)
	case "version", "--version", "-v":
		fmt.Printf("jourei version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger. Failures exit the process.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger
}

func parseFormat(s string) cli.OutputFormat {
	f, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return f
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "rebuild the index when the raw source file changes")
	_ = fs.Parse(args)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if n, err := components.Store.Count(ctx); err == nil && n == 0 {
		logger.Warn("Vector store is empty; run 'jourei index' first", zap.String("source", cfg.Source.RawPath))
	}

	srvOpts := []server.Option{server.WithLogger(logger)}
	if components.Records != nil {
		srvOpts = append(srvOpts, server.WithRecords(components.Records))
	}
	srv := server.NewServer(components.Engine, components.Store, cfg, srvOpts...)

	if *watch {
		w, err := watcher.NewWatcher([]string{cfg.Source.RawPath}, func(path string) {
			err := srv.Rebuild(ctx, func(ctx context.Context) error {
				rep, err := components.Pipeline.Run(ctx, true)
				if err != nil {
					return err
				}
				logger.Info("Source re-indexed",
					zap.String("path", path),
					zap.Int("records", rep.Records),
					zap.Int("chunks", rep.Index.CommittedChunks))
				return nil
			})
			if err != nil && !errors.Is(err, server.ErrRebuildInProgress) {
				logger.Warn("Watch rebuild failed", zap.String("path", path), zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("Watching source", zap.Strings("files", w.Files()))
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runStructure(args []string) {
	fs := flag.NewFlagSet("structure", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()

	sr, err := indexer.StructureSource(context.Background(), cfg.Source, logger)
	if err != nil {
		fail("Structuring failed: %v", err)
	}
	out := &cli.StructureOutput{
		Source:         cfg.Source.RawPath,
		FormattedPath:  cfg.Source.FormattedPath,
		StructuredPath: cfg.Source.StructuredPath,
		Records:        len(sr.Records),
		Parse:          sr.Stats,
	}
	if err := cli.WriteStructure(os.Stdout, out, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	clearStore := fs.Bool("clear", false, "remove all stored chunks before indexing")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()

	rep, err := components.Pipeline.Run(ctx, *clearStore)
	if rep != nil {
		_ = cli.WriteReport(os.Stdout, rep, format)
	}
	if err != nil {
		fail("Indexing failed: %v", err)
	}
}

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty "" = answer directly without a server)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: jourei ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(args))
	format := parseFormat(*outputFormat)

	question := joinArgs(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}

	var res *models.QueryResult
	if *serverURL != "" {
		var err error
		res, err = newAPIClient(*serverURL).Ask(context.Background(), question)
		if err != nil {
			fail("Ask failed: %v", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger, true)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		res, err = components.Engine.Ask(ctx, question)
		if err != nil {
			fail("Ask failed: %v", err)
		}
	}
	if err := cli.WriteAnswer(os.Stdout, res, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runLookup(args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty "" = read the record index directly)`)
	limit := fs.Int("limit", 10, "number of records")
	fuzzy := fs.Int("fuzzy", 0, "edit distance for typo-tolerant matching (0, 1 or 2)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: jourei lookup [flags] <terms>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(args))
	format := parseFormat(*outputFormat)

	terms := joinArgs(fs.Args())
	if terms == "" {
		fs.Usage()
		os.Exit(1)
	}

	var out *cli.RecordsOutput
	if *serverURL != "" {
		var err error
		out, err = newAPIClient(*serverURL).Lookup(context.Background(), terms, *limit, *fuzzy)
		if err != nil {
			fail("Lookup failed: %v", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		idx, err := keyword.Open(cfg.Storage.BleveIndexPath)
		if err != nil {
			fail("Failed to open record index: %v", err)
		}
		defer idx.Close()
		out, err = lookupRecords(context.Background(), idx, terms, *limit, *fuzzy)
		if err != nil {
			fail("Lookup failed: %v", err)
		}
	}
	if err := cli.WriteRecords(os.Stdout, out, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// lookupRecords searches idx and attaches a spelling suggestion when nothing matched.
func lookupRecords(ctx context.Context, idx server.RecordSearcher, terms string, limit, fuzzy int) (*cli.RecordsOutput, error) {
	var opts *keyword.SearchOptions
	if fuzzy > 0 {
		opts = &keyword.SearchOptions{Fuzziness: fuzzy}
	}
	hits, err := idx.Search(ctx, terms, limit, opts)
	if err != nil {
		return nil, err
	}
	out := &cli.RecordsOutput{Query: terms, Hits: hits}
	if len(hits) == 0 {
		if dict, err := idx.Terms(); err == nil {
			out.Suggestion, _ = keyword.Suggest(terms, dict, 2)
		}
	}
	return out, nil
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty "" = read storage directly)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	var st *models.Status
	if *serverURL != "" {
		var err error
		st, err = newAPIClient(*serverURL).Status(context.Background())
		if err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger, false)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		st, err = server.CollectStatus(ctx, cfg, components.Store, components.Records)
		if err != nil {
			fail("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	output := fs.String("o", "", "output file (default: stdout)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: jourei extract [-o raw.txt] <file.pdf|file.docx|file.txt>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(args))
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	src := fs.Arg(0)
	if *output == "" {
		text, err := extract.ExtractText(src)
		if err != nil {
			fail("Extraction failed: %v", err)
		}
		fmt.Print(text)
		return
	}
	n, err := extract.ExtractToFile(src, *output)
	if err != nil {
		fail("Extraction failed: %v", err)
	}
	fmt.Printf("Extracted %d bytes from %s to %s\n", n, src, *output)
}

// joinArgs joins positional args with spaces so multi-word input works with or
// without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves flags that appear after the positional arguments to the
// front, since the flag package stops at the first non-flag argument.
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

func printUsage() {
	fmt.Println(`jourei - Question answering over organizational bylaws

Usage:
  jourei server [flags]             Start the HTTP server
  jourei structure [flags]          Normalize and structure the raw bylaws text
  jourei index [flags]              Structure, chunk, embed and store the bylaws
  jourei ask [flags] <question>     Ask a question
  jourei lookup [flags] <terms>     Keyword lookup over structured records
  jourei status [flags]             Show store and configuration status
  jourei extract [-o out] <file>    Extract plain text from a PDF, DOCX or text file
  jourei version                    Show version
  jourei help                       Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, then /usr/local/etc/jourei/config.yaml)
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging
  --watch            Rebuild the index (clear + re-index) when the raw source changes

Index Flags:
  --clear            Remove stored chunks first; without it entries are added on top and duplicated

Ask / Lookup / Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to work without a server.
  --limit int        Lookup only: number of records (default: 10)
  --fuzzy int        Lookup only: typo tolerance as edit distance (default: 0)

Examples:
  jourei extract -o bylaws_raw.txt bylaws.pdf
  jourei index --clear
  jourei server --watch
  jourei ask "How are officers elected?"
  jourei ask --server "" --output json "What is quorum?"
  jourei lookup --fuzzy 1 treasurer
  jourei status`)
}
