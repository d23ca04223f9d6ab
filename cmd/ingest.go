package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cargotrail/cargotrail/internal/app"
	"github.com/cargotrail/cargotrail/internal/config"
	"github.com/cargotrail/cargotrail/internal/log"
)

// ingestOptions holds the parsed ingest command flags.
type ingestOptions struct {
	dir   string
	reset bool
}

// parseIngestArgs parses the ingest command flags. An empty dir means
// "use docs_dir from config".
func parseIngestArgs(args []string) (ingestOptions, error) {
	var opts ingestOptions

	ingestFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFlags.SetOutput(os.Stderr)
	ingestFlags.StringVar(&opts.dir, "dir", "", "Directory to index (default: docs_dir from config)")
	ingestFlags.BoolVar(&opts.reset, "reset", false, "Clear the index before ingesting")

	if err := ingestFlags.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing ingest flags: %w", err)
	}
	return opts, nil
}

// runIngest indexes a documentation directory into the vector store.
// Without --reset, ingestion only runs when the index is empty; with
// --reset, the index is cleared and rebuilt from the directory.
func runIngest(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	opts, err := parseIngestArgs(args)
	if err != nil {
		return err
	}
	if opts.dir == "" {
		opts.dir = cfg.DocsDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if opts.reset {
		if err := a.Index.Clear(ctx); err != nil {
			return fmt.Errorf("clearing index: %w", err)
		}
		res, err := a.Ingestor.IngestDirectory(ctx, opts.dir)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", opts.dir, err)
		}
		printIngestResult(opts.dir, res.Files, res.Chunks, res.Skipped, res.Failed)
		return nil
	}

	res, err := a.Ingestor.EnsureCorpus(ctx, opts.dir)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", opts.dir, err)
	}
	if res.Files == 0 && !res.Fallback {
		count, err := a.Index.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting chunks: %w", err)
		}
		fmt.Printf("Index already populated (%d chunks). Use --reset to re-ingest.\n", count)
		return nil
	}
	if res.Fallback {
		fmt.Printf("No documents found in %s; indexed the built-in corpus (%d chunks).\n", opts.dir, res.Chunks)
		return nil
	}
	printIngestResult(opts.dir, res.Files, res.Chunks, res.Skipped, res.Failed)
	return nil
}

func printIngestResult(dir string, files, chunks, skipped, failed int) {
	fmt.Printf("Ingested %s: %d file(s), %d chunk(s)", dir, files, chunks)
	if skipped > 0 {
		fmt.Printf(", %d skipped", skipped)
	}
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
}
