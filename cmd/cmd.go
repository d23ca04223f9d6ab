// Package cmd provides the CLI commands for CargoTrail.
//
// Commands:
//   - serve: HTTP API server (chat, search, shipment queries)
//   - ingest: index the documentation corpus into the vector store
//   - version, help
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cargotrail/cargotrail/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the CargoTrail CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("CargoTrail - AI logistics assistant backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cargotrail serve [addr]        Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  cargotrail ingest [--dir DIR]  Index documentation into the vector store")
	fmt.Println("  cargotrail --version           Show version information")
	fmt.Println("  cargotrail --help              Show this help")
	fmt.Println()
	fmt.Println("Ingest flags:")
	fmt.Println("  --dir DIR          Directory to index (default: docs_dir from config)")
	fmt.Println("  --reset            Clear the index before ingesting")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for the gemini provider")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* config")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
