// Package main is the entry point for the Bodleian database migration tool.
// It applies schema migrations for the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bodleian-io/bodleian/internal/config"
	"github.com/bodleian-io/bodleian/internal/logging"
	"github.com/bodleian-io/bodleian/internal/repository/postgres"
	"github.com/bodleian-io/bodleian/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Bodleian Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		if err := runUp(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runUp applies all pending migrations.
func runUp(args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	fmt.Println("Migrations applied")
	return nil
}

func printUsage() {
	fmt.Println(`Bodleian Migration Tool

Usage:
  bodleian-migrate <command> [arguments]

Commands:
  up          Run all pending migrations
  version     Print version information
  help        Show this help message

Examples:
  bodleian-migrate up
  bodleian-migrate up --config ./configs/config.yaml`)
}
