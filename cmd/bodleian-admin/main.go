// Package main is the entry point for the Bodleian admin CLI.
// This tool provides administrative commands for bootstrapping accounts
// and the catalog without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/config"
	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/logging"
	"github.com/bodleian-io/bodleian/internal/repository"
	"github.com/bodleian-io/bodleian/internal/repository/postgres"
	"github.com/bodleian-io/bodleian/internal/repository/sqlite"
	"github.com/bodleian-io/bodleian/internal/service"
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
		fmt.Printf("Bodleian Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if err := runUser(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "book":
		if err := runBook(os.Args[2:]); err != nil {
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

// runUser handles the "user" subcommands.
func runUser(args []string) error {
	if len(args) < 1 || args[0] != "create-admin" {
		return fmt.Errorf("usage: bodleian-admin user create-admin [flags]")
	}

	fs := flag.NewFlagSet("user create-admin", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	username := fs.String("username", "", "admin username")
	email := fs.String("email", "", "admin email")
	phone := fs.String("phone", "", "admin phone")
	password := fs.String("password", "", "admin password")
	_ = fs.Parse(args[1:])

	if *username == "" || *email == "" || *phone == "" || *password == "" {
		return fmt.Errorf("username, email, phone and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repos, cleanup, logger, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	users := service.NewUserService(repos.Users, logger)
	output, err := users.Register(ctx, service.RegisterInput{
		Username: *username,
		Email:    *email,
		Phone:    *phone,
		Password: *password,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Admin user created:\n")
	fmt.Printf("  ID:       %s\n", output.User.ID)
	fmt.Printf("  Username: %s\n", output.User.Username)
	fmt.Printf("  Email:    %s\n", output.User.Email)
	return nil
}

// runBook handles the "book" subcommands.
func runBook(args []string) error {
	if len(args) < 1 || args[0] != "add" {
		return fmt.Errorf("usage: bodleian-admin book add [flags]")
	}

	fs := flag.NewFlagSet("book add", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	title := fs.String("title", "", "book title")
	author := fs.String("author", "", "book author")
	isbn := fs.String("isbn", "", "book ISBN")
	genre := fs.String("genre", "", "book genre (optional)")
	published := fs.String("published", "", "publication date (YYYY-MM-DD)")
	copies := fs.Int("copies", 1, "number of copies")
	_ = fs.Parse(args[1:])

	publishedDate := time.Now().UTC()
	if *published != "" {
		t, err := time.Parse("2006-01-02", *published)
		if err != nil {
			return fmt.Errorf("invalid published date %q: %w", *published, err)
		}
		publishedDate = t
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repos, cleanup, logger, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	catalog := service.NewCatalogService(repos.Books, repos.Users, repos.Transactions, 0, logger)
	output, err := catalog.AddBook(ctx, service.AddBookInput{
		Title:         *title,
		Author:        *author,
		ISBN:          *isbn,
		Genre:         *genre,
		PublishedDate: publishedDate,
		TotalCopies:   *copies,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Book added:\n")
	fmt.Printf("  ID:     %s\n", output.Book.ID)
	fmt.Printf("  Title:  %s\n", output.Book.Title)
	fmt.Printf("  ISBN:   %s\n", output.Book.ISBN)
	fmt.Printf("  Copies: %d\n", output.Book.TotalCopies)
	return nil
}

// setup loads configuration and opens the configured database backend.
func setup(ctx context.Context, configPath string) (*repository.Repositories, func(), zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	// Keep CLI output readable; errors still go to stderr.
	logCfg := cfg.Logging
	logCfg.Level = "error"
	logCfg.Format = "console"
	logger := logging.New(logCfg)

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, nil, logger, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, logger, err
		}
		return sqlite.NewRepositories(db), func() { _ = db.Close() }, logger, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, logger, err
		}
		return postgres.NewRepositories(db), func() { _ = db.Close() }, logger, nil

	default:
		return nil, nil, logger, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func printUsage() {
	fmt.Println(`Bodleian Admin CLI

Usage:
  bodleian-admin <command> [arguments]

Commands:
  user create-admin   Create an administrator account
  book add            Add a book to the catalog
  version             Print version information
  help                Show this help message

Examples:
  bodleian-admin user create-admin --username admin --email admin@example.com --phone 555-0100 --password secret123
  bodleian-admin book add --title "The Go Programming Language" --author "Donovan" --isbn 9780134190440 --copies 3

Use "bodleian-admin <command> --help" for more information about a command.`)
}
