// Command seed imports a directory of snippet Markdown files into a database
// backend. Snippets already present in the database are skipped, so it is
// safe to run again after adding files.
//
//	seed -from _snippets -backend sqlite -db data/snippets.db
//	seed -backend mongo -mongo-uri mongodb://localhost:27017
//
// Flags default to the same environment variables the server reads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/snippet-vault/internal/config"
	"github.com/sakif/snippet-vault/internal/repository/filesystem"
	"github.com/sakif/snippet-vault/internal/server"
	"github.com/sakif/snippet-vault/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("seed: reading .env: %v", err)
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("seed: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(out)
	from := fs.String("from", envOr("CONTENT_DIR", "_snippets"), "Directory of <category>/<slug>.md files")
	backend := fs.String("backend", envOr("STORE_BACKEND", config.BackendSQLite), "Destination backend: sqlite or mongo")
	dbPath := fs.String("db", envOr("DB_PATH", "data/snippets.db"), "SQLite database file")
	mongoURI := fs.String("mongo-uri", os.Getenv("MONGODB_URI"), "MongoDB connection string")
	mongoDB := fs.String("mongo-db", envOr("MONGODB_DATABASE", "snippet_vault"), "MongoDB database name")
	timeout := fs.Duration("timeout", 5*time.Minute, "Give up after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *backend != config.BackendSQLite && *backend != config.BackendMongo {
		return fmt.Errorf("backend must be sqlite or mongo, got %q", *backend)
	}
	if *backend == config.BackendMongo && *mongoURI == "" {
		return errors.New("-mongo-uri (or MONGODB_URI) is required for the mongo backend")
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	// filesystem.New creates a missing root; a typo must not import nothing.
	info, err := os.Stat(*from)
	if err != nil {
		return fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", *from)
	}

	logger := slog.New(slog.NewTextHandler(out, nil))

	src, err := filesystem.New(*from, logger)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *from, err)
	}
	defer src.Close()

	dst, err := server.OpenStore(ctx, &config.Config{
		StoreBackend:  *backend,
		DBPath:        *dbPath,
		MongoURI:      *mongoURI,
		MongoDatabase: *mongoDB,
	}, logger)
	if err != nil {
		return err
	}
	defer dst.Close()

	res, err := service.NewImporter(src, dst, logger).Import(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "imported %d snippets, skipped %d\n", res.Imported, res.Skipped)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
