package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/trowebvideo/backend/internal/config"
	"github.com/trowebvideo/backend/internal/db"
	"github.com/trowebvideo/backend/internal/handlers"
	"github.com/trowebvideo/backend/internal/httpserver"
	"github.com/trowebvideo/backend/internal/middleware"
	"github.com/trowebvideo/backend/internal/repositories"
)

// serverWriteSlack is added to the embed timeout so a slow provider still
// leaves time to write the fragment.
const serverWriteSlack = 5 * time.Second

// Run bootstraps the trowebvideo service.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: level}))
	slog.SetDefault(logger)

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	deps, err := buildDependencies(store, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	srv := httpserver.New(cfg.AppPort, middleware.RequestLogger(logger)(mux), cfg.EmbedTimeout+serverWriteSlack)

	logger.Info("starting http server", "port", cfg.AppPort, "backend", store.name, "embedTimeout", cfg.EmbedTimeout)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}

func runMigrations(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "up", "status":
	case "down":
		return errors.New("down migrations are not supported")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	if path, ok := cfg.SQLitePath(); ok {
		return migrateSQLite(ctx, path)
	}

	dir, err := resolveDir(cfg.MigrationDir)
	if err != nil {
		return err
	}
	migrations, err := db.LoadMigrations(dir)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := db.NewMigrator(pool)

	if command == "status" {
		statuses, err := migrator.Status(ctx, migrations)
		if err != nil {
			return err
		}
		for _, status := range statuses {
			mark := " "
			if status.Applied {
				mark = "x"
			}
			fmt.Printf("[%s] %s\n", mark, status.Version)
		}
		return nil
	}

	applied, err := migrator.Up(ctx, migrations)
	for _, version := range applied {
		fmt.Printf("applied migration %s\n", version)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("no migrations to apply")
	}
	return nil
}

func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. workbench)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir, err := resolveDir(cfg.SeedDir)
	if err != nil {
		return err
	}

	seedName := args[0]
	if !strings.HasSuffix(seedName, ".sql") {
		seedName += "_seed.sql"
	}
	contents, err := os.ReadFile(filepath.Join(dir, seedName))
	if err != nil {
		return fmt.Errorf("read seed %s: %w", seedName, err)
	}

	if path, ok := cfg.SQLitePath(); ok {
		return seedSQLite(ctx, path, seedName, string(contents))
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	fmt.Printf("applied seed %s\n", seedName)
	return nil
}

// migrateSQLite creates the embedded schema; SQLite has no versioned
// migrations, so status and up are the same operation.
func migrateSQLite(ctx context.Context, path string) error {
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := repositories.EnsureSQLiteSchema(ctx, conn); err != nil {
		return err
	}

	fmt.Printf("sqlite schema ready at %s\n", path)
	return nil
}

func seedSQLite(ctx context.Context, path, seedName, contents string) error {
	conn, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := repositories.EnsureSQLiteSchema(ctx, conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, contents); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedName, err)
	}

	fmt.Printf("applied seed %s\n", seedName)
	return nil
}

func resolveDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return filepath.Join(wd, dir), nil
}
