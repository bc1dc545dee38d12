package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	migrationAttempts    = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

// Postgres error codes worth another attempt under serializable isolation.
var transientCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// Migration is one versioned SQL file. Files apply in lexical order of
// their names, which double as versions.
type Migration struct {
	Version string
	SQL     string
}

// MigrationStatus pairs a migration version with whether it was applied.
type MigrationStatus struct {
	Version string
	Applied bool
}

// LoadMigrations reads every .sql file in dir, sorted by name.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: entry.Name(), SQL: string(contents)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// Migrator applies migrations to PostgreSQL and records each applied version
// in schema_migrations.
type Migrator struct {
	pool *pgxpool.Pool
}

// NewMigrator constructs a migrator over pool.
func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

// Status reports which of the migrations have been applied.
func (m *Migrator) Status(ctx context.Context, migrations []Migration) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, migration := range migrations {
		_, ok := applied[migration.Version]
		statuses = append(statuses, MigrationStatus{Version: migration.Version, Applied: ok})
	}
	return statuses, nil
}

// Up applies every pending migration and returns the versions it applied.
func (m *Migrator) Up(ctx context.Context, migrations []Migration) ([]string, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, migration := range migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}
		if err := m.applyWithRetry(ctx, migration); err != nil {
			return done, err
		}
		done = append(done, migration.Version)
	}
	return done, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]struct{}, error) {
	if _, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	rows, err := m.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}

	applied := make(map[string]struct{}, len(versions))
	for _, version := range versions {
		applied[version] = struct{}{}
	}
	return applied, nil
}

func (m *Migrator) applyWithRetry(ctx context.Context, migration Migration) error {
	var err error
	for attempt := 0; attempt < migrationAttempts; attempt++ {
		if attempt > 0 {
			if sleepErr := sleepContext(ctx, migrationBackoff(attempt)); sleepErr != nil {
				return sleepErr
			}
		}

		err = pgx.BeginTxFunc(ctx, m.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migration.SQL); err != nil {
				return fmt.Errorf("apply migration %s: %w", migration.Version, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, migration.Version); err != nil {
				return fmt.Errorf("record migration %s: %w", migration.Version, err)
			}
			return nil
		})
		if err == nil || !IsTransient(err) {
			return err
		}
	}
	return fmt.Errorf("migration %s failed after %d attempts: %w", migration.Version, migrationAttempts, err)
}

// IsTransient reports whether err is a serialization or locking failure
// that may succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, pgx.ErrTxClosed) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := transientCodes[pgErr.Code]
		return ok
	}
	return false
}

func migrationBackoff(attempt int) time.Duration {
	backoff := migrationBaseBackoff << (attempt - 1)
	if backoff > migrationMaxBackoff {
		return migrationMaxBackoff
	}
	return backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
