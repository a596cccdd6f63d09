package db

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	migrationsTable = "gateway_migrations"

	// migrationLockID serializes concurrent migrators (several gateway
	// replicas starting at once) through a transaction-scoped advisory lock.
	migrationLockID = 7_421_001
)

// Migration is a single SQL file from the migrations directory.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus reports whether a known migration has been applied.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies numbered SQL files in order and records each one in the
// gateway_migrations table.
type Migrator struct {
	pool  *pgxpool.Pool
	files fs.FS
}

// NewMigrator reads migration files from migrationsDir on disk.
func NewMigrator(pool *pgxpool.Pool, migrationsDir string) *Migrator {
	return NewMigratorFS(pool, os.DirFS(migrationsDir))
}

// NewMigratorFS reads migration files from the root of files.
func NewMigratorFS(pool *pgxpool.Pool, files fs.FS) *Migrator {
	return &Migrator{pool: pool, files: files}
}

// LoadMigrations returns the .sql files whose names start with a numeric
// prefix ("001_campaigns.sql" is version 1), sorted by version.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	return loadMigrations(m.files)
}

func loadMigrations(files fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", version, other, name)
		}
		seen[version] = name

		content, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every pending migration. It returns how many were applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	return m.UpTo(ctx, 0)
}

// UpTo applies pending migrations up to and including targetVersion; zero
// means all of them. Each migration runs in its own transaction.
func (m *Migrator) UpTo(ctx context.Context, targetVersion int) (int, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range pending(migrations, targetVersion) {
		applied, err := m.apply(ctx, mig)
		if err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		if applied {
			count++
		}
	}
	return count, nil
}

func pending(migrations []Migration, targetVersion int) []Migration {
	if targetVersion <= 0 {
		return migrations
	}
	var out []Migration
	for _, mig := range migrations {
		if mig.Version > targetVersion {
			break
		}
		out = append(out, mig)
	}
	return out
}

// apply runs one migration unless another migrator already recorded it.
func (m *Migrator) apply(ctx context.Context, mig Migration) (bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return false, fmt.Errorf("acquire migration lock: %w", err)
	}
	if err := createMigrationsTable(ctx, tx); err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+migrationsTable+" WHERE version = $1)", mig.Version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return false, fmt.Errorf("execute SQL: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO "+migrationsTable+" (version, name) VALUES ($1, $2)",
		mig.Version, mig.Name,
	); err != nil {
		return false, fmt.Errorf("record migration: %w", err)
	}

	return true, tx.Commit(ctx)
}

func createMigrationsTable(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
    version INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("create %s table: %w", migrationsTable, err)
	}
	return nil
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}

	appliedAt := make(map[int]time.Time)
	err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if err := createMigrationsTable(ctx, tx); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, "SELECT version, applied_at FROM "+migrationsTable)
		if err != nil {
			return fmt.Errorf("query migration status: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var v int
			var at time.Time
			if err := rows.Scan(&v, &at); err != nil {
				return fmt.Errorf("scan migration status: %w", err)
			}
			appliedAt[v] = at
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return statusOf(migrations, appliedAt), nil
}

func statusOf(migrations []Migration, appliedAt map[int]time.Time) []MigrationStatus {
	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		s := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := appliedAt[mig.Version]; ok {
			s.Applied = true
			s.AppliedAt = &at
		}
		statuses = append(statuses, s)
	}
	return statuses
}
