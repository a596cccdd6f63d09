package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portal/gateway/internal/platform/db"
)

// globalPool is shared by every test and migrated once in TestMain.
var globalPool *pgxpool.Pool

// TestMain uses TEST_DATABASE_URL when set, otherwise a throwaway docker
// container. Without either the package is skipped.
func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr := os.Getenv("TEST_DATABASE_URL")
	cleanup := func() {}
	if connStr == "" {
		if _, err := exec.LookPath("docker"); err != nil {
			fmt.Fprintln(os.Stderr, "skipping integration tests: no TEST_DATABASE_URL and no docker")
			os.Exit(0)
		}
		var err error
		connStr, cleanup, err = startPostgresContainer(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
			os.Exit(1)
		}
	}

	pool, err := db.NewPool(ctx, connStr, db.PoolOptions{MaxConns: 10, MinConns: 1})
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.NewMigrator(pool, findMigrationsDir()).Up(ctx); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates the migrations directory relative to this file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// uniqueID keeps tests isolated inside the shared schema.
func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8])
}
