package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/onecard/assistant/db"
	"github.com/onecard/assistant/internal/log"
)

// TestDB is an isolated PostgreSQL instance with the pgvector extension
// and the project schema already applied.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a disposable PostgreSQL container, runs the embedded
// migrations against it, and returns a ready connection pool. The returned
// cleanup function terminates the container and must be called.
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("onecard_test"),
		postgres.WithUsername("onecard_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container connection string: %v", err)
	}

	if err := db.Migrate(connStr, log.NewNop()); err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("ping database: %v", err)
	}

	tdb := &TestDB{Container: container, Pool: pool, ConnStr: connStr}
	cleanup := func() {
		pool.Close()
		_ = container.Terminate(context.Background())
	}
	return tdb, cleanup
}
