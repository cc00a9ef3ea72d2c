package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sagarc03/hashdrop"
	"github.com/sagarc03/hashdrop/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
)

// getSharedTestDatabase returns a shared database pool for all tests.
// Reusing one container keeps the suite fast; tests isolate through unique
// table names instead.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("failed to get connection string: %v", err)
		}

		pool, err := pgxpool.New(ctx, connectionStr)
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			t.Fatalf("could not connect to database: %v", err)
		}

		testPool = pool
	})

	return testPool
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo with a unique table name for test isolation.
func setupTestRepo(t *testing.T) *postgres.Repo {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	tables := hashdrop.Tables{Mappings: fmt.Sprintf("mappings_%s", getRandomString(t))}

	require.NoError(t, postgres.Migrate(ctx, pool, tables), "failed to migrate")
	require.NoError(t, postgres.ValidateSchema(ctx, pool, tables), "schema validation failed")

	repo, err := postgres.NewRepo(pool, tables)
	require.NoError(t, err, "failed to create repo")

	t.Cleanup(func() {
		_ = postgres.DropTables(context.Background(), pool, tables)
	})

	return repo
}

// testResource builds a live resource owned by owner, createdAt offset
// seconds after a fixed base instant.
func testResource(hash, owner string, offset int) hashdrop.Resource {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	createdAt := base.Add(time.Duration(offset) * time.Second)
	return hashdrop.Resource{
		Hash:        hash,
		Kind:        hashdrop.KindURL,
		OwnerID:     owner,
		PayloadRef:  "https://example.com/" + hash,
		Description: "test resource " + hash,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(24 * time.Hour),
	}
}
