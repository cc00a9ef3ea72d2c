package sqlite_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sagarc03/hashdrop"
	"github.com/sagarc03/hashdrop/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo over an in-memory database with a unique
// table name for test isolation.
func setupTestRepo(t *testing.T) *sqlite.Repo {
	t.Helper()

	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open database")
	// An in-memory database exists per connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	tables := hashdrop.Tables{Mappings: fmt.Sprintf("mappings_%s", getRandomString(t))}

	require.NoError(t, sqlite.Migrate(ctx, db, tables), "failed to migrate")
	require.NoError(t, sqlite.ValidateSchema(ctx, db, tables), "schema validation failed")

	repo, err := sqlite.NewRepo(db, tables)
	require.NoError(t, err, "failed to create repo")

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
