package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/hashdrop"
)

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables hashdrop.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := createMappingsTable(ctx, pool, tables.Mappings); err != nil {
		return fmt.Errorf("migrate %s: %w", tables.Mappings, err)
	}

	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables hashdrop.Tables) error {
	quotedTable := pgx.Identifier{tables.Mappings}.Sanitize()

	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quotedTable))
	if err != nil {
		return fmt.Errorf("drop %s: %w", tables.Mappings, err)
	}

	return nil
}

func createMappingsTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexOwnerList := pgx.Identifier{fmt.Sprintf("idx_%s_owner_list", tableName)}.Sanitize()
	indexExpiresAt := pgx.Identifier{fmt.Sprintf("idx_%s_expires_at", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			hash TEXT NOT NULL PRIMARY KEY,
			kind TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			payload_ref TEXT NOT NULL,
			description TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (owner_id, created_at DESC);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (expires_at);
	`,
		quotedTable,
		indexOwnerList, quotedTable,
		indexExpiresAt, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create mappings table: %w", err)
	}
	return nil
}
