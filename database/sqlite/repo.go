// Package sqlite implements the mapping repo interface using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/hashdrop"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Tables is an alias for hashdrop.Tables for package compatibility.
type Tables = hashdrop.Tables

type Repo struct {
	db        *sql.DB
	tableName string
}

func NewRepo(db *sql.DB, tables Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{db: db, tableName: tables.Mappings}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repo) Insert(ctx context.Context, res hashdrop.Resource) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		res.Hash, string(res.Kind), res.OwnerID, res.PayloadRef, res.Description, res.ContentType,
		res.CreatedAt.UTC().Format(time.RFC3339Nano), res.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", res.Hash, hashdrop.ErrCollision)
		}
		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, hash string) (hashdrop.Resource, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at
		FROM %s
		WHERE hash = ?`, r.tableName)

	res, err := scanResource(r.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hashdrop.Resource{}, hashdrop.ErrNotFound
		}
		return hashdrop.Resource{}, fmt.Errorf("get: %w", err)
	}

	return res, nil
}

func (r *Repo) Delete(ctx context.Context, hash string) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE hash = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", hashdrop.ErrNotFound)
	}

	return nil
}

func (r *Repo) ListByOwner(ctx context.Context, q hashdrop.ListQuery) ([]hashdrop.Resource, int, error) {
	countQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT COUNT(*) FROM %s WHERE owner_id = ?`, r.tableName)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, q.OwnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list by owner: count: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at
		FROM %s
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, q.OwnerID, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list by owner: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items, err := collectResources(rows, q.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list by owner: %w", err)
	}

	return items, total, nil
}

func (r *Repo) ListExpired(ctx context.Context, before time.Time, limit int) ([]hashdrop.Resource, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at
		FROM %s
		WHERE expires_at < ?
		ORDER BY expires_at
		LIMIT ?`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query, before.UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items, err := collectResources(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (hashdrop.Resource, error) {
	var res hashdrop.Resource
	var kind, createdAt, expiresAt string

	err := row.Scan(&res.Hash, &kind, &res.OwnerID, &res.PayloadRef, &res.Description, &res.ContentType, &createdAt, &expiresAt)
	if err != nil {
		return hashdrop.Resource{}, err
	}

	res.Kind = hashdrop.ResourceKind(kind)

	res.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return hashdrop.Resource{}, fmt.Errorf("parse created_at: %w", err)
	}

	res.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return hashdrop.Resource{}, fmt.Errorf("parse expires_at: %w", err)
	}

	return res, nil
}

func collectResources(rows *sql.Rows, capacity int) ([]hashdrop.Resource, error) {
	items := make([]hashdrop.Resource, 0, capacity)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return items, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlitedrv.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
