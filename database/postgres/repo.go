// Package postgres implements the mapping repo interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/hashdrop"
)

// Tables is an alias for hashdrop.Tables for package compatibility.
type Tables = hashdrop.Tables

const uniqueViolationCode = "23505"

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Mappings}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Insert(ctx context.Context, res hashdrop.Resource) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tableName)

	_, err := r.pool.Exec(ctx, query,
		res.Hash, string(res.Kind), res.OwnerID, res.PayloadRef, res.Description, res.ContentType,
		res.CreatedAt.UTC(), res.ExpiresAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("insert %s: %w", res.Hash, hashdrop.ErrCollision)
		}
		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, hash string) (hashdrop.Resource, error) {
	query := fmt.Sprintf(`
		SELECT hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at
		FROM %s
		WHERE hash = $1
	`, r.tableName)

	var res hashdrop.Resource
	var kind string
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&res.Hash, &kind, &res.OwnerID, &res.PayloadRef, &res.Description, &res.ContentType,
		&res.CreatedAt, &res.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hashdrop.Resource{}, hashdrop.ErrNotFound
		}
		return hashdrop.Resource{}, fmt.Errorf("get: %w", err)
	}

	res.Kind = hashdrop.ResourceKind(kind)
	return res, nil
}

func (r *Repo) Delete(ctx context.Context, hash string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE hash = $1`, r.tableName)

	result, err := r.pool.Exec(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", hashdrop.ErrNotFound)
	}

	return nil
}

func (r *Repo) ListByOwner(ctx context.Context, q hashdrop.ListQuery) ([]hashdrop.Resource, int, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE owner_id = $1`, r.tableName)

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, q.OwnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list by owner: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at
		FROM %s
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, q.OwnerID, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()

	items, err := collectResources(rows, q.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list by owner: %w", err)
	}

	return items, total, nil
}

func (r *Repo) ListExpired(ctx context.Context, before time.Time, limit int) ([]hashdrop.Resource, error) {
	query := fmt.Sprintf(`
		SELECT hash, kind, owner_id, payload_ref, description, content_type, created_at, expires_at
		FROM %s
		WHERE expires_at < $1
		ORDER BY expires_at
		LIMIT $2
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	defer rows.Close()

	items, err := collectResources(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}

	return items, nil
}

func collectResources(rows pgx.Rows, capacity int) ([]hashdrop.Resource, error) {
	items := make([]hashdrop.Resource, 0, capacity)
	for rows.Next() {
		var res hashdrop.Resource
		var kind string

		err := rows.Scan(
			&res.Hash, &kind, &res.OwnerID, &res.PayloadRef, &res.Description, &res.ContentType,
			&res.CreatedAt, &res.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		res.Kind = hashdrop.ResourceKind(kind)
		items = append(items, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return items, nil
}
