package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// cleanupBatch bounds how many expired rows a single DELETE removes so the
// sweep never holds a long lock on the table.
const cleanupBatch = 1000

type IdempotencyCacheEntry struct {
	Key          string
	TenantID     string
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (e *IdempotencyCacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Lookup returns the live response stored for (tenant, key), or nil.
func (r *IdempotencyRepository) Lookup(ctx context.Context, tenantID, key string) (*IdempotencyCacheEntry, error) {
	e := IdempotencyCacheEntry{Key: key, TenantID: tenantID}
	err := r.db.QueryRowContext(ctx,
		`SELECT request_hash, status_code, response_body, created_at, expires_at
		FROM idempotency_cache
		WHERE tenant_id = $1 AND idempotency_key = $2 AND expires_at > now()`,
		tenantID, key,
	).Scan(&e.RequestHash, &e.StatusCode, &e.ResponseBody, &e.CreatedAt, &e.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("Lookup: %w", err)
	}
	return &e, nil
}

// Save stores a response. An expired row under the same key is replaced; a
// live one is left alone and Save reports false.
func (r *IdempotencyRepository) Save(ctx context.Context, e *IdempotencyCacheEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO idempotency_cache
			(idempotency_key, tenant_id, request_hash, status_code, response_body, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key, tenant_id) DO UPDATE
			SET request_hash = EXCLUDED.request_hash,
				status_code = EXCLUDED.status_code,
				response_body = EXCLUDED.response_body,
				created_at = EXCLUDED.created_at,
				expires_at = EXCLUDED.expires_at
			WHERE idempotency_cache.expires_at <= now()`,
		e.Key, e.TenantID, e.RequestHash, e.StatusCode, e.ResponseBody, e.CreatedAt, e.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("Save: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Save: rows affected: %w", err)
	}
	return n == 1, nil
}

// CleanExpired deletes expired entries in batches until none are left or
// ctx is done, and returns how many rows went.
func (r *IdempotencyRepository) CleanExpired(ctx context.Context) (int64, error) {
	var total int64
	for {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM idempotency_cache
			WHERE ctid IN (
				SELECT ctid FROM idempotency_cache WHERE expires_at <= now() LIMIT $1
			)`,
			cleanupBatch,
		)
		if err != nil {
			return total, fmt.Errorf("CleanExpired: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("CleanExpired: rows affected: %w", err)
		}
		total += n
		if n < cleanupBatch {
			return total, nil
		}
	}
}
