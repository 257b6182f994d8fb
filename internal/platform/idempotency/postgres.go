package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the idempotency_keys table created by the
// postgres registry migration.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("idempotency: postgres pool is required")
	}
	return &PostgresStore{pool: pool}, nil
}

const selectRecordForUpdate = `
SELECT scoped_key, fingerprint, status, response_status, response_headers, response_body,
       created_at, updated_at, expires_at
FROM idempotency_keys WHERE id = $1 FOR UPDATE`

// Reserve implements Store. The row lock serialises concurrent reservations of one key.
func (s *PostgresStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	ttl = normalizeTTL(ttl)
	id := documentID(key)

	var result Reservation
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var record Record
		var status string
		err := tx.QueryRow(ctx, selectRecordForUpdate, id).Scan(
			&record.Key, &record.Fingerprint, &status, &record.ResponseStatus, &record.ResponseHeaders,
			&record.ResponseBody, &record.CreatedAt, &record.UpdatedAt, &record.ExpiresAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			pending := newPendingRecord(key, fingerprint, now, ttl)
			tag, err := tx.Exec(ctx, `
INSERT INTO idempotency_keys (id, scoped_key, fingerprint, status, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $5, $6)
ON CONFLICT (id) DO NOTHING`, id, key, fingerprint, string(StatusPending), now, pending.ExpiresAt)
			if err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
			if tag.RowsAffected() == 0 {
				result = Reservation{State: ReservationStatePending, Record: pending}
				return nil
			}
			result = Reservation{State: ReservationStateNew, Record: pending}
			return nil
		}
		if err != nil {
			return fmt.Errorf("select reservation: %w", err)
		}
		record.Status = Status(status)

		reservation, replace, err := reserveExisting(record, key, fingerprint, now, ttl)
		if err != nil {
			return err
		}
		result = reservation
		if !replace {
			return nil
		}
		_, err = tx.Exec(ctx, `
UPDATE idempotency_keys
SET fingerprint = $2, status = $3, response_status = 0, response_headers = NULL, response_body = NULL,
    created_at = $4, updated_at = $4, expires_at = $5
WHERE id = $1`, id, fingerprint, string(StatusPending), now, reservation.Record.ExpiresAt)
		if err != nil {
			return fmt.Errorf("reclaim expired reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	return result, nil
}

// SaveResponse implements Store.
func (s *PostgresStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	record := completeRecord(Record{Key: key, Fingerprint: fingerprint}, resp, now, normalizeTTL(ttl))

	tag, err := s.pool.Exec(ctx, `
INSERT INTO idempotency_keys (id, scoped_key, fingerprint, status, response_status, response_headers, response_body,
                              created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    response_status = EXCLUDED.response_status,
    response_headers = EXCLUDED.response_headers,
    response_body = EXCLUDED.response_body,
    updated_at = EXCLUDED.updated_at,
    expires_at = EXCLUDED.expires_at
WHERE idempotency_keys.fingerprint = EXCLUDED.fingerprint`,
		documentID(key), key, fingerprint, string(record.Status), record.ResponseStatus, record.ResponseHeaders,
		record.ResponseBody, now, record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save idempotent response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFingerprintMismatch
	}
	return nil
}

// Release implements Store.
func (s *PostgresStore) Release(ctx context.Context, key, fingerprint string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE id = $1 AND fingerprint = $2`, documentID(key), fingerprint)
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}

// CleanupExpired implements Store.
func (s *PostgresStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultCleanupLimit
	}
	tag, err := s.pool.Exec(ctx, `
DELETE FROM idempotency_keys
WHERE id IN (SELECT id FROM idempotency_keys WHERE expires_at <= $1 ORDER BY expires_at LIMIT $2)`, now.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired keys: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
