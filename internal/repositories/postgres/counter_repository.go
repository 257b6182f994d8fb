package postgres

import (
	"context"
	"time"

	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

// CounterRepository allocates sequence values with a single upsert per call.
type CounterRepository struct {
	store *Store
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	counterID, step, err := repositories.NormalizeCounterRequest(counterID, step)
	if err != nil {
		return 0, err
	}

	var value int64
	err = r.store.q(ctx).QueryRow(ctx, `
INSERT INTO counters (id, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET value = counters.value + EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING value`, counterID, step, time.Now().UTC()).Scan(&value)
	if err != nil {
		return 0, wrapError("counters.next", err)
	}
	return value, nil
}
