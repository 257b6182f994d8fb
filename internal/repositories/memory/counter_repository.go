package memory

import (
	"context"

	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

type counterRepo struct{ s *Store }

func (r counterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, step, err := repositories.NormalizeCounterRequest(counterID, step)
	if err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.counters[id] += step
	return r.s.counters[id], nil
}
