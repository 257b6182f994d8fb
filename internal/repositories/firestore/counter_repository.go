package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/solarshop412/solar-shop-sub000/internal/platform/firestore"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	Value     int64     `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CounterRepository hands out order number sequence values from one document per counter.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.Collection[counterDocument]
	clock    func() time.Time
}

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewCollection[counterDocument](provider, countersCollection),
		clock:    time.Now,
	}, nil
}

// Next adds step to the counter and returns the new value. The read and write share a
// transaction, so concurrent checkouts never receive the same order number.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id, step, err := repositories.NormalizeCounterRequest(counterID, step)
	if err != nil {
		return 0, err
	}

	var next int64
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		doc := counterDocument{}
		current, err := r.counters.Get(ctx, id)
		switch {
		case err == nil:
			doc = current.Data
		case isNotFound(err):
		default:
			return err
		}
		doc.Value += step
		doc.UpdatedAt = r.clock().UTC()
		next = doc.Value
		return r.counters.Set(ctx, id, doc)
	})
	if err != nil {
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return next, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
