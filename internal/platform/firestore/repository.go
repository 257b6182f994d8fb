package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Doc is a decoded document together with its ID.
type Doc[T any] struct {
	ID   string
	Data T
}

// Collection is a typed view of one top-level collection. Every method joins the transaction
// carried by ctx, so repositories never branch on whether they run inside RunTransaction.
type Collection[T any] struct {
	provider *Provider
	name     string
}

// NewCollection binds T to the named collection.
func NewCollection[T any](provider *Provider, name string) *Collection[T] {
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name)}
}

// Ref returns the document reference for id.
func (c *Collection[T]) Ref(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &Error{Op: c.name + ".ref", Kind: KindInternal, Err: errors.New("document id is required")}
	}
	if c.provider == nil || c.name == "" {
		return nil, &Error{Op: c.name + ".ref", Kind: KindInternal, Err: errors.New("collection is not configured")}
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(c.name).Doc(id), nil
}

// Get reads and decodes id. Inside a transaction the read takes part in its contention checks.
func (c *Collection[T]) Get(ctx context.Context, id string) (Doc[T], error) {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return Doc[T]{}, err
	}
	var snap *firestore.DocumentSnapshot
	if tx, ok := TransactionFromContext(ctx); ok {
		snap, err = tx.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}
	if err != nil {
		return Doc[T]{}, WrapError(c.name+".get", err)
	}
	return c.decode(snap)
}

// Create writes a new document and fails with a conflict when id is taken.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) error {
	return c.write(ctx, "create", id, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		if tx != nil {
			return tx.Create(ref, value)
		}
		_, err := ref.Create(ctx, value)
		return err
	})
}

// Set overwrites the document, creating it if needed.
func (c *Collection[T]) Set(ctx context.Context, id string, value T) error {
	return c.write(ctx, "set", id, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		if tx != nil {
			return tx.Set(ref, value)
		}
		_, err := ref.Set(ctx, value)
		return err
	})
}

// Update applies field updates to an existing document; a missing document is not found.
func (c *Collection[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	return c.write(ctx, "update", id, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		if tx != nil {
			return tx.Update(ref, updates)
		}
		_, err := ref.Update(ctx, updates)
		return err
	})
}

// Delete removes id. With mustExist a missing document is reported as not found.
func (c *Collection[T]) Delete(ctx context.Context, id string, mustExist bool) error {
	var preconds []firestore.Precondition
	if mustExist {
		preconds = append(preconds, firestore.Exists)
	}
	return c.write(ctx, "delete", id, func(tx *firestore.Transaction, ref *firestore.DocumentRef) error {
		if tx != nil {
			return tx.Delete(ref, preconds...)
		}
		_, err := ref.Delete(ctx, preconds...)
		return err
	})
}

// Query runs the query produced by build and decodes every match.
func (c *Collection[T]) Query(ctx context.Context, build func(firestore.Query) firestore.Query) ([]Doc[T], error) {
	var docs []Doc[T]
	err := c.each(ctx, build, func(snap *firestore.DocumentSnapshot) error {
		doc, err := c.decode(snap)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	return docs, err
}

// DeleteWhere removes every document matched by build and returns how many were deleted.
func (c *Collection[T]) DeleteWhere(ctx context.Context, build func(firestore.Query) firestore.Query) (int, error) {
	var refs []*firestore.DocumentRef
	err := c.each(ctx, build, func(snap *firestore.DocumentSnapshot) error {
		refs = append(refs, snap.Ref)
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, ref := range refs {
		if err := c.Delete(ctx, ref.ID, false); err != nil {
			return 0, err
		}
	}
	return len(refs), nil
}

func (c *Collection[T]) each(ctx context.Context, build func(firestore.Query) firestore.Query, visit func(*firestore.DocumentSnapshot) error) error {
	if c.provider == nil || c.name == "" {
		return &Error{Op: c.name + ".query", Kind: KindInternal, Err: errors.New("collection is not configured")}
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return err
	}
	query := client.Collection(c.name).Query
	if build != nil {
		query = build(query)
	}

	var iter *firestore.DocumentIterator
	if tx, ok := TransactionFromContext(ctx); ok {
		iter = tx.Documents(query)
	} else {
		iter = query.Documents(ctx)
	}
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return WrapError(c.name+".query", err)
		}
		if err := visit(snap); err != nil {
			return err
		}
	}
}

func (c *Collection[T]) write(ctx context.Context, action, id string, apply func(*firestore.Transaction, *firestore.DocumentRef) error) error {
	ref, err := c.Ref(ctx, id)
	if err != nil {
		return err
	}
	tx, _ := TransactionFromContext(ctx)
	if err := apply(tx, ref); err != nil {
		return WrapError(c.name+"."+action, err)
	}
	return nil
}

func (c *Collection[T]) decode(snap *firestore.DocumentSnapshot) (Doc[T], error) {
	var data T
	if err := snap.DataTo(&data); err != nil {
		return Doc[T]{}, fmt.Errorf("%s: decode %s: %w", c.name, snap.Ref.ID, err)
	}
	return Doc[T]{ID: snap.Ref.ID, Data: data}, nil
}
