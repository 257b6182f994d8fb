package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	pfirestore "github.com/solarshop412/solar-shop-sub000/internal/platform/firestore"
)

const orderItemsCollection = "orderItems"

type orderItemDocument struct {
	OrderID            string    `firestore:"orderId"`
	ProductID          *string   `firestore:"productId"`
	ProductName        string    `firestore:"productName"`
	ProductSKU         string    `firestore:"productSku,omitempty"`
	Quantity           int       `firestore:"quantity"`
	UnitPrice          string    `firestore:"unitPrice"`
	DiscountPercentage *string   `firestore:"discountPercentage,omitempty"`
	TotalPrice         string    `firestore:"totalPrice"`
	CreatedAt          time.Time `firestore:"createdAt"`
}

// OrderItemRepository stores order lines in a top-level collection keyed by item id.
type OrderItemRepository struct {
	items *pfirestore.Collection[orderItemDocument]
}

// NewOrderItemRepository constructs a Firestore-backed order item repository.
func NewOrderItemRepository(provider *pfirestore.Provider) (*OrderItemRepository, error) {
	if provider == nil {
		return nil, errors.New("order item repository requires firestore provider")
	}
	return &OrderItemRepository{items: pfirestore.NewCollection[orderItemDocument](provider, orderItemsCollection)}, nil
}

func (r *OrderItemRepository) Insert(ctx context.Context, items []domain.OrderItem) error {
	if r == nil || r.items == nil {
		return errors.New("order item repository not initialised")
	}
	for _, item := range items {
		if err := r.items.Create(ctx, item.ID, encodeOrderItem(item)); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	if r == nil || r.items == nil {
		return nil, errors.New("order item repository not initialised")
	}
	docs, err := r.items.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", strings.TrimSpace(orderID)).OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderItem(doc.ID, doc.Data))
	}
	return items, nil
}

// DeleteByOrder removes every item of the order. Inside a transaction the lookup and the
// deletes join it; a missing order is not an error.
func (r *OrderItemRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	if r == nil || r.items == nil {
		return errors.New("order item repository not initialised")
	}
	_, err := r.items.DeleteWhere(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", strings.TrimSpace(orderID))
	})
	return err
}

func encodeOrderItem(item domain.OrderItem) orderItemDocument {
	var pct *string
	if item.DiscountPercentage != nil {
		value := item.DiscountPercentage.String()
		pct = &value
	}
	return orderItemDocument{
		OrderID:            item.OrderID,
		ProductID:          item.ProductID,
		ProductName:        item.ProductName,
		ProductSKU:         item.ProductSKU,
		Quantity:           item.Quantity,
		UnitPrice:          item.UnitPrice.String(),
		DiscountPercentage: pct,
		TotalPrice:         item.TotalPrice.String(),
		CreatedAt:          item.CreatedAt.UTC(),
	}
}

func decodeOrderItem(id string, doc orderItemDocument) domain.OrderItem {
	item := domain.OrderItem{
		ID:          id,
		OrderID:     doc.OrderID,
		ProductID:   doc.ProductID,
		ProductName: doc.ProductName,
		ProductSKU:  doc.ProductSKU,
		Quantity:    doc.Quantity,
		UnitPrice:   parseDecimal(doc.UnitPrice),
		TotalPrice:  parseDecimal(doc.TotalPrice),
		CreatedAt:   doc.CreatedAt.UTC(),
	}
	if doc.DiscountPercentage != nil {
		pct := parseDecimal(*doc.DiscountPercentage)
		item.DiscountPercentage = &pct
	}
	return item
}
