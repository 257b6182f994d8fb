package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/solarshop412/solar-shop-sub000/internal/domain"
	pfirestore "github.com/solarshop412/solar-shop-sub000/internal/platform/firestore"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/pagination"
	"github.com/solarshop412/solar-shop-sub000/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber     string           `firestore:"orderNumber"`
	CustomerID      string           `firestore:"customerId,omitempty"`
	CustomerEmail   string           `firestore:"customerEmail"`
	CustomerName    string           `firestore:"customerName,omitempty"`
	CustomerPhone   string           `firestore:"customerPhone,omitempty"`
	CompanyID       *string          `firestore:"companyId,omitempty"`
	CompanyName     *string          `firestore:"companyName,omitempty"`
	IsB2B           bool             `firestore:"isB2B"`
	Status          string           `firestore:"status"`
	PaymentStatus   string           `firestore:"paymentStatus"`
	ShippingStatus  *string          `firestore:"shippingStatus,omitempty"`
	PaymentMethod   string           `firestore:"paymentMethod,omitempty"`
	Currency        string           `firestore:"currency"`
	Subtotal        string           `firestore:"subtotal"`
	TaxAmount       string           `firestore:"taxAmount"`
	ShippingCost    string           `firestore:"shippingCost"`
	DiscountAmount  string           `firestore:"discountAmount"`
	TotalAmount     string           `firestore:"totalAmount"`
	ShippingAddress *addressDocument `firestore:"shippingAddress,omitempty"`
	BillingAddress  *addressDocument `firestore:"billingAddress,omitempty"`
	Notes           string           `firestore:"notes,omitempty"`
	Metadata        map[string]any   `firestore:"metadata,omitempty"`
	CreatedAt       time.Time        `firestore:"createdAt"`
	UpdatedAt       time.Time        `firestore:"updatedAt"`
	ConfirmedAt     *time.Time       `firestore:"confirmedAt,omitempty"`
	PaidAt          *time.Time       `firestore:"paidAt,omitempty"`
	ShippedAt       *time.Time       `firestore:"shippedAt,omitempty"`
	DeliveredAt     *time.Time       `firestore:"deliveredAt,omitempty"`
	CancelledAt     *time.Time       `firestore:"cancelledAt,omitempty"`
	CancelReason    *string          `firestore:"cancelReason,omitempty"`
}

type addressDocument struct {
	Recipient  string  `firestore:"recipient"`
	Line1      string  `firestore:"line1"`
	Line2      *string `firestore:"line2,omitempty"`
	City       string  `firestore:"city"`
	State      *string `firestore:"state,omitempty"`
	PostalCode string  `firestore:"postalCode"`
	Country    string  `firestore:"country"`
	Phone      *string `firestore:"phone,omitempty"`
}

// OrderRepository persists order headers in the orders collection.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, ordersCollection),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	return r.orders.Create(ctx, order.ID, encodeOrder(order))
}

// Update reads and replaces the order inside one transaction, joining the caller's when
// there is one. The write is rejected with a conflict when the stored status axes no longer
// match guard.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order, guard repositories.OrderStatusGuard) error {
	const op = "orders.update"
	if r == nil || r.orders == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		current, err := r.orders.Get(ctx, order.ID)
		if err != nil {
			return err
		}
		stored := decodeOrder(current.ID, current.Data)
		if !guard.Matches(stored) {
			return &pfirestore.Error{
				Op:   op,
				Kind: pfirestore.KindConflict,
				Err:  fmt.Errorf("order %s status changed to %s", order.ID, stored.Status),
			}
		}
		return r.orders.Set(ctx, order.ID, encodeOrder(order))
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc.ID, doc.Data), nil
}

// List returns orders newest first using a (createdAt, id) keyset cursor.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.orders == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	cursor, err := pagination.DecodeToken(filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	limit := pagination.PageSize(filter.Pagination.PageSize)

	statuses := filter.Status
	// Firestore in clause supports up to 10 values.
	if len(statuses) > 10 {
		statuses = statuses[:10]
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		if id := strings.TrimSpace(filter.CustomerID); id != "" {
			q = q.Where("customerId", "==", id)
		}
		if id := strings.TrimSpace(filter.CompanyID); id != "" {
			q = q.Where("companyId", "==", id)
		}
		switch len(statuses) {
		case 0:
		case 1:
			q = q.Where("status", "==", statuses[0])
		default:
			q = q.Where("status", "in", statuses)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !cursor.IsZero() {
			q = q.StartAfter(cursor.CreatedAt, cursor.ID)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{Items: make([]domain.Order, 0, min(len(docs), limit))}
	for i, doc := range docs {
		if i == limit {
			last := page.Items[limit-1]
			token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			if err != nil {
				return domain.CursorPage[domain.Order]{}, err
			}
			page.NextPageToken = token
			break
		}
		page.Items = append(page.Items, decodeOrder(doc.ID, doc.Data))
	}
	return page, nil
}

// Delete removes the order document and reports not-found when it is missing.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	return r.orders.Delete(ctx, orderID, true)
}

func encodeOrder(order domain.Order) orderDocument {
	var shipping *string
	if order.ShippingStatus != nil {
		value := string(*order.ShippingStatus)
		shipping = &value
	}
	return orderDocument{
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		CompanyID:       order.CompanyID,
		CompanyName:     order.CompanyName,
		IsB2B:           order.IsB2B,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		ShippingStatus:  shipping,
		PaymentMethod:   order.PaymentMethod,
		Currency:        order.Currency,
		Subtotal:        order.Subtotal.String(),
		TaxAmount:       order.TaxAmount.String(),
		ShippingCost:    order.ShippingCost.String(),
		DiscountAmount:  order.DiscountAmount.String(),
		TotalAmount:     order.TotalAmount.String(),
		ShippingAddress: encodeAddress(order.ShippingAddress),
		BillingAddress:  encodeAddress(order.BillingAddress),
		Notes:           order.Notes,
		Metadata:        order.Metadata,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
		ConfirmedAt:     order.ConfirmedAt,
		PaidAt:          order.PaidAt,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CancelReason:    order.CancelReason,
	}
}

func decodeOrder(id string, doc orderDocument) domain.Order {
	var shipping *domain.ShippingStatus
	if doc.ShippingStatus != nil {
		value := domain.ShippingStatus(*doc.ShippingStatus)
		shipping = &value
	}
	return domain.Order{
		ID:              id,
		OrderNumber:     doc.OrderNumber,
		CustomerID:      doc.CustomerID,
		CustomerEmail:   doc.CustomerEmail,
		CustomerName:    doc.CustomerName,
		CustomerPhone:   doc.CustomerPhone,
		CompanyID:       doc.CompanyID,
		CompanyName:     doc.CompanyName,
		IsB2B:           doc.IsB2B,
		Status:          domain.OrderStatus(doc.Status),
		PaymentStatus:   domain.PaymentStatus(doc.PaymentStatus),
		ShippingStatus:  shipping,
		PaymentMethod:   doc.PaymentMethod,
		Currency:        doc.Currency,
		Subtotal:        parseDecimal(doc.Subtotal),
		TaxAmount:       parseDecimal(doc.TaxAmount),
		ShippingCost:    parseDecimal(doc.ShippingCost),
		DiscountAmount:  parseDecimal(doc.DiscountAmount),
		TotalAmount:     parseDecimal(doc.TotalAmount),
		ShippingAddress: decodeAddress(doc.ShippingAddress),
		BillingAddress:  decodeAddress(doc.BillingAddress),
		Notes:           doc.Notes,
		Metadata:        doc.Metadata,
		CreatedAt:       doc.CreatedAt.UTC(),
		UpdatedAt:       doc.UpdatedAt.UTC(),
		ConfirmedAt:     doc.ConfirmedAt,
		PaidAt:          doc.PaidAt,
		ShippedAt:       doc.ShippedAt,
		DeliveredAt:     doc.DeliveredAt,
		CancelledAt:     doc.CancelledAt,
		CancelReason:    doc.CancelReason,
	}
}

func encodeAddress(addr *domain.Address) *addressDocument {
	if addr == nil {
		return nil
	}
	return &addressDocument{
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
	}
}

func decodeAddress(doc *addressDocument) *domain.Address {
	if doc == nil {
		return nil
	}
	return &domain.Address{
		Recipient:  doc.Recipient,
		Line1:      doc.Line1,
		Line2:      doc.Line2,
		City:       doc.City,
		State:      doc.State,
		PostalCode: doc.PostalCode,
		Country:    doc.Country,
		Phone:      doc.Phone,
	}
}

func parseDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}
