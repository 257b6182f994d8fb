package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/jobs"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type sliceSource struct {
	messages []services.NotificationMessage
	results  []error
}

func (s *sliceSource) Receive(ctx context.Context, handle jobs.Handler) error {
	for _, message := range s.messages {
		if ctx.Err() != nil {
			return nil
		}
		s.results = append(s.results, handle(ctx, message))
	}
	return nil
}

type recordingSender struct {
	mu     sync.Mutex
	emails []Email
	err    error
}

func (s *recordingSender) Send(_ context.Context, email Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.emails = append(s.emails, email)
	return nil
}

func newTestWorker(t *testing.T, source Source, sender Sender) *Worker {
	t.Helper()
	mailer, err := NewTemplateMailer(sender, "shop@example.com")
	require.NoError(t, err)
	worker, err := NewWorker(WorkerDeps{Source: source, Mailer: mailer, HandlerTimeout: time.Second})
	require.NoError(t, err)
	return worker
}

func orderConfirmation(kind string) services.NotificationMessage {
	return services.NotificationMessage{
		ID:        "ntf_1",
		Kind:      kind,
		Recipient: "ana@example.com",
		Order: &services.OrderNotification{
			OrderID:       "ord_1",
			OrderNumber:   "SS-2025-000001",
			CustomerName:  "Ana",
			CustomerEmail: "ana@example.com",
			Currency:      "EUR",
			Subtotal:      "120.00",
			Discount:      "0.00",
			Tax:           "30.00",
			Shipping:      "0.00",
			Total:         "150.00",
			Items: []services.OrderNotificationItem{
				{Name: "Panel 400W", Quantity: 2, UnitPrice: "50.00", Total: "100.00"},
				{Name: "Custom bracket", Quantity: 1, UnitPrice: "20.00", Total: "20.00"},
			},
		},
	}
}

func TestWorkerDeliversEveryKind(t *testing.T) {
	source := &sliceSource{messages: []services.NotificationMessage{
		orderConfirmation(services.NotificationOrderConfirmation),
		orderConfirmation(services.NotificationOrderConfirmationAdmin),
		{
			ID:        "ntf_2",
			Kind:      services.NotificationOrderStatusChanged,
			Recipient: "ana@example.com",
			StatusChange: &services.StatusChangeNotification{
				OrderID:      "ord_1",
				OrderNumber:  "SS-2025-000001",
				CustomerName: "Ana",
				Axis:         services.StatusAxisOrder,
				Previous:     "pending",
				Current:      "cancelled",
				Reason:       "customer request",
			},
		},
		{
			ID:        "ntf_3",
			Kind:      services.NotificationCompanyApproval,
			Recipient: "ops@sunco.example",
			Company:   &services.CompanyNotification{CompanyID: "cmp_1", CompanyName: "SunCo", ContactName: "Ivo"},
		},
	}}
	sender := &recordingSender{}
	worker := newTestWorker(t, source, sender)

	require.NoError(t, worker.Run(t.Context()))

	assert.Equal(t, []error{nil, nil, nil, nil}, source.results)
	require.Len(t, sender.emails, 4)

	customer := sender.emails[0]
	assert.Equal(t, "Order confirmation SS-2025-000001", customer.Subject)
	assert.Equal(t, "shop@example.com", customer.From)
	assert.Contains(t, customer.Text, "2 x Panel 400W")
	assert.Contains(t, customer.Text, "150.00")

	assert.Equal(t, "New order SS-2025-000001", sender.emails[1].Subject)
	assert.Equal(t, services.NotificationOrderConfirmationAdmin, sender.emails[1].Kind)

	status := sender.emails[2]
	assert.Equal(t, "Order SS-2025-000001: cancelled", status.Subject)
	assert.Contains(t, status.Text, "Reason: customer request")

	assert.Equal(t, "Business account approved", sender.emails[3].Subject)
	assert.Contains(t, sender.emails[3].Text, "SunCo")
}

func TestWorkerRejectsMalformedMessages(t *testing.T) {
	tests := []struct {
		name    string
		message services.NotificationMessage
	}{
		{name: "unknown kind", message: services.NotificationMessage{ID: "x", Kind: "order.shipped.sms", Recipient: "a@example.com"}},
		{name: "missing recipient", message: withRecipient(orderConfirmation(services.NotificationOrderConfirmation), "")},
		{name: "missing order payload", message: services.NotificationMessage{ID: "x", Kind: services.NotificationOrderConfirmation, Recipient: "a@example.com"}},
		{name: "missing status payload", message: services.NotificationMessage{ID: "x", Kind: services.NotificationOrderStatusChanged, Recipient: "a@example.com"}},
		{name: "missing company payload", message: services.NotificationMessage{ID: "x", Kind: services.NotificationCompanyApproval, Recipient: "a@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			worker := newTestWorker(t, &sliceSource{}, sender)

			err := worker.Handle(t.Context(), tt.message)
			require.ErrorIs(t, err, jobs.ErrPermanent)
			assert.Empty(t, sender.emails)
		})
	}
}

func TestWorkerSurfacesTransientSenderErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay unavailable")}
	worker := newTestWorker(t, &sliceSource{}, sender)

	err := worker.Handle(t.Context(), orderConfirmation(services.NotificationOrderConfirmation))
	require.Error(t, err)
	assert.NotErrorIs(t, err, jobs.ErrPermanent)
}

func TestNewWorkerValidatesDeps(t *testing.T) {
	mailer, err := NewTemplateMailer(&recordingSender{}, "")
	require.NoError(t, err)

	_, err = NewWorker(WorkerDeps{Mailer: mailer})
	assert.Error(t, err)
	_, err = NewWorker(WorkerDeps{Source: &sliceSource{}})
	assert.Error(t, err)
	_, err = NewTemplateMailer(nil, "")
	assert.Error(t, err)
}

func withRecipient(message services.NotificationMessage, recipient string) services.NotificationMessage {
	message.Recipient = recipient
	return message
}
