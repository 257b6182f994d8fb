package notifier

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/config"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/jobs"
)

func TestWebhookSenderPostsEmail(t *testing.T) {
	var (
		gotAuth  string
		gotEmail Email
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotEmail); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewWebhookSender(config.MailerConfig{Endpoint: srv.URL, AuthToken: "relay-token"})
	require.NoError(t, err)
	defer sender.client.CloseIdleConnections()

	email := Email{To: "ana@example.com", Subject: "hello", Text: "body", Kind: "order.confirmation"}
	require.NoError(t, sender.Send(t.Context(), email))
	assert.Equal(t, "Bearer relay-token", gotAuth)
	assert.Equal(t, email, gotEmail)
}

func TestWebhookSenderClassifiesStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantErr   bool
		permanent bool
	}{
		{status: http.StatusOK},
		{status: http.StatusBadRequest, wantErr: true, permanent: true},
		{status: http.StatusUnprocessableEntity, wantErr: true, permanent: true},
		{status: http.StatusTooManyRequests, wantErr: true},
		{status: http.StatusBadGateway, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			sender, err := NewWebhookSender(config.MailerConfig{Endpoint: srv.URL})
			require.NoError(t, err)
			defer sender.client.CloseIdleConnections()

			err = sender.Send(t.Context(), Email{To: "a@example.com"})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.permanent, strings.Contains(err.Error(), jobs.ErrPermanent.Error()))
		})
	}
}

func TestNewSenderSelectsDriver(t *testing.T) {
	sender, err := NewSender(config.MailerConfig{Driver: config.MailerDriverLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, sender)

	_, err = NewSender(config.MailerConfig{Driver: config.MailerDriverWebhook}, nil)
	assert.Error(t, err)

	_, err = NewSender(config.MailerConfig{Driver: "carrier-pigeon"}, nil)
	assert.Error(t, err)
}

func TestLogSenderRecordsEmail(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewLogSender(zap.New(core))

	require.NoError(t, sender.Send(t.Context(), Email{To: "ana@example.com", Subject: "Order confirmation", Kind: "order.confirmation"}))

	entries := logs.FilterMessage("email").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ana@example.com", entries[0].ContextMap()["to"])
}

func TestFormatMoney(t *testing.T) {
	assert.Contains(t, formatMoney("EUR", "120.00"), "120.00")
	assert.Contains(t, formatMoney("EUR", "120.00"), "€")
	assert.Equal(t, "XYZ 5.00", formatMoney("XYZ", "5"))
	assert.Equal(t, "EUR n/a", formatMoney("EUR", "n/a"))
}

func TestRenderOrderConfirmationHidesTaxForBusinessOrders(t *testing.T) {
	message := orderConfirmation("order.confirmation")
	order := *message.Order
	order.IsB2B = true
	order.CompanyName = "SunCo"
	order.Discount = "10.00"

	email := renderOrderConfirmation("ana@example.com", order, true)
	assert.Contains(t, email.Text, "Company: SunCo")
	assert.Contains(t, email.Text, "Discount: -")
	assert.NotContains(t, email.Text, "Tax:")
	assert.NotContains(t, email.Text, "Shipping:")
}
