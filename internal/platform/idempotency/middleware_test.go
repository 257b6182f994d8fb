package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/requestctx"
)

var fixedTime = time.Date(2025, time.March, 3, 9, 30, 0, 0, time.UTC)

func newOrderRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func asCustomer(req *http.Request, customerID string) *http.Request {
	return req.WithContext(requestctx.WithCaller(req.Context(), requestctx.Caller{CustomerID: customerID}))
}

func TestMiddleware_MissingHeader(t *testing.T) {
	middleware := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))

	handlerCalled := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		handlerCalled = true
	})

	rr := httptest.NewRecorder()
	middleware(next).ServeHTTP(rr, newOrderRequest("", `{"items":[]}`))

	if handlerCalled {
		t.Fatal("handler should not be invoked when header is missing")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_required")
}

func TestMiddleware_SafeMethodsPassThrough(t *testing.T) {
	middleware := Middleware(NewMemoryStore())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_1", nil)
	middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through 204, got %d", rr.Code)
	}
}

func TestMiddleware_ReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ord_1"}`))
		}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, asCustomer(newOrderRequest("abc-123", `{"items":[1]}`), "cust_1"))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("unexpected first response status: %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, asCustomer(newOrderRequest("abc-123", `{"items":[1]}`), "cust_1"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, got %d calls", calls)
	}
	if rr2.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", rr2.Code)
	}
	if rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatal("expected replay header to be present")
	}
	if got := rr2.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected content-type json, got %s", got)
	}
	if rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("expected response body %s, got %s", rr1.Body.String(), rr2.Body.String())
	}
}

func TestMiddleware_KeysAreScopedPerCustomer(t *testing.T) {
	var calls int
	handler := Middleware(NewMemoryStore())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, customer := range []string{"cust_1", "cust_2"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, asCustomer(newOrderRequest("shared-key", `{}`), customer))
		if rr.Code != http.StatusCreated {
			t.Fatalf("customer %s: expected 201, got %d", customer, rr.Code)
		}
		if rr.Header().Get(replayHeaderName) != "" {
			t.Fatalf("customer %s: response must not be a replay", customer)
		}
	}
	if calls != 2 {
		t.Fatalf("expected two handler calls, got %d", calls)
	}
}

func TestMiddleware_ConflictingFingerprintReturnsConflict(t *testing.T) {
	handler := Middleware(NewMemoryStore(), WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newOrderRequest("same-key", `{"qty":1}`))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request success, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newOrderRequest("same-key", `{"qty":2}`))
	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected conflict status, got %d", rr2.Code)
	}
	assertErrorResponse(t, rr2.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddleware_PendingReservationReturnsConflict(t *testing.T) {
	store := NewMemoryStore()
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler should not be invoked when reservation pending")
		}))

	req := newOrderRequest("pending-key", `{"qty":1}`)
	body, err := readAndReplayBody(req)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	scope := requesterScope(req.Context())
	if _, err := store.Reserve(req.Context(), scopedKey("pending-key", scope), requestFingerprint(req, body, scope), fixedTime, time.Hour); err != nil {
		t.Fatalf("failed to seed reservation: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for pending reservation, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddleware_ServerErrorsAreNotStored(t *testing.T) {
	store := NewMemoryStore()
	var calls int
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, newOrderRequest("retry-key", `{}`))
	if rr1.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on first attempt, got %d", rr1.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("expected key to be released, %d records remain", store.Len())
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, newOrderRequest("retry-key", `{}`))
	if rr2.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to run the handler, got status %d after %d calls", rr2.Code, calls)
	}
}

func TestMiddleware_SaveFailureRollsBackReservation(t *testing.T) {
	store := &stubStore{failSave: true}
	logger := &capturingLogger{}
	handler := Middleware(store, WithLogger(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newOrderRequest("fail-key", `{}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 response, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_store_error")
	if !store.released {
		t.Fatal("expected reservation to be released on failure")
	}
	if len(logger.lines) == 0 {
		t.Fatal("expected save failure to be logged")
	}
}

func TestMiddleware_ReserveFailureIsUnavailable(t *testing.T) {
	store := &stubStore{failReserve: true}
	handler := Middleware(store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run when the store is down")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newOrderRequest("down-key", `{}`))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestMemoryStore_ExpiredRecordsAreReclaimed(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Reserve(ctx, "k", "fp-1", fixedTime, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	later := fixedTime.Add(2 * time.Minute)
	reservation, err := store.Reserve(ctx, "k", "fp-2", later, time.Minute)
	if err != nil {
		t.Fatalf("reserve after expiry: %v", err)
	}
	if reservation.State != ReservationStateNew || reservation.Record.Fingerprint != "fp-2" {
		t.Fatalf("expected fresh reservation, got %+v", reservation)
	}

	removed, err := store.CleanupExpired(ctx, later.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 || store.Len() != 0 {
		t.Fatalf("expected one record removed, removed=%d remaining=%d", removed, store.Len())
	}
}

func TestMemoryStore_ReleaseIgnoresForeignFingerprint(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Reserve(ctx, "k", "fp-1", fixedTime, time.Hour); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.Release(ctx, "k", "fp-other"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("foreign release must not delete the reservation")
	}
}

type stubStore struct {
	failSave    bool
	failReserve bool
	released    bool
}

func (s *stubStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Reservation, error) {
	if s.failReserve {
		return Reservation{}, errors.New("store unavailable")
	}
	return Reservation{State: ReservationStateNew}, nil
}

func (s *stubStore) SaveResponse(context.Context, string, string, Response, time.Time, time.Duration) error {
	if s.failSave {
		return errors.New("save failed")
	}
	return nil
}

func (s *stubStore) Release(context.Context, string, string) error {
	s.released = true
	return nil
}

func (s *stubStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

type capturingLogger struct {
	lines []string
}

func (l *capturingLogger) Printf(format string, _ ...any) {
	l.lines = append(l.lines, format)
}

func assertErrorResponse(t *testing.T, payload []byte, expected string) {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
