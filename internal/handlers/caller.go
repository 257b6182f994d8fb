package handlers

import (
	"net/http"
	"strings"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/httpx"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/observability"
	"github.com/solarshop412/solar-shop-sub000/internal/platform/requestctx"
)

// Headers set by the storefront gateway after it has authenticated the shopper.
const (
	HeaderCustomerID = "X-Customer-Id"
	HeaderCompanyID  = "X-Company-Id"
	HeaderRole       = "X-User-Role"

	roleAdmin = "admin"
)

// CallerMiddleware records the gateway-supplied identity on the request context. Requests
// without headers continue as anonymous callers.
func CallerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := requestctx.Caller{
				CustomerID: observability.SanitizeID(r.Header.Get(HeaderCustomerID)),
				CompanyID:  observability.SanitizeID(r.Header.Get(HeaderCompanyID)),
				Admin:      strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderRole)), roleAdmin),
			}
			if caller == (requestctx.Caller{}) {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithCaller(r.Context(), caller)))
		})
	}
}

// RequireAdmin rejects callers the gateway did not mark as administrators.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := requestctx.CallerFrom(r.Context())
		if !caller.Admin {
			httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "administrator role required", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerFrom(r *http.Request) requestctx.Caller {
	caller, _ := requestctx.CallerFrom(r.Context())
	return caller
}

// actorID identifies the caller in audit logs.
func actorID(caller requestctx.Caller) string {
	switch {
	case caller.Admin && caller.CustomerID != "":
		return "admin:" + caller.CustomerID
	case caller.Admin:
		return "admin"
	case caller.CustomerID != "":
		return caller.CustomerID
	default:
		return "anonymous"
	}
}
