package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/httpx"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// CompanyHandlers exposes business-account notices for the back office.
type CompanyHandlers struct {
	companies services.CompanyService
}

// NewCompanyHandlers constructs CompanyHandlers.
func NewCompanyHandlers(companies services.CompanyService) *CompanyHandlers {
	return &CompanyHandlers{companies: companies}
}

// AdminRoutes registers company endpoints under /admin.
func (h *CompanyHandlers) AdminRoutes(r chi.Router) {
	r.Post("/companies/{companyID}:notify-approval", h.notifyApproval)
}

type approvalRequest struct {
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Approved     bool   `json:"approved"`
}

func (h *CompanyHandlers) notifyApproval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req approvalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	err := h.companies.NotifyApproval(ctx, services.CompanyApprovalCommand{
		Company: services.Company{
			ID:           chi.URLParam(r, "companyID"),
			Name:         req.Name,
			ContactName:  req.ContactName,
			ContactEmail: req.ContactEmail,
			Approved:     req.Approved,
		},
		ActorID: actorID(callerFrom(r)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
