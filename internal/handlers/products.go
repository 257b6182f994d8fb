package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/solarshop412/solar-shop-sub000/internal/platform/httpx"
	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// ProductHandlers exposes read-only stock lookups for the storefront.
type ProductHandlers struct {
	stock services.StockLedger
}

// NewProductHandlers constructs ProductHandlers.
func NewProductHandlers(stock services.StockLedger) *ProductHandlers {
	return &ProductHandlers{stock: stock}
}

// Routes registers /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	r.Get("/{productID}/stock", h.getStock)
}

type stockPayload struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku,omitempty"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	StockStatus       string          `json:"stock_status"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	UpdatedAt         string          `json:"updated_at,omitempty"`
}

func (h *ProductHandlers) getStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stock, err := h.stock.GetStock(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
			return
		}
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stockPayload{
		ProductID:         stock.ProductID,
		Name:              stock.Name,
		SKU:               stock.SKU,
		Price:             stock.Price,
		StockQuantity:     stock.Quantity,
		StockStatus:       string(stock.Status),
		LowStockThreshold: stock.Threshold,
		UpdatedAt:         formatTime(stock.UpdatedAt),
	})
}
