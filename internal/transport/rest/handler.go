// Package rest provides HTTP handlers for inventory and sales operations.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	inverrors "github.com/abgdnv/goinventory/internal/errors"
	"github.com/abgdnv/goinventory/internal/service"
	"github.com/abgdnv/goinventory/pkg/web"
)

type Handler struct {
	service  service.InventoryService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the inventory API with the provided service.
func NewHandler(service service.InventoryService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the inventory service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)

			r.Route("/{sku}", func(r chi.Router) {
				r.Get("/", h.FindBySKU)
				r.Put("/", h.Update)
				r.Delete("/", h.Delete)
				r.Post("/sell", h.Sell)
			})
		})
		r.Get("/dashboard", h.Dashboard)
		r.Post("/inventory/import", h.Import)
	})

	r.Get("/healthz", h.HealthCheck)
}

// importRequest is the body of an import call. The path points at a catalog
// file readable by the server.
type importRequest struct {
	Path string `json:"path" validate:"required"`
}

// List returns the whole catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.DebugContext(r.Context(), "Received request to list inventory")
	list, err := h.service.ListInventory(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved inventory", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindBySKU retrieves a product by its SKU.
func (h *Handler) FindBySKU(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sku, ok := web.ParseSKU(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product", "sku", sku)
	found, err := h.service.GetProduct(r.Context(), sku)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product", "sku", found.SKU, "name", found.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var productCreateDto service.ProductCreateDto
	if err := json.NewDecoder(r.Body).Decode(&productCreateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create product", "sku", productCreateDto.SKU)
	if !h.validateBody(w, r, mLogger, productCreateDto) {
		return
	}

	newProduct, err := h.service.AddProduct(r.Context(), productCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", "sku", newProduct.SKU, "name", newProduct.Name)
	web.RespondJSON(w, mLogger, http.StatusCreated, newProduct)
}

// Update applies a partial update to an existing product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sku, ok := web.ParseSKU(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update product", "sku", sku)
	var updateDto service.ProductUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&updateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateBody(w, r, mLogger, updateDto) {
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), sku, updateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", "sku", updated.SKU, "name", updated.Name)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Delete removes a product by its SKU.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sku, ok := web.ParseSKU(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to delete product", "sku", sku)
	if err := h.service.DeleteProduct(r.Context(), sku); err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", "sku", sku)
	w.WriteHeader(http.StatusNoContent)
}

// Sell sells a quantity of a product and returns the receipt.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sku, ok := web.ParseSKU(w, r, mLogger)
	if !ok {
		return
	}
	var saleDto service.SaleCreateDto
	if err := json.NewDecoder(r.Body).Decode(&saleDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to sell product", "sku", sku, "quantity", saleDto.Quantity)
	if !h.validateBody(w, r, mLogger, saleDto) {
		return
	}

	receipt, err := h.service.SellProduct(r.Context(), sku, saleDto.Quantity)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Sale recorded successfully",
		"sku", receipt.SKU, "quantity", receipt.Quantity, "total_ttc", receipt.TotalTTC)
	web.RespondJSON(w, mLogger, http.StatusCreated, receipt)
}

// Dashboard aggregates the catalog and the sales ledger.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.DebugContext(r.Context(), "Received request for dashboard data")
	dashboard, err := h.service.DashboardData(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, dashboard)
}

// Import wipes the database and loads the catalog from a server-side JSON file.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateBody(w, r, mLogger, req) {
		return
	}

	mLogger.InfoContext(r.Context(), "Received request to import catalog", "path", req.Path)
	count, err := h.service.InitializeFromJSON(r.Context(), req.Path)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Catalog imported successfully", "count", count)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]int{"imported": count})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// validateBody runs struct tag validation on a decoded body and writes the
// field-level error response on failure.
func (h *Handler) validateBody(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			// If the error is a validation error, we can extract field-specific errors.
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				// fieldErr.Tag() returns "required", "max", etc.
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		// If it's not a validation error, we can return a generic error.
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps the error taxonomy onto HTTP status codes. Only
// categorized errors expose their message; anything else stays generic.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error) {
	ctx := r.Context()
	switch {
	case inverrors.IsValidationError(err):
		mLogger.WarnContext(ctx, "Validation failed", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	case inverrors.IsNotFoundError(err):
		mLogger.WarnContext(ctx, "Product not found", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, err.Error())
	case inverrors.IsStockError(err):
		mLogger.WarnContext(ctx, "Insufficient stock", "error", err)
		web.RespondError(w, mLogger, http.StatusConflict, err.Error())
	case inverrors.IsDataImportError(err):
		mLogger.WarnContext(ctx, "Catalog import failed", "error", err)
		web.RespondError(w, mLogger, http.StatusUnprocessableEntity, err.Error())
	default:
		mLogger.ErrorContext(ctx, "Internal error", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
