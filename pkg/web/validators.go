package web

import (
	"log/slog"
	"net/http"
	"strings"
)

// ParseSKU extracts and validates the SKU from the request path. Returns the
// SKU and a boolean indicating success.
func ParseSKU(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	sku := strings.TrimSpace(r.PathValue("sku"))
	if sku == "" {
		RespondError(w, logger, http.StatusBadRequest, "SKU path parameter is required")
		return "", false
	}
	return sku, true
}
