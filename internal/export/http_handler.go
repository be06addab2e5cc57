package export

import (
	"net/http"
	"strconv"
	"strings"
)

type Handler struct {
	service *Service
}

// NewHTTPHandler serves xlsx history downloads.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	itemType := strings.TrimSpace(r.URL.Query().Get("item_type"))
	if itemType == "" {
		http.Error(w, "item_type is required", http.StatusBadRequest)
		return
	}
	itemID, err := strconv.ParseInt(r.URL.Query().Get("item_id"), 10, 64)
	if err != nil {
		http.Error(w, "item_id must be an integer", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.service.FileName(itemType, itemID)+`"`)

	if err := h.service.WriteWorkbook(r.Context(), itemType, itemID, w); err != nil {
		http.Error(w, "failed to export history: "+err.Error(), http.StatusInternalServerError)
		return
	}
}
