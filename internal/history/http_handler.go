package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/domain"
)

// Reader is the slice of the versioning client the history API needs.
type Reader interface {
	Versions(ctx context.Context, itemType string, itemID int64) ([]domain.Version, error)
	VersionByID(ctx context.Context, id int64) (domain.Version, error)
}

// Handler serves the read side of the ledger over HTTP:
//
//	GET /versions?item_type=<type>&item_id=<id>  — a record's full chain
//	GET /versions/<id>                           — one ledger entry
type Handler struct {
	client Reader
}

// NewHTTPHandler serves version history queries.
func NewHTTPHandler(client Reader) http.Handler {
	return &Handler{client: client}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if rest := strings.TrimPrefix(r.URL.Path, "/versions/"); rest != r.URL.Path && rest != "" {
		h.handleGetVersion(w, r, rest)
		return
	}
	h.handleListVersions(w, r)
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "version id must be an integer", http.StatusBadRequest)
		return
	}

	version, err := h.client.VersionByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "version not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load version: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, version)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
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

	versions, err := h.client.Versions(r.Context(), itemType, itemID)
	if err != nil {
		http.Error(w, "failed to list versions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, versions)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
