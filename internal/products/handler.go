package products

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendazap/platform/internal/auth"
	"github.com/vendazap/platform/pkg/logging"
)

// Handler handles HTTP requests for products. All routes operate on the
// authenticated merchant's own catalog.
type Handler struct {
	repo    Repository
	catalog *CachedCatalog
	logger  *logging.Logger
}

// NewHandler creates a new products handler. catalog may be nil when no
// cache is configured.
func NewHandler(repo Repository, catalog *CachedCatalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, catalog: catalog, logger: logger}
}

// List handles GET /products requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit, offset := pagination(r)
	list, err := h.repo.ListByOwner(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list products", "error", err, "owner_id", user.ID)
		http.Error(w, "failed to list products", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /products requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.repo.CreateWithOwner(r.Context(), user.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingName), errors.Is(err, ErrNegativePrice), errors.Is(err, ErrNegativeStock):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to create product", "error", err)
			http.Error(w, "failed to create product", http.StatusInternalServerError)
		}
		return
	}
	h.invalidateCatalog(r)

	h.logger.Info("product created", "id", product.ID, "owner_id", user.ID, "name", product.Name)
	writeJSON(w, http.StatusCreated, product)
}

// Get handles GET /products/{productID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	product, err := h.repo.GetByIDAndOwner(r.Context(), id, user.ID)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Update handles PUT /products/{productID} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	product, err := h.repo.Update(r.Context(), id, user.ID, &req)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	h.invalidateCatalog(r)
	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{productID} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), id, user.ID); err != nil {
		h.respondLookupError(w, err)
		return
	}
	h.invalidateCatalog(r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidateCatalog(r *http.Request) {
	if h.catalog != nil {
		h.catalog.Invalidate(r.Context())
	}
}

func (h *Handler) ownerAndID(w http.ResponseWriter, r *http.Request) (*auth.User, uuid.UUID, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return nil, uuid.Nil, false
	}
	return user, id, true
}

func (h *Handler) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrProductNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	h.logger.Error("product lookup failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
