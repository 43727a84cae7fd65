package orders

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

// Handler handles HTTP requests for orders.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new orders handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /orders requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit := 100
	offset := 0
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

	list, err := h.repo.ListByUser(r.Context(), user.ID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", user.ID)
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /orders requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.repo.CreateWithItems(r.Context(), user.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidItem):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to create order", "error", err, "user_id", user.ID)
			http.Error(w, "failed to create order", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("order created", "id", order.ID, "user_id", user.ID, "items", len(order.Items))
	writeJSON(w, http.StatusCreated, order)
}

// Get handles GET /orders/{orderID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.repo.GetByIDAndUser(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load order", "error", err, "order_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus handles PUT /orders/{orderID}/status requests.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
		http.Error(w, ErrInvalidStatus.Error(), http.StatusBadRequest)
		return
	}

	// Ownership check before the blind status update.
	if _, err := h.repo.GetByIDAndUser(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load order", "error", err, "order_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status, "")
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "order_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
