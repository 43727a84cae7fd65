package customers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendazap/platform/internal/auth"
	"github.com/vendazap/platform/pkg/logging"
)

// Messenger sends a text message and returns the provider message id.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// activeWindow is how far back a customer's last interaction may be for
// the customer to count as active.
const activeWindow = 30 * 24 * time.Hour

// Handler handles HTTP requests for customers.
type Handler struct {
	repo      Repository
	messenger Messenger
	logger    *logging.Logger
}

// NewHandler creates a new customers handler.
func NewHandler(repo Repository, messenger Messenger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, messenger: messenger, logger: logger}
}

// List handles GET /customers requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	list, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list customers", "error", err)
		http.Error(w, "failed to list customers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListActive handles GET /customers/active requests. Active means the
// customer interacted within the last 30 days.
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	since := time.Now().UTC().Add(-activeWindow)
	list, err := h.repo.ListActiveSince(r.Context(), since, limit, offset)
	if err != nil {
		h.logger.Error("failed to list active customers", "error", err)
		http.Error(w, "failed to list customers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /customers requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	customer, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateNumber):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrMissingNumber), errors.Is(err, ErrInvalidNumber), errors.Is(err, ErrMissingName):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to create customer", "error", err)
			http.Error(w, "failed to create customer", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("customer created", "id", customer.ID, "whatsapp_number", customer.WhatsAppNumber)
	writeJSON(w, http.StatusCreated, customer)
}

// Get handles GET /customers/{customerID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	customer, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Update handles PUT /customers/{customerID} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	var req UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	customer, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
}

// SendMessage handles POST /customers/{customerID}/send-message requests.
// The interaction is logged whether the send succeeds or fails; a failed
// send produces a record with status "error".
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	customer, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}

	sentBy := ""
	if user, ok := auth.UserFromContext(r.Context()); ok {
		sentBy = user.Email
	}

	messageID, sendErr := h.messenger.SendText(r.Context(), customer.WhatsAppNumber, req.Content)
	rec := InteractionRecord{
		Type:      InteractionMessageSent,
		Content:   req.Content,
		MessageID: messageID,
		SentBy:    sentBy,
		Status:    "success",
	}
	if sendErr != nil {
		rec.Status = "error"
		rec.Error = sendErr.Error()
	}
	if _, appendErr := h.repo.AppendInteraction(r.Context(), id, rec); appendErr != nil {
		h.logger.Error("failed to log interaction", "error", appendErr, "customer_id", id)
	}

	if sendErr != nil {
		h.logger.Error("failed to send message", "error", sendErr, "customer_id", id)
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sendMessageResponse{Status: "success", MessageID: messageID})
}

func (h *Handler) customerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrCustomerNotFound) {
		http.Error(w, "customer not found", http.StatusNotFound)
		return
	}
	h.logger.Error("customer lookup failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
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
