package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vendazap/platform/internal/auth"
	"github.com/vendazap/platform/internal/orders"
	"github.com/vendazap/platform/pkg/logging"
)

var paymentsTracer = otel.Tracer("vendazap.internal.payments")

// Handler serves the payment endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the payments HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("payments: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type createPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

// Create handles POST /payments/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == uuid.Nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	checkout, err := h.service.CreateCheckout(r.Context(), CheckoutUser{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
	}, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, orders.ErrAlreadyPaid):
			http.Error(w, "order already has a payment", http.StatusBadRequest)
		default:
			h.logger.Error("failed to create checkout", "error", err, "order_id", req.OrderID)
			http.Error(w, "failed to create payment", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}

// Status handles GET /payments/status/{paymentID}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	paymentID := chi.URLParam(r, "paymentID")
	status, err := h.service.Status(r.Context(), user.ID, paymentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			http.Error(w, "payment not found", http.StatusNotFound)
		case errors.Is(err, ErrAccessDenied):
			http.Error(w, "access denied", http.StatusForbidden)
		default:
			h.logger.Error("failed to check payment status", "error", err, "payment_id", paymentID)
			http.Error(w, "failed to check payment status", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Methods handles GET /payments/methods.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.Methods(r.Context())
	if err != nil {
		h.logger.Error("failed to list payment methods", "error", err)
		http.Error(w, "failed to list payment methods", http.StatusBadGateway)
		return
	}
	if methods == nil {
		methods = []PaymentMethod{}
	}
	writeJSON(w, http.StatusOK, methods)
}

type refundRequest struct {
	Amount float64 `json:"amount"`
}

// Refund handles POST /payments/refund/{paymentID}. An absent or zero amount
// refunds the full payment.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	paymentID := chi.URLParam(r, "paymentID")
	var req refundRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	refund, err := h.service.Refund(r.Context(), user.ID, paymentID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			http.Error(w, "payment not found", http.StatusNotFound)
		case errors.Is(err, ErrAccessDenied):
			http.Error(w, "access denied", http.StatusForbidden)
		default:
			h.logger.Error("failed to refund payment", "error", err, "payment_id", paymentID)
			http.Error(w, "failed to refund payment", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, refund)
}

type webhookNotification struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// Webhook handles POST /payments/webhook, the Mercado Pago notification
// endpoint. Processing failures are logged and acknowledged so the gateway
// does not retry indefinitely against a persistent fault.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := paymentsTracer.Start(r.Context(), "payments.webhook")
	defer span.End()

	var notification webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		h.logger.Warn("malformed payment webhook", "error", err)
		span.RecordError(err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
		return
	}
	span.SetAttributes(attribute.String("vendazap.payment.notification_type", notification.Type))
	if notification.Type == "payment" && notification.Data.ID.String() != "" {
		if err := h.service.HandleNotification(ctx, notification.Data.ID.String()); err != nil {
			h.logger.Error("failed to process payment notification",
				"error", err,
				"payment_id", notification.Data.ID.String(),
			)
			span.RecordError(err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// Success handles the checkout success redirect.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	if err := h.service.MarkReturned(r.Context(), paymentID, orders.StatusPaid); err != nil {
		h.logger.Error("failed to apply success redirect", "error", err, "payment_id", paymentID)
		http.Error(w, "failed to process payment return", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Pagamento processado com sucesso",
	})
}

// Failure handles the checkout failure redirect.
func (h *Handler) Failure(w http.ResponseWriter, r *http.Request) {
	paymentID := r.URL.Query().Get("payment_id")
	if err := h.service.MarkReturned(r.Context(), paymentID, orders.StatusPending); err != nil {
		h.logger.Error("failed to apply failure redirect", "error", err, "payment_id", paymentID)
		http.Error(w, "failed to process payment return", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "failure",
		"message": "Falha no processamento do pagamento",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
