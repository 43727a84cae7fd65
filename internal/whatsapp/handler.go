package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vendazap/platform/pkg/logging"
)

var webhookTracer = otel.Tracer("vendazap.internal.whatsapp")

// EnvelopeProcessor consumes a raw webhook payload.
type EnvelopeProcessor interface {
	ProcessEnvelope(ctx context.Context, payload []byte) error
}

// TemplateAPI is the slice of the Cloud API client the HTTP handlers use.
type TemplateAPI interface {
	SendTemplate(ctx context.Context, req SendTemplateRequest) (string, error)
	ListTemplates(ctx context.Context) ([]Template, error)
}

// Handler serves the WhatsApp webhook and template endpoints.
type Handler struct {
	pipeline    EnvelopeProcessor
	api         TemplateAPI
	verifyToken string
	logger      *logging.Logger
}

// NewHandler creates the WhatsApp HTTP handler. api may be nil when template
// endpoints are not mounted.
func NewHandler(pipeline EnvelopeProcessor, api TemplateAPI, verifyToken string, logger *logging.Logger) *Handler {
	if pipeline == nil {
		panic("whatsapp: pipeline cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pipeline: pipeline, api: api, verifyToken: verifyToken, logger: logger}
}

// Verify handles GET /whatsapp/webhook, the Cloud API subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken && h.verifyToken != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, challenge)
		return
	}
	h.logger.Warn("webhook verification rejected", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// Webhook handles POST /whatsapp/webhook. Per-message processing failures
// are logged and acknowledged with 200 so the Cloud API does not redeliver
// the batch; only a body that cannot be parsed as JSON is rejected.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "whatsapp.webhook")
	defer span.End()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		span.RecordError(err)
		http.Error(w, "Invalid payload", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("vendazap.webhook.bytes", len(payload)))

	if err := h.pipeline.ProcessEnvelope(ctx, payload); err != nil {
		h.logger.Error("malformed webhook payload", "error", err)
		span.RecordError(err)
		http.Error(w, "Invalid payload", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// SendTemplate handles POST /whatsapp/send-template.
func (h *Handler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	if h.api == nil {
		http.Error(w, "Template sending not configured", http.StatusServiceUnavailable)
		return
	}
	var req SendTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	messageID, err := h.api.SendTemplate(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to send template", "error", err, "template", req.TemplateName)
		http.Error(w, "Failed to send template", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"message_id": messageID,
	})
}

// Templates handles GET /whatsapp/templates.
func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	if h.api == nil {
		http.Error(w, "Template listing not configured", http.StatusServiceUnavailable)
		return
	}
	templates, err := h.api.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error("failed to list templates", "error", err)
		http.Error(w, "Failed to list templates", http.StatusBadGateway)
		return
	}
	if templates == nil {
		templates = []Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
