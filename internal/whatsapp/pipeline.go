package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendazap/platform/internal/ai"
	"github.com/vendazap/platform/internal/customers"
	"github.com/vendazap/platform/internal/observability/metrics"
	"github.com/vendazap/platform/internal/products"
	"github.com/vendazap/platform/pkg/logging"
)

// DefaultCustomerName is assigned to customers first seen via WhatsApp.
const DefaultCustomerName = "Cliente WhatsApp"

// DefaultCatalogLimit caps how many products a catalog message lists.
const DefaultCatalogLimit = 5

// TextSender sends a plain text message and returns the provider message id.
type TextSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// CustomerStore is the slice of the customer repository the pipeline needs.
type CustomerStore interface {
	GetOrCreateByNumber(ctx context.Context, number, defaultName string) (*customers.Customer, bool, error)
	AppendInteraction(ctx context.Context, id uuid.UUID, rec customers.InteractionRecord) (*customers.Customer, error)
}

// CatalogSource lists active products for catalog messages.
type CatalogSource interface {
	ListActive(ctx context.Context, limit int) ([]*products.Product, error)
}

// Pipeline runs an inbound WhatsApp message through customer resolution,
// interaction logging, classification, and reply.
type Pipeline struct {
	store        CustomerStore
	classifier   ai.Classifier
	sender       TextSender
	catalog      CatalogSource
	catalogLimit int
	metrics      *metrics.MessagingMetrics
	logger       *logging.Logger
}

// NewPipeline wires the message processing pipeline. metrics may be nil.
func NewPipeline(store CustomerStore, classifier ai.Classifier, sender TextSender, catalog CatalogSource, catalogLimit int, m *metrics.MessagingMetrics, logger *logging.Logger) *Pipeline {
	if store == nil {
		panic("whatsapp: customer store cannot be nil")
	}
	if classifier == nil {
		panic("whatsapp: classifier cannot be nil")
	}
	if sender == nil {
		panic("whatsapp: sender cannot be nil")
	}
	if catalog == nil {
		panic("whatsapp: catalog source cannot be nil")
	}
	if catalogLimit <= 0 {
		catalogLimit = DefaultCatalogLimit
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		store:        store,
		classifier:   classifier,
		sender:       sender,
		catalog:      catalog,
		catalogLimit: catalogLimit,
		metrics:      m,
		logger:       logger,
	}
}

// ProcessEnvelope runs every message in the payload through ProcessIncoming.
// Per-message failures are logged and swallowed so a single bad message never
// fails the webhook, which would make the Cloud API redeliver the whole batch.
func (p *Pipeline) ProcessEnvelope(ctx context.Context, payload []byte) error {
	start := time.Now()
	messages, err := DecodeEnvelope(payload)
	if err != nil {
		p.metrics.ObserveInbound("unknown", "malformed")
		return fmt.Errorf("whatsapp: decode webhook payload: %w", err)
	}
	for _, msg := range messages {
		if err := p.ProcessIncoming(ctx, msg); err != nil {
			p.logger.Error("failed to process inbound message",
				"error", err,
				"from", msg.From,
				"message_id", msg.ID,
			)
		}
	}
	p.metrics.ObserveWebhookLatency("whatsapp", time.Since(start).Seconds())
	return nil
}

// ProcessIncoming handles one inbound message end to end.
func (p *Pipeline) ProcessIncoming(ctx context.Context, msg InboundMessage) error {
	body := msg.Body()

	customer, created, err := p.store.GetOrCreateByNumber(ctx, msg.From, DefaultCustomerName)
	if err != nil {
		p.metrics.ObserveInbound("unknown", "error")
		return fmt.Errorf("whatsapp: resolve customer %s: %w", msg.From, err)
	}
	if created {
		p.logger.Info("new whatsapp customer", "customer_id", customer.ID, "number", msg.From)
	}

	if _, err := p.store.AppendInteraction(ctx, customer.ID, customers.InteractionRecord{
		Type:      customers.InteractionMessageReceived,
		Content:   body,
		MessageID: msg.ID,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		p.metrics.ObserveInbound("unknown", "error")
		return fmt.Errorf("whatsapp: record inbound message: %w", err)
	}

	result, err := p.classifier.Classify(ctx, body)
	if err != nil {
		p.metrics.ObserveInbound("unknown", "error")
		return fmt.Errorf("whatsapp: classify message: %w", err)
	}
	p.metrics.ObserveInbound(string(result.Intent), "ok")

	if !result.ShouldRespond {
		return nil
	}

	if err := p.reply(ctx, customer.ID, msg.From, result.Response); err != nil {
		return err
	}

	if result.Intent == ai.IntentPurchase {
		return p.sendCatalog(ctx, msg.From)
	}
	return nil
}

func (p *Pipeline) reply(ctx context.Context, customerID uuid.UUID, to, body string) error {
	messageID, err := p.sender.SendText(ctx, to, body)
	if err != nil {
		p.metrics.ObserveOutbound("text", "error")
		return fmt.Errorf("whatsapp: send reply to %s: %w", to, err)
	}
	p.metrics.ObserveOutbound("text", "success")
	if _, err := p.store.AppendInteraction(ctx, customerID, customers.InteractionRecord{
		Type:      customers.InteractionMessageSent,
		Content:   body,
		MessageID: messageID,
		Status:    "success",
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("whatsapp: record outbound message: %w", err)
	}
	return nil
}

// sendCatalog pushes the product catalog as a follow-up message. The send is
// not logged as an interaction; only direct replies land in the history.
func (p *Pipeline) sendCatalog(ctx context.Context, to string) error {
	list, err := p.catalog.ListActive(ctx, p.catalogLimit)
	if err != nil {
		return fmt.Errorf("whatsapp: load catalog: %w", err)
	}
	if _, err := p.sender.SendText(ctx, to, ComposeCatalogMessage(list)); err != nil {
		p.metrics.ObserveOutbound("catalog", "error")
		return fmt.Errorf("whatsapp: send catalog to %s: %w", to, err)
	}
	p.metrics.ObserveOutbound("catalog", "success")
	return nil
}
