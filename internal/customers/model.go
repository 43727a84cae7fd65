package customers

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InteractionType identifies one kind of logged customer interaction.
type InteractionType string

const (
	InteractionMessageReceived InteractionType = "message_received"
	InteractionMessageSent     InteractionType = "message_sent"
	InteractionTemplateSent    InteractionType = "template_sent"
)

// InteractionRecord is one immutable entry in a customer's interaction
// history. The timestamp is assigned server-side at append time.
type InteractionRecord struct {
	Type         InteractionType `json:"type"`
	Content      string          `json:"content,omitempty"`
	TemplateName string          `json:"template_name,omitempty"`
	MessageID    string          `json:"message_id,omitempty"`
	Status       string          `json:"status,omitempty"`
	Error        string          `json:"error,omitempty"`
	SentBy       string          `json:"sent_by,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Customer is a WhatsApp contact. The WhatsApp number is the natural key:
// at most one row exists per number.
type Customer struct {
	ID                 uuid.UUID           `json:"id"`
	WhatsAppNumber     string              `json:"whatsapp_number"`
	Name               string              `json:"name"`
	Email              string              `json:"email,omitempty"`
	InteractionHistory []InteractionRecord `json:"interaction_history"`
	LastInteraction    *time.Time          `json:"last_interaction,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// CreateCustomerRequest is the request body for the explicit creation API.
type CreateCustomerRequest struct {
	WhatsAppNumber string `json:"whatsapp_number"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

// Validate checks the explicit creation request. The webhook path skips
// this: numbers arriving from the platform are taken as-is.
func (r *CreateCustomerRequest) Validate() error {
	number := strings.TrimSpace(r.WhatsAppNumber)
	if number == "" {
		return ErrMissingNumber
	}
	digits := strings.TrimPrefix(number, "+")
	if digits == "" {
		return ErrInvalidNumber
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return ErrInvalidNumber
		}
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	return nil
}

// UpdateCustomerRequest carries the mutable customer fields.
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}
