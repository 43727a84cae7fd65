package whatsapp

import (
	"encoding/json"
	"errors"
	"strings"
)

type sendPayload struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
	Image            *imagePayload    `json:"image,omitempty"`
	Location         *locationPayload `json:"location,omitempty"`
}

type textPayload struct {
	Body string `json:"body"`
}

type templatePayload struct {
	Name       string            `json:"name"`
	Language   templateLanguage  `json:"language"`
	Components []json.RawMessage `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type imagePayload struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTemplateRequest describes an outbound template message.
type SendTemplateRequest struct {
	To           string            `json:"to_number"`
	TemplateName string            `json:"template_name"`
	LanguageCode string            `json:"language_code"`
	Components   []json.RawMessage `json:"components,omitempty"`
}

func (r SendTemplateRequest) validate() error {
	if strings.TrimSpace(r.To) == "" {
		return errors.New("whatsapp: recipient number required")
	}
	if strings.TrimSpace(r.TemplateName) == "" {
		return errors.New("whatsapp: template name required")
	}
	return nil
}

// SendLocationRequest describes an outbound location pin.
type SendLocationRequest struct {
	To        string  `json:"to_number"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Template is a message template registered on the business account.
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Status   string `json:"status"`
	Category string `json:"category"`
}
