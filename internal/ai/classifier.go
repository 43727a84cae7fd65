// Package ai classifies inbound customer messages and drafts replies.
package ai

import (
	"context"
	"strings"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentPurchase Intent = "purchase_intent"
	IntentGeneral  Intent = "general"
	IntentError    Intent = "error"
)

// Classification is the outcome of analysing one inbound message.
type Classification struct {
	ShouldRespond bool   `json:"should_respond"`
	Response      string `json:"response"`
	Intent        Intent `json:"intent"`
	Confidence    bool   `json:"confidence"`
}

// Classifier analyses an inbound message and proposes a reply.
type Classifier interface {
	Classify(ctx context.Context, message string) (Classification, error)
}

// FallbackResponse is sent when the language model is unavailable.
const FallbackResponse = "Desculpe, estou com dificuldades técnicas no momento. " +
	"Por favor, tente novamente mais tarde ou entre em contato com nosso suporte."

var purchaseKeywords = []string{
	"comprar",
	"preço",
	"valor",
	"quanto custa",
	"produtos",
	"catálogo",
	"disponível",
}

// DetectPurchaseIntent reports whether the message signals interest in buying.
func DetectPurchaseIntent(message string) bool {
	lowered := strings.ToLower(message)
	for _, keyword := range purchaseKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
