package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vendazap/platform/pkg/logging"
)

const systemPrompt = "Você é um assistente de vendas de uma loja brasileira que atende " +
	"clientes pelo WhatsApp. Responda sempre em português, de forma educada, curta e " +
	"objetiva. Ajude o cliente com dúvidas sobre produtos, preços e pedidos. " +
	"Se o cliente demonstrar interesse em comprar, incentive-o a conhecer o catálogo."

// ChatCompleter is the slice of the OpenAI client the classifier needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClassifier drafts replies with OpenAI chat completions and tags
// purchase intent from the inbound text.
type OpenAIClassifier struct {
	client ChatCompleter
	model  string
	logger *logging.Logger
}

// NewOpenAIClassifier builds a classifier over the given chat client.
func NewOpenAIClassifier(client ChatCompleter, model string, logger *logging.Logger) *OpenAIClassifier {
	if client == nil {
		panic("ai: chat client is required")
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIClassifier{client: client, model: model, logger: logger}
}

// Classify drafts a reply for the message. Completion failures degrade to a
// canned apology tagged intent=error rather than propagating, so the caller
// still answers the customer.
func (c *OpenAIClassifier) Classify(ctx context.Context, message string) (Classification, error) {
	result := Classification{
		ShouldRespond: true,
		Intent:        IntentGeneral,
	}
	if DetectPurchaseIntent(message) {
		result.Intent = IntentPurchase
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Classification{}, ctx.Err()
		}
		c.logger.Error("chat completion failed", "error", err)
		result.Response = FallbackResponse
		result.Intent = IntentError
		result.Confidence = false
		return result, nil
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("chat completion returned no choices")
		result.Response = FallbackResponse
		result.Intent = IntentError
		result.Confidence = false
		return result, nil
	}

	choice := resp.Choices[0]
	reply := strings.TrimSpace(choice.Message.Content)
	if reply == "" {
		reply = FallbackResponse
		result.Intent = IntentError
	}
	result.Response = reply
	result.Confidence = choice.FinishReason == openai.FinishReasonStop
	return result, nil
}

// AnalyzeSentiment asks the model for a one-word sentiment label.
func (c *OpenAIClassifier) AnalyzeSentiment(ctx context.Context, message string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Classifique o sentimento da mensagem do cliente em uma única " +
					"palavra: positivo, negativo ou neutro.",
			},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		return "", fmt.Errorf("ai: analyze sentiment: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: sentiment response carried no choices")
	}
	return strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}
