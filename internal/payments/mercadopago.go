// Package payments integrates Mercado Pago checkout with the order lifecycle.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vendazap/platform/pkg/logging"
)

const defaultMercadoPagoBaseURL = "https://api.mercadopago.com"

// MercadoPagoConfig configures the Mercado Pago REST client.
type MercadoPagoConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *logging.Logger
}

// MercadoPagoClient calls the Mercado Pago REST API.
type MercadoPagoClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewMercadoPagoClient builds a client with sane defaults.
func NewMercadoPagoClient(cfg MercadoPagoConfig) (*MercadoPagoClient, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("payments: mercado pago access token is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultMercadoPagoBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &MercadoPagoClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// PreferenceItem is one line item in a checkout preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// PreferenceRequest creates a Mercado Pago checkout preference.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             PreferencePayer  `json:"payer"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

// PreferencePayer identifies the paying customer.
type PreferencePayer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BackURLs are the redirect targets after checkout.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Preference is the created checkout preference.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// PaymentInfo is the subset of a Mercado Pago payment this system reads.
type PaymentInfo struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	PaymentMethodID   string      `json:"payment_method_id"`
}

// Refund is a created refund.
type Refund struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}

// PaymentMethod is one available payment method.
type PaymentMethod struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PaymentType string `json:"payment_type_id"`
	Status      string `json:"status"`
}

// CreatePreference creates a checkout preference.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, fmt.Errorf("payments: create preference: %w", err)
	}
	return &pref, nil
}

// GetPayment fetches one payment by id.
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, errors.New("payments: payment id required")
	}
	var info PaymentInfo
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &info); err != nil {
		return nil, fmt.Errorf("payments: get payment %s: %w", paymentID, err)
	}
	return &info, nil
}

// RefundPayment refunds a payment. amount <= 0 refunds the full amount.
func (c *MercadoPagoClient) RefundPayment(ctx context.Context, paymentID string, amount float64) (*Refund, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, errors.New("payments: payment id required")
	}
	var body any
	if amount > 0 {
		body = map[string]float64{"amount": amount}
	}
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refunds", body, &refund); err != nil {
		return nil, fmt.Errorf("payments: refund payment %s: %w", paymentID, err)
	}
	return &refund, nil
}

// ListPaymentMethods returns the available payment methods.
func (c *MercadoPagoClient) ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/v1/payment_methods", nil, &methods); err != nil {
		return nil, fmt.Errorf("payments: list payment methods: %w", err)
	}
	return methods, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeMercadoPagoError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// MercadoPagoError is a non-2xx Mercado Pago response.
type MercadoPagoError struct {
	StatusCode int
	Message    string
}

func (e *MercadoPagoError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mercado pago: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mercado pago: status %d", e.StatusCode)
}

func decodeMercadoPagoError(status int, data []byte) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	mpErr := &MercadoPagoError{StatusCode: status}
	if json.Unmarshal(data, &body) == nil {
		mpErr.Message = body.Message
		if mpErr.Message == "" {
			mpErr.Message = body.Error
		}
	}
	return mpErr
}
