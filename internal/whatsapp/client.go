package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vendazap/platform/pkg/logging"
)

const (
	defaultBaseURL   = "https://graph.facebook.com/v17.0"
	defaultUserAgent = "vendazap-whatsapp/0.1"
)

// Config controls how the WhatsApp Cloud API client behaves.
type Config struct {
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
	BusinessID    string
	Timeout       time.Duration
	MaxRetries    int
	Backoff       time.Duration
	HTTPClient    *http.Client
	Logger        *logging.Logger
	UserAgent     string
}

// Client wraps the WhatsApp Cloud API endpoints this system uses.
type Client struct {
	accessToken   string
	baseURL       string
	phoneNumberID string
	businessID    string
	httpClient    *http.Client
	maxRetries    int
	backoff       time.Duration
	logger        *logging.Logger
	userAgent     string
}

// NewClient creates a configured Client with sane defaults.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("whatsapp: access token is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp: phone number id is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		accessToken:   cfg.AccessToken,
		baseURL:       baseURL,
		phoneNumberID: cfg.PhoneNumberID,
		businessID:    cfg.BusinessID,
		httpClient:    httpClient,
		maxRetries:    maxRetries,
		backoff:       backoff,
		logger:        logger,
		userAgent:     userAgent,
	}, nil
}

// SendText sends a plain text message and returns the provider message id.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", errors.New("whatsapp: recipient number required")
	}
	payload := sendPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	}
	return c.send(ctx, payload)
}

// SendTemplate sends a pre-approved template message.
func (c *Client) SendTemplate(ctx context.Context, req SendTemplateRequest) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	languageCode := req.LanguageCode
	if languageCode == "" {
		languageCode = "pt_BR"
	}
	payload := sendPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               req.To,
		Type:             "template",
		Template: &templatePayload{
			Name:       req.TemplateName,
			Language:   templateLanguage{Code: languageCode},
			Components: req.Components,
		},
	}
	return c.send(ctx, payload)
}

// SendImage sends an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, imageURL, caption string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", errors.New("whatsapp: recipient number required")
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", errors.New("whatsapp: image url required")
	}
	payload := sendPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "image",
		Image:            &imagePayload{Link: imageURL, Caption: caption},
	}
	return c.send(ctx, payload)
}

// SendLocation sends a location pin.
func (c *Client) SendLocation(ctx context.Context, req SendLocationRequest) (string, error) {
	if strings.TrimSpace(req.To) == "" {
		return "", errors.New("whatsapp: recipient number required")
	}
	payload := sendPayload{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               req.To,
		Type:             "location",
		Location: &locationPayload{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Name:      req.Name,
			Address:   req.Address,
		},
	}
	return c.send(ctx, payload)
}

// MarkAsRead marks an inbound message as read.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return errors.New("whatsapp: message id required")
	}
	body, err := json.Marshal(map[string]string{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	})
	if err != nil {
		return fmt.Errorf("whatsapp: marshal read receipt: %w", err)
	}
	_, err = c.invoke(ctx, http.MethodPost, "/"+c.phoneNumberID+"/messages", nil, body)
	return err
}

// ListTemplates returns the message templates of the business account.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	if strings.TrimSpace(c.businessID) == "" {
		return nil, errors.New("whatsapp: business id required to list templates")
	}
	data, err := c.invoke(ctx, http.MethodGet, "/"+c.businessID+"/message_templates", nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []Template `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("whatsapp: decode templates: %w", err)
	}
	return out.Data, nil
}

func (c *Client) send(ctx context.Context, payload sendPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal send body: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/"+c.phoneNumberID+"/messages", nil, body)
	if err != nil {
		return "", err
	}
	var resp sendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("whatsapp: decode send response: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", errors.New("whatsapp: send response carried no message id")
	}
	return resp.Messages[0].ID, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("whatsapp: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !retryableError(err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("whatsapp: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("whatsapp: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && retryableStatus(resp.StatusCode) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("whatsapp: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff << attempt
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt, status int, err error) {
	c.logger.Warn("whatsapp request retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func retryableError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// APIError is a non-2xx response from the Cloud API.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("whatsapp: api error %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("whatsapp: api error %d", e.StatusCode)
}

func decodeAPIError(status int, data []byte) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error.Message
		apiErr.Type = body.Error.Type
		apiErr.Code = body.Error.Code
	}
	return apiErr
}
