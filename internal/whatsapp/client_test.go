package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{
		BaseURL:       srv.URL,
		AccessToken:   "token-123",
		PhoneNumberID: "555000",
		BusinessID:    "999000",
		MaxRetries:    2,
		Backoff:       time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSendTextReturnsMessageID(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.abc"}]}`))
	})

	id, err := client.SendText(context.Background(), "+5511999999999", "olá!")
	if err != nil {
		t.Fatalf("send text: %v", err)
	}
	if id != "wamid.abc" {
		t.Fatalf("expected wamid.abc, got %q", id)
	}
	if gotPath != "/555000/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer token-123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["messaging_product"] != "whatsapp" || gotBody["type"] != "text" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "olá!" {
		t.Fatalf("unexpected text body: %v", gotBody)
	}
}

func TestSendTextRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"try again"}}`, http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.retry"}]}`))
	})

	id, err := client.SendText(context.Background(), "+5511999999999", "oi")
	if err != nil {
		t.Fatalf("send text: %v", err)
	}
	if id != "wamid.retry" {
		t.Fatalf("expected wamid.retry, got %q", id)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestSendTextSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	})

	_, err := client.SendText(context.Background(), "+5511999999999", "oi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != 190 {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSendTemplateDefaultsLanguage(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.tpl"}]}`))
	})

	id, err := client.SendTemplate(context.Background(), SendTemplateRequest{
		To:           "+5511999999999",
		TemplateName: "order_update",
	})
	if err != nil {
		t.Fatalf("send template: %v", err)
	}
	if id != "wamid.tpl" {
		t.Fatalf("expected wamid.tpl, got %q", id)
	}
	tpl, _ := gotBody["template"].(map[string]any)
	lang, _ := tpl["language"].(map[string]any)
	if lang["code"] != "pt_BR" {
		t.Fatalf("expected pt_BR default, got %v", lang)
	}
}

func TestSendTemplateValidatesRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})
	if _, err := client.SendTemplate(context.Background(), SendTemplateRequest{To: "+551"}); err == nil {
		t.Fatal("expected validation error for missing template name")
	}
}

func TestSendLocation(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.loc"}]}`))
	})

	id, err := client.SendLocation(context.Background(), SendLocationRequest{
		To:        "+5511999999999",
		Latitude:  -23.5505,
		Longitude: -46.6333,
		Name:      "Loja Centro",
		Address:   "Av. Paulista, 1000",
	})
	if err != nil {
		t.Fatalf("send location: %v", err)
	}
	if id != "wamid.loc" {
		t.Fatalf("expected wamid.loc, got %q", id)
	}
	if gotBody["type"] != "location" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
	loc, _ := gotBody["location"].(map[string]any)
	if loc["latitude"] != -23.5505 || loc["name"] != "Loja Centro" {
		t.Fatalf("unexpected location payload: %v", loc)
	}

	if _, err := client.SendLocation(context.Background(), SendLocationRequest{Latitude: 1}); err == nil {
		t.Fatal("expected validation error for missing recipient")
	}
}

func TestListTemplates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/999000/message_templates" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"order_update","language":"pt_BR","status":"APPROVED","category":"UTILITY"}]}`))
	})

	templates, err := client.ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "order_update" {
		t.Fatalf("unexpected templates: %+v", templates)
	}
}

func TestMarkAsRead(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	if err := client.MarkAsRead(context.Background(), "wamid.1"); err != nil {
		t.Fatalf("mark as read: %v", err)
	}
	if gotBody["status"] != "read" || gotBody["message_id"] != "wamid.1" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}
