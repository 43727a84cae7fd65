package payments

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/vendazap/platform/internal/auth"
	"github.com/vendazap/platform/internal/orders"
	"github.com/vendazap/platform/internal/products"
)

func TestWebhookUpdatesOrderAndAcks(t *testing.T) {
	userID := uuid.New()
	orderRepo := newFakeOrders()
	productRepo := products.NewInMemoryRepository()
	order := seedOrder(t, orderRepo, productRepo, userID)
	order.PaymentID = "555"
	orderRepo.add(order)

	gateway := &fakeGateway{payment: &PaymentInfo{ID: "555", Status: "refunded"}}
	handler := NewHandler(NewService(gateway, orderRepo, productRepo, "https://api.test", nil), nil)

	body := `{"type":"payment","data":{"id":"555"}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"success"`) {
		t.Fatalf("expected success ack, got %q", rec.Body.String())
	}
	if orderRepo.byID[order.ID].Status != orders.StatusCancelled {
		t.Fatalf("refunded payment should cancel order, got %q", orderRepo.byID[order.ID].Status)
	}
}

func TestWebhookAcksMalformedAndNonPaymentEvents(t *testing.T) {
	handler := NewHandler(NewService(&fakeGateway{}, newFakeOrders(), products.NewInMemoryRepository(), "https://api.test", nil), nil)

	for _, body := range []string{
		`not json`,
		`{"type":"plan","data":{"id":"1"}}`,
		`{"type":"payment","data":{}}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Webhook(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("body %q: expected 200, got %d", body, rec.Code)
		}
	}
}

func TestCreateRequiresAuthenticatedUser(t *testing.T) {
	handler := NewHandler(NewService(&fakeGateway{}, newFakeOrders(), products.NewInMemoryRepository(), "https://api.test", nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/payments/create", strings.NewReader(`{"order_id":"`+uuid.NewString()+`"}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateRejectsSecondPayment(t *testing.T) {
	userID := uuid.New()
	orderRepo := newFakeOrders()
	productRepo := products.NewInMemoryRepository()
	order := seedOrder(t, orderRepo, productRepo, userID)
	order.PaymentID = "already"
	orderRepo.add(order)

	handler := NewHandler(NewService(&fakeGateway{}, orderRepo, productRepo, "https://api.test", nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/payments/create", strings.NewReader(`{"order_id":"`+order.ID.String()+`"}`))
	req = req.WithContext(auth.WithUser(req.Context(), &auth.User{ID: userID, Email: "a@b.c", IsActive: true}))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSuccessRedirectMarksOrderPaid(t *testing.T) {
	userID := uuid.New()
	orderRepo := newFakeOrders()
	productRepo := products.NewInMemoryRepository()
	order := seedOrder(t, orderRepo, productRepo, userID)
	order.PaymentID = "777"
	orderRepo.add(order)

	handler := NewHandler(NewService(&fakeGateway{}, orderRepo, productRepo, "https://api.test", nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/payments/success?payment_id=777", nil)
	rec := httptest.NewRecorder()
	handler.Success(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if orderRepo.byID[order.ID].Status != orders.StatusPaid {
		t.Fatalf("expected paid, got %q", orderRepo.byID[order.ID].Status)
	}
}
