package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vendazap/platform/internal/orders"
	"github.com/vendazap/platform/internal/products"
	"github.com/vendazap/platform/pkg/logging"
)

// Sentinel errors for the checkout flow.
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAccessDenied    = errors.New("payment belongs to another user")
)

// Gateway is the slice of the Mercado Pago client the service needs.
type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)
	RefundPayment(ctx context.Context, paymentID string, amount float64) (*Refund, error)
	ListPaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// ProductSource resolves product names for preference line items.
type ProductSource interface {
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*products.Product, error)
}

// Service drives checkout creation and payment status against orders.
type Service struct {
	gateway       Gateway
	orders        orders.Repository
	products      ProductSource
	publicBaseURL string
	logger        *logging.Logger
}

// NewService wires the payment service. publicBaseURL is the externally
// reachable base used to build redirect and notification URLs.
func NewService(gateway Gateway, ordersRepo orders.Repository, productSource ProductSource, publicBaseURL string, logger *logging.Logger) *Service {
	if gateway == nil {
		panic("payments: gateway cannot be nil")
	}
	if ordersRepo == nil {
		panic("payments: orders repository cannot be nil")
	}
	if productSource == nil {
		panic("payments: product source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		gateway:       gateway,
		orders:        ordersRepo,
		products:      productSource,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Checkout is the client-facing result of creating a payment.
type Checkout struct {
	PaymentID        string `json:"payment_id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreateCheckout creates a Mercado Pago preference for an order owned by the
// user and records the preference id on the order.
func (s *Service) CreateCheckout(ctx context.Context, user CheckoutUser, orderID uuid.UUID) (*Checkout, error) {
	order, err := s.orders.GetByIDAndUser(ctx, orderID, user.ID)
	if err != nil {
		return nil, err
	}
	if order.PaymentID != "" {
		return nil, orders.ErrAlreadyPaid
	}

	items := make([]PreferenceItem, 0, len(order.Items))
	for _, line := range order.Items {
		title := "Produto"
		if product, err := s.products.GetByIDAndOwner(ctx, line.ProductID, user.ID); err == nil {
			title = product.Name
		} else if !errors.Is(err, products.ErrProductNotFound) {
			return nil, fmt.Errorf("payments: resolve product %s: %w", line.ProductID, err)
		}
		items = append(items, PreferenceItem{
			Title:      title,
			Quantity:   line.Quantity,
			UnitPrice:  line.Price,
			CurrencyID: "BRL",
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, PreferenceRequest{
		Items:             items,
		Payer:             PreferencePayer{Email: user.Email, Name: user.FullName},
		ExternalReference: order.ID.String(),
		BackURLs: BackURLs{
			Success: s.publicBaseURL + "/payments/success",
			Failure: s.publicBaseURL + "/payments/failure",
			Pending: s.publicBaseURL + "/payments/pending",
		},
		AutoReturn:      "approved",
		NotificationURL: s.publicBaseURL + "/payments/webhook",
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.orders.UpdateStatus(ctx, order.ID, orders.StatusPending, pref.ID); err != nil {
		return nil, fmt.Errorf("payments: record payment id on order %s: %w", order.ID, err)
	}
	return &Checkout{
		PaymentID:        pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	}, nil
}

// CheckoutUser identifies the merchant creating a checkout.
type CheckoutUser struct {
	ID       uuid.UUID
	Email    string
	FullName string
}

// PaymentStatus is the client-facing payment status view.
type PaymentStatus struct {
	Status        string `json:"status"`
	StatusDetail  string `json:"status_detail"`
	PaymentMethod string `json:"payment_method"`
}

// Status returns the gateway status of a payment, enforcing order ownership.
func (s *Service) Status(ctx context.Context, userID uuid.UUID, paymentID string) (*PaymentStatus, error) {
	order, err := s.orders.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrAccessDenied
	}
	info, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{
		Status:        info.Status,
		StatusDetail:  info.StatusDetail,
		PaymentMethod: info.PaymentMethodID,
	}, nil
}

// OrderStatusFor maps a gateway payment status onto the order lifecycle.
func OrderStatusFor(paymentStatus string) orders.Status {
	switch paymentStatus {
	case "approved":
		return orders.StatusPaid
	case "cancelled", "refunded":
		return orders.StatusCancelled
	default:
		return orders.StatusPending
	}
}

// HandleNotification resolves a payment notification and moves the matching
// order to the corresponding status. Unknown payment ids are ignored since
// the gateway also notifies about payments this system did not create.
func (s *Service) HandleNotification(ctx context.Context, paymentID string) error {
	info, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	order, err := s.orders.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			s.logger.Warn("payment notification for unknown order", "payment_id", paymentID)
			return nil
		}
		return err
	}
	next := OrderStatusFor(info.Status)
	if _, err := s.orders.UpdateStatus(ctx, order.ID, next, ""); err != nil {
		return fmt.Errorf("payments: update order %s for payment %s: %w", order.ID, paymentID, err)
	}
	s.logger.Info("order status updated from payment notification",
		"order_id", order.ID,
		"payment_id", paymentID,
		"payment_status", info.Status,
		"order_status", next,
	)
	return nil
}

// MarkReturned applies a checkout redirect outcome to the matching order.
func (s *Service) MarkReturned(ctx context.Context, paymentID string, status orders.Status) error {
	if strings.TrimSpace(paymentID) == "" {
		return nil
	}
	order, err := s.orders.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return nil
		}
		return err
	}
	_, err = s.orders.UpdateStatus(ctx, order.ID, status, "")
	return err
}

// Refund refunds a payment owned by the user and cancels its order.
// amount <= 0 refunds the full amount.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, paymentID string, amount float64) (*Refund, error) {
	order, err := s.orders.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrAccessDenied
	}
	refund, err := s.gateway.RefundPayment(ctx, paymentID, amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.UpdateStatus(ctx, order.ID, orders.StatusCancelled, ""); err != nil {
		return nil, fmt.Errorf("payments: cancel order %s after refund: %w", order.ID, err)
	}
	s.logger.Info("payment refunded",
		"order_id", order.ID,
		"payment_id", paymentID,
		"refund_id", refund.ID.String(),
	)
	return refund, nil
}

// Methods lists the available payment methods.
func (s *Service) Methods(ctx context.Context) ([]PaymentMethod, error) {
	return s.gateway.ListPaymentMethods(ctx)
}
