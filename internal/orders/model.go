package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the four-value order lifecycle field.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// OrderItem is one line of an order. Price is the unit price at purchase
// time, not a reference to the product's current price.
type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is one purchase by a customer from a merchant.
type Order struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	CustomerID  *uuid.UUID  `json:"customer_id,omitempty"`
	Status      Status      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	PaymentID   string      `json:"payment_id,omitempty"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// CreateOrderItem is one requested line item.
type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
}

// CreateOrderRequest is the request body for creating an order.
type CreateOrderRequest struct {
	CustomerID  *uuid.UUID        `json:"customer_id,omitempty"`
	TotalAmount float64           `json:"total_amount"`
	Items       []CreateOrderItem `json:"items"`
}

// Validate checks the create request.
func (r *CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return ErrInvalidItem
		}
		if item.Quantity <= 0 {
			return ErrInvalidItem
		}
		if item.Price < 0 {
			return ErrInvalidItem
		}
	}
	return nil
}

var (
	// ErrOrderNotFound is returned when no order matches the lookup.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoItems is returned when an order has no line items.
	ErrNoItems = errors.New("order requires at least one item")

	// ErrInvalidItem is returned when a line item is malformed.
	ErrInvalidItem = errors.New("order item is invalid")

	// ErrInvalidStatus is returned for an unknown status value.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrAlreadyPaid is returned when a payment already exists for the order.
	ErrAlreadyPaid = errors.New("order already has a payment")
)
