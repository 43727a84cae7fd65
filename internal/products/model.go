package products

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product is one catalog item owned by a merchant.
type Product struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	ImageURL    string     `json:"image_url,omitempty"`
	Stock       int        `json:"stock"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Validate checks the create request.
func (r *CreateProductRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.Price < 0 {
		return ErrNegativePrice
	}
	if r.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// UpdateProductRequest carries the mutable product fields.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

var (
	// ErrProductNotFound is returned when no product matches the lookup.
	ErrProductNotFound = errors.New("product not found")

	// ErrMissingName is returned when the product name is absent.
	ErrMissingName = errors.New("product name is required")

	// ErrNegativePrice is returned when the price is negative.
	ErrNegativePrice = errors.New("price cannot be negative")

	// ErrNegativeStock is returned when the stock is negative.
	ErrNegativeStock = errors.New("stock cannot be negative")
)
