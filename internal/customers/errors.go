package customers

import "errors"

var (
	// ErrCustomerNotFound is returned when no customer matches the lookup.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrDuplicateNumber is returned when a customer with the same
	// WhatsApp number already exists.
	ErrDuplicateNumber = errors.New("customer with this whatsapp number already exists")

	// ErrMissingNumber is returned when the whatsapp number is absent.
	ErrMissingNumber = errors.New("whatsapp number is required")

	// ErrInvalidNumber is returned when the whatsapp number is malformed.
	ErrInvalidNumber = errors.New("whatsapp number is invalid")

	// ErrMissingName is returned when the customer name is absent.
	ErrMissingName = errors.New("name is required")
)
