package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a merchant account.
type User struct {
	ID             uuid.UUID  `json:"id"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	PlanType       string     `json:"plan_type"`
	WhatsAppNumber string     `json:"whatsapp_number,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// SignupRequest is the request body for creating a user.
type SignupRequest struct {
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

// Validate checks the signup request.
func (r *SignupRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return ErrMissingName
	}
	email := strings.TrimSpace(r.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if len(r.Password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrMissingName is returned when the full name is absent.
	ErrMissingName = errors.New("full name is required")

	// ErrInvalidEmail is returned when the email is malformed.
	ErrInvalidEmail = errors.New("a valid email is required")

	// ErrWeakPassword is returned when the password is under 8 characters.
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

type contextKey struct{}

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(contextKey{}).(*User)
	return user, ok
}
