package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository defines the interface for user storage.
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// Pool is the subset of pgxpool.Pool the repository needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores users in the relational database.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.PlanType == "" {
		user.PlanType = "free"
	}
	query := `
		INSERT INTO users (id, full_name, email, hashed_password, is_active, plan_type, whatsapp_number)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.FullName,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.HashedPassword,
		user.PlanType,
		user.WhatsAppNumber,
	).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("auth: insert user failed: %w", err)
	}

	out := *user
	out.Email = strings.ToLower(strings.TrimSpace(user.Email))
	out.IsActive = true
	out.CreatedAt = createdAt
	return &out, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, full_name, email, hashed_password, is_active, plan_type, COALESCE(whatsapp_number, ''), created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user User
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.HashedPassword,
		&user.IsActive,
		&user.PlanType,
		&user.WhatsAppNumber,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: select user failed: %w", err)
	}
	return &user, nil
}

// InMemoryRepository keeps users in memory for tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := r.users[email]; exists {
		return nil, ErrDuplicateEmail
	}
	out := *user
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	if out.PlanType == "" {
		out.PlanType = "free"
	}
	out.Email = email
	out.IsActive = true
	out.CreatedAt = time.Now().UTC()
	r.users[email] = &out

	cp := out
	return &cp, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}
