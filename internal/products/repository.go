package products

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository defines the interface for product storage.
type Repository interface {
	CreateWithOwner(ctx context.Context, ownerID uuid.UUID, req *CreateProductRequest) (*Product, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*Product, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Product, error)
	// ListActive returns active products in creation order, oldest first.
	ListActive(ctx context.Context, limit int) ([]*Product, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, req *UpdateProductRequest) (*Product, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// Pool is the subset of pgxpool.Pool the repository needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores products in the relational database.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	if pool == nil {
		panic("products: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const productColumns = `id, owner_id, name, description, price, image_url, stock, is_active, created_at, updated_at`

func (r *PostgresRepository) CreateWithOwner(ctx context.Context, ownerID uuid.UUID, req *CreateProductRequest) (*Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	query := `
		INSERT INTO products (id, owner_id, name, description, price, image_url, stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + productColumns
	product, err := scanProduct(r.pool.QueryRow(ctx, query,
		uuid.New(), ownerID, req.Name, req.Description, req.Price, req.ImageURL, req.Stock, active))
	if err != nil {
		return nil, fmt.Errorf("products: insert failed: %w", err)
	}
	return product, nil
}

func (r *PostgresRepository) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND owner_id = $2`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("products: select failed: %w", err)
	}
	return product, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE owner_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("products: list by owner failed: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *PostgresRepository) ListActive(ctx context.Context, limit int) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY created_at LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("products: list active failed: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (r *PostgresRepository) Update(ctx context.Context, id, ownerID uuid.UUID, req *UpdateProductRequest) (*Product, error) {
	query := `
		UPDATE products
		SET name = COALESCE($3, name),
		    description = COALESCE($4, description),
		    price = COALESCE($5, price),
		    image_url = COALESCE($6, image_url),
		    stock = COALESCE($7, stock),
		    is_active = COALESCE($8, is_active),
		    updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + productColumns
	product, err := scanProduct(r.pool.QueryRow(ctx, query,
		id, ownerID, req.Name, req.Description, req.Price, req.ImageURL, req.Stock, req.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("products: update failed: %w", err)
	}
	return product, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("products: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]*Product, error) {
	out := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("products: scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InMemoryRepository keeps products in memory for tests.
type InMemoryRepository struct {
	mu    sync.Mutex
	items []*Product
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) lock() func() {
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *InMemoryRepository) CreateWithOwner(ctx context.Context, ownerID uuid.UUID, req *CreateProductRequest) (*Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	defer r.lock()()

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p := &Product{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		IsActive:    active,
		CreatedAt:   time.Now().UTC(),
	}
	r.items = append(r.items, p)
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*Product, error) {
	defer r.lock()()
	for _, p := range r.items {
		if p.ID == id && p.OwnerID == ownerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProductNotFound
}

func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Product, error) {
	defer r.lock()()
	out := []*Product{}
	for _, p := range r.items {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *InMemoryRepository) ListActive(ctx context.Context, limit int) ([]*Product, error) {
	defer r.lock()()
	out := []*Product{}
	for _, p := range r.items {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return paginate(out, limit, 0), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id, ownerID uuid.UUID, req *UpdateProductRequest) (*Product, error) {
	defer r.lock()()
	for _, p := range r.items {
		if p.ID != id || p.OwnerID != ownerID {
			continue
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.ImageURL != nil {
			p.ImageURL = *req.ImageURL
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		now := time.Now().UTC()
		p.UpdatedAt = &now
		cp := *p
		return &cp, nil
	}
	return nil, ErrProductNotFound
}

func (r *InMemoryRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	defer r.lock()()
	for i, p := range r.items {
		if p.ID == id && p.OwnerID == ownerID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrProductNotFound
}

func paginate(items []*Product, limit, offset int) []*Product {
	if offset >= len(items) {
		return []*Product{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
