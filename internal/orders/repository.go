package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository defines the interface for order storage.
type Repository interface {
	// CreateWithItems inserts the order and its items in one transaction
	// and decrements product stock for each line.
	CreateWithItems(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*Order, error)
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error)
	// UpdateStatus sets the status and, when paymentID is non-empty, the
	// payment reference.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, paymentID string) (*Order, error)
}

// Pool is the subset of pgxpool.Pool the repository needs. It includes
// Begin because order creation is transactional.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores orders in the relational database.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const orderColumns = `id, user_id, customer_id, status, total_amount, COALESCE(payment_id, ''), created_at, updated_at`

func (r *PostgresRepository) CreateWithItems(ctx context.Context, userID uuid.UUID, req *CreateOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("orders: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	order := &Order{
		ID:          uuid.New(),
		UserID:      userID,
		CustomerID:  req.CustomerID,
		Status:      StatusPending,
		TotalAmount: req.TotalAmount,
		Items:       make([]OrderItem, 0, len(req.Items)),
	}
	insertOrder := `
		INSERT INTO orders (id, user_id, customer_id, status, total_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := tx.QueryRow(ctx, insertOrder, order.ID, userID, req.CustomerID, order.Status, req.TotalAmount).Scan(&order.CreatedAt); err != nil {
		return nil, fmt.Errorf("orders: insert order: %w", err)
	}

	insertItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	for _, line := range req.Items {
		item := OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		}
		if err := tx.QueryRow(ctx, insertItem, item.ID, order.ID, line.ProductID, line.Quantity, line.Price).Scan(&item.CreatedAt); err != nil {
			return nil, fmt.Errorf("orders: insert item: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1`, line.ProductID, line.Quantity); err != nil {
			return nil, fmt.Errorf("orders: decrement stock: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("orders: commit tx: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: select failed: %w", err)
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepository) GetByPaymentID(ctx context.Context, paymentID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`
	order, err := scanOrder(r.pool.QueryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: select by payment failed: %w", err)
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("orders: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("orders: scan row: %w", err)
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, paymentID string) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	query := `
		UPDATE orders
		SET status = $2,
		    payment_id = COALESCE(NULLIF($3, ''), payment_id),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + orderColumns
	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, status, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: update status failed: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, order *Order) error {
	query := `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("orders: load items: %w", err)
	}
	defer rows.Close()

	order.Items = []OrderItem{}
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return fmt.Errorf("orders: scan item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.UserID, &o.CustomerID, &o.Status, &o.TotalAmount, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if o.Items == nil {
		o.Items = []OrderItem{}
	}
	return &o, nil
}
