package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores customers in the relational database.
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool Pool) *PostgresRepository {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const customerColumns = `id, whatsapp_number, name, email, interaction_history, last_interaction, created_at`

func (r *PostgresRepository) Create(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO customers (id, whatsapp_number, name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + customerColumns
	row := r.pool.QueryRow(ctx, query, uuid.New(), strings.TrimSpace(req.WhatsAppNumber), req.Name, req.Email)
	customer, err := scanCustomer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNumber
		}
		return nil, fmt.Errorf("customers: insert failed: %w", err)
	}
	return customer, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customers: select by id failed: %w", err)
	}
	return customer, nil
}

func (r *PostgresRepository) GetByNumber(ctx context.Context, number string) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE whatsapp_number = $1`
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, strings.TrimSpace(number)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customers: select by number failed: %w", err)
	}
	return customer, nil
}

// GetOrCreateByNumber inserts with ON CONFLICT DO NOTHING against the
// unique whatsapp_number index, then falls back to a select when another
// writer won the race. Check-then-insert would not be safe here.
func (r *PostgresRepository) GetOrCreateByNumber(ctx context.Context, number, defaultName string) (*Customer, bool, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, false, ErrMissingNumber
	}

	insert := `
		INSERT INTO customers (id, whatsapp_number, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (whatsapp_number) DO NOTHING
		RETURNING ` + customerColumns
	customer, err := scanCustomer(r.pool.QueryRow(ctx, insert, uuid.New(), number, defaultName))
	if err == nil {
		return customer, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("customers: get-or-create insert failed: %w", err)
	}

	customer, err = r.GetByNumber(ctx, number)
	if err != nil {
		return nil, false, fmt.Errorf("customers: get-or-create refetch failed: %w", err)
	}
	return customer, false, nil
}

// AppendInteraction stamps the record and appends it to the JSONB history
// in one statement so last_interaction can never lag the log.
func (r *PostgresRepository) AppendInteraction(ctx context.Context, id uuid.UUID, rec InteractionRecord) (*Customer, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("customers: marshal interaction: %w", err)
	}

	query := `
		UPDATE customers
		SET interaction_history = interaction_history || $2::jsonb,
		    last_interaction = $3
		WHERE id = $1
		RETURNING ` + customerColumns
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, id, payload, rec.Timestamp))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customers: append interaction failed: %w", err)
	}
	return customer, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("customers: list failed: %w", err)
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func (r *PostgresRepository) ListActiveSince(ctx context.Context, since time.Time, limit, offset int) ([]*Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE last_interaction >= $1
		ORDER BY last_interaction DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("customers: list active failed: %w", err)
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest) (*Customer, error) {
	query := `
		UPDATE customers
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email)
		WHERE id = $1
		RETURNING ` + customerColumns
	customer, err := scanCustomer(r.pool.QueryRow(ctx, query, id, req.Name, req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customers: update failed: %w", err)
	}
	return customer, nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var (
		c       Customer
		history []byte
	)
	if err := row.Scan(&c.ID, &c.WhatsAppNumber, &c.Name, &c.Email, &history, &c.LastInteraction, &c.CreatedAt); err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &c.InteractionHistory); err != nil {
			return nil, fmt.Errorf("customers: decode interaction history: %w", err)
		}
	}
	if c.InteractionHistory == nil {
		c.InteractionHistory = []InteractionRecord{}
	}
	return &c, nil
}

func collectCustomers(rows pgx.Rows) ([]*Customer, error) {
	out := []*Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("customers: scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
