package customers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for customer storage.
type Repository interface {
	Create(ctx context.Context, req *CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByNumber(ctx context.Context, number string) (*Customer, error)
	// GetOrCreateByNumber resolves a customer by WhatsApp number, creating
	// one with the default name when absent. Concurrent calls for the same
	// unseen number must produce exactly one row.
	GetOrCreateByNumber(ctx context.Context, number, defaultName string) (*Customer, bool, error)
	// AppendInteraction appends one record to the customer's history and
	// bumps last_interaction, as a single atomic row update.
	AppendInteraction(ctx context.Context, id uuid.UUID, rec InteractionRecord) (*Customer, error)
	List(ctx context.Context, limit, offset int) ([]*Customer, error)
	ListActiveSince(ctx context.Context, since time.Time, limit, offset int) ([]*Customer, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest) (*Customer, error)
}

// InMemoryRepository keeps customers in memory. Used in tests and as the
// fallback when no database is configured.
type InMemoryRepository struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Customer
	byNumber map[string]uuid.UUID
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:     make(map[uuid.UUID]*Customer),
		byNumber: make(map[string]uuid.UUID),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	number := strings.TrimSpace(req.WhatsAppNumber)
	if _, exists := r.byNumber[number]; exists {
		return nil, ErrDuplicateNumber
	}
	c := &Customer{
		ID:                 uuid.New(),
		WhatsAppNumber:     number,
		Name:               req.Name,
		Email:              req.Email,
		InteractionHistory: []InteractionRecord{},
		CreatedAt:          time.Now().UTC(),
	}
	r.byID[c.ID] = c
	r.byNumber[number] = c.ID
	return cloneCustomer(c), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return cloneCustomer(c), nil
}

func (r *InMemoryRepository) GetByNumber(ctx context.Context, number string) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byNumber[strings.TrimSpace(number)]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return cloneCustomer(r.byID[id]), nil
}

func (r *InMemoryRepository) GetOrCreateByNumber(ctx context.Context, number, defaultName string) (*Customer, bool, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, false, ErrMissingNumber
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byNumber[number]; ok {
		return cloneCustomer(r.byID[id]), false, nil
	}
	c := &Customer{
		ID:                 uuid.New(),
		WhatsAppNumber:     number,
		Name:               defaultName,
		InteractionHistory: []InteractionRecord{},
		CreatedAt:          time.Now().UTC(),
	}
	r.byID[c.ID] = c
	r.byNumber[number] = c.ID
	return cloneCustomer(c), true, nil
}

func (r *InMemoryRepository) AppendInteraction(ctx context.Context, id uuid.UUID, rec InteractionRecord) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	c.InteractionHistory = append(c.InteractionHistory, rec)
	last := rec.Timestamp
	c.LastInteraction = &last
	return cloneCustomer(c), nil
}

func (r *InMemoryRepository) List(ctx context.Context, limit, offset int) ([]*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page(func(*Customer) bool { return true }, limit, offset), nil
}

func (r *InMemoryRepository) ListActiveSince(ctx context.Context, since time.Time, limit, offset int) ([]*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page(func(c *Customer) bool {
		return c.LastInteraction != nil && !c.LastInteraction.Before(since)
	}, limit, offset), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	return cloneCustomer(c), nil
}

func (r *InMemoryRepository) page(keep func(*Customer) bool, limit, offset int) []*Customer {
	all := make([]*Customer, 0, len(r.byID))
	for _, c := range r.byID {
		if keep(c) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*Customer{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*Customer, len(all))
	for i, c := range all {
		out[i] = cloneCustomer(c)
	}
	return out
}

func cloneCustomer(c *Customer) *Customer {
	cp := *c
	cp.InteractionHistory = append([]InteractionRecord(nil), c.InteractionHistory...)
	if c.LastInteraction != nil {
		last := *c.LastInteraction
		cp.LastInteraction = &last
	}
	return &cp
}
