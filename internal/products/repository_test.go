package products

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func mustCreate(t *testing.T, repo Repository, ownerID uuid.UUID, req *CreateProductRequest) *Product {
	t.Helper()
	p, err := repo.CreateWithOwner(context.Background(), ownerID, req)
	if err != nil {
		t.Fatalf("create product %q: %v", req.Name, err)
	}
	return p
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestCreateValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()

	cases := []struct {
		name string
		req  *CreateProductRequest
		want error
	}{
		{"missing name", &CreateProductRequest{Name: "  ", Price: 10}, ErrMissingName},
		{"negative price", &CreateProductRequest{Name: "Camiseta", Price: -1}, ErrNegativePrice},
		{"negative stock", &CreateProductRequest{Name: "Camiseta", Price: 10, Stock: -3}, ErrNegativeStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := repo.CreateWithOwner(context.Background(), owner, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateDefaultsToActive(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()

	p := mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9, Stock: 10})
	if !p.IsActive {
		t.Fatal("new product should be active by default")
	}

	inactive := mustCreate(t, repo, owner, &CreateProductRequest{Name: "Caneca", Price: 25, IsActive: boolPtr(false)})
	if inactive.IsActive {
		t.Fatal("is_active=false should be honored on create")
	}
}

func TestListActiveFiltersAndCaps(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()

	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Primeiro", Price: 1})
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Escondido", Price: 2, IsActive: boolPtr(false)})
	for _, name := range []string{"Segundo", "Terceiro", "Quarto", "Quinto", "Sexto", "Sétimo"} {
		mustCreate(t, repo, owner, &CreateProductRequest{Name: name, Price: 3})
	}

	list, err := repo.ListActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 products, got %d", len(list))
	}
	// Oldest first, inactive products skipped.
	if list[0].Name != "Primeiro" || list[1].Name != "Segundo" {
		t.Fatalf("unexpected order: %q, %q", list[0].Name, list[1].Name)
	}
	for _, p := range list {
		if !p.IsActive {
			t.Fatalf("inactive product %q leaked into the listing", p.Name)
		}
	}
}

func TestGetByIDAndOwnerIsolation(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()
	other := uuid.New()

	p := mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})

	if _, err := repo.GetByIDAndOwner(context.Background(), p.ID, other); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("other owner should not see the product, got %v", err)
	}
	got, err := repo.GetByIDAndOwner(context.Background(), p.ID, owner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Camiseta" {
		t.Fatalf("got name %q", got.Name)
	}
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()
	p := mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Description: "algodão", Price: 49.9, Stock: 10})

	updated, err := repo.Update(context.Background(), p.ID, owner, &UpdateProductRequest{
		Price:    floatPtr(59.9),
		IsActive: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 59.9 || updated.IsActive {
		t.Fatalf("price/is_active not applied: %+v", updated)
	}
	if updated.Name != "Camiseta" || updated.Description != "algodão" || updated.Stock != 10 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.UpdatedAt == nil {
		t.Fatal("updated_at should be set after an update")
	}
}

func TestDelete(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()
	p := mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})

	if err := repo.Delete(context.Background(), p.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(context.Background(), p.ID, owner); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
}

func TestListByOwnerPagination(t *testing.T) {
	repo := NewInMemoryRepository()
	owner := uuid.New()
	for _, name := range []string{"A", "B", "C", "D"} {
		mustCreate(t, repo, owner, &CreateProductRequest{Name: name, Price: 1})
	}

	page, err := repo.ListByOwner(context.Background(), owner, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Name != "C" || page[1].Name != "D" {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, err := repo.ListByOwner(context.Background(), owner, 10, 99)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d items", len(empty))
	}
}
