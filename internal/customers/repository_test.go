package customers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreateValidation(t *testing.T) {
	repo := NewInMemoryRepository()

	cases := []struct {
		name string
		req  *CreateCustomerRequest
		want error
	}{
		{"missing number", &CreateCustomerRequest{Name: "Maria"}, ErrMissingNumber},
		{"blank number", &CreateCustomerRequest{WhatsAppNumber: "   ", Name: "Maria"}, ErrMissingNumber},
		{"letters in number", &CreateCustomerRequest{WhatsAppNumber: "+55abc", Name: "Maria"}, ErrInvalidNumber},
		{"bare plus", &CreateCustomerRequest{WhatsAppNumber: "+", Name: "Maria"}, ErrInvalidNumber},
		{"missing name", &CreateCustomerRequest{WhatsAppNumber: "+5511999999999"}, ErrMissingName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := repo.Create(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	repo := NewInMemoryRepository()
	req := &CreateCustomerRequest{WhatsAppNumber: "+5511999999999", Name: "Maria"}

	if _, err := repo.Create(context.Background(), req); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := repo.Create(context.Background(), req); !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("second create: got %v, want %v", err, ErrDuplicateNumber)
	}
}

func TestGetOrCreateByNumberReusesExisting(t *testing.T) {
	repo := NewInMemoryRepository()

	first, created, err := repo.GetOrCreateByNumber(context.Background(), "+5511999999999", "Cliente WhatsApp")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if !created || first.Name != "Cliente WhatsApp" {
		t.Fatalf("first call should create with the default name: created=%v name=%q", created, first.Name)
	}

	second, created, err := repo.GetOrCreateByNumber(context.Background(), "+5511999999999", "ignored")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if created || second.ID != first.ID || second.Name != "Cliente WhatsApp" {
		t.Fatalf("second call should return the same row: created=%v id=%s name=%q", created, second.ID, second.Name)
	}
}

func TestGetOrCreateByNumberConcurrent(t *testing.T) {
	repo := NewInMemoryRepository()

	const callers = 20
	var wg sync.WaitGroup
	createdCount := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.GetOrCreateByNumber(context.Background(), "+5511988887777", "Cliente WhatsApp")
			if err != nil {
				t.Errorf("get-or-create: %v", err)
				return
			}
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	creations := 0
	for created := range createdCount {
		if created {
			creations++
		}
	}
	if creations != 1 {
		t.Fatalf("expected exactly one creation, got %d", creations)
	}

	all, err := repo.List(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one customer, got %d", len(all))
	}
}

func TestAppendInteractionBumpsLastInteraction(t *testing.T) {
	repo := NewInMemoryRepository()
	c, _, err := repo.GetOrCreateByNumber(context.Background(), "+5511999999999", "Cliente WhatsApp")
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	ts := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	updated, err := repo.AppendInteraction(context.Background(), c.ID, InteractionRecord{
		Type:      InteractionMessageReceived,
		Content:   "olá",
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(updated.InteractionHistory) != 1 {
		t.Fatalf("expected 1 record, got %d", len(updated.InteractionHistory))
	}
	if updated.LastInteraction == nil || !updated.LastInteraction.Equal(ts) {
		t.Fatalf("last_interaction not bumped: %v", updated.LastInteraction)
	}

	// Zero timestamps get stamped at append time.
	stamped, err := repo.AppendInteraction(context.Background(), c.ID, InteractionRecord{Type: InteractionMessageSent, Content: "oi"})
	if err != nil {
		t.Fatalf("append without timestamp: %v", err)
	}
	if stamped.InteractionHistory[1].Timestamp.IsZero() {
		t.Fatal("append should assign a timestamp when none is given")
	}
}

func TestAppendInteractionMissingCustomer(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.AppendInteraction(context.Background(), uuid.New(), InteractionRecord{Type: InteractionMessageSent}); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("got %v, want %v", err, ErrCustomerNotFound)
	}
}

func TestListActiveSince(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now().UTC()

	fresh, _, err := repo.GetOrCreateByNumber(context.Background(), "+5511000000001", "Cliente WhatsApp")
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	stale, _, err := repo.GetOrCreateByNumber(context.Background(), "+5511000000002", "Cliente WhatsApp")
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	if _, _, err := repo.GetOrCreateByNumber(context.Background(), "+5511000000003", "Cliente WhatsApp"); err != nil {
		t.Fatalf("create silent: %v", err)
	}

	if _, err := repo.AppendInteraction(context.Background(), fresh.ID, InteractionRecord{Type: InteractionMessageReceived, Timestamp: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("append fresh: %v", err)
	}
	if _, err := repo.AppendInteraction(context.Background(), stale.ID, InteractionRecord{Type: InteractionMessageReceived, Timestamp: now.Add(-60 * 24 * time.Hour)}); err != nil {
		t.Fatalf("append stale: %v", err)
	}

	active, err := repo.ListActiveSince(context.Background(), now.Add(-30*24*time.Hour), 100, 0)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh customer, got %d rows", len(active))
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	c, _, err := repo.GetOrCreateByNumber(context.Background(), "+5511999999999", "Cliente WhatsApp")
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	c.Name = "mutated"
	c.InteractionHistory = append(c.InteractionHistory, InteractionRecord{Type: InteractionMessageSent})

	stored, err := repo.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Name != "Cliente WhatsApp" || len(stored.InteractionHistory) != 0 {
		t.Fatalf("caller mutation leaked into the store: %+v", stored)
	}
}
