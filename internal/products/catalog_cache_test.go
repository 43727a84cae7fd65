package products

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// countingRepo wraps the in-memory repository and counts ListActive hits
// so tests can tell cache hits from misses.
type countingRepo struct {
	*InMemoryRepository
	listActiveCalls int
}

func (r *countingRepo) ListActive(ctx context.Context, limit int) ([]*Product, error) {
	r.listActiveCalls++
	return r.InMemoryRepository.ListActive(ctx, limit)
}

func newCatalogFixture(t *testing.T) (*countingRepo, *CachedCatalog, *miniredis.Miniredis) {
	t.Helper()
	repo := &countingRepo{InMemoryRepository: NewInMemoryRepository()}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	catalog := NewCachedCatalog(repo, client, time.Minute, nil)
	return repo, catalog, mr
}

func TestCatalogCacheMissThenHit(t *testing.T) {
	repo, catalog, _ := newCatalogFixture(t)
	owner := uuid.New()
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Caneca", Price: 25})

	first, err := catalog.ListActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if len(first) != 2 || repo.listActiveCalls != 1 {
		t.Fatalf("expected a repository miss, got %d items after %d calls", len(first), repo.listActiveCalls)
	}

	second, err := catalog.ListActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected 2 cached items, got %d", len(second))
	}
	if repo.listActiveCalls != 1 {
		t.Fatalf("second read should be served from cache, repo called %d times", repo.listActiveCalls)
	}
	if second[0].Name != "Camiseta" || second[1].Name != "Caneca" {
		t.Fatalf("cached listing lost order: %q, %q", second[0].Name, second[1].Name)
	}
}

func TestCatalogCacheHonorsLimitOnHits(t *testing.T) {
	repo, catalog, _ := newCatalogFixture(t)
	owner := uuid.New()
	for _, name := range []string{"A", "B", "C"} {
		mustCreate(t, repo, owner, &CreateProductRequest{Name: name, Price: 1})
	}

	if _, err := catalog.ListActive(context.Background(), 10); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	capped, err := catalog.ListActive(context.Background(), 2)
	if err != nil {
		t.Fatalf("capped read: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("expected 2 items from cached entry, got %d", len(capped))
	}
}

func TestCatalogCacheRefetchesForLargerLimit(t *testing.T) {
	repo, catalog, _ := newCatalogFixture(t)
	owner := uuid.New()
	for _, name := range []string{"A", "B", "C", "D"} {
		mustCreate(t, repo, owner, &CreateProductRequest{Name: name, Price: 1})
	}

	small, err := catalog.ListActive(context.Background(), 2)
	if err != nil {
		t.Fatalf("prime with small limit: %v", err)
	}
	if len(small) != 2 {
		t.Fatalf("expected 2 items, got %d", len(small))
	}

	// The cached entry only holds 2 products, so a wider read must go back
	// to the repository rather than serve the short list.
	large, err := catalog.ListActive(context.Background(), 4)
	if err != nil {
		t.Fatalf("read with larger limit: %v", err)
	}
	if len(large) != 4 {
		t.Fatalf("expected 4 items, got %d", len(large))
	}
	if repo.listActiveCalls != 2 {
		t.Fatalf("larger limit should refetch, repo called %d times", repo.listActiveCalls)
	}

	// And the refetch replaces the cached entry.
	again, err := catalog.ListActive(context.Background(), 4)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if len(again) != 4 || repo.listActiveCalls != 2 {
		t.Fatalf("expected cached wide entry: %d items, %d calls", len(again), repo.listActiveCalls)
	}
}

func TestCatalogCacheCorruptEntryFallsBack(t *testing.T) {
	repo, catalog, mr := newCatalogFixture(t)
	owner := uuid.New()
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})

	if err := mr.Set(catalogCacheKey, "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	list, err := catalog.ListActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("read with corrupt cache: %v", err)
	}
	if len(list) != 1 || repo.listActiveCalls != 1 {
		t.Fatalf("corrupt entry should fall through to the repository: %d items, %d calls", len(list), repo.listActiveCalls)
	}
}

func TestCatalogCacheInvalidate(t *testing.T) {
	repo, catalog, mr := newCatalogFixture(t)
	owner := uuid.New()
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})

	if _, err := catalog.ListActive(context.Background(), 5); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if !mr.Exists(catalogCacheKey) {
		t.Fatal("cache entry should exist after a read")
	}

	catalog.Invalidate(context.Background())
	if mr.Exists(catalogCacheKey) {
		t.Fatal("cache entry should be gone after invalidation")
	}

	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Caneca", Price: 25})
	list, err := catalog.ListActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if len(list) != 2 || repo.listActiveCalls != 2 {
		t.Fatalf("invalidation should force a refetch: %d items, %d calls", len(list), repo.listActiveCalls)
	}
}

func TestCatalogCacheUnavailableRedisDegrades(t *testing.T) {
	repo := &countingRepo{InMemoryRepository: NewInMemoryRepository()}
	owner := uuid.New()
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	catalog := NewCachedCatalog(repo, client, time.Minute, nil)
	mr.Close()

	list, err := catalog.ListActive(context.Background(), 5)
	if err != nil {
		t.Fatalf("read with downed redis: %v", err)
	}
	if len(list) != 1 || repo.listActiveCalls != 1 {
		t.Fatalf("downed redis should be treated as a miss: %d items, %d calls", len(list), repo.listActiveCalls)
	}
}

func TestCatalogCacheNilClient(t *testing.T) {
	repo := &countingRepo{InMemoryRepository: NewInMemoryRepository()}
	owner := uuid.New()
	mustCreate(t, repo, owner, &CreateProductRequest{Name: "Camiseta", Price: 49.9})

	catalog := NewCachedCatalog(repo, nil, 0, nil)
	catalog.Invalidate(context.Background())

	for i := 0; i < 2; i++ {
		list, err := catalog.ListActive(context.Background(), 5)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if len(list) != 1 {
			t.Fatalf("read %d: got %d items", i, len(list))
		}
	}
	if repo.listActiveCalls != 2 {
		t.Fatalf("nil client should always hit the repository, got %d calls", repo.listActiveCalls)
	}
}
