package summary

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/inkos/inkd/internal/db"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCacheGetOrCreate(t *testing.T) {
	store := newTestStore(t)
	cache := NewCache(store)
	ctx := context.Background()

	calls := 0
	gen := func(ctx context.Context) (string, string, error) {
		calls++
		return "summary body", "ollama/llama3.2", nil
	}

	sum, reused, err := cache.GetOrCreate(ctx, "conversation", "c1", "hash-1", gen)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if reused {
		t.Error("first call should not be a cache hit")
	}
	if sum.Version != 1 {
		t.Errorf("first version = %d, want 1", sum.Version)
	}
	if calls != 1 {
		t.Errorf("generate called %d times, want 1", calls)
	}

	// same hash: hit, no generation
	again, reused, err := cache.GetOrCreate(ctx, "conversation", "c1", "hash-1", gen)
	if err != nil {
		t.Fatalf("GetOrCreate (cached) failed: %v", err)
	}
	if !reused {
		t.Error("identical source should hit the cache")
	}
	if again.ID != sum.ID {
		t.Errorf("cache hit returned a different summary: %s vs %s", again.ID, sum.ID)
	}
	if calls != 1 {
		t.Errorf("generate called %d times after hit, want 1", calls)
	}

	// changed hash: new version
	v2, reused, err := cache.GetOrCreate(ctx, "conversation", "c1", "hash-2", gen)
	if err != nil {
		t.Fatalf("GetOrCreate (new hash) failed: %v", err)
	}
	if reused {
		t.Error("new source hash should regenerate")
	}
	if v2.Version != 2 {
		t.Errorf("second version = %d, want 2", v2.Version)
	}
}

func TestCacheVersionsPerTarget(t *testing.T) {
	store := newTestStore(t)
	cache := NewCache(store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		sum, err := cache.Put(ctx, "note", "n1", "body", HashSource([]string{"v", string(rune('0' + i))}), "")
		if err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
		if sum.Version != i {
			t.Errorf("version = %d, want %d", sum.Version, i)
		}
	}

	// a different target starts back at 1
	other, err := cache.Put(ctx, "note", "n2", "body", "other-hash", "")
	if err != nil {
		t.Fatalf("Put for second target failed: %v", err)
	}
	if other.Version != 1 {
		t.Errorf("second target version = %d, want 1", other.Version)
	}

	latest, err := cache.Latest(ctx, "note", "n1")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Version != 3 {
		t.Errorf("Latest version = %d, want 3", latest.Version)
	}
}

func TestCacheVersionsConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	cache := NewCache(store)
	ctx := context.Background()

	const writers = 16
	versions := make(chan int, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("revision %d", i)
			sum, err := cache.Put(ctx, "note", "n1", body, HashSource([]string{body}), "")
			if err != nil {
				t.Errorf("Put %d: %v", i, err)
				return
			}
			versions <- sum.Version
		}(i)
	}
	wg.Wait()
	close(versions)

	// every writer got its own version; together they cover 1..writers
	seen := make(map[int]bool)
	for v := range versions {
		if seen[v] {
			t.Errorf("version %d assigned twice", v)
		}
		seen[v] = true
	}
	for v := 1; v <= writers; v++ {
		if !seen[v] {
			t.Errorf("version %d never assigned", v)
		}
	}
}

func TestCacheGenerateFailureStoresNothing(t *testing.T) {
	store := newTestStore(t)
	cache := NewCache(store)
	ctx := context.Background()

	boom := errors.New("runtime unavailable")
	_, _, err := cache.GetOrCreate(ctx, "conversation", "c1", "h", func(ctx context.Context) (string, string, error) {
		return "", "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected generate error, got %v", err)
	}

	if _, err := cache.Latest(ctx, "conversation", "c1"); err == nil {
		t.Error("failed generation must not leave a summary behind")
	}
}
