package summary

import (
	"context"
	"database/sql"
	"sync"

	"github.com/inkos/inkd/internal/db"
)

// GenerateFunc produces a summary body (and the model that wrote it) when the
// cache has no entry for the source hash.
type GenerateFunc func(ctx context.Context) (body, modelID string, err error)

// Cache is the content-addressed summary store. Writers for the same target
// are serialised with a keyed mutex so versions stay monotonic under
// concurrency; different targets don't contend.
type Cache struct {
	store *db.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates a Cache over the store
func NewCache(store *db.Store) *Cache {
	return &Cache{store: store, locks: make(map[string]*sync.Mutex)}
}

func (c *Cache) targetLock(targetType, targetID string) *sync.Mutex {
	key := targetType + ":" + targetID
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	c.locks[key] = l
	return l
}

// GetOrCreate returns the cached summary for (target, sourceHash) when one
// exists, otherwise runs generate and stores the result as the next version.
// The bool result reports a cache hit. A generate failure stores nothing.
func (c *Cache) GetOrCreate(ctx context.Context, targetType, targetID, sourceHash string, generate GenerateFunc) (*db.Summary, bool, error) {
	lock := c.targetLock(targetType, targetID)
	lock.Lock()
	defer lock.Unlock()

	cached, err := c.store.FindSummaryByHash(ctx, targetType, targetID, sourceHash)
	if err == nil {
		return cached, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	body, modelID, err := generate(ctx)
	if err != nil {
		return nil, false, err
	}

	s, err := c.store.InsertSummary(ctx, targetType, targetID, body, sourceHash, modelID, ApproxTokens(body))
	if err != nil {
		return nil, false, err
	}
	return s, false, nil
}

// Put stores a new version unconditionally (still serialised per target)
func (c *Cache) Put(ctx context.Context, targetType, targetID, body, sourceHash, modelID string) (*db.Summary, error) {
	lock := c.targetLock(targetType, targetID)
	lock.Lock()
	defer lock.Unlock()
	return c.store.InsertSummary(ctx, targetType, targetID, body, sourceHash, modelID, ApproxTokens(body))
}

// Get returns a summary by id
func (c *Cache) Get(ctx context.Context, id string) (*db.Summary, error) {
	return c.store.GetSummary(ctx, id)
}

// Latest returns the newest version for a target
func (c *Cache) Latest(ctx context.Context, targetType, targetID string) (*db.Summary, error) {
	return c.store.LatestSummary(ctx, targetType, targetID)
}
