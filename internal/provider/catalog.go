package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/inkos/inkd/internal/logging"
)

// ModelInfo describes one catalog model
type ModelInfo struct {
	ID            string `json:"id" yaml:"id"`
	DisplayName   string `json:"displayName" yaml:"displayName"`
	ContextWindow int    `json:"contextWindow" yaml:"contextWindow"`
}

// CatalogConfig is the models.yaml structure: context windows per
// provider/model, maintained by the user alongside the database.
type CatalogConfig struct {
	Version   string                 `yaml:"version"`
	UpdatedAt string                 `yaml:"updatedAt"`
	Providers map[string][]ModelInfo `yaml:"providers"`
}

// Catalog holds the model catalog loaded from models.yaml, hot-reloaded on
// file change. A missing file is fine; context window resolution then falls
// back to provider tags.
type Catalog struct {
	path string

	mu      sync.RWMutex
	config  *CatalogConfig
	watcher *fsnotify.Watcher
}

// NewCatalog loads the catalog from path (missing file yields an empty catalog)
func NewCatalog(path string) *Catalog {
	c := &Catalog{path: path}
	c.reload()
	return c
}

func (c *Catalog) reload() {
	config := &CatalogConfig{Providers: make(map[string][]ModelInfo)}
	if data, err := os.ReadFile(c.path); err == nil {
		var parsed CatalogConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			logging.Warnf("models.yaml parse failed, keeping empty catalog: %v", err)
		} else {
			if parsed.Providers == nil {
				parsed.Providers = make(map[string][]ModelInfo)
			}
			config = &parsed
		}
	}
	c.mu.Lock()
	c.config = config
	c.mu.Unlock()
}

// Models returns the catalog entries for a provider
func (c *Catalog) Models(providerID string) []ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Providers[providerID]
}

// ContextWindow returns the catalog context window for a provider/model,
// or 0 when the catalog doesn't know the model.
func (c *Catalog) ContextWindow(providerID, modelID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.config.Providers[providerID] {
		if m.ID == modelID {
			return m.ContextWindow
		}
	}
	return 0
}

// Watch starts watching the catalog file's directory and reloads on change.
// Editors tend to write multiple times, so reloads are debounced.
func (c *Catalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	c.watcher = watcher

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	base := filepath.Base(c.path)
	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(100*time.Millisecond, func() {
						c.reload()
						logging.Infof("model catalog reloaded from %s", c.path)
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf("catalog watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the file watcher
func (c *Catalog) Close() {
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
}
