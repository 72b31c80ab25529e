package menucache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/menu"
)

type Fetcher interface {
	Menu(ctx context.Context) ([]menu.Item, error)
}

// Snapshot is what the terminal shows while the network is down. There is no
// expiry; it is replaced only by the next successful Refresh.
type Snapshot struct {
	Items       []menu.Item `json:"items"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

type Cache struct {
	fetch Fetcher
	path  string // "" = memory only
	now   func() time.Time

	mu   sync.RWMutex
	snap Snapshot
	byID map[string]menu.Item
}

func New(f Fetcher, path string) *Cache {
	return &Cache{fetch: f, path: path, now: time.Now, byID: map[string]menu.Item{}}
}

// Load reads the persisted copy, if any. A missing file is not an error.
func (c *Cache) Load() error {
	if c.path == "" {
		return nil
	}
	b, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode menu cache %s: %w", c.path, err)
	}
	c.set(s)
	return nil
}

// Refresh fetches the menu and overwrites the cached copy. On failure the
// previous copy stays in place.
func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	items, err := c.fetch.Menu(ctx)
	if err != nil {
		return c.Get(), fmt.Errorf("refresh menu: %w", err)
	}
	s := Snapshot{Items: items, LastUpdated: c.now().UTC()}
	if s.Items == nil {
		s.Items = []menu.Item{}
	}
	c.set(s)
	if err := c.persist(s); err != nil {
		return s, fmt.Errorf("persist menu cache: %w", err)
	}
	return s, nil
}

// Get never touches the network. Empty snapshot when nothing was cached yet.
func (c *Cache) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.snap
	out.Items = append([]menu.Item{}, c.snap.Items...)
	return out
}

func (c *Cache) Find(id string) (menu.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.byID[id]
	return it, ok
}

func (c *Cache) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, it := range c.snap.Items {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Cache) set(s Snapshot) {
	byID := make(map[string]menu.Item, len(s.Items))
	for _, it := range s.Items {
		byID[it.ID] = it
	}
	c.mu.Lock()
	c.snap, c.byID = s, byID
	c.mu.Unlock()
}

func (c *Cache) persist(s Snapshot) error {
	if c.path == "" {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
