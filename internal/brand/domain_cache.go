package brand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// DomainStore persists brand-domain pairs. Save must not overwrite keys the
// store already holds.
type DomainStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
}

// DomainCache maps brand cache keys to domains. Once a key is set it is
// never changed.
type DomainCache interface {
	Get(name string) (string, bool)
	SetIfAbsent(name, domain string) (string, bool)
	Load(ctx context.Context) error
	Save(ctx context.Context) error
}

type PersistentDomainCache struct {
	mu      sync.RWMutex
	entries map[string]string
	store   DomainStore
}

// NewDomainCache returns a cache backed by store. A nil store keeps the
// cache in memory only.
func NewDomainCache(store DomainStore) *PersistentDomainCache {
	return &PersistentDomainCache{entries: make(map[string]string), store: store}
}

func (c *PersistentDomainCache) Get(name string) (string, bool) {
	key := CacheKey(name)
	if key == "" {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[key]
	return d, ok
}

// SetIfAbsent stores domain for name unless a domain is already set. It
// returns the domain now held for name and whether this call stored it.
func (c *PersistentDomainCache) SetIfAbsent(name, domain string) (string, bool) {
	key := CacheKey(name)
	if key == "" || domain == "" {
		return domain, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, false
	}
	c.entries[key] = domain
	return domain, true
}

// Load merges persisted pairs into the cache. Keys already resolved in this
// process keep their domain. Store failures leave the cache as it was.
func (c *PersistentDomainCache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	persisted, err := c.store.Load(ctx)
	if err != nil {
		log.Printf("domain cache: load failed: %v", err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range persisted {
		k = CacheKey(k)
		v = CleanDomain(v)
		if k == "" || v == "" {
			continue
		}
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = v
		}
	}
	return nil
}

func (c *PersistentDomainCache) Save(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	snapshot := c.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}
	if err := c.store.Save(ctx, snapshot); err != nil {
		log.Printf("domain cache: save failed: %v", err)
		return err
	}
	return nil
}

func (c *PersistentDomainCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

func (c *PersistentDomainCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// FileDomainStore keeps pairs in a JSON object on disk.
type FileDomainStore struct {
	Path string
	mu   sync.Mutex
}

func NewFileDomainStore(path string) *FileDomainStore {
	return &FileDomainStore{Path: path}
}

func (s *FileDomainStore) Load(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save adds entries the file does not hold yet and rewrites it atomically.
func (s *FileDomainStore) Save(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every save.
		current = map[string]string{}
	}
	changed := false
	for k, v := range entries {
		if _, ok := current[k]; ok {
			continue
		}
		current[k] = v
		changed = true
	}
	if !changed {
		return nil
	}

	b, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("domain store dir: %w", err)
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("domain store write: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

func (s *FileDomainStore) read() (map[string]string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("domain store %s: %w", s.Path, err)
	}
	return out, nil
}
