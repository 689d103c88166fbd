package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"aivisibility/backend-go/internal/models"
)

// ScopeKey identifies what a ranking was computed over: everything, or one
// prompt.
type ScopeKey struct {
	Type Scope
	ID   string
}

func GlobalScope() ScopeKey {
	return ScopeKey{Type: ScopeGlobal}
}

func PromptScope(id string) ScopeKey {
	return ScopeKey{Type: ScopePrompt, ID: strings.TrimSpace(id)}
}

func (k ScopeKey) String() string {
	if k.Type == ScopePrompt {
		return "prompt:" + k.ID
	}
	return string(ScopeGlobal)
}

func (k ScopeKey) Valid() bool {
	switch k.Type {
	case ScopeGlobal:
		return k.ID == ""
	case ScopePrompt:
		return k.ID != ""
	default:
		return false
	}
}

func ParseScopeKey(s string) (ScopeKey, error) {
	s = strings.TrimSpace(s)
	if s == string(ScopeGlobal) {
		return GlobalScope(), nil
	}
	if id, ok := strings.CutPrefix(s, "prompt:"); ok {
		k := PromptScope(id)
		if k.Valid() {
			return k, nil
		}
	}
	return ScopeKey{}, fmt.Errorf("invalid scope key %q", s)
}

// storageKey is the backing-store key; prompt ids are escaped so they cannot
// collide with other key segments.
func (k ScopeKey) storageKey() string {
	if k.Type == ScopePrompt {
		return "ranking:v1:prompt:" + url.PathEscape(k.ID)
	}
	return "ranking:v1:global"
}

type Snapshot struct {
	Data       []models.RankingEntry `json:"data"`
	ComputedAt time.Time             `json:"computed_at"`
	ScopeKey   string                `json:"scope_key"`
}

// Store is the byte store snapshots live in.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type SnapshotCache struct {
	store   Store
	hardTTL time.Duration
	now     func() time.Time
}

// NewSnapshotCache keeps snapshots in store for hardTTL (at least FreshFor)
// so stale data stays available as a fallback after it stops being fresh.
func NewSnapshotCache(store Store, hardTTL time.Duration) *SnapshotCache {
	if hardTTL < FreshFor {
		hardTTL = FreshFor
	}
	return &SnapshotCache{store: store, hardTTL: hardTTL, now: time.Now}
}

// GetCached returns the snapshot for key only if it was computed for that
// exact scope and is still fresh.
func (c *SnapshotCache) GetCached(ctx context.Context, key ScopeKey) (Snapshot, bool) {
	snap, fresh, ok := c.Lookup(ctx, key)
	if !ok || !fresh {
		return Snapshot{}, false
	}
	return snap, true
}

// Lookup returns any stored snapshot for key's scope along with whether it
// is fresh. Snapshots tagged with another scope are never returned.
func (c *SnapshotCache) Lookup(ctx context.Context, key ScopeKey) (Snapshot, bool, bool) {
	if c == nil || c.store == nil || !key.Valid() {
		return Snapshot{}, false, false
	}
	b, ok := c.store.Get(ctx, key.storageKey())
	if !ok {
		return Snapshot{}, false, false
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, false, false
	}
	if snap.ScopeKey != key.String() || snap.ComputedAt.IsZero() {
		return Snapshot{}, false, false
	}
	if snap.Data == nil {
		snap.Data = []models.RankingEntry{}
	}
	return snap, IsFresh(snap.ComputedAt, c.now()), true
}

func (c *SnapshotCache) Put(ctx context.Context, key ScopeKey, data []models.RankingEntry) (Snapshot, error) {
	if data == nil {
		data = []models.RankingEntry{}
	}
	now := time.Now
	if c != nil {
		now = c.now
	}
	snap := Snapshot{Data: data, ComputedAt: now().UTC(), ScopeKey: key.String()}
	if c == nil || c.store == nil {
		return snap, nil
	}
	if !key.Valid() {
		return snap, fmt.Errorf("invalid scope key %q", key.String())
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return snap, err
	}
	if err := c.store.Set(ctx, key.storageKey(), b, c.hardTTL); err != nil {
		return snap, fmt.Errorf("store snapshot %s: %w", key, err)
	}
	return snap, nil
}
