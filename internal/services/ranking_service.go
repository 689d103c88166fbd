package services

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/config"
	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/ranking"
)

// Analytics is the upstream the ranking service reads from.
type Analytics interface {
	FetchBrands(ctx context.Context) ([]models.RawMetricRecord, error)
	FetchPromptBrands(ctx context.Context, promptID string) ([]models.RawMetricRecord, error)
	FetchPrompts(ctx context.Context) ([]models.RawMetricRecord, error)
	FetchTimeseries(ctx context.Context) ([]models.RawMetricRecord, error)
}

type SnapshotMeta struct {
	Source     string
	Stale      bool
	Err        string
	ComputedAt time.Time
}

type RankingSnapshot struct {
	Scope   ranking.ScopeKey
	Entries []models.RankingEntry
	Meta    SnapshotMeta
}

type rankingTopic struct {
	subs   map[chan RankingSnapshot]struct{}
	cancel context.CancelFunc
	last   *RankingSnapshot
}

type RankingService struct {
	cfg        config.Config
	upstream   Analytics
	norm       *ranking.Normalizer
	domains    brand.DomainCache
	plain      *ranking.SnapshotCache
	labeled    *ranking.SnapshotCache
	cacheName  string
	mu         sync.Mutex
	topics     map[string]*rankingTopic
	refreshing map[string]bool
	flight     singleflight.Group
}

func NewRankingService(cfg config.Config, cache Cache, upstream Analytics, norm *ranking.Normalizer, domains brand.DomainCache) *RankingService {
	s := &RankingService{
		cfg:        cfg,
		upstream:   upstream,
		norm:       norm,
		domains:    domains,
		topics:     make(map[string]*rankingTopic),
		refreshing: make(map[string]bool),
		cacheName:  cacheBackend(cache),
	}
	if cache != nil {
		s.plain = ranking.NewSnapshotCache(cache, cfg.CacheTTLRankingHard)
		s.labeled = ranking.NewSnapshotCache(prefixedCache{Cache: cache, prefix: "labeled:"}, cfg.CacheTTLRankingHard)
	}
	return s
}

// prefixedCache keeps rankings with positional labels apart from the plain
// ones computed for the same scope.
type prefixedCache struct {
	Cache
	prefix string
}

func (p prefixedCache) Get(ctx context.Context, key string) ([]byte, bool) {
	return p.Cache.Get(ctx, p.prefix+key)
}

func (p prefixedCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return p.Cache.Set(ctx, p.prefix+key, val, ttl)
}

func (s *RankingService) snapshots(opts ranking.Options) *ranking.SnapshotCache {
	if opts.LabelUnnamed {
		return s.labeled
	}
	return s.plain
}

func refreshKey(key ranking.ScopeKey, opts ranking.Options) string {
	if opts.LabelUnnamed {
		return "labeled:" + key.String()
	}
	return key.String()
}

// GetRanking serves a fresh snapshot from cache, a stale one while a
// background refresh runs, or recomputes from upstream. On upstream failure
// with nothing cached it returns an empty ranking and the error.
func (s *RankingService) GetRanking(ctx context.Context, key ranking.ScopeKey, opts ranking.Options) ([]models.RankingEntry, SnapshotMeta, error) {
	cache := s.snapshots(opts)
	snap, fresh, ok := cache.Lookup(ctx, key)
	if ok {
		if fresh {
			return snap.Data, SnapshotMeta{Source: "cache", ComputedAt: snap.ComputedAt}, nil
		}
		s.refreshAsync(key, opts)
		return snap.Data, SnapshotMeta{Source: "stale_cache", Stale: true, ComputedAt: snap.ComputedAt}, nil
	}

	entries, meta, err := s.computeShared(ctx, key, opts)
	if err != nil {
		return []models.RankingEntry{}, meta, err
	}
	return entries, meta, nil
}

type computed struct {
	entries []models.RankingEntry
	meta    SnapshotMeta
}

// computeShared runs one compute per scope key however many callers miss
// the cache at once. The compute outlives a caller that gives up early.
func (s *RankingService) computeShared(ctx context.Context, key ranking.ScopeKey, opts ranking.Options) ([]models.RankingEntry, SnapshotMeta, error) {
	ch := s.flight.DoChan(refreshKey(key, opts), func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout())
		defer cancel()
		entries, meta, err := s.compute(cctx, key, opts)
		return computed{entries: entries, meta: meta}, err
	})
	select {
	case <-ctx.Done():
		return nil, SnapshotMeta{Source: "error", Err: ctx.Err().Error()}, ctx.Err()
	case res := <-ch:
		c, _ := res.Val.(computed)
		return c.entries, c.meta, res.Err
	}
}

// Prompts lists the tracked prompts with 1-based ids.
func (s *RankingService) Prompts(ctx context.Context) ([]models.PromptEntry, error) {
	records, err := s.upstream.FetchPrompts(ctx)
	if err != nil {
		return []models.PromptEntry{}, err
	}
	return ranking.Prompts(records), nil
}

func (s *RankingService) Timeseries(ctx context.Context) ([]models.RawMetricRecord, error) {
	return s.upstream.FetchTimeseries(ctx)
}

func (s *RankingService) compute(ctx context.Context, key ranking.ScopeKey, opts ranking.Options) ([]models.RankingEntry, SnapshotMeta, error) {
	var (
		records []models.RawMetricRecord
		err     error
	)
	if key.Type == ranking.ScopePrompt {
		records, err = s.upstream.FetchPromptBrands(ctx, key.ID)
	} else {
		records, err = s.upstream.FetchBrands(ctx)
	}
	if err != nil {
		return nil, SnapshotMeta{Source: "error", Err: err.Error()}, err
	}

	entries := s.norm.NormalizeWith(records, key.Type, opts)
	snap, err := s.snapshots(opts).Put(ctx, key, entries)
	if err != nil {
		log.Printf("ranking: cache %s: %v", key, err)
	}
	if s.domains != nil {
		_ = s.domains.Save(ctx)
	}
	return entries, SnapshotMeta{Source: "fresh", ComputedAt: snap.ComputedAt}, nil
}

func (s *RankingService) refreshAsync(key ranking.ScopeKey, opts ranking.Options) {
	rk := refreshKey(key, opts)
	s.mu.Lock()
	if s.refreshing[rk] {
		s.mu.Unlock()
		return
	}
	s.refreshing[rk] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.refreshing, rk)
			s.mu.Unlock()
		}()

		entries, meta, err := s.computeShared(context.Background(), key, opts)
		if err != nil {
			log.Printf("ranking: refresh %s: %v", key, err)
			return
		}
		if !opts.LabelUnnamed {
			s.publish(key, RankingSnapshot{Scope: key, Entries: entries, Meta: meta})
		}
	}()
}

// Subscribe streams ranking snapshots for key every interval. One poller
// runs per scope no matter how many subscribers share it.
func (s *RankingService) Subscribe(ctx context.Context, key ranking.ScopeKey, interval time.Duration) (<-chan RankingSnapshot, func()) {
	topicKey := key.String()
	ch := make(chan RankingSnapshot, 1)
	var once sync.Once

	s.mu.Lock()
	topic := s.topics[topicKey]
	if topic == nil {
		bgCtx, cancel := context.WithCancel(context.Background())
		topic = &rankingTopic{subs: make(map[chan RankingSnapshot]struct{}), cancel: cancel}
		s.topics[topicKey] = topic
		go s.runTopic(bgCtx, key, interval)
	}
	topic.subs[ch] = struct{}{}
	last := topic.last
	s.mu.Unlock()

	if last != nil {
		select {
		case ch <- *last:
		default:
		}
	}

	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			if t := s.topics[topicKey]; t != nil {
				delete(t.subs, ch)
				if len(t.subs) == 0 {
					t.cancel()
					delete(s.topics, topicKey)
				}
			}
			s.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe
}

func (s *RankingService) runTopic(ctx context.Context, key ranking.ScopeKey, interval time.Duration) {
	if interval <= 0 {
		interval = s.cfg.StreamInterval
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publish := func() {
		reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout())
		defer cancel()
		entries, meta, err := s.GetRanking(reqCtx, key, ranking.Options{})
		if err != nil && len(entries) == 0 {
			return
		}
		s.publish(key, RankingSnapshot{Scope: key, Entries: entries, Meta: meta})
	}

	publish()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish()
		}
	}
}

func (s *RankingService) publish(key ranking.ScopeKey, snap RankingSnapshot) {
	s.mu.Lock()
	topic := s.topics[key.String()]
	if topic != nil {
		topic.last = &snap
		for ch := range topic.subs {
			select {
			case ch <- snap:
			default:
			}
		}
	}
	s.mu.Unlock()
}

func (s *RankingService) requestTimeout() time.Duration {
	if s.cfg.RequestTimeout > 0 {
		return s.cfg.RequestTimeout
	}
	return 12 * time.Second
}

func (s *RankingService) Features() map[string]string {
	return map[string]string{
		"merge_strategy": string(s.norm.Merge()),
		"snapshot_cache": s.backend(),
		"fresh_for":      ranking.FreshFor.String(),
	}
}

func (s *RankingService) backend() string {
	return s.cacheName
}
