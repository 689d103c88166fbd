package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/config"
	"aivisibility/backend-go/internal/models"
	"aivisibility/backend-go/internal/ranking"
)

type fakeAnalytics struct {
	mu      sync.Mutex
	brands  []models.RawMetricRecord
	prompt  map[string][]models.RawMetricRecord
	prompts []models.RawMetricRecord
	err     error
	calls   atomic.Int32
}

func (f *fakeAnalytics) FetchBrands(context.Context) ([]models.RawMetricRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.brands, nil
}

func (f *fakeAnalytics) FetchPromptBrands(_ context.Context, id string) ([]models.RawMetricRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.prompt[id], nil
}

func (f *fakeAnalytics) FetchPrompts(context.Context) ([]models.RawMetricRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prompts, nil
}

func (f *fakeAnalytics) FetchTimeseries(context.Context) ([]models.RawMetricRecord, error) {
	return nil, f.err
}

func (f *fakeAnalytics) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newTestService(up Analytics, cache Cache) (*RankingService, *brand.PersistentDomainCache) {
	domains := brand.NewDomainCache(nil)
	resolver := brand.NewResolver(domains, brand.ResolverConfig{})
	norm := ranking.NewNormalizer(brand.MustCanonicalizer(brand.DefaultAliases), resolver, ranking.MergeRunningAverage)
	cfg := config.Config{CacheTTLRankingHard: time.Hour, RequestTimeout: time.Second, StreamInterval: time.Hour}
	return NewRankingService(cfg, cache, up, norm, domains), domains
}

func TestGetRankingComputesThenServesCache(t *testing.T) {
	up := &fakeAnalytics{brands: []models.RawMetricRecord{
		{"brand": "bajaj", "visibility": 40.0, "domain": "https://www.bajajfinserv.in/loans"},
		{"brand": "HDFC Bank", "visibility": 70.0},
	}}
	svc, domains := newTestService(up, NewMemoryCache())
	ctx := context.Background()

	entries, meta, err := svc.GetRanking(ctx, ranking.GlobalScope(), ranking.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Source != "fresh" || meta.Stale {
		t.Fatalf("expected fresh meta, got %+v", meta)
	}
	if len(entries) != 2 || entries[0].DisplayName != "HDFC Bank" || entries[1].DisplayName != "Bajaj Finserv" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if d, ok := domains.Get("Bajaj Finserv"); !ok || d != "bajajfinserv.in" {
		t.Fatalf("expected domain cached for alias, got %q %v", d, ok)
	}

	_, meta, err = svc.GetRanking(ctx, ranking.GlobalScope(), ranking.Options{})
	if err != nil || meta.Source != "cache" {
		t.Fatalf("expected cache hit, got %+v %v", meta, err)
	}
	if got := up.calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestGetRankingKeepsScopesApart(t *testing.T) {
	up := &fakeAnalytics{
		brands: []models.RawMetricRecord{{"brand": "Global Co", "visibility": 10.0}},
		prompt: map[string][]models.RawMetricRecord{
			"7": {{"brand": "Prompt Co", "visibility": 30.0}, {"brand": "Prompt Co", "visibility": 50.0}},
		},
	}
	svc, _ := newTestService(up, NewMemoryCache())
	ctx := context.Background()

	if _, _, err := svc.GetRanking(ctx, ranking.GlobalScope(), ranking.Options{}); err != nil {
		t.Fatalf("global: %v", err)
	}
	entries, meta, err := svc.GetRanking(ctx, ranking.PromptScope("7"), ranking.Options{})
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if meta.Source != "fresh" {
		t.Fatalf("prompt scope must not reuse the global snapshot, got %s", meta.Source)
	}
	if len(entries) != 1 || entries[0].DisplayName != "Prompt Co" || entries[0].VisibilityPercent != 40 {
		t.Fatalf("unexpected prompt entries: %+v", entries)
	}
}

func TestGetRankingLabeledIsCachedSeparately(t *testing.T) {
	up := &fakeAnalytics{brands: []models.RawMetricRecord{{"visibility": 20.0}, {"brand": "Acme", "visibility": 10.0}}}
	svc, _ := newTestService(up, NewMemoryCache())
	ctx := context.Background()

	plain, _, _ := svc.GetRanking(ctx, ranking.GlobalScope(), ranking.Options{})
	labeled, meta, _ := svc.GetRanking(ctx, ranking.GlobalScope(), ranking.Options{LabelUnnamed: true})
	if len(plain) != 1 {
		t.Fatalf("expected unnamed row dropped, got %+v", plain)
	}
	if meta.Source != "fresh" || len(labeled) != 2 || labeled[0].DisplayName != "Competitor 1" {
		t.Fatalf("unexpected labeled ranking: %+v %+v", labeled, meta)
	}
}

func TestGetRankingUpstreamErrorReturnsEmpty(t *testing.T) {
	up := &fakeAnalytics{err: errors.New("boom")}
	svc, _ := newTestService(up, NewMemoryCache())

	entries, meta, err := svc.GetRanking(context.Background(), ranking.GlobalScope(), ranking.Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil entries, got %#v", entries)
	}
	if meta.Source != "error" || meta.Err != "boom" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestGetRankingServesStaleSnapshot(t *testing.T) {
	up := &fakeAnalytics{err: errors.New("upstream down")}
	cache := NewMemoryCache()
	svc, _ := newTestService(up, cache)
	ctx := context.Background()

	old := ranking.Snapshot{
		Data:       []models.RankingEntry{{ID: "old", DisplayName: "Old", Rank: 1}},
		ComputedAt: time.Now().Add(-10 * time.Minute).UTC(),
		ScopeKey:   "global",
	}
	b, err := json.Marshal(old)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := cache.Set(ctx, "ranking:v1:global", b, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	entries, meta, err := svc.GetRanking(ctx, ranking.GlobalScope(), ranking.Options{})
	if err != nil {
		t.Fatalf("stale serve must not error: %v", err)
	}
	if !meta.Stale || meta.Source != "stale_cache" {
		t.Fatalf("expected stale meta, got %+v", meta)
	}
	if len(entries) != 1 || entries[0].DisplayName != "Old" {
		t.Fatalf("expected stale entries, got %+v", entries)
	}
}

func TestRefreshAsyncCoalesces(t *testing.T) {
	block := make(chan struct{})
	up := &blockingAnalytics{release: block}
	svc, _ := newTestService(up, NewMemoryCache())

	for i := 0; i < 5; i++ {
		svc.refreshAsync(ranking.GlobalScope(), ranking.Options{})
	}
	close(block)
	deadline := time.Now().Add(2 * time.Second)
	for {
		svc.mu.Lock()
		busy := svc.refreshing["global"]
		svc.mu.Unlock()
		if !busy {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("refresh did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := up.calls.Load(); got != 1 {
		t.Fatalf("expected one coalesced refresh, got %d", got)
	}
}

func TestGetRankingColdMissesShareOneCompute(t *testing.T) {
	block := make(chan struct{})
	up := &blockingAnalytics{release: block}
	svc, _ := newTestService(up, NewMemoryCache())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries, _, err := svc.GetRanking(context.Background(), ranking.GlobalScope(), ranking.Options{})
			if err == nil && len(entries) != 1 {
				err = errors.New("expected one entry")
			}
			errs <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for up.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("compute never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := up.calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call for concurrent misses, got %d", got)
	}
}

type blockingAnalytics struct {
	fakeAnalytics
	release chan struct{}
}

func (b *blockingAnalytics) FetchBrands(ctx context.Context) ([]models.RawMetricRecord, error) {
	b.calls.Add(1)
	<-b.release
	return []models.RawMetricRecord{{"brand": "Acme"}}, nil
}

func TestSubscribeReceivesSnapshot(t *testing.T) {
	up := &fakeAnalytics{brands: []models.RawMetricRecord{{"brand": "Acme", "visibility": 55.0}}}
	svc, _ := newTestService(up, NewMemoryCache())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsubscribe := svc.Subscribe(ctx, ranking.GlobalScope(), time.Hour)
	select {
	case snap := <-ch:
		if len(snap.Entries) != 1 || snap.Entries[0].VisibilityPercent != 55 {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
		if snap.Scope != ranking.GlobalScope() {
			t.Fatalf("unexpected scope %v", snap.Scope)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}

	unsubscribe()
	unsubscribe()
	svc.mu.Lock()
	remaining := len(svc.topics)
	svc.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected topic removed after last unsubscribe, got %d", remaining)
	}
}

func TestPromptsAssignsIDs(t *testing.T) {
	up := &fakeAnalytics{prompts: []models.RawMetricRecord{
		{"prompt": "best credit card", "volume": 1200.0},
		{"query": "cheapest EV"},
	}}
	svc, _ := newTestService(up, nil)
	got, err := svc.Prompts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 || got[1].Prompt != "cheapest EV" {
		t.Fatalf("unexpected prompts %+v", got)
	}
	if got[0].Volume == nil || *got[0].Volume != 1200 || got[1].Volume != nil {
		t.Fatalf("unexpected volumes %+v", got)
	}
}

func TestFeaturesReportsBackend(t *testing.T) {
	svc, _ := newTestService(&fakeAnalytics{}, NewMemoryCache())
	f := svc.Features()
	if f["merge_strategy"] != "running_average" || f["snapshot_cache"] != "memory" {
		t.Fatalf("unexpected features %v", f)
	}
	svc, _ = newTestService(&fakeAnalytics{}, nil)
	if svc.Features()["snapshot_cache"] != "none" {
		t.Fatal("expected none backend without cache")
	}
}
