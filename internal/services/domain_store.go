package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"aivisibility/backend-go/internal/brand"
	"aivisibility/backend-go/internal/config"
)

const redisDomainKey = "brand_domains:v1"

// RedisDomainStore keeps brand-domain pairs in one hash. HSETNX keeps the
// first domain written by any process.
type RedisDomainStore struct {
	client *redis.Client
	key    string
}

func NewRedisDomainStore(client *redis.Client) *RedisDomainStore {
	return &RedisDomainStore{client: client, key: redisDomainKey}
}

func (s *RedisDomainStore) Load(ctx context.Context) (map[string]string, error) {
	out, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}
	return out, nil
}

func (s *RedisDomainStore) Save(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for k, v := range entries {
		pipe.HSetNX(ctx, s.key, k, v)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hsetnx %s: %w", s.key, err)
	}
	return nil
}

// PostgresDomainStore keeps pairs in the brand_domains table.
type PostgresDomainStore struct {
	Pool *pgxpool.Pool
}

func ConnectPostgresDomainStore(ctx context.Context, url string) (*PostgresDomainStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PostgresDomainStore{Pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresDomainStore) migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS brand_domains (
			brand_key  TEXT PRIMARY KEY,
			domain     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (s *PostgresDomainStore) Close() { s.Pool.Close() }

func (s *PostgresDomainStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT brand_key, domain FROM brand_domains`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *PostgresDomainStore) Save(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	batch := &pgx.Batch{}
	for k, v := range entries {
		batch.Queue(`INSERT INTO brand_domains (brand_key, domain) VALUES ($1, $2) ON CONFLICT (brand_key) DO NOTHING`, k, v)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// NewDomainStore picks the persistence for the brand-domain cache from
// DOMAIN_STORE. A store that cannot be reached falls back to the file
// store. The returned func releases any connection it opened.
func NewDomainStore(ctx context.Context, cfg config.Config, cache Cache) (brand.DomainStore, func(), error) {
	noop := func() {}
	switch cfg.DomainStore {
	case "memory":
		return nil, noop, nil
	case "file", "":
		return brand.NewFileDomainStore(cfg.DomainCacheFile), noop, nil
	case "redis":
		if rc, ok := cache.(*RedisCache); ok {
			return NewRedisDomainStore(rc.Client()), noop, nil
		}
		log.Printf("domain store: redis not connected, using file %s", cfg.DomainCacheFile)
		return brand.NewFileDomainStore(cfg.DomainCacheFile), noop, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, noop, errors.New("domain store postgres requires DATABASE_URL")
		}
		s, err := ConnectPostgresDomainStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("domain store: postgres unavailable, using file %s: %v", cfg.DomainCacheFile, err)
			return brand.NewFileDomainStore(cfg.DomainCacheFile), noop, nil
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown DOMAIN_STORE %q", cfg.DomainStore)
	}
}
