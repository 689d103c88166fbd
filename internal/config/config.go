package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                string
	AnalyticsBaseURL    string
	RedisURL            string
	DatabaseURL         string
	DomainStore         string
	DomainCacheFile     string
	AliasFile           string
	FaviconSize         int
	MergeStrategy       string
	CacheTTLRankingHard time.Duration
	RequestTimeout      time.Duration
	RateLimitPerMin     int
	CircuitFailLimit    int
	CircuitCooldown     time.Duration
	StreamInterval      time.Duration
	MaxPromptIDLen      int
}

func Load() Config {
	return Config{
		Port:                getEnv("PORT", "8080"),
		AnalyticsBaseURL:    strings.TrimRight(getEnv("ANALYTICS_BASE_URL", "http://localhost:8001"), "/"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DomainStore:         strings.ToLower(getEnv("DOMAIN_STORE", "redis")),
		DomainCacheFile:     getEnv("DOMAIN_CACHE_FILE", "data/brand_domains.json"),
		AliasFile:           getEnv("ALIAS_FILE", ""),
		FaviconSize:         getEnvInt("FAVICON_SIZE", 64),
		MergeStrategy:       getEnv("RANKING_MERGE_STRATEGY", "running_average"),
		CacheTTLRankingHard: getEnvDuration("CACHE_TTL_RANKING_HARD", 30*time.Minute),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 12*time.Second),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MIN", 120),
		CircuitFailLimit:    getEnvInt("CIRCUIT_FAIL_LIMIT", 3),
		CircuitCooldown:     getEnvDuration("CIRCUIT_COOLDOWN", 20*time.Second),
		StreamInterval:      getEnvDuration("STREAM_INTERVAL", 30*time.Second),
		MaxPromptIDLen:      getEnvInt("MAX_PROMPT_ID_LEN", 128),
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Second
}
