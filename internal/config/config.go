package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Fetch    FetchConfig
	Scrape   ScrapeConfig
	Cache    CacheConfig
	Render   RenderConfig
	Logging  LoggingConfig
	Outbound OutboundConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr    string
	MaxFeeds    int
	MaxDaysBack int
	// Minimum interval between generation requests from one client
	APIRateLimit time.Duration
}

// FetchConfig holds feed retrieval configuration
type FetchConfig struct {
	Timeout time.Duration
	MaxBody int64
}

// ScrapeConfig holds article extraction configuration
type ScrapeConfig struct {
	Timeout time.Duration
	Workers int
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// RenderConfig holds document rendering configuration
type RenderConfig struct {
	TemplatePath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// OutboundConfig throttles requests against third-party hosts
type OutboundConfig struct {
	HostInterval time.Duration
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	maxFeeds := flag.Int("max-feeds", 10, "Maximum feeds per generation request")
	maxDaysBack := flag.Int("max-days-back", 30, "Maximum days_back accepted")
	apiRateLimit := flag.Duration("api-rate-limit", 10*time.Second, "Minimum delay between generation requests per client")
	fetchTimeout := flag.Duration("fetch-timeout", 10*time.Second, "Per-feed fetch timeout")
	fetchMaxBody := flag.Int64("fetch-max-body", 5*1024*1024, "Maximum feed response size in bytes")
	scrapeTimeout := flag.Duration("scrape-timeout", 8*time.Second, "Per-article scrape timeout")
	workers := flag.Int("workers", 16, "Concurrent outbound operations per run")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Cache TTL for reports and articles")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	templatePath := flag.String("template", "", "Custom digest template path (empty uses the built-in layout)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	hostInterval := flag.Duration("host-interval", time.Second, "Minimum delay between requests to the same host")

	flag.Parse()

	applyEnvOverrides(httpAddr, maxFeeds, maxDaysBack, apiRateLimit, fetchTimeout, fetchMaxBody, scrapeTimeout, workers, cacheBackend, cacheTTL, redisAddr, templatePath, logLevel, hostInterval)

	return &Config{
		Server: ServerConfig{
			HTTPAddr:     *httpAddr,
			MaxFeeds:     *maxFeeds,
			MaxDaysBack:  *maxDaysBack,
			APIRateLimit: *apiRateLimit,
		},
		Fetch: FetchConfig{
			Timeout: *fetchTimeout,
			MaxBody: *fetchMaxBody,
		},
		Scrape: ScrapeConfig{
			Timeout: *scrapeTimeout,
			Workers: *workers,
		},
		Cache: CacheConfig{
			Backend:   *cacheBackend,
			TTL:       *cacheTTL,
			RedisAddr: *redisAddr,
		},
		Render: RenderConfig{
			TemplatePath: *templatePath,
		},
		Logging: LoggingConfig{
			Level: *logLevel,
		},
		Outbound: OutboundConfig{
			HostInterval: *hostInterval,
		},
	}
}

func applyEnvOverrides(
	httpAddr *string,
	maxFeeds *int,
	maxDaysBack *int,
	apiRateLimit *time.Duration,
	fetchTimeout *time.Duration,
	fetchMaxBody *int64,
	scrapeTimeout *time.Duration,
	workers *int,
	cacheBackend *string,
	cacheTTL *time.Duration,
	redisAddr *string,
	templatePath *string,
	logLevel *string,
	hostInterval *time.Duration,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("MAX_FEEDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*maxFeeds = n
		}
	}
	if v := os.Getenv("MAX_DAYS_BACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*maxDaysBack = n
		}
	}
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*apiRateLimit = d
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*fetchTimeout = d
		}
	}
	if v := os.Getenv("FETCH_MAX_BODY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			*fetchMaxBody = n
		}
	}
	if v := os.Getenv("SCRAPE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*scrapeTimeout = d
		}
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*workers = n
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("DIGEST_TEMPLATE"); v != "" {
		*templatePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("HOST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*hostInterval = d
		}
	}
}
