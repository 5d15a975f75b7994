package app

import (
	"context"
	"fmt"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/auth"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/cache"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/config"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/digest"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/feed"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/httpapi"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/pipeline"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/ratelimit"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/render"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/scraper"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/urlcheck"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/validator"
)

// App holds all application dependencies
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Cache        cache.Cache
	Validator    *validator.Validator
	Orchestrator *pipeline.Orchestrator
	HTTPServer   *httpapi.Server
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = app.initLogger()

	// Initialize cache
	app.Cache = app.initCache()

	// One limiter per concern: outbound hosts share a budget,
	// inbound generation requests get their own.
	hostLimiter := ratelimit.New(cfg.Outbound.HostInterval)
	apiLimiter := ratelimit.New(cfg.Server.APIRateLimit)

	// Initialize feed pipeline components
	fetcher := feed.NewFetcher(nil, hostLimiter, feed.FetcherConfig{
		Timeout:   cfg.Fetch.Timeout,
		MaxBody:   cfg.Fetch.MaxBody,
		UserAgent: feed.DefaultFetcherConfig().UserAgent,
	})
	parser := feed.NewParser()

	extractor := scraper.NewHTMLExtractor(nil, feed.DefaultFetcherConfig().UserAgent)
	articleScraper := scraper.New(extractor, hostLimiter, app.Cache, scraper.Config{
		Timeout:  cfg.Scrape.Timeout,
		CacheTTL: cfg.Cache.TTL,
	})

	app.Validator = validator.New(fetcher, parser, articleScraper, app.Cache, cfg.Cache.TTL, app.Logger)

	renderer, err := render.NewHTMLRenderer(cfg.Render.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("load digest template: %w", err)
	}

	app.Orchestrator = pipeline.New(fetcher, parser, articleScraper, digest.NewComposer(), renderer, cfg.Scrape.Workers, app.Logger)

	// Initialize HTTP server
	limits := httpapi.Limits{
		MaxFeeds:    cfg.Server.MaxFeeds,
		MaxDaysBack: cfg.Server.MaxDaysBack,
	}
	app.HTTPServer = httpapi.New(app.Validator, app.Orchestrator, urlcheck.New(), auth.NewMiddleware(app.Logger), apiLimiter, limits, app.Logger)

	return app, nil
}

// Run starts the HTTP server and blocks until it exits
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if closer, ok := a.Cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Error("Cache close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.LevelInfo
	switch a.Config.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(level)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "digest:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}
