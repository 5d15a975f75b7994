// Package scraper turns feed entries into full articles by extracting
// content from their links. The scraper knows nothing about feed
// formats; it operates purely on URLs, so the validator's single-article
// probe and the pipeline's bulk scraping share it unchanged.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/cache"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/ratelimit"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/textutil"
)

// ExtractReason classifies why an extraction failed
type ExtractReason string

const (
	ReasonUnreachable  ExtractReason = "unreachable"
	ReasonUnsupported  ExtractReason = "unsupported"
	ReasonEmptyContent ExtractReason = "empty_content"
)

// ExtractError is the typed failure an Extractor returns
type ExtractError struct {
	Reason ExtractReason
	URL    string
	Err    error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Extractor is the article-extraction collaborator boundary
type Extractor interface {
	Extract(ctx context.Context, url string) (*models.ScrapedArticle, error)
}

// Scraper bounds each extraction with a timeout, throttles requests per
// article host, caches results by article URL and fills gaps in
// extracted content from the feed entry.
type Scraper struct {
	extractor Extractor
	limiter   *ratelimit.Limiter
	cache     cache.Cache
	timeout   time.Duration
	cacheTTL  time.Duration
}

// Config holds scraper settings
type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Timeout:  8 * time.Second,
		CacheTTL: 15 * time.Minute,
	}
}

// New creates a scraper. A nil limiter disables host throttling and a
// nil cache disables caching.
func New(extractor Extractor, limiter *ratelimit.Limiter, c cache.Cache, cfg Config) *Scraper {
	return &Scraper{
		extractor: extractor,
		limiter:   limiter,
		cache:     c,
		timeout:   cfg.Timeout,
		cacheTTL:  cfg.CacheTTL,
	}
}

// Scrape extracts the article behind one feed entry. Each invocation is
// independent and time-bounded; a failure here never affects sibling
// articles, which is the caller's isolation contract.
func (s *Scraper) Scrape(ctx context.Context, entry models.FeedEntry) (*models.ScrapedArticle, error) {
	if entry.Link == "" {
		return nil, &ExtractError{Reason: ReasonUnsupported, URL: "", Err: errors.New("entry has no link")}
	}

	if cached, ok := s.cachedArticle(entry.Link); ok {
		return s.merge(cached, entry), nil
	}

	// Wait out the host throttle before starting the clock, so time
	// spent queued behind sibling articles never counts against the
	// extraction deadline.
	if s.limiter != nil {
		if host := hostOf(entry.Link); host != "" {
			s.limiter.Wait(host)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	article, err := s.extractor.Extract(ctx, entry.Link)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ExtractError{Reason: ReasonUnreachable, URL: entry.Link,
				Err: fmt.Errorf("timed out after %s", s.timeout)}
		}
		var extractErr *ExtractError
		if errors.As(err, &extractErr) {
			return nil, extractErr
		}
		return nil, &ExtractError{Reason: ReasonUnreachable, URL: entry.Link, Err: err}
	}

	if s.cache != nil {
		s.cache.SetWithTTL(articleKey(entry.Link), article, s.cacheTTL)
	}

	return s.merge(article, entry), nil
}

// merge prefers extracted fields, falling back to what the feed entry
// already carried. The result is owned by the calling run.
func (s *Scraper) merge(article *models.ScrapedArticle, entry models.FeedEntry) *models.ScrapedArticle {
	merged := *article
	if merged.Title == "" {
		merged.Title = textutil.Clean(entry.Title)
	}
	if merged.PublishedAt == nil && entry.HasDate() {
		t := *entry.PublishedAt
		merged.PublishedAt = &t
	}
	if merged.Summary == "" && entry.RawContent != "" {
		merged.Summary = textutil.Truncate(textutil.Clean(entry.RawContent), 280)
	}
	return &merged
}

func (s *Scraper) cachedArticle(link string) (*models.ScrapedArticle, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, ok := s.cache.Get(articleKey(link))
	if !ok {
		return nil, false
	}
	var article models.ScrapedArticle
	if !cache.DecodeInto(value, &article) || article.URL == "" {
		return nil, false
	}
	return &article, true
}

func articleKey(link string) string {
	return "article:" + link
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// FailureFor converts an extraction error into the run-level failure
// taxonomy for outcome reporting.
func FailureFor(err error) *models.Failure {
	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return models.WrapFailure(models.FailureExtract,
			fmt.Sprintf("%s: %v", extractErr.Reason, extractErr.Err), err)
	}
	return models.WrapFailure(models.FailureExtract, err.Error(), err)
}
