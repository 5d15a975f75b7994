package models

import (
	"strings"
	"time"
)

// FeedSource identifies a syndication endpoint for the duration of one
// request. Identity is the trimmed URL, case-sensitive.
type FeedSource struct {
	URL string `json:"url"`
}

// NewFeedSource trims surrounding whitespace; no other normalization
func NewFeedSource(raw string) FeedSource {
	return FeedSource{URL: strings.TrimSpace(raw)}
}

// FeedEntry is one item listed in a feed. PublishedAt and RawContent may
// be absent (nil / empty); the entry is immutable once produced.
type FeedEntry struct {
	Title       string
	Link        string
	PublishedAt *time.Time
	RawContent  string
}

// HasDate reports whether the entry carries a usable publish timestamp
func (e FeedEntry) HasDate() bool {
	return e.PublishedAt != nil && !e.PublishedAt.IsZero()
}

// ScrapedArticle is the full extracted content for an entry
type ScrapedArticle struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Summary     string     `json:"summary"`
	Body        string     `json:"body,omitempty"`
	Image       string     `json:"image,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// CheckID names one of the four validation checks
type CheckID string

const (
	CheckReachable  CheckID = "reachable"
	CheckParseable  CheckID = "parseable"
	CheckHasDates   CheckID = "has_dates"
	CheckScrapeable CheckID = "scrapeable"
)

// CheckResult is the outcome of a single validation check
type CheckResult struct {
	ID     CheckID `json:"id"`
	OK     bool    `json:"ok"`
	Detail string  `json:"detail"`
}

// ValidationStatus is the overall verdict of a validation run
type ValidationStatus string

const (
	StatusOK      ValidationStatus = "ok"
	StatusPartial ValidationStatus = "partial"
	StatusError   ValidationStatus = "error"
)

// ValidationReport holds all four check results plus the derived status.
// Checks always has exactly four elements in dependency order; a check
// whose prerequisite failed is reported as failed, never omitted.
type ValidationReport struct {
	URL           string           `json:"url"`
	Checks        []CheckResult    `json:"checks"`
	Status        ValidationStatus `json:"status"`
	SampleArticle *ScrapedArticle  `json:"sample_article,omitempty"`
}

// DigestRequest is the caller input for one generation run. Feeds is
// deduplicated with order preserved; DaysBack is at least 1.
type DigestRequest struct {
	Feeds    []FeedSource
	DaysBack int
}

// Stage names a pipeline state
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageScrape Stage = "scrape"
	StageFilter Stage = "filter"
	StageRender Stage = "render"
	StageDone   Stage = "done"
	StageFailed Stage = "failed"
)

// FeedSummary reports how a single feed fared during a run
type FeedSummary struct {
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	OK           bool   `json:"ok"`
	ArticleCount int    `json:"articles"`
	Reason       string `json:"reason,omitempty"`
}

// RunSummary is the per-feed outcome report carried by a finished run
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Feeds         []FeedSummary `json:"feeds"`
	TotalArticles int           `json:"total_articles"`
}

// DigestGroup is one feed's slice of the composed digest
type DigestGroup struct {
	Source   FeedSource
	Title    string
	Articles []ScrapedArticle
}

// Digest is the composed, ordered article set handed to the renderer.
// Groups follow the order sources were supplied; within a group articles
// are newest-first with undated articles last. EmptySources lists feeds
// that contributed nothing.
type Digest struct {
	GeneratedAt  time.Time
	Groups       []DigestGroup
	EmptySources []FeedSource
}

// ArticleCount returns the total number of articles across all groups
func (d *Digest) ArticleCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Articles)
	}
	return n
}
