// Package pipeline sequences a digest generation run through its
// stages: fetch, scrape, filter, render. Per-feed and per-article
// failures are tolerated and recorded; the run as a whole fails only
// when every feed fails fetch or the renderer itself fails.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/digest"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/feed"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/render"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/scraper"
)

// StageEvent reports a real pipeline state transition. Progress shown to
// clients comes from these events, never from a fabricated timer.
type StageEvent struct {
	RunID string       `json:"run_id"`
	Stage models.Stage `json:"stage"`
	At    time.Time    `json:"at"`
}

// Options carries per-run observers. Both are optional and are invoked
// from the orchestrating goroutine only, never concurrently.
type Options struct {
	OnStage func(StageEvent)
	OnFeed  func(models.FeedSummary)
}

// Result is a finished run: the rendered artifact plus the per-feed
// outcome summary.
type Result struct {
	Artifact    []byte
	ContentType string
	Summary     models.RunSummary
}

// RunError is a run-level failure carrying the per-feed summary so the
// caller can still report what happened to each feed.
type RunError struct {
	Summary models.RunSummary
	Failure *models.Failure
}

func (e *RunError) Error() string { return e.Failure.Error() }
func (e *RunError) Unwrap() error { return e.Failure }

// Orchestrator owns a run's state machine. It holds no cross-run state;
// each Run call is fully isolated.
type Orchestrator struct {
	fetcher  *feed.Fetcher
	parser   *feed.Parser
	scraper  *scraper.Scraper
	composer *digest.Composer
	renderer render.Renderer
	logger   *logging.Logger
	workers  int
}

// New creates an orchestrator. workers caps concurrent outbound
// operations per run.
func New(fetcher *feed.Fetcher, parser *feed.Parser, s *scraper.Scraper, composer *digest.Composer, renderer render.Renderer, workers int, logger *logging.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		fetcher:  fetcher,
		parser:   parser,
		scraper:  s,
		composer: composer,
		renderer: renderer,
		logger:   logger,
		workers:  workers,
	}
}

// feedSlot is one feed's run-scoped outcome arena entry. Slots are
// indexed by feed position; each is written by exactly one worker, so
// no lock is needed beyond the stage barrier.
type feedSlot struct {
	source   models.FeedSource
	title    string
	entries  []models.FeedEntry
	articles []models.ScrapedArticle
	failure  *models.Failure
}

// Run executes the full pipeline for one request
func (o *Orchestrator) Run(ctx context.Context, req models.DigestRequest, opts Options) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	now := time.Now()

	slots := make([]feedSlot, len(req.Feeds))
	for i, src := range req.Feeds {
		slots[i].source = src
	}

	// fetch: all feeds in parallel, failures recorded per feed
	o.transition(runID, models.StageFetch, opts)
	o.fetchStage(ctx, req.DaysBack, now, slots)

	if err := ctx.Err(); err != nil {
		return nil, o.fail(runID, slots, opts,
			models.WrapFailure(models.FailureNetwork, "run canceled", err))
	}

	allFailed := true
	for i := range slots {
		if slots[i].failure == nil {
			allFailed = false
			break
		}
	}
	if allFailed {
		return nil, o.fail(runID, slots, opts,
			models.NewFailure(models.FailureNetwork, "every feed in the request failed"))
	}

	// scrape: surviving feeds' entries in parallel, article failures isolated
	o.transition(runID, models.StageScrape, opts)
	o.scrapeStage(ctx, slots)

	if err := ctx.Err(); err != nil {
		return nil, o.fail(runID, slots, opts,
			models.WrapFailure(models.FailureNetwork, "run canceled", err))
	}

	// filter: drop feeds that ended the scrape with nothing usable
	o.transition(runID, models.StageFilter, opts)
	summary := o.filterStage(runID, slots, opts)

	// render: compose the digest and hand it to the renderer
	o.transition(runID, models.StageRender, opts)

	feeds := make([]digest.FeedArticles, 0, len(slots))
	for i := range slots {
		if slots[i].failure != nil {
			continue
		}
		feeds = append(feeds, digest.FeedArticles{
			Source:   slots[i].source,
			Title:    slots[i].title,
			Articles: slots[i].articles,
		})
	}
	composed := o.composer.Compose(feeds, now)

	artifact, err := o.renderer.Render(ctx, composed)
	if err != nil {
		return nil, o.fail(runID, slots, opts,
			models.WrapFailure(models.FailureRender, models.DetailOf(err), err))
	}

	o.transition(runID, models.StageDone, opts)
	o.logger.Info("digest run complete", logging.WithFields(map[string]interface{}{
		"run_id":   runID,
		"feeds":    len(req.Feeds),
		"articles": summary.TotalArticles,
	}))

	return &Result{
		Artifact:    artifact,
		ContentType: o.renderer.ContentType(),
		Summary:     summary,
	}, nil
}

func validateRequest(req models.DigestRequest) error {
	if len(req.Feeds) == 0 {
		return models.NewFailure(models.FailureInvalidRequest, "at least one feed is required")
	}
	if req.DaysBack < 1 {
		return models.NewFailure(models.FailureInvalidRequest, "days_back must be at least 1")
	}
	return nil
}

// fetchStage fetches, parses and time-filters every feed concurrently
// with a bounded pool. Each worker writes only its own slot.
func (o *Orchestrator) fetchStage(ctx context.Context, daysBack int, now time.Time, slots []feedSlot) {
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for i := range slots {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot *feedSlot) {
			defer wg.Done()
			defer func() { <-sem }()

			body, err := o.fetcher.Fetch(ctx, slot.source.URL)
			if err != nil {
				slot.failure = asFailure(err, models.FailureNetwork)
				o.logger.Warn("feed fetch failed", logging.WithFields(map[string]interface{}{
					"url":    slot.source.URL,
					"reason": models.DetailOf(err),
				}))
				return
			}

			parsed, err := o.parser.Parse(body)
			if err != nil {
				slot.failure = asFailure(err, models.FailureMalformedFeed)
				o.logger.Warn("feed parse failed", logging.WithFields(map[string]interface{}{
					"url":    slot.source.URL,
					"reason": models.DetailOf(err),
				}))
				return
			}

			slot.title = parsed.Title
			slot.entries = feed.WithinWindow(parsed.Entries, daysBack, now)
		}(&slots[i])
	}

	wg.Wait()
}

// scrapeStage scrapes every surviving entry concurrently. Article
// results land in per-entry arena slots; a failed article leaves its
// slot nil and never disturbs siblings.
func (o *Orchestrator) scrapeStage(ctx context.Context, slots []feedSlot) {
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	type arena struct {
		results []*models.ScrapedArticle
	}
	arenas := make([]arena, len(slots))

	for i := range slots {
		if slots[i].failure != nil {
			continue
		}
		arenas[i].results = make([]*models.ScrapedArticle, len(slots[i].entries))

		for j := range slots[i].entries {
			wg.Add(1)
			sem <- struct{}{}
			go func(entry models.FeedEntry, out **models.ScrapedArticle, feedURL string) {
				defer wg.Done()
				defer func() { <-sem }()

				article, err := o.scraper.Scrape(ctx, entry)
				if err != nil {
					o.logger.Debug("article scrape failed", logging.WithFields(map[string]interface{}{
						"feed":   feedURL,
						"link":   entry.Link,
						"reason": models.DetailOf(scraper.FailureFor(err)),
					}))
					return
				}
				*out = article
			}(slots[i].entries[j], &arenas[i].results[j], slots[i].source.URL)
		}
	}

	wg.Wait()

	for i := range slots {
		if slots[i].failure != nil {
			continue
		}
		for _, a := range arenas[i].results {
			if a != nil {
				slots[i].articles = append(slots[i].articles, *a)
			}
		}
	}
}

// filterStage drops feeds with zero usable articles and builds the
// run summary, emitting one feed event per outcome.
func (o *Orchestrator) filterStage(runID string, slots []feedSlot, opts Options) models.RunSummary {
	summary := models.RunSummary{RunID: runID}

	for i := range slots {
		slot := &slots[i]
		fs := models.FeedSummary{URL: slot.source.URL, Title: slot.title}

		switch {
		case slot.failure != nil:
			fs.Reason = slot.failure.Detail
		case len(slot.articles) == 0:
			slot.failure = models.NewFailure(models.FailureExtract, "no usable articles within window")
			fs.Reason = slot.failure.Detail
		default:
			fs.OK = true
			fs.ArticleCount = len(slot.articles)
			summary.TotalArticles += len(slot.articles)
		}

		summary.Feeds = append(summary.Feeds, fs)
		if opts.OnFeed != nil {
			opts.OnFeed(fs)
		}
	}

	return summary
}

func (o *Orchestrator) transition(runID string, stage models.Stage, opts Options) {
	o.logger.Debug("pipeline stage", logging.WithFields(map[string]interface{}{
		"run_id": runID,
		"stage":  string(stage),
	}))
	if opts.OnStage != nil {
		opts.OnStage(StageEvent{RunID: runID, Stage: stage, At: time.Now()})
	}
}

// fail moves the run to its terminal failed state
func (o *Orchestrator) fail(runID string, slots []feedSlot, opts Options, failure *models.Failure) error {
	summary := models.RunSummary{RunID: runID}
	for i := range slots {
		fs := models.FeedSummary{URL: slots[i].source.URL, Title: slots[i].title}
		if slots[i].failure != nil {
			fs.Reason = slots[i].failure.Detail
		} else {
			fs.OK = true
			fs.ArticleCount = len(slots[i].articles)
		}
		summary.Feeds = append(summary.Feeds, fs)
	}

	o.transition(runID, models.StageFailed, opts)
	o.logger.Error("digest run failed", logging.WithFields(map[string]interface{}{
		"run_id": runID,
		"reason": failure.Detail,
	}))

	return &RunError{Summary: summary, Failure: failure}
}

func asFailure(err error, fallback models.FailureKind) *models.Failure {
	if f, ok := err.(*models.Failure); ok {
		return f
	}
	return models.WrapFailure(fallback, err.Error(), err)
}
