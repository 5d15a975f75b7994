// Package validator decides whether a feed source is usable. It runs
// four checks in strict dependency order: a feed that cannot be fetched
// cannot be parsed, and testing content extraction on a feed that does
// not parse is meaningless. Downstream checks are never attempted once
// an upstream one fails, but they are still reported as failed so the
// caller always sees all four results.
package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/cache"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/feed"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/scraper"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/textutil"
)

const skippedDetail = "skipped: prerequisite failed"

// How many leading entries are sampled for the has_dates check
const dateSampleSize = 10

// Validator composes fetcher, parser, time filter and scraper into a
// four-check verdict.
type Validator struct {
	fetcher  *feed.Fetcher
	parser   *feed.Parser
	scraper  *scraper.Scraper
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *logging.Logger
}

// New creates a validator. A nil cache disables report caching.
func New(fetcher *feed.Fetcher, parser *feed.Parser, s *scraper.Scraper, c cache.Cache, cacheTTL time.Duration, logger *logging.Logger) *Validator {
	return &Validator{
		fetcher:  fetcher,
		parser:   parser,
		scraper:  s,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Validate produces the four-check report for one feed source
func (v *Validator) Validate(ctx context.Context, source models.FeedSource) models.ValidationReport {
	if report, ok := v.cachedReport(source.URL); ok {
		v.logger.Debug("validation served from cache", logging.WithField("url", source.URL))
		return report
	}

	report := models.ValidationReport{
		URL: source.URL,
		Checks: []models.CheckResult{
			{ID: models.CheckReachable, Detail: skippedDetail},
			{ID: models.CheckParseable, Detail: skippedDetail},
			{ID: models.CheckHasDates, Detail: skippedDetail},
			{ID: models.CheckScrapeable, Detail: skippedDetail},
		},
	}

	v.runChecks(ctx, source, &report)
	report.Status = deriveStatus(report.Checks)

	v.logger.Info("feed validated",
		logging.WithFields(map[string]interface{}{
			"url":    source.URL,
			"status": string(report.Status),
		}))

	if v.cache != nil {
		v.cache.SetWithTTL(reportKey(source.URL), report, v.cacheTTL)
	}
	return report
}

// runChecks fills in check results until one fails; later checks keep
// their skipped-as-failed defaults.
func (v *Validator) runChecks(ctx context.Context, source models.FeedSource, report *models.ValidationReport) {
	// 1. reachable
	body, err := v.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		report.Checks[0] = models.CheckResult{ID: models.CheckReachable, Detail: models.DetailOf(err)}
		return
	}
	report.Checks[0] = models.CheckResult{ID: models.CheckReachable, OK: true,
		Detail: fmt.Sprintf("fetched %d bytes", len(body))}

	// 2. parseable
	parsed, err := v.parser.Parse(body)
	if err != nil {
		report.Checks[1] = models.CheckResult{ID: models.CheckParseable, Detail: models.DetailOf(err)}
		return
	}
	report.Checks[1] = models.CheckResult{ID: models.CheckParseable, OK: true,
		Detail: entryCountDetail(len(parsed.Entries))}

	// 3. has_dates, sampled over the leading entries
	sample := parsed.Entries
	if len(sample) > dateSampleSize {
		sample = sample[:dateSampleSize]
	}
	dated := 0
	for _, e := range sample {
		if e.HasDate() {
			dated++
		}
	}
	if dated == 0 {
		report.Checks[2] = models.CheckResult{ID: models.CheckHasDates, Detail: "no usable date fields found"}
		return
	}
	report.Checks[2] = models.CheckResult{ID: models.CheckHasDates, OK: true,
		Detail: fmt.Sprintf("%d/%d entries have timestamps", dated, len(sample))}

	// 4. scrapeable, probing the most recent dated entry
	probe, ok := feed.MostRecentDated(parsed.Entries)
	if !ok {
		report.Checks[3] = models.CheckResult{ID: models.CheckScrapeable, Detail: "no article links in feed"}
		return
	}

	article, err := v.scraper.Scrape(ctx, probe)
	if err != nil {
		report.Checks[3] = models.CheckResult{ID: models.CheckScrapeable, Detail: models.DetailOf(scraper.FailureFor(err))}
		return
	}

	report.Checks[3] = models.CheckResult{ID: models.CheckScrapeable, OK: true, Detail: "article body extracted"}
	sampleArticle := *article
	sampleArticle.Body = ""
	sampleArticle.Summary = textutil.Truncate(sampleArticle.Summary, 280)
	report.SampleArticle = &sampleArticle
}

// deriveStatus encodes the dependency chain: a failure in the first two
// checks means the feed is unusable, a failure further down means it is
// usable with gaps.
func deriveStatus(checks []models.CheckResult) models.ValidationStatus {
	if !checks[0].OK || !checks[1].OK {
		return models.StatusError
	}
	if !checks[2].OK || !checks[3].OK {
		return models.StatusPartial
	}
	return models.StatusOK
}

func entryCountDetail(n int) string {
	if n == 1 {
		return "1 entry found"
	}
	return fmt.Sprintf("%d entries found", n)
}

func (v *Validator) cachedReport(url string) (models.ValidationReport, bool) {
	if v.cache == nil {
		return models.ValidationReport{}, false
	}
	value, ok := v.cache.Get(reportKey(url))
	if !ok {
		return models.ValidationReport{}, false
	}
	var report models.ValidationReport
	if !cache.DecodeInto(value, &report) || len(report.Checks) != 4 {
		return models.ValidationReport{}, false
	}
	return report, true
}

func reportKey(url string) string {
	return "report:" + url
}
