package validator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/cache"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/feed"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/scraper"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/testutil"
)

const articleHTML = `<html><head>
<title>Probe Article</title>
<meta name="description" content="A short description of the probe article.">
</head><body><article>
<p>This paragraph is comfortably long enough to pass the extraction length threshold.</p>
</article></body></html>`

func feedXML(articleURL string, withDates bool) string {
	pubDate := ""
	if withDates {
		pubDate = "<pubDate>Tue, 25 Aug 2026 08:00:00 GMT</pubDate>"
	}
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test Feed</title>
<item><title>First</title><link>%s</link>%s</item>
<item><title>Second</title><link>%s</link>%s</item>
</channel></rss>`, articleURL, pubDate, articleURL, pubDate)
}

func newValidator(t *testing.T, c cache.Cache) *Validator {
	t.Helper()
	fetcher := feed.NewFetcher(nil, nil, feed.DefaultFetcherConfig())
	extractor := scraper.NewHTMLExtractor(nil, "TestAgent/1.0")
	s := scraper.New(extractor, nil, nil, scraper.DefaultConfig())
	return New(fetcher, feed.NewParser(), s, c, time.Minute, testutil.NullLogger())
}

func TestValidate_AllChecksPass(t *testing.T) {
	articleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer articleSrv.Close()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedXML(articleSrv.URL, true)))
	}))
	defer feedSrv.Close()

	report := newValidator(t, nil).Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})

	if report.Status != models.StatusOK {
		t.Fatalf("Status = %q, want %q (checks: %+v)", report.Status, models.StatusOK, report.Checks)
	}
	if len(report.Checks) != 4 {
		t.Fatalf("len(Checks) = %d, want 4", len(report.Checks))
	}
	for i, check := range report.Checks {
		if !check.OK {
			t.Errorf("Checks[%d] (%s) failed: %s", i, check.ID, check.Detail)
		}
	}
	if report.SampleArticle == nil {
		t.Fatal("SampleArticle = nil, want the probe result")
	}
	if report.SampleArticle.Body != "" {
		t.Error("SampleArticle.Body should be stripped from the report")
	}
	if report.SampleArticle.Title != "Probe Article" {
		t.Errorf("SampleArticle.Title = %q, want %q", report.SampleArticle.Title, "Probe Article")
	}
}

func TestValidate_UnreachableFeed(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer feedSrv.Close()

	report := newValidator(t, nil).Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})

	if report.Status != models.StatusError {
		t.Fatalf("Status = %q, want %q", report.Status, models.StatusError)
	}
	if report.Checks[0].OK {
		t.Error("reachable check should fail for a 404 feed")
	}
	if report.Checks[0].Detail != "HTTP 404" {
		t.Errorf("Checks[0].Detail = %q, want %q", report.Checks[0].Detail, "HTTP 404")
	}
	// Downstream checks are reported but never attempted.
	for i := 1; i < 4; i++ {
		if report.Checks[i].OK {
			t.Errorf("Checks[%d] should remain failed after a fetch failure", i)
		}
		if report.Checks[i].Detail != "skipped: prerequisite failed" {
			t.Errorf("Checks[%d].Detail = %q, want skipped detail", i, report.Checks[i].Detail)
		}
	}
	if report.SampleArticle != nil {
		t.Error("SampleArticle should be nil when validation fails early")
	}
}

func TestValidate_UnparseableFeed(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>this is a web page, not a feed</body></html>"))
	}))
	defer feedSrv.Close()

	report := newValidator(t, nil).Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})

	if report.Status != models.StatusError {
		t.Fatalf("Status = %q, want %q", report.Status, models.StatusError)
	}
	if !report.Checks[0].OK {
		t.Error("reachable check should pass; the server responded")
	}
	if report.Checks[1].OK {
		t.Error("parseable check should fail for HTML input")
	}
}

func TestValidate_NoDates(t *testing.T) {
	articleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer articleSrv.Close()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedXML(articleSrv.URL, false)))
	}))
	defer feedSrv.Close()

	report := newValidator(t, nil).Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})

	if report.Status != models.StatusPartial {
		t.Fatalf("Status = %q, want %q (checks: %+v)", report.Status, models.StatusPartial, report.Checks)
	}
	if report.Checks[2].OK {
		t.Error("has_dates check should fail when no entry carries a timestamp")
	}
	if report.Checks[2].Detail != "no usable date fields found" {
		t.Errorf("Checks[2].Detail = %q", report.Checks[2].Detail)
	}
	if report.Checks[3].OK {
		t.Error("scrapeable check should remain skipped after has_dates fails")
	}
}

func TestValidate_ScrapeFails(t *testing.T) {
	articleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer articleSrv.Close()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedXML(articleSrv.URL, true)))
	}))
	defer feedSrv.Close()

	report := newValidator(t, nil).Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})

	if report.Status != models.StatusPartial {
		t.Fatalf("Status = %q, want %q", report.Status, models.StatusPartial)
	}
	if !report.Checks[0].OK || !report.Checks[1].OK || !report.Checks[2].OK {
		t.Error("first three checks should pass")
	}
	if report.Checks[3].OK {
		t.Error("scrapeable check should fail when the article endpoint errors")
	}
	if report.SampleArticle != nil {
		t.Error("SampleArticle should be nil when the probe fails")
	}
}

func TestValidate_CachedReport(t *testing.T) {
	requests := 0
	articleSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer articleSrv.Close()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(feedXML(articleSrv.URL, true)))
	}))
	defer feedSrv.Close()

	c := cache.NewMemory(time.Minute)
	defer func() { _ = c.Close() }()
	v := newValidator(t, c)

	first := v.Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})
	second := v.Validate(context.Background(), models.FeedSource{URL: feedSrv.URL})

	if requests != 1 {
		t.Errorf("feed fetched %d times, want 1 (second validation served from cache)", requests)
	}
	if first.Status != second.Status {
		t.Errorf("cached status %q differs from original %q", second.Status, first.Status)
	}
}
