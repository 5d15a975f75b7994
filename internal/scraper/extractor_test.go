package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
<title>Page Title | Site Name</title>
<meta property="og:title" content="Shipping a Storage Engine in Six Months">
<meta property="og:image" content="https://cdn.example.com/cover.jpg">
<meta name="description" content="How a small team built and shipped a log-structured storage engine.">
</head>
<body>
<nav><p>Home</p><p>About</p></nav>
<article>
<p>When we started the project nobody believed a storage engine could ship in six months.</p>
<p>Short.</p>
<p>The first milestone was a write path that survived a power cut, which took longer than everything else combined.</p>
</article>
</body>
</html>`

func TestExtract_FullPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	ext := NewHTMLExtractor(nil, "TestAgent/1.0")
	article, err := ext.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if article.Title != "Shipping a Storage Engine in Six Months" {
		t.Errorf("Title = %q, want the og:title value", article.Title)
	}
	if article.Image != "https://cdn.example.com/cover.jpg" {
		t.Errorf("Image = %q, want the og:image value", article.Image)
	}
	if article.Summary != "How a small team built and shipped a log-structured storage engine." {
		t.Errorf("Summary = %q, want the meta description", article.Summary)
	}
	// "Short." and the nav links are under the paragraph length floor.
	if strings.Contains(article.Body, "Short.") {
		t.Error("Body should not contain sub-threshold paragraphs")
	}
	if strings.Contains(article.Body, "Home") {
		t.Error("Body should not contain navigation text")
	}
	if !strings.Contains(article.Body, "write path that survived a power cut") {
		t.Errorf("Body = %q, missing article paragraph", article.Body)
	}
}

func TestExtract_TitleFallsBackToTitleTag(t *testing.T) {
	page := `<html><head><title>Plain Title</title></head><body>
<p>A paragraph long enough to count as real article body text for extraction.</p>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	ext := NewHTMLExtractor(nil, "")
	article, err := ext.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if article.Title != "Plain Title" {
		t.Errorf("Title = %q, want %q", article.Title, "Plain Title")
	}
	// No meta description: summary comes from leading paragraphs.
	if article.Summary == "" {
		t.Error("Summary should fall back to leading paragraphs")
	}
}

func TestExtract_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><div class="paywall">Subscribe to read</div></body></html>`))
	}))
	defer srv.Close()

	ext := NewHTMLExtractor(nil, "")
	_, err := ext.Extract(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Extract() expected error for empty page, got nil")
	}
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("error %v is not *ExtractError", err)
	}
	if extractErr.Reason != ReasonEmptyContent {
		t.Errorf("Reason = %q, want %q", extractErr.Reason, ReasonEmptyContent)
	}
}

func TestExtract_NonHTMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	ext := NewHTMLExtractor(nil, "")
	_, err := ext.Extract(context.Background(), srv.URL)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("error %v is not *ExtractError", err)
	}
	if extractErr.Reason != ReasonUnsupported {
		t.Errorf("Reason = %q, want %q", extractErr.Reason, ReasonUnsupported)
	}
}

func TestExtract_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	ext := NewHTMLExtractor(nil, "")
	_, err := ext.Extract(context.Background(), srv.URL)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("error %v is not *ExtractError", err)
	}
	if extractErr.Reason != ReasonUnreachable {
		t.Errorf("Reason = %q, want %q", extractErr.Reason, ReasonUnreachable)
	}
}

func TestExtract_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ext := NewHTMLExtractor(nil, "")
	_, err := ext.Extract(context.Background(), url)
	var extractErr *ExtractError
	if !errors.As(err, &extractErr) {
		t.Fatalf("error %v is not *ExtractError", err)
	}
	if extractErr.Reason != ReasonUnreachable {
		t.Errorf("Reason = %q, want %q", extractErr.Reason, ReasonUnreachable)
	}
}
