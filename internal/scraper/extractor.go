package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/textutil"
)

// Paragraphs shorter than this are navigation chrome, bylines or social
// widgets rather than article text.
const minParagraphLen = 60

// How many leading paragraphs form the summary when the page offers no
// meta description.
const summaryParagraphs = 3

// HTMLExtractor is the default Extractor: it fetches the article page
// and pulls structured content out of the HTML.
type HTMLExtractor struct {
	client    *http.Client
	userAgent string
}

// NewHTMLExtractor creates the goquery-backed extractor. A nil client
// uses a plain http.Client; per-article deadlines come from the caller's
// context.
func NewHTMLExtractor(client *http.Client, userAgent string) *HTMLExtractor {
	if client == nil {
		client = &http.Client{}
	}
	return &HTMLExtractor{client: client, userAgent: userAgent}
}

// Extract fetches articleURL and returns its structured content.
// Failures are *ExtractError with reason unreachable, unsupported or
// empty_content.
func (e *HTMLExtractor) Extract(ctx context.Context, articleURL string) (*models.ScrapedArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return nil, &ExtractError{Reason: ReasonUnreachable, URL: articleURL, Err: err}
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ExtractError{Reason: ReasonUnreachable, URL: articleURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExtractError{Reason: ReasonUnreachable, URL: articleURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, &ExtractError{Reason: ReasonUnsupported, URL: articleURL, Err: fmt.Errorf("content type %q", contentType)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &ExtractError{Reason: ReasonUnsupported, URL: articleURL, Err: err}
	}

	article := &models.ScrapedArticle{
		URL:   articleURL,
		Title: extractTitle(doc),
		Image: extractImage(doc),
	}

	paragraphs := extractParagraphs(doc)
	article.Body = strings.Join(paragraphs, "\n\n")
	article.Summary = extractSummary(doc, paragraphs)

	if article.Summary == "" && article.Body == "" {
		return nil, &ExtractError{Reason: ReasonEmptyContent, URL: articleURL,
			Err: fmt.Errorf("no extractable body, possibly paywalled or JS-rendered")}
	}

	return article, nil
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		return textutil.Clean(og)
	}
	if t := doc.Find("title").First().Text(); t != "" {
		return textutil.Clean(t)
	}
	return textutil.Clean(doc.Find("h1").First().Text())
}

func extractImage(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	if tw, ok := doc.Find(`meta[name="twitter:image"]`).Attr("content"); ok {
		return strings.TrimSpace(tw)
	}
	return ""
}

// extractParagraphs prefers paragraphs inside an <article> element and
// falls back to the whole document, keeping only substantial text.
func extractParagraphs(doc *goquery.Document) []string {
	scope := doc.Find("article p")
	if scope.Length() == 0 {
		scope = doc.Find("p")
	}

	var paragraphs []string
	scope.Each(func(_ int, s *goquery.Selection) {
		text := textutil.Clean(s.Text())
		if len(text) >= minParagraphLen {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

func extractSummary(doc *goquery.Document, paragraphs []string) string {
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if cleaned := textutil.Clean(desc); cleaned != "" {
			return cleaned
		}
	}
	if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if cleaned := textutil.Clean(og); cleaned != "" {
			return cleaned
		}
	}

	n := len(paragraphs)
	if n > summaryParagraphs {
		n = summaryParagraphs
	}
	return strings.Join(paragraphs[:n], " ")
}
