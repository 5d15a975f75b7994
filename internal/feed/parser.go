package feed

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/textutil"
)

// ParsedFeed is the ordered entry list produced from raw feed bytes
type ParsedFeed struct {
	Title   string
	Entries []models.FeedEntry
}

// Parser turns raw bytes into feed entries. RSS 2.0 and Atom are both
// accepted; gofeed sniffs the format from the document itself, so a
// declared content type is not required.
type Parser struct {
	parser *gofeed.Parser
}

// NewParser creates a parser
func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

// Parse parses raw feed bytes. An unparseable document or a document
// with zero usable entries yields a MalformedFeed failure. Individual
// broken entries are dropped silently: a feed with 40 valid items and 2
// broken ones yields 40 entries.
func (p *Parser) Parse(data []byte) (*ParsedFeed, error) {
	parsed, err := p.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, models.WrapFailure(models.FailureMalformedFeed, "not a valid RSS or Atom document", err)
	}

	entries := make([]models.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		title := textutil.Clean(item.Title)
		if link == "" && title == "" {
			continue
		}

		publishedAt := item.PublishedParsed
		if publishedAt == nil {
			publishedAt = item.UpdatedParsed
		}

		rawContent := item.Content
		if rawContent == "" {
			rawContent = item.Description
		}

		entries = append(entries, models.FeedEntry{
			Title:       title,
			Link:        link,
			PublishedAt: publishedAt,
			RawContent:  rawContent,
		})
	}

	if len(entries) == 0 {
		return nil, models.NewFailure(models.FailureMalformedFeed, "no entries found")
	}

	title := textutil.Clean(parsed.Title)
	return &ParsedFeed{Title: title, Entries: entries}, nil
}
