// Package digest merges per-feed article sets into one ordered digest.
package digest

import (
	"sort"
	"time"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
)

// FeedArticles is one feed's contribution to a digest
type FeedArticles struct {
	Source   models.FeedSource
	Title    string
	Articles []models.ScrapedArticle
}

// Composer builds a Digest from per-feed article sets. It never fails:
// a source with no articles simply contributes nothing, and is recorded
// in EmptySources so the orchestrator can report it.
type Composer struct{}

// NewComposer creates a composer
func NewComposer() *Composer {
	return &Composer{}
}

// Compose orders articles deterministically: groups follow the order
// sources appear in the input slice; within a group articles sort
// newest-first by publish date, with undated articles last. Two calls
// with the same input produce identical ordering.
func (c *Composer) Compose(feeds []FeedArticles, now time.Time) *models.Digest {
	d := &models.Digest{GeneratedAt: now}

	for _, f := range feeds {
		if len(f.Articles) == 0 {
			d.EmptySources = append(d.EmptySources, f.Source)
			continue
		}

		articles := make([]models.ScrapedArticle, len(f.Articles))
		copy(articles, f.Articles)
		sortArticles(articles)

		d.Groups = append(d.Groups, models.DigestGroup{
			Source:   f.Source,
			Title:    f.Title,
			Articles: articles,
		})
	}

	return d
}

// sortArticles is stable so equal-dated articles keep their feed order
func sortArticles(articles []models.ScrapedArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].PublishedAt, articles[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
