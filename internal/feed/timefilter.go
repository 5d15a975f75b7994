package feed

import (
	"time"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
)

// WithinWindow returns the entries published within the last daysBack
// days relative to now. Entries without a usable publish date are
// excluded. Pure and total: no I/O, empty input yields empty output,
// and filtering an already-filtered set with the same window returns
// the same set.
func WithinWindow(entries []models.FeedEntry, daysBack int, now time.Time) []models.FeedEntry {
	if daysBack < 1 {
		daysBack = 1
	}
	cutoff := now.Add(-time.Duration(daysBack) * 24 * time.Hour)

	kept := make([]models.FeedEntry, 0, len(entries))
	for _, e := range entries {
		if !e.HasDate() {
			continue
		}
		if e.PublishedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// MostRecentDated returns the most recently published entry that has a
// usable date and a link, used by the validator's single-article probe.
func MostRecentDated(entries []models.FeedEntry) (models.FeedEntry, bool) {
	var best models.FeedEntry
	found := false
	for _, e := range entries {
		if !e.HasDate() || e.Link == "" {
			continue
		}
		if !found || e.PublishedAt.After(*best.PublishedAt) {
			best = e
			found = true
		}
	}
	return best, found
}
