// Package render turns a composed digest into the final downloadable
// document. The Renderer interface is the collaborator boundary; the
// default implementation produces a self-contained HTML magazine.
package render

import (
	"context"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
)

// Renderer converts a digest into artifact bytes
type Renderer interface {
	Render(ctx context.Context, d *models.Digest) ([]byte, error)
	ContentType() string
}
