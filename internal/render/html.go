package render

import (
	"bytes"
	"context"
	"html/template"
	"os"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
)

// HTMLRenderer renders the digest as a single self-contained HTML
// document suitable for download or print-to-PDF.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer creates the renderer. templatePath overrides the
// built-in layout when non-empty.
func NewHTMLRenderer(templatePath string) (*HTMLRenderer, error) {
	layout := defaultLayout
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, models.WrapFailure(models.FailureRender, "template could not be read", err)
		}
		layout = string(data)
	}

	tmpl, err := template.New("layout").Parse(layout)
	if err != nil {
		return nil, models.WrapFailure(models.FailureRender, "template could not be parsed", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

// Render executes the layout over the digest. Failures are reported as
// RenderFailure; the caller treats them as run-fatal.
func (r *HTMLRenderer) Render(ctx context.Context, d *models.Digest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.WrapFailure(models.FailureRender, "render canceled", err)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, d); err != nil {
		return nil, models.WrapFailure(models.FailureRender, "template execution failed", err)
	}
	return buf.Bytes(), nil
}

// ContentType identifies the artifact media type
func (r *HTMLRenderer) ContentType() string {
	return "text/html; charset=utf-8"
}

var _ Renderer = (*HTMLRenderer)(nil)

const defaultLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Weekly Digest &mdash; {{.GeneratedAt.Format "January 2, 2006"}}</title>
<style>
  body { font-family: Georgia, "Times New Roman", serif; margin: 0; color: #1a1a1a; }
  .cover { padding: 4rem 3rem 2rem; border-bottom: 3px solid #1a1a1a; }
  .cover h1 { font-size: 2.6rem; margin: 0; }
  .cover .date { color: #666; font-style: italic; }
  section.source { padding: 2rem 3rem; }
  section.source > h2 { border-bottom: 1px solid #ccc; padding-bottom: .4rem; }
  article { margin: 1.8rem 0; page-break-inside: avoid; }
  article h3 { margin: 0 0 .3rem; font-size: 1.3rem; }
  article .meta { color: #666; font-size: .85rem; margin-bottom: .6rem; }
  article img { max-width: 100%; border-radius: 4px; }
  article p { line-height: 1.55; }
  a { color: #1a4a8a; text-decoration: none; }
</style>
</head>
<body>
<div class="cover">
  <h1>Weekly Digest</h1>
  <div class="date">{{.GeneratedAt.Format "Monday, January 2, 2006"}}</div>
</div>
{{range .Groups}}
<section class="source">
  <h2>{{if .Title}}{{.Title}}{{else}}{{.Source.URL}}{{end}}</h2>
  {{range .Articles}}
  <article>
    <h3><a href="{{.URL}}">{{.Title}}</a></h3>
    {{if .PublishedAt}}<div class="meta">{{.PublishedAt.Format "January 2, 2006"}}</div>{{end}}
    {{if .Image}}<img src="{{.Image}}" alt="">{{end}}
    {{if .Summary}}<p>{{.Summary}}</p>{{end}}
  </article>
  {{end}}
</section>
{{end}}
</body>
</html>
`
