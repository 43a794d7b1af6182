package fetch

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

// renderScoped reads boards that wrap the post in a data-docsrl container.
// Everything outside the container is banner rotation and must not reach
// the content hash.
func renderScoped(ctx context.Context, doc *goquery.Document, site watch.Site, rec watch.TextRecognizer) (title, body string) {
	title = doc.Find("title").First().Text()

	scope := doc.Find("[data-docsrl]").First()
	if scope.Length() == 0 && site.TargetSelector != "" {
		scope = doc.Find(site.TargetSelector).First()
	}
	if scope.Length() == 0 {
		return renderNormal(ctx, doc, site, rec)
	}
	body = textWithMarkers(ctx, scope, rec)
	return title, body
}
