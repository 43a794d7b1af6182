package fetch

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

// Selectors tried in order when a site does not pin down its post body.
var bodyFallbacks = []string{".xe_content", ".rd_body", "article", "body"}

// renderNormal reads the document title and the post body text. The body
// root is the site's target selector when set, otherwise the first known
// board container that matches.
func renderNormal(ctx context.Context, doc *goquery.Document, site watch.Site, rec watch.TextRecognizer) (title, body string) {
	title = doc.Find("title").First().Text()

	root := doc.Selection
	if site.TargetSelector != "" {
		if s := doc.Find(site.TargetSelector).First(); s.Length() > 0 {
			root = s
		}
	} else {
		for _, sel := range bodyFallbacks {
			if s := doc.Find(sel).First(); s.Length() > 0 {
				root = s
				break
			}
		}
	}
	body = textWithMarkers(ctx, root, rec)
	return title, body
}
