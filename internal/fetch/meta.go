package fetch

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

// titleTimeRe spots a parenthesized hour list in a post title, e.g.
// "지은( 12 13 14 )". A title like that already carries the roster.
var titleTimeRe = regexp.MustCompile(`\(\s*\d+(?:\s+\d+)*\s*\)`)

// loginHintWindow bounds how far into the page text a login prompt still
// counts as an access wall rather than an ordinary mention.
const loginHintWindow = 500

// renderMeta reads pages whose roster lives in Open Graph metadata. The
// og:title carries the marked-up schedule, present even when the visible
// page is rendered by script. The body is fetched only when the title does
// not already hold the hours and the site wants body extraction; a page
// demanding login degrades to title-only instead of hashing the wall text.
func renderMeta(ctx context.Context, doc *goquery.Document, site watch.Site, rec watch.TextRecognizer) (title, body string) {
	title, _ = doc.Find(`meta[property="og:title"]`).First().Attr("content")
	if title == "" {
		title = doc.Find("title").First().Text()
	}
	// Boards append " - <board name>" to shared titles.
	if idx := strings.LastIndex(title, " - "); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(title)

	if site.ExtractionMode == watch.ExtractTitle || titleTimeRe.MatchString(title) {
		return title, ""
	}
	if authDenied(doc) {
		return title, ""
	}

	body, _ = doc.Find(`meta[property="og:description"]`).First().Attr("content")
	if body == "" {
		_, body = renderNormal(ctx, doc, site, rec)
	}
	return title, body
}

// authDenied reports whether the page is an access wall instead of the
// post: a permission error anywhere, or a login prompt near the top.
func authDenied(doc *goquery.Document) bool {
	text := doc.Find("body").Text()
	if strings.Contains(text, "권한이 없습니다") {
		return true
	}
	head := []rune(text)
	if len(head) > loginHintWindow {
		head = head[:loginHintWindow]
	}
	return strings.Contains(string(head), "로그인")
}
