package fetch

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/rofanlabs/sitewatch/internal/watch"
)

// Elements stripped before any text extraction. Matches the chrome list
// used for phone extraction so content and contacts see the same page.
const strippedSelectors = ".notice_board, .updatenews, #sidebar, .sidebar, header, footer, .footer, #footer, .advertisement, .ads, .banner, script, style, noscript"

// sanitize removes page chrome in place.
func sanitize(doc *goquery.Document) {
	doc.Find(strippedSelectors).Remove()
}

// textWithMarkers flattens a selection to whitespace-normalized text.
// Images become bracketed markers so a roster swap from text to image
// still changes the content hash; when a recognizer is available and the
// image is inlined, the recognized text is appended to the marker.
func textWithMarkers(ctx context.Context, sel *goquery.Selection, rec watch.TextRecognizer) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		walkText(ctx, node, rec, &b)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func walkText(ctx context.Context, n *html.Node, rec watch.TextRecognizer, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
	case html.ElementNode:
		if n.Data == "img" {
			writeImageMarker(ctx, n, rec, b)
			return
		}
		if n.Data == "br" {
			b.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(ctx, c, rec, b)
	}
}

func writeImageMarker(ctx context.Context, n *html.Node, rec watch.TextRecognizer, b *strings.Builder) {
	var src, alt string
	for _, a := range n.Attr {
		switch a.Key {
		case "src":
			src = a.Val
		case "alt":
			alt = a.Val
		}
	}
	marker := "[이미지"
	if alt != "" {
		marker += " " + alt
	} else if src != "" && !strings.HasPrefix(src, "data:") {
		marker += " " + src
	}
	if rec != nil {
		if raw, ok := decodeInlineImage(src); ok {
			if text, found := rec.Recognize(ctx, raw); found {
				marker += " " + text
			}
		}
	}
	b.WriteString(marker + "]")
	b.WriteByte(' ')
}

// composeContent renders the canonical marked text that hashing, diffing
// and schedule extraction all operate on.
func composeContent(title string, phones []watch.PhoneEntry, body string) string {
	var b strings.Builder
	b.WriteString("[제목] ")
	b.WriteString(strings.TrimSpace(title))
	if len(phones) > 0 {
		numbers := make([]string, len(phones))
		for i, p := range phones {
			numbers[i] = p.Number
		}
		b.WriteString(" [전화번호] ")
		b.WriteString(strings.Join(numbers, " "))
	}
	b.WriteString(" [본문] ")
	b.WriteString(strings.TrimSpace(body))
	return strings.TrimSpace(b.String())
}
