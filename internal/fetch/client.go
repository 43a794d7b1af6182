// Package fetch retrieves listing pages and renders them into the marked
// text the rest of the pipeline hashes, diffs and parses.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/rofanlabs/sitewatch/internal/extract"
	"github.com/rofanlabs/sitewatch/internal/watch"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Options tunes the HTTP client.
type Options struct {
	// Timeout bounds a single page download. Defaults to 30 seconds.
	Timeout time.Duration
	// UserAgent overrides the default browser user agent.
	UserAgent string
	// Session carries login cookies for boards behind auth.
	Session *Session
	// Recognizer, when set, reads text out of inlined roster images.
	Recognizer watch.TextRecognizer
}

// Client fetches listing pages with colly and renders them per site type.
// It implements watch.Fetcher and is safe for concurrent use; every fetch
// runs on its own collector.
type Client struct {
	log   *zap.Logger
	rules *extract.Rules
	opts  Options
}

// New creates a fetch client.
func New(log *zap.Logger, rules *extract.Rules, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Recognizer == nil {
		opts.Recognizer = NoopRecognizer{}
	}
	return &Client{log: log, rules: rules, opts: opts}
}

// Fetch downloads a site's page and renders it into marked content. Cache
// headers force an origin hit on every poll so edge caches cannot hide an
// update.
func (c *Client) Fetch(ctx context.Context, site watch.Site) (*watch.FetchResult, error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(c.opts.Timeout)

	if cookies := c.opts.Session.HTTPCookies(); len(cookies) > 0 {
		if err := collector.SetCookies(site.URL, cookies); err != nil {
			c.log.Warn("session cookies rejected",
				zap.String("site", site.Name), zap.Error(err))
		}
	}

	var (
		body     []byte
		finalURL string
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Cache-Control", "no-cache")
		r.Headers.Set("Pragma", "no-cache")
		r.Headers.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.5")
	})
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			status = r.StatusCode
			if r.Request != nil {
				finalURL = r.Request.URL.String()
			}
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(site.URL)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s canceled: %w", site.URL, ctx.Err())
	case err := <-done:
		if err != nil {
			fetchErr = err
		}
	}

	if fetchErr != nil {
		fields := []zap.Field{
			zap.String("site", site.Name),
			zap.String("url", site.URL),
			zap.Int("status", status),
			zap.Error(fetchErr),
		}
		switch {
		case status == 403:
			c.log.Warn("fetch blocked, likely bot detection", fields...)
		case status == 404:
			c.log.Warn("fetch target gone", fields...)
		case status == 429:
			c.log.Warn("fetch rate limited", fields...)
		case status >= 500:
			c.log.Warn("fetch hit server error", fields...)
		default:
			c.log.Warn("fetch failed", fields...)
		}
		return nil, fmt.Errorf("fetch %s: %w", site.URL, fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty response", site.URL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", site.URL, err)
	}
	sanitize(doc)

	var title, text string
	switch site.Type {
	case watch.SiteTypeMeta:
		title, text = renderMeta(ctx, doc, site, c.opts.Recognizer)
	case watch.SiteTypeScoped:
		title, text = renderScoped(ctx, doc, site, c.opts.Recognizer)
	default:
		title, text = renderNormal(ctx, doc, site, c.opts.Recognizer)
	}

	phones := extract.Phones(string(body), c.rules)
	return &watch.FetchResult{
		Content:       composeContent(title, phones, text),
		HTML:          string(body),
		FinalURL:      finalURL,
		TitleSchedule: extract.TitleSchedule(title, c.rules),
	}, nil
}
