package ddg

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const (
	defaultHTMLURL = "https://html.duckduckgo.com/html/"
	htmlUserAgent  = "Mozilla/5.0 (compatible; company-sift/1.0)"
)

type htmlClient struct {
	opts    options
	limiter *AdaptiveLimiter
}

// NewHTMLClient creates a keyless client that scrapes the DuckDuckGo HTML
// results page. It accepts the same options as NewRapidAPIClient.
func NewHTMLClient(opts ...Option) Client {
	o := defaultOptions()
	o.baseURL = defaultHTMLURL
	o.rateLimit = 1
	for _, opt := range opts {
		opt(&o)
	}
	return &htmlClient{
		opts:    o,
		limiter: NewAdaptiveLimiter(o.rateLimit, 1),
	}
}

func (c *htmlClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "ddg: create html request")
	}
	req.Header.Set("User-Agent", htmlUserAgent)
	req.Header.Set("Accept", "text/html")

	body, status, err := retryDo(ctx, c.opts, c.limiter, req)
	if err != nil {
		return nil, eris.Wrapf(err, "ddg: html search %q", query)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return nil, eris.Wrapf(ErrRateLimited, "ddg: html search %q", query)
	case status != http.StatusOK:
		return nil, eris.Errorf("ddg: html search unexpected status %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "ddg: parse html")
	}
	return parseHTMLResults(doc, maxResults), nil
}

// parseHTMLResults extracts organic results, skipping sponsored blocks.
// Position counts every organic block seen, including ones without a link.
func parseHTMLResults(doc *goquery.Document, maxResults int) []Result {
	results := make([]Result, 0, maxResults)
	pos := 0
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		pos++
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			URL:      target,
			Title:    strings.TrimSpace(link.Text()),
			Snippet:  strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Position: pos,
		})
		return len(results) < maxResults
	})
	return results
}

// unwrapRedirect turns DuckDuckGo's /l/?uddg= tracking links into the
// destination URL. Plain absolute links pass through unchanged.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
