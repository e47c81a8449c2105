package nhentai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tg-anime-bot/internal/infra/metrics"
)

// SearchResult is one row of the search results page.
type SearchResult struct {
	ID       string
	MediaID  string
	Title    string
	Language string
}

const searchLimit = 30

// Search scrapes the HTML search results page sorted by popularity. There is no
// JSON endpoint for search; the .gallery/.caption selectors are the fragile part.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search/?q=%s&sort=popular", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("nhentai", "search", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var results []SearchResult
	doc.Find(".gallery").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= searchLimit {
			return false
		}
		href, _ := sel.Find("a").Attr("href")
		src, _ := sel.Find("a > img").Attr("data-src")
		title := strings.TrimSpace(sel.Find(".caption").Text())

		id := pathSegment(href, 2)
		mediaID := pathSegment(src, 4)
		if id == "" || title == "" {
			return true
		}
		results = append(results, SearchResult{
			ID:       id,
			MediaID:  mediaID,
			Title:    title,
			Language: guessLanguage(title),
		})
		return true
	})

	if len(results) == 0 && doc.Find(".gallery").Length() == 0 && doc.Find("#content").Length() == 0 {
		// Nothing recognisable on the page at all: treat as markup change, not
		// an empty result set.
		return nil, ErrSourceUnavailable
	}
	return results, nil
}

func pathSegment(s string, n int) string {
	parts := strings.Split(s, "/")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}

func guessLanguage(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "english"):
		return "English"
	case strings.Contains(lower, "chinese"):
		return "Chinese"
	default:
		return "Japanese"
	}
}
