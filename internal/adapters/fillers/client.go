// Package fillers scrapes animefillerlist.com for filler episode breakdowns.
package fillers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tg-anime-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://www.animefillerlist.com"

// ErrShowNotFound reports that no filler list exists for the requested show.
var ErrShowNotFound = errors.New("show not found")

// List is the episode breakdown of one show.
type List struct {
	Show             string
	MangaCanon       []string
	MixedCanonFiller []string
	Filler           []string
	AnimeCanon       []string
}

// Client fetches filler lists.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates the client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a show name to the path segment the site uses,
// e.g. "Hunter x Hunter (2011)" becomes "hunter-x-hunter-2011".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugCleanRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ListByName fetches the filler breakdown for the show with the given name.
func (c *Client) ListByName(ctx context.Context, name string) (*List, error) {
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrShowNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/shows/"+slug, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("fillers", "show_page", start, err)
	if err != nil {
		return nil, fmt.Errorf("fetch show page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrShowNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("show page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse show page: %w", err)
	}
	return parseShowPage(doc, name)
}

// the condensed section groups episode ranges per category, one div each
func parseShowPage(doc *goquery.Document, show string) (*List, error) {
	condensed := doc.Find("#Condensed")
	if condensed.Length() == 0 {
		return nil, ErrShowNotFound
	}

	list := &List{Show: show}
	condensed.Children().Each(func(_ int, sec *goquery.Selection) {
		episodes := splitEpisodes(sec.Find(".Episodes").Text())
		class, _ := sec.Attr("class")
		switch {
		case strings.Contains(class, "manga_canon"):
			list.MangaCanon = episodes
		case strings.Contains(class, "mixed_canon"):
			list.MixedCanonFiller = episodes
		case strings.Contains(class, "filler"):
			list.Filler = episodes
		case strings.Contains(class, "anime_canon"):
			list.AnimeCanon = episodes
		}
	})
	return list, nil
}

func splitEpisodes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
