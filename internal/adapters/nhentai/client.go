// Package nhentai wraps the undocumented gallery JSON endpoint and the HTML
// search page. The search scrape has no stable contract upstream; every failure
// there is reported as ErrSourceUnavailable so callers can tell a markup change
// from a bad gallery id.
package nhentai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-anime-bot/internal/infra/metrics"
)

var (
	// ErrGalleryNotFound means the id does not resolve to a gallery.
	ErrGalleryNotFound = errors.New("nhentai: gallery not found")
	// ErrSourceUnavailable means the upstream site answered with something we
	// could not parse, most likely a markup or domain change.
	ErrSourceUnavailable = errors.New("nhentai: source unavailable")
)

const (
	defaultBaseURL = "https://nhentai.net"
	imageHost      = "https://i7.nhentai.net"
	thumbHost      = "https://t3.nhentai.net"
	browserUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"
)

// Client fetches galleries and search results.
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
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Gallery is the parsed gallery record with resolved image URLs.
type Gallery struct {
	ID         string
	MediaID    string
	Title      Title
	Pages      int
	Language   string
	Tags       []string
	CoverURL   string
	PageURLs   []string
	Parodies   string
	Characters string
	Artists    string
	Groups     string
	Languages  string
	Categories string
}

// Title mirrors the three variants the endpoint returns.
type Title struct {
	English  string `json:"english"`
	Japanese string `json:"japanese"`
	Pretty   string `json:"pretty"`
}

// Display returns the best available title.
func (t Title) Display() string {
	switch {
	case t.English != "":
		return t.English
	case t.Pretty != "":
		return t.Pretty
	case t.Japanese != "":
		return t.Japanese
	default:
		return "Unknown Title"
	}
}

type galleryResponse struct {
	ID      json.Number `json:"id"`
	MediaID string      `json:"media_id"`
	Title   Title       `json:"title"`
	Images  struct {
		Pages []pageImage `json:"pages"`
		Cover pageImage   `json:"cover"`
	} `json:"images"`
	Tags []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"tags"`
}

type pageImage struct {
	T string `json:"t"` // j=jpg, p=png, g=gif
}

func (p pageImage) ext() string {
	switch p.T {
	case "j":
		return "jpg"
	case "g":
		return "gif"
	default:
		return "png"
	}
}

// Gallery fetches and resolves one gallery by id.
func (c *Client) Gallery(ctx context.Context, doujinID string) (Gallery, error) {
	endpoint := fmt.Sprintf("%s/api/gallery/%s", c.baseURL, url.PathEscape(doujinID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Gallery{}, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Referer", c.baseURL+"/")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("nhentai", "gallery", start, err)
	if err != nil {
		return Gallery{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Gallery{}, ErrGalleryNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Gallery{}, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Gallery{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	var raw galleryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return Gallery{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return c.resolve(raw), nil
}

func (c *Client) resolve(raw galleryResponse) Gallery {
	g := Gallery{
		ID:      raw.ID.String(),
		MediaID: raw.MediaID,
		Title:   raw.Title,
		Pages:   len(raw.Images.Pages),
	}

	g.PageURLs = make([]string, 0, len(raw.Images.Pages))
	for i, page := range raw.Images.Pages {
		g.PageURLs = append(g.PageURLs, fmt.Sprintf("%s/galleries/%s/%d.%s",
			imageHost, url.PathEscape(raw.MediaID), i+1, page.ext()))
	}
	g.CoverURL = fmt.Sprintf("%s/galleries/%s/cover.%s",
		thumbHost, url.PathEscape(raw.MediaID), raw.Images.Cover.ext())

	byType := make(map[string][]string)
	for _, tag := range raw.Tags {
		byType[tag.Type] = append(byType[tag.Type], tag.Name)
	}
	g.Tags = byType["tag"]
	g.Parodies = strings.Join(byType["parody"], ", ")
	g.Characters = strings.Join(byType["character"], ", ")
	g.Artists = strings.Join(byType["artist"], ", ")
	g.Groups = strings.Join(byType["group"], ", ")
	g.Languages = strings.Join(byType["language"], ", ")
	g.Categories = strings.Join(byType["category"], ", ")
	if langs := byType["language"]; len(langs) > 0 {
		g.Language = langs[0]
	} else {
		g.Language = "Unknown"
	}
	return g
}

// ThumbURL returns the search thumbnail for a media id.
func ThumbURL(mediaID string) string {
	return fmt.Sprintf("%s/galleries/%s/thumb.jpg", thumbHost, url.PathEscape(mediaID))
}
