// Package telegraph creates Telegra.ph pages used to mirror gallery images.
package telegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tg-anime-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://api.telegra.ph"

// pagesPerPart is how many images fit on one Telegra.ph page before the mirror
// is split into parts.
const pagesPerPart = 100

// Client talks to the Telegra.ph API.
type Client struct {
	http        *http.Client
	baseURL     string
	accessToken string
}

// NewClient creates the client.
func NewClient(accessToken, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		accessToken: accessToken,
	}
}

// Node is one element of Telegra.ph page content.
type Node struct {
	Tag      string            `json:"tag,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []any             `json:"children,omitempty"`
}

type createPageRequest struct {
	AccessToken   string `json:"access_token"`
	Title         string `json:"title"`
	AuthorName    string `json:"author_name,omitempty"`
	Content       []Node `json:"content"`
	ReturnContent bool   `json:"return_content"`
}

type createPageResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
}

// CreatePage publishes one page and returns its URL.
func (c *Client) CreatePage(ctx context.Context, title, authorName string, content []Node) (string, error) {
	payload, err := json.Marshal(createPageRequest{
		AccessToken:   c.accessToken,
		Title:         title,
		AuthorName:    authorName,
		Content:       content,
		ReturnContent: true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/createPage", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("telegraph", "create_page", start, err)
	if err != nil {
		return "", fmt.Errorf("telegraph request: %w", err)
	}
	defer resp.Body.Close()

	var out createPageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("telegraph: %s", out.Error)
	}
	return out.Result.URL, nil
}

// MirrorImages mirrors an ordered image list into one or more pages of at most
// pagesPerPart images. Multi-part mirrors get a _Part-N title suffix.
func (c *Client) MirrorImages(ctx context.Context, baseTitle string, imageURLs []string) ([]string, error) {
	total := len(imageURLs)
	multipart := total > pagesPerPart

	var urls []string
	for start := 0; start < total; start += pagesPerPart {
		end := start + pagesPerPart
		if end > total {
			end = total
		}

		content := make([]Node, 0, end-start)
		for _, imgURL := range imageURLs[start:end] {
			content = append(content, Node{
				Tag:   "img",
				Attrs: map[string]string{"src": imgURL},
			})
		}

		title := baseTitle
		if multipart {
			title = fmt.Sprintf("%s_Part-%d", baseTitle, start/pagesPerPart+1)
		}
		pageURL, err := c.CreatePage(ctx, title, "Anonymous", content)
		if err != nil {
			return urls, fmt.Errorf("mirror part starting at page %d: %w", start+1, err)
		}
		urls = append(urls, pageURL)
	}
	return urls, nil
}
