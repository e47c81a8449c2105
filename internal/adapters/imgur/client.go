// Package imgur rehosts images on imgur with an imgbb fallback.
package imgur

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-anime-bot/internal/infra/metrics"
)

const (
	defaultImgurBaseURL = "https://api.imgur.com"
	defaultImgbbBaseURL = "https://api.imgbb.com"
)

// ErrUploadFailed reports that neither host accepted the image.
var ErrUploadFailed = errors.New("image upload failed")

// Client uploads images by URL. Uploads are anonymous, only the imgur client
// id (and optionally an imgbb api key for fallback) is needed.
type Client struct {
	http         *http.Client
	imgurBaseURL string
	imgbbBaseURL string
	clientID     string
	imgbbKey     string
}

// NewClient creates the client. imgbbKey may be empty, in which case the
// fallback host is skipped.
func NewClient(clientID, imgbbKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		imgurBaseURL: defaultImgurBaseURL,
		imgbbBaseURL: defaultImgbbBaseURL,
		clientID:     clientID,
		imgbbKey:     imgbbKey,
	}
}

type imgurResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// UploadURL rehosts the image at srcURL and returns the new link. It tries
// imgur first and falls back to imgbb when configured.
func (c *Client) UploadURL(ctx context.Context, srcURL string) (string, error) {
	link, imgurErr := c.uploadImgur(ctx, srcURL)
	if imgurErr == nil {
		return link, nil
	}
	if c.imgbbKey == "" {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, imgurErr)
	}
	link, imgbbErr := c.uploadImgbb(ctx, srcURL)
	if imgbbErr == nil {
		return link, nil
	}
	return "", fmt.Errorf("%w: imgur: %v, imgbb: %v", ErrUploadFailed, imgurErr, imgbbErr)
}

func (c *Client) uploadImgur(ctx context.Context, srcURL string) (string, error) {
	form := url.Values{"image": {srcURL}, "type": {"url"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imgurBaseURL+"/3/image", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Client-ID "+c.clientID)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("imgur", "upload", start, err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out imgurResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.Success || out.Data.Link == "" {
		return "", fmt.Errorf("imgur rejected upload (status %d)", resp.StatusCode)
	}
	return out.Data.Link, nil
}

func (c *Client) uploadImgbb(ctx context.Context, srcURL string) (string, error) {
	form := url.Values{"key": {c.imgbbKey}, "image": {srcURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imgbbBaseURL+"/1/upload", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("imgbb", "upload", start, err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("imgbb rejected upload (status %d)", resp.StatusCode)
	}
	return out.Data.URL, nil
}
