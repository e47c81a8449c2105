package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"tg-anime-bot/internal/infra/metrics"
)

// ErrNoResults reports an empty search.
var ErrNoResults = errors.New("no search results")

// SearchResult is one video found on the results page.
type SearchResult struct {
	VideoID  string
	Title    string
	Duration string
	Channel  string
}

// URL returns the canonical watch link.
func (r SearchResult) URL() string {
	return "https://www.youtube.com/watch?v=" + r.VideoID
}

// Searcher scrapes YouTube's results page. Search does not need the binary,
// so it lives off the HTML the site embeds as ytInitialData.
type Searcher struct {
	http    *http.Client
	baseURL string
}

// NewSearcher creates the searcher.
func NewSearcher(baseURL string, timeout time.Duration) *Searcher {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Searcher{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Search returns up to limit results for the query.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/results?search_query="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en")

	start := time.Now()
	resp, err := s.http.Do(req)
	metrics.ObserveNetworkRequest("youtube", "search", start, err)
	if err != nil {
		return nil, fmt.Errorf("fetch results page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read results page: %w", err)
	}
	return ParseSearchPage(string(body), limit)
}

const maxPageBytes = 8 << 20

// ParseSearchPage extracts videoRenderer entries from the embedded
// ytInitialData JSON blob.
func ParseSearchPage(html string, limit int) ([]SearchResult, error) {
	blob, err := extractInitialData(html)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("parse ytInitialData: %w", err)
	}

	var results []SearchResult
	collectVideoRenderers(raw, &results, limit)
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func extractInitialData(html string) (string, error) {
	const marker = "var ytInitialData = "
	i := strings.Index(html, marker)
	if i < 0 {
		return "", errors.New("ytInitialData not found in page")
	}
	rest := html[i+len(marker):]
	end := strings.Index(rest, ";</script>")
	if end < 0 {
		return "", errors.New("ytInitialData blob is not terminated")
	}
	return rest[:end], nil
}

// the renderer tree nests arbitrarily, so walk it generically; map keys are
// visited sorted so page order survives the randomized map iteration
func collectVideoRenderers(node any, out *[]SearchResult, limit int) {
	if limit > 0 && len(*out) >= limit {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		if vr, ok := v["videoRenderer"].(map[string]any); ok {
			if r, ok := parseVideoRenderer(vr); ok {
				*out = append(*out, r)
			}
			return
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			collectVideoRenderers(v[key], out, limit)
		}
	case []any:
		for _, child := range v {
			collectVideoRenderers(child, out, limit)
		}
	}
}

func parseVideoRenderer(vr map[string]any) (SearchResult, bool) {
	id, _ := vr["videoId"].(string)
	if id == "" {
		return SearchResult{}, false
	}
	r := SearchResult{VideoID: id}
	r.Title = runsText(vr["title"])
	if lt, ok := vr["lengthText"].(map[string]any); ok {
		r.Duration, _ = lt["simpleText"].(string)
	}
	r.Channel = runsText(vr["ownerText"])
	return r, true
}

func runsText(node any) string {
	m, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	runs, ok := m["runs"].([]any)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, run := range runs {
		if rm, ok := run.(map[string]any); ok {
			if text, ok := rm["text"].(string); ok {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}
