// Package livechart reads the livechart.me episode feed for airing updates.
package livechart

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tg-anime-bot/internal/infra/metrics"
)

const defaultFeedURL = "https://www.livechart.me/feeds/episodes"

// Episode is one entry of the airing feed.
type Episode struct {
	Title    string
	Number   int
	Link     string
	AiredAt  time.Time
	ThumbURL string
}

// Client fetches and parses the episode feed.
type Client struct {
	http    *http.Client
	feedURL string
}

// NewClient creates the client.
func NewClient(feedURL string, timeout time.Duration) *Client {
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		feedURL: feedURL,
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string       `xml:"title"`
	Link      string       `xml:"link"`
	PubDate   string       `xml:"pubDate"`
	Enclosure rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL string `xml:"url,attr"`
}

// titles end with "#<episode number>", e.g. "One Piece #1090"
var episodeNumberRe = regexp.MustCompile(`#(\d+)\s*$`)

// RecentEpisodes returns the feed entries, newest first as published.
func (c *Client) RecentEpisodes(ctx context.Context) ([]Episode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("livechart", "episodes_feed", start, err)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	episodes := make([]Episode, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		episodes = append(episodes, parseItem(item))
	}
	return episodes, nil
}

func parseItem(item rssItem) Episode {
	ep := Episode{
		Title:    strings.TrimSpace(item.Title),
		Link:     item.Link,
		ThumbURL: item.Enclosure.URL,
	}
	if m := episodeNumberRe.FindStringSubmatch(ep.Title); m != nil {
		ep.Number, _ = strconv.Atoi(m[1])
		ep.Title = strings.TrimSpace(strings.TrimSuffix(ep.Title, m[0]))
	}
	if t, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
		ep.AiredAt = t
	} else if t, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
		ep.AiredAt = t
	}
	return ep
}
