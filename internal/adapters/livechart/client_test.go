package livechart

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>LiveChart.me Episodes</title>
    <item>
      <title>Frieren: Beyond Journey's End #28</title>
      <link>https://www.livechart.me/anime/10966</link>
      <pubDate>Fri, 29 Aug 2026 15:30:00 +0000</pubDate>
      <enclosure url="https://u.livechart.me/anime/10966/poster_image/small.jpg" type="image/jpeg"/>
    </item>
    <item>
      <title>One Piece #1125</title>
      <link>https://www.livechart.me/anime/321</link>
      <pubDate>Fri, 29 Aug 2026 01:00:00 +0000</pubDate>
      <enclosure url="https://u.livechart.me/anime/321/poster_image/small.jpg" type="image/jpeg"/>
    </item>
    <item>
      <title>Some Special Without Number</title>
      <link>https://www.livechart.me/anime/999</link>
      <pubDate>not a date</pubDate>
    </item>
  </channel>
</rss>`

func TestRecentEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedFixture)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	eps, err := c.RecentEpisodes(context.Background())
	if err != nil {
		t.Fatalf("RecentEpisodes: %v", err)
	}
	if len(eps) != 3 {
		t.Fatalf("got %d episodes, want 3", len(eps))
	}

	first := eps[0]
	if first.Title != "Frieren: Beyond Journey's End" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Number != 28 {
		t.Errorf("number = %d, want 28", first.Number)
	}
	if first.Link != "https://www.livechart.me/anime/10966" {
		t.Errorf("link = %q", first.Link)
	}
	if first.ThumbURL != "https://u.livechart.me/anime/10966/poster_image/small.jpg" {
		t.Errorf("thumb = %q", first.ThumbURL)
	}
	want := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)
	if !first.AiredAt.Equal(want) {
		t.Errorf("airedAt = %v, want %v", first.AiredAt, want)
	}

	if eps[1].Number != 1125 {
		t.Errorf("second episode number = %d, want 1125", eps[1].Number)
	}

	// entries without an episode suffix keep the full title and a zero number
	if eps[2].Number != 0 || eps[2].Title != "Some Special Without Number" {
		t.Errorf("third entry = %+v", eps[2])
	}
	if !eps[2].AiredAt.IsZero() {
		t.Errorf("unparseable pubDate should stay zero, got %v", eps[2].AiredAt)
	}
}

func TestRecentEpisodesBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.RecentEpisodes(context.Background()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
