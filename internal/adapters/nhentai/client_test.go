package nhentai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const galleryFixture = `{
  "id": 123456,
  "media_id": "654321",
  "title": {"english": "Example Title", "japanese": "例", "pretty": "Example"},
  "images": {
    "pages": [{"t": "j"}, {"t": "p"}, {"t": "j"}],
    "cover": {"t": "j"}
  },
  "tags": [
    {"type": "tag", "name": "full color"},
    {"type": "tag", "name": "story arc"},
    {"type": "language", "name": "english"},
    {"type": "artist", "name": "someone"},
    {"type": "parody", "name": "original"}
  ]
}`

func TestGalleryResolvesImageURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/gallery/123456" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(galleryFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	g, err := c.Gallery(context.Background(), "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.ID != "123456" || g.MediaID != "654321" {
		t.Fatalf("bad ids: %+v", g)
	}
	if g.Pages != 3 {
		t.Fatalf("expected 3 pages, got %d", g.Pages)
	}
	if g.PageURLs[0] != "https://i7.nhentai.net/galleries/654321/1.jpg" {
		t.Fatalf("bad first page url: %s", g.PageURLs[0])
	}
	if g.PageURLs[1] != "https://i7.nhentai.net/galleries/654321/2.png" {
		t.Fatalf("png extension not honoured: %s", g.PageURLs[1])
	}
	if g.CoverURL != "https://t3.nhentai.net/galleries/654321/cover.jpg" {
		t.Fatalf("bad cover url: %s", g.CoverURL)
	}
	if g.Language != "english" {
		t.Fatalf("bad language: %s", g.Language)
	}
	if g.Artists != "someone" || g.Parodies != "original" {
		t.Fatalf("tag grouping broken: %+v", g)
	}
}

func TestGalleryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Gallery(context.Background(), "1"); err != ErrGalleryNotFound {
		t.Fatalf("expected ErrGalleryNotFound, got %v", err)
	}
}

const searchFixture = `<!doctype html><html><body><div id="content">
<div class="gallery">
  <a href="/g/111/"><img data-src="https://t1.nhentai.net/galleries/999/thumb.jpg"></a>
  <div class="caption">Some Title [English]</div>
</div>
<div class="gallery">
  <a href="/g/222/"><img data-src="https://t1.nhentai.net/galleries/888/thumb.jpg"></a>
  <div class="caption">Another One</div>
</div>
</div></body></html>`

func TestSearchParsesGalleries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	results, err := c.Search(context.Background(), "title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "111" || results[0].MediaID != "999" {
		t.Fatalf("bad first result: %+v", results[0])
	}
	if results[0].Language != "English" || results[1].Language != "Japanese" {
		t.Fatalf("language guess broken: %+v", results)
	}
}

func TestSearchMarkupChangeIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="totally-new-layout"></div></body></html>`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Search(context.Background(), "title")
	if err == nil {
		t.Fatal("expected an error for unrecognised markup")
	}
}
