package imgur

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUploadURLPrefersImgur(t *testing.T) {
	imgur := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Client-ID cid" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"success":true,"data":{"link":"https://i.imgur.com/abc.jpg"}}`)
	}))
	defer imgur.Close()

	c := NewClient("cid", "key", 5*time.Second)
	c.imgurBaseURL = imgur.URL
	c.imgbbBaseURL = "http://127.0.0.1:1" // must not be reached

	link, err := c.UploadURL(context.Background(), "https://example.com/pic.jpg")
	if err != nil {
		t.Fatalf("UploadURL: %v", err)
	}
	if link != "https://i.imgur.com/abc.jpg" {
		t.Errorf("link = %q", link)
	}
}

func TestUploadURLFallsBackToImgbb(t *testing.T) {
	imgur := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"success":false}`)
	}))
	defer imgur.Close()
	imgbb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.FormValue("key") != "key" {
			t.Errorf("key = %q", r.FormValue("key"))
		}
		fmt.Fprint(w, `{"success":true,"data":{"url":"https://i.ibb.co/xyz/pic.jpg"}}`)
	}))
	defer imgbb.Close()

	c := NewClient("cid", "key", 5*time.Second)
	c.imgurBaseURL = imgur.URL
	c.imgbbBaseURL = imgbb.URL

	link, err := c.UploadURL(context.Background(), "https://example.com/pic.jpg")
	if err != nil {
		t.Fatalf("UploadURL: %v", err)
	}
	if link != "https://i.ibb.co/xyz/pic.jpg" {
		t.Errorf("link = %q", link)
	}
}

func TestUploadURLBothHostsFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false}`)
	}))
	defer failing.Close()

	c := NewClient("cid", "key", 5*time.Second)
	c.imgurBaseURL = failing.URL
	c.imgbbBaseURL = failing.URL

	_, err := c.UploadURL(context.Background(), "https://example.com/pic.jpg")
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
}

func TestUploadURLNoFallbackWithoutKey(t *testing.T) {
	imgur := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false}`)
	}))
	defer imgur.Close()

	c := NewClient("cid", "", 5*time.Second)
	c.imgurBaseURL = imgur.URL
	c.imgbbBaseURL = "http://127.0.0.1:1"

	if _, err := c.UploadURL(context.Background(), "https://example.com/pic.jpg"); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
}
