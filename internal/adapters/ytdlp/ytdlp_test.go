package ytdlp

import (
	"errors"
	"testing"
)

func TestUsableFormats(t *testing.T) {
	v := &Video{Formats: []Format{
		{ID: "18", VCodec: "avc1", ACodec: "mp4a", Filesize: 20 << 20},
		{ID: "22", VCodec: "avc1", ACodec: "mp4a", Approx: 120 << 20}, // over the cap
		{ID: "140", VCodec: "none", ACodec: "mp4a", Filesize: 4 << 20},
		{ID: "137", VCodec: "avc1", ACodec: "none", Filesize: 30 << 20}, // video-only
		{ID: "sb0", VCodec: "none", ACodec: "none"},                     // storyboard, no size
	}}

	got, err := UsableFormats(v)
	if err != nil {
		t.Fatalf("UsableFormats: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d formats, want 2: %+v", len(got), got)
	}
	if got[0].ID != "18" || got[1].ID != "140" {
		t.Errorf("kept formats %q and %q", got[0].ID, got[1].ID)
	}
}

func TestUsableFormatsNoneFit(t *testing.T) {
	v := &Video{Formats: []Format{
		{ID: "22", VCodec: "avc1", ACodec: "mp4a", Filesize: 200 << 20},
	}}
	if _, err := UsableFormats(v); !errors.Is(err, ErrNoUsableFormat) {
		t.Fatalf("err = %v, want ErrNoUsableFormat", err)
	}
}

func TestFormatSizePrefersExact(t *testing.T) {
	f := Format{Filesize: 100, Approx: 200}
	if f.Size() != 100 {
		t.Errorf("Size() = %d, want 100", f.Size())
	}
	f = Format{Approx: 200}
	if f.Size() != 200 {
		t.Errorf("Size() = %d, want 200", f.Size())
	}
}

const searchFixture = `<html><head><script>
var ytInitialData = {"contents":{"sectionListRenderer":{"contents":[
{"itemSectionRenderer":{"contents":[
{"videoRenderer":{"videoId":"dQw4w9WgXcQ",
  "title":{"runs":[{"text":"Test Video "},{"text":"One"}]},
  "lengthText":{"simpleText":"3:32"},
  "ownerText":{"runs":[{"text":"Some Channel"}]}}},
{"adSlotRenderer":{"foo":"bar"}},
{"videoRenderer":{"videoId":"abc123xyz00",
  "title":{"runs":[{"text":"Second"}]},
  "ownerText":{"runs":[{"text":"Other"}]}}}
]}}]}}};</script>
</head><body></body></html>`

func TestParseSearchPage(t *testing.T) {
	results, err := ParseSearchPage(searchFixture, 10)
	if err != nil {
		t.Fatalf("ParseSearchPage: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("videoID = %q", first.VideoID)
	}
	if first.Title != "Test Video One" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Duration != "3:32" {
		t.Errorf("duration = %q", first.Duration)
	}
	if first.Channel != "Some Channel" {
		t.Errorf("channel = %q", first.Channel)
	}
	if first.URL() != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("url = %q", first.URL())
	}

	// entries without a lengthText still parse
	if results[1].VideoID != "abc123xyz00" || results[1].Duration != "" {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestParseSearchPageLimit(t *testing.T) {
	results, err := ParseSearchPage(searchFixture, 1)
	if err != nil {
		t.Fatalf("ParseSearchPage: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestParseSearchPageOrderIsStable(t *testing.T) {
	// renderers under sibling map keys must come out in the same order on
	// every parse, not in map iteration order
	const fixture = `<html><script>
var ytInitialData = {"contents":{
  "primaryContents":{"items":[{"videoRenderer":{"videoId":"first000001","title":{"runs":[{"text":"First"}]}}}]},
  "secondaryContents":{"items":[{"videoRenderer":{"videoId":"second00002","title":{"runs":[{"text":"Second"}]}}}]}
}};</script></html>`

	for i := 0; i < 20; i++ {
		results, err := ParseSearchPage(fixture, 10)
		if err != nil {
			t.Fatalf("ParseSearchPage: %v", err)
		}
		if len(results) != 2 || results[0].VideoID != "first000001" || results[1].VideoID != "second00002" {
			t.Fatalf("iteration %d: order = %+v", i, results)
		}
	}
}

func TestParseSearchPageMissingBlob(t *testing.T) {
	if _, err := ParseSearchPage("<html><body>nothing here</body></html>", 10); err == nil {
		t.Fatal("expected error when ytInitialData is absent")
	}
}
