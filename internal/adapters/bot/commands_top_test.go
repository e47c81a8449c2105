package bot

import (
	"strings"
	"testing"

	"tg-anime-bot/internal/adapters/anilist"
)

func TestParseTopArgs(t *testing.T) {
	q, err := parseTopArgs([]string{"anime", "action", "2024"})
	if err != nil {
		t.Fatalf("parseTopArgs: %v", err)
	}
	if q.Type != "anime" || q.Genre != "action" || q.Year != 2024 || q.Page != 1 {
		t.Errorf("q = %+v", q)
	}

	q, err = parseTopArgs([]string{"manga"})
	if err != nil || q.Type != "manga" || q.Genre != "" || q.Year != 0 {
		t.Errorf("q = %+v, err = %v", q, err)
	}

	// year can come before the genre
	q, err = parseTopArgs([]string{"2020", "romance"})
	if err != nil || q.Type != "anime" || q.Genre != "romance" || q.Year != 2020 {
		t.Errorf("q = %+v, err = %v", q, err)
	}

	if _, err := parseTopArgs([]string{"anime", "action", "drama"}); err == nil {
		t.Error("two genres should be rejected")
	}
}

func TestTopQueryDateWindow(t *testing.T) {
	q := topQuery{Type: "anime", Genre: "action", Year: 2024, Page: 1}
	opts := q.listOptions()

	if opts.Type != "ANIME" || opts.Sort != "SCORE_DESC" || opts.Genre != "action" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.StartDateGreater != 20231231 {
		t.Errorf("StartDateGreater = %d, want 20231231", opts.StartDateGreater)
	}
	if opts.StartDateLesser != 20250101 {
		t.Errorf("StartDateLesser = %d, want 20250101", opts.StartDateLesser)
	}
}

func TestTopCallbackDataRoundTrip(t *testing.T) {
	q := topQuery{Type: "anime", Genre: "action", Year: 2024, Page: 1}
	data := q.callbackData(2)
	if data != "top:anime:action:2024:2" {
		t.Fatalf("data = %q", data)
	}

	parsed, err := parseTopParams(strings.Split(strings.TrimPrefix(data, "top:"), ":"))
	if err != nil {
		t.Fatalf("parseTopParams: %v", err)
	}
	if parsed.Type != "anime" || parsed.Genre != "action" || parsed.Year != 2024 || parsed.Page != 2 {
		t.Errorf("parsed = %+v", parsed)
	}

	// missing filters travel as the "none" placeholder
	bare := topQuery{Type: "manga", Page: 1}
	if got := bare.callbackData(3); got != "top:manga:none:none:3" {
		t.Errorf("data = %q", got)
	}
	parsed, err = parseTopParams([]string{"manga", "none", "none", "3"})
	if err != nil || parsed.Genre != "" || parsed.Year != 0 || parsed.Page != 3 {
		t.Errorf("parsed = %+v, err = %v", parsed, err)
	}
}

func TestFormatTopPage(t *testing.T) {
	page := anilist.MediaPage{Media: []anilist.Media{
		{Title: anilist.MediaTitle{English: "Attack on Titan"}},
		{Title: anilist.MediaTitle{Romaji: "Jujutsu Kaisen"}},
	}}
	q := topQuery{Type: "anime", Genre: "action", Year: 2024, Page: 1}

	got := formatTopPage(q, page)
	if !strings.HasPrefix(got, "❏ *Top ANIME for genre ACTION from 2024:*") {
		t.Errorf("header = %q", strings.SplitN(got, "\n", 2)[0])
	}
	if !strings.Contains(got, "1. Attack on Titan") || !strings.Contains(got, "2. Jujutsu Kaisen") {
		t.Errorf("body = %q", got)
	}

	// numbering continues across pages
	q.Page = 2
	got = formatTopPage(q, page)
	if !strings.Contains(got, "16. Attack on Titan") {
		t.Errorf("page 2 numbering wrong: %q", got)
	}
}

func TestFormatTopPageHeaderVariants(t *testing.T) {
	page := anilist.MediaPage{Media: []anilist.Media{{Title: anilist.MediaTitle{English: "X"}}}}

	got := formatTopPage(topQuery{Type: "manga", Page: 1}, page)
	if !strings.HasPrefix(got, "❏ *Top MANGA:*") {
		t.Errorf("header = %q", got)
	}

	got = formatTopPage(topQuery{Type: "anime", Genre: "drama", Page: 1}, page)
	if !strings.HasPrefix(got, "❏ *Top ANIME for genre DRAMA:*") {
		t.Errorf("header = %q", got)
	}
}
