package telegram

import "testing"

func TestEscapeMarkdown(t *testing.T) {
	cases := map[string]string{
		"plain":            "plain",
		"under_score":      "under\\_score",
		"*bold* [link](x)": "\\*bold\\* \\[link](x)",
		"`code`":           "\\`code\\`",
	}
	for in, want := range cases {
		if got := EscapeMarkdown(in); got != want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	if got := EscapeMarkdownV2("a.b-c!d"); got != "a\\.b\\-c\\!d" {
		t.Errorf("got %q", got)
	}
}
