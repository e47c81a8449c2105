package telegram

import "strings"

var legacyMarkdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes the characters that break legacy Markdown parse mode.
// User-supplied values must pass through it before being embedded in a
// formatted message.
func EscapeMarkdown(text string) string {
	return legacyMarkdownEscaper.Replace(text)
}

var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes for MarkdownV2 parse mode.
func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}
