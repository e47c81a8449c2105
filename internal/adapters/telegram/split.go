package telegram

import "strings"

// messageLimit is Telegram's hard cap for one text message.
const messageLimit = 4096

// SplitMessage breaks text into chunks Telegram accepts. Chunks prefer to end
// on a newline so list lines stay whole, and a legacy Markdown entity (*bold*,
// _italic_, `code`) still open at a chunk boundary is closed there and reopened
// in the next chunk, otherwise Telegram rejects both halves as unparsable.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	var reopen rune
	for start := 0; start < len(runes); {
		prefix := 0
		if reopen != 0 {
			prefix = 1
		}
		// one rune of headroom for a closing marker
		end := start + messageLimit - prefix - 1
		if end >= len(runes) {
			end = len(runes)
		} else {
			for i := end; i > start; i-- {
				if runes[i-1] == '\n' {
					end = i
					break
				}
			}
		}

		var chunk []rune
		if reopen != 0 {
			chunk = append(chunk, reopen)
		}
		chunk = append(chunk, runes[start:end]...)

		reopen = 0
		if open := openMarker(chunk); open != 0 && end < len(runes) {
			chunk = append(chunk, open)
			reopen = open
		}

		if part := strings.Trim(string(chunk), "\n"); part != "" {
			parts = append(parts, part)
		}

		start = end
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}

	if len(parts) == 0 {
		return []string{trimmed}
	}
	return parts
}

// openMarker returns the legacy Markdown marker left unclosed at the end of
// the chunk, or 0. Backslash-escaped markers, as produced by EscapeMarkdown,
// do not count.
func openMarker(chunk []rune) rune {
	var open rune
	for i := 0; i < len(chunk); i++ {
		r := chunk[i]
		if r == '\\' {
			i++
			continue
		}
		switch {
		case open == 0 && (r == '*' || r == '_' || r == '`'):
			open = r
		case r == open:
			open = 0
		}
	}
	return open
}
