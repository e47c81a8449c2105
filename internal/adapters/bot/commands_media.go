package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/adapters/anilist"
	"tg-anime-bot/internal/adapters/telegram"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// cleanDescription strips the HTML AniList embeds in synopses and bounds the
// length so captions stay under the Telegram limit.
func cleanDescription(desc string) string {
	desc = strings.ReplaceAll(desc, "<br>", "\n")
	desc = strings.ReplaceAll(desc, "<br/>", "\n")
	desc = strings.ReplaceAll(desc, "<br />", "\n")
	desc = htmlTagRe.ReplaceAllString(desc, "")
	desc = strings.TrimSpace(desc)
	runes := []rune(desc)
	if len(runes) > 600 {
		desc = strings.TrimSpace(string(runes[:600])) + "…"
	}
	return desc
}

func formatMediaInfo(m anilist.Media) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❏ *%s*\n\n", telegram.EscapeMarkdown(m.Title.Preferred()))
	if m.Title.Native != "" {
		fmt.Fprintf(&b, "Native: %s\n", telegram.EscapeMarkdown(m.Title.Native))
	}
	if m.Format != "" {
		fmt.Fprintf(&b, "Format: %s\n", m.Format)
	}
	if m.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", m.Status)
	}
	if m.Episodes > 0 {
		fmt.Fprintf(&b, "Episodes: %d\n", m.Episodes)
	}
	if m.Chapters > 0 {
		fmt.Fprintf(&b, "Chapters: %d\n", m.Chapters)
	}
	if m.Volumes > 0 {
		fmt.Fprintf(&b, "Volumes: %d\n", m.Volumes)
	}
	if m.StartDate.Year > 0 {
		fmt.Fprintf(&b, "Aired: %d", m.StartDate.Year)
		if m.EndDate.Year > 0 && m.EndDate.Year != m.StartDate.Year {
			fmt.Fprintf(&b, " - %d", m.EndDate.Year)
		}
		b.WriteString("\n")
	}
	if m.AverageScore > 0 {
		fmt.Fprintf(&b, "Score: %d%%\n", m.AverageScore)
	}
	if len(m.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(m.Genres, ", "))
	}
	if desc := cleanDescription(m.Description); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}

	var sequels, prequels []string
	for _, edge := range m.Relations.Edges {
		switch edge.RelationType {
		case "SEQUEL":
			sequels = append(sequels, edge.Node.Title.Preferred())
		case "PREQUEL":
			prequels = append(prequels, edge.Node.Title.Preferred())
		}
	}
	if len(prequels) > 0 {
		fmt.Fprintf(&b, "\nPrequel: %s", telegram.EscapeMarkdown(strings.Join(prequels, ", ")))
	}
	if len(sequels) > 0 {
		fmt.Fprintf(&b, "\nSequel: %s", telegram.EscapeMarkdown(strings.Join(sequels, ", ")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func replyMediaCard(c *Context, m anilist.Media) error {
	caption := formatMediaInfo(m)
	if err := c.ReplyPhoto(anilist.MediaCardURL(m.ID), caption); err != nil {
		// the card renderer is flaky, fall back to plain text
		c.Log.Debug().Err(err).Int("media", m.ID).Msg("media card send failed")
		return c.ReplyMarkdown(caption)
	}
	return nil
}

func mediaLookup(client *anilist.Client, mediaType string) func(*Context) error {
	return func(c *Context) error {
		if len(c.Args) == 0 {
			return c.Reply("Give me a title to look up.")
		}
		c.SendTyping()
		media, err := client.SearchMedia(c.Ctx, strings.Join(c.Args, " "), mediaType)
		if errors.Is(err, anilist.ErrNotFound) {
			return c.Reply("Nothing found with that title.")
		}
		if err != nil {
			return err
		}
		return replyMediaCard(c, media)
	}
}

func newAnimeInfoCommand(client *anilist.Client) *Command {
	return &Command{
		Name:        "animeinfo",
		Aliases:     []string{"anime"},
		Description: "Look up an anime by title",
		Usage:       "/animeinfo <title>",
		Cooldown:    3 * time.Second,
		Handle:      mediaLookup(client, "ANIME"),
	}
}

func newMangaInfoCommand(client *anilist.Client) *Command {
	return &Command{
		Name:        "mangainfo",
		Aliases:     []string{"manga"},
		Description: "Look up a manga by title",
		Usage:       "/mangainfo <title>",
		Cooldown:    3 * time.Second,
		Handle:      mediaLookup(client, "MANGA"),
	}
}

func newRandomCommand(client *anilist.Client) *Command {
	return &Command{
		Name:        "random",
		Description: "Get a random popular anime",
		Cooldown:    3 * time.Second,
		Handle: func(c *Context) error {
			c.SendTyping()
			media, err := client.RandomAnime(c.Ctx)
			if err != nil {
				return err
			}
			return replyMediaCard(c, media)
		},
	}
}

// browse sort criteria keyed by the callback parameter
var browseSorts = map[string]string{
	"trending": "TRENDING_DESC",
	"popular":  "POPULARITY_DESC",
	"upcoming": "START_DATE_DESC",
}

func newBrowseCommand(client *anilist.Client) *Command {
	render := func(c *Context, criterion string, edit bool) error {
		sort, ok := browseSorts[criterion]
		if !ok {
			criterion, sort = "trending", browseSorts["trending"]
		}
		now := time.Now()
		media, err := client.Seasonal(c.Ctx, now.Year(), currentSeason(now), sort, 20)
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "❏ *%s this season (%s %d):*\n\n",
			capitalize(criterion), capitalize(strings.ToLower(currentSeason(now))), now.Year())
		for i, m := range media {
			fmt.Fprintf(&b, "%d. %s\n", i+1, telegram.EscapeMarkdown(m.Title.Preferred()))
		}

		kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Trending", "browse:trending"),
			tgbotapi.NewInlineKeyboardButtonData("Popular", "browse:popular"),
			tgbotapi.NewInlineKeyboardButtonData("Upcoming", "browse:upcoming"),
		))
		text := strings.TrimRight(b.String(), "\n")
		if edit {
			defer c.AnswerCallback("")
			return c.EditCaller(text, tgbotapi.ModeMarkdown, &kb)
		}
		return c.ReplyKeyboard(text, tgbotapi.ModeMarkdown, kb)
	}

	return &Command{
		Name:           "browse",
		Description:    "Browse the current season",
		Cooldown:       3 * time.Second,
		CallbackPrefix: "browse",
		Handle: func(c *Context) error {
			c.SendTyping()
			return render(c, strings.ToLower(c.Arg(0)), false)
		},
		HandleCallback: func(c *Context) error {
			return render(c, c.Arg(0), true)
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func currentSeason(t time.Time) string {
	switch t.Month() {
	case time.January, time.February, time.March:
		return "WINTER"
	case time.April, time.May, time.June:
		return "SPRING"
	case time.July, time.August, time.September:
		return "SUMMER"
	default:
		return "FALL"
	}
}
