package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-anime-bot/internal/adapters/fillers"
	"tg-anime-bot/internal/adapters/telegram"
)

func newAiringCommand(feed EpisodeFeed) *Command {
	return &Command{
		Name:        "lastairing",
		Aliases:     []string{"airing"},
		Description: "Recently aired episodes",
		Cooldown:    10 * time.Second,
		Handle: func(c *Context) error {
			c.SendTyping()
			episodes, err := feed.RecentEpisodes(c.Ctx)
			if err != nil {
				return err
			}
			if len(episodes) == 0 {
				return c.Reply("No airing data right now, try again later.")
			}
			if len(episodes) > 15 {
				episodes = episodes[:15]
			}

			var b strings.Builder
			b.WriteString("❏ *Recently aired:*\n\n")
			for _, ep := range episodes {
				fmt.Fprintf(&b, "• %s", telegram.EscapeMarkdown(ep.Title))
				if ep.Number > 0 {
					fmt.Fprintf(&b, " #%d", ep.Number)
				}
				if !ep.AiredAt.IsZero() {
					fmt.Fprintf(&b, " (%s)", ep.AiredAt.Format("Jan 2 15:04"))
				}
				b.WriteString("\n")
			}
			return c.ReplyMarkdown(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func newFillersCommand(source FillerSource) *Command {
	return &Command{
		Name:        "fillers",
		Description: "Filler episode list for a show",
		Usage:       "/fillers <show name>",
		Cooldown:    10 * time.Second,
		Handle: func(c *Context) error {
			if len(c.Args) == 0 {
				return c.Reply("Which show? /fillers <name>")
			}
			c.SendTyping()
			name := strings.Join(c.Args, " ")
			list, err := source.ListByName(c.Ctx, name)
			if errors.Is(err, fillers.ErrShowNotFound) {
				return c.Reply("No filler list found for " + name + ".")
			}
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "❏ *Fillers for %s:*\n\n", telegram.EscapeMarkdown(list.Show))
			writeFillerSection(&b, "Manga canon", list.MangaCanon)
			writeFillerSection(&b, "Mixed canon/filler", list.MixedCanonFiller)
			writeFillerSection(&b, "Filler", list.Filler)
			writeFillerSection(&b, "Anime canon", list.AnimeCanon)
			return c.ReplyMarkdown(strings.TrimRight(b.String(), "\n"))
		},
	}
}

func writeFillerSection(b *strings.Builder, label string, episodes []string) {
	if len(episodes) == 0 {
		return
	}
	fmt.Fprintf(b, "*%s:* %s\n\n", label, strings.Join(episodes, ", "))
}
