package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-anime-bot/internal/adapters/anilist"
	"tg-anime-bot/internal/adapters/telegram"
	"tg-anime-bot/internal/domain"
)

func newAnilistCommand(client *anilist.Client, users domain.UserRepo) *Command {
	return &Command{
		Name:        "anilist",
		Description: "Link your AniList profile, view stats and activity",
		Usage:       "/anilist set <username> | del | stats | activity",
		Cooldown:    3 * time.Second,
		Handle: func(c *Context) error {
			switch strings.ToLower(c.Arg(0)) {
			case "set":
				return anilistSet(c, client, users)
			case "del", "unset":
				return anilistDel(c, users)
			case "activity":
				return anilistActivity(c, client)
			case "stats", "":
				return anilistStats(c, client)
			default:
				return c.Reply("Usage: /anilist set <username> | del | stats | activity")
			}
		},
	}
}

func anilistSet(c *Context, client *anilist.Client, users domain.UserRepo) error {
	username := c.Arg(1)
	if username == "" {
		return c.Reply("Which profile? /anilist set <username>")
	}
	c.SendTyping()
	if _, err := client.UserID(c.Ctx, username); errors.Is(err, anilist.ErrUserNotFound) {
		return c.Reply("No AniList profile named " + username + ".")
	} else if err != nil {
		return err
	}
	if err := users.SetAnilistUsername(c.Ctx, c.User.UserID, username); err != nil {
		return err
	}
	return c.Reply("Linked! Your AniList profile is now " + username + ".")
}

func anilistDel(c *Context, users domain.UserRepo) error {
	if err := users.ClearAnilistUsername(c.Ctx, c.User.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Reply("You have no linked profile.")
		}
		return err
	}
	return c.Reply("Your AniList profile has been unlinked.")
}

func resolveAnilistID(c *Context, client *anilist.Client) (int, error) {
	return client.UserID(c.Ctx, c.User.AnilistUsername)
}

func anilistStats(c *Context, client *anilist.Client) error {
	if c.User.AnilistUsername == "" {
		return c.Reply("Link a profile first: /anilist set <username>")
	}
	c.SendTyping()
	id, err := resolveAnilistID(c, client)
	if err != nil {
		return err
	}
	stats, err := client.UserStats(c.Ctx, id)
	if err != nil {
		return err
	}

	caption := fmt.Sprintf(
		"❏ *%s on AniList*\n\n"+
			"Anime watched: %d (mean %.1f)\n"+
			"Time watched: %s\n"+
			"Manga read: %d (mean %.1f)\n"+
			"Chapters read: %d",
		telegram.EscapeMarkdown(c.User.AnilistUsername),
		stats.Anime.Count, stats.Anime.MeanScore,
		formatMinutes(stats.Anime.MinutesWatched),
		stats.Manga.Count, stats.Manga.MeanScore,
		stats.Manga.ChaptersRead)

	if err := c.ReplyPhoto(anilist.ProfileCardURL(id), caption); err != nil {
		c.Log.Debug().Err(err).Msg("profile card send failed")
		return c.ReplyMarkdown(caption)
	}
	return nil
}

func anilistActivity(c *Context, client *anilist.Client) error {
	if c.User.AnilistUsername == "" {
		return c.Reply("Link a profile first: /anilist set <username>")
	}
	c.SendTyping()
	id, err := resolveAnilistID(c, client)
	if err != nil {
		return err
	}
	activities, err := client.RecentActivity(c.Ctx, id)
	if err != nil {
		return err
	}
	if len(activities) == 0 {
		return c.Reply("No recent activity.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❏ *Recent activity of %s:*\n\n", telegram.EscapeMarkdown(c.User.AnilistUsername))
	for _, a := range activities {
		title := "?"
		if a.Media != nil {
			title = a.Media.Title.Preferred()
		}
		line := a.Status
		if a.Progress != "" {
			line += " " + a.Progress + " of"
		}
		fmt.Fprintf(&b, "• %s %s\n", capitalize(line), telegram.EscapeMarkdown(title))
	}
	return c.ReplyMarkdown(strings.TrimRight(b.String(), "\n"))
}

func formatMinutes(minutes int) string {
	days := minutes / (60 * 24)
	hours := minutes % (60 * 24) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes%60)
}
