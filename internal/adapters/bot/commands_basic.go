package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/adapters/telegram"
	"tg-anime-bot/internal/infra/config"
)

func newStartCommand() *Command {
	return &Command{
		Name:        "start",
		Description: "Greet the bot",
		Handle: func(c *Context) error {
			name := telegram.EscapeMarkdown(c.User.FirstName)
			if name == "" {
				name = "there"
			}
			return c.ReplyMarkdown(fmt.Sprintf(
				"Hello *%s*! I am an anime and manga assistant.\n\n"+
					"Use /help to see everything I can do.", name))
		},
	}
}

func newHelpCommand(reg *Registry) *Command {
	return &Command{
		Name:        "help",
		Description: "List available commands",
		Handle: func(c *Context) error {
			if topic := c.Arg(0); topic != "" {
				cmd := reg.Lookup(topic)
				if cmd == nil {
					return c.Reply("No such command: " + topic)
				}
				text := fmt.Sprintf("*/%s* - %s", cmd.Name, cmd.Description)
				if cmd.Usage != "" {
					text += "\n\nUsage: `" + cmd.Usage + "`"
				}
				return c.ReplyMarkdown(text)
			}

			var b strings.Builder
			b.WriteString("*Available commands:*\n\n")
			for _, cmd := range reg.Commands() {
				if cmd.OwnerOnly || cmd.Handle == nil {
					continue
				}
				fmt.Fprintf(&b, "/%s - %s\n", cmd.Name, cmd.Description)
			}
			b.WriteString("\nSend `/help <command>` for details.")
			return c.ReplyMarkdown(b.String())
		},
	}
}

func newPingCommand() *Command {
	return &Command{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Handle: func(c *Context) error {
			start := time.Now()
			msg := tgbotapi.NewMessage(c.ChatID(), "Pong!")
			sent, err := c.API.Send(msg)
			if err != nil {
				return err
			}
			edit := tgbotapi.NewEditMessageText(c.ChatID(), sent.MessageID,
				fmt.Sprintf("Pong! %dms", time.Since(start).Milliseconds()))
			_, err = c.API.Send(edit)
			return err
		},
	}
}

func newUptimeCommand(startedAt time.Time) *Command {
	return &Command{
		Name:        "uptime",
		Description: "Show how long the bot has been running",
		Handle: func(c *Context) error {
			return c.Reply("Up for " + formatDuration(time.Since(startedAt)))
		},
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := d - minutes*time.Minute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds/time.Second)
	default:
		return fmt.Sprintf("%ds", seconds/time.Second)
	}
}

func newEchoCommand() *Command {
	return &Command{
		Name:        "echo",
		Description: "Repeat your message",
		Usage:       "/echo <text>",
		Handle: func(c *Context) error {
			if len(c.Args) == 0 {
				return c.Reply("Give me something to repeat: /echo <text>")
			}
			return c.Reply(strings.Join(c.Args, " "))
		},
	}
}

func newChannelsCommand(cfg config.AppConfig) *Command {
	return &Command{
		Name:        "channels",
		Aliases:     []string{"channel"},
		Description: "Our anime and manga channels",
		Handle: func(c *Context) error {
			var b strings.Builder
			b.WriteString("*Our channels:*\n\n")
			if cfg.Telegram.AnimeChannel != "" {
				fmt.Fprintf(&b, "Anime: %s\n", cfg.Telegram.AnimeChannel)
			}
			if cfg.Telegram.MangaChannel != "" {
				fmt.Fprintf(&b, "Manga: %s\n", cfg.Telegram.MangaChannel)
			}
			if cfg.Telegram.AnimeChannel == "" && cfg.Telegram.MangaChannel == "" {
				return c.Reply("No channels configured yet.")
			}
			return c.ReplyMarkdown(b.String())
		},
	}
}

func newRequestCommand(cfg config.AppConfig) *Command {
	return &Command{
		Name:        "request",
		Description: "Send a request to the admins",
		Usage:       "/request <what you want added>",
		Cooldown:    time.Minute,
		Handle: func(c *Context) error {
			if len(c.Args) == 0 {
				return c.Reply("Tell me what to request: /request <text>")
			}
			if cfg.Telegram.GCID == 0 {
				return c.Reply("Requests are not accepted right now.")
			}
			from := c.Message.From
			text := fmt.Sprintf("Request from %s %s (@%s, %d):\n\n%s",
				from.FirstName, from.LastName, from.UserName, from.ID,
				strings.Join(c.Args, " "))
			if _, err := c.API.Send(tgbotapi.NewMessage(cfg.Telegram.GCID, text)); err != nil {
				return err
			}
			return c.Reply("Your request was sent. Thanks!")
		},
	}
}
