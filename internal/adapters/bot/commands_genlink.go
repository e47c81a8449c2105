package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/infra/config"
	"tg-anime-bot/internal/usecase/session"
)

const genlinkTTL = 60 * time.Second

type genlinkSession struct {
	Batch  bool
	Links  []string
	ChatID int64
}

type genlinkCommand struct {
	cfg      config.AppConfig
	sessions *session.Store[genlinkSession]
}

func newGenlinkCommand(api API, cfg config.AppConfig) *Command {
	g := &genlinkCommand{cfg: cfg}
	g.sessions = session.NewStore[genlinkSession](genlinkTTL, func(_ string, s genlinkSession) {
		api.Send(tgbotapi.NewMessage(s.ChatID, "Link session timed out, send /genlink again."))
	})

	return &Command{
		Name:          "genlink",
		Description:   "Generate storage links for media files",
		Usage:         "/genlink [batch]",
		OwnerOnly:     true,
		Handle:        g.handle,
		HandleMessage: g.handleMessage,
	}
}

func (g *genlinkCommand) handle(c *Context) error {
	if g.cfg.Telegram.StorageGroupID == 0 {
		return c.Reply("No storage group configured.")
	}
	batch := strings.EqualFold(c.Arg(0), "batch")
	g.sessions.Put(userKey(c), genlinkSession{Batch: batch, ChatID: c.ChatID()})

	if batch {
		return c.Reply("Batch mode. Send me the files one by one, then say done (or cancel).")
	}
	return c.Reply("Send me the file to generate a link for (or say cancel).")
}

func (g *genlinkCommand) handleMessage(c *Context) (bool, error) {
	key := userKey(c)
	state, ok := g.sessions.Get(key)
	if !ok {
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Message.Text)) {
	case "done":
		g.sessions.Delete(key)
		if len(state.Links) == 0 {
			return true, c.Reply("No links were generated.")
		}
		return true, c.Reply("Generated links:\n" + strings.Join(state.Links, "\n"))
	case "cancel":
		g.sessions.Delete(key)
		return true, c.Reply("Cancelled.")
	}

	if !hasMedia(c.Message) {
		// plain chatter during a session keeps it alive but does nothing
		g.sessions.Touch(key)
		return true, c.Reply("That is not a media file. Send a file, or say done / cancel.")
	}

	fwd := tgbotapi.NewForward(g.cfg.Telegram.StorageGroupID, c.ChatID(), c.Message.MessageID)
	stored, err := c.API.Send(fwd)
	if err != nil {
		return true, err
	}
	link := storageLink(g.cfg.Telegram.StorageGroupID, stored.MessageID)

	if !state.Batch {
		g.sessions.Delete(key)
		return true, c.Reply("Here is your link:\n" + link)
	}

	g.sessions.Update(key, func(s genlinkSession) genlinkSession {
		s.Links = append(s.Links, link)
		return s
	})
	return true, c.Reply(fmt.Sprintf("Stored (%d so far). Keep sending, or say done.", len(state.Links)+1))
}

func hasMedia(msg *tgbotapi.Message) bool {
	return msg.Video != nil || msg.Document != nil || msg.Audio != nil || len(msg.Photo) > 0 || msg.Animation != nil
}

// storageLink builds the t.me deep link for a message in a private group.
// Supergroup ids are -100 followed by the internal id the link uses.
func storageLink(chatID int64, messageID int) string {
	s := strconv.FormatInt(chatID, 10)
	s = strings.TrimPrefix(s, "-100")
	s = strings.TrimPrefix(s, "-")
	return fmt.Sprintf("https://t.me/c/%s/%d", s, messageID)
}
