package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/config"
	"tg-anime-bot/internal/usecase/session"
)

const uploadSessionTTL = 15 * time.Minute

type uploadSession struct {
	Anime  domain.Anime
	ChatID int64
}

type uploadAnimeCommand struct {
	cfg      config.AppConfig
	anime    domain.AnimeRepo
	sessions *session.Store[uploadSession]
}

func newUploadAnimeCommand(api API, cfg config.AppConfig, anime domain.AnimeRepo) *Command {
	u := &uploadAnimeCommand{cfg: cfg, anime: anime}
	u.sessions = session.NewStore[uploadSession](uploadSessionTTL, func(_ string, s uploadSession) {
		api.Send(tgbotapi.NewMessage(s.ChatID, "Upload session timed out, progress was not saved."))
	})

	return &Command{
		Name:          "uploadanime",
		Description:   "Collect episode files for a series into storage",
		Usage:         "/uploadanime <name> [movie]",
		OwnerOnly:     true,
		Handle:        u.handle,
		HandleMessage: u.handleMessage,
	}
}

func (u *uploadAnimeCommand) handle(c *Context) error {
	if u.cfg.Telegram.StorageGroupID == 0 {
		return c.Reply("No storage group configured.")
	}
	args := c.Args
	isMovie := false
	if n := len(args); n > 0 && strings.EqualFold(args[n-1], "movie") {
		isMovie = true
		args = args[:n-1]
	}
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return c.Reply("Name the series: /uploadanime One Piece, or /uploadanime Akira movie.")
	}

	entry, err := u.anime.GetByName(c.Ctx, name)
	switch {
	case err == nil:
		entry.IsMovie = isMovie
	case errors.Is(err, domain.ErrNotFound):
		entry = domain.Anime{
			AnimeID: uuid.NewString(),
			Name:    name,
			IsMovie: isMovie,
			AddedAt: time.Now().UTC(),
		}
	default:
		return fmt.Errorf("load anime %q: %w", name, err)
	}

	u.sessions.Put(userKey(c), uploadSession{Anime: entry, ChatID: c.ChatID()})
	if n := len(entry.Episodes); n > 0 {
		return c.Reply(fmt.Sprintf("Resuming %s at episode %d. Send the next files, then say done.", entry.Name, n+1))
	}
	return c.Reply(fmt.Sprintf("Uploading %s. Send the episode files in order, then say done (or cancel).", entry.Name))
}

func (u *uploadAnimeCommand) handleMessage(c *Context) (bool, error) {
	key := userKey(c)
	state, ok := u.sessions.Get(key)
	if !ok {
		return false, nil
	}

	switch strings.ToLower(strings.TrimSpace(c.Message.Text)) {
	case "done":
		u.sessions.Delete(key)
		if len(state.Anime.Episodes) == 0 {
			return true, c.Reply("Nothing was uploaded, aborting.")
		}
		if err := u.anime.Upsert(c.Ctx, state.Anime); err != nil {
			return true, fmt.Errorf("save anime %q: %w", state.Anime.Name, err)
		}
		return true, c.Reply(fmt.Sprintf("Saved %s with %d episode(s).", state.Anime.Name, len(state.Anime.Episodes)))
	case "cancel":
		u.sessions.Delete(key)
		return true, c.Reply("Upload cancelled, nothing was saved.")
	}

	fileID := episodeFileID(c.Message)
	if fileID == "" {
		u.sessions.Touch(key)
		return true, c.Reply("Send episode files as video or document, or say done / cancel.")
	}

	fwd := tgbotapi.NewForward(u.cfg.Telegram.StorageGroupID, c.ChatID(), c.Message.MessageID)
	stored, err := c.API.Send(fwd)
	if err != nil {
		return true, fmt.Errorf("forward episode to storage: %w", err)
	}

	number := len(state.Anime.Episodes) + 1
	u.sessions.Update(key, func(s uploadSession) uploadSession {
		s.Anime.Episodes = append(s.Anime.Episodes, domain.Episode{
			Number:    number,
			MessageID: stored.MessageID,
			FileID:    fileID,
		})
		return s
	})
	return true, c.Reply(fmt.Sprintf("Episode %d stored. Send the next one, or say done.", number))
}

func episodeFileID(msg *tgbotapi.Message) string {
	switch {
	case msg.Video != nil:
		return msg.Video.FileID
	case msg.Document != nil:
		return msg.Document.FileID
	}
	return ""
}

func newListAnimeCommand(anime domain.AnimeRepo) *Command {
	return &Command{
		Name:        "listanime",
		Description: "List uploaded series",
		Usage:       "/listanime",
		OwnerOnly:   true,
		Handle: func(c *Context) error {
			entries, err := anime.List(c.Ctx)
			if err != nil {
				return fmt.Errorf("list anime: %w", err)
			}
			if len(entries) == 0 {
				return c.Reply("Nothing uploaded yet, start with /uploadanime.")
			}
			var b strings.Builder
			b.WriteString("Uploaded series:\n")
			for _, entry := range entries {
				kind := "series"
				if entry.IsMovie {
					kind = "movie"
				}
				fmt.Fprintf(&b, "• %s (%s, %d file(s))\n", entry.Name, kind, len(entry.Episodes))
			}
			return c.Reply(strings.TrimRight(b.String(), "\n"))
		},
	}
}
