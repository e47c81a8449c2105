package bot

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/adapters/telegram"
	"tg-anime-bot/internal/adapters/ytdlp"
	"tg-anime-bot/internal/usecase/session"
)

const ytbSessionTTL = 5 * time.Minute

type ytbSession struct {
	URL     string
	Video   *ytdlp.Video
	Formats []ytdlp.Format
	Results []ytdlp.SearchResult
	ChatID  int64
}

type ytbCommand struct {
	video    VideoDownloader
	find     VideoSearcher
	sessions *session.Store[ytbSession]
}

func newYTBCommand(api API, video VideoDownloader, find VideoSearcher) *Command {
	ytb := &ytbCommand{video: video, find: find}
	ytb.sessions = session.NewStore[ytbSession](ytbSessionTTL, func(_ string, s ytbSession) {
		msg := tgbotapi.NewMessage(s.ChatID, "Download session timed out, send /ytb again.")
		api.Send(msg)
	})

	return &Command{
		Name:           "ytb",
		Description:    "Download a YouTube video or audio track",
		Usage:          "/ytb <url or search text>",
		Cooldown:       30 * time.Second,
		CallbackPrefix: "ytb",
		Handle:         ytb.handle,
		HandleCallback: ytb.handleCallback,
	}
}

func (y *ytbCommand) handle(c *Context) error {
	if len(c.Args) == 0 {
		return c.Reply("Give me a link or a search query: /ytb <url|text>")
	}
	arg := strings.Join(c.Args, " ")
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return y.offerFormats(c, arg)
	}
	return y.offerResults(c, arg)
}

func (y *ytbCommand) handleCallback(c *Context) error {
	key := strconv.FormatInt(c.Callback.From.ID, 10)
	state, ok := y.sessions.Get(key)
	if !ok {
		c.AnswerCallback("This session has expired, send /ytb again.")
		return nil
	}

	switch c.Arg(0) {
	case "sel":
		idx, err := strconv.Atoi(c.Arg(1))
		if err != nil || idx < 0 || idx >= len(state.Results) {
			c.AnswerCallback("This keyboard has expired.")
			return nil
		}
		c.AnswerCallback("")
		return y.offerFormats(c, state.Results[idx].URL())
	case "fmt":
		idx, err := strconv.Atoi(c.Arg(1))
		if err != nil || idx < 0 || idx >= len(state.Formats) {
			c.AnswerCallback("This keyboard has expired.")
			return nil
		}
		c.AnswerCallback("Downloading…")
		y.sessions.Delete(key)
		return y.deliver(c, state, state.Formats[idx])
	case "cancel":
		y.sessions.Delete(key)
		c.AnswerCallback("Cancelled.")
		return c.EditCaller("Download cancelled.", "", nil)
	default:
		c.AnswerCallback("")
		return nil
	}
}

func (y *ytbCommand) offerResults(c *Context, query string) error {
	c.SendTyping()
	results, err := y.find.Search(c.Ctx, query, 8)
	if errors.Is(err, ytdlp.ErrNoResults) {
		return c.Reply("Nothing found for that query.")
	}
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❏ *Results for %s:*\n\n", telegram.EscapeMarkdown(query))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, res := range results {
		line := res.Title
		if res.Duration != "" {
			line += " [" + res.Duration + "]"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, telegram.EscapeMarkdown(line))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(i+1), fmt.Sprintf("ytb:sel:%d", i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", "ytb:cancel"),
	))

	y.sessions.Put(userKey(c), ytbSession{Results: results, ChatID: c.ChatID()})
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return c.ReplyKeyboard(strings.TrimRight(b.String(), "\n"), tgbotapi.ModeMarkdown, kb)
}

func (y *ytbCommand) offerFormats(c *Context, url string) error {
	c.SendTyping()
	video, err := y.video.Probe(c.Ctx, url)
	if err != nil {
		return err
	}
	formats, err := ytdlp.UsableFormats(video)
	if errors.Is(err, ytdlp.ErrNoUsableFormat) {
		return c.Reply("Every format of this video is over the 50 MB upload limit.")
	}
	if err != nil {
		return err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, f := range formats {
		label := formatLabel(f)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("ytb:fmt:%d", i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Cancel", "ytb:cancel"),
	))

	y.sessions.Put(userKey(c), ytbSession{URL: url, Video: video, Formats: formats, ChatID: c.ChatID()})
	text := fmt.Sprintf("❏ *%s*\n\nPick a format:", telegram.EscapeMarkdown(video.Title))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return c.ReplyKeyboard(text, tgbotapi.ModeMarkdown, kb)
}

func formatLabel(f ytdlp.Format) string {
	size := float64(f.Size()) / (1 << 20)
	if f.AudioOnly() {
		return fmt.Sprintf("Audio %s (%.1f MB)", f.Ext, size)
	}
	res := f.Resolution
	if res == "" {
		res = f.Note
	}
	return fmt.Sprintf("%s %s (%.1f MB)", res, f.Ext, size)
}

func (y *ytbCommand) deliver(c *Context, state ytbSession, format ytdlp.Format) error {
	path, err := y.video.Download(c.Ctx, state.URL, format.ID)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	if format.AudioOnly() {
		audio := tgbotapi.NewAudio(c.ChatID(), tgbotapi.FilePath(path))
		audio.Title = state.Video.Title
		_, err = c.API.Send(audio)
		return err
	}
	video := tgbotapi.NewVideo(c.ChatID(), tgbotapi.FilePath(path))
	video.Caption = state.Video.Title
	_, err = c.API.Send(video)
	return err
}

func userKey(c *Context) string {
	if c.Message != nil && c.Message.From != nil {
		return strconv.FormatInt(c.Message.From.ID, 10)
	}
	if c.Callback != nil {
		return strconv.FormatInt(c.Callback.From.ID, 10)
	}
	return strconv.FormatInt(c.ChatID(), 10)
}
