package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/adapters/telegram"
	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/usecase/session"
)

const postEditorTTL = 10 * time.Minute

type postEditorStep int

const (
	postStepContent postEditorStep = iota
	postStepMenu
	postStepButtons
)

type postEditorSession struct {
	Step   postEditorStep
	Post   domain.Post
	ChatID int64
}

type createPostCommand struct {
	posts    domain.PostStore
	sessions *session.Store[postEditorSession]
}

func newCreatePostCommand(api API, posts domain.PostStore) *Command {
	p := &createPostCommand{posts: posts}
	p.sessions = session.NewStore[postEditorSession](postEditorTTL, func(_ string, s postEditorSession) {
		api.Send(tgbotapi.NewMessage(s.ChatID, "Post editor timed out without saving."))
	})

	return &Command{
		Name:           "createpost",
		Description:    "Create or edit a broadcast post",
		Usage:          "/createpost [id]",
		OwnerOnly:      true,
		Handle:         p.handle,
		HandleMessage:  p.handleMessage,
		CallbackPrefix: "post",
		HandleCallback: p.handleCallback,
	}
}

func (p *createPostCommand) handle(c *Context) error {
	if raw := c.Arg(0); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return c.Reply("Post ids are numbers, try /createpost 3.")
		}
		post, err := p.posts.GetPost(id)
		if err != nil {
			return c.Reply(fmt.Sprintf("No post #%d found.", id))
		}
		p.sessions.Put(userKey(c), postEditorSession{Step: postStepMenu, Post: post, ChatID: c.ChatID()})
		return p.sendMenu(c, post)
	}

	p.sessions.Put(userKey(c), postEditorSession{Step: postStepContent, ChatID: c.ChatID()})
	return c.Reply("Send me the post content: plain text, or a photo/video/document/animation/sticker with an optional caption.")
}

func (p *createPostCommand) handleMessage(c *Context) (bool, error) {
	key := userKey(c)
	state, ok := p.sessions.Get(key)
	if !ok {
		return false, nil
	}

	switch state.Step {
	case postStepContent:
		post, err := postFromMessage(c.Message)
		if err != nil {
			return true, c.Reply(err.Error())
		}
		post.ID = state.Post.ID
		p.sessions.Update(key, func(s postEditorSession) postEditorSession {
			s.Post = post
			s.Step = postStepMenu
			return s
		})
		return true, p.sendMenu(c, post)

	case postStepButtons:
		rows, err := parseButtonRows(c.Message.Text)
		if err != nil {
			return true, c.Reply(err.Error())
		}
		p.sessions.Update(key, func(s postEditorSession) postEditorSession {
			s.Post.Buttons = rows
			s.Step = postStepMenu
			return s
		})
		state.Post.Buttons = rows
		return true, p.sendMenu(c, state.Post)
	}
	return false, nil
}

func (p *createPostCommand) handleCallback(c *Context) error {
	key := userKey(c)
	state, ok := p.sessions.Get(key)
	if !ok {
		c.AnswerCallback("Editor session expired, run /createpost again.")
		return nil
	}

	switch c.Arg(0) {
	case "buttons":
		p.sessions.Update(key, func(s postEditorSession) postEditorSession {
			s.Step = postStepButtons
			return s
		})
		c.AnswerCallback("")
		return c.Reply("Send button rows, one row per line, buttons separated by |, each as Text - URL:\n\nOpen site - https://example.com | Docs - https://example.com/docs")

	case "mode":
		next := nextParseMode(state.Post.ParseMode)
		p.sessions.Update(key, func(s postEditorSession) postEditorSession {
			s.Post.ParseMode = next
			return s
		})
		state.Post.ParseMode = next
		return p.editMenu(c, state.Post)

	case "web":
		p.sessions.Update(key, func(s postEditorSession) postEditorSession {
			s.Post.WebPreview = !s.Post.WebPreview
			return s
		})
		state.Post.WebPreview = !state.Post.WebPreview
		return p.editMenu(c, state.Post)

	case "preview":
		c.AnswerCallback("")
		msg, err := buildPostMessage(c.ChatID(), state.Post)
		if err != nil {
			return c.Reply("Cannot preview this post: " + err.Error())
		}
		_, err = c.API.Send(msg)
		return err

	case "save":
		p.sessions.Delete(key)
		id, err := p.posts.SavePost(state.Post)
		if err != nil {
			return fmt.Errorf("save post: %w", err)
		}
		c.AnswerCallback("Saved")
		return c.EditCaller(fmt.Sprintf("Saved post #%d. Broadcast it with /brcast send %d.", id, id), "", nil)

	case "cancel":
		p.sessions.Delete(key)
		c.AnswerCallback("")
		return c.EditCaller("Post discarded.", "", nil)
	}
	c.AnswerCallback("")
	return nil
}

func (p *createPostCommand) sendMenu(c *Context, post domain.Post) error {
	return c.ReplyKeyboard(postMenuText(post), tgbotapi.ModeMarkdownV2, postMenuKeyboard(post))
}

func (p *createPostCommand) editMenu(c *Context, post domain.Post) error {
	c.AnswerCallback("")
	kb := postMenuKeyboard(post)
	return c.EditCaller(postMenuText(post), tgbotapi.ModeMarkdownV2, &kb)
}

// postMenuText renders the draft status. It is sent as MarkdownV2, so the
// user-written snippet must be escaped.
func postMenuText(post domain.Post) string {
	var b strings.Builder
	b.WriteString("*Post draft*\n")
	fmt.Fprintf(&b, "Type: %s\n", post.Type)
	if post.Text != "" {
		text := post.Text
		if runes := []rune(text); len(runes) > 200 {
			text = string(runes[:200]) + "…"
		}
		fmt.Fprintf(&b, "Text: %s\n", telegram.EscapeMarkdownV2(text))
	}
	fmt.Fprintf(&b, "Buttons: %d rows\n", len(post.Buttons))
	fmt.Fprintf(&b, "Parse mode: %s\n", parseModeLabel(post.ParseMode))
	fmt.Fprintf(&b, "Web preview: %s", onOff(post.WebPreview))
	return b.String()
}

func postMenuKeyboard(post domain.Post) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buttons", "post:buttons"),
			tgbotapi.NewInlineKeyboardButtonData("Mode: "+parseModeLabel(post.ParseMode), "post:mode"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Preview: "+onOff(post.WebPreview), "post:web"),
			tgbotapi.NewInlineKeyboardButtonData("Show preview", "post:preview"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Save", "post:save"),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "post:cancel"),
		),
	)
}

// postFromMessage classifies an incoming message into a stored post draft.
func postFromMessage(msg *tgbotapi.Message) (domain.Post, error) {
	switch {
	case len(msg.Photo) > 0:
		return domain.Post{Type: domain.PostPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID, Text: msg.Caption}, nil
	case msg.Video != nil:
		return domain.Post{Type: domain.PostVideo, FileID: msg.Video.FileID, Text: msg.Caption}, nil
	case msg.Animation != nil:
		return domain.Post{Type: domain.PostAnimation, FileID: msg.Animation.FileID, Text: msg.Caption}, nil
	case msg.Document != nil:
		return domain.Post{Type: domain.PostDocument, FileID: msg.Document.FileID, Text: msg.Caption}, nil
	case msg.Sticker != nil:
		return domain.Post{Type: domain.PostSticker, FileID: msg.Sticker.FileID}, nil
	case msg.Text != "":
		return domain.Post{Type: domain.PostText, Text: msg.Text}, nil
	}
	return domain.Post{}, fmt.Errorf("unsupported content, send text or a photo/video/document/animation/sticker")
}

func parseButtonRows(input string) ([][]domain.PostButton, error) {
	var rows [][]domain.PostButton
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var row []domain.PostButton
		for _, part := range strings.Split(line, "|") {
			text, url, found := strings.Cut(part, " - ")
			text = strings.TrimSpace(text)
			url = strings.TrimSpace(url)
			if !found || text == "" || url == "" {
				return nil, fmt.Errorf("cannot parse button %q, expected Text - URL", strings.TrimSpace(part))
			}
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "tg://") {
				return nil, fmt.Errorf("button %q needs an http(s) or tg:// link", text)
			}
			row = append(row, domain.PostButton{Text: text, URL: url})
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no buttons found, send at least one Text - URL line")
	}
	return rows, nil
}

func nextParseMode(mode string) string {
	switch mode {
	case "":
		return tgbotapi.ModeMarkdown
	case tgbotapi.ModeMarkdown:
		return tgbotapi.ModeMarkdownV2
	case tgbotapi.ModeMarkdownV2:
		return tgbotapi.ModeHTML
	default:
		return ""
	}
}

func parseModeLabel(mode string) string {
	if mode == "" {
		return "plain"
	}
	return mode
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
