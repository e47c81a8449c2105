// Package bot routes Telegram updates to command handlers and carries the
// reply helpers they share.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/adapters/telegram"
	"tg-anime-bot/internal/domain"
)

// API is the slice of the Telegram client the handlers use. *tgbotapi.BotAPI
// satisfies it, tests substitute a recorder.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Command is one bot command. A command may also own a callback prefix for
// inline keyboard presses and a message hook for multi-step flows.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	OwnerOnly   bool
	Cooldown    time.Duration

	// Handle runs on "/name args".
	Handle func(*Context) error
	// CallbackPrefix claims callback data of the form "prefix:rest...".
	CallbackPrefix string
	// HandleCallback runs with the colon-separated params after the prefix
	// in ctx.Args.
	HandleCallback func(*Context) error
	// HandleMessage is offered plain (non-command) messages. Returning true
	// consumes the message.
	HandleMessage func(*Context) (bool, error)
	// HandleInline is offered inline queries. Returning true means the query
	// was answered.
	HandleInline func(*Context) (bool, error)
}

// Context carries one update through a handler.
type Context struct {
	Ctx      context.Context
	API      API
	Update   tgbotapi.Update
	Message  *tgbotapi.Message
	Callback *tgbotapi.CallbackQuery
	Inline   *tgbotapi.InlineQuery
	Args     []string
	User     domain.User
	Log      zerolog.Logger
}

// ChatID returns the chat the update came from.
func (c *Context) ChatID() int64 {
	if c.Message != nil {
		return c.Message.Chat.ID
	}
	if c.Callback != nil && c.Callback.Message != nil {
		return c.Callback.Message.Chat.ID
	}
	return 0
}

// Arg returns the i-th argument or an empty string.
func (c *Context) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Reply sends plain text to the origin chat, splitting oversized messages.
func (c *Context) Reply(text string) error {
	return c.send(text, "", nil)
}

// ReplyMarkdown sends Markdown-formatted text.
func (c *Context) ReplyMarkdown(text string) error {
	return c.send(text, tgbotapi.ModeMarkdown, nil)
}

// ReplyHTML sends HTML-formatted text.
func (c *Context) ReplyHTML(text string) error {
	return c.send(text, tgbotapi.ModeHTML, nil)
}

// ReplyKeyboard sends formatted text with an inline keyboard attached to the
// last chunk.
func (c *Context) ReplyKeyboard(text, parseMode string, kb tgbotapi.InlineKeyboardMarkup) error {
	return c.send(text, parseMode, &kb)
}

func (c *Context) send(text, parseMode string, kb *tgbotapi.InlineKeyboardMarkup) error {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(c.ChatID(), part)
		msg.ParseMode = parseMode
		if kb != nil && i == len(parts)-1 {
			msg.ReplyMarkup = *kb
		}
		if _, err := c.API.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// ReplyPhoto sends a photo by URL or file id with a Markdown caption.
func (c *Context) ReplyPhoto(fileURL, caption string) error {
	photo := tgbotapi.NewPhoto(c.ChatID(), tgbotapi.FileURL(fileURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	_, err := c.API.Send(photo)
	return err
}

// EditCaller rewrites the message the pressed keyboard is attached to.
func (c *Context) EditCaller(text, parseMode string, kb *tgbotapi.InlineKeyboardMarkup) error {
	if c.Callback == nil || c.Callback.Message == nil {
		return c.send(text, parseMode, kb)
	}
	edit := tgbotapi.NewEditMessageText(c.Callback.Message.Chat.ID, c.Callback.Message.MessageID, text)
	edit.ParseMode = parseMode
	edit.ReplyMarkup = kb
	_, err := c.API.Send(edit)
	return err
}

// AnswerCallback acknowledges the callback so the client stops the spinner.
func (c *Context) AnswerCallback(text string) {
	if c.Callback == nil {
		return
	}
	_, err := c.API.Request(tgbotapi.NewCallback(c.Callback.ID, text))
	if err != nil {
		c.Log.Warn().Err(err).Msg("answer callback")
	}
}

// SendTyping flashes the typing indicator.
func (c *Context) SendTyping() {
	action := tgbotapi.NewChatAction(c.ChatID(), tgbotapi.ChatTyping)
	if _, err := c.API.Request(action); err != nil {
		c.Log.Debug().Err(err).Msg("chat action")
	}
}
