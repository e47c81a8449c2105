package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/domain"
)

// PostSender materialises stored posts into Telegram messages. It backs both
// broadcasts and admin previews.
type PostSender struct {
	api API
}

// NewPostSender creates the sender.
func NewPostSender(api API) *PostSender {
	return &PostSender{api: api}
}

// SendPost delivers one post to one chat.
func (s *PostSender) SendPost(_ context.Context, chatID int64, post domain.Post) error {
	msg, err := buildPostMessage(chatID, post)
	if err != nil {
		return err
	}
	sent, err := s.api.Send(msg)
	if err != nil {
		return err
	}
	if post.Pin {
		// a chat where we cannot pin still got the post, so the delivery counts
		_, _ = s.api.Request(tgbotapi.PinChatMessageConfig{
			ChatID:              chatID,
			MessageID:           sent.MessageID,
			DisableNotification: true,
		})
	}
	return nil
}

func buildPostMessage(chatID int64, post domain.Post) (tgbotapi.Chattable, error) {
	switch post.Type {
	case domain.PostText, "":
		msg := tgbotapi.NewMessage(chatID, post.Text)
		msg.ParseMode = post.ParseMode
		msg.DisableNotification = post.Silent
		msg.DisableWebPagePreview = !post.WebPreview
		if kb := postKeyboard(post.Buttons); kb != nil {
			msg.ReplyMarkup = kb
		}
		return msg, nil
	case domain.PostPhoto:
		msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(post.FileID))
		msg.Caption = post.Text
		msg.ParseMode = post.ParseMode
		msg.DisableNotification = post.Silent
		if kb := postKeyboard(post.Buttons); kb != nil {
			msg.ReplyMarkup = kb
		}
		return msg, nil
	case domain.PostVideo:
		msg := tgbotapi.NewVideo(chatID, tgbotapi.FileID(post.FileID))
		msg.Caption = post.Text
		msg.ParseMode = post.ParseMode
		msg.DisableNotification = post.Silent
		if kb := postKeyboard(post.Buttons); kb != nil {
			msg.ReplyMarkup = kb
		}
		return msg, nil
	case domain.PostDocument:
		msg := tgbotapi.NewDocument(chatID, tgbotapi.FileID(post.FileID))
		msg.Caption = post.Text
		msg.ParseMode = post.ParseMode
		msg.DisableNotification = post.Silent
		if kb := postKeyboard(post.Buttons); kb != nil {
			msg.ReplyMarkup = kb
		}
		return msg, nil
	case domain.PostAnimation:
		msg := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(post.FileID))
		msg.Caption = post.Text
		msg.ParseMode = post.ParseMode
		msg.DisableNotification = post.Silent
		if kb := postKeyboard(post.Buttons); kb != nil {
			msg.ReplyMarkup = kb
		}
		return msg, nil
	case domain.PostSticker:
		msg := tgbotapi.NewSticker(chatID, tgbotapi.FileID(post.FileID))
		msg.DisableNotification = post.Silent
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown post type %q", post.Type)
	}
}

func postKeyboard(rows [][]domain.PostButton) *tgbotapi.InlineKeyboardMarkup {
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var kbRow []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			kbRow = append(kbRow, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
		}
		if len(kbRow) > 0 {
			kbRows = append(kbRows, kbRow)
		}
	}
	if len(kbRows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return &kb
}
