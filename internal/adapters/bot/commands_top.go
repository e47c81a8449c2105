package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/adapters/anilist"
	"tg-anime-bot/internal/adapters/telegram"
)

const topPageSize = 15

// topQuery is one parsed /top request. Genre and year are optional and travel
// through callback data as "none" when absent.
type topQuery struct {
	Type  string // anime | manga
	Genre string
	Year  int
	Page  int
}

func parseTopArgs(args []string) (topQuery, error) {
	q := topQuery{Type: "anime", Page: 1}
	if len(args) == 0 {
		return q, nil
	}

	rest := args
	switch strings.ToLower(args[0]) {
	case "anime":
		q.Type = "anime"
		rest = args[1:]
	case "manga":
		q.Type = "manga"
		rest = args[1:]
	}
	for _, arg := range rest {
		if year, err := strconv.Atoi(arg); err == nil && year >= 1950 && year <= 2100 {
			q.Year = year
			continue
		}
		if q.Genre == "" {
			q.Genre = strings.ToLower(arg)
			continue
		}
		return q, fmt.Errorf("unexpected argument %q", arg)
	}
	return q, nil
}

func parseTopParams(params []string) (topQuery, error) {
	if len(params) != 4 {
		return topQuery{}, fmt.Errorf("malformed pagination data")
	}
	q := topQuery{Type: params[0]}
	if params[1] != "none" {
		q.Genre = params[1]
	}
	if params[2] != "none" {
		year, err := strconv.Atoi(params[2])
		if err != nil {
			return topQuery{}, fmt.Errorf("bad year %q", params[2])
		}
		q.Year = year
	}
	page, err := strconv.Atoi(params[3])
	if err != nil || page < 1 {
		return topQuery{}, fmt.Errorf("bad page %q", params[3])
	}
	q.Page = page
	return q, nil
}

func (q topQuery) callbackData(page int) string {
	genre := q.Genre
	if genre == "" {
		genre = "none"
	}
	year := "none"
	if q.Year > 0 {
		year = strconv.Itoa(q.Year)
	}
	return fmt.Sprintf("top:%s:%s:%s:%d", q.Type, genre, year, page)
}

func (q topQuery) listOptions() anilist.ListOptions {
	opts := anilist.ListOptions{
		Type:    strings.ToUpper(q.Type),
		Sort:    "SCORE_DESC",
		Genre:   q.Genre,
		Page:    q.Page,
		PerPage: topPageSize,
	}
	if q.Year > 0 {
		opts.StartDateGreater = (q.Year-1)*10000 + 1231
		opts.StartDateLesser = (q.Year+1)*10000 + 101
	}
	return opts
}

func formatTopPage(q topQuery, page anilist.MediaPage) string {
	var b strings.Builder
	b.WriteString("❏ *Top " + strings.ToUpper(q.Type))
	if q.Genre != "" {
		b.WriteString(" for genre " + strings.ToUpper(q.Genre))
	}
	if q.Year > 0 {
		fmt.Fprintf(&b, " from %d", q.Year)
	}
	b.WriteString(":*\n\n")

	offset := (q.Page - 1) * topPageSize
	for i, media := range page.Media {
		fmt.Fprintf(&b, "%d. %s\n", offset+i+1, telegram.EscapeMarkdown(media.Title.Preferred()))
	}
	return strings.TrimRight(b.String(), "\n")
}

func topKeyboard(q topQuery, page anilist.MediaPage) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if q.Page > 1 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("« Prev", q.callbackData(q.Page-1)))
	}
	if page.PageInfo.HasNextPage {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next »", q.callbackData(q.Page+1)))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

func newTopCommand(client *anilist.Client) *Command {
	fetch := func(c *Context, q topQuery, edit bool) error {
		page, err := client.MediaList(c.Ctx, q.listOptions())
		if err != nil {
			return err
		}
		if len(page.Media) == 0 {
			if edit {
				c.AnswerCallback("Nothing on this page.")
				return nil
			}
			return c.Reply("Nothing found for that filter.")
		}

		text := formatTopPage(q, page)
		kb := topKeyboard(q, page)
		if edit {
			defer c.AnswerCallback("")
			return c.EditCaller(text, tgbotapi.ModeMarkdown, kb)
		}
		if kb != nil {
			return c.ReplyKeyboard(text, tgbotapi.ModeMarkdown, *kb)
		}
		return c.ReplyMarkdown(text)
	}

	return &Command{
		Name:           "top",
		Description:    "Top rated anime or manga, optionally by genre and year",
		Usage:          "/top [anime|manga] [genre] [year]",
		Cooldown:       3 * time.Second,
		CallbackPrefix: "top",
		Handle: func(c *Context) error {
			q, err := parseTopArgs(c.Args)
			if err != nil {
				return c.Reply("I did not get that. Try /top anime action 2024")
			}
			c.SendTyping()
			return fetch(c, q, false)
		},
		HandleCallback: func(c *Context) error {
			q, err := parseTopParams(c.Args)
			if err != nil {
				c.AnswerCallback("This keyboard has expired.")
				return nil
			}
			return fetch(c, q, true)
		},
	}
}
