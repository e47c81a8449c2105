package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/adapters/nhentai"
	"tg-anime-bot/internal/adapters/telegram"
	"tg-anime-bot/internal/domain"
)

const mediaGroupSize = 6

// delay between media groups, shortened in tests
var mediaGroupDelay = 2 * time.Second

type nhCommand struct {
	galleries GalleryService
	mirror    Mirrorer
	cache     domain.DoujinRepo
}

func newNHCommand(galleries GalleryService, mirror Mirrorer, cache domain.DoujinRepo) *Command {
	nh := &nhCommand{galleries: galleries, mirror: mirror, cache: cache}
	return &Command{
		Name:           "nh",
		Description:    "Fetch a doujin by id or search by text",
		Usage:          "/nh <id> | /nh <search text>",
		Cooldown:       15 * time.Second,
		CallbackPrefix: "nh",
		Handle:         nh.handle,
		HandleCallback: nh.handleCallback,
		HandleInline:   nh.handleInline,
	}
}

func (nh *nhCommand) handle(c *Context) error {
	if len(c.Args) == 0 {
		return c.Reply("Give me an id or a search query: /nh <id|text>")
	}
	if isDigits(c.Arg(0)) && len(c.Args) == 1 {
		return nh.showDoujin(c, c.Arg(0))
	}
	return nh.search(c, strings.Join(c.Args, " "))
}

func (nh *nhCommand) handleCallback(c *Context) error {
	switch c.Arg(0) {
	case "open":
		c.AnswerCallback("")
		return nh.showDoujin(c, c.Arg(1))
	case "dl":
		c.AnswerCallback("Sending pages…")
		return nh.sendPages(c, c.Arg(1))
	default:
		c.AnswerCallback("")
		return nil
	}
}

// showDoujin serves from the cache when possible; a miss fetches the gallery,
// mirrors it to Telegraph and stores the record.
func (nh *nhCommand) showDoujin(c *Context, id string) error {
	c.SendTyping()

	doujin, err := nh.cache.GetByDoujinID(c.Ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		doujin, err = nh.fetchAndMirror(c, id)
	}
	if errors.Is(err, nhentai.ErrGalleryNotFound) {
		return c.Reply("No gallery with id " + id + ".")
	}
	if errors.Is(err, nhentai.ErrSourceUnavailable) {
		return c.Reply("The source site is not reachable right now, try again later.")
	}
	if err != nil {
		return err
	}

	caption := formatDoujin(doujin)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Download", "nh:dl:"+doujin.DoujinID),
	))

	photo := tgbotapi.NewPhoto(c.ChatID(), tgbotapi.FileURL(doujin.Thumbnail))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.ReplyMarkup = kb
	if _, err := c.API.Send(photo); err != nil {
		c.Log.Debug().Err(err).Str("doujin", doujin.DoujinID).Msg("cover send failed")
		return c.ReplyKeyboard(caption, tgbotapi.ModeMarkdown, kb)
	}
	return nil
}

func (nh *nhCommand) fetchAndMirror(c *Context, id string) (domain.Doujin, error) {
	gallery, err := nh.galleries.Gallery(c.Ctx, id)
	if err != nil {
		return domain.Doujin{}, err
	}

	title := fmt.Sprintf("%s-%s", gallery.ID, gallery.Title.Display())
	pages, err := nh.mirror.MirrorImages(c.Ctx, title, gallery.PageURLs)
	if err != nil {
		return domain.Doujin{}, fmt.Errorf("mirror gallery %s: %w", id, err)
	}

	doujin := domain.Doujin{
		DoujinID:      gallery.ID,
		MediaID:       gallery.MediaID,
		Title:         domain.DoujinTitle{English: gallery.Title.English, Japanese: gallery.Title.Japanese, Pretty: gallery.Title.Pretty},
		Tags:          gallery.Tags,
		Pages:         gallery.Pages,
		Thumbnail:     gallery.CoverURL,
		TelegraphURLs: pages,
		Parodies:      gallery.Parodies,
		Characters:    gallery.Characters,
		Artists:       gallery.Artists,
		Groups:        gallery.Groups,
		Languages:     gallery.Languages,
		Categories:    gallery.Categories,
	}
	if err := nh.cache.Save(c.Ctx, doujin); err != nil {
		// serve the result anyway, the next request just refetches
		c.Log.Error().Err(err).Str("doujin", id).Msg("cache save failed")
	}
	return doujin, nil
}

func formatDoujin(d domain.Doujin) string {
	title := d.Title.English
	if title == "" {
		title = d.Title.Pretty
	}
	if title == "" {
		title = d.Title.Japanese
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❏ *%s*\n\n", telegram.EscapeMarkdown(title))
	fmt.Fprintf(&b, "ID: `%s`\n", d.DoujinID)
	fmt.Fprintf(&b, "Pages: %d\n", d.Pages)
	if d.Languages != "" {
		fmt.Fprintf(&b, "Language: %s\n", d.Languages)
	}
	if d.Artists != "" {
		fmt.Fprintf(&b, "Artists: %s\n", telegram.EscapeMarkdown(d.Artists))
	}
	if d.Parodies != "" {
		fmt.Fprintf(&b, "Parodies: %s\n", telegram.EscapeMarkdown(d.Parodies))
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", telegram.EscapeMarkdown(strings.Join(d.Tags, ", ")))
	}
	if len(d.TelegraphURLs) > 0 {
		b.WriteString("\nRead online:\n")
		for i, url := range d.TelegraphURLs {
			if len(d.TelegraphURLs) == 1 {
				fmt.Fprintf(&b, "%s\n", url)
			} else {
				fmt.Fprintf(&b, "Part %d: %s\n", i+1, url)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// sendPages pushes every page as photo albums of six with a pause between
// albums to stay under the flood limits.
func (nh *nhCommand) sendPages(c *Context, id string) error {
	gallery, err := nh.galleries.Gallery(c.Ctx, id)
	if err != nil {
		if errors.Is(err, nhentai.ErrGalleryNotFound) {
			return c.Reply("No gallery with id " + id + ".")
		}
		return err
	}

	urls := gallery.PageURLs
	for start := 0; start < len(urls); start += mediaGroupSize {
		end := start + mediaGroupSize
		if end > len(urls) {
			end = len(urls)
		}

		media := make([]interface{}, 0, end-start)
		for _, url := range urls[start:end] {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(url)))
		}
		group := tgbotapi.NewMediaGroup(c.ChatID(), media)
		if _, err := c.API.SendMediaGroup(group); err != nil {
			return fmt.Errorf("send pages %d-%d: %w", start+1, end, err)
		}

		if end < len(urls) {
			select {
			case <-c.Ctx.Done():
				return c.Ctx.Err()
			case <-time.After(mediaGroupDelay):
			}
		}
	}
	return nil
}

func (nh *nhCommand) search(c *Context, query string) error {
	c.SendTyping()
	results, err := nh.galleries.Search(c.Ctx, query)
	if errors.Is(err, nhentai.ErrSourceUnavailable) {
		return c.Reply("Search is not available right now, try again later.")
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return c.Reply("Nothing found for that query.")
	}
	if len(results) > 10 {
		results = results[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❏ *Results for %s:*\n\n", telegram.EscapeMarkdown(query))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, res := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, telegram.EscapeMarkdown(res.Title), res.Language)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s", i+1, res.ID), "nh:open:"+res.ID),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return c.ReplyKeyboard(strings.TrimRight(b.String(), "\n"), tgbotapi.ModeMarkdown, kb)
}

// handleInline answers @bot queries with search matches; picking one sends
// the /nh command for that id into the chat.
func (nh *nhCommand) handleInline(c *Context) (bool, error) {
	query := strings.TrimSpace(c.Inline.Query)
	if query == "" {
		return false, nil
	}

	results, err := nh.galleries.Search(c.Ctx, query)
	if err != nil {
		return false, err
	}
	if len(results) > 10 {
		results = results[:10]
	}

	articles := make([]interface{}, 0, len(results))
	for _, res := range results {
		article := tgbotapi.NewInlineQueryResultArticle(res.ID, res.Title, "/nh "+res.ID)
		article.Description = fmt.Sprintf("#%s (%s)", res.ID, res.Language)
		articles = append(articles, article)
	}

	_, err = c.API.Request(tgbotapi.InlineConfig{
		InlineQueryID: c.Inline.ID,
		Results:       articles,
		CacheTime:     60,
		IsPersonal:    true,
	})
	if err != nil {
		return false, fmt.Errorf("answer inline query: %w", err)
	}
	return true, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
