package bot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-anime-bot/internal/domain"
)

type brcastCommand struct {
	api   API
	posts domain.PostStore
	bcast Broadcaster
}

func newBrcastCommand(api API, posts domain.PostStore, bcast Broadcaster) *Command {
	b := &brcastCommand{api: api, posts: posts, bcast: bcast}
	return &Command{
		Name:        "brcast",
		Aliases:     []string{"broadcast"},
		Description: "List, send or delete stored broadcast posts",
		Usage:       "/brcast list | send <id> [--pin] [--silent] [targets…] | del <id>",
		OwnerOnly:   true,
		Handle:      b.handle,
	}
}

func (b *brcastCommand) handle(c *Context) error {
	switch strings.ToLower(c.Arg(0)) {
	case "", "list":
		return b.list(c)
	case "send":
		return b.send(c)
	case "del", "delete":
		return b.delete(c)
	}
	return c.Reply("Usage: /brcast list | send <id> [--pin] [--silent] [targets…] | del <id>")
}

func (b *brcastCommand) list(c *Context) error {
	posts, err := b.posts.ListPosts()
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	if len(posts) == 0 {
		return c.Reply("No stored posts. Create one with /createpost.")
	}

	var sb strings.Builder
	sb.WriteString("Stored posts:\n")
	for _, post := range posts {
		fmt.Fprintf(&sb, "#%d %s %s\n", post.ID, post.Type, postSummary(post))
	}
	sb.WriteString("\nSend one with /brcast send <id>.")
	return c.Reply(sb.String())
}

func (b *brcastCommand) send(c *Context) error {
	post, err := b.lookupPost(c)
	if err != nil || post.ID == 0 {
		return err
	}

	var targets []string
	for _, arg := range c.Args[2:] {
		switch arg {
		case "--pin":
			post.Pin = true
		case "--silent":
			post.Silent = true
		default:
			targets = append(targets, arg)
		}
	}

	if err := c.Reply(fmt.Sprintf("Broadcasting post #%d…", post.ID)); err != nil {
		return err
	}

	var report domain.BroadcastReport
	if len(targets) == 0 {
		report, err = b.bcast.SendToAll(c.Ctx, post)
		if err != nil {
			return fmt.Errorf("broadcast post %d: %w", post.ID, err)
		}
	} else {
		chatIDs := make([]int64, 0, len(targets))
		for _, target := range targets {
			id, err := b.resolveTarget(target)
			if err != nil {
				return c.Reply(fmt.Sprintf("Cannot resolve target %q: %v", target, err))
			}
			chatIDs = append(chatIDs, id)
		}
		report = b.bcast.SendTo(c.Ctx, chatIDs, post)
	}
	return c.Reply(fmt.Sprintf("Broadcast finished: %d delivered, %d failed of %d.",
		report.Success, report.Failed, report.Total))
}

var (
	privateChatLinkRe = regexp.MustCompile(`t\.me/c/(\d+)`)
	publicChatLinkRe  = regexp.MustCompile(`t\.me/([A-Za-z0-9_]+)`)
)

// parseBroadcastTarget splits one target token into either a numeric chat id
// or a username still needing a getChat lookup. Private t.me/c links embed the
// internal id, which gets the supergroup prefix back.
func parseBroadcastTarget(target string) (chatID int64, username string, err error) {
	if m := privateChatLinkRe.FindStringSubmatch(target); m != nil {
		chatID, err = strconv.ParseInt("-100"+m[1], 10, 64)
		return chatID, "", err
	}
	if m := publicChatLinkRe.FindStringSubmatch(target); m != nil {
		return 0, "@" + m[1], nil
	}
	if strings.HasPrefix(target, "@") && len(target) > 1 {
		return 0, target, nil
	}
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return id, "", nil
	}
	return 0, "", fmt.Errorf("want a chat id, @username or t.me link")
}

func (b *brcastCommand) resolveTarget(target string) (int64, error) {
	chatID, username, err := parseBroadcastTarget(target)
	if err != nil || username == "" {
		return chatID, err
	}

	resp, err := b.api.Request(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: username},
	})
	if err != nil {
		return 0, fmt.Errorf("look up %s: %w", username, err)
	}
	var chat tgbotapi.Chat
	if err := json.Unmarshal(resp.Result, &chat); err != nil {
		return 0, fmt.Errorf("decode chat %s: %w", username, err)
	}
	return chat.ID, nil
}

func (b *brcastCommand) delete(c *Context) error {
	post, err := b.lookupPost(c)
	if err != nil || post.ID == 0 {
		return err
	}
	if err := b.posts.DeletePost(post.ID); err != nil {
		return fmt.Errorf("delete post %d: %w", post.ID, err)
	}
	return c.Reply(fmt.Sprintf("Deleted post #%d. Remaining posts were renumbered.", post.ID))
}

// lookupPost resolves the id argument. A zero-ID post with a nil error means
// the user was already told what went wrong.
func (b *brcastCommand) lookupPost(c *Context) (domain.Post, error) {
	id, err := strconv.Atoi(c.Arg(1))
	if err != nil || id <= 0 {
		return domain.Post{}, c.Reply("Give me a post id, for example /brcast send 2.")
	}
	post, err := b.posts.GetPost(id)
	if err != nil {
		return domain.Post{}, c.Reply(fmt.Sprintf("No post #%d found, check /brcast list.", id))
	}
	return post, nil
}

func postSummary(post domain.Post) string {
	text := strings.ReplaceAll(post.Text, "\n", " ")
	if text == "" {
		return "(no text)"
	}
	runes := []rune(text)
	if len(runes) > 40 {
		return string(runes[:40]) + "…"
	}
	return text
}
