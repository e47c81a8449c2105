package bot

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	result   json.RawMessage
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true, Result: f.result}, nil
}

func (f *fakeAPI) SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.sent = append(f.sent, cfg)
	return nil, nil
}

type stubUsers struct {
	domain.UserRepo
}

func (stubUsers) UpsertByID(_ context.Context, p domain.TelegramProfile) (domain.User, error) {
	return domain.User{UserID: p.UserID, FirstName: p.FirstName}, nil
}

type stubLogs struct {
	domain.CommandLogRepo
	entries []domain.CommandLog
}

func (s *stubLogs) Append(_ context.Context, e domain.CommandLog) error {
	s.entries = append(s.entries, e)
	return nil
}

type stubCooldown struct {
	allow bool
	keys  []string
}

func (s *stubCooldown) Reserve(key string, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, nil
}

func newTestDispatcher(reg *Registry, cooldownFree bool) (*Dispatcher, *fakeAPI, *stubLogs) {
	api := &fakeAPI{}
	logs := &stubLogs{}
	d := NewDispatcher(api, reg, stubUsers{}, logs, &stubCooldown{allow: cooldownFree}, 99, zerolog.Nop())
	return d, api, logs
}

func commandUpdate(userID int64, text string, entityLen int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: entityLen}},
	}}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestDispatchCommandWithArgs(t *testing.T) {
	var gotArgs []string
	reg := NewRegistry()
	reg.Register(&Command{
		Name: "echo",
		Handle: func(c *Context) error {
			gotArgs = c.Args
			return c.Reply("ok")
		},
	})
	d, api, logs := newTestDispatcher(reg, true)

	d.HandleUpdate(context.Background(), commandUpdate(1, "/echo hello   world", 5))

	if !reflect.DeepEqual(gotArgs, []string{"hello", "world"}) {
		t.Errorf("args = %v", gotArgs)
	}
	if len(api.sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(api.sent))
	}
	if len(logs.entries) != 1 || logs.entries[0].CommandName != "echo" {
		t.Errorf("command log = %+v", logs.entries)
	}
}

func TestDispatchCallbackParams(t *testing.T) {
	var gotArgs []string
	reg := NewRegistry()
	reg.Register(&Command{
		Name:           "top",
		CallbackPrefix: "top",
		Handle:         func(*Context) error { return nil },
		HandleCallback: func(c *Context) error {
			gotArgs = c.Args
			c.AnswerCallback("")
			return nil
		},
	})
	d, _, _ := newTestDispatcher(reg, true)

	d.HandleUpdate(context.Background(), callbackUpdate(1, "top:anime:action:2024:2"))

	want := []string{"anime", "action", "2024", "2"}
	if !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("params = %v, want %v", gotArgs, want)
	}
}

func TestDispatchUnmatchedCallbackIsAcked(t *testing.T) {
	d, api, _ := newTestDispatcher(NewRegistry(), true)

	d.HandleUpdate(context.Background(), callbackUpdate(1, "gone:1"))

	if len(api.requests) != 1 {
		t.Fatalf("expected the stale callback to be answered, requests = %d", len(api.requests))
	}
}

func TestDispatchCooldownBlocks(t *testing.T) {
	called := 0
	reg := NewRegistry()
	reg.Register(&Command{
		Name:     "nh",
		Cooldown: 30 * time.Second,
		Handle: func(*Context) error {
			called++
			return nil
		},
	})
	d, api, _ := newTestDispatcher(reg, false)

	d.HandleUpdate(context.Background(), commandUpdate(1, "/nh 1234", 3))

	if called != 0 {
		t.Errorf("handler ran despite the cooldown")
	}
	if len(api.sent) != 1 {
		t.Errorf("expected a cooldown notice, sent = %d", len(api.sent))
	}
}

func TestDispatchOwnerBypassesCooldown(t *testing.T) {
	called := 0
	reg := NewRegistry()
	reg.Register(&Command{
		Name:     "nh",
		Cooldown: 30 * time.Second,
		Handle: func(*Context) error {
			called++
			return nil
		},
	})
	d, _, _ := newTestDispatcher(reg, false)

	d.HandleUpdate(context.Background(), commandUpdate(99, "/nh 1234", 3))

	if called != 1 {
		t.Errorf("owner should bypass the cooldown, called = %d", called)
	}
}

func TestDispatchOwnerOnlyDenied(t *testing.T) {
	called := 0
	reg := NewRegistry()
	reg.Register(&Command{
		Name:      "brcast",
		OwnerOnly: true,
		Handle: func(*Context) error {
			called++
			return nil
		},
	})
	d, _, _ := newTestDispatcher(reg, true)

	d.HandleUpdate(context.Background(), commandUpdate(1, "/brcast 1", 7))
	if called != 0 {
		t.Error("non-owner ran an owner-only command")
	}

	d.HandleUpdate(context.Background(), commandUpdate(99, "/brcast 1", 7))
	if called != 1 {
		t.Error("owner was denied")
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Command{
		Name:   "boom",
		Handle: func(*Context) error { panic("kaboom") },
	})
	d, api, _ := newTestDispatcher(reg, true)

	d.HandleUpdate(context.Background(), commandUpdate(1, "/boom", 5))

	// the user still gets an error notice
	if len(api.sent) != 1 {
		t.Errorf("sent = %d, want 1", len(api.sent))
	}
}

func TestDispatchInlineHooks(t *testing.T) {
	var gotQuery string
	reg := NewRegistry()
	reg.Register(&Command{
		Name:   "nh",
		Handle: func(*Context) error { return nil },
		HandleInline: func(c *Context) (bool, error) {
			gotQuery = c.Inline.Query
			_, err := c.API.Request(tgbotapi.InlineConfig{InlineQueryID: c.Inline.ID})
			return true, err
		},
	})
	d, api, _ := newTestDispatcher(reg, true)

	d.HandleUpdate(context.Background(), tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{
		ID:    "iq1",
		From:  &tgbotapi.User{ID: 1},
		Query: "touhou",
	}})

	if gotQuery != "touhou" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(api.requests) != 1 {
		t.Errorf("expected the inline query to be answered, requests = %d", len(api.requests))
	}
}

func TestDispatchMessageHooks(t *testing.T) {
	var seen []string
	reg := NewRegistry()
	reg.Register(&Command{
		Name:   "first",
		Handle: func(*Context) error { return nil },
		HandleMessage: func(c *Context) (bool, error) {
			seen = append(seen, "first")
			return false, nil
		},
	})
	reg.Register(&Command{
		Name:   "second",
		Handle: func(*Context) error { return nil },
		HandleMessage: func(c *Context) (bool, error) {
			seen = append(seen, "second")
			return true, nil
		},
	})
	reg.Register(&Command{
		Name:   "third",
		Handle: func(*Context) error { return nil },
		HandleMessage: func(c *Context) (bool, error) {
			seen = append(seen, "third")
			return true, nil
		},
	})
	d, _, _ := newTestDispatcher(reg, true)

	d.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "plain text",
	}})

	if !reflect.DeepEqual(seen, []string{"first", "second"}) {
		t.Errorf("hook order = %v", seen)
	}
}
