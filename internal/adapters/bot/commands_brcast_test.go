package bot

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
)

func TestParseBroadcastTarget(t *testing.T) {
	tests := []struct {
		in       string
		chatID   int64
		username string
		wantErr  bool
	}{
		{in: "https://t.me/c/1234567890/123", chatID: -1001234567890},
		{in: "t.me/c/987654321", chatID: -100987654321},
		{in: "https://t.me/mychannel", username: "@mychannel"},
		{in: "@someone", username: "@someone"},
		{in: "-1001234567890", chatID: -1001234567890},
		{in: "786", chatID: 786},
		{in: "not a chat!", wantErr: true},
		{in: "@", wantErr: true},
	}
	for _, tt := range tests {
		chatID, username, err := parseBroadcastTarget(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got id=%d user=%q", tt.in, chatID, username)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if chatID != tt.chatID || username != tt.username {
			t.Errorf("%q: got id=%d user=%q, want id=%d user=%q",
				tt.in, chatID, username, tt.chatID, tt.username)
		}
	}
}

type stubPosts struct {
	domain.PostStore
	post domain.Post
}

func (s *stubPosts) GetPost(id int) (domain.Post, error) {
	if id != s.post.ID {
		return domain.Post{}, domain.ErrNotFound
	}
	return s.post, nil
}

type recordingBroadcaster struct {
	chatIDs []int64
	post    domain.Post
	allPost *domain.Post
}

func (r *recordingBroadcaster) SendToAll(_ context.Context, post domain.Post) (domain.BroadcastReport, error) {
	r.allPost = &post
	return domain.BroadcastReport{Total: 1, Success: 1}, nil
}

func (r *recordingBroadcaster) SendTo(_ context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport {
	r.chatIDs = chatIDs
	r.post = post
	return domain.BroadcastReport{Total: len(chatIDs), Success: len(chatIDs)}
}

func brcastContext(api API, args ...string) *Context {
	return &Context{
		Ctx: context.Background(),
		API: api,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 99},
			Chat: &tgbotapi.Chat{ID: 99},
		},
		Args: args,
		Log:  zerolog.Nop(),
	}
}

func TestBrcastSendToExplicitTargets(t *testing.T) {
	api := &fakeAPI{}
	bcast := &recordingBroadcaster{}
	b := &brcastCommand{
		api:   api,
		posts: &stubPosts{post: domain.Post{ID: 2, Type: domain.PostText, Text: "news"}},
		bcast: bcast,
	}

	c := brcastContext(api, "send", "2", "--pin", "--silent", "t.me/c/555/1", "-42")
	if err := b.send(c); err != nil {
		t.Fatalf("send: %v", err)
	}

	if want := []int64{-100555, -42}; !reflect.DeepEqual(bcast.chatIDs, want) {
		t.Errorf("chatIDs = %v, want %v", bcast.chatIDs, want)
	}
	if !bcast.post.Pin || !bcast.post.Silent {
		t.Errorf("flags lost: pin=%v silent=%v", bcast.post.Pin, bcast.post.Silent)
	}
	if bcast.allPost != nil {
		t.Error("explicit targets must not go through SendToAll")
	}
}

func TestBrcastSendWithoutTargetsGoesToAll(t *testing.T) {
	api := &fakeAPI{}
	bcast := &recordingBroadcaster{}
	b := &brcastCommand{
		api:   api,
		posts: &stubPosts{post: domain.Post{ID: 2, Type: domain.PostText, Text: "news"}},
		bcast: bcast,
	}

	if err := b.send(brcastContext(api, "send", "2")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if bcast.allPost == nil {
		t.Fatal("expected SendToAll")
	}
	if bcast.allPost.Pin || bcast.allPost.Silent {
		t.Errorf("unexpected flags: %+v", bcast.allPost)
	}
}

func TestBrcastResolveUsernameViaGetChat(t *testing.T) {
	chat, _ := json.Marshal(tgbotapi.Chat{ID: -1009876})
	api := &fakeAPI{result: chat}
	b := &brcastCommand{api: api}

	id, err := b.resolveTarget("@mychannel")
	if err != nil {
		t.Fatalf("resolveTarget: %v", err)
	}
	if id != -1009876 {
		t.Errorf("id = %d, want -1009876", id)
	}
	if len(api.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(api.requests))
	}
	info, ok := api.requests[0].(tgbotapi.ChatInfoConfig)
	if !ok || info.SuperGroupUsername != "@mychannel" {
		t.Errorf("request = %#v", api.requests[0])
	}
}
