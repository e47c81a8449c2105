package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/adapters/nhentai"
	"tg-anime-bot/internal/domain"
)

type fakeGalleries struct {
	galleryCalls int
	gallery      nhentai.Gallery
	searchCalls  int
	results      []nhentai.SearchResult
}

func (f *fakeGalleries) Gallery(context.Context, string) (nhentai.Gallery, error) {
	f.galleryCalls++
	return f.gallery, nil
}

func (f *fakeGalleries) Search(context.Context, string) ([]nhentai.SearchResult, error) {
	f.searchCalls++
	return f.results, nil
}

type fakeMirror struct {
	calls int
}

func (f *fakeMirror) MirrorImages(_ context.Context, _ string, urls []string) ([]string, error) {
	f.calls++
	return []string{"https://telegra.ph/mirrored"}, nil
}

type memDoujins struct {
	records map[string]domain.Doujin
}

func (m *memDoujins) GetByDoujinID(_ context.Context, id string) (domain.Doujin, error) {
	d, ok := m.records[id]
	if !ok {
		return domain.Doujin{}, domain.ErrNotFound
	}
	return d, nil
}

func (m *memDoujins) Save(_ context.Context, d domain.Doujin) error {
	if m.records == nil {
		m.records = map[string]domain.Doujin{}
	}
	m.records[d.DoujinID] = d
	return nil
}

func nhTestContext(api *fakeAPI) *Context {
	return &Context{
		Ctx: context.Background(),
		API: api,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 1},
			Chat: &tgbotapi.Chat{ID: 1},
		},
		Log: zerolog.Nop(),
	}
}

func TestNHSecondRequestHitsCache(t *testing.T) {
	galleries := &fakeGalleries{gallery: nhentai.Gallery{
		ID:       "177013",
		MediaID:  "987560",
		Title:    nhentai.Title{English: "Some Title"},
		Pages:    2,
		PageURLs: []string{"https://i.example/1.jpg", "https://i.example/2.jpg"},
		CoverURL: "https://t.example/cover.jpg",
	}}
	mirror := &fakeMirror{}
	cache := &memDoujins{}
	nh := &nhCommand{galleries: galleries, mirror: mirror, cache: cache}

	c := nhTestContext(&fakeAPI{})
	if err := nh.showDoujin(c, "177013"); err != nil {
		t.Fatalf("first showDoujin: %v", err)
	}
	if err := nh.showDoujin(c, "177013"); err != nil {
		t.Fatalf("second showDoujin: %v", err)
	}

	if galleries.galleryCalls != 1 {
		t.Errorf("gallery fetched %d times, want 1", galleries.galleryCalls)
	}
	if mirror.calls != 1 {
		t.Errorf("mirrored %d times, want 1", mirror.calls)
	}
}

func TestNHSendPagesGroupsOfSix(t *testing.T) {
	old := mediaGroupDelay
	mediaGroupDelay = time.Millisecond
	defer func() { mediaGroupDelay = old }()

	urls := make([]string, 14)
	for i := range urls {
		urls[i] = "https://i.example/p.jpg"
	}
	galleries := &fakeGalleries{gallery: nhentai.Gallery{ID: "1", PageURLs: urls}}
	nh := &nhCommand{galleries: galleries, mirror: &fakeMirror{}, cache: &memDoujins{}}

	api := &fakeAPI{}
	if err := nh.sendPages(nhTestContext(api), "1"); err != nil {
		t.Fatalf("sendPages: %v", err)
	}

	var sizes []int
	for _, sent := range api.sent {
		if group, ok := sent.(tgbotapi.MediaGroupConfig); ok {
			sizes = append(sizes, len(group.Media))
		}
	}
	want := []int{6, 6, 2}
	if len(sizes) != len(want) {
		t.Fatalf("sent %d groups, want %d", len(sizes), len(want))
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("group %d size = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestIsDigits(t *testing.T) {
	if !isDigits("177013") {
		t.Error("numeric id rejected")
	}
	if isDigits("abc") || isDigits("12a") || isDigits("") {
		t.Error("non-numeric accepted")
	}
}
