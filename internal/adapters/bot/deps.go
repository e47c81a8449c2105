package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tg-anime-bot/internal/adapters/anilist"
	"tg-anime-bot/internal/adapters/fillers"
	"tg-anime-bot/internal/adapters/livechart"
	"tg-anime-bot/internal/adapters/nhentai"
	"tg-anime-bot/internal/adapters/ytdlp"
	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/config"
)

// GalleryService is the doujin source. The concrete client scrapes, tests
// substitute a fake to assert cache behaviour.
type GalleryService interface {
	Gallery(ctx context.Context, doujinID string) (nhentai.Gallery, error)
	Search(ctx context.Context, query string) ([]nhentai.SearchResult, error)
}

// Mirrorer mirrors an ordered image list to Telegraph pages.
type Mirrorer interface {
	MirrorImages(ctx context.Context, baseTitle string, imageURLs []string) ([]string, error)
}

// EpisodeFeed lists recently aired episodes.
type EpisodeFeed interface {
	RecentEpisodes(ctx context.Context) ([]livechart.Episode, error)
}

// FillerSource fetches filler breakdowns.
type FillerSource interface {
	ListByName(ctx context.Context, name string) (*fillers.List, error)
}

// VideoDownloader probes and downloads videos via the external tool.
type VideoDownloader interface {
	Probe(ctx context.Context, url string) (*ytdlp.Video, error)
	Download(ctx context.Context, url, formatID string) (string, error)
}

// VideoSearcher finds videos for a free-text query.
type VideoSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]ytdlp.SearchResult, error)
}

// Broadcaster fans a post out, used by the broadcast command.
type Broadcaster interface {
	SendToAll(ctx context.Context, post domain.Post) (domain.BroadcastReport, error)
	SendTo(ctx context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport
}

// Deps is everything the command constructors need. API is present so
// session-based flows can send expiry notices outside a live update.
type Deps struct {
	API       API
	Cfg       config.AppConfig
	Anilist   *anilist.Client
	Galleries GalleryService
	Mirror    Mirrorer
	Feed      EpisodeFeed
	Fillers   FillerSource
	Video     VideoDownloader
	VideoFind VideoSearcher

	Users   domain.UserRepo
	Doujins domain.DoujinRepo
	Posts   domain.PostStore
	Anime   domain.AnimeRepo

	Broadcast Broadcaster
	StartedAt time.Time
	Log       zerolog.Logger
}

// RegisterAll builds every command and registers it.
func RegisterAll(reg *Registry, deps *Deps) {
	reg.Register(newStartCommand())
	reg.Register(newHelpCommand(reg))
	reg.Register(newPingCommand())
	reg.Register(newUptimeCommand(deps.StartedAt))
	reg.Register(newEchoCommand())
	reg.Register(newChannelsCommand(deps.Cfg))
	reg.Register(newRequestCommand(deps.Cfg))
	reg.Register(newTopCommand(deps.Anilist))
	reg.Register(newAnimeInfoCommand(deps.Anilist))
	reg.Register(newMangaInfoCommand(deps.Anilist))
	reg.Register(newRandomCommand(deps.Anilist))
	reg.Register(newBrowseCommand(deps.Anilist))
	reg.Register(newAnilistCommand(deps.Anilist, deps.Users))
	reg.Register(newAiringCommand(deps.Feed))
	reg.Register(newFillersCommand(deps.Fillers))
	reg.Register(newNHCommand(deps.Galleries, deps.Mirror, deps.Doujins))
	reg.Register(newYTBCommand(deps.API, deps.Video, deps.VideoFind))
	reg.Register(newGenlinkCommand(deps.API, deps.Cfg))
	reg.Register(newCreatePostCommand(deps.API, deps.Posts))
	reg.Register(newBrcastCommand(deps.API, deps.Posts, deps.Broadcast))
	reg.Register(newUploadAnimeCommand(deps.API, deps.Cfg, deps.Anime))
	reg.Register(newListAnimeCommand(deps.Anime))
}
