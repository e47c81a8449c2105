package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig describes the bot configuration.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"4000"`

	Telegram struct {
		Token          string `envconfig:"BOT_TOKEN"`
		OwnerID        int64  `envconfig:"OWNER_ID"`
		GCID           int64  `envconfig:"GC_ID"`
		StorageGroupID int64  `envconfig:"STORAGE_GROUP_ID"`
		AnimeChannel   string `envconfig:"ANIME_CHANNEL_ID"`
		MangaChannel   string `envconfig:"MANGA_CHANNEL_ID"`
	} `envconfig:""`

	Admin struct {
		Username      string `envconfig:"ADMIN_USERNAME"`
		Password      string `envconfig:"ADMIN_PASSWORD"`
		SessionSecret string `envconfig:"SESSION_SECRET" default:"your-secret-key-change-this"`
		PageDir       string `envconfig:"PAGE_DIR" default:"page"`
	} `envconfig:""`

	MongoURI  string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017/animebot"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	Store struct {
		Dir        string `envconfig:"STORE_DIR" default:"store"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"store/anime.db"`
	} `envconfig:""`

	Telegraph struct {
		AccessToken string `envconfig:"TELEGRAPH_ACCESS_TOKEN"`
	} `envconfig:""`

	Imgur struct {
		ClientID string `envconfig:"IMGUR_CLIENT_ID"`
		ImgbbKey string `envconfig:"IMGBB_API_KEY"`
	} `envconfig:""`

	YTDLP struct {
		Bin         string `envconfig:"YTDLP_BIN" default:"yt-dlp"`
		CookieFile  string `envconfig:"YT_COOKIE_FILE" default:"yt.txt"`
		DownloadDir string `envconfig:"DOWNLOAD_DIR" default:"downloads"`
	} `envconfig:""`

	Broadcast struct {
		DelayMS int `envconfig:"BROADCAST_DELAY_MS" default:"35"`
	} `envconfig:""`
}

// Load reads the config from the environment.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
