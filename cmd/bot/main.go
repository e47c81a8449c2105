package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-anime-bot/internal/adapters/anilist"
	"tg-anime-bot/internal/adapters/bot"
	"tg-anime-bot/internal/adapters/fillers"
	"tg-anime-bot/internal/adapters/imgur"
	"tg-anime-bot/internal/adapters/livechart"
	"tg-anime-bot/internal/adapters/nhentai"
	"tg-anime-bot/internal/adapters/repo"
	"tg-anime-bot/internal/adapters/telegraph"
	"tg-anime-bot/internal/adapters/ytdlp"
	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/cache"
	"tg-anime-bot/internal/infra/config"
	"tg-anime-bot/internal/infra/db"
	httpapi "tg-anime-bot/internal/infra/http"
	"tg-anime-bot/internal/infra/log"
	"tg-anime-bot/internal/infra/metrics"
	"tg-anime-bot/internal/usecase/broadcast"
	"tg-anime-bot/internal/usecase/cron"
)

const clientTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)
	startedAt := time.Now()

	mongoClient, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	database := mongoClient.Database(databaseName(cfg.MongoURI))

	sqlDB, err := db.ConnectSQLite(cfg.Store.SQLitePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("sqlite open failed")
	}
	defer sqlDB.Close()

	repos := repo.NewRepositories(database)
	animeRepo := repo.NewAnimeRepository(sqlDB)
	postStore, err := repo.NewFileStore(cfg.Store.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("post store init failed")
	}

	var cooldown domain.Cooldown
	if cfg.RedisAddr != "" {
		cooldown = cache.NewRedisCooldown(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("cooldowns backed by redis")
	} else {
		cooldown = cache.NewMemoryCooldown()
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram auth failed")
	}
	logger.Info().Str("username", botAPI.Self.UserName).Msg("authorized on telegram")

	sender := bot.NewPostSender(botAPI)
	bcast := broadcast.NewService(repos.Users, sender,
		time.Duration(cfg.Broadcast.DelayMS)*time.Millisecond, logger)

	registry := bot.NewRegistry()
	deps := &bot.Deps{
		API:       botAPI,
		Cfg:       cfg,
		Anilist:   anilist.NewClient("", clientTimeout),
		Galleries: nhentai.NewClient("", clientTimeout),
		Mirror:    telegraph.NewClient(cfg.Telegraph.AccessToken, "", 30*time.Second),
		Feed:      livechart.NewClient("", clientTimeout),
		Fillers:   fillers.NewClient("", clientTimeout),
		Video:     ytdlp.NewDownloader(cfg.YTDLP.Bin, cfg.YTDLP.CookieFile, cfg.YTDLP.DownloadDir),
		VideoFind: ytdlp.NewSearcher("", clientTimeout),
		Users:     repos.Users,
		Doujins:   repos.Doujins,
		Posts:     postStore,
		Anime:     animeRepo,
		Broadcast: bcast,
		StartedAt: startedAt,
		Log:       logger,
	}
	bot.RegisterAll(registry, deps)

	scriptExec := cron.NewScriptExecutor()
	scriptExec.HTTP = &http.Client{Timeout: 30 * time.Second}
	scriptExec.Users = repos.Users
	scriptExec.Env = map[string]string{"APP_ENV": cfg.AppEnv}
	executors := map[domain.CronJobType]cron.Executor{
		domain.CronJobCommand: bot.NewCommandExecutor(registry, cfg.Telegram.OwnerID, logger),
		domain.CronJobScript:  scriptExec,
	}
	cronSvc := cron.NewService(repos.Cron, repos.Users, executors, bcast,
		cfg.Telegram.OwnerID, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cronSvc.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("cron startup failed, continuing without schedules")
	}

	admin := httpapi.NewServer(httpapi.Deps{
		Cfg:       cfg,
		Users:     repos.Users,
		Logs:      repos.Commands,
		Posts:     postStore,
		Jobs:      repos.Cron,
		Sched:     cronSvc,
		Broadcast: bcast,
		Images:    imgur.NewClient(cfg.Imgur.ClientID, cfg.Imgur.ImgbbKey, 30*time.Second),
		StartedAt: startedAt,
		Log:       logger,
	})
	go func() {
		if err := admin.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	dispatcher := bot.NewDispatcher(botAPI, registry, repos.Users, repos.Commands,
		cooldown, cfg.Telegram.OwnerID, logger)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := botAPI.GetUpdatesChan(updateCfg)
	logger.Info().Msg("polling for updates")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			botAPI.StopReceivingUpdates()
			cronSvc.Stop()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go dispatcher.HandleUpdate(ctx, update)
		}
	}
}

// databaseName pulls the database out of the connection string, falling back
// to the historical default.
func databaseName(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "animebot"
	}
	name := strings.Trim(parsed.Path, "/")
	if name == "" {
		return "animebot"
	}
	return name
}
