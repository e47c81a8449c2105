package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// TelegramProfile carries the identity fields of an incoming message sender.
type TelegramProfile struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// UserRepo manages users.
type UserRepo interface {
	UpsertByID(ctx context.Context, profile TelegramProfile) (User, error)
	GetByID(ctx context.Context, userID int64) (User, error)
	SetAnilistUsername(ctx context.Context, userID int64, username string) error
	ClearAnilistUsername(ctx context.Context, userID int64) error
	ListUserIDs(ctx context.Context, includeBots bool) ([]int64, error)
	ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int64, error)
	DeleteUser(ctx context.Context, userID int64) error
}

// CommandLogRepo appends and aggregates command invocations.
type CommandLogRepo interface {
	Append(ctx context.Context, entry CommandLog) error
	Aggregate(ctx context.Context, periodDays int) (AnalyticsSummary, error)
}

// CronJobRepo manages scheduled jobs.
type CronJobRepo interface {
	ListJobs(ctx context.Context, enabledOnly bool) ([]CronJob, error)
	GetJob(ctx context.Context, id string) (CronJob, error)
	CreateJob(ctx context.Context, job CronJob) (CronJob, error)
	UpdateJob(ctx context.Context, job CronJob) error
	DeleteJob(ctx context.Context, id string) error
	SetJobStatus(ctx context.Context, id string, status CronJobStatus, lastRun *time.Time) error
}

// DoujinRepo caches mirrored galleries.
type DoujinRepo interface {
	GetByDoujinID(ctx context.Context, doujinID string) (Doujin, error)
	Save(ctx context.Context, doujin Doujin) error
}

// PostStore is the flat-file store for broadcast posts and templates.
type PostStore interface {
	SavePost(post Post) (int, error)
	GetPost(id int) (Post, error)
	ListPosts() ([]Post, error)
	DeletePost(id int) error
	SaveTemplate(tpl Template) error
	GetTemplate(name string) (Template, error)
	ListTemplates() ([]Template, error)
	DeleteTemplate(name string) error
}

// AnimeRepo stores uploaded episode metadata.
type AnimeRepo interface {
	GetByName(ctx context.Context, name string) (Anime, error)
	Upsert(ctx context.Context, anime Anime) error
	List(ctx context.Context) ([]Anime, error)
}

// Cooldown limits how often a user may run a command. Reserve reports whether the
// key is free and, when it is, occupies it for the given window.
type Cooldown interface {
	Reserve(key string, window time.Duration) (bool, error)
}
