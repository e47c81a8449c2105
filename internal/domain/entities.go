package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a Telegram user known to the bot. Created on first message, never deleted
// by the bot itself (the admin panel can remove rows).
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID          int64              `bson:"userId" json:"userId"`
	FirstName       string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName        string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Username        string             `bson:"username,omitempty" json:"username,omitempty"`
	IsBot           bool               `bson:"isBot" json:"isBot"`
	AnilistUsername string             `bson:"anilistUsername,omitempty" json:"anilistUsername,omitempty"`
	AnilistID       int                `bson:"anilistId,omitempty" json:"anilistId,omitempty"`
	LastActivity    time.Time          `bson:"lastActivity" json:"lastActivity"`
	Joined          time.Time          `bson:"joined" json:"joined"`
}

// CommandLog is one command invocation, append-only, used for analytics.
type CommandLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	CommandName string             `bson:"commandName" json:"commandName"`
	UserID      int64              `bson:"userId" json:"userId"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}

// CronJobType selects the executor for a cron job.
type CronJobType string

const (
	CronJobCommand CronJobType = "command"
	CronJobScript  CronJobType = "script"
)

// CronJobStatus reflects the last run outcome.
type CronJobStatus string

const (
	CronStatusIdle    CronJobStatus = "idle"
	CronStatusRunning CronJobStatus = "running"
	CronStatusSuccess CronJobStatus = "success"
	CronStatusError   CronJobStatus = "error"
)

// CronAction is the opaque payload of a job: a bot command line or a script body.
type CronAction struct {
	Command string `bson:"command,omitempty" json:"command,omitempty"`
	Code    string `bson:"code,omitempty" json:"code,omitempty"`
}

// CronBroadcast controls optional fan-out of the executor's result.
type CronBroadcast struct {
	Enabled   bool    `bson:"enabled" json:"enabled"`
	Target    string  `bson:"target,omitempty" json:"target,omitempty"` // owner|all|custom
	CustomIDs []int64 `bson:"customIds,omitempty" json:"customIds,omitempty"`
}

// CronJob is a scheduled task managed via the admin panel.
type CronJob struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Schedule  string             `bson:"schedule" json:"schedule"`
	Type      CronJobType        `bson:"type" json:"type"`
	Action    CronAction         `bson:"action" json:"action"`
	Broadcast CronBroadcast      `bson:"broadcast" json:"broadcast"`
	Enabled   bool               `bson:"enabled" json:"enabled"`
	LastRun   *time.Time         `bson:"lastRun,omitempty" json:"lastRun,omitempty"`
	Status    CronJobStatus      `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// PostType is the media kind of a stored post.
type PostType string

const (
	PostText      PostType = "text"
	PostPhoto     PostType = "photo"
	PostVideo     PostType = "video"
	PostDocument  PostType = "document"
	PostSticker   PostType = "sticker"
	PostAnimation PostType = "animation"
)

// PostButton is one inline URL button of a stored post.
type PostButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Post is a broadcast-ready message kept in the flat JSON store.
type Post struct {
	ID         int            `json:"id"`
	Type       PostType       `json:"type"`
	Text       string         `json:"text,omitempty"`
	FileID     string         `json:"fileId,omitempty"`
	Buttons    [][]PostButton `json:"buttons"`
	ParseMode  string         `json:"parseMode,omitempty"`
	WebPreview bool           `json:"webPreview"`
	UpdatedAt  time.Time      `json:"updatedAt"`

	// Silent and Pin are per-run delivery options, not part of the stored post.
	Silent bool `json:"-"`
	Pin    bool `json:"-"`
}

// Template is a named reusable post kept alongside posts in the JSON store.
type Template struct {
	Name       string         `json:"name"`
	Type       PostType       `json:"type"`
	Text       string         `json:"text,omitempty"`
	FileID     string         `json:"fileId,omitempty"`
	Buttons    [][]PostButton `json:"buttons"`
	ParseMode  string         `json:"parseMode,omitempty"`
	WebPreview bool           `json:"webPreview"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// DoujinTitle mirrors the three title variants the gallery endpoint returns.
type DoujinTitle struct {
	English  string `bson:"english,omitempty" json:"english,omitempty"`
	Japanese string `bson:"japanese,omitempty" json:"japanese,omitempty"`
	Pretty   string `bson:"pretty,omitempty" json:"pretty,omitempty"`
}

// Doujin is a cached gallery record: fetched once, mirrored to Telegraph once,
// then served from the cache on repeat requests.
type Doujin struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	DoujinID      string             `bson:"doujinId" json:"doujinId"`
	MediaID       string             `bson:"mediaId" json:"mediaId"`
	Title         DoujinTitle        `bson:"title" json:"title"`
	Tags          []string           `bson:"tags" json:"tags"`
	Pages         int                `bson:"pages" json:"pages"`
	Thumbnail     string             `bson:"thumbnail" json:"thumbnail"`
	TelegraphURLs []string           `bson:"previews" json:"previews"`
	Parodies      string             `bson:"parodies,omitempty" json:"parodies,omitempty"`
	Characters    string             `bson:"characters,omitempty" json:"characters,omitempty"`
	Artists       string             `bson:"artists,omitempty" json:"artists,omitempty"`
	Groups        string             `bson:"groups,omitempty" json:"groups,omitempty"`
	Languages     string             `bson:"languages,omitempty" json:"languages,omitempty"`
	Categories    string             `bson:"categories,omitempty" json:"categories,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// Episode is one uploaded anime episode stored in the storage group.
type Episode struct {
	Number    int    `json:"number"`
	MessageID int    `json:"messageId"`
	FileID    string `json:"fileId"`
}

// Anime is the metadata row for an uploaded series or movie.
type Anime struct {
	AnimeID  string
	Name     string
	IsMovie  bool
	Episodes []Episode
	AddedAt  time.Time
}

// BroadcastReport summarises one fan-out run.
type BroadcastReport struct {
	RunID   string
	Total   int
	Success int
	Failed  int
}

// AnalyticsSummary is the aggregated dashboard payload.
type AnalyticsSummary struct {
	TotalUsers        int64          `json:"totalUsers"`
	NewUsers          int64          `json:"newUsers"`
	NewUsersChange    float64        `json:"newUsersChange"`
	ActiveUsers       int64          `json:"activeUsers"`
	ActiveUsersChange float64        `json:"activeUsersChange"`
	Commands          int64          `json:"commands"`
	CommandsChange    float64        `json:"commandsChange"`
	UserGrowth        []DailyCount   `json:"userGrowth"`
	TopCommands       []CommandCount `json:"topCommands"`
}

// DailyCount is one point of the signup growth series.
type DailyCount struct {
	Date  string `bson:"date" json:"date"`
	Count int64  `bson:"count" json:"count"`
}

// CommandCount is one row of the top-commands table.
type CommandCount struct {
	Command string `bson:"command" json:"command"`
	Count   int64  `bson:"count" json:"count"`
}
