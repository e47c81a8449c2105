// Package repo contains the persistence implementations: MongoDB for users,
// command logs, cron jobs and gallery caches, SQLite for uploaded anime and a
// flat JSON file for posts and templates.
package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	usersCollection    = "users"
	commandsCollection = "command_logs"
	cronCollection     = "cron_jobs"
	doujinsCollection  = "doujins"
)

const queryTimeout = 5 * time.Second

// connCtx bounds one database call.
func connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// Repositories bundles every Mongo-backed repository over one database handle.
type Repositories struct {
	Users    *UserRepository
	Commands *CommandLogRepository
	Cron     *CronJobRepository
	Doujins  *DoujinRepository
}

// NewRepositories wires the repositories.
func NewRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(db),
		Commands: NewCommandLogRepository(db),
		Cron:     NewCronJobRepository(db),
		Doujins:  NewDoujinRepository(db),
	}
}
