package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg-anime-bot/internal/domain"
)

// DoujinRepository caches mirrored galleries so repeat requests skip the
// source site and Telegraph entirely.
type DoujinRepository struct {
	col *mongo.Collection
}

// NewDoujinRepository creates the repository.
func NewDoujinRepository(db *mongo.Database) *DoujinRepository {
	return &DoujinRepository{col: db.Collection(doujinsCollection)}
}

// GetByDoujinID fetches a cached gallery.
func (r *DoujinRepository) GetByDoujinID(ctx context.Context, doujinID string) (domain.Doujin, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	var doujin domain.Doujin
	err := r.col.FindOne(ctx, bson.M{"doujinId": doujinID}).Decode(&doujin)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Doujin{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Doujin{}, fmt.Errorf("get doujin %s: %w", doujinID, err)
	}
	return doujin, nil
}

// Save stores the gallery, replacing any previous record for the same id.
func (r *DoujinRepository) Save(ctx context.Context, doujin domain.Doujin) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	if doujin.CreatedAt.IsZero() {
		doujin.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"doujinId": doujin.DoujinID},
		doujin,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save doujin %s: %w", doujin.DoujinID, err)
	}
	return nil
}
