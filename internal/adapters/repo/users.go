package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg-anime-bot/internal/domain"
)

// UserRepository stores users in Mongo.
type UserRepository struct {
	col *mongo.Collection
}

// NewUserRepository creates the repository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection)}
}

// UpsertByID creates the user on first contact and refreshes the profile
// fields and last activity on every later one.
func (r *UserRepository) UpsertByID(ctx context.Context, profile domain.TelegramProfile) (domain.User, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"firstName":    profile.FirstName,
			"lastName":     profile.LastName,
			"username":     profile.Username,
			"isBot":        profile.IsBot,
			"lastActivity": now,
		},
		"$setOnInsert": bson.M{"joined": now},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user domain.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"userId": profile.UserID}, update, opts).Decode(&user)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user %d: %w", profile.UserID, err)
	}
	return user, nil
}

// GetByID fetches one user.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	var user domain.User
	err := r.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return user, nil
}

// SetAnilistUsername links the user to an AniList account.
func (r *UserRepository) SetAnilistUsername(ctx context.Context, userID int64, username string) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"anilistUsername": username}})
	if err != nil {
		return fmt.Errorf("set anilist username: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearAnilistUsername removes the AniList link.
func (r *UserRepository) ClearAnilistUsername(ctx context.Context, userID int64) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$unset": bson.M{"anilistUsername": "", "anilistId": ""}})
	if err != nil {
		return fmt.Errorf("clear anilist username: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListUserIDs returns every stored user id, used by broadcasts.
func (r *UserRepository) ListUserIDs(ctx context.Context, includeBots bool) ([]int64, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	filter := bson.M{}
	if !includeBots {
		filter["isBot"] = false
	}
	opts := options.Find().SetProjection(bson.M{"userId": 1})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var row struct {
			UserID int64 `bson:"userId"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode user id: %w", err)
		}
		ids = append(ids, row.UserID)
	}
	return ids, cur.Err()
}

// ListUsers pages through users for the admin panel, optionally filtered by a
// case-insensitive name or username search.
func (r *UserRepository) ListUsers(ctx context.Context, search string, limit, offset int) ([]domain.User, int64, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	filter := bson.M{}
	if search != "" {
		re := primitiveRegex(search)
		filter["$or"] = []bson.M{
			{"firstName": re},
			{"lastName": re},
			{"username": re},
		}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.M{"joined": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var users []domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

// DeleteUser removes one user row.
func (r *UserRepository) DeleteUser(ctx context.Context, userID int64) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func primitiveRegex(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}
