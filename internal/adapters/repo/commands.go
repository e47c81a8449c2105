package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"tg-anime-bot/internal/domain"
)

// CommandLogRepository appends command invocations and builds the analytics
// summary for the dashboard. It reads the users collection too because half of
// the summary is user counts.
type CommandLogRepository struct {
	logs  *mongo.Collection
	users *mongo.Collection
}

// NewCommandLogRepository creates the repository.
func NewCommandLogRepository(db *mongo.Database) *CommandLogRepository {
	return &CommandLogRepository{
		logs:  db.Collection(commandsCollection),
		users: db.Collection(usersCollection),
	}
}

// Append records one invocation.
func (r *CommandLogRepository) Append(ctx context.Context, entry domain.CommandLog) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := r.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("append command log: %w", err)
	}
	return nil
}

// Aggregate builds the dashboard summary over the trailing period. Change
// percentages compare against the preceding period of equal length.
func (r *CommandLogRepository) Aggregate(ctx context.Context, periodDays int) (domain.AnalyticsSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if periodDays <= 0 {
		periodDays = 7
	}
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -periodDays)
	prevSince := now.AddDate(0, 0, -2*periodDays)

	var s domain.AnalyticsSummary
	var err error

	if s.TotalUsers, err = r.users.CountDocuments(ctx, bson.M{}); err != nil {
		return s, fmt.Errorf("count users: %w", err)
	}

	if s.NewUsers, err = r.users.CountDocuments(ctx, bson.M{"joined": bson.M{"$gte": since}}); err != nil {
		return s, fmt.Errorf("count new users: %w", err)
	}
	prevNew, err := r.users.CountDocuments(ctx, bson.M{"joined": bson.M{"$gte": prevSince, "$lt": since}})
	if err != nil {
		return s, fmt.Errorf("count previous new users: %w", err)
	}
	s.NewUsersChange = pctChange(s.NewUsers, prevNew)

	active, err := r.distinctUserCount(ctx, since, now)
	if err != nil {
		return s, err
	}
	prevActive, err := r.distinctUserCount(ctx, prevSince, since)
	if err != nil {
		return s, err
	}
	s.ActiveUsers = active
	s.ActiveUsersChange = pctChange(active, prevActive)

	if s.Commands, err = r.logs.CountDocuments(ctx, bson.M{"timestamp": bson.M{"$gte": since}}); err != nil {
		return s, fmt.Errorf("count commands: %w", err)
	}
	prevCommands, err := r.logs.CountDocuments(ctx, bson.M{"timestamp": bson.M{"$gte": prevSince, "$lt": since}})
	if err != nil {
		return s, fmt.Errorf("count previous commands: %w", err)
	}
	s.CommandsChange = pctChange(s.Commands, prevCommands)

	if s.UserGrowth, err = r.userGrowth(ctx, since); err != nil {
		return s, err
	}
	if s.TopCommands, err = r.topCommands(ctx, since); err != nil {
		return s, err
	}
	return s, nil
}

func (r *CommandLogRepository) distinctUserCount(ctx context.Context, from, to time.Time) (int64, error) {
	ids, err := r.logs.Distinct(ctx, "userId", bson.M{"timestamp": bson.M{"$gte": from, "$lt": to}})
	if err != nil {
		return 0, fmt.Errorf("distinct active users: %w", err)
	}
	return int64(len(ids)), nil
}

func (r *CommandLogRepository) userGrowth(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"joined": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$joined"}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
		{{Key: "$project", Value: bson.M{"_id": 0, "date": "$_id", "count": 1}}},
	}
	cur, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate user growth: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.DailyCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode user growth: %w", err)
	}
	return out, nil
}

func (r *CommandLogRepository) topCommands(ctx context.Context, since time.Time) ([]domain.CommandCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$commandName",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: 10}},
		{{Key: "$project", Value: bson.M{"_id": 0, "command": "$_id", "count": 1}}},
	}
	cur, err := r.logs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate top commands: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.CommandCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode top commands: %w", err)
	}
	return out, nil
}

func pctChange(cur, prev int64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 100
		}
		return 0
	}
	return float64(cur-prev) / float64(prev) * 100
}
