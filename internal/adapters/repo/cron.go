package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg-anime-bot/internal/domain"
)

// CronJobRepository stores scheduled jobs in Mongo.
type CronJobRepository struct {
	col *mongo.Collection
}

// NewCronJobRepository creates the repository.
func NewCronJobRepository(db *mongo.Database) *CronJobRepository {
	return &CronJobRepository{col: db.Collection(cronCollection)}
}

// ListJobs returns jobs ordered by creation time.
func (r *CronJobRepository) ListJobs(ctx context.Context, enabledOnly bool) ([]domain.CronJob, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	filter := bson.M{}
	if enabledOnly {
		filter["enabled"] = true
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("list cron jobs: %w", err)
	}
	defer cur.Close(ctx)

	var jobs []domain.CronJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode cron jobs: %w", err)
	}
	return jobs, nil
}

// GetJob fetches one job by its hex id.
func (r *CronJobRepository) GetJob(ctx context.Context, id string) (domain.CronJob, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.CronJob{}, domain.ErrNotFound
	}

	ctx, cancel := connCtx(ctx)
	defer cancel()

	var job domain.CronJob
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.CronJob{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CronJob{}, fmt.Errorf("get cron job %s: %w", id, err)
	}
	return job, nil
}

// CreateJob inserts the job and returns it with the generated id.
func (r *CronJobRepository) CreateJob(ctx context.Context, job domain.CronJob) (domain.CronJob, error) {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = domain.CronStatusIdle
	}
	if _, err := r.col.InsertOne(ctx, job); err != nil {
		return domain.CronJob{}, fmt.Errorf("create cron job: %w", err)
	}
	return job, nil
}

// UpdateJob replaces the stored job.
func (r *CronJobRepository) UpdateJob(ctx context.Context, job domain.CronJob) error {
	ctx, cancel := connCtx(ctx)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": job.ID}, job)
	if err != nil {
		return fmt.Errorf("update cron job %s: %w", job.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteJob removes the job.
func (r *CronJobRepository) DeleteJob(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := connCtx(ctx)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete cron job %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetJobStatus updates the run outcome, optionally stamping the last run time.
func (r *CronJobRepository) SetJobStatus(ctx context.Context, id string, status domain.CronJobStatus, lastRun *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := connCtx(ctx)
	defer cancel()

	set := bson.M{"status": status}
	if lastRun != nil {
		set["lastRun"] = *lastRun
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("set cron job status %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
