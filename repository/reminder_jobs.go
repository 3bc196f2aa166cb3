package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindly/model"
	"remindly/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReminderJobsRepo stores one job document per task, keyed by task_id.
type ReminderJobsRepo struct {
	MongoCollection *mongo.Collection
}

func NewReminderJobsRepo(db *mongo.Database, collection string) *ReminderJobsRepo {
	return &ReminderJobsRepo{MongoCollection: db.Collection(collection)}
}

// SaveJob replaces whatever job the task had before.
func (r *ReminderJobsRepo) SaveJob(ctx context.Context, job *model.ReminderJob) error {
	timer := utils.TrackDBOperation("upsert", "reminder_jobs")
	defer timer.ObserveDuration()

	_, err := r.MongoCollection.ReplaceOne(ctx, bson.M{"task_id": job.TaskID}, job, options.Replace().SetUpsert(true))
	if err != nil {
		utils.TrackError("database", "job_save_failed")
		return fmt.Errorf("save reminder job: %w", err)
	}
	return nil
}

func (r *ReminderJobsRepo) FindJob(ctx context.Context, taskID string) (*model.ReminderJob, error) {
	timer := utils.TrackDBOperation("find", "reminder_jobs")
	defer timer.ObserveDuration()

	var job model.ReminderJob
	if err := r.MongoCollection.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find reminder job: %w", err)
	}
	return &job, nil
}

// ClaimJob atomically moves a pending job for the given due instant to firing and returns it.
// It returns nil when another fire path claimed it first or the job was replaced.
func (r *ReminderJobsRepo) ClaimJob(ctx context.Context, taskID string, dueAt time.Time) (*model.ReminderJob, error) {
	timer := utils.TrackDBOperation("claim", "reminder_jobs")
	defer timer.ObserveDuration()

	filter := bson.M{"task_id": taskID, "due_at": dueAt, "status": model.JobPending}
	update := bson.M{"$set": bson.M{"status": model.JobFiring}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var job model.ReminderJob
	err := r.MongoCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		utils.TrackError("database", "job_claim_failed")
		return nil, fmt.Errorf("claim reminder job: %w", err)
	}
	return &job, nil
}

// FinishJob moves a job out of status from. It is a no-op when the job is no longer in that status.
func (r *ReminderJobsRepo) FinishJob(ctx context.Context, taskID string, from, to model.JobStatus, at time.Time, reason string) error {
	timer := utils.TrackDBOperation("update", "reminder_jobs")
	defer timer.ObserveDuration()

	set := bson.M{"status": to, "finished_at": at}
	if reason != "" {
		set["error"] = reason
	}
	_, err := r.MongoCollection.UpdateOne(ctx, bson.M{"task_id": taskID, "status": from}, bson.M{"$set": set})
	if err != nil {
		utils.TrackError("database", "job_update_failed")
		return fmt.Errorf("finish reminder job: %w", err)
	}
	return nil
}

func (r *ReminderJobsRepo) ListJobs(ctx context.Context, status model.JobStatus) ([]*model.ReminderJob, error) {
	timer := utils.TrackDBOperation("find", "reminder_jobs")
	defer timer.ObserveDuration()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := r.MongoCollection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "due_at", Value: 1}}))
	if err != nil {
		utils.TrackError("database", "job_fetch_failed")
		return nil, fmt.Errorf("list reminder jobs: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := []*model.ReminderJob{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode reminder jobs: %w", err)
	}
	return jobs, nil
}
