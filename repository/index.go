package repository

import (
	"context"
	"fmt"
	"time"

	"remindly/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collections names the three collections SetupIndexes manages.
type Collections struct {
	Tasks        string
	Users        string
	ReminderJobs string
}

func SetupIndexes(ctx context.Context, db *mongo.Database, names Collections) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	taskIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner", Value: 1},
				{Key: "due_at", Value: 1},
			},
			Options: options.Index().
				SetName("owner_due_at"),
		},
		{
			Keys: bson.D{
				{Key: "owner", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().
				SetName("owner_created_at"),
		},
		// Pending reminder scans
		{
			Keys: bson.D{
				{Key: "completed", Value: 1},
				{Key: "reminder_state.next_reminder_due_at", Value: 1},
			},
			Options: options.Index().
				SetName("completed_next_reminder"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().
				SetName("created_at"),
		},
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().
				SetName("google_id_unique").
				SetUnique(true).
				SetSparse(true),
		},
	}

	jobIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "task_id", Value: 1}},
			Options: options.Index().
				SetName("task_id_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "due_at", Value: 1},
			},
			Options: options.Index().
				SetName("status_due_at"),
		},
	}

	if _, err := db.Collection(names.Tasks).Indexes().CreateMany(ctx, taskIndexes); err != nil {
		return fmt.Errorf("failed to create tasks indexes: %w", err)
	}
	if _, err := db.Collection(names.Users).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}
	if _, err := db.Collection(names.ReminderJobs).Indexes().CreateMany(ctx, jobIndexes); err != nil {
		return fmt.Errorf("failed to create reminder job indexes: %w", err)
	}

	utils.Info("created all indexes", zap.String("database", db.Name()))
	return nil
}
