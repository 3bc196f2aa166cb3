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

type TasksRepo struct {
	MongoCollection *mongo.Collection
}

func NewTasksRepo(db *mongo.Database, collection string) *TasksRepo {
	return &TasksRepo{MongoCollection: db.Collection(collection)}
}

func (r *TasksRepo) CreateTask(ctx context.Context, task *model.Task) error {
	timer := utils.TrackDBOperation("insert", "tasks")
	defer timer.ObserveDuration()

	if task.Owner == "" {
		utils.TrackError("database", "missing_owner")
		return errors.New("task owner is required")
	}

	if _, err := r.MongoCollection.InsertOne(ctx, task); err != nil {
		utils.TrackError("database", "task_creation_failed")
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *TasksRepo) FindTask(ctx context.Context, id string) (*model.Task, error) {
	timer := utils.TrackDBOperation("find", "tasks")
	defer timer.ObserveDuration()

	var task model.Task
	err := r.MongoCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		utils.TrackError("database", "task_lookup_failed")
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// UpdateTaskFields writes the editable fields in a single pipeline update so a
// delivery recorded in between keeps its counter and history entry.
func (r *TasksRepo) UpdateTaskFields(ctx context.Context, task *model.Task, scope model.ReminderScope) (*model.Task, error) {
	timer := utils.TrackDBOperation("update", "tasks")
	defer timer.ObserveDuration()

	set := bson.M{
		"title":              bson.M{"$literal": task.Title},
		"due_date":           task.DueDate,
		"due_time":           bson.M{"$literal": task.DueTime},
		"due_at":             task.DueAt,
		"completed":          task.Completed,
		"reminder_type":      bson.M{"$literal": task.ReminderType},
		"reminder_frequency": bson.M{"$literal": task.ReminderFrequency},
		"updated_at":         task.UpdatedAt,
	}
	pipeline := mongo.Pipeline{}
	switch {
	case scope == model.ReminderSchedule && task.ReminderState != nil:
		set["reminder_state"] = scheduleStateExpr(task.ReminderState)
	case scope == model.ReminderReplace && task.ReminderState != nil:
		set["reminder_state"] = bson.M{"$literal": task.ReminderState}
	case scope == model.ReminderReplace:
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: "reminder_state"}})
	}
	pipeline = append(mongo.Pipeline{bson.D{{Key: "$set", Value: set}}}, pipeline...)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var stored model.Task
	err := r.MongoCollection.FindOneAndUpdate(ctx, bson.M{"_id": task.ID}, pipeline, opts).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		utils.TrackError("database", "task_update_failed")
		return nil, fmt.Errorf("update task: %w", err)
	}
	return &stored, nil
}

// scheduleStateExpr merges a new total and armed instant into the stored state.
// The total never drops below the stored sent count and an exhausted state stays disarmed.
func scheduleStateExpr(state *model.ReminderState) bson.M {
	sent := "$reminder_state.sent_reminders"
	total := bson.M{"$max": bson.A{state.TotalReminders, sent}}
	next := bson.M{"$cond": bson.A{
		bson.M{"$lt": bson.A{sent, state.TotalReminders}},
		bson.M{"$literal": state.NextReminderDueAt},
		nil,
	}}
	return bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$type": "$reminder_state"}, "object"}},
		bson.M{"$mergeObjects": bson.A{
			"$reminder_state",
			bson.M{"total_reminders": total, "next_reminder_due_at": next},
		}},
		"$reminder_state",
	}}
}

func (r *TasksRepo) DeleteTask(ctx context.Context, id string) error {
	timer := utils.TrackDBOperation("delete", "tasks")
	defer timer.ObserveDuration()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.TrackError("database", "task_deletion_failed")
		return fmt.Errorf("delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TasksRepo) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, error) {
	timer := utils.TrackDBOperation("find", "tasks")
	defer timer.ObserveDuration()

	cursor, err := r.MongoCollection.Find(ctx, taskQuery(filter), taskFindOptions(filter))
	if err != nil {
		utils.TrackError("database", "task_fetch_failed")
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []*model.Task{}
	if err = cursor.All(ctx, &tasks); err != nil {
		utils.TrackError("database", "task_decode_failed")
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (r *TasksRepo) CountTasks(ctx context.Context, filter model.TaskFilter) (int64, error) {
	timer := utils.TrackDBOperation("count", "tasks")
	defer timer.ObserveDuration()

	count, err := r.MongoCollection.CountDocuments(ctx, taskQuery(filter))
	if err != nil {
		utils.TrackError("database", "task_count_failed")
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// UpdateTasks applies one of the set-based mutations to every existing id.
// Completing also disarms any pending reminder on the matched tasks.
func (r *TasksRepo) UpdateTasks(ctx context.Context, ids []string, mutation model.TaskMutation, now time.Time) (model.BulkResult, error) {
	timer := utils.TrackDBOperation("update_many", "tasks")
	defer timer.ObserveDuration()

	res := model.BulkResult{Action: mutation.Action()}
	set := bson.M{"updated_at": now}
	switch m := mutation.(type) {
	case model.SetCompleted:
		set["completed"] = m.Completed
	case model.SetReminderType:
		set["reminder_type"] = m.Type
	case model.ReassignOwner:
		set["owner"] = m.Owner
	default:
		return res, ErrUnsupportedUpdate
	}

	filter := bson.M{"_id": bson.M{"$in": ids}}
	result, err := r.MongoCollection.UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		utils.TrackError("database", "task_bulk_update_failed")
		return res, fmt.Errorf("bulk update tasks: %w", err)
	}
	res.MatchedCount, res.ModifiedCount = result.MatchedCount, result.ModifiedCount

	if m, ok := mutation.(model.SetCompleted); ok && m.Completed {
		_, err = r.MongoCollection.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": ids}, "reminder_state": bson.M{"$ne": nil}},
			bson.M{"$set": bson.M{"reminder_state.next_reminder_due_at": nil}})
		if err != nil {
			utils.TrackError("database", "task_bulk_update_failed")
			return res, fmt.Errorf("clear reminders: %w", err)
		}
	}
	return res, nil
}

func (r *TasksRepo) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	timer := utils.TrackDBOperation("delete_many", "tasks")
	defer timer.ObserveDuration()

	result, err := r.MongoCollection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		utils.TrackError("database", "task_bulk_deletion_failed")
		return 0, fmt.Errorf("bulk delete tasks: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *TasksRepo) DeleteTasksByOwner(ctx context.Context, owner string) (int64, error) {
	timer := utils.TrackDBOperation("delete_many", "tasks")
	defer timer.ObserveDuration()

	result, err := r.MongoCollection.DeleteMany(ctx, bson.M{"owner": owner})
	if err != nil {
		utils.TrackError("database", "task_bulk_deletion_failed")
		return 0, fmt.Errorf("delete owner tasks: %w", err)
	}
	return result.DeletedCount, nil
}

// TaskStatsByOwner groups tasks by owner. An empty owner aggregates every owner.
func (r *TasksRepo) TaskStatsByOwner(ctx context.Context, owner string, now time.Time) ([]model.OwnerTaskCounts, error) {
	timer := utils.TrackDBOperation("aggregate", "tasks")
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{}
	if owner != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"owner": owner}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":         "$owner",
			"total_tasks": bson.M{"$sum": 1},
			"completed_tasks": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$completed", 1, 0},
			}},
			"pending_tasks": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$completed", 0, 1},
			}},
			"overdue_tasks": bson.M{"$sum": bson.M{
				"$cond": bson.A{
					bson.M{"$and": bson.A{
						bson.M{"$eq": bson.A{"$completed", false}},
						bson.M{"$lt": bson.A{"$due_at", now}},
					}},
					1, 0,
				},
			}},
			"first_task_created": bson.M{"$min": "$created_at"},
			"last_task_created":  bson.M{"$max": "$created_at"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "last_task_created", Value: -1}}}},
	)

	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		utils.TrackError("database", "task_aggregation_failed")
		return nil, fmt.Errorf("aggregate owner stats: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []model.OwnerTaskCounts{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode owner stats: %w", err)
	}
	return rows, nil
}

func (r *TasksRepo) ReminderTypeDistribution(ctx context.Context, owner string) ([]model.ReminderTypeCount, error) {
	timer := utils.TrackDBOperation("aggregate", "tasks")
	defer timer.ObserveDuration()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"owner": owner}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$reminder_type", "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := r.MongoCollection.Aggregate(ctx, pipeline)
	if err != nil {
		utils.TrackError("database", "task_aggregation_failed")
		return nil, fmt.Errorf("aggregate reminder types: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []model.ReminderTypeCount{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode reminder types: %w", err)
	}
	return rows, nil
}

func (r *TasksRepo) RecordReminderDelivery(ctx context.Context, taskID string, entry model.ReminderHistoryEntry) error {
	timer := utils.TrackDBOperation("update", "tasks")
	defer timer.ObserveDuration()

	filter := bson.M{"_id": taskID, "reminder_state": bson.M{"$ne": nil}}
	set := bson.M{"reminder_state.next_reminder_due_at": nil}
	update := bson.M{
		"$push": bson.M{"reminder_state.history": entry},
		"$set":  set,
	}
	if entry.Status == model.DeliverySent {
		filter["$expr"] = bson.M{"$lt": bson.A{"$reminder_state.sent_reminders", "$reminder_state.total_reminders"}}
		set["reminder_state.last_reminder_sent_at"] = entry.SentAt
		update["$inc"] = bson.M{"reminder_state.sent_reminders": 1}
	}

	result, err := r.MongoCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		utils.TrackError("database", "reminder_record_failed")
		return fmt.Errorf("record reminder delivery: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := r.FindTask(ctx, taskID); err != nil {
			return err
		}
		if entry.Status == model.DeliverySent {
			return ErrReminderExhausted
		}
		return ErrNotFound
	}
	return nil
}

func (r *TasksRepo) ClearNextReminder(ctx context.Context, taskID string) error {
	timer := utils.TrackDBOperation("update", "tasks")
	defer timer.ObserveDuration()

	_, err := r.MongoCollection.UpdateOne(ctx,
		bson.M{"_id": taskID, "reminder_state": bson.M{"$ne": nil}},
		bson.M{"$set": bson.M{"reminder_state.next_reminder_due_at": nil}},
		options.Update().SetUpsert(false))
	if err != nil {
		utils.TrackError("database", "reminder_clear_failed")
		return fmt.Errorf("clear next reminder: %w", err)
	}
	return nil
}
