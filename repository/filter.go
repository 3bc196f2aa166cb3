package repository

import (
	"regexp"

	"remindly/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// taskQuery translates a TaskFilter into a Mongo filter document.
func taskQuery(f model.TaskFilter) bson.M {
	q := bson.M{}
	if len(f.IDs) > 0 {
		q["_id"] = bson.M{"$in": f.IDs}
	}
	if f.Owner != "" {
		q["owner"] = f.Owner
	}
	if f.Completed != nil {
		q["completed"] = *f.Completed
	}
	switch {
	case f.ReminderType != "":
		q["reminder_type"] = f.ReminderType
	case f.HasReminder:
		q["reminder_type"] = bson.M{"$nin": bson.A{nil, ""}}
	}

	due := bson.M{}
	if f.DueFrom != nil {
		due["$gte"] = *f.DueFrom
	}
	if f.DueBefore != nil {
		due["$lt"] = *f.DueBefore
	}
	if len(due) > 0 {
		q["due_at"] = due
	}

	created := bson.M{}
	if f.CreatedFrom != nil {
		created["$gte"] = *f.CreatedFrom
	}
	if f.CreatedTo != nil {
		created["$lt"] = *f.CreatedTo
	}
	if len(created) > 0 {
		q["created_at"] = created
	}

	if f.NextReminderBefore != nil {
		q["reminder_state.next_reminder_due_at"] = bson.M{"$ne": nil, "$lte": *f.NextReminderBefore}
	}
	if f.Search != "" {
		q["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	return q
}

func taskFindOptions(f model.TaskFilter) *options.FindOptions {
	opts := options.Find()
	field, ok := model.TaskSortFields[f.SortBy]
	if !ok {
		field = "created_at"
	}
	dir := -1
	if f.SortAsc {
		dir = 1
	}
	opts.SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}})
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return opts
}
