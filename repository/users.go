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

type UsersRepo struct {
	MongoCollection *mongo.Collection
}

func NewUsersRepo(db *mongo.Database, collection string) *UsersRepo {
	return &UsersRepo{MongoCollection: db.Collection(collection)}
}

func (r *UsersRepo) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"user_id": id})
}

func (r *UsersRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)})
}

func (r *UsersRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	var user model.User
	if err := r.MongoCollection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		utils.TrackError("database", "user_lookup_error")
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// UpsertUser inserts the user keyed by email, or refreshes name and Google id on an existing one.
func (r *UsersRepo) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	timer := utils.TrackDBOperation("upsert", "users")
	defer timer.ObserveDuration()

	email := utils.NormalizeEmail(user.Email)
	if email == "" {
		utils.TrackError("database", "invalid_user_data")
		return nil, errors.New("user email is required")
	}

	now := time.Now()
	id := user.UserID
	if id == "" {
		id = utils.NewID()
	}
	set := bson.M{"updated_at": now}
	if user.Name != "" {
		set["name"] = user.Name
	}
	if user.GoogleID != "" {
		set["google_id"] = user.GoogleID
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"user_id":    id,
			"email":      email,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.User
	if err := r.MongoCollection.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&stored); err != nil {
		utils.TrackError("database", "user_upsert_failed")
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &stored, nil
}

func (r *UsersRepo) ListUsers(ctx context.Context) ([]*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		utils.TrackError("database", "user_fetch_failed")
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *UsersRepo) CountUsers(ctx context.Context) (int64, error) {
	timer := utils.TrackDBOperation("count", "users")
	defer timer.ObserveDuration()

	return r.MongoCollection.CountDocuments(ctx, bson.M{})
}

func (r *UsersRepo) DeleteUser(ctx context.Context, id string) error {
	timer := utils.TrackDBOperation("delete", "users")
	defer timer.ObserveDuration()

	result, err := r.MongoCollection.DeleteOne(ctx, bson.M{"user_id": id})
	if err != nil {
		utils.TrackError("database", "user_deletion_failed")
		return fmt.Errorf("delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
