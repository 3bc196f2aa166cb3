package repository

import (
	"context"
	"testing"

	"remindly/model"
	"remindly/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepo(t *testing.T) {
	db := testutils.SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, SetupIndexes(ctx, db, Collections{Tasks: "tasks", Users: "users", ReminderJobs: "reminder_jobs"}))
	repo := NewUsersRepo(db, "users")

	created, err := repo.UpsertUser(ctx, &model.User{Email: " Ann@Example.com ", Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserID)
	assert.Equal(t, "ann@example.com", created.Email)

	t.Run("upsert keeps identity", func(t *testing.T) {
		again, err := repo.UpsertUser(ctx, &model.User{Email: "ann@example.com", GoogleID: "g-1"})
		require.NoError(t, err)
		assert.Equal(t, created.UserID, again.UserID)
		assert.Equal(t, "Ann", again.Name)
		assert.Equal(t, "g-1", again.GoogleID)
	})

	t.Run("find", func(t *testing.T) {
		byID, err := repo.FindUserByID(ctx, created.UserID)
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", byID.Email)

		byEmail, err := repo.FindUserByEmail(ctx, "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.UserID, byEmail.UserID)

		_, err = repo.FindUserByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty email", func(t *testing.T) {
		_, err := repo.UpsertUser(ctx, &model.User{Email: "  "})
		assert.Error(t, err)
	})

	t.Run("list count delete", func(t *testing.T) {
		_, err := repo.UpsertUser(ctx, &model.User{Email: "bob@example.com"})
		require.NoError(t, err)

		users, err := repo.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)

		n, err := repo.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		require.NoError(t, repo.DeleteUser(ctx, created.UserID))
		assert.ErrorIs(t, repo.DeleteUser(ctx, created.UserID), ErrNotFound)
	})
}
