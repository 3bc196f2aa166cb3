package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"remindly/model"
	repo "remindly/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTask(id, owner string, due time.Time, rt model.ReminderType) *model.Task {
	return &model.Task{
		ID:           id,
		Title:        "task " + id,
		DueAt:        due,
		Owner:        owner,
		ReminderType: rt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestTaskStorageCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStorage()

	task := newTask("t-1", "u-1", now.Add(time.Hour), model.ReminderCustom)
	require.NoError(t, s.CreateTask(ctx, task))
	assert.Error(t, s.CreateTask(ctx, task), "duplicate id")
	assert.Error(t, s.CreateTask(ctx, newTask("t-2", "", now, model.ReminderCustom)))

	got, err := s.FindTask(ctx, "t-1")
	require.NoError(t, err)
	got.Title = "changed"

	again, err := s.FindTask(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "task t-1", again.Title, "stored copy is isolated from callers")

	updated, err := s.UpdateTaskFields(ctx, got, model.ReminderKeep)
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Title)
	again, _ = s.FindTask(ctx, "t-1")
	assert.Equal(t, "changed", again.Title)

	_, err = s.UpdateTaskFields(ctx, newTask("missing", "u-1", now, model.ReminderCustom), model.ReminderKeep)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	require.NoError(t, s.DeleteTask(ctx, "t-1"))
	assert.ErrorIs(t, s.DeleteTask(ctx, "t-1"), repo.ErrNotFound)
	_, err = s.FindTask(ctx, "t-1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestTaskStorageUpdateFieldsKeepsDeliveries(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStorage()

	task := newTask("t-1", "u-1", now.AddDate(0, 0, 10), model.ReminderWeekly)
	task.ReminderState = model.NewReminderState(2)
	task.ReminderState.SetNext(now.AddDate(0, 0, 3))
	require.NoError(t, s.CreateTask(ctx, task))

	stale, err := s.FindTask(ctx, "t-1")
	require.NoError(t, err)
	require.NoError(t, s.RecordReminderDelivery(ctx, "t-1",
		model.ReminderHistoryEntry{SentAt: now, ReminderNumber: 1, Status: model.DeliverySent}))

	t.Run("keep leaves the state alone", func(t *testing.T) {
		stale.Title = "renamed"
		got, err := s.UpdateTaskFields(ctx, stale, model.ReminderKeep)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, 1, got.ReminderState.SentReminders)
		assert.Len(t, got.ReminderState.History, 1)
		assert.Nil(t, got.ReminderState.NextReminderDueAt)
	})

	t.Run("schedule writes total and next only", func(t *testing.T) {
		next := now.AddDate(0, 0, 5)
		stale.ReminderState.SetNext(next)
		got, err := s.UpdateTaskFields(ctx, stale, model.ReminderSchedule)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReminderState.SentReminders)
		assert.Len(t, got.ReminderState.History, 1)
		require.NotNil(t, got.ReminderState.NextReminderDueAt)
		assert.True(t, next.Equal(*got.ReminderState.NextReminderDueAt))
	})

	t.Run("schedule never shrinks below sent", func(t *testing.T) {
		stale.ReminderState.TotalReminders = 1
		got, err := s.UpdateTaskFields(ctx, stale, model.ReminderSchedule)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReminderState.TotalReminders)
		assert.Nil(t, got.ReminderState.NextReminderDueAt, "exhausted state stays disarmed")
	})

	t.Run("replace drops the state", func(t *testing.T) {
		stale.ReminderState = nil
		got, err := s.UpdateTaskFields(ctx, stale, model.ReminderReplace)
		require.NoError(t, err)
		assert.Nil(t, got.ReminderState)
	})
}

func TestTaskStorageFilters(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStorage()

	done := newTask("t-1", "u-1", now.Add(-time.Hour), model.ReminderWeekly)
	done.Completed = true
	require.NoError(t, s.CreateTask(ctx, done))
	require.NoError(t, s.CreateTask(ctx, newTask("t-2", "u-1", now.Add(2*time.Hour), model.ReminderCustom)))
	require.NoError(t, s.CreateTask(ctx, newTask("t-3", "u-2", now.Add(time.Hour), model.ReminderCustom)))

	yes, no := true, false
	from, before := now, now.Add(90*time.Minute)

	tests := []struct {
		name   string
		filter model.TaskFilter
		want   []string
	}{
		{"owner", model.TaskFilter{Owner: "u-1", SortBy: "due_at", SortAsc: true}, []string{"t-1", "t-2"}},
		{"completed", model.TaskFilter{Completed: &yes}, []string{"t-1"}},
		{"pending by due", model.TaskFilter{Completed: &no, SortBy: "due_at", SortAsc: true}, []string{"t-3", "t-2"}},
		{"due window", model.TaskFilter{DueFrom: &from, DueBefore: &before}, []string{"t-3"}},
		{"reminder type", model.TaskFilter{ReminderType: model.ReminderWeekly}, []string{"t-1"}},
		{"search", model.TaskFilter{Search: "T-2"}, []string{"t-2"}},
		{"ids", model.TaskFilter{IDs: []string{"t-3", "missing"}}, []string{"t-3"}},
		{"page", model.TaskFilter{SortBy: "due_at", SortAsc: true, Skip: 1, Limit: 1}, []string{"t-3"}},
		{"skip past end", model.TaskFilter{Skip: 10}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.ListTasks(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, task := range tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestTaskStorageBulk(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStorage()

	armed := newTask("t-1", "u-1", now.AddDate(0, 0, 10), model.ReminderWeekly)
	armed.ReminderState = model.NewReminderState(1)
	armed.ReminderState.SetNext(now.AddDate(0, 0, 3))
	require.NoError(t, s.CreateTask(ctx, armed))
	require.NoError(t, s.CreateTask(ctx, newTask("t-2", "u-1", now, model.ReminderCustom)))

	res, err := s.UpdateTasks(ctx, []string{"t-1", "t-1", "t-2", "missing"}, model.SetCompleted{Completed: true}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.MatchedCount)
	assert.Equal(t, int64(2), res.ModifiedCount)

	got, _ := s.FindTask(ctx, "t-1")
	assert.True(t, got.Completed)
	assert.Nil(t, got.NextReminderDueAt())

	res, err = s.UpdateTasks(ctx, []string{"t-1"}, model.SetCompleted{Completed: true}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(0), res.ModifiedCount)

	_, err = s.UpdateTasks(ctx, []string{"t-1"}, model.ApplyPatch{}, now)
	assert.ErrorIs(t, err, repo.ErrUnsupportedUpdate)

	res, err = s.UpdateTasks(ctx, []string{"t-2"}, model.ReassignOwner{Owner: "u-2"}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	n, err := s.DeleteTasksByOwner(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.DeleteTasks(ctx, []string{"t-1", "t-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaskStorageStats(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStorage()

	overdue := newTask("t-1", "u-1", now.Add(-time.Hour), model.ReminderWeekly)
	done := newTask("t-2", "u-1", now.Add(-time.Hour), model.ReminderWeekly)
	done.Completed = true
	later := newTask("t-3", "u-2", now.Add(time.Hour), model.ReminderCustom)
	later.CreatedAt = now.Add(time.Minute)
	for _, task := range []*model.Task{overdue, done, later} {
		require.NoError(t, s.CreateTask(ctx, task))
	}

	rows, err := s.TaskStatsByOwner(ctx, "", now)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u-2", rows[0].Owner, "most recently active owner first")
	assert.Equal(t, model.OwnerTaskCounts{
		Owner: "u-1", TotalTasks: 2, CompletedTasks: 1, PendingTasks: 1, OverdueTasks: 1,
		FirstTaskCreated: &now, LastTaskCreated: &now,
	}, rows[1])

	dist, err := s.ReminderTypeDistribution(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []model.ReminderTypeCount{{ReminderType: model.ReminderWeekly, Count: 2}}, dist)
}

func TestRecordReminderDelivery(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStorage()

	task := newTask("t-1", "u-1", now.AddDate(0, 0, 10), model.ReminderWeekly)
	task.ReminderState = model.NewReminderState(1)
	task.ReminderState.SetNext(now)
	require.NoError(t, s.CreateTask(ctx, task))
	require.NoError(t, s.CreateTask(ctx, newTask("t-2", "u-1", now, model.ReminderCustom)))

	failed := model.ReminderHistoryEntry{SentAt: now, ReminderNumber: 1, Status: model.DeliveryFailed}
	require.NoError(t, s.RecordReminderDelivery(ctx, "t-1", failed))

	sent := model.ReminderHistoryEntry{SentAt: now, ReminderNumber: 1, Status: model.DeliverySent}
	require.NoError(t, s.RecordReminderDelivery(ctx, "t-1", sent))
	assert.ErrorIs(t, s.RecordReminderDelivery(ctx, "t-1", sent), repo.ErrReminderExhausted)
	assert.ErrorIs(t, s.RecordReminderDelivery(ctx, "t-2", sent), repo.ErrNotFound)

	got, _ := s.FindTask(ctx, "t-1")
	assert.Equal(t, 1, got.ReminderState.SentReminders)
	assert.Len(t, got.ReminderState.History, 2)
	require.NotNil(t, got.ReminderState.LastReminderSentAt)
	assert.Nil(t, got.NextReminderDueAt())
}

func TestCountMatchesList(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		s := NewTaskStorage()
		owners := []string{"u-1", "u-2", "u-3"}

		n := rapid.IntRange(0, 20).Draw(t, "n")
		for i := 0; i < n; i++ {
			task := newTask(fmt.Sprintf("t-%d", i), rapid.SampledFrom(owners).Draw(t, "owner"),
				now.Add(time.Duration(rapid.IntRange(-48, 48).Draw(t, "hours"))*time.Hour), model.ReminderCustom)
			task.Completed = rapid.Bool().Draw(t, "completed")
			if err := s.CreateTask(ctx, task); err != nil {
				t.Fatal(err)
			}
		}

		completed := rapid.Bool().Draw(t, "filter_completed")
		filter := model.TaskFilter{Owner: rapid.SampledFrom(owners).Draw(t, "filter_owner"), Completed: &completed}
		tasks, _ := s.ListTasks(ctx, filter)
		count, _ := s.CountTasks(ctx, filter)
		if int64(len(tasks)) != count {
			t.Fatalf("list returned %d tasks, count %d", len(tasks), count)
		}
	})
}
