package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"remindly/model"
	"remindly/repository/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []model.Email
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, email model.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	tasks  *inmemory.TaskStorage
	jobs   *inmemory.JobStorage
	mailer *fakeMailer
	d      *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks:  inmemory.NewTaskStorage(),
		jobs:   inmemory.NewJobStorage(),
		mailer: &fakeMailer{},
	}
	f.d = NewDispatcher(f.tasks, f.jobs, f.mailer, Config{Horizon: 30 * 24 * time.Hour, Grace: time.Hour})
	t.Cleanup(f.d.Stop)
	return f
}

// armedTask stores a task whose next reminder is due at next.
func (f *fixture) armedTask(t *testing.T, id string, next time.Time, total int) *model.Task {
	t.Helper()
	task := &model.Task{
		ID:            id,
		Title:         "Renew passport",
		Owner:         "user-1",
		DueDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueTime:       "09:00",
		DueAt:         next.Add(24 * time.Hour),
		ReminderType:  model.ReminderCustom,
		ReminderState: model.NewReminderState(total),
	}
	task.ReminderState.SetNext(next)
	require.NoError(t, f.tasks.CreateTask(context.Background(), task))
	return task
}

func (f *fixture) job(t *testing.T, taskID string) *model.ReminderJob {
	t.Helper()
	job, err := f.jobs.FindJob(context.Background(), taskID)
	require.NoError(t, err)
	return job
}

func TestDispatcher_FireSends(t *testing.T) {
	f := newFixture(t)
	task := f.armedTask(t, "t1", time.Now().Add(50*time.Millisecond), 2)

	f.d.Arm(context.Background(), task, "owner@example.com")
	require.Len(t, f.d.Pending(), 1)

	require.Eventually(t, func() bool {
		return f.job(t, "t1").Status == model.JobSent
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, f.mailer.count())
	email := f.mailer.sent[0]
	assert.Equal(t, "owner@example.com", email.To)
	assert.Equal(t, "🔔 Task Reminder 1/2: Renew passport", email.Subject)
	assert.Contains(t, email.Text, "Task Reminder (1 of 2)")
	assert.Contains(t, email.HTML, "Renew passport")

	stored, err := f.tasks.FindTask(context.Background(), "t1")
	require.NoError(t, err)
	state := stored.ReminderState
	assert.Equal(t, 1, state.SentReminders)
	assert.NotNil(t, state.LastReminderSentAt)
	assert.Nil(t, state.NextReminderDueAt)
	require.Len(t, state.History, 1)
	assert.Equal(t, model.DeliverySent, state.History[0].Status)
	assert.Equal(t, 1, state.History[0].ReminderNumber)
	assert.Empty(t, f.d.Pending())
}

func TestDispatcher_FireFailureRecordsHistory(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp: connection refused")
	task := f.armedTask(t, "t1", time.Now().Add(50*time.Millisecond), 1)

	f.d.Arm(context.Background(), task, "owner@example.com")

	require.Eventually(t, func() bool {
		return f.job(t, "t1").Status == model.JobFailed
	}, 2*time.Second, 10*time.Millisecond)

	job := f.job(t, "t1")
	assert.Contains(t, job.Error, "connection refused")

	stored, err := f.tasks.FindTask(context.Background(), "t1")
	require.NoError(t, err)
	state := stored.ReminderState
	assert.Equal(t, 0, state.SentReminders)
	assert.Nil(t, state.NextReminderDueAt)
	require.Len(t, state.History, 1)
	assert.Equal(t, model.DeliveryFailed, state.History[0].Status)
}

func TestDispatcher_ArmBeyondHorizonIsSkipped(t *testing.T) {
	f := newFixture(t)
	task := f.armedTask(t, "t1", time.Now().Add(31*24*time.Hour), 1)

	f.d.Arm(context.Background(), task, "owner@example.com")

	assert.Empty(t, f.d.Pending())
	_, err := f.jobs.FindJob(context.Background(), "t1")
	assert.Error(t, err)
}

func TestDispatcher_ArmWithoutFutureInstantIsNoop(t *testing.T) {
	f := newFixture(t)
	task := f.armedTask(t, "t1", time.Now().Add(-time.Minute), 1)
	f.d.Arm(context.Background(), task, "owner@example.com")

	task.ReminderState.ClearNext()
	f.d.Arm(context.Background(), task, "owner@example.com")

	assert.Empty(t, f.d.Pending())
}

func TestDispatcher_CancelStopsDelivery(t *testing.T) {
	f := newFixture(t)
	task := f.armedTask(t, "t1", time.Now().Add(time.Hour), 1)

	f.d.Arm(context.Background(), task, "owner@example.com")
	require.Len(t, f.d.Pending(), 1)

	f.d.Cancel("t1")
	assert.Empty(t, f.d.Pending())
	assert.Equal(t, model.JobCancelled, f.job(t, "t1").Status)

	// cancelling again is harmless
	f.d.Cancel("t1")
	f.d.Cancel("unknown")
}

func TestDispatcher_RearmReplacesTimer(t *testing.T) {
	f := newFixture(t)
	first := time.Now().Add(time.Hour)
	task := f.armedTask(t, "t1", first, 1)
	f.d.Arm(context.Background(), task, "owner@example.com")

	second := time.Now().Add(2 * time.Hour)
	task.ReminderState.SetNext(second)
	f.d.Arm(context.Background(), task, "owner@example.com")

	pending := f.d.Pending()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].DueAt.Equal(second.Truncate(time.Millisecond)))
	assert.True(t, f.job(t, "t1").DueAt.Equal(second.Truncate(time.Millisecond)))
}

func TestDispatcher_SweepFiresWithinGraceAndMarksMissed(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f.d.WithClock(func() time.Time { return now })
	ctx := context.Background()

	recent := now.Add(-10 * time.Minute)
	old := now.Add(-2 * time.Hour)
	f.armedTask(t, "recent", recent, 1)
	f.armedTask(t, "old", old, 1)
	require.NoError(t, f.jobs.SaveJob(ctx, &model.ReminderJob{TaskID: "recent", DueAt: recent, Recipient: "a@example.com", Status: model.JobPending}))
	require.NoError(t, f.jobs.SaveJob(ctx, &model.ReminderJob{TaskID: "old", DueAt: old, Recipient: "b@example.com", Status: model.JobPending}))

	res, err := f.d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Fired: 1, Missed: 1}, res)

	assert.Equal(t, model.JobSent, f.job(t, "recent").Status)
	assert.Equal(t, model.JobMissed, f.job(t, "old").Status)
	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, "a@example.com", f.mailer.sent[0].To)

	missed, err := f.tasks.FindTask(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, missed.NextReminderDueAt())
	assert.Equal(t, 0, missed.ReminderState.SentReminders)

	// a second sweep finds nothing left to do
	res, err = f.d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)
	assert.Equal(t, 1, f.mailer.count())
}

func TestDispatcher_StaleJobIsSkipped(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f.d.WithClock(func() time.Time { return now })
	ctx := context.Background()

	due := now.Add(-time.Minute)
	task := f.armedTask(t, "t1", due, 1)
	require.NoError(t, f.jobs.SaveJob(ctx, &model.ReminderJob{TaskID: "t1", DueAt: due, Recipient: "a@example.com", Status: model.JobPending}))

	task.Completed = true
	task.ReminderState.ClearNext()
	_, err := f.tasks.UpdateTaskFields(ctx, task, model.ReminderSchedule)
	require.NoError(t, err)

	res, err := f.d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fired)
	assert.Equal(t, 0, f.mailer.count())

	job := f.job(t, "t1")
	assert.Equal(t, model.JobSkipped, job.Status)
	assert.Equal(t, "task completed", job.Error)
}

func TestDispatcher_DeletedTaskIsSkipped(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f.d.WithClock(func() time.Time { return now })
	ctx := context.Background()

	due := now.Add(-time.Minute)
	require.NoError(t, f.jobs.SaveJob(ctx, &model.ReminderJob{TaskID: "gone", DueAt: due, Recipient: "a@example.com", Status: model.JobPending}))

	_, err := f.d.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.JobSkipped, f.job(t, "gone").Status)
	assert.Equal(t, 0, f.mailer.count())
}

func TestDispatcher_StartRecoversPendingJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	f.armedTask(t, "t1", due, 1)
	require.NoError(t, f.jobs.SaveJob(ctx, &model.ReminderJob{TaskID: "t1", DueAt: due, Recipient: "a@example.com", Status: model.JobPending}))
	require.NoError(t, f.jobs.SaveJob(ctx, &model.ReminderJob{TaskID: "t2", DueAt: due, Recipient: "a@example.com", Status: model.JobFiring}))

	require.NoError(t, f.d.Start(ctx))

	pending := f.d.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "t1", pending[0].TaskID)
	assert.Equal(t, model.JobFailed, f.job(t, "t2").Status)
}

func TestDispatcher_StartRejectsBadSchedule(t *testing.T) {
	d := NewDispatcher(inmemory.NewTaskStorage(), inmemory.NewJobStorage(), &fakeMailer{}, Config{SweepSpec: "not a schedule"})
	defer d.Stop()
	assert.Error(t, d.Start(context.Background()))
}

func TestDispatcher_SendNowLeavesStateAlone(t *testing.T) {
	f := newFixture(t)
	next := time.Now().Add(time.Hour)
	task := f.armedTask(t, "t1", next, 1)

	require.NoError(t, f.d.SendNow(context.Background(), task, "owner@example.com"))

	require.Equal(t, 1, f.mailer.count())
	assert.True(t, strings.HasPrefix(f.mailer.sent[0].Subject, "🔔 Admin Reminder: "))

	stored, err := f.tasks.FindTask(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ReminderState.SentReminders)
	assert.Empty(t, stored.ReminderState.History)
	assert.NotNil(t, stored.NextReminderDueAt())
}

func TestDispatcher_SendNowReportsFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("boom")
	task := f.armedTask(t, "t1", time.Now().Add(time.Hour), 1)

	assert.Error(t, f.d.SendNow(context.Background(), task, "owner@example.com"))
}
