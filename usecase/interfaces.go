package usecase

import (
	"context"
	"time"

	"remindly/model"
)

// TaskStore persists tasks. Implementations return repository.ErrNotFound for missing ids.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	FindTask(ctx context.Context, id string) (*model.Task, error)
	// UpdateTaskFields writes the editable fields of task and returns the stored result.
	// scope limits which parts of the reminder state are written.
	UpdateTaskFields(ctx context.Context, task *model.Task, scope model.ReminderScope) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, error)
	CountTasks(ctx context.Context, filter model.TaskFilter) (int64, error)

	// UpdateTasks applies a set-based mutation to every listed id that exists.
	UpdateTasks(ctx context.Context, ids []string, mutation model.TaskMutation, now time.Time) (model.BulkResult, error)
	DeleteTasks(ctx context.Context, ids []string) (int64, error)
	DeleteTasksByOwner(ctx context.Context, owner string) (int64, error)

	TaskStatsByOwner(ctx context.Context, owner string, now time.Time) ([]model.OwnerTaskCounts, error)
	ReminderTypeDistribution(ctx context.Context, owner string) ([]model.ReminderTypeCount, error)

	// RecordReminderDelivery appends a history entry and disarms the task's reminder.
	// A sent entry also increments the sent counter, but never past the configured total.
	RecordReminderDelivery(ctx context.Context, taskID string, entry model.ReminderHistoryEntry) error
	// ClearNextReminder disarms a reminder without touching its history.
	ClearNextReminder(ctx context.Context, taskID string) error
}

type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertUser creates the user keyed by email or refreshes its Google profile fields.
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	DeleteUser(ctx context.Context, id string) error
}

// Scheduler arms and cancels reminder deliveries. Neither call reports errors;
// delivery problems are logged and recorded on the task instead.
type Scheduler interface {
	Arm(ctx context.Context, task *model.Task, recipient string)
	Cancel(taskID string)
}

// ReminderSender delivers a reminder immediately, bypassing the schedule.
type ReminderSender interface {
	SendNow(ctx context.Context, task *model.Task, recipient string) error
}

type Mailer interface {
	Send(ctx context.Context, email model.Email) error
}

// TokenVerifier checks a Google ID token and returns the identity it asserts.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*model.GoogleIdentity, error)
}

type OTPStore interface {
	// Issue generates, stores and returns a fresh code for email, replacing any previous one.
	Issue(ctx context.Context, email string) (string, error)
	// Check consumes the code on success. Every failed check counts as an attempt.
	Check(ctx context.Context, email, code string) error
}

type TokenIssuer interface {
	Issue(user *model.User, admin bool) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
}
