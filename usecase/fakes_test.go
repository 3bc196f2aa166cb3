package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"remindly/model"
	"remindly/repository/inmemory"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingScheduler struct {
	mu        sync.Mutex
	armed     map[string]string
	armedAt   map[string]time.Time
	armCalls  map[string]int
	cancelled []string
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{armed: map[string]string{}, armedAt: map[string]time.Time{}, armCalls: map[string]int{}}
}

func (s *recordingScheduler) Arm(ctx context.Context, task *model.Task, recipient string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed[task.ID] = recipient
	s.armCalls[task.ID]++
	if next := task.NextReminderDueAt(); next != nil {
		s.armedAt[task.ID] = *next
	}
}

func (s *recordingScheduler) Cancel(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, taskID)
	delete(s.armedAt, taskID)
	s.cancelled = append(s.cancelled, taskID)
}

func (s *recordingScheduler) isArmed(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[taskID]
	return ok
}

func (s *recordingScheduler) armCount(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armCalls[taskID]
}

func (s *recordingScheduler) wasCancelled(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.cancelled {
		if id == taskID {
			return true
		}
	}
	return false
}

// deliveringTaskStore records a sent reminder right after the first read of a
// task, the way the dispatcher can between a read and the write that follows it.
type deliveringTaskStore struct {
	*inmemory.TaskStorage
	once sync.Once
}

func (s *deliveringTaskStore) FindTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.TaskStorage.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.once.Do(func() {
		entry := model.ReminderHistoryEntry{SentAt: testNow, ReminderNumber: 1, Status: model.DeliverySent}
		_ = s.TaskStorage.RecordReminderDelivery(ctx, id, entry)
	})
	return task, nil
}

type stores struct {
	tasks     *inmemory.TaskStorage
	users     *inmemory.UserStorage
	scheduler *recordingScheduler
}

func newStores(t *testing.T) *stores {
	t.Helper()
	s := &stores{
		tasks:     inmemory.NewTaskStorage(),
		users:     inmemory.NewUserStorage(),
		scheduler: newRecordingScheduler(),
	}
	for _, u := range []*model.User{
		{UserID: "u-1", Email: "ann@example.com", Name: "Ann"},
		{UserID: "u-2", Email: "bob@example.com", Name: "Bob"},
	} {
		_, err := s.users.UpsertUser(context.Background(), u)
		require.NoError(t, err)
	}
	return s
}

var (
	ann   = model.Caller{UserID: "u-1", Email: "ann@example.com"}
	bob   = model.Caller{UserID: "u-2", Email: "bob@example.com"}
	admin = model.Caller{UserID: "u-9", Email: "root@example.com", Admin: true}
)

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	require.Error(t, err)
	return KindOf(err)
}

func fieldOf(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Field
	}
	return ""
}
