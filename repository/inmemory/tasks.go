// Package inmemory holds map-backed stores used when REPOSITORY_TYPE=memory and in tests.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"remindly/model"
	repo "remindly/repository"
)

type TaskStorage struct {
	storage map[string]*model.Task
	mtx     *sync.RWMutex
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[string]*model.Task),
		mtx:     &sync.RWMutex{},
	}
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *model.Task) error {
	if task.Owner == "" {
		return errors.New("task owner is required")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[task.ID]; ok {
		return errors.New("duplicate task id")
	}
	s.storage[task.ID] = task.Clone()
	return nil
}

func (s *TaskStorage) FindTask(ctx context.Context, id string) (*model.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	task, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return task.Clone(), nil
}

func (s *TaskStorage) UpdateTaskFields(ctx context.Context, task *model.Task, scope model.ReminderScope) (*model.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	stored, ok := s.storage[task.ID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	stored.Title = task.Title
	stored.DueDate, stored.DueTime, stored.DueAt = task.DueDate, task.DueTime, task.DueAt
	stored.Completed = task.Completed
	stored.ReminderType = task.ReminderType
	stored.ReminderFrequency = task.ReminderFrequency
	stored.UpdatedAt = task.UpdatedAt

	switch {
	case scope == model.ReminderReplace && task.ReminderState == nil:
		stored.ReminderState = nil
	case scope == model.ReminderReplace:
		stored.ReminderState = task.ReminderState.Clone()
	case scope == model.ReminderSchedule && task.ReminderState != nil && stored.ReminderState != nil:
		state := stored.ReminderState
		state.Resize(task.ReminderState.TotalReminders)
		if state.SentReminders < task.ReminderState.TotalReminders && task.ReminderState.NextReminderDueAt != nil {
			state.SetNext(*task.ReminderState.NextReminderDueAt)
		} else {
			state.ClearNext()
		}
	}
	return stored.Clone(), nil
}

func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	return nil
}

func (s *TaskStorage) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*model.Task{}
	for _, task := range s.storage {
		if matches(task, filter) {
			res = append(res, task.Clone())
		}
	}
	sortTasks(res, filter)

	if filter.Skip > 0 {
		if filter.Skip >= int64(len(res)) {
			return []*model.Task{}, nil
		}
		res = res[filter.Skip:]
	}
	if filter.Limit > 0 && int64(len(res)) > filter.Limit {
		res = res[:filter.Limit]
	}
	return res, nil
}

func (s *TaskStorage) CountTasks(ctx context.Context, filter model.TaskFilter) (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var n int64
	for _, task := range s.storage {
		if matches(task, filter) {
			n++
		}
	}
	return n, nil
}

func (s *TaskStorage) UpdateTasks(ctx context.Context, ids []string, mutation model.TaskMutation, now time.Time) (model.BulkResult, error) {
	res := model.BulkResult{Action: mutation.Action()}
	switch mutation.(type) {
	case model.SetCompleted, model.SetReminderType, model.ReassignOwner:
	default:
		return res, repo.ErrUnsupportedUpdate
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, id := range uniq(ids) {
		task, ok := s.storage[id]
		if !ok {
			continue
		}
		res.MatchedCount++

		changed := false
		switch m := mutation.(type) {
		case model.SetCompleted:
			changed = task.Completed != m.Completed
			task.Completed = m.Completed
			if m.Completed && task.ReminderState != nil {
				task.ReminderState.ClearNext()
			}
		case model.SetReminderType:
			changed = task.ReminderType != m.Type
			task.ReminderType = m.Type
		case model.ReassignOwner:
			changed = task.Owner != m.Owner
			task.Owner = m.Owner
		}
		if changed {
			task.UpdatedAt = now
			res.ModifiedCount++
		}
	}
	return res, nil
}

func (s *TaskStorage) DeleteTasks(ctx context.Context, ids []string) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var n int64
	for _, id := range uniq(ids) {
		if _, ok := s.storage[id]; ok {
			delete(s.storage, id)
			n++
		}
	}
	return n, nil
}

func (s *TaskStorage) DeleteTasksByOwner(ctx context.Context, owner string) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var n int64
	for id, task := range s.storage {
		if task.Owner == owner {
			delete(s.storage, id)
			n++
		}
	}
	return n, nil
}

func (s *TaskStorage) TaskStatsByOwner(ctx context.Context, owner string, now time.Time) ([]model.OwnerTaskCounts, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	byOwner := map[string]*model.OwnerTaskCounts{}
	for _, task := range s.storage {
		if owner != "" && task.Owner != owner {
			continue
		}
		row, ok := byOwner[task.Owner]
		if !ok {
			row = &model.OwnerTaskCounts{Owner: task.Owner}
			byOwner[task.Owner] = row
		}
		row.TotalTasks++
		if task.Completed {
			row.CompletedTasks++
		} else {
			row.PendingTasks++
		}
		if task.Overdue(now) {
			row.OverdueTasks++
		}
		created := task.CreatedAt
		if row.FirstTaskCreated == nil || created.Before(*row.FirstTaskCreated) {
			row.FirstTaskCreated = &created
		}
		if row.LastTaskCreated == nil || created.After(*row.LastTaskCreated) {
			row.LastTaskCreated = &created
		}
	}

	rows := make([]model.OwnerTaskCounts, 0, len(byOwner))
	for _, row := range byOwner {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].LastTaskCreated.After(*rows[j].LastTaskCreated)
	})
	return rows, nil
}

func (s *TaskStorage) ReminderTypeDistribution(ctx context.Context, owner string) ([]model.ReminderTypeCount, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	counts := map[model.ReminderType]int64{}
	for _, task := range s.storage {
		if task.Owner == owner {
			counts[task.ReminderType]++
		}
	}
	rows := make([]model.ReminderTypeCount, 0, len(counts))
	for rt, n := range counts {
		rows = append(rows, model.ReminderTypeCount{ReminderType: rt, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].ReminderType < rows[j].ReminderType
	})
	return rows, nil
}

func (s *TaskStorage) RecordReminderDelivery(ctx context.Context, taskID string, entry model.ReminderHistoryEntry) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	task, ok := s.storage[taskID]
	if !ok || task.ReminderState == nil {
		return repo.ErrNotFound
	}
	state := task.ReminderState
	if entry.Status == model.DeliverySent {
		if state.Exhausted() {
			return repo.ErrReminderExhausted
		}
		state.SentReminders++
		at := entry.SentAt
		state.LastReminderSentAt = &at
	}
	state.History = append(state.History, entry)
	state.ClearNext()
	return nil
}

func (s *TaskStorage) ClearNextReminder(ctx context.Context, taskID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if task, ok := s.storage[taskID]; ok && task.ReminderState != nil {
		task.ReminderState.ClearNext()
	}
	return nil
}

func matches(task *model.Task, f model.TaskFilter) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, task.ID) {
		return false
	}
	if f.Owner != "" && task.Owner != f.Owner {
		return false
	}
	if f.Completed != nil && task.Completed != *f.Completed {
		return false
	}
	if f.ReminderType != "" && task.ReminderType != f.ReminderType {
		return false
	}
	if f.HasReminder && task.ReminderType == "" {
		return false
	}
	if f.DueFrom != nil && task.DueAt.Before(*f.DueFrom) {
		return false
	}
	if f.DueBefore != nil && !task.DueAt.Before(*f.DueBefore) {
		return false
	}
	if f.CreatedFrom != nil && task.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !task.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	if f.NextReminderBefore != nil {
		next := task.NextReminderDueAt()
		if next == nil || next.After(*f.NextReminderBefore) {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func sortTasks(tasks []*model.Task, f model.TaskFilter) {
	field, ok := model.TaskSortFields[f.SortBy]
	if !ok {
		field = "created_at"
	}
	less := func(a, b *model.Task) int {
		switch field {
		case "due_at":
			return a.DueAt.Compare(b.DueAt)
		case "title":
			return strings.Compare(a.Title, b.Title)
		case "updated_at":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		c := less(tasks[i], tasks[j])
		if c == 0 {
			return tasks[i].ID < tasks[j].ID
		}
		if f.SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
