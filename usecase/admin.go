package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"remindly/model"
	"remindly/reminder"
	"remindly/repository"
	"remindly/utils"

	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	RecentTaskCount = 10
)

// Per-user admin actions.
const (
	UserActionReassign    = "reassign_tasks"
	UserActionCompleteAll = "complete_all_tasks"
	UserActionResetAll    = "reset_all_tasks"
)

type AdminTaskQuery struct {
	Page         int64
	Limit        int64
	Status       string // completed, pending, overdue
	ReminderType string
	Owner        string
	Search       string
	SortBy       string
	SortOrder    string // asc, desc
}

type AdminService struct {
	tasks     TaskStore
	users     UserStore
	scheduler Scheduler
	sender    ReminderSender
	loc       *time.Location
	now       func() time.Time
}

func NewAdminService(tasks TaskStore, users UserStore, scheduler Scheduler, sender ReminderSender, loc *time.Location) *AdminService {
	if loc == nil {
		loc = time.Local
	}
	return &AdminService{
		tasks:     tasks,
		users:     users,
		scheduler: scheduler,
		sender:    sender,
		loc:       loc,
		now:       time.Now,
	}
}

func (svc *AdminService) WithClock(now func() time.Time) *AdminService {
	svc.now = now
	return svc
}

// UserStats lists every user with task totals, most recently active first.
func (svc *AdminService) UserStats(ctx context.Context) ([]model.UserTaskStats, error) {
	users, err := svc.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := svc.tasks.TaskStatsByOwner(ctx, "", svc.now())
	if err != nil {
		return nil, err
	}
	byOwner := make(map[string]model.OwnerTaskCounts, len(rows))
	for _, row := range rows {
		byOwner[row.Owner] = row
	}

	stats := make([]model.UserTaskStats, 0, len(users))
	for _, u := range users {
		row := byOwner[u.UserID]
		stats = append(stats, model.UserTaskStats{
			UserID:          u.UserID,
			Email:           u.Email,
			Name:            u.Name,
			TotalTasks:      row.TotalTasks,
			CompletedTasks:  row.CompletedTasks,
			CompletionRate:  CompletionRate(row.CompletedTasks, row.TotalTasks),
			LastTaskCreated: row.LastTaskCreated,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i].LastTaskCreated, stats[j].LastTaskCreated
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return stats, nil
}

// OwnerDetail reports counts, reminder-type distribution and recent tasks for one owner.
func (svc *AdminService) OwnerDetail(ctx context.Context, owner string) (*model.OwnerDetail, error) {
	rows, err := svc.tasks.TaskStatsByOwner(ctx, owner, svc.now())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NewNotFoundError("user", owner)
	}
	row := rows[0]

	dist, err := svc.tasks.ReminderTypeDistribution(ctx, owner)
	if err != nil {
		return nil, err
	}
	recent, err := svc.tasks.ListTasks(ctx, model.TaskFilter{Owner: owner, SortBy: "created_at", Limit: RecentTaskCount})
	if err != nil {
		return nil, err
	}

	detail := &model.OwnerDetail{
		Owner:                    owner,
		TotalTasks:               row.TotalTasks,
		CompletedTasks:           row.CompletedTasks,
		PendingTasks:             row.PendingTasks,
		OverdueTasks:             row.OverdueTasks,
		CompletionRate:           CompletionRate(row.CompletedTasks, row.TotalTasks),
		FirstTaskCreated:         row.FirstTaskCreated,
		LastTaskCreated:          row.LastTaskCreated,
		ReminderTypeDistribution: dist,
		RecentTasks:              recent,
	}
	if user, err := svc.users.FindUserByID(ctx, owner); err == nil {
		detail.Email = user.Email
	}
	return detail, nil
}

func (svc *AdminService) SystemOverview(ctx context.Context) (*model.SystemOverview, error) {
	start, end := dayBounds(svc.now(), svc.loc)

	users, err := svc.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	overview := &model.SystemOverview{TotalUsers: users}
	counts := []struct {
		dst    *int64
		filter model.TaskFilter
	}{
		{&overview.TotalTasks, model.TaskFilter{}},
		{&overview.CompletedTasks, model.TaskFilter{Completed: boolPtr(true)}},
		{&overview.PendingTasks, model.TaskFilter{Completed: boolPtr(false)}},
		{&overview.TodayTasks, model.TaskFilter{CreatedFrom: &start, CreatedTo: &end}},
	}
	for _, c := range counts {
		n, err := svc.tasks.CountTasks(ctx, c.filter)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return overview, nil
}

// PendingReminders lists incomplete tasks that carry a reminder type.
func (svc *AdminService) PendingReminders(ctx context.Context) ([]*model.Task, error) {
	return svc.tasks.ListTasks(ctx, model.TaskFilter{
		Completed:   boolPtr(false),
		HasReminder: true,
		SortBy:      "due_at",
		SortAsc:     true,
	})
}

func (svc *AdminService) ListTasks(ctx context.Context, q AdminTaskQuery) (*model.TaskPage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter := model.TaskFilter{Owner: q.Owner, Search: q.Search, Skip: (page - 1) * limit, Limit: limit}
	now := svc.now()
	switch q.Status {
	case "", "all":
	case "completed":
		filter.Completed = boolPtr(true)
	case "pending":
		filter.Completed = boolPtr(false)
	case "overdue":
		filter.Completed = boolPtr(false)
		filter.DueBefore = &now
	default:
		return nil, NewValidationError("status", "must be completed, pending or overdue")
	}

	if q.ReminderType != "" && q.ReminderType != "all" {
		rt := model.ReminderType(q.ReminderType)
		if !rt.Valid() {
			return nil, NewValidationError("reminder_type", "unknown reminder type")
		}
		filter.ReminderType = rt
	}

	filter.SortBy = "created_at"
	if q.SortBy != "" {
		if _, ok := model.TaskSortFields[q.SortBy]; !ok {
			return nil, NewValidationError("sort_by", "must be created_at, due_at, title or updated_at")
		}
		filter.SortBy = q.SortBy
	}
	switch q.SortOrder {
	case "", "desc":
	case "asc":
		filter.SortAsc = true
	default:
		return nil, NewValidationError("sort_order", "must be asc or desc")
	}

	total, err := svc.tasks.CountTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	tasks, err := svc.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int64(math.Ceil(float64(total) / float64(limit)))
	return &model.TaskPage{
		Tasks: tasks,
		Pagination: model.Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalTasks:   total,
			TasksPerPage: limit,
			HasNextPage:  page < totalPages,
			HasPrevPage:  page > 1,
		},
	}, nil
}

// ParseBulkAction turns a wire action name and its arguments into a typed mutation.
func ParseBulkAction(action string, reminderType model.ReminderType, owner string, patch *model.TaskPatch) (model.TaskMutation, error) {
	switch action {
	case model.ActionComplete:
		return model.SetCompleted{Completed: true}, nil
	case model.ActionUncomplete:
		return model.SetCompleted{Completed: false}, nil
	case model.ActionUpdateReminderType:
		if reminderType == "" {
			return nil, NewValidationError("reminder_type", "required for this action")
		}
		return model.SetReminderType{Type: reminderType}, nil
	case model.ActionReassignUser:
		if owner == "" {
			return nil, NewValidationError("user_id", "required for this action")
		}
		return model.ReassignOwner{Owner: owner}, nil
	case model.ActionCustom:
		if patch == nil || patch.Empty() {
			return nil, NewValidationError("update_data", "required for this action")
		}
		return model.ApplyPatch{Patch: *patch}, nil
	default:
		return nil, NewPreconditionError("invalid action, use complete, uncomplete, update_reminder_type, reassign_user or custom")
	}
}

// BulkUpdate applies mutation to every listed task that exists. Missing ids only lower the matched count.
func (svc *AdminService) BulkUpdate(ctx context.Context, ids []string, mutation model.TaskMutation) (model.BulkResult, error) {
	if len(ids) == 0 {
		return model.BulkResult{}, NewValidationError("task_ids", "at least one task id is required")
	}
	now := svc.now()

	switch m := mutation.(type) {
	case model.ApplyPatch:
		return svc.patchEach(ctx, ids, m.Patch, now)
	case model.SetReminderType:
		if !m.Type.Valid() {
			return model.BulkResult{}, NewValidationError("reminder_type", "unknown reminder type")
		}
	case model.ReassignOwner:
		if m.Owner == "" {
			return model.BulkResult{}, NewValidationError("user_id", "must not be empty")
		}
	case model.SetCompleted:
	default:
		return model.BulkResult{}, NewPreconditionError("unsupported bulk action")
	}

	var owners map[string]string
	if _, ok := mutation.(model.ReassignOwner); ok {
		owners = svc.ownersOf(ctx, ids)
	}

	res, err := svc.tasks.UpdateTasks(ctx, ids, mutation, now)
	if err != nil {
		return res, err
	}

	if m, ok := mutation.(model.SetCompleted); ok && m.Completed {
		for _, id := range ids {
			svc.scheduler.Cancel(id)
		}
	} else {
		svc.rescheduleIDs(ctx, ids, owners, now)
	}
	utils.Info("bulk update applied", zap.String("action", res.Action),
		zap.Int64("matched", res.MatchedCount), zap.Int64("modified", res.ModifiedCount))
	return res, nil
}

func (svc *AdminService) patchEach(ctx context.Context, ids []string, patch model.TaskPatch, now time.Time) (model.BulkResult, error) {
	res := model.BulkResult{Action: model.ActionCustom}
	for _, id := range ids {
		existing, err := svc.tasks.FindTask(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, err
		}
		res.MatchedCount++

		task := existing.Clone()
		change, err := applyPatch(task, patch, svc.loc)
		if err != nil {
			return res, err
		}
		if !change.any {
			continue
		}
		if change.reminder && !task.Completed {
			reminder.Refresh(task, now)
		}
		if task.Completed && task.ReminderState != nil {
			task.ReminderState.ClearNext()
		}
		task.UpdatedAt = now
		stored, err := svc.tasks.UpdateTaskFields(ctx, task, change.scope())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				res.MatchedCount--
				continue
			}
			return res, err
		}
		res.ModifiedCount++
		svc.rearm(ctx, stored, change.completed || change.reminder)
	}
	return res, nil
}

// ownersOf snapshots the current owner of each listed task.
func (svc *AdminService) ownersOf(ctx context.Context, ids []string) map[string]string {
	tasks, err := svc.tasks.ListTasks(ctx, model.TaskFilter{IDs: ids})
	if err != nil {
		utils.Error("failed to load task owners", err)
		return nil
	}
	owners := make(map[string]string, len(tasks))
	for _, task := range tasks {
		owners[task.ID] = task.Owner
	}
	return owners
}

// rescheduleIDs recomputes reminders after a set-based update and re-arms
// only those whose due instant or recipient moved. A nil owners map means
// no owner changed.
func (svc *AdminService) rescheduleIDs(ctx context.Context, ids []string, owners map[string]string, now time.Time) {
	tasks, err := svc.tasks.ListTasks(ctx, model.TaskFilter{IDs: ids})
	if err != nil {
		utils.Error("failed to reload tasks for rescheduling", err)
		return
	}
	for _, task := range tasks {
		if task.ReminderState == nil {
			continue
		}
		before := task.NextReminderDueAt()
		reminder.Refresh(task, now)
		after := task.NextReminderDueAt()
		moved := !sameInstant(before, after)
		if moved {
			stored, err := svc.tasks.UpdateTaskFields(ctx, task, model.ReminderSchedule)
			if err != nil {
				utils.Error("failed to store rescheduled reminder", err, zap.String("task_id", task.ID))
				continue
			}
			task = stored
		}
		prev, tracked := owners[task.ID]
		svc.rearm(ctx, task, moved || (tracked && prev != task.Owner))
	}
}

func (svc *AdminService) rearm(ctx context.Context, task *model.Task, changed bool) {
	if !changed {
		return
	}
	if task.Completed || task.NextReminderDueAt() == nil {
		svc.scheduler.Cancel(task.ID)
		return
	}
	svc.scheduler.Arm(ctx, task, resolveRecipient(ctx, svc.users, task.Owner, model.Caller{}))
}

// BulkDelete removes every listed task. Nothing is touched without confirm.
func (svc *AdminService) BulkDelete(ctx context.Context, ids []string, confirm bool) (int64, error) {
	if !confirm {
		return 0, NewPreconditionError("please confirm deletion by sending confirm_delete: true")
	}
	if len(ids) == 0 {
		return 0, NewValidationError("task_ids", "at least one task id is required")
	}
	deleted, err := svc.tasks.DeleteTasks(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		svc.scheduler.Cancel(id)
	}
	utils.Info("bulk delete applied", zap.Int("requested", len(ids)), zap.Int64("deleted", deleted))
	return deleted, nil
}

// SendManualReminder emails the task owner now, regardless of the reminder schedule.
func (svc *AdminService) SendManualReminder(ctx context.Context, taskID string) error {
	task, err := svc.tasks.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("task", taskID)
		}
		return err
	}
	user, err := svc.users.FindUserByID(ctx, task.Owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("user", task.Owner)
		}
		return err
	}
	if user.Email == "" {
		return NewNotFoundError("email for user", task.Owner)
	}
	if err := svc.sender.SendNow(ctx, task, user.Email); err != nil {
		utils.Error("manual reminder failed", err, zap.String("task_id", taskID))
		return NewDeliveryError(err)
	}
	return nil
}

// UserAction runs one of the per-user bulk actions against the owner's tasks.
func (svc *AdminService) UserAction(ctx context.Context, owner, action string, taskIDs []string, newOwner string) (model.BulkResult, error) {
	filter := model.TaskFilter{Owner: owner}
	var mutation model.TaskMutation
	switch action {
	case UserActionReassign:
		if newOwner == "" {
			return model.BulkResult{}, NewValidationError("new_user_id", "required for reassignment")
		}
		filter.IDs = taskIDs
		mutation = model.ReassignOwner{Owner: newOwner}
	case UserActionCompleteAll:
		filter.Completed = boolPtr(false)
		mutation = model.SetCompleted{Completed: true}
	case UserActionResetAll:
		filter.Completed = boolPtr(true)
		mutation = model.SetCompleted{Completed: false}
	default:
		return model.BulkResult{}, NewPreconditionError("invalid action, use reassign_tasks, complete_all_tasks or reset_all_tasks")
	}

	tasks, err := svc.tasks.ListTasks(ctx, filter)
	if err != nil {
		return model.BulkResult{}, err
	}
	if len(tasks) == 0 {
		return model.BulkResult{Action: mutation.Action()}, nil
	}
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	res, err := svc.BulkUpdate(ctx, ids, mutation)
	res.Action = action
	return res, err
}

// DeleteUser removes the user and cascades to every task it owns.
func (svc *AdminService) DeleteUser(ctx context.Context, userID string, confirm bool) (int64, error) {
	if !confirm {
		return 0, NewPreconditionError("please confirm deletion by sending confirm_delete: true")
	}

	tasks, err := svc.tasks.ListTasks(ctx, model.TaskFilter{Owner: userID})
	if err != nil {
		return 0, err
	}
	deleted, err := svc.tasks.DeleteTasksByOwner(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		svc.scheduler.Cancel(task.ID)
	}

	err = svc.users.DeleteUser(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound) && deleted == 0:
		return 0, NewNotFoundError("user", userID)
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return deleted, err
	}
	utils.Info("user deleted", zap.String("user_id", userID), zap.Int64("tasks", deleted))
	return deleted, nil
}

// CompletionRate is completed/total as a percentage rounded to two decimals, 0 for no tasks.
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
