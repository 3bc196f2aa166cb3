package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"remindly/model"
	"remindly/reminder"
	"remindly/repository"
	"remindly/utils"

	"go.uber.org/zap"
)

// Listing filters understood by TaskService.List.
const (
	FilterAll      = ""
	FilterToday    = "today"
	FilterUpcoming = "upcoming"
	FilterOverdue  = "overdue"
)

type TaskQuery struct {
	Filter           string
	IncludeCompleted bool
}

type TaskService struct {
	tasks     TaskStore
	users     UserStore
	scheduler Scheduler
	loc       *time.Location
	now       func() time.Time
}

func NewTaskService(tasks TaskStore, users UserStore, scheduler Scheduler, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{
		tasks:     tasks,
		users:     users,
		scheduler: scheduler,
		loc:       loc,
		now:       time.Now,
	}
}

// WithClock replaces the time source; used by tests and the sweep command.
func (svc *TaskService) WithClock(now func() time.Time) *TaskService {
	svc.now = now
	return svc
}

func (svc *TaskService) Create(ctx context.Context, caller model.Caller, input model.TaskInput) (*model.Task, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	dueDate, err := reminder.ParseDate(input.DueDate)
	if err != nil {
		return nil, NewValidationError("due_date", "expected YYYY-MM-DD")
	}
	dueTime, err := reminder.NormalizeClock(input.DueTime)
	if err != nil {
		return nil, NewValidationError("due_time", "expected HH:MM with hours 00-23 and minutes 00-59")
	}
	reminderType := input.ReminderType
	if reminderType == "" {
		reminderType = model.ReminderCustom
	}
	if !reminderType.Valid() {
		return nil, NewValidationError("reminder_type", "unknown reminder type")
	}
	if !input.ReminderFrequency.Valid() {
		return nil, NewValidationError("reminder_frequency", "must be Once, Twice, Thrice or empty")
	}

	owner := caller.UserID
	if input.Owner != "" && input.Owner != caller.UserID {
		if !caller.Admin {
			return nil, NewValidationError("owner", "only admins may create tasks for another user")
		}
		owner = input.Owner
	}

	now := svc.now()
	dueAt, _ := reminder.DueInstant(dueDate, dueTime, svc.loc)
	task := &model.Task{
		ID:                utils.NewID(),
		Title:             title,
		DueDate:           dueDate,
		DueTime:           dueTime,
		DueAt:             dueAt,
		Owner:             owner,
		ReminderType:      reminderType,
		ReminderFrequency: input.ReminderFrequency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if total := reminder.TotalForFrequency(input.ReminderFrequency); total > 0 {
		task.ReminderState = model.NewReminderState(total)
		reminder.Refresh(task, now)
	}

	if err := svc.tasks.CreateTask(ctx, task); err != nil {
		utils.Error("failed to create task", err, zap.String("owner", owner))
		return nil, err
	}
	utils.TrackTaskOperation("create")

	if task.NextReminderDueAt() != nil {
		svc.scheduler.Arm(ctx, task, svc.recipient(ctx, task, caller))
	}
	return task, nil
}

func (svc *TaskService) Get(ctx context.Context, caller model.Caller, id string) (*model.Task, error) {
	return svc.load(ctx, caller, id)
}

func (svc *TaskService) Update(ctx context.Context, caller model.Caller, id string, patch model.TaskPatch) (*model.Task, error) {
	existing, err := svc.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	task := existing.Clone()
	change, err := applyPatch(task, patch, svc.loc)
	if err != nil {
		return nil, err
	}
	if !change.any {
		return existing, nil
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
			return nil, NewNotFoundError("task", id)
		}
		return nil, err
	}
	utils.TrackTaskOperation("update")

	svc.reschedule(ctx, caller, stored, change)
	return stored, nil
}

func (svc *TaskService) Delete(ctx context.Context, caller model.Caller, id string) error {
	if _, err := svc.load(ctx, caller, id); err != nil {
		return err
	}
	if err := svc.tasks.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFoundError("task", id)
		}
		return err
	}
	svc.scheduler.Cancel(id)
	utils.TrackTaskOperation("delete")
	return nil
}

// List returns the caller's tasks ordered by due instant.
func (svc *TaskService) List(ctx context.Context, caller model.Caller, query TaskQuery) ([]*model.Task, error) {
	now := svc.now()
	filter := model.TaskFilter{Owner: caller.UserID, SortBy: "due_at", SortAsc: true}
	if !query.IncludeCompleted {
		filter.Completed = boolPtr(false)
	}

	switch query.Filter {
	case FilterAll:
	case FilterToday:
		start, end := dayBounds(now, svc.loc)
		filter.DueFrom, filter.DueBefore = &start, &end
	case FilterUpcoming:
		filter.DueFrom = &now
	case FilterOverdue:
		filter.DueBefore = &now
		filter.Completed = boolPtr(false)
	default:
		return nil, NewValidationError("filter", "must be today, upcoming or overdue")
	}

	return svc.tasks.ListTasks(ctx, filter)
}

// Stats summarises the caller's tasks for the dashboard.
func (svc *TaskService) Stats(ctx context.Context, caller model.Caller) (*model.TaskStats, error) {
	now := svc.now()
	start, end := dayBounds(now, svc.loc)
	owner := caller.UserID

	stats := &model.TaskStats{}
	counts := []struct {
		dst    *int64
		filter model.TaskFilter
	}{
		{&stats.Total, model.TaskFilter{Owner: owner}},
		{&stats.Completed, model.TaskFilter{Owner: owner, Completed: boolPtr(true)}},
		{&stats.Pending, model.TaskFilter{Owner: owner, Completed: boolPtr(false)}},
		{&stats.Today, model.TaskFilter{Owner: owner, DueFrom: &start, DueBefore: &end}},
		{&stats.Overdue, model.TaskFilter{Owner: owner, Completed: boolPtr(false), DueBefore: &now}},
		{&stats.PendingReminders, model.TaskFilter{Owner: owner, Completed: boolPtr(false), NextReminderBefore: &now}},
	}
	for _, c := range counts {
		n, err := svc.tasks.CountTasks(ctx, c.filter)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return stats, nil
}

// load fetches a task the caller may see. Other users' tasks look missing to non-admins.
func (svc *TaskService) load(ctx context.Context, caller model.Caller, id string) (*model.Task, error) {
	task, err := svc.tasks.FindTask(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("task", id)
		}
		return nil, err
	}
	if !caller.Admin && task.Owner != caller.UserID {
		return nil, NewNotFoundError("task", id)
	}
	return task, nil
}

func (svc *TaskService) reschedule(ctx context.Context, caller model.Caller, task *model.Task, change patchResult) {
	switch {
	case task.Completed || task.ReminderState == nil:
		if change.completed || change.reminder {
			svc.scheduler.Cancel(task.ID)
		}
	case change.reminder:
		if task.NextReminderDueAt() != nil {
			svc.scheduler.Arm(ctx, task, svc.recipient(ctx, task, caller))
		} else {
			svc.scheduler.Cancel(task.ID)
		}
	}
}

// recipient resolves the owner's email, falling back to the caller when the caller owns the task.
func (svc *TaskService) recipient(ctx context.Context, task *model.Task, caller model.Caller) string {
	return resolveRecipient(ctx, svc.users, task.Owner, caller)
}

func resolveRecipient(ctx context.Context, users UserStore, owner string, caller model.Caller) string {
	if users != nil {
		user, err := users.FindUserByID(ctx, owner)
		if err == nil && user.Email != "" {
			return user.Email
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			utils.Warn("could not resolve task owner", zap.String("owner", owner), zap.Error(err))
		}
	}
	if caller.UserID == owner {
		return caller.Email
	}
	return ""
}

type patchResult struct {
	any       bool
	reminder  bool // due instant, type, frequency or reopen changed
	completed bool // completion was requested
	replaced  bool // reminder state was created or dropped
}

// scope is the part of the reminder state the patch needs written back.
func (r patchResult) scope() model.ReminderScope {
	switch {
	case r.replaced:
		return model.ReminderReplace
	case r.reminder || r.completed:
		return model.ReminderSchedule
	}
	return model.ReminderKeep
}

// applyPatch validates and applies patch to task in place, reporting what actually changed.
func applyPatch(task *model.Task, patch model.TaskPatch, loc *time.Location) (patchResult, error) {
	var res patchResult

	if patch.Title != nil {
		title, err := validateTitle(*patch.Title)
		if err != nil {
			return res, err
		}
		if title != task.Title {
			task.Title = title
			res.any = true
		}
	}

	if patch.DueDate != nil || patch.DueTime != nil {
		dueDate, dueTime := task.DueDate, task.DueTime
		if patch.DueDate != nil {
			d, err := reminder.ParseDate(*patch.DueDate)
			if err != nil {
				return res, NewValidationError("due_date", "expected YYYY-MM-DD")
			}
			dueDate = d
		}
		if patch.DueTime != nil {
			t, err := reminder.NormalizeClock(*patch.DueTime)
			if err != nil {
				return res, NewValidationError("due_time", "expected HH:MM with hours 00-23 and minutes 00-59")
			}
			dueTime = t
		}
		dueAt, err := reminder.DueInstant(dueDate, dueTime, loc)
		if err != nil {
			return res, NewValidationError("due_time", err.Error())
		}
		if !dueDate.Equal(task.DueDate) || dueTime != task.DueTime {
			task.DueDate, task.DueTime, task.DueAt = dueDate, dueTime, dueAt
			res.any, res.reminder = true, true
		}
	}

	if patch.ReminderType != nil {
		rt := *patch.ReminderType
		if !rt.Valid() {
			return res, NewValidationError("reminder_type", "unknown reminder type")
		}
		if rt != task.ReminderType {
			task.ReminderType = rt
			res.any, res.reminder = true, true
		}
	}

	if patch.ReminderFrequency != nil {
		freq := *patch.ReminderFrequency
		if !freq.Valid() {
			return res, NewValidationError("reminder_frequency", "must be Once, Twice, Thrice or empty")
		}
		if freq != task.ReminderFrequency {
			task.ReminderFrequency = freq
			switch total := freq.Total(); {
			case total == 0:
				res.replaced = task.ReminderState != nil
				task.ReminderState = nil
			case task.ReminderState == nil:
				task.ReminderState = model.NewReminderState(total)
				res.replaced = true
			default:
				task.ReminderState.Resize(total)
			}
			res.any, res.reminder = true, true
		}
	}

	if patch.Completed != nil {
		if *patch.Completed {
			res.completed = true
		}
		if *patch.Completed != task.Completed {
			task.Completed = *patch.Completed
			res.any = true
			if !task.Completed {
				res.reminder = true
			}
		}
	}

	return res, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", NewValidationError("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return "", NewValidationError("title", "must be at most 200 characters")
	}
	return title, nil
}

// dayBounds returns [start of today, start of tomorrow) in loc.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func boolPtr(b bool) *bool {
	return &b
}
