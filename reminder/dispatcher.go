package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"remindly/model"
	"remindly/repository"
	"remindly/utils"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TaskSource is the slice of task persistence the dispatcher needs.
type TaskSource interface {
	FindTask(ctx context.Context, id string) (*model.Task, error)
	RecordReminderDelivery(ctx context.Context, taskID string, entry model.ReminderHistoryEntry) error
	ClearNextReminder(ctx context.Context, taskID string) error
}

type JobStore interface {
	SaveJob(ctx context.Context, job *model.ReminderJob) error
	FindJob(ctx context.Context, taskID string) (*model.ReminderJob, error)
	ClaimJob(ctx context.Context, taskID string, dueAt time.Time) (*model.ReminderJob, error)
	FinishJob(ctx context.Context, taskID string, from, to model.JobStatus, at time.Time, reason string) error
	ListJobs(ctx context.Context, status model.JobStatus) ([]*model.ReminderJob, error)
}

type Mailer interface {
	Send(ctx context.Context, email model.Email) error
}

type Config struct {
	// Horizon is the longest delay the dispatcher will hold a timer for.
	Horizon time.Duration
	// Grace is how late a pending job may still be delivered by the sweep.
	Grace       time.Duration
	SweepSpec   string
	SendTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Horizon:     30 * 24 * time.Hour,
		Grace:       time.Hour,
		SweepSpec:   "@every 1m",
		SendTimeout: 30 * time.Second,
	}
}

type armedTimer struct {
	timer *time.Timer
	dueAt time.Time
}

// SweepResult counts what one sweep did with overdue pending jobs.
type SweepResult struct {
	Fired  int `json:"fired"`
	Missed int `json:"missed"`
}

// ArmedReminder is one entry of the in-process timer table.
type ArmedReminder struct {
	TaskID string    `json:"task_id"`
	DueAt  time.Time `json:"due_at"`
}

// Dispatcher delivers reminder emails at their scheduled instant. Every armed
// delivery is persisted as a ReminderJob so it can be inspected, cancelled and
// recovered after a restart.
type Dispatcher struct {
	tasks  TaskSource
	jobs   JobStore
	mailer Mailer
	cfg    Config
	now    func() time.Time

	mu      sync.Mutex
	armed   map[string]*armedTimer
	cron    *rcron.Cron
	baseCtx context.Context
}

func NewDispatcher(tasks TaskSource, jobs JobStore, mailer Mailer, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Horizon <= 0 {
		cfg.Horizon = def.Horizon
	}
	if cfg.Grace <= 0 {
		cfg.Grace = def.Grace
	}
	if cfg.SweepSpec == "" {
		cfg.SweepSpec = def.SweepSpec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	return &Dispatcher{
		tasks:   tasks,
		jobs:    jobs,
		mailer:  mailer,
		cfg:     cfg,
		now:     time.Now,
		armed:   make(map[string]*armedTimer),
		baseCtx: context.Background(),
	}
}

// WithClock replaces the time source used for delays and history timestamps.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Arm schedules delivery of the task's next reminder to recipient, replacing
// any earlier schedule for the task. Problems are logged, never returned.
func (d *Dispatcher) Arm(ctx context.Context, task *model.Task, recipient string) {
	next := task.NextReminderDueAt()
	if next == nil || task.Completed {
		return
	}
	log := utils.Logger.With(zap.String("task_id", task.ID))

	now := d.now()
	delay := next.Sub(now)
	if delay <= 0 {
		log.Debug("reminder instant already passed, not arming", zap.Time("due_at", *next))
		return
	}
	if delay > d.cfg.Horizon {
		d.Cancel(task.ID)
		log.Info("reminder beyond scheduling horizon, skipped",
			zap.Time("due_at", *next), zap.Duration("horizon", d.cfg.Horizon))
		utils.TrackReminderDelivery("skipped")
		return
	}
	if recipient == "" {
		log.Warn("no recipient for reminder, skipped")
		utils.TrackReminderDelivery("skipped")
		return
	}

	job := &model.ReminderJob{
		TaskID:    task.ID,
		DueAt:     next.Truncate(time.Millisecond),
		Recipient: recipient,
		Status:    model.JobPending,
		ArmedAt:   now,
	}
	if err := d.jobs.SaveJob(ctx, job); err != nil {
		log.Error("failed to persist reminder job", zap.Error(err))
		utils.TrackError("reminder", "job_save_failed")
		return
	}
	d.schedule(job.TaskID, job.DueAt, delay)
	log.Info("reminder armed", zap.Time("due_at", job.DueAt), zap.Duration("in", delay))
}

// Cancel stops any armed delivery for the task. It is a no-op when nothing is armed.
func (d *Dispatcher) Cancel(taskID string) {
	d.stopTimer(taskID)

	ctx, cancel := context.WithTimeout(d.baseContext(), 5*time.Second)
	defer cancel()
	if err := d.jobs.FinishJob(ctx, taskID, model.JobPending, model.JobCancelled, d.now(), ""); err != nil {
		utils.Error("failed to cancel reminder job", err, zap.String("task_id", taskID))
	}
}

// SendNow delivers an unscheduled reminder immediately without touching reminder state.
func (d *Dispatcher) SendNow(ctx context.Context, task *model.Task, recipient string) error {
	email, err := ComposeManualReminder(task, recipient)
	if err != nil {
		return err
	}
	if err := d.mailer.Send(ctx, email); err != nil {
		utils.TrackReminderDelivery("failed")
		return err
	}
	utils.TrackReminderDelivery("sent")
	utils.Info("manual reminder sent", zap.String("task_id", task.ID))
	return nil
}

// Pending returns the reminders currently held on in-process timers, soonest first.
func (d *Dispatcher) Pending() []ArmedReminder {
	d.mu.Lock()
	out := make([]ArmedReminder, 0, len(d.armed))
	for id, a := range d.armed {
		out = append(out, ArmedReminder{TaskID: id, DueAt: a.dueAt})
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out
}

// Start re-arms timers for jobs that survived a restart and begins the periodic sweep.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()

	if err := d.recover(ctx); err != nil {
		return err
	}

	c := rcron.New()
	if _, err := c.AddFunc(d.cfg.SweepSpec, func() {
		if _, err := d.Sweep(ctx); err != nil {
			utils.Error("reminder sweep failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", d.cfg.SweepSpec, err)
	}
	c.Start()

	d.mu.Lock()
	d.cron = c
	d.mu.Unlock()

	utils.Info("reminder dispatcher started", zap.String("sweep", d.cfg.SweepSpec))
	return nil
}

// Stop halts the sweep, waits for a running sweep to finish and drops every timer.
// Persisted jobs stay pending so the next Start picks them up.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	for id, a := range d.armed {
		a.timer.Stop()
		delete(d.armed, id)
	}
	utils.SetArmedReminders(0)
	d.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Sweep delivers pending jobs whose instant passed within the grace window and
// marks older ones missed.
func (d *Dispatcher) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	jobs, err := d.jobs.ListJobs(ctx, model.JobPending)
	if err != nil {
		return res, err
	}

	now := d.now()
	for _, job := range jobs {
		if job.DueAt.After(now) {
			continue
		}
		d.stopTimerAt(job.TaskID, job.DueAt)

		if now.Sub(job.DueAt) <= d.cfg.Grace {
			if d.deliver(ctx, job.TaskID, job.DueAt) {
				res.Fired++
			}
			continue
		}

		if err := d.jobs.FinishJob(ctx, job.TaskID, model.JobPending, model.JobMissed, now, "delivery window passed"); err != nil {
			utils.Error("failed to mark reminder missed", err, zap.String("task_id", job.TaskID))
			continue
		}
		if err := d.tasks.ClearNextReminder(ctx, job.TaskID); err != nil {
			utils.Error("failed to clear missed reminder", err, zap.String("task_id", job.TaskID))
		}
		utils.TrackReminderDelivery("missed")
		utils.Warn("reminder missed", zap.String("task_id", job.TaskID), zap.Time("due_at", job.DueAt))
		res.Missed++
	}
	return res, nil
}

func (d *Dispatcher) recover(ctx context.Context) error {
	now := d.now()

	firing, err := d.jobs.ListJobs(ctx, model.JobFiring)
	if err != nil {
		return fmt.Errorf("list interrupted reminder jobs: %w", err)
	}
	for _, job := range firing {
		if err := d.jobs.FinishJob(ctx, job.TaskID, model.JobFiring, model.JobFailed, now, "interrupted by shutdown"); err != nil {
			utils.Error("failed to close interrupted reminder job", err, zap.String("task_id", job.TaskID))
		}
	}

	pending, err := d.jobs.ListJobs(ctx, model.JobPending)
	if err != nil {
		return fmt.Errorf("list pending reminder jobs: %w", err)
	}
	restored := 0
	for _, job := range pending {
		delay := job.DueAt.Sub(now)
		if delay <= 0 || delay > d.cfg.Horizon {
			continue
		}
		d.schedule(job.TaskID, job.DueAt, delay)
		restored++
	}
	utils.Info("reminder jobs recovered", zap.Int("armed", restored), zap.Int("interrupted", len(firing)))
	return nil
}

func (d *Dispatcher) schedule(taskID string, dueAt time.Time, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.armed[taskID]; ok {
		prev.timer.Stop()
	}
	entry := &armedTimer{dueAt: dueAt}
	entry.timer = time.AfterFunc(delay, func() {
		d.fire(taskID, dueAt)
	})
	d.armed[taskID] = entry
	utils.SetArmedReminders(len(d.armed))
}

func (d *Dispatcher) fire(taskID string, dueAt time.Time) {
	d.stopTimerAt(taskID, dueAt)

	ctx, cancel := context.WithTimeout(d.baseContext(), d.cfg.SendTimeout)
	defer cancel()
	d.deliver(ctx, taskID, dueAt)
}

// deliver runs one claimed delivery and reports whether an email was attempted.
func (d *Dispatcher) deliver(ctx context.Context, taskID string, dueAt time.Time) bool {
	log := utils.Logger.With(zap.String("task_id", taskID))

	job, err := d.jobs.ClaimJob(ctx, taskID, dueAt)
	if err != nil {
		log.Error("failed to claim reminder job", zap.Error(err))
		return false
	}
	if job == nil {
		return false
	}

	task, err := d.tasks.FindTask(ctx, taskID)
	if err != nil {
		reason := "task lookup failed"
		if errors.Is(err, repository.ErrNotFound) {
			reason = "task deleted"
		}
		d.finish(ctx, taskID, model.JobSkipped, reason)
		return false
	}
	if reason := staleReason(task, dueAt); reason != "" {
		log.Info("stale reminder skipped", zap.String("reason", reason))
		d.finish(ctx, taskID, model.JobSkipped, reason)
		utils.TrackReminderDelivery("skipped")
		return false
	}

	state := task.ReminderState
	number, total := state.NextNumber(), state.TotalReminders
	email, err := ComposeReminder(task, job.Recipient, number, total)
	if err == nil {
		err = d.mailer.Send(ctx, email)
	}

	entry := model.ReminderHistoryEntry{SentAt: d.now(), ReminderNumber: number, Status: model.DeliverySent}
	status, reason := model.JobSent, ""
	if err != nil {
		entry.Status = model.DeliveryFailed
		status, reason = model.JobFailed, err.Error()
		log.Error("reminder delivery failed", zap.Int("reminder", number), zap.Error(err))
	} else {
		log.Info("reminder sent", zap.Int("reminder", number), zap.Int("total", total))
	}
	utils.TrackReminderDelivery(string(entry.Status))

	if err := d.tasks.RecordReminderDelivery(ctx, taskID, entry); err != nil {
		log.Error("failed to record reminder delivery", zap.Error(err))
		utils.TrackError("reminder", "record_failed")
	}
	d.finish(ctx, taskID, status, reason)
	return true
}

func (d *Dispatcher) finish(ctx context.Context, taskID string, to model.JobStatus, reason string) {
	if err := d.jobs.FinishJob(ctx, taskID, model.JobFiring, to, d.now(), reason); err != nil {
		utils.Error("failed to finish reminder job", err, zap.String("task_id", taskID))
	}
}

// staleReason explains why a job no longer matches its task, or returns "".
func staleReason(task *model.Task, dueAt time.Time) string {
	switch {
	case task.Completed:
		return "task completed"
	case task.ReminderState == nil:
		return "reminders disabled"
	case task.ReminderState.Exhausted():
		return "reminders exhausted"
	case task.NextReminderDueAt() == nil:
		return "reminder disarmed"
	case !task.NextReminderDueAt().Truncate(time.Millisecond).Equal(dueAt):
		return "reminder rescheduled"
	}
	return ""
}

func (d *Dispatcher) baseContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseCtx
}

func (d *Dispatcher) stopTimer(taskID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a, ok := d.armed[taskID]; ok {
		a.timer.Stop()
		delete(d.armed, taskID)
		utils.SetArmedReminders(len(d.armed))
	}
}

// stopTimerAt drops the timer only if it still targets dueAt, leaving a newer schedule alone.
func (d *Dispatcher) stopTimerAt(taskID string, dueAt time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a, ok := d.armed[taskID]; ok && a.dueAt.Equal(dueAt) {
		a.timer.Stop()
		delete(d.armed, taskID)
		utils.SetArmedReminders(len(d.armed))
	}
}
