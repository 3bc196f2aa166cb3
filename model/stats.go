package model

import "time"

// TaskStats is the per-user dashboard summary.
type TaskStats struct {
	Total            int64 `json:"total"`
	Completed        int64 `json:"completed"`
	Pending          int64 `json:"pending"`
	Today            int64 `json:"today"`
	Overdue          int64 `json:"overdue"`
	PendingReminders int64 `json:"pending_reminders"`
}

// OwnerTaskCounts is one row of the group-by-owner aggregation.
type OwnerTaskCounts struct {
	Owner            string     `bson:"_id" json:"owner"`
	TotalTasks       int64      `bson:"total_tasks" json:"total_tasks"`
	CompletedTasks   int64      `bson:"completed_tasks" json:"completed_tasks"`
	PendingTasks     int64      `bson:"pending_tasks" json:"pending_tasks"`
	OverdueTasks     int64      `bson:"overdue_tasks" json:"overdue_tasks"`
	FirstTaskCreated *time.Time `bson:"first_task_created" json:"first_task_created,omitempty"`
	LastTaskCreated  *time.Time `bson:"last_task_created" json:"last_task_created,omitempty"`
}

type UserTaskStats struct {
	UserID          string     `json:"user_id"`
	Email           string     `json:"email"`
	Name            string     `json:"name,omitempty"`
	TotalTasks      int64      `json:"total_tasks"`
	CompletedTasks  int64      `json:"completed_tasks"`
	CompletionRate  float64    `json:"completion_rate"`
	LastTaskCreated *time.Time `json:"last_task_created,omitempty"`
}

type ReminderTypeCount struct {
	ReminderType ReminderType `bson:"_id" json:"reminder_type"`
	Count        int64        `bson:"count" json:"count"`
}

type OwnerDetail struct {
	Owner                    string              `json:"owner"`
	Email                    string              `json:"email,omitempty"`
	TotalTasks               int64               `json:"total_tasks"`
	CompletedTasks           int64               `json:"completed_tasks"`
	PendingTasks             int64               `json:"pending_tasks"`
	OverdueTasks             int64               `json:"overdue_tasks"`
	CompletionRate           float64             `json:"completion_rate"`
	FirstTaskCreated         *time.Time          `json:"first_task_created,omitempty"`
	LastTaskCreated          *time.Time          `json:"last_task_created,omitempty"`
	ReminderTypeDistribution []ReminderTypeCount `json:"reminder_type_distribution"`
	RecentTasks              []*Task             `json:"recent_tasks"`
}

type SystemOverview struct {
	TotalUsers     int64 `json:"total_users"`
	TotalTasks     int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	PendingTasks   int64 `json:"pending_tasks"`
	TodayTasks     int64 `json:"today_tasks"`
}

// BulkResult reports how many records a bulk operation touched.
type BulkResult struct {
	Action        string `json:"action,omitempty"`
	MatchedCount  int64  `json:"matched_count"`
	ModifiedCount int64  `json:"modified_count"`
}

type Pagination struct {
	CurrentPage  int64 `json:"current_page"`
	TotalPages   int64 `json:"total_pages"`
	TotalTasks   int64 `json:"total_tasks"`
	TasksPerPage int64 `json:"tasks_per_page"`
	HasNextPage  bool  `json:"has_next_page"`
	HasPrevPage  bool  `json:"has_prev_page"`
}

type TaskPage struct {
	Tasks      []*Task    `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}
