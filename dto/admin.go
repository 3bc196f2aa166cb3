package dto

import (
	"remindly/model"
	"remindly/usecase"
)

type AdminTasksQuery struct {
	Page         int64  `form:"page" binding:"omitempty,min=1"`
	Limit        int64  `form:"limit" binding:"omitempty,min=1"`
	Status       string `form:"status"`
	ReminderType string `form:"reminder_type"`
	UserID       string `form:"user_id"`
	Search       string `form:"search"`
	SortBy       string `form:"sort_by"`
	SortOrder    string `form:"sort_order"`
}

func (q AdminTasksQuery) ToQuery() usecase.AdminTaskQuery {
	return usecase.AdminTaskQuery{
		Page:         q.Page,
		Limit:        q.Limit,
		Status:       q.Status,
		ReminderType: q.ReminderType,
		Owner:        q.UserID,
		Search:       q.Search,
		SortBy:       q.SortBy,
		SortOrder:    q.SortOrder,
	}
}

type BulkUpdateRequest struct {
	TaskIDs      []string           `json:"task_ids" binding:"required,min=1,dive,required"`
	Action       string             `json:"action" binding:"required"`
	ReminderType model.ReminderType `json:"reminder_type"`
	UserID       string             `json:"user_id"`
	UpdateData   *UpdateTaskRequest `json:"update_data"`
}

// Mutation resolves the wire action into a typed bulk mutation.
func (r BulkUpdateRequest) Mutation() (model.TaskMutation, error) {
	var patch *model.TaskPatch
	if r.UpdateData != nil {
		p := r.UpdateData.ToPatch()
		patch = &p
	}
	return usecase.ParseBulkAction(r.Action, r.ReminderType, r.UserID, patch)
}

type BulkDeleteRequest struct {
	TaskIDs       []string `json:"task_ids" binding:"required,min=1,dive,required"`
	ConfirmDelete bool     `json:"confirm_delete"`
}

type UserActionRequest struct {
	Action    string   `json:"action" binding:"required"`
	TaskIDs   []string `json:"task_ids"`
	NewUserID string   `json:"new_user_id"`
}

type DeleteUserRequest struct {
	ConfirmDelete bool `json:"confirm_delete"`
}

type BulkDeleteResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

type DeleteUserResponse struct {
	UserID       string `json:"user_id"`
	DeletedTasks int64  `json:"deleted_tasks"`
}

type ArmedReminderResponse struct {
	Count     int         `json:"count"`
	Reminders interface{} `json:"reminders"`
}
