package dto

import (
	"time"

	"remindly/model"
)

type CreateTaskRequest struct {
	Title             string                  `json:"title" binding:"required,max=200"`
	DueDate           string                  `json:"due_date" binding:"required"`
	DueTime           string                  `json:"due_time" binding:"required,hhmm"`
	Owner             string                  `json:"owner"`
	ReminderType      model.ReminderType      `json:"reminder_type" binding:"omitempty,reminder_type"`
	ReminderFrequency model.ReminderFrequency `json:"reminder_frequency" binding:"omitempty,reminder_frequency"`
}

func (r CreateTaskRequest) ToInput() model.TaskInput {
	return model.TaskInput{
		Title:             r.Title,
		DueDate:           r.DueDate,
		DueTime:           r.DueTime,
		Owner:             r.Owner,
		ReminderType:      r.ReminderType,
		ReminderFrequency: r.ReminderFrequency,
	}
}

// UpdateTaskRequest carries only the fields the caller wants changed.
type UpdateTaskRequest struct {
	Title             *string                  `json:"title" binding:"omitempty,max=200"`
	DueDate           *string                  `json:"due_date"`
	DueTime           *string                  `json:"due_time" binding:"omitempty,hhmm"`
	Completed         *bool                    `json:"completed"`
	ReminderType      *model.ReminderType      `json:"reminder_type" binding:"omitempty,reminder_type"`
	ReminderFrequency *model.ReminderFrequency `json:"reminder_frequency"`
}

func (r UpdateTaskRequest) ToPatch() model.TaskPatch {
	return model.TaskPatch{
		Title:             r.Title,
		DueDate:           r.DueDate,
		DueTime:           r.DueTime,
		Completed:         r.Completed,
		ReminderType:      r.ReminderType,
		ReminderFrequency: r.ReminderFrequency,
	}
}

type TaskListQuery struct {
	Filter           string `form:"filter" binding:"omitempty,oneof=today upcoming overdue"`
	IncludeCompleted bool   `form:"include_completed"`
}

type TaskResponse struct {
	model.Task
	Overdue      bool   `json:"overdue"`
	TimeUntilDue string `json:"time_until_due,omitempty"`
}

// MarshalJSON keeps the task's own date rendering and appends the computed fields.
func (r TaskResponse) MarshalJSON() ([]byte, error) {
	return marshalMerged(r.Task, struct {
		Overdue      bool   `json:"overdue"`
		TimeUntilDue string `json:"time_until_due,omitempty"`
	}{r.Overdue, r.TimeUntilDue})
}

func ToTaskResponse(task *model.Task, now time.Time) TaskResponse {
	response := TaskResponse{Task: *task, Overdue: task.Overdue(now)}
	if !task.Completed {
		if response.Overdue {
			response.TimeUntilDue = "Overdue"
		} else {
			response.TimeUntilDue = task.DueAt.Sub(now).Round(time.Minute).String()
		}
	}
	return response
}

func ToTaskResponses(tasks []*model.Task, now time.Time) []TaskResponse {
	responses := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = ToTaskResponse(task, now)
	}
	return responses
}
