package handler

import (
	"time"

	"remindly/dto"
	"remindly/middleware"
	"remindly/usecase"
	"remindly/utils"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	service *usecase.TaskService
	now     func() time.Time
}

func NewTaskHandler(service *usecase.TaskService) *TaskHandler {
	return &TaskHandler{service: service, now: time.Now}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.service.Create(c.Request.Context(), caller, req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, dto.ToTaskResponse(task, h.now()))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	task, err := h.service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, dto.ToTaskResponse(task, h.now()))
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	var query dto.TaskListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	tasks, err := h.service.List(c.Request.Context(), caller, usecase.TaskQuery{
		Filter:           query.Filter,
		IncludeCompleted: query.IncludeCompleted,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"tasks": dto.ToTaskResponses(tasks, h.now()),
		"count": len(tasks),
	})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.service.Update(c.Request.Context(), caller, c.Param("id"), req.ToPatch())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, dto.ToTaskResponse(task, h.now()))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Task deleted", nil)
}

func (h *TaskHandler) GetStats(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		utils.Unauthorized(c, "Missing user ID")
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, stats)
}
