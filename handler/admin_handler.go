package handler

import (
	"time"

	"remindly/dto"
	"remindly/reminder"
	"remindly/usecase"
	"remindly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ArmedLister exposes the reminders currently waiting on a timer.
type ArmedLister interface {
	Pending() []reminder.ArmedReminder
}

type AdminHandler struct {
	service *usecase.AdminService
	armed   ArmedLister
	now     func() time.Time
}

func NewAdminHandler(service *usecase.AdminService, armed ArmedLister) *AdminHandler {
	return &AdminHandler{service: service, armed: armed, now: time.Now}
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.service.UserStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"users": users, "total_users": len(users)})
}

func (h *AdminHandler) GetUserDetails(c *gin.Context) {
	detail, err := h.service.OwnerDetail(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, detail)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req dto.UserActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.service.UserAction(c.Request.Context(), c.Param("userId"), req.Action, req.TaskIDs, req.NewUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "User tasks updated", res)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	var req dto.DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID := c.Param("userId")
	deleted, err := h.service.DeleteUser(c.Request.Context(), userID, req.ConfirmDelete)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Info("admin deleted user", zap.String("user_id", userID), zap.String("by", c.GetString("email")))
	utils.Message(c, "User and associated tasks deleted", dto.DeleteUserResponse{UserID: userID, DeletedTasks: deleted})
}

func (h *AdminHandler) GetTasks(c *gin.Context) {
	var query dto.AdminTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.service.ListTasks(c.Request.Context(), query.ToQuery())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"tasks":      dto.ToTaskResponses(page.Tasks, h.now()),
		"pagination": page.Pagination,
	})
}

func (h *AdminHandler) BulkUpdateTasks(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	mutation, err := req.Mutation()
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.service.BulkUpdate(c.Request.Context(), req.TaskIDs, mutation)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Bulk update completed", res)
}

func (h *AdminHandler) BulkDeleteTasks(c *gin.Context) {
	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	deleted, err := h.service.BulkDelete(c.Request.Context(), req.TaskIDs, req.ConfirmDelete)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Bulk delete completed", dto.BulkDeleteResponse{DeletedCount: deleted})
}

func (h *AdminHandler) GetSystemStats(c *gin.Context) {
	overview, err := h.service.SystemOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, overview)
}

func (h *AdminHandler) GetPendingReminders(c *gin.Context) {
	tasks, err := h.service.PendingReminders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{
		"tasks": dto.ToTaskResponses(tasks, h.now()),
		"count": len(tasks),
	})
}

func (h *AdminHandler) GetArmedReminders(c *gin.Context) {
	armed := h.armed.Pending()
	utils.Success(c, dto.ArmedReminderResponse{Count: len(armed), Reminders: armed})
}

func (h *AdminHandler) SendReminder(c *gin.Context) {
	taskID := c.Param("taskId")
	if err := h.service.SendManualReminder(c.Request.Context(), taskID); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Reminder sent", gin.H{"task_id": taskID})
}
