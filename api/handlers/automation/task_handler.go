package automation

import (
	"errors"
	"time"

	"backend/internal/automation"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TaskHandler 自动化任务处理器
type TaskHandler struct {
	tasks *automation.TaskService
}

// NewTaskHandler 创建自动化任务处理器
func NewTaskHandler(tasks *automation.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// CreateTaskBody 创建任务请求
type CreateTaskBody struct {
	Title          string     `json:"title" binding:"required"`
	WorkflowRuleID string     `json:"workflowRuleId"`
	Priority       int        `json:"priority"`
	DueDate        *time.Time `json:"dueDate"`
}

// CreateTask 手动创建自动化任务
// POST /api/v1/automation/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body CreateTaskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	task := &automation.AutomatedTask{
		TenantID:       tenantID,
		WorkflowRuleID: body.WorkflowRuleID,
		Title:          body.Title,
		Priority:       body.Priority,
		DueDate:        body.DueDate,
	}
	if err := h.tasks.CreateTask(c.Request.Context(), task); err != nil {
		common.ResponseBadRequest(c, err.Error())
		return
	}

	common.ResponseCreated(c, task)
}

// ListTasks 查询任务列表，逾期状态在读取时计算
// GET /api/v1/automation/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	views, err := h.tasks.ListTasks(c.Request.Context(), tenantID)
	if err != nil {
		common.ResponseServerError(c, "查询自动化任务失败")
		return
	}

	common.ResponseSuccess(c, gin.H{
		"tasks": views,
		"total": len(views),
	})
}

// CompleteTask 完成任务
// POST /api/v1/automation/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	task, err := h.tasks.CompleteTask(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeTaskNotFound, common.GetErrorMessage(common.CodeTaskNotFound))
			return
		}
		var denied *automation.InvalidTransition
		if errors.As(err, &denied) {
			common.ResponseError(c, common.CodeTaskAlreadyCompleted, denied.Error())
			return
		}
		common.ResponseServerError(c, "完成任务失败")
		return
	}

	common.ResponseSuccess(c, task)
}

// DeleteTask 删除任务（任何状态均可删除）
// DELETE /api/v1/automation/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	if err := h.tasks.DeleteTask(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeTaskNotFound, common.GetErrorMessage(common.CodeTaskNotFound))
			return
		}
		common.ResponseServerError(c, "删除任务失败")
		return
	}

	common.ResponseNoContent(c)
}
