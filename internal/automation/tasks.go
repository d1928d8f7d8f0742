package automation

import (
	"context"
	"fmt"
	"math"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskState 任务在某一时刻的分类结果
type TaskState string

const (
	StatePending   TaskState = "pending"
	StateOverdue   TaskState = "overdue"
	StateCompleted TaskState = "completed"
)

// ClassifyTask 按墙钟时间对任务分类
// 已完成的任务无论截止时间多久以前都归为 completed，绝不回退；
// overdue 是每次读取时重算的谓词，不允许跨会话缓存。
func ClassifyTask(task *AutomatedTask, now time.Time) TaskState {
	if task.Status == TaskCompleted {
		return StateCompleted
	}
	if task.DueDate != nil && task.DueDate.Before(now) {
		return StateOverdue
	}
	return StatePending
}

// OverdueDays 逾期整天数，向上取整
// 截止时刻刚过即记 1 天（ceil 口径，与报表保持一致，勿改成 floor）。
func OverdueDays(task *AutomatedTask, now time.Time) int {
	if task.DueDate == nil || !now.After(*task.DueDate) {
		return 0
	}
	days := now.Sub(*task.DueDate).Hours() / 24
	return int(math.Ceil(days))
}

// TaskView 带分类结果的任务视图
type TaskView struct {
	AutomatedTask
	State       TaskState `json:"state"`
	OverdueDays int       `json:"overdueDays"`
}

// TaskService 自动化任务服务
type TaskService struct {
	*common.BaseService
}

// NewTaskService 创建任务服务
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{BaseService: common.NewBaseService(db)}
}

// CreateTask 创建任务
func (s *TaskService) CreateTask(ctx context.Context, task *AutomatedTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = TaskPending
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if err := s.Create(ctx, task); err != nil {
		return fmt.Errorf("创建自动化任务失败: %w", err)
	}
	return nil
}

// GetTask 查询单条任务
func (s *TaskService) GetTask(ctx context.Context, tenantID, taskID string) (*AutomatedTask, error) {
	var task AutomatedTask
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", taskID).
		First(&task).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("自动化任务不存在: %w", gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("查询自动化任务失败: %w", err)
	}
	return &task, nil
}

// ListTasks 列出租户下任务并附带分类结果，按优先级倒序、创建时间倒序
func (s *TaskService) ListTasks(ctx context.Context, tenantID string) ([]TaskView, error) {
	var taskList []*AutomatedTask
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Order("priority DESC, created_at DESC").
		Find(&taskList).Error
	if err != nil {
		return nil, fmt.Errorf("查询任务列表失败: %w", err)
	}

	now := time.Now().UTC()
	views := make([]TaskView, 0, len(taskList))
	for _, t := range taskList {
		views = append(views, TaskView{
			AutomatedTask: *t,
			State:         ClassifyTask(t, now),
			OverdueDays:   OverdueDays(t, now),
		})
	}
	return views, nil
}

// CompleteTask 完成任务，completed_at 只写入一次
// 已完成的任务重复完成返回 *InvalidTransition。
func (s *TaskService) CompleteTask(ctx context.Context, tenantID, taskID string) (*AutomatedTask, error) {
	task, err := s.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == TaskCompleted {
		return nil, &InvalidTransition{Entity: "自动化任务", From: string(task.Status), Op: "完成"}
	}

	now := time.Now().UTC()
	err = s.GetDBWithContext(ctx).
		Model(&AutomatedTask{}).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"status":       TaskCompleted,
			"completed_at": now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("完成任务失败: %w", err)
	}

	task.Status = TaskCompleted
	task.CompletedAt = &now
	return task, nil
}

// DeleteTask 删除任务，与任务状态无关
func (s *TaskService) DeleteTask(ctx context.Context, tenantID, taskID string) error {
	result := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", taskID).
		Delete(&AutomatedTask{})
	if result.Error != nil {
		return fmt.Errorf("删除任务失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("自动化任务不存在: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
