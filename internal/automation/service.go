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

// RuleService 工作流规则管理服务
type RuleService struct {
	*common.BaseService
}

// NewRuleService 创建规则管理服务
func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{BaseService: common.NewBaseService(db)}
}

// AutoMigrate 自动迁移自动化相关表
func (s *RuleService) AutoMigrate() error {
	return s.DB.AutoMigrate(&WorkflowRule{}, &WorkflowExecution{}, &AutomatedTask{})
}

// ============================================================================
// 规则 CRUD
// ============================================================================

// CreateRule 创建规则，初始状态为 draft
func (s *RuleService) CreateRule(ctx context.Context, rule *WorkflowRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Status == "" {
		rule.Status = RuleDraft
	}
	if rule.Status != RuleDraft {
		return &InvalidTransition{Entity: "工作流规则", From: string(rule.Status), Op: "创建"}
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := s.Create(ctx, rule); err != nil {
		return fmt.Errorf("创建工作流规则失败: %w", err)
	}
	return nil
}

// GetRule 查询单条规则
func (s *RuleService) GetRule(ctx context.Context, tenantID, ruleID string) (*WorkflowRule, error) {
	var rule WorkflowRule
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", ruleID).
		First(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("工作流规则不存在: %w", err)
		}
		return nil, fmt.Errorf("查询工作流规则失败: %w", err)
	}
	return &rule, nil
}

// ListRulesRequest 规则列表查询请求
type ListRulesRequest struct {
	TenantID    string
	Status      string
	TriggerType string
	common.PaginationRequest
}

// ListRules 分页查询规则，按优先级倒序、创建时间正序
func (s *RuleService) ListRules(ctx context.Context, req *ListRulesRequest) ([]*WorkflowRule, int64, error) {
	query := s.GetDBWithContext(ctx).
		Model(&WorkflowRule{}).
		Scopes(common.ByTenant(req.TenantID))

	query = s.ApplyStatusFilter(query, req.Status)
	if req.TriggerType != "" {
		query = query.Where("trigger_type = ?", req.TriggerType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计规则数量失败: %w", err)
	}

	var rules []*WorkflowRule
	err := query.
		Order("priority DESC, created_at ASC").
		Offset(req.GetOffset()).
		Limit(req.GetPageSize()).
		Find(&rules).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询规则列表失败: %w", err)
	}
	return rules, total, nil
}

// UpdateRuleRequest 规则更新请求，nil 字段不变更
type UpdateRuleRequest struct {
	Name              *string
	Description       *string
	TriggerType       *string
	TriggerConditions []byte
	Actions           []byte
	Priority          *int
	DelayMinutes      *int
}

// UpdateRule 更新规则定义字段（状态迁移走 Activate/Deactivate）
func (s *RuleService) UpdateRule(ctx context.Context, tenantID, ruleID string, req *UpdateRuleRequest) (*WorkflowRule, error) {
	if _, err := s.GetRule(ctx, tenantID, ruleID); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.TriggerType != nil {
		updates["trigger_type"] = *req.TriggerType
	}
	if req.TriggerConditions != nil {
		updates["trigger_conditions"] = req.TriggerConditions
	}
	if req.Actions != nil {
		updates["actions"] = req.Actions
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.DelayMinutes != nil {
		if *req.DelayMinutes < 0 {
			return nil, fmt.Errorf("延迟分钟数不能为负")
		}
		updates["delay_minutes"] = *req.DelayMinutes
	}
	updates["updated_at"] = time.Now().UTC()

	err := s.GetDBWithContext(ctx).
		Model(&WorkflowRule{}).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", ruleID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("更新工作流规则失败: %w", err)
	}

	return s.GetRule(ctx, tenantID, ruleID)
}

// DeleteRule 硬删除规则
// 已产生的执行记录保留不动：审计轨迹优先于引用整洁。
func (s *RuleService) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	result := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", ruleID).
		Delete(&WorkflowRule{})
	if result.Error != nil {
		return fmt.Errorf("删除工作流规则失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("工作流规则不存在: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// ============================================================================
// 状态迁移
// ============================================================================

// ruleTransitions 允许的状态迁移表；任何状态都不会回到 draft
var ruleTransitions = map[RuleStatus][]RuleStatus{
	RuleDraft:    {RuleActive, RuleInactive},
	RuleActive:   {RuleInactive},
	RuleInactive: {RuleActive},
}

func transitionAllowed(from, to RuleStatus) bool {
	for _, t := range ruleTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// transition 执行状态迁移，非法迁移返回 *InvalidTransition
func (s *RuleService) transition(ctx context.Context, tenantID, ruleID string, to RuleStatus, op string) (*WorkflowRule, error) {
	rule, err := s.GetRule(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(rule.Status, to) {
		return nil, &InvalidTransition{Entity: "工作流规则", From: string(rule.Status), Op: op}
	}

	err = s.GetDBWithContext(ctx).
		Model(&WorkflowRule{}).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", ruleID).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("更新规则状态失败: %w", err)
	}

	rule.Status = to
	return rule, nil
}

// ActivateRule 启用规则（draft/inactive → active）
func (s *RuleService) ActivateRule(ctx context.Context, tenantID, ruleID string) (*WorkflowRule, error) {
	return s.transition(ctx, tenantID, ruleID, RuleActive, "启用")
}

// DeactivateRule 停用规则（draft/active → inactive）
func (s *RuleService) DeactivateRule(ctx context.Context, tenantID, ruleID string) (*WorkflowRule, error) {
	return s.transition(ctx, tenantID, ruleID, RuleInactive, "停用")
}

// ============================================================================
// 执行记录
// ============================================================================

// ListExecutionsRequest 执行记录列表查询请求
type ListExecutionsRequest struct {
	TenantID string
	RuleID   string
	Status   string
	common.PaginationRequest
}

// ListExecutions 分页查询执行记录，按创建时间倒序
// 规则被删除后靠 rule_name 快照展示，快照为空时降级为 "unknown rule"
func (s *RuleService) ListExecutions(ctx context.Context, req *ListExecutionsRequest) ([]*WorkflowExecution, int64, error) {
	query := s.GetDBWithContext(ctx).
		Model(&WorkflowExecution{}).
		Scopes(common.ByTenant(req.TenantID))

	if req.RuleID != "" {
		query = query.Where("workflow_rule_id = ?", req.RuleID)
	}
	query = s.ApplyStatusFilter(query, req.Status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计执行记录失败: %w", err)
	}

	var executions []*WorkflowExecution
	err := query.
		Order("created_at DESC").
		Offset(req.GetOffset()).
		Limit(req.GetPageSize()).
		Find(&executions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询执行记录失败: %w", err)
	}

	for _, e := range executions {
		if e.RuleName == "" {
			e.RuleName = "unknown rule"
		}
	}
	return executions, total, nil
}

// AutomationStats 自动化总体统计
type AutomationStats struct {
	TotalRules          int64 `json:"totalRules"`
	ActiveRules         int64 `json:"activeRules"`
	TotalExecutions     int64 `json:"totalExecutions"`
	RunningExecutions   int64 `json:"runningExecutions"`
	CompletedExecutions int64 `json:"completedExecutions"`
	FailedExecutions    int64 `json:"failedExecutions"`

	// completed / total × 100，四舍五入到整数；无执行记录时报 0
	SuccessRate int `json:"successRate"`
}

// Stats 统计规则与执行概况
func (s *RuleService) Stats(ctx context.Context, tenantID string) (*AutomationStats, error) {
	var stats AutomationStats

	db := s.GetDBWithContext(ctx)

	if err := db.Model(&WorkflowRule{}).Scopes(common.ByTenant(tenantID)).Count(&stats.TotalRules).Error; err != nil {
		return nil, fmt.Errorf("统计规则数量失败: %w", err)
	}
	if err := db.Model(&WorkflowRule{}).Scopes(common.ByTenant(tenantID), common.ActiveOnly()).
		Count(&stats.ActiveRules).Error; err != nil {
		return nil, fmt.Errorf("统计启用规则数量失败: %w", err)
	}

	type statusCount struct {
		Status ExecutionStatus
		Count  int64
	}
	var counts []statusCount
	err := db.Model(&WorkflowExecution{}).
		Scopes(common.ByTenant(tenantID)).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("统计执行记录失败: %w", err)
	}

	for _, c := range counts {
		stats.TotalExecutions += c.Count
		switch c.Status {
		case ExecutionRunning:
			stats.RunningExecutions = c.Count
		case ExecutionCompleted:
			stats.CompletedExecutions = c.Count
		case ExecutionFailed:
			stats.FailedExecutions = c.Count
		}
	}

	if stats.TotalExecutions > 0 {
		rate := float64(stats.CompletedExecutions) / float64(stats.TotalExecutions) * 100
		stats.SuccessRate = int(math.Round(rate))
	}

	return &stats, nil
}
