package automation

import (
	"context"
	"errors"
	"io"

	"backend/internal/automation"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RuleHandler 工作流规则处理器
type RuleHandler struct {
	rules  *automation.RuleService
	engine *automation.Engine
}

// NewRuleHandler 创建工作流规则处理器
func NewRuleHandler(rules *automation.RuleService, engine *automation.Engine) *RuleHandler {
	return &RuleHandler{rules: rules, engine: engine}
}

// CreateRuleBody 创建规则请求
type CreateRuleBody struct {
	Name              string         `json:"name" binding:"required"`
	Description       string         `json:"description"`
	TriggerType       string         `json:"triggerType" binding:"required"`
	TriggerConditions map[string]any `json:"triggerConditions"`
	Actions           []any          `json:"actions"`
	Priority          int            `json:"priority"`
	DelayMinutes      int            `json:"delayMinutes"`
}

// CreateRule 创建工作流规则（初始状态固定为 draft）
// POST /api/v1/automation/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body CreateRuleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	rule := &automation.WorkflowRule{
		TenantID:     tenantID,
		Name:         body.Name,
		Description:  body.Description,
		TriggerType:  body.TriggerType,
		Priority:     body.Priority,
		DelayMinutes: body.DelayMinutes,
	}
	if body.TriggerConditions != nil {
		raw, err := marshalJSON(body.TriggerConditions)
		if err != nil {
			common.ResponseBadRequest(c, "触发条件格式无效")
			return
		}
		rule.TriggerConditions = raw
	}
	if body.Actions != nil {
		raw, err := marshalJSON(body.Actions)
		if err != nil {
			common.ResponseBadRequest(c, "动作负载格式无效")
			return
		}
		rule.Actions = raw
	}

	if err := h.rules.CreateRule(c.Request.Context(), rule); err != nil {
		common.ResponseError(c, common.CodeRuleValidationFailed, err.Error())
		return
	}

	common.ResponseCreated(c, rule)
}

// GetRule 查询单条规则
// GET /api/v1/automation/rules/:id
func (h *RuleHandler) GetRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	rule, err := h.rules.GetRule(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeRuleNotFound, common.GetErrorMessage(common.CodeRuleNotFound))
			return
		}
		common.ResponseServerError(c, "查询工作流规则失败")
		return
	}

	common.ResponseSuccess(c, rule)
}

// ListRules 分页查询规则列表
// GET /api/v1/automation/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	req := &automation.ListRulesRequest{
		TenantID:    tenantID,
		Status:      c.Query("status"),
		TriggerType: c.Query("trigger_type"),
	}
	if err := c.ShouldBindQuery(&req.PaginationRequest); err != nil {
		common.ResponseBadRequest(c, "分页参数无效")
		return
	}

	rules, total, err := h.rules.ListRules(c.Request.Context(), req)
	if err != nil {
		common.ResponseServerError(c, "查询工作流规则失败")
		return
	}

	common.ResponseList(c, rules, total, &req.PaginationRequest)
}

// UpdateRuleBody 更新规则请求，缺省字段不变更
type UpdateRuleBody struct {
	Name              *string        `json:"name"`
	Description       *string        `json:"description"`
	TriggerType       *string        `json:"triggerType"`
	TriggerConditions map[string]any `json:"triggerConditions"`
	Actions           []any          `json:"actions"`
	Priority          *int           `json:"priority"`
	DelayMinutes      *int           `json:"delayMinutes"`
}

// UpdateRule 更新规则定义（状态迁移走 activate/deactivate）
// PUT /api/v1/automation/rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body UpdateRuleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	req := &automation.UpdateRuleRequest{
		Name:         body.Name,
		Description:  body.Description,
		TriggerType:  body.TriggerType,
		Priority:     body.Priority,
		DelayMinutes: body.DelayMinutes,
	}
	if body.TriggerConditions != nil {
		raw, err := marshalJSON(body.TriggerConditions)
		if err != nil {
			common.ResponseBadRequest(c, "触发条件格式无效")
			return
		}
		req.TriggerConditions = raw
	}
	if body.Actions != nil {
		raw, err := marshalJSON(body.Actions)
		if err != nil {
			common.ResponseBadRequest(c, "动作负载格式无效")
			return
		}
		req.Actions = raw
	}

	rule, err := h.rules.UpdateRule(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeRuleNotFound, common.GetErrorMessage(common.CodeRuleNotFound))
			return
		}
		common.ResponseError(c, common.CodeRuleValidationFailed, err.Error())
		return
	}

	common.ResponseSuccess(c, rule)
}

// DeleteRule 删除规则（硬删除，执行记录保留）
// DELETE /api/v1/automation/rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	if err := h.rules.DeleteRule(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeRuleNotFound, common.GetErrorMessage(common.CodeRuleNotFound))
			return
		}
		common.ResponseServerError(c, "删除工作流规则失败")
		return
	}

	common.ResponseNoContent(c)
}

// ActivateRule 启用规则
// POST /api/v1/automation/rules/:id/activate
func (h *RuleHandler) ActivateRule(c *gin.Context) {
	h.transition(c, h.rules.ActivateRule)
}

// DeactivateRule 停用规则
// POST /api/v1/automation/rules/:id/deactivate
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	h.transition(c, h.rules.DeactivateRule)
}

func (h *RuleHandler) transition(c *gin.Context, fn func(ctx context.Context, tenantID, ruleID string) (*automation.WorkflowRule, error)) {
	tenantID := c.GetString("tenant_id")

	rule, err := fn(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeRuleNotFound, common.GetErrorMessage(common.CodeRuleNotFound))
			return
		}
		var denied *automation.InvalidTransition
		if errors.As(err, &denied) {
			common.ResponseError(c, common.CodeRuleTransitionDenied, denied.Error())
			return
		}
		common.ResponseServerError(c, "规则状态变更失败")
		return
	}

	common.ResponseSuccess(c, rule)
}

// TriggerRuleBody 规则触发请求
type TriggerRuleBody struct {
	Context map[string]any `json:"context"`
}

// TriggerRule 手动触发单条规则
// POST /api/v1/automation/rules/:id/trigger
func (h *RuleHandler) TriggerRule(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body TriggerRuleBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.engine.Trigger(c.Request.Context(), tenantID, c.Param("id"), body.Context)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeRuleNotFound, common.GetErrorMessage(common.CodeRuleNotFound))
			return
		}
		var denied *automation.InvalidTransition
		if errors.As(err, &denied) {
			common.ResponseError(c, common.CodeRuleTransitionDenied, denied.Error())
			return
		}
		common.ResponseError(c, common.CodeExecutionFailed, err.Error())
		return
	}

	common.ResponseSuccess(c, result)
}

// TriggerByTypeBody 按触发器类型批量触发请求
type TriggerByTypeBody struct {
	TriggerType string         `json:"triggerType" binding:"required"`
	Context     map[string]any `json:"context"`
}

// TriggerByType 按触发器类型触发所有匹配的启用规则
// POST /api/v1/automation/trigger
func (h *RuleHandler) TriggerByType(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body TriggerByTypeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	results, err := h.engine.TriggerByType(c.Request.Context(), tenantID, body.TriggerType, body.Context)
	if err != nil {
		common.ResponseError(c, common.CodeExecutionFailed, err.Error())
		return
	}

	common.ResponseSuccess(c, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// ListExecutions 分页查询执行记录
// GET /api/v1/automation/executions
func (h *RuleHandler) ListExecutions(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	req := &automation.ListExecutionsRequest{
		TenantID: tenantID,
		RuleID:   c.Query("rule_id"),
		Status:   c.Query("status"),
	}
	if err := c.ShouldBindQuery(&req.PaginationRequest); err != nil {
		common.ResponseBadRequest(c, "分页参数无效")
		return
	}

	executions, total, err := h.rules.ListExecutions(c.Request.Context(), req)
	if err != nil {
		common.ResponseServerError(c, "查询执行记录失败")
		return
	}

	common.ResponseList(c, executions, total, &req.PaginationRequest)
}

// GetStats 自动化总体统计
// GET /api/v1/automation/stats
func (h *RuleHandler) GetStats(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	stats, err := h.rules.Stats(c.Request.Context(), tenantID)
	if err != nil {
		common.ResponseServerError(c, "统计自动化概况失败")
		return
	}

	common.ResponseSuccess(c, stats)
}
