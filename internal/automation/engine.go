package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/approval"
	"backend/internal/common"
	"backend/internal/infra/queue"
	"backend/internal/metrics"
	"backend/internal/worker/tasks"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine 工作流规则引擎
// 触发 → 执行记录 → 动作（内联或经队列延迟）。执行记录仅追加，
// 收口（completed/failed）精确一次。
type Engine struct {
	db          *gorm.DB
	rules       *RuleService
	taskService *TaskService
	approvalSvc *approval.Service
	queueClient queue.Client
	logger      *zap.Logger
}

// NewEngine 创建规则引擎
// queueClient 可为 nil，此时 delay_minutes 被忽略、动作全部内联执行（测试场景）。
func NewEngine(db *gorm.DB, approvalSvc *approval.Service, queueClient queue.Client, logger *zap.Logger) *Engine {
	return &Engine{
		db:          db,
		rules:       NewRuleService(db),
		taskService: NewTaskService(db),
		approvalSvc: approvalSvc,
		queueClient: queueClient,
		logger:      logger,
	}
}

// TriggerResult 一次触发的结果
type TriggerResult struct {
	RuleID    string             `json:"ruleId"`
	RuleName  string             `json:"ruleName"`
	Matched   bool               `json:"matched"`
	Deferred  bool               `json:"deferred"`
	Execution *WorkflowExecution `json:"execution,omitempty"`
}

// Trigger 触发单条规则
//
// 仅 active 规则允许触发；对非 active 规则触发返回 *InvalidTransition
// 且不产生任何执行记录——运营要能区分"没触发"和"触发了但没生效"。
// 条件不匹配时 Matched 为 false，同样不产生执行记录。
func (e *Engine) Trigger(ctx context.Context, tenantID, ruleID string, triggerCtx map[string]any) (*TriggerResult, error) {
	rule, err := e.rules.GetRule(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}

	if rule.Status != RuleActive {
		metrics.RuleTriggersTotal.WithLabelValues(rule.TriggerType, "rejected").Inc()
		return nil, &InvalidTransition{Entity: "工作流规则", From: string(rule.Status), Op: "触发"}
	}

	matched, err := e.evaluateConditions(rule, triggerCtx)
	if err != nil {
		return nil, fmt.Errorf("评估触发条件失败: %w", err)
	}
	result := &TriggerResult{RuleID: rule.ID, RuleName: rule.Name, Matched: matched}
	if !matched {
		return result, nil
	}

	execution, err := e.createExecution(ctx, rule, triggerCtx)
	if err != nil {
		return nil, err
	}
	result.Execution = execution
	metrics.RuleTriggersTotal.WithLabelValues(rule.TriggerType, "fired").Inc()

	// delay_minutes > 0 且队列可用时延迟执行，执行记录保持 running 直到 worker 收口
	if rule.DelayMinutes > 0 && e.queueClient != nil {
		delay := time.Duration(rule.DelayMinutes) * time.Minute
		err := e.queueClient.EnqueueRuleActions(tasks.RunRuleActionsPayload{
			ExecutionID: execution.ID,
			TenantID:    tenantID,
		}, delay)
		if err != nil {
			// 入队失败立刻把执行收口为 failed，不留悬挂的 running 记录
			_ = e.CloseExecution(ctx, tenantID, execution.ID, ExecutionFailed, fmt.Sprintf("投递延迟任务失败: %v", err))
			return nil, fmt.Errorf("投递延迟任务失败: %w", err)
		}
		result.Deferred = true
		e.logger.Info("规则动作已延迟入队",
			zap.String("rule_id", rule.ID),
			zap.String("execution_id", execution.ID),
			zap.Int("delay_minutes", rule.DelayMinutes),
		)
		return result, nil
	}

	if err := e.RunActions(ctx, tenantID, execution.ID); err != nil {
		return result, err
	}

	// 重新读取收口后的执行记录返回给调用方
	closed, err := e.GetExecution(ctx, tenantID, execution.ID)
	if err == nil {
		result.Execution = closed
	}
	return result, nil
}

// TriggerByType 按触发器类型触发租户下全部 active 规则
// 规则按 priority 倒序逐条评估，互不影响：单条失败不阻断其余规则。
func (e *Engine) TriggerByType(ctx context.Context, tenantID, triggerType string, triggerCtx map[string]any) ([]*TriggerResult, error) {
	var rules []*WorkflowRule
	err := e.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID), common.ActiveOnly()).
		Where("trigger_type = ?", triggerType).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("查询触发规则失败: %w", err)
	}

	results := make([]*TriggerResult, 0, len(rules))
	for _, rule := range rules {
		result, err := e.Trigger(ctx, tenantID, rule.ID, triggerCtx)
		if err != nil {
			e.logger.Warn("规则触发失败，继续处理后续规则",
				zap.String("rule_id", rule.ID),
				zap.String("trigger_type", triggerType),
				zap.Error(err),
			)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// evaluateConditions 用 govaluate 对触发上下文求值；空表达式视为匹配
func (e *Engine) evaluateConditions(rule *WorkflowRule, triggerCtx map[string]any) (bool, error) {
	cond, err := rule.ParseConditions()
	if err != nil {
		return false, err
	}
	if cond.Expression == "" {
		return true, nil
	}

	expression, err := govaluate.NewEvaluableExpression(cond.Expression)
	if err != nil {
		return false, fmt.Errorf("解析表达式失败: %w", err)
	}

	parameters := make(map[string]any, len(triggerCtx))
	for k, v := range triggerCtx {
		parameters[k] = v
	}
	// 表达式引用了上下文里没有的变量时按 nil 求值，而不是直接报错
	for _, v := range expression.Vars() {
		if _, ok := parameters[v]; !ok {
			parameters[v] = nil
		}
	}

	value, err := expression.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("表达式求值失败: %w", err)
	}

	matched, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("触发条件必须是布尔表达式, 实际求值为 %v", value)
	}
	return matched, nil
}

// createExecution 写入 running 状态的执行记录
func (e *Engine) createExecution(ctx context.Context, rule *WorkflowRule, triggerCtx map[string]any) (*WorkflowExecution, error) {
	ctxJSON, err := json.Marshal(triggerCtx)
	if err != nil {
		return nil, fmt.Errorf("序列化触发上下文失败: %w", err)
	}

	execution := &WorkflowExecution{
		ID:             uuid.New().String(),
		TenantID:       rule.TenantID,
		WorkflowRuleID: rule.ID,
		RuleName:       rule.Name,
		TriggerType:    rule.TriggerType,
		Context:        ctxJSON,
		Status:         ExecutionRunning,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.db.WithContext(ctx).Create(execution).Error; err != nil {
		return nil, fmt.Errorf("创建执行记录失败: %w", err)
	}
	return execution, nil
}

// GetExecution 查询执行记录
func (e *Engine) GetExecution(ctx context.Context, tenantID, executionID string) (*WorkflowExecution, error) {
	var execution WorkflowExecution
	err := e.db.WithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", executionID).
		First(&execution).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("执行记录不存在: %w", gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("查询执行记录失败: %w", err)
	}
	return &execution, nil
}

// RunActions 执行某条执行记录对应规则的动作并收口
// worker 的延迟任务与内联路径共用此入口。
func (e *Engine) RunActions(ctx context.Context, tenantID, executionID string) error {
	execution, err := e.GetExecution(ctx, tenantID, executionID)
	if err != nil {
		return err
	}
	if execution.Status != ExecutionRunning {
		return &InvalidTransition{Entity: "执行记录", From: string(execution.Status), Op: "执行动作"}
	}

	// 规则可能在触发和延迟执行之间被删除，动作负载随规则一起消失，
	// 此时只能收口为 failed
	rule, err := e.rules.GetRule(ctx, tenantID, execution.WorkflowRuleID)
	if err != nil {
		return e.CloseExecution(ctx, tenantID, executionID, ExecutionFailed, "规则已删除，动作未执行")
	}

	actions, err := rule.ParseActions()
	if err != nil {
		return e.CloseExecution(ctx, tenantID, executionID, ExecutionFailed, err.Error())
	}

	var triggerCtx map[string]any
	if len(execution.Context) > 0 {
		if err := json.Unmarshal(execution.Context, &triggerCtx); err != nil {
			return e.CloseExecution(ctx, tenantID, executionID, ExecutionFailed, fmt.Sprintf("解析触发上下文失败: %v", err))
		}
	}

	for i, action := range actions {
		if err := e.runAction(ctx, rule, action, triggerCtx); err != nil {
			msg := fmt.Sprintf("第 %d 个动作(%s)执行失败: %v", i+1, action.Type, err)
			return e.CloseExecution(ctx, tenantID, executionID, ExecutionFailed, msg)
		}
	}

	metrics.ExecutionDuration.Observe(time.Since(execution.CreatedAt).Seconds())
	return e.CloseExecution(ctx, tenantID, executionID, ExecutionCompleted, "")
}

// runAction 执行单个动作
func (e *Engine) runAction(ctx context.Context, rule *WorkflowRule, action RuleAction, triggerCtx map[string]any) error {
	switch action.Type {
	case ActionCreateTask:
		return e.runCreateTask(ctx, rule, action)

	case ActionApproveRequest, ActionRejectRequest:
		requestID := paramString(action.Params, "request_id")
		if requestID == "" {
			requestID = contextString(triggerCtx, "request_id")
		}
		if requestID == "" {
			return fmt.Errorf("动作缺少 request_id")
		}
		decision := approval.ActionApprove
		if action.Type == ActionRejectRequest {
			decision = approval.ActionReject
		}
		notes := paramString(action.Params, "notes")
		if notes == "" {
			notes = fmt.Sprintf("规则自动裁决: %s", rule.Name)
		}
		affected, err := e.approvalSvc.DecideRequests(ctx, rule.TenantID, []string{requestID}, decision, notes)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("需求 %s 不存在", requestID)
		}
		return nil

	case ActionNotify:
		// 通知通道是外部协作方，这里只留审计日志
		e.logger.Info("规则通知动作",
			zap.String("rule_id", rule.ID),
			zap.String("message", paramString(action.Params, "message")),
		)
		return nil

	default:
		return fmt.Errorf("未知的动作类型: %s", action.Type)
	}
}

// runCreateTask 动作：催生自动化任务
func (e *Engine) runCreateTask(ctx context.Context, rule *WorkflowRule, action RuleAction) error {
	title := paramString(action.Params, "title")
	if title == "" {
		title = fmt.Sprintf("规则任务: %s", rule.Name)
	}

	task := &AutomatedTask{
		TenantID:       rule.TenantID,
		WorkflowRuleID: rule.ID,
		Title:          title,
		Priority:       paramInt(action.Params, "priority"),
	}
	if days := paramInt(action.Params, "due_in_days"); days > 0 {
		due := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)
		task.DueDate = &due
	}
	return e.taskService.CreateTask(ctx, task)
}

// CloseExecution 收口执行记录，仅允许从 running 迁出一次
func (e *Engine) CloseExecution(ctx context.Context, tenantID, executionID string, status ExecutionStatus, errMsg string) error {
	if status != ExecutionCompleted && status != ExecutionFailed {
		return &InvalidTransition{Entity: "执行记录", From: string(ExecutionRunning), Op: fmt.Sprintf("收口为 %s", status)}
	}

	now := time.Now().UTC()
	result := e.db.WithContext(ctx).
		Model(&WorkflowExecution{}).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ? AND status = ?", executionID, ExecutionRunning).
		Updates(map[string]any{
			"status":        status,
			"error_message": errMsg,
			"completed_at":  now,
		})
	if result.Error != nil {
		return fmt.Errorf("收口执行记录失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		execution, err := e.GetExecution(ctx, tenantID, executionID)
		if err != nil {
			return err
		}
		return &InvalidTransition{Entity: "执行记录", From: string(execution.Status), Op: "收口"}
	}

	metrics.ExecutionsTotal.WithLabelValues(string(status)).Inc()
	return nil
}

// paramString 从动作参数取字符串
func paramString(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// paramInt 从动作参数取整数（JSON 数字反序列化为 float64）
func paramInt(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// contextString 从触发上下文取字符串
func contextString(triggerCtx map[string]any, key string) string {
	if v, ok := triggerCtx[key].(string); ok {
		return v
	}
	return ""
}
