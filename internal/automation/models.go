package automation

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// RuleStatus 工作流规则状态
type RuleStatus string

const (
	RuleDraft    RuleStatus = "draft"
	RuleActive   RuleStatus = "active"
	RuleInactive RuleStatus = "inactive"
)

// Valid 校验状态取值
func (s RuleStatus) Valid() bool {
	switch s {
	case RuleDraft, RuleActive, RuleInactive:
		return true
	}
	return false
}

// ExecutionStatus 执行记录状态
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Valid 校验状态取值
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionRunning, ExecutionCompleted, ExecutionFailed:
		return true
	}
	return false
}

// TaskStatus 自动化任务的持久化状态
// overdue 是读取时计算出来的谓词，不落库，避免状态陈旧漂移
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Valid 校验状态取值
func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskCompleted
}

// WorkflowRule 工作流自动化规则
type WorkflowRule struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`

	// 规则信息
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`

	// 触发器：类型为自由字符串键（如 request_created），条件为不透明谓词负载
	TriggerType       string         `json:"triggerType" gorm:"size:100;not null;index"`
	TriggerConditions datatypes.JSON `json:"triggerConditions" gorm:"type:jsonb"`

	// 动作负载
	Actions datatypes.JSON `json:"actions" gorm:"type:jsonb"`

	// 生命周期：draft → active ↔ inactive，任何状态都不会回到 draft
	Status RuleStatus `json:"status" gorm:"size:20;not null;default:draft;index"`

	// 调用方定义的排序优先级，引擎不约束取值范围
	Priority int `json:"priority" gorm:"default:0"`

	// 动作延迟执行（分钟）
	DelayMinutes int `json:"delayMinutes" gorm:"default:0"`

	// 时间戳
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (WorkflowRule) TableName() string {
	return "workflow_rules"
}

// Validate 在入库边界校验枚举取值
func (r *WorkflowRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("规则名称不能为空")
	}
	if r.TriggerType == "" {
		return fmt.Errorf("触发器类型不能为空")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("未知的规则状态: %s", r.Status)
	}
	if r.DelayMinutes < 0 {
		return fmt.Errorf("延迟分钟数不能为负")
	}
	return nil
}

// WorkflowExecution 规则的一次触发执行，仅追加的审计记录
//
// workflow_rule_id 是弱引用：规则被删除时执行记录保留（审计轨迹优先于
// 引用整洁），rule_name 落快照，规则删除后列表仍能展示名称。
// 记录创建后只允许收口一次 status/completed_at，其余字段不再变更。
type WorkflowExecution struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID       string `json:"tenantId" gorm:"type:uuid;not null;index"`
	WorkflowRuleID string `json:"workflowRuleId" gorm:"type:uuid;index"`
	RuleName       string `json:"ruleName" gorm:"size:255"`

	TriggerType string         `json:"triggerType" gorm:"size:100"`
	Context     datatypes.JSON `json:"context" gorm:"type:jsonb"`

	Status       ExecutionStatus `json:"status" gorm:"size:20;not null;default:running;index"`
	ErrorMessage string          `json:"errorMessage" gorm:"type:text"`

	CreatedAt   time.Time  `json:"createdAt" gorm:"not null;autoCreateTime;index"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (WorkflowExecution) TableName() string {
	return "workflow_executions"
}

// AutomatedTask 规则催生的后续工作项
type AutomatedTask struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID       string `json:"tenantId" gorm:"type:uuid;not null;index"`
	WorkflowRuleID string `json:"workflowRuleId" gorm:"type:uuid;index"`

	Title    string     `json:"title" gorm:"size:255;not null"`
	Priority int        `json:"priority" gorm:"default:0"`
	DueDate  *time.Time `json:"dueDate"`

	Status TaskStatus `json:"status" gorm:"size:20;not null;default:pending;index"`

	CreatedAt   time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (AutomatedTask) TableName() string {
	return "automated_tasks"
}

// Validate 在入库边界校验枚举取值
func (t *AutomatedTask) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("任务标题不能为空")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("未知的任务状态: %s", t.Status)
	}
	return nil
}

// ============================================================================
// 触发条件与动作负载
// ============================================================================

// TriggerConditions 触发条件负载
// 表达式用 govaluate 语法对触发上下文求值，如 "amount > 10000 && tier == 'urgent'"；
// 空表达式视为无条件匹配。
type TriggerConditions struct {
	Expression string `json:"expression,omitempty"`
}

// RuleAction 单个规则动作
type RuleAction struct {
	Type   string         `json:"type"` // create_task, approve_request, reject_request, notify
	Params map[string]any `json:"params,omitempty"`
}

// 动作类型
const (
	ActionCreateTask     = "create_task"
	ActionApproveRequest = "approve_request"
	ActionRejectRequest  = "reject_request"
	ActionNotify         = "notify"
)

// ParseConditions 解析规则的触发条件负载，空负载返回零值
func (r *WorkflowRule) ParseConditions() (TriggerConditions, error) {
	var cond TriggerConditions
	if len(r.TriggerConditions) == 0 {
		return cond, nil
	}
	if err := json.Unmarshal(r.TriggerConditions, &cond); err != nil {
		return cond, fmt.Errorf("解析触发条件失败: %w", err)
	}
	return cond, nil
}

// ParseActions 解析规则的动作负载，空负载返回空列表
func (r *WorkflowRule) ParseActions() ([]RuleAction, error) {
	if len(r.Actions) == 0 {
		return nil, nil
	}
	var actions []RuleAction
	if err := json.Unmarshal(r.Actions, &actions); err != nil {
		return nil, fmt.Errorf("解析动作负载失败: %w", err)
	}
	return actions, nil
}
