package tasks

// Task Types
const (
	TypeRunRuleActions = "automation:run_rule_actions"
)

// RunRuleActionsPayload 延迟执行规则动作的任务载荷
type RunRuleActionsPayload struct {
	ExecutionID string `json:"execution_id"`
	TenantID    string `json:"tenant_id"`
}
