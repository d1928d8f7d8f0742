package automation

import "fmt"

// InvalidTransition 非法状态迁移
// 例如触发非 active 规则、重复收口执行记录、重开已完成任务。
// 显式报错而不是静默忽略，让运营能区分"没触发"和"触发了但没生效"。
type InvalidTransition struct {
	Entity string
	From   string
	Op     string
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf("%s 处于 %s 状态，不允许执行 %s", e.Entity, e.From, e.Op)
}
