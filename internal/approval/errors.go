package approval

import (
	"fmt"
	"strings"
)

// FetchFailure 读取失败
// 与"查询结果为空"严格区分：对运营人员来说，0 和"未知"语义不同。
type FetchFailure struct {
	Table string
	Err   error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("读取 %s 失败: %v", e.Table, e.Err)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// MutationFailure 单条写入失败
type MutationFailure struct {
	Table string
	ID    string
	Err   error
}

func (e *MutationFailure) Error() string {
	return fmt.Sprintf("更新 %s/%s 失败: %v", e.Table, e.ID, e.Err)
}

func (e *MutationFailure) Unwrap() error {
	return e.Err
}

// PartialBatchFailure 批量操作部分失败
// 部分条目已提交、部分未提交，是可接受的终态，不做补偿回滚；
// 调用方收到一次聚合错误后无条件重新拉取状态。
type PartialBatchFailure struct {
	Action    Action
	ItemType  ItemType
	FailedIDs []string
	Errs      []error
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("批量%s部分失败: %d 条未提交 (%s)",
		e.Action, len(e.FailedIDs), strings.Join(e.FailedIDs, ", "))
}
