package approval

import (
	"context"
	"fmt"

	"backend/internal/metrics"

	"go.uber.org/zap"
)

// BulkResult 批量操作结果
type BulkResult struct {
	Action    Action   `json:"action"`
	ItemType  ItemType `json:"itemType"`
	Requested int      `json:"requested"` // 选中条数
	Succeeded int      `json:"succeeded"` // 实际提交条数
	FailedIDs []string `json:"failedIds,omitempty"`
}

// BulkProcessor 批量审批处理器
type BulkProcessor struct {
	svc    *Service
	logger *zap.Logger
}

// NewBulkProcessor 创建批量审批处理器
func NewBulkProcessor(svc *Service, logger *zap.Logger) *BulkProcessor {
	return &BulkProcessor{svc: svc, logger: logger}
}

// Apply 对选中条目执行批量批准/拒绝
//
// requests 走单次批量 UPDATE；offers 没有批量原语，必须逐条顺序提交，
// 每条等待落库后再处理下一条：同批次靠后的条目要能看到靠前条目已提交
// 的世界（动作负载可能引用同批条目），并行化会破坏这一保证。
//
// 任一单条失败不中断后续条目（continue-on-error），最终以一次
// *PartialBatchFailure 聚合上报；不做补偿回滚，部分提交是可接受终态，
// 调用方无论成败都应重新拉取队列与指标。
func (p *BulkProcessor) Apply(ctx context.Context, tenantID string, action Action, itemType ItemType, ids []string, notes string) (*BulkResult, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("未知的审批动作: %s", action)
	}
	if !itemType.Valid() {
		return nil, fmt.Errorf("未知的条目类型: %s", itemType)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("未选中任何条目")
	}

	result := &BulkResult{
		Action:    action,
		ItemType:  itemType,
		Requested: len(ids),
	}

	switch itemType {
	case TypeRequests:
		affected, err := p.svc.DecideRequests(ctx, tenantID, ids, action, notes)
		if err != nil {
			result.FailedIDs = ids
			metrics.BulkActionsTotal.WithLabelValues(string(action), string(itemType), "failed").Inc()
			return result, err
		}
		result.Succeeded = int(affected)

	case TypeOffers:
		var errs []error
		for _, id := range ids {
			if err := p.svc.DecideOffer(ctx, tenantID, id, action, notes); err != nil {
				p.logger.Warn("报价裁决失败，继续处理后续条目",
					zap.String("offer_id", id),
					zap.String("action", string(action)),
					zap.Error(err),
				)
				result.FailedIDs = append(result.FailedIDs, id)
				errs = append(errs, err)
				continue
			}
			result.Succeeded++
		}
		if len(errs) > 0 {
			metrics.BulkActionsTotal.WithLabelValues(string(action), string(itemType), "partial").Inc()
			return result, &PartialBatchFailure{
				Action:    action,
				ItemType:  itemType,
				FailedIDs: result.FailedIDs,
				Errs:      errs,
			}
		}
	}

	metrics.BulkActionsTotal.WithLabelValues(string(action), string(itemType), "ok").Inc()
	p.logger.Info("批量审批完成",
		zap.String("action", string(action)),
		zap.String("item_type", string(itemType)),
		zap.Int("requested", result.Requested),
		zap.Int("succeeded", result.Succeeded),
	)
	return result, nil
}
