package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"backend/internal/automation"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AutomationHandler 延迟规则动作处理器
type AutomationHandler struct {
	engine *automation.Engine
	logger *zap.Logger
}

// NewAutomationHandler 创建处理器
func NewAutomationHandler(engine *automation.Engine, logger *zap.Logger) *AutomationHandler {
	return &AutomationHandler{engine: engine, logger: logger}
}

// HandleRunRuleActions 执行延迟的规则动作并收口执行记录
func (h *AutomationHandler) HandleRunRuleActions(ctx context.Context, t *asynq.Task) error {
	var payload tasks.RunRuleActionsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload failed: %w", err)
	}

	h.logger.Info("开始执行延迟规则动作",
		zap.String("execution_id", payload.ExecutionID),
		zap.String("tenant_id", payload.TenantID),
	)

	if err := h.engine.RunActions(ctx, payload.TenantID, payload.ExecutionID); err != nil {
		h.logger.Error("延迟规则动作执行失败",
			zap.String("execution_id", payload.ExecutionID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
