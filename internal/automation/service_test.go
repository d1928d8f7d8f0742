package automation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&WorkflowRule{}, &WorkflowExecution{}, &AutomatedTask{}))
	return db
}

func seedRule(t *testing.T, svc *RuleService, tenantID, name string) *WorkflowRule {
	t.Helper()
	rule := &WorkflowRule{
		TenantID:    tenantID,
		Name:        name,
		TriggerType: "request_created",
	}
	require.NoError(t, svc.CreateRule(context.Background(), rule))
	return rule
}

func TestCreateRuleDefaultsToDraft(t *testing.T) {
	svc := NewRuleService(openTestDB(t))

	rule := seedRule(t, svc, "t-1", "大额需求升级")
	require.NotEmpty(t, rule.ID)
	require.Equal(t, RuleDraft, rule.Status)
}

func TestCreateRuleRejectsNonDraftStatus(t *testing.T) {
	svc := NewRuleService(openTestDB(t))

	rule := &WorkflowRule{
		TenantID:    "t-1",
		Name:        "x",
		TriggerType: "request_created",
		Status:      RuleActive,
	}
	err := svc.CreateRule(context.Background(), rule)

	var denied *InvalidTransition
	require.True(t, errors.As(err, &denied))
}

func TestCreateRuleValidation(t *testing.T) {
	svc := NewRuleService(openTestDB(t))
	ctx := context.Background()

	require.Error(t, svc.CreateRule(ctx, &WorkflowRule{TenantID: "t-1", TriggerType: "x"}))
	require.Error(t, svc.CreateRule(ctx, &WorkflowRule{TenantID: "t-1", Name: "x"}))
	require.Error(t, svc.CreateRule(ctx, &WorkflowRule{TenantID: "t-1", Name: "x", TriggerType: "y", DelayMinutes: -5}))
}

func TestRuleLifecycleTransitions(t *testing.T) {
	svc := NewRuleService(openTestDB(t))
	ctx := context.Background()

	rule := seedRule(t, svc, "t-1", "lifecycle")

	// draft → active
	activated, err := svc.ActivateRule(ctx, "t-1", rule.ID)
	require.NoError(t, err)
	require.Equal(t, RuleActive, activated.Status)

	// active → active 不允许
	_, err = svc.ActivateRule(ctx, "t-1", rule.ID)
	var denied *InvalidTransition
	require.True(t, errors.As(err, &denied))

	// active → inactive → active 可往返
	deactivated, err := svc.DeactivateRule(ctx, "t-1", rule.ID)
	require.NoError(t, err)
	require.Equal(t, RuleInactive, deactivated.Status)

	_, err = svc.ActivateRule(ctx, "t-1", rule.ID)
	require.NoError(t, err)
}

func TestDraftCanBeDeactivated(t *testing.T) {
	svc := NewRuleService(openTestDB(t))

	rule := seedRule(t, svc, "t-1", "draft-off")
	deactivated, err := svc.DeactivateRule(context.Background(), "t-1", rule.ID)
	require.NoError(t, err)
	// 停用后不会回到 draft
	require.Equal(t, RuleInactive, deactivated.Status)
}

func TestUpdateRulePatchesOnlyProvidedFields(t *testing.T) {
	svc := NewRuleService(openTestDB(t))
	ctx := context.Background()

	rule := seedRule(t, svc, "t-1", "original")
	newName := "renamed"
	newPriority := 9

	updated, err := svc.UpdateRule(ctx, "t-1", rule.ID, &UpdateRuleRequest{
		Name:     &newName,
		Priority: &newPriority,
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, 9, updated.Priority)
	// 未提供的字段保持原值
	require.Equal(t, "request_created", updated.TriggerType)
	require.Equal(t, RuleDraft, updated.Status)
}

func TestDeleteRuleKeepsExecutions(t *testing.T) {
	db := openTestDB(t)
	svc := NewRuleService(db)
	ctx := context.Background()

	rule := seedRule(t, svc, "t-1", "short-lived")

	execution := &WorkflowExecution{
		ID:             "e-1",
		TenantID:       "t-1",
		WorkflowRuleID: rule.ID,
		RuleName:       rule.Name,
		Status:         ExecutionCompleted,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(execution).Error)

	require.NoError(t, svc.DeleteRule(ctx, "t-1", rule.ID))

	// 执行记录是审计轨迹，随规则删除而保留
	var count int64
	db.Model(&WorkflowExecution{}).Count(&count)
	require.Equal(t, int64(1), count)

	err := svc.DeleteRule(ctx, "t-1", rule.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestListRulesOrderAndFilter(t *testing.T) {
	svc := NewRuleService(openTestDB(t))
	ctx := context.Background()

	for i, prio := range []int{1, 5, 3} {
		rule := &WorkflowRule{
			TenantID:    "t-1",
			Name:        fmt.Sprintf("rule-%d", i),
			TriggerType: "request_created",
			Priority:    prio,
		}
		require.NoError(t, svc.CreateRule(ctx, rule))
	}

	rules, total, err := svc.ListRules(ctx, &ListRulesRequest{TenantID: "t-1"})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, 5, rules[0].Priority)
	require.Equal(t, 3, rules[1].Priority)
	require.Equal(t, 1, rules[2].Priority)

	// 状态过滤
	_, err = svc.ActivateRule(ctx, "t-1", rules[0].ID)
	require.NoError(t, err)
	active, total, err := svc.ListRules(ctx, &ListRulesRequest{TenantID: "t-1", Status: string(RuleActive)})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, active, 1)
}

func TestListExecutionsUnknownRuleFallback(t *testing.T) {
	db := openTestDB(t)
	svc := NewRuleService(db)

	require.NoError(t, db.Create(&WorkflowExecution{
		ID:        "e-legacy",
		TenantID:  "t-1",
		Status:    ExecutionCompleted,
		CreatedAt: time.Now().UTC(),
	}).Error)

	executions, _, err := svc.ListExecutions(context.Background(), &ListExecutionsRequest{TenantID: "t-1"})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	// 规则名快照缺失时降级展示
	require.Equal(t, "unknown rule", executions[0].RuleName)
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	svc := NewRuleService(db)
	ctx := context.Background()

	rule := seedRule(t, svc, "t-1", "stat-rule")
	_, err := svc.ActivateRule(ctx, "t-1", rule.ID)
	require.NoError(t, err)
	seedRule(t, svc, "t-1", "draft-rule")

	now := time.Now().UTC()
	for i, status := range []ExecutionStatus{ExecutionCompleted, ExecutionCompleted, ExecutionFailed} {
		require.NoError(t, db.Create(&WorkflowExecution{
			ID:        fmt.Sprintf("e-%d", i),
			TenantID:  "t-1",
			Status:    status,
			CreatedAt: now,
		}).Error)
	}

	stats, err := svc.Stats(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalRules)
	require.Equal(t, int64(1), stats.ActiveRules)
	require.Equal(t, int64(3), stats.TotalExecutions)
	require.Equal(t, int64(2), stats.CompletedExecutions)
	require.Equal(t, int64(1), stats.FailedExecutions)
	// 2/3 × 100 = 66.67 → 67
	require.Equal(t, 67, stats.SuccessRate)
}

func TestStatsEmptyReportsZeroRate(t *testing.T) {
	svc := NewRuleService(openTestDB(t))

	stats, err := svc.Stats(context.Background(), "t-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalExecutions)
	require.Equal(t, 0, stats.SuccessRate)
}

func TestParsePayloads(t *testing.T) {
	rule := &WorkflowRule{
		TriggerConditions: datatypes.JSON(`{"expression":"amount > 1000"}`),
		Actions:           datatypes.JSON(`[{"type":"notify","params":{"message":"hi"}}]`),
	}

	cond, err := rule.ParseConditions()
	require.NoError(t, err)
	require.Equal(t, "amount > 1000", cond.Expression)

	actions, err := rule.ParseActions()
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, ActionNotify, actions[0].Type)
	require.Equal(t, "hi", actions[0].Params["message"])
}
