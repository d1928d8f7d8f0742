package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurement_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "procurement_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 审批域指标
var (
	// BulkActionsTotal 批量审批操作数，outcome: ok / partial / failed
	BulkActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurement_bulk_actions_total",
			Help: "批量审批操作总数",
		},
		[]string{"action", "item_type", "outcome"},
	)

	// PendingQueueSize 最近一次计算的待审队列长度
	PendingQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "procurement_pending_queue_size",
			Help: "待审队列长度（最近一次拉取）",
		},
		[]string{"tenant_id"},
	)
)

// 工作流自动化指标
var (
	// RuleTriggersTotal 规则触发次数，result: fired / rejected
	RuleTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurement_workflow_rule_triggers_total",
			Help: "工作流规则触发总数",
		},
		[]string{"trigger_type", "result"},
	)

	// ExecutionsTotal 规则执行终态计数，status: completed / failed
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurement_workflow_executions_total",
			Help: "工作流执行终态总数",
		},
		[]string{"status"},
	)

	// ExecutionDuration 执行耗时（秒）
	ExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "procurement_workflow_execution_duration_seconds",
			Help:    "工作流执行耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300},
		},
	)
)
