package approval

import (
	"math"
	"time"
)

// KindMetrics 单一条目类型的状态计数
type KindMetrics struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ApprovalMetrics 审批指标（派生数据，不落库）
type ApprovalMetrics struct {
	Requests KindMetrics `json:"requests"`
	Offers   KindMetrics `json:"offers"`

	TotalItems   int `json:"totalItems"`
	PendingItems int `json:"pendingItems"`

	// 已决条目从创建到裁决的平均小时数
	AvgProcessingTimeHours float64 `json:"avgProcessingTimeHours"`

	// approved / (approved+rejected+pending) × 100，保留一位小数
	ApprovalRate float64 `json:"approvalRate"`

	// 近 7 天创建量相对前 7 天的百分比变化；前窗口为空时报 0（无信号，而非除零兜底）
	WeeklyTrend float64 `json:"weeklyTrend"`
}

// Aggregate 单遍扫描聚合审批指标，纯函数，幂等
//
// 处理时长仅统计管理员状态已脱离 pending 的条目；报价即使客户轴仍为
// pending，也以管理员轴作为处理时长口径（沿用线上口径，勿"修正"）。
func Aggregate(requests []*Request, offers []*Offer, now time.Time) ApprovalMetrics {
	var m ApprovalMetrics

	weekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)

	var processedCount int
	var processedHours float64
	var thisWeek, lastWeek int

	countCreation := func(createdAt time.Time) {
		// 半开窗口 [now-7d, now) 与 [now-14d, now-7d)，只看创建时间
		if !createdAt.Before(weekAgo) && createdAt.Before(now) {
			thisWeek++
		} else if !createdAt.Before(twoWeeksAgo) && createdAt.Before(weekAgo) {
			lastWeek++
		}
	}

	for _, r := range requests {
		m.Requests.Total++
		switch r.AdminStatus {
		case StatusPending:
			m.Requests.Pending++
		case StatusApproved:
			m.Requests.Approved++
		case StatusRejected:
			m.Requests.Rejected++
		}
		if r.AdminStatus != StatusPending && r.DecidedAt != nil {
			processedCount++
			processedHours += r.DecidedAt.Sub(r.CreatedAt).Hours()
		}
		countCreation(r.CreatedAt)
	}

	for _, o := range offers {
		m.Offers.Total++
		switch o.AdminStatus {
		case StatusPending:
			m.Offers.Pending++
		case StatusApproved:
			m.Offers.Approved++
		case StatusRejected:
			m.Offers.Rejected++
		}
		if o.AdminStatus != StatusPending && o.DecidedAt != nil {
			processedCount++
			processedHours += o.DecidedAt.Sub(o.CreatedAt).Hours()
		}
		countCreation(o.CreatedAt)
	}

	m.TotalItems = m.Requests.Total + m.Offers.Total
	m.PendingItems = m.Requests.Pending + m.Offers.Pending

	if processedCount > 0 {
		m.AvgProcessingTimeHours = processedHours / float64(processedCount)
	}

	approved := m.Requests.Approved + m.Offers.Approved
	if m.TotalItems > 0 {
		rate := float64(approved) / float64(m.TotalItems) * 100
		m.ApprovalRate = math.Round(rate*10) / 10
	}

	if lastWeek > 0 {
		m.WeeklyTrend = float64(thisWeek-lastWeek) / float64(lastWeek) * 100
	}

	return m
}
