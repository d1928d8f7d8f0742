package approval

import (
	"sort"
	"time"
)

// 队列长度默认值
const (
	DefaultQueueLimit = 20 // 合并队列
	ScreenSliceLimit  = 10 // 页面截断
)

// PendingItems 合并需求与报价，产出统一的待审队列
//
// 过滤：管理员轴 pending 的需求 ∪ 任一审批轴 pending 的报价。
// 排序：按创建时间倒序（最新在前）。紧急度评分只作为行内元数据附带，
// 不参与排序——这是对外承诺的契约，不要改成按紧急度排。
// 截断：最多返回 limit 条。
func PendingItems(requests []*Request, offers []*Offer, limit int, now time.Time) []ApprovableItem {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}

	items := make([]ApprovableItem, 0, len(requests)+len(offers))

	for _, r := range requests {
		if r.AdminStatus == StatusPending {
			items = append(items, ItemFromRequest(r, now))
		}
	}
	for _, o := range offers {
		if o.Pending() {
			items = append(items, ItemFromOffer(o, now))
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
