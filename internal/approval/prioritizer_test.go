package approval

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingItemsFiltersAndSorts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	requests := []*Request{
		{ID: "r-old", AdminStatus: StatusPending, UrgencyTier: TierUrgent, CreatedAt: ts(now, 72)},
		{ID: "r-new", AdminStatus: StatusPending, UrgencyTier: TierLow, CreatedAt: ts(now, 1)},
		{ID: "r-done", AdminStatus: StatusApproved, UrgencyTier: TierUrgent, CreatedAt: ts(now, 0.5)},
	}
	offers := []*Offer{
		{ID: "o-mid", AdminStatus: StatusPending, ClientStatus: StatusPending, CreatedAt: ts(now, 24)},
		{ID: "o-done", AdminStatus: StatusApproved, ClientStatus: StatusApproved, CreatedAt: ts(now, 0.1)},
	}

	items := PendingItems(requests, offers, 10, now)

	// 已裁决条目被过滤；排序按创建时间倒序，与紧急度无关
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	require.Equal(t, []string{"r-new", "o-mid", "r-old"}, ids)
}

func TestPendingItemsOfferEitherAxisPending(t *testing.T) {
	now := time.Now()

	offers := []*Offer{
		{ID: "o-admin-pending", AdminStatus: StatusPending, ClientStatus: StatusApproved, CreatedAt: ts(now, 1)},
		{ID: "o-client-pending", AdminStatus: StatusApproved, ClientStatus: StatusPending, CreatedAt: ts(now, 2)},
		{ID: "o-settled", AdminStatus: StatusApproved, ClientStatus: StatusRejected, CreatedAt: ts(now, 3)},
	}

	items := PendingItems(nil, offers, 10, now)
	require.Len(t, items, 2)
	for _, it := range items {
		require.NotEqual(t, "o-settled", it.ID)
	}
}

func TestPendingItemsLimit(t *testing.T) {
	now := time.Now()

	var requests []*Request
	for i := 0; i < 30; i++ {
		requests = append(requests, &Request{
			ID:          fmt.Sprintf("r-%d", i),
			AdminStatus: StatusPending,
			UrgencyTier: TierMedium,
			CreatedAt:   ts(now, float64(i)),
		})
	}

	items := PendingItems(requests, nil, 5, now)
	require.Len(t, items, 5)
	// 截断保留最新创建的条目
	require.Equal(t, "r-0", items[0].ID)
	require.Equal(t, "r-4", items[4].ID)
}

func TestPendingItemsZeroLimitUsesDefault(t *testing.T) {
	now := time.Now()

	var requests []*Request
	for i := 0; i < 30; i++ {
		requests = append(requests, &Request{
			ID:          fmt.Sprintf("r-%d", i),
			AdminStatus: StatusPending,
			UrgencyTier: TierMedium,
			CreatedAt:   ts(now, float64(i)),
		})
	}

	items := PendingItems(requests, nil, 0, now)
	require.Len(t, items, DefaultQueueLimit)
}

func TestPendingItemsAttachesScores(t *testing.T) {
	now := time.Now()

	requests := []*Request{
		{ID: "r-1", AdminStatus: StatusPending, UrgencyTier: TierHigh, CreatedAt: ts(now, 10)},
	}
	offers := []*Offer{
		{ID: "o-1", AdminStatus: StatusPending, ClientStatus: StatusPending, CreatedAt: ts(now, 10)},
	}

	items := PendingItems(requests, offers, 10, now)
	require.Len(t, items, 2)

	for _, it := range items {
		switch it.ID {
		case "r-1":
			require.Equal(t, 120, it.DisplayScore)
			require.InDelta(t, 30.0, it.UrgencyScore, 1e-9)
		case "o-1":
			// 报价固定按 medium 档位计分
			require.Equal(t, TierMedium, it.UrgencyTier)
			require.Equal(t, 80, it.DisplayScore)
			require.InDelta(t, 20.0, it.UrgencyScore, 1e-9)
		}
	}
}
