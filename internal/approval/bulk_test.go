package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProcessor(t *testing.T) (*BulkProcessor, *Service) {
	svc := NewService(openTestDB(t))
	return NewBulkProcessor(svc, zap.NewNop()), svc
}

func TestBulkApplyRequests(t *testing.T) {
	p, svc := newTestProcessor(t)
	now := time.Now().UTC()

	seedRequest(t, svc, "t-1", "r-1", TierLow, now)
	seedRequest(t, svc, "t-1", "r-2", TierLow, now)

	result, err := p.Apply(context.Background(), "t-1", ActionApprove, TypeRequests, []string{"r-1", "r-2"}, "批量通过")
	require.NoError(t, err)
	require.Equal(t, 2, result.Requested)
	require.Equal(t, 2, result.Succeeded)
	require.Empty(t, result.FailedIDs)
}

func TestBulkApplyOffersContinueOnError(t *testing.T) {
	p, svc := newTestProcessor(t)
	now := time.Now().UTC()

	seedOffer(t, svc, "t-1", "o-1", now)
	seedOffer(t, svc, "t-1", "o-3", now)

	// 中间的 o-2 不存在：失败后继续处理 o-3，不中断不回滚
	result, err := p.Apply(context.Background(), "t-1", ActionReject, TypeOffers, []string{"o-1", "o-2", "o-3"}, "")
	require.Error(t, err)

	var partial *PartialBatchFailure
	require.True(t, errors.As(err, &partial))
	require.Equal(t, []string{"o-2"}, partial.FailedIDs)

	require.Equal(t, 3, result.Requested)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, []string{"o-2"}, result.FailedIDs)

	// 已成功条目保持提交状态
	var o1, o3 Offer
	require.NoError(t, svc.DB.First(&o1, "id = ?", "o-1").Error)
	require.NoError(t, svc.DB.First(&o3, "id = ?", "o-3").Error)
	require.Equal(t, StatusRejected, o1.AdminStatus)
	require.Equal(t, StatusRejected, o3.AdminStatus)
}

func TestBulkApplyRejectsInvalidInput(t *testing.T) {
	p, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Apply(ctx, "t-1", Action("archive"), TypeRequests, []string{"r-1"}, "")
	require.Error(t, err)

	_, err = p.Apply(ctx, "t-1", ActionApprove, ItemType("invoices"), []string{"r-1"}, "")
	require.Error(t, err)

	_, err = p.Apply(ctx, "t-1", ActionApprove, TypeRequests, nil, "")
	require.Error(t, err)
}

func TestBulkApplyLastWriteWins(t *testing.T) {
	// 批量操作之间没有乐观锁：后写覆盖先写，这是接受的语义
	p, svc := newTestProcessor(t)
	now := time.Now().UTC()

	seedRequest(t, svc, "t-1", "r-1", TierLow, now)

	_, err := p.Apply(context.Background(), "t-1", ActionApprove, TypeRequests, []string{"r-1"}, "first")
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), "t-1", ActionReject, TypeRequests, []string{"r-1"}, "second")
	require.NoError(t, err)

	var r Request
	require.NoError(t, svc.DB.First(&r, "id = ?", "r-1").Error)
	require.Equal(t, StatusRejected, r.AdminStatus)
	require.Equal(t, "second", r.DecisionNotes)
}
