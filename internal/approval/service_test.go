package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Request{}, &Offer{}))
	return db
}

func seedRequest(t *testing.T, svc *Service, tenantID, id string, tier UrgencyTier, createdAt time.Time) *Request {
	t.Helper()
	req := &Request{
		ID:          id,
		TenantID:    tenantID,
		Title:       "需求 " + id,
		UrgencyTier: tier,
		CreatedAt:   createdAt,
	}
	require.NoError(t, svc.CreateRequest(context.Background(), req))
	return req
}

func seedOffer(t *testing.T, svc *Service, tenantID, id string, createdAt time.Time) *Offer {
	t.Helper()
	offer := &Offer{
		ID:        id,
		TenantID:  tenantID,
		Title:     "报价 " + id,
		CreatedAt: createdAt,
	}
	require.NoError(t, svc.CreateOffer(context.Background(), offer))
	return offer
}

func TestCreateRequestDefaults(t *testing.T) {
	svc := NewService(openTestDB(t))

	req := &Request{TenantID: "t-1", Title: "办公椅采购"}
	require.NoError(t, svc.CreateRequest(context.Background(), req))

	require.NotEmpty(t, req.ID)
	require.Equal(t, TierMedium, req.UrgencyTier)
	require.Equal(t, StatusPending, req.AdminStatus)
}

func TestCreateRequestRejectsUnknownTier(t *testing.T) {
	svc := NewService(openTestDB(t))

	req := &Request{TenantID: "t-1", Title: "x", UrgencyTier: UrgencyTier("critical")}
	err := svc.CreateRequest(context.Background(), req)
	require.Error(t, err)

	// 非法枚举在入库边界被拒绝，不落库
	var count int64
	svc.DB.Model(&Request{}).Count(&count)
	require.Equal(t, int64(0), count)
}

func TestCreateOfferDefaultsBothAxes(t *testing.T) {
	svc := NewService(openTestDB(t))

	offer := &Offer{TenantID: "t-1", Title: "供应商A报价"}
	require.NoError(t, svc.CreateOffer(context.Background(), offer))

	require.Equal(t, StatusPending, offer.AdminStatus)
	require.Equal(t, StatusPending, offer.ClientStatus)
}

func TestPendingQueueScopedByTenant(t *testing.T) {
	svc := NewService(openTestDB(t))
	now := time.Now().UTC()

	seedRequest(t, svc, "t-1", "r-1", TierHigh, now.Add(-time.Hour))
	seedRequest(t, svc, "t-2", "r-other", TierHigh, now.Add(-time.Minute))
	seedOffer(t, svc, "t-1", "o-1", now.Add(-2*time.Hour))

	items, err := svc.PendingQueue(context.Background(), "t-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		require.NotEqual(t, "r-other", it.ID)
	}
}

func TestDecideRequestsBatch(t *testing.T) {
	svc := NewService(openTestDB(t))
	now := time.Now().UTC()

	seedRequest(t, svc, "t-1", "r-1", TierLow, now)
	seedRequest(t, svc, "t-1", "r-2", TierLow, now)
	seedRequest(t, svc, "t-1", "r-3", TierLow, now)

	// 含一个不存在的 ID：批量 UPDATE 只按实际命中计数
	affected, err := svc.DecideRequests(context.Background(), "t-1", []string{"r-1", "r-2", "r-missing"}, ActionApprove, "预算内")
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	var r1 Request
	require.NoError(t, svc.DB.First(&r1, "id = ?", "r-1").Error)
	require.Equal(t, StatusApproved, r1.AdminStatus)
	require.Equal(t, "预算内", r1.DecisionNotes)
	require.NotNil(t, r1.DecidedAt)

	var r3 Request
	require.NoError(t, svc.DB.First(&r3, "id = ?", "r-3").Error)
	require.Equal(t, StatusPending, r3.AdminStatus)
}

func TestDecideRequestsIgnoresOtherTenant(t *testing.T) {
	svc := NewService(openTestDB(t))
	now := time.Now().UTC()

	seedRequest(t, svc, "t-2", "r-foreign", TierLow, now)

	affected, err := svc.DecideRequests(context.Background(), "t-1", []string{"r-foreign"}, ActionReject, "")
	require.NoError(t, err)
	require.Equal(t, int64(0), affected)

	var r Request
	require.NoError(t, svc.DB.First(&r, "id = ?", "r-foreign").Error)
	require.Equal(t, StatusPending, r.AdminStatus)
}

func TestDecideOffer(t *testing.T) {
	svc := NewService(openTestDB(t))
	now := time.Now().UTC()

	seedOffer(t, svc, "t-1", "o-1", now)

	require.NoError(t, svc.DecideOffer(context.Background(), "t-1", "o-1", ActionReject, "超预算"))

	var o Offer
	require.NoError(t, svc.DB.First(&o, "id = ?", "o-1").Error)
	require.Equal(t, StatusRejected, o.AdminStatus)
	// 客户轴不受管理员裁决影响
	require.Equal(t, StatusPending, o.ClientStatus)
	require.Equal(t, "超预算", o.DecisionNotes)
}

func TestDecideOfferNotFound(t *testing.T) {
	svc := NewService(openTestDB(t))

	err := svc.DecideOffer(context.Background(), "t-1", "o-missing", ActionApprove, "")
	require.Error(t, err)

	var mf *MutationFailure
	require.True(t, errors.As(err, &mf))
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMetricsSnapshot(t *testing.T) {
	svc := NewService(openTestDB(t))
	now := time.Now().UTC()

	seedRequest(t, svc, "t-1", "r-1", TierHigh, now.Add(-time.Hour))
	seedRequest(t, svc, "t-1", "r-2", TierLow, now.Add(-2*time.Hour))
	_, err := svc.DecideRequests(context.Background(), "t-1", []string{"r-1"}, ActionApprove, "")
	require.NoError(t, err)

	m, err := svc.Metrics(context.Background(), "t-1")
	require.NoError(t, err)
	require.Equal(t, 2, m.TotalItems)
	require.Equal(t, 1, m.PendingItems)
	require.Equal(t, 50.0, m.ApprovalRate)
}

func TestBrokenStoreSurfacesFetchFailure(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	seedRequest(t, svc, "t-1", "r-1", TierHigh, time.Now().UTC())

	// 砸掉 offers 表模拟存储故障：
	// 指标必须报可识别的读失败，而不是悄悄退化成零值快照
	require.NoError(t, db.Migrator().DropTable(&Offer{}))

	snapshot, err := svc.Metrics(ctx, "t-1")
	require.Nil(t, snapshot)
	var fetchErr *FetchFailure
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, "offers", fetchErr.Table)

	items, err := svc.PendingQueue(ctx, "t-1", 0)
	require.Nil(t, items)
	fetchErr = nil
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, "offers", fetchErr.Table)

	// requests 表故障同样可定位到表名
	require.NoError(t, db.Migrator().DropTable(&Request{}))
	_, err = svc.Metrics(ctx, "t-1")
	fetchErr = nil
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, "requests", fetchErr.Table)
}
