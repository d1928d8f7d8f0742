package approval

import (
	"context"
	"fmt"
	"time"

	"backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Action 审批动作
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Valid 校验动作取值
func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionReject
}

// Status 返回动作对应的终态
func (a Action) Status() Status {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// ItemType 批量操作的目标表
type ItemType string

const (
	TypeRequests ItemType = "requests"
	TypeOffers   ItemType = "offers"
)

// Valid 校验目标表取值
func (t ItemType) Valid() bool {
	return t == TypeRequests || t == TypeOffers
}

// Service 审批队列服务，封装对 requests/offers 表的读写
type Service struct {
	*common.BaseService
}

// NewService 创建审批队列服务
func NewService(db *gorm.DB) *Service {
	return &Service{BaseService: common.NewBaseService(db)}
}

// AutoMigrate 自动迁移审批相关表
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(&Request{}, &Offer{})
}

// ============================================================================
// 读取
// ============================================================================

// FetchRequests 拉取租户下全部需求
// 读失败返回 *FetchFailure，绝不以零值集合冒充查询结果
func (s *Service) FetchRequests(ctx context.Context, tenantID string) ([]*Request, error) {
	var requests []*Request
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, &FetchFailure{Table: "requests", Err: err}
	}
	return requests, nil
}

// FetchOffers 拉取租户下全部报价
func (s *Service) FetchOffers(ctx context.Context, tenantID string) ([]*Offer, error) {
	var offers []*Offer
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Order("created_at DESC").
		Find(&offers).Error
	if err != nil {
		return nil, &FetchFailure{Table: "offers", Err: err}
	}
	return offers, nil
}

// FetchRequestsByIDs 按 ID 列表拉取需求（导出用）
func (s *Service) FetchRequestsByIDs(ctx context.Context, tenantID string, ids []string) ([]*Request, error) {
	var requests []*Request
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, &FetchFailure{Table: "requests", Err: err}
	}
	return requests, nil
}

// FetchOffersByIDs 按 ID 列表拉取报价（导出用）
func (s *Service) FetchOffersByIDs(ctx context.Context, tenantID string, ids []string) ([]*Offer, error) {
	var offers []*Offer
	err := s.GetDBWithContext(ctx).
		Scopes(common.ByTenant(tenantID)).
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&offers).Error
	if err != nil {
		return nil, &FetchFailure{Table: "offers", Err: err}
	}
	return offers, nil
}

// PendingQueue 合并待审队列
// 每次调用都重新拉取两张表再计算，本地不保留权威状态
func (s *Service) PendingQueue(ctx context.Context, tenantID string, limit int) ([]ApprovableItem, error) {
	requests, err := s.FetchRequests(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	offers, err := s.FetchOffers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return PendingItems(requests, offers, limit, time.Now().UTC()), nil
}

// Metrics 审批指标快照
func (s *Service) Metrics(ctx context.Context, tenantID string) (*ApprovalMetrics, error) {
	requests, err := s.FetchRequests(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	offers, err := s.FetchOffers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m := Aggregate(requests, offers, time.Now().UTC())
	return &m, nil
}

// ============================================================================
// 写入
// ============================================================================

// CreateRequest 创建需求，入库前校验枚举取值
func (s *Service) CreateRequest(ctx context.Context, req *Request) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.UrgencyTier == "" {
		req.UrgencyTier = TierMedium
	}
	if req.AdminStatus == "" {
		req.AdminStatus = StatusPending
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.Create(ctx, req); err != nil {
		return fmt.Errorf("创建需求失败: %w", err)
	}
	return nil
}

// CreateOffer 创建报价，入库前校验枚举取值
func (s *Service) CreateOffer(ctx context.Context, offer *Offer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if offer.AdminStatus == "" {
		offer.AdminStatus = StatusPending
	}
	if offer.ClientStatus == "" {
		offer.ClientStatus = StatusPending
	}
	if err := offer.Validate(); err != nil {
		return err
	}
	if err := s.Create(ctx, offer); err != nil {
		return fmt.Errorf("创建报价失败: %w", err)
	}
	return nil
}

// decisionPatch 裁决要写入的字段
func decisionPatch(action Action, notes string, now time.Time) map[string]any {
	return map[string]any{
		"admin_status":   action.Status(),
		"decision_notes": notes,
		"decided_at":     now,
		"updated_at":     now,
	}
}

// DecideRequests 对一组需求执行批量裁决（单次 SQL 覆盖全部 ID）
func (s *Service) DecideRequests(ctx context.Context, tenantID string, ids []string, action Action, notes string) (int64, error) {
	affected, err := s.BatchUpdate(ctx, &Request{}, decisionPatch(action, notes, time.Now().UTC()),
		"tenant_id = ? AND id IN ?", tenantID, ids)
	if err != nil {
		return 0, &MutationFailure{Table: "requests", ID: fmt.Sprintf("%d项", len(ids)), Err: err}
	}
	return affected, nil
}

// DecideOffer 对单条报价执行裁决（管理员轴）
func (s *Service) DecideOffer(ctx context.Context, tenantID, id string, action Action, notes string) error {
	result := s.GetDBWithContext(ctx).
		Model(&Offer{}).
		Scopes(common.ByTenant(tenantID)).
		Where("id = ?", id).
		Updates(decisionPatch(action, notes, time.Now().UTC()))
	if result.Error != nil {
		return &MutationFailure{Table: "offers", ID: id, Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return &MutationFailure{Table: "offers", ID: id, Err: gorm.ErrRecordNotFound}
	}
	return nil
}
