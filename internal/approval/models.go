package approval

import (
	"fmt"
	"time"
)

// UrgencyTier 紧急程度档位（由申请人声明，区别于计算出的紧急分数）
type UrgencyTier string

const (
	TierLow    UrgencyTier = "low"
	TierMedium UrgencyTier = "medium"
	TierHigh   UrgencyTier = "high"
	TierUrgent UrgencyTier = "urgent"
)

// Valid 校验档位取值
func (t UrgencyTier) Valid() bool {
	switch t {
	case TierLow, TierMedium, TierHigh, TierUrgent:
		return true
	}
	return false
}

// Status 审批状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid 校验状态取值
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ItemKind 待审批条目类型
type ItemKind string

const (
	KindRequest ItemKind = "request"
	KindOffer   ItemKind = "offer"
)

// Request 采购需求（RFQ）
type Request struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenantId" gorm:"type:uuid;not null;index"`

	// 需求信息
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`

	// 申请人（冗余展示字段，关联失败时为 Unknown）
	RequesterName string `json:"requesterName" gorm:"size:255;default:'Unknown'"`

	// 紧急程度与预算
	UrgencyTier UrgencyTier `json:"urgencyTier" gorm:"size:20;not null;default:medium"`
	Budget      *float64    `json:"budget"`

	// 管理员审批
	AdminStatus   Status     `json:"adminStatus" gorm:"size:20;not null;default:pending;index"`
	DecisionNotes string     `json:"decisionNotes" gorm:"type:text"`
	DecidedAt     *time.Time `json:"decidedAt"`

	// 时间戳
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Request) TableName() string {
	return "requests"
}

// Validate 在入库边界校验枚举取值，拒绝未知状态字符串
func (r *Request) Validate() error {
	if !r.UrgencyTier.Valid() {
		return fmt.Errorf("未知的紧急程度: %s", r.UrgencyTier)
	}
	if !r.AdminStatus.Valid() {
		return fmt.Errorf("未知的审批状态: %s", r.AdminStatus)
	}
	return nil
}

// Offer 供应商报价
type Offer struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID  string `json:"tenantId" gorm:"type:uuid;not null;index"`
	RequestID string `json:"requestId" gorm:"type:uuid;index"`

	// 报价信息
	Title      string   `json:"title" gorm:"size:255;not null"`
	VendorName string   `json:"vendorName" gorm:"size:255;default:'Unknown'"`
	Price      *float64 `json:"price"`

	// 双轴审批：管理员 + 客户
	AdminStatus  Status `json:"adminStatus" gorm:"size:20;not null;default:pending;index"`
	ClientStatus Status `json:"clientStatus" gorm:"size:20;not null;default:pending;index"`

	DecisionNotes string     `json:"decisionNotes" gorm:"type:text"`
	DecidedAt     *time.Time `json:"decidedAt"`

	// 时间戳
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

func (Offer) TableName() string {
	return "offers"
}

// Validate 在入库边界校验枚举取值
func (o *Offer) Validate() error {
	if !o.AdminStatus.Valid() {
		return fmt.Errorf("未知的管理员审批状态: %s", o.AdminStatus)
	}
	if !o.ClientStatus.Valid() {
		return fmt.Errorf("未知的客户审批状态: %s", o.ClientStatus)
	}
	return nil
}

// Pending 报价只要任意一个审批轴仍为 pending 即视为待处理
func (o *Offer) Pending() bool {
	return o.AdminStatus == StatusPending || o.ClientStatus == StatusPending
}

// ApprovableItem 需求与报价投影到的统一待审条目
type ApprovableItem struct {
	ID           string      `json:"id"`
	Kind         ItemKind    `json:"kind"`
	Title        string      `json:"title"`
	CreatedAt    time.Time   `json:"createdAt"`
	UrgencyTier  UrgencyTier `json:"urgencyTier"`
	AdminStatus  Status      `json:"adminStatus"`
	ClientStatus *Status     `json:"clientStatus,omitempty"` // 仅报价携带客户审批轴
	OwnerName    string      `json:"ownerName"`

	// 预算（需求）或价格（报价），可能缺失
	MonetaryValue *float64 `json:"monetaryValue,omitempty"`

	// 附加的展示元数据，不参与队列排序
	UrgencyScore float64 `json:"urgencyScore"`
	DisplayScore int     `json:"displayScore"`
}

// ItemFromRequest 将需求投影为统一待审条目
func ItemFromRequest(r *Request, now time.Time) ApprovableItem {
	owner := r.RequesterName
	if owner == "" {
		owner = "Unknown"
	}
	return ApprovableItem{
		ID:            r.ID,
		Kind:          KindRequest,
		Title:         r.Title,
		CreatedAt:     r.CreatedAt,
		UrgencyTier:   r.UrgencyTier,
		AdminStatus:   r.AdminStatus,
		OwnerName:     owner,
		MonetaryValue: r.Budget,
		UrgencyScore:  UrgencyScore(r.UrgencyTier, r.CreatedAt, now),
		DisplayScore:  DisplayScore(r.UrgencyTier),
	}
}

// ItemFromOffer 将报价投影为统一待审条目，紧急程度固定为 medium
func ItemFromOffer(o *Offer, now time.Time) ApprovableItem {
	owner := o.VendorName
	if owner == "" {
		owner = "Unknown"
	}
	clientStatus := o.ClientStatus
	return ApprovableItem{
		ID:            o.ID,
		Kind:          KindOffer,
		Title:         o.Title,
		CreatedAt:     o.CreatedAt,
		UrgencyTier:   TierMedium,
		AdminStatus:   o.AdminStatus,
		ClientStatus:  &clientStatus,
		OwnerName:     owner,
		MonetaryValue: o.Price,
		UrgencyScore:  UrgencyScore(TierMedium, o.CreatedAt, now),
		DisplayScore:  DisplayScore(TierMedium),
	}
}
