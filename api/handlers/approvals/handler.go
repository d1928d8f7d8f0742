package approvals

import (
	"errors"

	"backend/internal/approval"
	"backend/internal/common"
	"backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 审批队列处理器
type Handler struct {
	svc      *approval.Service
	bulk     *approval.BulkProcessor
	exporter *approval.Exporter

	// 队列默认长度，来自配置
	queueLimit int
}

// NewHandler 创建审批队列处理器
func NewHandler(svc *approval.Service, bulk *approval.BulkProcessor, queueLimit int) *Handler {
	if queueLimit <= 0 {
		queueLimit = approval.DefaultQueueLimit
	}
	return &Handler{
		svc:        svc,
		bulk:       bulk,
		exporter:   approval.NewExporter(svc),
		queueLimit: queueLimit,
	}
}

// GetQueue 获取合并后的待审批队列
// GET /api/v1/approvals/queue
func (h *Handler) GetQueue(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	limit := h.queueLimit
	var query struct {
		Limit int `form:"limit" binding:"omitempty,min=1"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		common.ResponseBadRequest(c, "limit 参数无效")
		return
	}
	if query.Limit > 0 {
		limit = query.Limit
	}

	items, err := h.svc.PendingQueue(c.Request.Context(), tenantID, limit)
	if err != nil {
		common.ResponseServerError(c, "查询待审批队列失败")
		return
	}

	metrics.PendingQueueSize.WithLabelValues(tenantID).Set(float64(len(items)))

	common.ResponseSuccess(c, gin.H{
		"items": items,
		"total": len(items),
	})
}

// GetMetrics 获取审批指标快照
// GET /api/v1/approvals/metrics
func (h *Handler) GetMetrics(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	snapshot, err := h.svc.Metrics(c.Request.Context(), tenantID)
	if err != nil {
		common.ResponseServerError(c, "统计审批指标失败")
		return
	}

	common.ResponseSuccess(c, snapshot)
}

// BulkDecideRequest 批量审批请求
type BulkDecideRequest struct {
	Action   string   `json:"action" binding:"required"`
	ItemType string   `json:"itemType" binding:"required"`
	IDs      []string `json:"ids" binding:"required,min=1"`
	Notes    string   `json:"notes"`
}

// BulkDecide 批量审批/驳回
// POST /api/v1/approvals/bulk
//
// 部分失败不回滚：返回成功条数与失败ID列表，随后无条件重新拉取
// 待审队列，调用方以服务端状态为准。
func (h *Handler) BulkDecide(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req BulkDecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	action := approval.Action(req.Action)
	if !action.Valid() {
		common.ResponseError(c, common.CodeInvalidAction, "审批动作无效: "+req.Action)
		return
	}
	itemType := approval.ItemType(req.ItemType)
	if !itemType.Valid() {
		common.ResponseError(c, common.CodeInvalidItemType, "审批对象类型无效: "+req.ItemType)
		return
	}

	result, err := h.bulk.Apply(c.Request.Context(), tenantID, action, itemType, req.IDs, req.Notes)

	// 无论成败都重新拉取队列，不信任本地缓存。
	// 拉取失败时 queue 置 null（而非空数组）：前端据此区分"队列已清空"
	// 和"刷新失败"，裁决结果本身不因刷新失败而丢失。
	queue, qErr := h.svc.PendingQueue(c.Request.Context(), tenantID, h.queueLimit)
	if qErr != nil {
		queue = nil
	}

	if err != nil {
		var partial *approval.PartialBatchFailure
		if errors.As(err, &partial) {
			// 部分失败仍返回200，携带成功条数与失败ID，前端一次提示
			c.JSON(200, common.APIResponse{
				Success: false,
				Code:    common.CodeBulkPartialFailure,
				Message: partial.Error(),
				Data: gin.H{
					"result": result,
					"queue":  queue,
				},
			})
			return
		}
		common.ResponseServerError(c, "批量审批失败: "+err.Error())
		return
	}

	common.ResponseSuccess(c, gin.H{
		"result": result,
		"queue":  queue,
	})
}

// ExportRequest CSV导出请求
type ExportRequest struct {
	ItemType string   `json:"itemType" binding:"required"`
	IDs      []string `json:"ids" binding:"required,min=1"`
}

// Export 导出选中条目为CSV
// POST /api/v1/approvals/export
func (h *Handler) Export(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	itemType := approval.ItemType(req.ItemType)
	if !itemType.Valid() {
		common.ResponseError(c, common.CodeInvalidItemType, "审批对象类型无效: "+req.ItemType)
		return
	}

	result, err := h.exporter.Export(c.Request.Context(), tenantID, itemType, req.IDs)
	if err != nil {
		common.ResponseError(c, common.CodeExportFailed, "数据导出失败")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(200, result.ContentType, result.Data)
}

// CreateRequestBody 创建采购需求请求
type CreateRequestBody struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	RequesterName string   `json:"requesterName"`
	UrgencyTier   string   `json:"urgencyTier"`
	Budget        *float64 `json:"budget"`
}

// CreateRequest 创建采购需求
// POST /api/v1/requests
func (h *Handler) CreateRequest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	req := &approval.Request{
		TenantID:      tenantID,
		Title:         body.Title,
		Description:   body.Description,
		RequesterName: body.RequesterName,
		UrgencyTier:   approval.UrgencyTier(body.UrgencyTier),
		Budget:        body.Budget,
	}
	if err := h.svc.CreateRequest(c.Request.Context(), req); err != nil {
		common.ResponseBadRequest(c, err.Error())
		return
	}

	common.ResponseCreated(c, req)
}

// CreateOfferBody 创建供应商报价请求
type CreateOfferBody struct {
	RequestID  string   `json:"requestId"`
	Title      string   `json:"title" binding:"required"`
	VendorName string   `json:"vendorName"`
	Price      *float64 `json:"price"`
}

// CreateOffer 创建供应商报价
// POST /api/v1/offers
func (h *Handler) CreateOffer(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var body CreateOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	offer := &approval.Offer{
		TenantID:   tenantID,
		RequestID:  body.RequestID,
		Title:      body.Title,
		VendorName: body.VendorName,
		Price:      body.Price,
	}
	if err := h.svc.CreateOffer(c.Request.Context(), offer); err != nil {
		common.ResponseBadRequest(c, err.Error())
		return
	}

	common.ResponseCreated(c, offer)
}

// DecideOfferBody 单条报价裁决请求
type DecideOfferBody struct {
	Action string `json:"action" binding:"required"`
	Notes  string `json:"notes"`
}

// DecideOffer 对单条报价执行裁决
// POST /api/v1/offers/:id/decide
func (h *Handler) DecideOffer(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	offerID := c.Param("id")

	var body DecideOfferBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "参数错误: "+err.Error())
		return
	}

	action := approval.Action(body.Action)
	if !action.Valid() {
		common.ResponseError(c, common.CodeInvalidAction, "审批动作无效: "+body.Action)
		return
	}

	if err := h.svc.DecideOffer(c.Request.Context(), tenantID, offerID, action, body.Notes); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.ResponseError(c, common.CodeOfferNotFound, common.GetErrorMessage(common.CodeOfferNotFound))
			return
		}
		common.ResponseServerError(c, "报价裁决失败")
		return
	}

	common.ResponseSuccessMessage(c, "裁决已提交", nil)
}
