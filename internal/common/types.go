package common

import "time"

// ============================================================================
// 通用请求类型
// ============================================================================

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`           // 页码，从1开始
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1"` // 每页数量
}

// DefaultPagination 返回默认分页参数
func DefaultPagination() PaginationRequest {
	return PaginationRequest{
		Page:     1,
		PageSize: 20,
	}
}

// GetOffset 计算数据库查询的偏移量
func (p PaginationRequest) GetOffset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.GetPageSize()
}

// GetPageSize 获取每页数量，提供默认值
func (p PaginationRequest) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// FilterRequest 通用过滤请求
type FilterRequest struct {
	Keyword       string            `json:"keyword" form:"keyword"`                 // 关键词搜索
	Status        string            `json:"status" form:"status"`                   // 状态筛选
	DateRange     *DateRange        `json:"date_range"`                             // 日期范围
	CustomFilters map[string]any    `json:"filters"`                                // 自定义过滤条件
	SortBy        string            `json:"sort_by" form:"sort_by"`                 // 排序字段
	SortOrder     string            `json:"sort_order" form:"sort_order"`           // 排序方向: asc, desc
}

// DateRange 日期范围
type DateRange struct {
	Start time.Time `json:"start"` // 开始时间
	End   time.Time `json:"end"`   // 结束时间
}

// ListRequest 通用列表请求（组合分页和过滤）
type ListRequest struct {
	PaginationRequest
	FilterRequest
}

// IDRequest 通过ID查询的请求
type IDRequest struct {
	ID string `json:"id" uri:"id" binding:"required"` // 资源ID
}

// IDsRequest 批量ID请求
type IDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"` // 资源ID列表
}

// ============================================================================
// 通用响应类型
// ============================================================================

// APIResponse 统一API响应格式
type APIResponse struct {
	Success bool   `json:"success"`           // 是否成功
	Data    any    `json:"data,omitempty"`    // 响应数据
	Message string `json:"message,omitempty"` // 提示信息
	Code    int    `json:"code"`              // 业务状态码
}

// SuccessResponse 成功响应
func SuccessResponse(data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Code:    0,
	}
}

// SuccessMessageResponse 成功响应（带消息）
func SuccessMessageResponse(message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Message: message,
		Code:    0,
	}
}

// ErrorResponse 错误响应
func ErrorResponse(code int, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// PaginationMeta 分页元信息
type PaginationMeta struct {
	Page       int   `json:"page"`        // 当前页码
	PageSize   int   `json:"page_size"`   // 每页数量
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
}

// CalculateTotalPages 计算总页数
func (m *PaginationMeta) CalculateTotalPages() {
	if m.PageSize > 0 {
		m.TotalPages = int((m.Total + int64(m.PageSize) - 1) / int64(m.PageSize))
	}
}

// NewPaginationMeta 创建分页元信息
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	meta.CalculateTotalPages()
	return meta
}

// ListResponse 列表响应（包含分页信息）
type ListResponse struct {
	Items      any            `json:"items"`      // 数据列表
	Pagination PaginationMeta `json:"pagination"` // 分页信息
}

// NewListResponse 创建列表响应
func NewListResponse(items any, page, pageSize int, total int64) ListResponse {
	return ListResponse{
		Items:      items,
		Pagination: NewPaginationMeta(page, pageSize, total),
	}
}

// ============================================================================
// 业务状态码定义
// ============================================================================

const (
	// 成功状态码
	CodeSuccess = 0

	// 通用错误码 (1000-1999)
	CodeInvalidRequest   = 1000 // 请求参数错误
	CodeUnauthorized     = 1001 // 未授权
	CodeForbidden        = 1002 // 禁止访问
	CodeNotFound         = 1003 // 资源不存在
	CodeConflict         = 1004 // 资源冲突
	CodeInternalError    = 1005 // 内部错误
	CodeServiceUnavailable = 1006 // 服务不可用

	// 租户相关错误码 (2000-2099)
	CodeTenantNotFound = 2000 // 租户不存在
	CodeTenantMissing  = 2001 // 请求缺少租户标识

	// 审批相关错误码 (3000-3099)
	CodeRequestNotFound    = 3000 // 采购请求不存在
	CodeOfferNotFound      = 3001 // 报价不存在
	CodeInvalidAction      = 3002 // 审批动作无效
	CodeInvalidItemType    = 3003 // 审批对象类型无效
	CodeBulkPartialFailure = 3010 // 批量审批部分失败
	CodeExportFailed       = 3020 // 数据导出失败

	// 工作流规则相关错误码 (4000-4099)
	CodeRuleNotFound          = 4000 // 工作流规则不存在
	CodeRuleValidationFailed  = 4001 // 工作流规则验证失败
	CodeRuleTransitionDenied  = 4002 // 规则状态流转不允许
	CodeExecutionNotFound     = 4010 // 执行记录不存在
	CodeExecutionFailed       = 4011 // 规则动作执行失败

	// 自动化任务相关错误码 (5000-5099)
	CodeTaskNotFound         = 5000 // 自动化任务不存在
	CodeTaskAlreadyCompleted = 5001 // 任务已完成
)

// ErrorMessages 错误码对应的默认消息
var ErrorMessages = map[int]string{
	CodeSuccess:            "操作成功",
	CodeInvalidRequest:     "请求参数错误",
	CodeUnauthorized:       "未授权，请先登录",
	CodeForbidden:          "无权限访问",
	CodeNotFound:           "资源不存在",
	CodeConflict:           "资源冲突",
	CodeInternalError:      "系统内部错误",
	CodeServiceUnavailable: "服务暂不可用",

	CodeTenantNotFound: "租户不存在",
	CodeTenantMissing:  "请求缺少租户标识",

	CodeRequestNotFound:    "采购请求不存在",
	CodeOfferNotFound:      "报价不存在",
	CodeInvalidAction:      "审批动作无效",
	CodeInvalidItemType:    "审批对象类型无效",
	CodeBulkPartialFailure: "批量审批部分失败",
	CodeExportFailed:       "数据导出失败",

	CodeRuleNotFound:         "工作流规则不存在",
	CodeRuleValidationFailed: "工作流规则验证失败",
	CodeRuleTransitionDenied: "规则状态流转不允许",
	CodeExecutionNotFound:    "执行记录不存在",
	CodeExecutionFailed:      "规则动作执行失败",

	CodeTaskNotFound:         "自动化任务不存在",
	CodeTaskAlreadyCompleted: "任务已完成",
}

// GetErrorMessage 获取错误码对应的消息
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}

// ============================================================================
// 通用业务错误类型
// ============================================================================

// BusinessError 业务错误
type BusinessError struct {
	Code    int    // 错误码
	Message string // 错误信息
}

// Error 实现error接口
func (e *BusinessError) Error() string {
	return e.Message
}

// NewBusinessError 创建业务错误
func NewBusinessError(code int, message string) *BusinessError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &BusinessError{
		Code:    code,
		Message: message,
	}
}

// NewBusinessErrorWithCode 根据错误码创建业务错误
func NewBusinessErrorWithCode(code int) *BusinessError {
	return NewBusinessError(code, GetErrorMessage(code))
}
