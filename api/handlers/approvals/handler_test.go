package approvals

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backend/internal/approval"
	"backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type bulkEnvelope struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Result approval.BulkResult       `json:"result"`
		Queue  []approval.ApprovableItem `json:"queue"`
	} `json:"data"`
}

func setupApprovalRouter(t *testing.T) (*gin.Engine, *approval.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&approval.Request{}, &approval.Offer{}))

	svc := approval.NewService(db)
	handler := NewHandler(svc, approval.NewBulkProcessor(svc, zap.NewNop()), 0)

	router := gin.New()
	group := router.Group("/api/v1", func(c *gin.Context) {
		c.Set("tenant_id", "t-1")
	})
	group.POST("/approvals/bulk", handler.BulkDecide)
	return router, svc
}

func postBulk(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/bulk", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBulkDecidePartialFailureReturnsRefetchedQueue(t *testing.T) {
	router, svc := setupApprovalRouter(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// 客户轴已通过的报价：管理员批准后即离开待审队列
	for _, id := range []string{"o-1", "o-3"} {
		require.NoError(t, svc.CreateOffer(ctx, &approval.Offer{
			ID:           id,
			TenantID:     "t-1",
			Title:        "报价 " + id,
			ClientStatus: approval.StatusApproved,
			CreatedAt:    now,
		}))
	}
	require.NoError(t, svc.CreateRequest(ctx, &approval.Request{
		ID: "r-1", TenantID: "t-1", Title: "未触碰的需求", CreatedAt: now,
	}))

	// o-2 不存在：批量中间失败，前后条目照常提交
	w := postBulk(t, router, gin.H{
		"action":   "approve",
		"itemType": "offers",
		"ids":      []string{"o-1", "o-2", "o-3"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope bulkEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, common.CodeBulkPartialFailure, envelope.Code)

	require.Equal(t, 3, envelope.Data.Result.Requested)
	require.Equal(t, 2, envelope.Data.Result.Succeeded)
	require.Equal(t, []string{"o-2"}, envelope.Data.Result.FailedIDs)

	// 随响应返回的队列是重新拉取的服务端状态：已提交的 o-1/o-3 消失，
	// 只剩未被触碰的需求
	require.Len(t, envelope.Data.Queue, 1)
	require.Equal(t, "r-1", envelope.Data.Queue[0].ID)
}

func TestBulkDecideSuccessRefetchesQueue(t *testing.T) {
	router, svc := setupApprovalRouter(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, svc.CreateRequest(ctx, &approval.Request{
		ID: "r-1", TenantID: "t-1", Title: "需求一", CreatedAt: now,
	}))
	require.NoError(t, svc.CreateRequest(ctx, &approval.Request{
		ID: "r-2", TenantID: "t-1", Title: "需求二", CreatedAt: now,
	}))

	w := postBulk(t, router, gin.H{
		"action":   "reject",
		"itemType": "requests",
		"ids":      []string{"r-1"},
		"notes":    "预算超限",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope bulkEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Equal(t, 1, envelope.Data.Result.Succeeded)

	require.Len(t, envelope.Data.Queue, 1)
	require.Equal(t, "r-2", envelope.Data.Queue[0].ID)
}

func TestBulkDecideRejectsUnknownEnums(t *testing.T) {
	router, _ := setupApprovalRouter(t)

	w := postBulk(t, router, gin.H{
		"action":   "escalate",
		"itemType": "requests",
		"ids":      []string{"r-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var envelope bulkEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.Equal(t, common.CodeInvalidAction, envelope.Code)

	w = postBulk(t, router, gin.H{
		"action":   "approve",
		"itemType": "contracts",
		"ids":      []string{"r-1"},
	})
	var envelope2 bulkEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope2))
	require.Equal(t, common.CodeInvalidItemType, envelope2.Code)
}
