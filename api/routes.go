package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	apiV1 := router.Group("/api/v1")
	apiV1.Use(TenantRequired())

	// 审批队列
	approvals := apiV1.Group("/approvals")
	{
		approvals.GET("/queue", handlers.Approvals.GetQueue)
		approvals.GET("/metrics", handlers.Approvals.GetMetrics)
		approvals.POST("/bulk", handlers.Approvals.BulkDecide)
		approvals.POST("/export", handlers.Approvals.Export)
	}

	// 采购需求与报价
	apiV1.POST("/requests", handlers.Approvals.CreateRequest)
	apiV1.POST("/offers", handlers.Approvals.CreateOffer)
	apiV1.POST("/offers/:id/decide", handlers.Approvals.DecideOffer)

	// 工作流自动化
	automationGroup := apiV1.Group("/automation")
	{
		automationGroup.POST("/rules", handlers.Rules.CreateRule)
		automationGroup.GET("/rules", handlers.Rules.ListRules)
		automationGroup.GET("/rules/:id", handlers.Rules.GetRule)
		automationGroup.PUT("/rules/:id", handlers.Rules.UpdateRule)
		automationGroup.DELETE("/rules/:id", handlers.Rules.DeleteRule)
		automationGroup.POST("/rules/:id/activate", handlers.Rules.ActivateRule)
		automationGroup.POST("/rules/:id/deactivate", handlers.Rules.DeactivateRule)
		automationGroup.POST("/rules/:id/trigger", handlers.Rules.TriggerRule)
		automationGroup.POST("/trigger", handlers.Rules.TriggerByType)
		automationGroup.GET("/executions", handlers.Rules.ListExecutions)
		automationGroup.GET("/stats", handlers.Rules.GetStats)

		automationGroup.POST("/tasks", handlers.Tasks.CreateTask)
		automationGroup.GET("/tasks", handlers.Tasks.ListTasks)
		automationGroup.POST("/tasks/:id/complete", handlers.Tasks.CompleteTask)
		automationGroup.DELETE("/tasks/:id", handlers.Tasks.DeleteTask)
	}
}
