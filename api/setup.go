package api

import (
	"backend/internal/config"
	"backend/internal/infra/queue"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter 设置并返回 Gin 路由和 Worker 服务器
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *worker.Server, error) {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(), CORS(), metrics.PrometheusMiddleware())

	// 初始化队列客户端（延迟动作经 asynq 调度）
	queueClient := queue.NewClient(cfg.Redis)

	container, err := InitContainer(db, cfg, queueClient)
	if err != nil {
		logger.Error("初始化应用容器失败", zap.Error(err))
		return nil, nil, err
	}

	// 系统端点
	router.GET("/health", HealthCheck(db))
	router.GET("/ready", ReadinessCheck(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, container.InitHandlers())

	workerServer := worker.NewServer(cfg.Redis, container.Engine, logger.Get())
	return router, workerServer, nil
}
