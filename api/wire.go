package api

import (
	approvalHandlers "backend/api/handlers/approvals"
	automationHandlers "backend/api/handlers/automation"
	"backend/internal/approval"
	"backend/internal/automation"
	"backend/internal/config"
	"backend/internal/infra/queue"
	"backend/internal/logger"

	"gorm.io/gorm"
)

// AppContainer 应用依赖容器
type AppContainer struct {
	DB     *gorm.DB
	Config *config.Config

	QueueClient queue.Client

	ApprovalSvc *approval.Service
	RuleSvc     *automation.RuleService
	TaskSvc     *automation.TaskService
	Engine      *automation.Engine
}

// Handlers HTTP 处理器集合
type Handlers struct {
	Approvals *approvalHandlers.Handler
	Rules     *automationHandlers.RuleHandler
	Tasks     *automationHandlers.TaskHandler
}

// InitContainer 初始化应用容器
func InitContainer(db *gorm.DB, cfg *config.Config, queueClient queue.Client) (*AppContainer, error) {
	approvalSvc := approval.NewService(db)
	ruleSvc := automation.NewRuleService(db)
	taskSvc := automation.NewTaskService(db)
	engine := automation.NewEngine(db, approvalSvc, queueClient, logger.Get())

	c := &AppContainer{
		DB:          db,
		Config:      cfg,
		QueueClient: queueClient,
		ApprovalSvc: approvalSvc,
		RuleSvc:     ruleSvc,
		TaskSvc:     taskSvc,
		Engine:      engine,
	}

	if c.shouldAutoMigrate() {
		if err := approvalSvc.AutoMigrate(); err != nil {
			return nil, err
		}
		if err := ruleSvc.AutoMigrate(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// shouldAutoMigrate 是否在启动时自动迁移表结构
func (c *AppContainer) shouldAutoMigrate() bool {
	return c.Config == nil || c.Config.Database.AutoMigrate
}

// InitHandlers 构建所有 HTTP 处理器
func (c *AppContainer) InitHandlers() *Handlers {
	queueLimit := 0
	if c.Config != nil {
		queueLimit = c.Config.Approval.QueueLimit
	}

	bulk := approval.NewBulkProcessor(c.ApprovalSvc, logger.Get())

	return &Handlers{
		Approvals: approvalHandlers.NewHandler(c.ApprovalSvc, bulk, queueLimit),
		Rules:     automationHandlers.NewRuleHandler(c.RuleSvc, c.Engine),
		Tasks:     automationHandlers.NewTaskHandler(c.TaskSvc),
	}
}
