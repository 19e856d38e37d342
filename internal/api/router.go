package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"noticeboard/config"
	adminapi "noticeboard/internal/api/admin"
	"noticeboard/internal/api/handler"
	"noticeboard/internal/audit"
	"noticeboard/internal/middleware"
	"noticeboard/internal/repository"
	"noticeboard/internal/service"
	"noticeboard/pkg/async"
	"noticeboard/pkg/logger"
	"noticeboard/pkg/storage"
)

// SetupRouter 设置API路由
func SetupRouter(cfg *config.Config, log *logger.Logger, db *sqlx.DB, redisClient *redis.Client, store *storage.Storage, worker *async.Worker) *gin.Engine {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// 初始化仓库层
	noticeRepo := repository.NewNoticeRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 初始化服务层
	noticeService := service.NewNoticeService(noticeRepo, redisClient, store, worker, log)
	adminService := service.NewAdminService(adminRepo, cfg.Admin, log)
	auditor := audit.NewAuditor(adminRepo, cfg.Admin.Password, log)

	// 初始化处理器
	noticeHandler := handler.NewNoticeHandler(noticeService, log)
	authHandler := handler.NewAuthHandler(adminService, cfg.JWT, log)
	noticeAdminHandler := adminapi.NewNoticeAdminHandler(noticeService, store, log)
	credentialHandler := adminapi.NewCredentialAdminHandler(auditor, log)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 本地附件静态目录
	router.Static("/uploads", cfg.Notice.UploadDir)

	v1 := router.Group("/api/v1")
	{
		// 公开接口
		v1.GET("/notices", noticeHandler.GetNotices)
		v1.GET("/notices/categories", noticeHandler.GetCategories)
		v1.GET("/notices/:id", noticeHandler.GetNoticeByID)

		// 登录不走认证中间件
		v1.POST("/admin/login", authHandler.Login)

		// 管理后台接口
		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.AdminAuth(cfg.JWT.Secret, adminService))
		adminapi.RegisterAdminRoutes(adminGroup, authHandler, noticeAdminHandler, credentialHandler)
	}

	return router
}
