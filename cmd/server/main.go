package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"noticeboard/config"
	"noticeboard/internal/api"
	"noticeboard/internal/audit"
	"noticeboard/internal/migration"
	"noticeboard/internal/repository"
	"noticeboard/internal/seed"
	"noticeboard/internal/service"
	"noticeboard/pkg/async"
	"noticeboard/pkg/database"
	"noticeboard/pkg/logger"
	"noticeboard/pkg/storage"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log := logger.NewLoggerWithConfig(cfg.LogLevel, cfg.LogFile)
	defer log.Sync()

	// 初始化MySQL连接
	db, err := database.NewMySQLConnection(cfg.Database)
	if err != nil {
		log.Fatal("初始化数据库失败", "error", err)
	}
	defer db.Close()

	// 初始化Redis连接
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("初始化Redis失败", "error", err)
	}
	defer redisClient.Close()

	ctx := context.Background()

	// 执行数据库迁移，失败直接终止启动
	migrator := migration.NewMigrator(db, log)
	if err := migrator.Run(ctx); err != nil {
		log.Fatal("数据库迁移失败", "error", err)
	}

	adminRepo := repository.NewAdminUserRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)

	// 凭据完整性审计，报告只记日志，从不阻塞启动
	auditor := audit.NewAuditor(adminRepo, cfg.Admin.Password, log)
	report := auditor.Run(ctx)
	if reportJSON, err := json.Marshal(report); err == nil {
		log.Info("凭据审计完成", "report", string(reportJSON))
	}

	// 确保默认管理员存在
	adminService := service.NewAdminService(adminRepo, cfg.Admin, log)
	if err := adminService.EnsureDefaultAdmin(ctx); err != nil {
		log.Fatal("创建默认管理员失败", "error", err)
	}

	// 同步外部公告目录，失败不阻塞启动
	synchronizer := seed.NewSynchronizer(noticeRepo, log, cfg.Notice)
	if changed, err := synchronizer.Run(ctx); err != nil {
		log.Error("公告目录同步失败", "error", err)
	} else {
		log.Info("公告目录同步完成", "changed", changed)
	}

	// 启动异步任务处理器
	worker := async.NewWorker(100, log)
	worker.Start(2)

	// 初始化附件存储
	store := storage.NewStorage(cfg.R2, cfg.Notice.UploadDir, log)

	// 设置路由
	router := api.SetupRouter(cfg, log, db, redisClient, store, worker)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIPort),
		Handler: router,
	}

	go func() {
		log.Info("服务启动", "port", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("服务启动失败", "error", err)
		}
	}()

	// 等待中断信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到关闭信号，开始优雅关闭")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("服务关闭异常", "error", err)
	}

	// 等待队列中剩余的附件清理任务
	worker.Stop()
	log.Info("服务已退出")
}
