package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TonyV66/LunchSystem-sub000/internal/api/handler"
	"github.com/TonyV66/LunchSystem-sub000/internal/api/router"
	"github.com/TonyV66/LunchSystem-sub000/internal/app"
	"github.com/TonyV66/LunchSystem-sub000/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 ./config.yaml）")
	flag.Parse()

	// 1. 加载配置与日志
	cfg, logger, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.School.Timezone),
	)

	// 2. 数据库、Redis、对象存储
	infra, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("初始化基础设施失败", zap.Error(err))
	}

	// 3. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := infra.Services(cfg, jwtMgr)
	checks := map[string]handler.Pinger{"database": infra.Repo}
	if infra.Redis != nil {
		checks["redis"] = infra.Redis
	}
	h := handler.NewHandler(svc, checks)

	// 4. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, infra.Redis, logger)

	// 5. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 6. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	infra.Close()

	logger.Info("服务器已关闭")
}
