// Package app 组装 cmd/server 与 cmd/lunchctl 共用的基础设施。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/internal/service"
	"github.com/TonyV66/LunchSystem-sub000/pkg/database"
	"github.com/TonyV66/LunchSystem-sub000/pkg/jwt"
	applogger "github.com/TonyV66/LunchSystem-sub000/pkg/logger"
	"github.com/TonyV66/LunchSystem-sub000/pkg/redis"
	"github.com/TonyV66/LunchSystem-sub000/pkg/storage"
)

// LoadConfig 读取 .env（可选）后加载配置并初始化日志
func LoadConfig(path string) (*config.Config, *zap.Logger, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}

// Infra 数据库、Redis 与归档存储；Redis 与归档为可选依赖
type Infra struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Archive *storage.S3Store
	Repo    *repository.Repository

	logger *zap.Logger
}

// Open 连接数据库（按配置执行迁移），并尝试连接 Redis 与对象存储
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	db, err := database.NewDB(&cfg.Database, logger, cfg.Log.Level == "debug")
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功")

	if cfg.Database.AutoMigrate {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		err = migrateOrClose(sqlDB, func() error { return database.RunMigrations(sqlDB, logger) }, logger)
		if err != nil {
			return nil, err
		}
	}

	infra := &Infra{DB: db, Repo: repository.NewRepository(db), logger: logger}

	// Redis 连接失败时降级运行
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单、限流与报表缓存不可用", zap.Error(err))
		} else {
			infra.Redis = rdb
		}
	}

	store, err := storage.NewS3Store(ctx, &cfg.Storage, logger)
	switch {
	case err == nil:
		infra.Archive = store
	case errors.Is(err, storage.ErrDisabled):
	default:
		logger.Warn("对象存储初始化失败，报表归档不可用", zap.Error(err))
	}

	return infra, nil
}

// migrateOrClose 执行迁移；失败时关闭连接池
func migrateOrClose(pool io.Closer, migrate func() error, logger *zap.Logger) error {
	if err := migrate(); err != nil {
		if cerr := pool.Close(); cerr != nil {
			logger.Warn("关闭数据库连接池失败", zap.Error(cerr))
		}
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Services 组装 Service 层
func (i *Infra) Services(cfg *config.Config, jwtMgr *jwt.Manager) *service.Service {
	deps := service.Deps{Redis: i.Redis}
	if i.Archive != nil {
		deps.Archive = i.Archive
	}
	return service.NewService(cfg, i.Repo, jwtMgr, deps, i.logger)
}

// Close 关闭数据库与 Redis 连接
func (i *Infra) Close() {
	if sqlDB, err := i.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
}
