package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/pkg/jwt"
	"github.com/TonyV66/LunchSystem-sub000/pkg/redis"
	"github.com/TonyV66/LunchSystem-sub000/pkg/storage"
)

// TokenBlacklist Token 黑名单（pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Cache JSON 缓存（pkg/redis.Client 实现）
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	Order     OrderService
	Lunchtime LunchtimeService
	Report    ReportService
}

// Deps 可选依赖；为 nil 时对应功能降级
type Deps struct {
	Redis   *redis.Client
	Archive storage.Store
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	var (
		blacklist TokenBlacklist
		cache     Cache
	)
	if deps.Redis != nil {
		blacklist = deps.Redis
		cache = deps.Redis
	}
	return &Service{
		Auth:      NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Order:     NewOrderService(repo, cache, logger),
		Lunchtime: NewLunchtimeService(cfg, repo, cache, logger),
		Report:    NewReportService(cfg, repo, cache, deps.Archive, logger),
	}
}

// ── 报表缓存键 ──

func reportCacheKey(yearID, date string) string {
	if yearID == "" {
		yearID = "current"
	}
	return "report:" + yearID + ":" + date
}

func reportDatePattern(date string) string { return "report:*:" + date }

const reportAllPattern = "report:*"

// invalidate 删除缓存；失败只记录日志
func invalidate(ctx context.Context, cache Cache, logger *zap.Logger, pattern string) {
	if cache == nil {
		return
	}
	if err := cache.DeletePattern(ctx, pattern); err != nil {
		logger.Warn("清除报表缓存失败", zap.String("pattern", pattern), zap.Error(err))
	}
}
