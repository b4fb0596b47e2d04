package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/internal/api/handler"
	"github.com/TonyV66/LunchSystem-sub000/internal/api/middleware"
	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/pkg/jwt"
	"github.com/TonyV66/LunchSystem-sub000/pkg/redis"
)

const loginWindow = time.Minute

// Setup 初始化并返回 Gin 路由引擎；rdb 为 nil 时黑名单与限流降级
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		blacklist middleware.Blacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	adminOnly := middleware.RoleAuth(model.RoleAdmin)
	staffOrAdmin := middleware.RoleAuth(model.RoleStaff, model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(limiter, cfg.Auth.LoginRateLimit, loginWindow, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 订单模块（Service 层校验就餐者归属）
			orders := authorized.Group("/orders")
			{
				orders.POST("/preview", h.Order.Preview)
				orders.POST("", h.Order.Checkout)
				orders.GET("", h.Order.ListOrders)
				orders.GET("/:id", h.Order.GetOrder)
				orders.DELETE("/:id", h.Order.CancelOrder)
			}

			// 学年与午餐时间模块
			years := authorized.Group("/school-years/:id")
			{
				years.GET("", h.Lunchtime.GetSchoolYear)
				years.PUT("", adminOnly, h.Lunchtime.UpdateSchoolYear)
				years.GET("/students/:sid/lunchtimes", h.Lunchtime.GetStudentSchedule)
				years.PUT("/students/:sid/lunchtimes", adminOnly, h.Lunchtime.ReplaceStudentSchedule)
				years.PUT("/teachers/:tid/lunchtimes", adminOnly, h.Lunchtime.ReplaceTeacherSchedule)
				years.PUT("/grades/:grade/lunchtimes", adminOnly, h.Lunchtime.ReplaceGradeSchedule)
				years.GET("/lunchtime", h.Lunchtime.Resolve)
				years.GET("/calendar.ics", h.Lunchtime.ExportCalendar)
			}

			// 报表模块
			reports := authorized.Group("/reports", staffOrAdmin)
			{
				reports.GET("/daily", h.Report.DailyReport)
				reports.GET("/daily/export", h.Report.ExportDailyReport)
				reports.POST("/daily/archive", adminOnly, h.Report.ArchiveDailyReport)
			}
		}
	}

	return r
}
