package handler

import "github.com/TonyV66/LunchSystem-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	Order     *OrderHandler
	Lunchtime *LunchtimeHandler
	Report    *ReportHandler
	Health    *HealthHandler
}

// NewHandler 创建 Handler 聚合；checks 为健康检查依赖（数据库、Redis 等）
func NewHandler(svc *service.Service, checks map[string]Pinger) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		Order:     NewOrderHandler(svc.Order),
		Lunchtime: NewLunchtimeHandler(svc.Lunchtime),
		Report:    NewReportHandler(svc.Report),
		Health:    NewHealthHandler(checks),
	}
}
