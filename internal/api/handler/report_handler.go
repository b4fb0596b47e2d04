package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TonyV66/LunchSystem-sub000/internal/dto"
	"github.com/TonyV66/LunchSystem-sub000/internal/service"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
	"github.com/TonyV66/LunchSystem-sub000/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// DailyReport 日报
// GET /api/v1/reports/daily?school_year_id=&date=
func (h *ReportHandler) DailyReport(c *gin.Context) {
	q, ok := bindDailyReportQuery(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.DailyReport(c.Request.Context(), q.SchoolYearID, q.date)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// ExportDailyReport 导出日报 Excel
// GET /api/v1/reports/daily/export?school_year_id=&date=
func (h *ReportHandler) ExportDailyReport(c *gin.Context) {
	q, ok := bindDailyReportQuery(c)
	if !ok {
		return
	}

	buf, filename, err := h.reportSvc.ExportDailyReport(c.Request.Context(), q.SchoolYearID, q.date)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, filename, service.XLSXContentType, buf.Bytes())
}

// ArchiveDailyReport 导出日报并上传到对象存储
// POST /api/v1/reports/daily/archive?school_year_id=&date=
func (h *ReportHandler) ArchiveDailyReport(c *gin.Context) {
	q, ok := bindDailyReportQuery(c)
	if !ok {
		return
	}

	key, err := h.reportSvc.ArchiveDailyReport(c.Request.Context(), q.SchoolYearID, q.date)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.Created(c, gin.H{"key": key})
}

type dailyReportQuery struct {
	dto.DailyReportQuery
	date time.Time
}

func bindDailyReportQuery(c *gin.Context) (*dailyReportQuery, bool) {
	var q dailyReportQuery
	if err := c.ShouldBindQuery(&q.DailyReportQuery); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return nil, false
	}
	d, err := calendar.ParseDate(q.Date)
	if err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "日期格式无效，应为 YYYY-MM-DD")
		return nil, false
	}
	q.date = d
	return &q, true
}

func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSchoolYearNotFound):
		response.NotFound(c, response.CodeSchoolYearNotFound, "学年不存在")
	case errors.Is(err, service.ErrDateOutOfYear):
		response.BadRequest(c, response.CodeDateOutOfYear, "日期不在学年范围内")
	case errors.Is(err, service.ErrArchiveDisabled):
		response.BadRequest(c, response.CodeArchiveDisabled, "报表归档未启用")
	case errors.Is(err, service.ErrReportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
