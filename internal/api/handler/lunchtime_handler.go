package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/TonyV66/LunchSystem-sub000/internal/dto"
	"github.com/TonyV66/LunchSystem-sub000/internal/service"
	"github.com/TonyV66/LunchSystem-sub000/pkg/response"
)

const calendarContentType = "text/calendar; charset=utf-8"

// LunchtimeHandler 午餐时间模块 HTTP 处理器
type LunchtimeHandler struct {
	lunchtimeSvc service.LunchtimeService
}

// NewLunchtimeHandler 创建 LunchtimeHandler
func NewLunchtimeHandler(lunchtimeSvc service.LunchtimeService) *LunchtimeHandler {
	return &LunchtimeHandler{lunchtimeSvc: lunchtimeSvc}
}

// GetSchoolYear 学年午餐设置
// GET /api/v1/school-years/:id
func (h *LunchtimeHandler) GetSchoolYear(c *gin.Context) {
	year, err := h.lunchtimeSvc.GetSchoolYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, year)
}

// UpdateSchoolYear 更新按班级排定的年级与默认时间（乐观锁）
// PUT /api/v1/school-years/:id
func (h *LunchtimeHandler) UpdateSchoolYear(c *gin.Context) {
	var req dto.UpdateSchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	year, err := h.lunchtimeSvc.UpdateSchoolYear(c.Request.Context(), callerID, c.Param("id"), &req)
	if err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, year)
}

// GetStudentSchedule 学生每周排班
// GET /api/v1/school-years/:id/students/:sid/lunchtimes
func (h *LunchtimeHandler) GetStudentSchedule(c *gin.Context) {
	rows, err := h.lunchtimeSvc.GetStudentSchedule(c.Request.Context(), c.Param("id"), c.Param("sid"))
	if err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": rows})
}

// ReplaceStudentSchedule 整体替换学生每周排班
// PUT /api/v1/school-years/:id/students/:sid/lunchtimes
func (h *LunchtimeHandler) ReplaceStudentSchedule(c *gin.Context) {
	var req dto.ReplaceStudentScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	if err := h.lunchtimeSvc.ReplaceStudentSchedule(c.Request.Context(), c.Param("id"), c.Param("sid"), &req); err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, nil)
}

// ReplaceTeacherSchedule 整体替换教师每周时间
// PUT /api/v1/school-years/:id/teachers/:tid/lunchtimes
func (h *LunchtimeHandler) ReplaceTeacherSchedule(c *gin.Context) {
	var req dto.ReplaceTeacherScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	if err := h.lunchtimeSvc.ReplaceTeacherSchedule(c.Request.Context(), c.Param("id"), c.Param("tid"), &req); err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, nil)
}

// ReplaceGradeSchedule 整体替换年级默认时间
// PUT /api/v1/school-years/:id/grades/:grade/lunchtimes
func (h *LunchtimeHandler) ReplaceGradeSchedule(c *gin.Context) {
	var req dto.ReplaceGradeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	if err := h.lunchtimeSvc.ReplaceGradeSchedule(c.Request.Context(), c.Param("id"), c.Param("grade"), &req); err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, nil)
}

// Resolve 解析就餐者某日的午餐时间
// GET /api/v1/school-years/:id/lunchtime?kind=&diner_id=&date=
func (h *LunchtimeHandler) Resolve(c *gin.Context) {
	var q dto.ResolveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	result, err := h.lunchtimeSvc.Resolve(c.Request.Context(), c.Param("id"), &q)
	if err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.OK(c, result)
}

// ExportCalendar 导出就餐者午餐时间的 iCalendar 文件
// GET /api/v1/school-years/:id/calendar.ics?kind=&diner_id=&from=&to=
func (h *LunchtimeHandler) ExportCalendar(c *gin.Context) {
	var q dto.CalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	body, filename, err := h.lunchtimeSvc.ExportCalendar(c.Request.Context(), c.Param("id"), &q)
	if err != nil {
		h.handleLunchtimeError(c, err)
		return
	}

	response.Attachment(c, filename, calendarContentType, body)
}

func (h *LunchtimeHandler) handleLunchtimeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSchoolYearNotFound):
		response.NotFound(c, response.CodeSchoolYearNotFound, "学年不存在")
	case errors.Is(err, service.ErrDinerNotFound):
		response.NotFound(c, response.CodeDinerNotFound, "就餐者不存在")
	case errors.Is(err, service.ErrInvalidSchedule):
		response.BadRequest(c, response.CodeInvalidSchedule, err.Error())
	case errors.Is(err, service.ErrVersionConflict):
		response.Conflict(c, response.CodeVersionConflict, "数据已被修改，请刷新后重试")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, response.CodeInvalidParams, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrDateOutOfYear):
		response.BadRequest(c, response.CodeDateOutOfYear, "日期不在学年范围内")
	case errors.Is(err, service.ErrRangeTooLarge):
		response.BadRequest(c, response.CodeRangeTooLarge, "日期范围不能超过 366 天")
	default:
		response.InternalError(c)
	}
}
