package dto

// DailyReportQuery 日报查询；school_year_id 为空时取日期所在学年
type DailyReportQuery struct {
	SchoolYearID string `form:"school_year_id"`
	Date         string `form:"date" binding:"required"`
}
