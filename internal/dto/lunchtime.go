package dto

// ── 午餐时间模块 DTO ──

// WeekdayTimesInput 某个工作日的时间列表
type WeekdayTimesInput struct {
	DayOfWeek int      `json:"day_of_week" binding:"min=0,max=6"`
	Times     []string `json:"times"       binding:"max=10"`
}

// UpdateSchoolYearRequest 更新学年午餐设置
type UpdateSchoolYearRequest struct {
	Version               int                 `json:"version"                  binding:"required,min=1"`
	GradesAssignedByClass []string            `json:"grades_assigned_by_class" binding:"max=14"`
	LunchTimes            []WeekdayTimesInput `json:"lunch_times"              binding:"max=7,dive"`
}

// StudentLunchTimeInput 学生某日安排
type StudentLunchTimeInput struct {
	DayOfWeek int     `json:"day_of_week" binding:"min=0,max=6"`
	Grade     string  `json:"grade"       binding:"required,max=5"`
	Time      string  `json:"time"        binding:"omitempty,max=5"`
	TeacherID *string `json:"teacher_id"`
}

// ReplaceStudentScheduleRequest 替换学生排班
type ReplaceStudentScheduleRequest struct {
	Rows []StudentLunchTimeInput `json:"rows" binding:"max=7,dive"`
}

// TeacherLunchTimeInput 教师某日时间
type TeacherLunchTimeInput struct {
	DayOfWeek int      `json:"day_of_week" binding:"min=0,max=6"`
	Times     []string `json:"times"       binding:"max=10"`
	Grades    []string `json:"grades"      binding:"max=14"`
}

// ReplaceTeacherScheduleRequest 替换教师排班
type ReplaceTeacherScheduleRequest struct {
	Rows []TeacherLunchTimeInput `json:"rows" binding:"max=7,dive"`
}

// ReplaceGradeScheduleRequest 替换年级默认时间
type ReplaceGradeScheduleRequest struct {
	Rows []WeekdayTimesInput `json:"rows" binding:"max=7,dive"`
}

// ResolveQuery 解析午餐时间查询
type ResolveQuery struct {
	Kind    string `form:"kind"     binding:"required,oneof=STUDENT STAFF"`
	DinerID string `form:"diner_id" binding:"required"`
	Date    string `form:"date"     binding:"required"`
}

// CalendarQuery 日历导出查询
type CalendarQuery struct {
	Kind    string `form:"kind"     binding:"required,oneof=STUDENT STAFF"`
	DinerID string `form:"diner_id" binding:"required"`
	From    string `form:"from"     binding:"required"`
	To      string `form:"to"       binding:"required"`
}

// ── 响应 ──

// WeekdayTimesResponse 某个工作日的时间列表
type WeekdayTimesResponse struct {
	DayOfWeek int      `json:"day_of_week"`
	Weekday   string   `json:"weekday"`
	Times     []string `json:"times"`
}

// SchoolYearResponse 学年设置
type SchoolYearResponse struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	StartDate             string                 `json:"start_date"`
	EndDate               string                 `json:"end_date"`
	IsCurrent             bool                   `json:"is_current"`
	GradesAssignedByClass []string               `json:"grades_assigned_by_class"`
	LunchTimes            []WeekdayTimesResponse `json:"lunch_times"`
	Version               int                    `json:"version"`
}

// StudentLunchTimeResponse 学生某日安排
type StudentLunchTimeResponse struct {
	DayOfWeek   int     `json:"day_of_week"`
	Weekday     string  `json:"weekday"`
	Grade       string  `json:"grade"`
	Time        string  `json:"time,omitempty"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	TeacherName string  `json:"teacher_name,omitempty"`
}

// ResolvedLunchtimeResponse 解析结果；Time 为空表示 Unassigned
type ResolvedLunchtimeResponse struct {
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Time        string `json:"time"`
	DisplayTime string `json:"display_time"`
	Source      string `json:"source"`
}
