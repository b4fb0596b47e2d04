package model

import "time"

// SchoolYear 学年表 — 对应 school_years
type SchoolYear struct {
	SchoolYearID          string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"school_year_id"`
	Name                  string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate             time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate               time.Time `gorm:"type:date;not null"                             json:"end_date"`
	IsCurrent             bool      `gorm:"not null;default:false"                         json:"is_current"`
	GradesAssignedByClass GradeList `gorm:"type:varchar(100);not null;default:''"          json:"grades_assigned_by_class"` // 按班级（教师）排定午餐时间的年级
	VersionedModel

	// 关联
	LunchTimes        []SchoolYearLunchTime `gorm:"foreignKey:SchoolYearID;references:SchoolYearID" json:"lunch_times,omitempty"`
	StudentLunchTimes []StudentLunchTime    `gorm:"foreignKey:SchoolYearID;references:SchoolYearID" json:"student_lunch_times,omitempty"`
	TeacherLunchTimes []TeacherLunchTime    `gorm:"foreignKey:SchoolYearID;references:SchoolYearID" json:"teacher_lunch_times,omitempty"`
	GradeLunchTimes   []GradeLunchTime      `gorm:"foreignKey:SchoolYearID;references:SchoolYearID" json:"grade_lunch_times,omitempty"`
}

// TableName 指定表名
func (SchoolYear) TableName() string { return "school_years" }

// Contains 日期是否在学年内（含首尾）
func (y *SchoolYear) Contains(date time.Time) bool {
	return !date.Before(y.StartDate) && !date.After(y.EndDate)
}

// SchoolYearLunchTime 学年默认午餐时间 — 对应 school_year_lunch_times
type SchoolYearLunchTime struct {
	SchoolYearLunchTimeID string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolYearID          string   `gorm:"type:uuid;not null"                             json:"school_year_id"`
	DayOfWeek             int      `gorm:"type:smallint;not null"                         json:"day_of_week"` // 0-6
	Times                 PipeList `gorm:"type:varchar(200);not null;default:''"          json:"times"`
}

// TableName 指定表名
func (SchoolYearLunchTime) TableName() string { return "school_year_lunch_times" }

// StudentLunchTime 学生每周午餐安排 — 对应 student_lunch_times
// Time 为人工指定时间；TeacherID 为分配的班级（教师）
type StudentLunchTime struct {
	StudentLunchTimeID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolYearID       string  `gorm:"type:uuid;not null"                             json:"school_year_id"`
	StudentID          string  `gorm:"type:uuid;not null"                             json:"student_id"`
	Grade              Grade   `gorm:"type:varchar(4);not null"                       json:"grade"`
	DayOfWeek          int     `gorm:"type:smallint;not null"                         json:"day_of_week"`
	Time               string  `gorm:"type:varchar(5);not null;default:''"            json:"time,omitempty"`
	TeacherID          *string `gorm:"type:uuid"                                      json:"teacher_id,omitempty"`

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (StudentLunchTime) TableName() string { return "student_lunch_times" }

// TeacherLunchTime 教师（班级）每周午餐时间 — 对应 teacher_lunch_times
type TeacherLunchTime struct {
	TeacherLunchTimeID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolYearID       string    `gorm:"type:uuid;not null"                             json:"school_year_id"`
	TeacherID          string    `gorm:"type:uuid;not null"                             json:"teacher_id"`
	DayOfWeek          int       `gorm:"type:smallint;not null"                         json:"day_of_week"`
	Times              PipeList  `gorm:"type:varchar(200);not null;default:''"          json:"times"`
	Grades             GradeList `gorm:"type:varchar(100);not null;default:''"          json:"grades"`

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (TeacherLunchTime) TableName() string { return "teacher_lunch_times" }

// GradeLunchTime 年级默认午餐时间 — 对应 grade_lunch_times
type GradeLunchTime struct {
	GradeLunchTimeID string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolYearID     string   `gorm:"type:uuid;not null"                             json:"school_year_id"`
	Grade            Grade    `gorm:"type:varchar(4);not null"                       json:"grade"`
	DayOfWeek        int      `gorm:"type:smallint;not null"                         json:"day_of_week"`
	Times            PipeList `gorm:"type:varchar(200);not null;default:''"          json:"times"`
}

// TableName 指定表名
func (GradeLunchTime) TableName() string { return "grade_lunch_times" }
