package lunch

import (
	"strings"
	"time"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
)

// Source 午餐时间的来源规则
type Source int

const (
	SourceUnassigned Source = iota
	SourceExplicit          // 餐点上显式填写
	SourceStudent           // 学生人工指定
	SourceTeacher           // 教师（班级）时间
	SourceGrade             // 年级默认时间
)

var sourceNames = [...]string{"unassigned", "explicit", "student", "teacher", "grade"}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return "unknown"
	}
	return sourceNames[s]
}

// Slot 解析出的午餐时间；零值即 Unassigned
type Slot struct {
	Time   string
	Source Source
}

// Unassigned 没有任何规则适用
var Unassigned = Slot{}

// Assigned 是否解析到了时间
func (s Slot) Assigned() bool { return s.Source != SourceUnassigned }

// Diner 参与解析的就餐者
type Diner struct {
	ID   string
	Kind model.DinerKind
}

type dinerDayKey struct {
	id  string
	day calendar.Weekday
}

type gradeDayKey struct {
	grade model.Grade
	day   calendar.Weekday
}

// Resolver 基于一个学年快照的午餐时间解析器，构建后只读
type Resolver struct {
	students map[dinerDayKey]*model.StudentLunchTime
	teachers map[dinerDayKey]*model.TeacherLunchTime
	grades   map[gradeDayKey]*model.GradeLunchTime
	defaults map[calendar.Weekday][]string
	byClass  map[model.Grade]bool
}

// NewResolver 为学年建立索引；year 为 nil 时除显式时间外一律 Unassigned
func NewResolver(year *model.SchoolYear) *Resolver {
	r := &Resolver{
		students: make(map[dinerDayKey]*model.StudentLunchTime),
		teachers: make(map[dinerDayKey]*model.TeacherLunchTime),
		grades:   make(map[gradeDayKey]*model.GradeLunchTime),
		defaults: make(map[calendar.Weekday][]string),
		byClass:  make(map[model.Grade]bool),
	}
	if year == nil {
		return r
	}

	for i := range year.StudentLunchTimes {
		row := &year.StudentLunchTimes[i]
		r.students[dinerDayKey{row.StudentID, calendar.Weekday(row.DayOfWeek)}] = row
	}
	for i := range year.TeacherLunchTimes {
		row := &year.TeacherLunchTimes[i]
		r.teachers[dinerDayKey{row.TeacherID, calendar.Weekday(row.DayOfWeek)}] = row
	}
	for i := range year.GradeLunchTimes {
		row := &year.GradeLunchTimes[i]
		r.grades[gradeDayKey{row.Grade, calendar.Weekday(row.DayOfWeek)}] = row
	}
	for _, lt := range year.LunchTimes {
		day := calendar.Weekday(lt.DayOfWeek)
		r.defaults[day] = append(r.defaults[day], lt.Times...)
	}
	for _, g := range year.GradesAssignedByClass {
		r.byClass[g] = true
	}
	return r
}

// Resolve 解析就餐者在某日的午餐时间（先匹配者优先）：
//  1. 显式时间
//  2. 教职工：本人的教师时间
//  3. 学生：人工时间 → 分配教师的时间 → 年级默认时间
//  4. Unassigned
func (r *Resolver) Resolve(d Diner, date time.Time, explicit string) Slot {
	if t := strings.TrimSpace(explicit); t != "" {
		return Slot{Time: t, Source: SourceExplicit}
	}

	day := calendar.DayOfWeek(date)
	switch d.Kind {
	case model.DinerStaff:
		if t, ok := r.teacherTime(d.ID, day); ok {
			return Slot{Time: t, Source: SourceTeacher}
		}
	case model.DinerStudent:
		row, ok := r.students[dinerDayKey{d.ID, day}]
		if !ok {
			return Unassigned
		}
		if t := strings.TrimSpace(row.Time); t != "" {
			return Slot{Time: t, Source: SourceStudent}
		}
		if row.TeacherID != nil && *row.TeacherID != "" {
			if t, ok := r.teacherTime(*row.TeacherID, day); ok {
				return Slot{Time: t, Source: SourceTeacher}
			}
			return Unassigned
		}
		if t, ok := r.gradeTime(row.Grade, day); ok {
			return Slot{Time: t, Source: SourceGrade}
		}
	}
	return Unassigned
}

// ResolveMeal 解析餐点的午餐时间
func (r *Resolver) ResolveMeal(m *model.Meal) Slot {
	return r.Resolve(DinerOf(m), m.Date, m.Time)
}

// DinerOf 由餐点构造就餐者
func DinerOf(m *model.Meal) Diner {
	return Diner{ID: m.DinerID, Kind: m.DinerKind}
}

// StudentDay 学生某天的排班行
func (r *Resolver) StudentDay(studentID string, day calendar.Weekday) (*model.StudentLunchTime, bool) {
	row, ok := r.students[dinerDayKey{studentID, day}]
	return row, ok
}

// TeacherDay 教师某天的午餐时间行
func (r *Resolver) TeacherDay(teacherID string, day calendar.Weekday) (*model.TeacherLunchTime, bool) {
	row, ok := r.teachers[dinerDayKey{teacherID, day}]
	return row, ok
}

// ScheduledTimes 学年在某天的默认午餐时间列表（副本）
func (r *Resolver) ScheduledTimes(day calendar.Weekday) []string {
	return append([]string(nil), r.defaults[day]...)
}

// AssignedByClass 年级是否按班级（教师）排定
func (r *Resolver) AssignedByClass(g model.Grade) bool { return r.byClass[g] }

func (r *Resolver) teacherTime(teacherID string, day calendar.Weekday) (string, bool) {
	row, ok := r.teachers[dinerDayKey{teacherID, day}]
	if !ok {
		return "", false
	}
	t := strings.TrimSpace(row.Times.First())
	return t, t != ""
}

func (r *Resolver) gradeTime(g model.Grade, day calendar.Weekday) (string, bool) {
	row, ok := r.grades[gradeDayKey{g, day}]
	if !ok {
		return "", false
	}
	t := strings.TrimSpace(row.Times.First())
	return t, t != ""
}

// Resolve 一次性解析；批量解析时应复用 NewResolver 的结果
func Resolve(year *model.SchoolYear, d Diner, date time.Time, explicit string) Slot {
	return NewResolver(year).Resolve(d, date, explicit)
}
