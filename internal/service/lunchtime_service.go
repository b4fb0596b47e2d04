package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/internal/dto"
	"github.com/TonyV66/LunchSystem-sub000/internal/lunch"
	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
	pkgerrors "github.com/TonyV66/LunchSystem-sub000/pkg/errors"
)

// ── 午餐时间模块业务错误 ──

var (
	ErrSchoolYearNotFound = errors.New("学年不存在")
	ErrDinerNotFound      = errors.New("就餐者不存在")
	ErrInvalidSchedule    = errors.New("排班数据无效")
	ErrVersionConflict    = pkgerrors.ErrOptimisticLock
	ErrInvalidDate        = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrDateOutOfYear      = errors.New("日期不在学年范围内")
	ErrRangeTooLarge      = errors.New("日期范围不能超过 366 天")
)

const maxCalendarDays = 366

// LunchtimeService 午餐时间业务接口
type LunchtimeService interface {
	GetSchoolYear(ctx context.Context, yearID string) (*dto.SchoolYearResponse, error)
	// UpdateSchoolYear 乐观锁更新按班级排定的年级与默认午餐时间
	UpdateSchoolYear(ctx context.Context, callerID, yearID string, req *dto.UpdateSchoolYearRequest) (*dto.SchoolYearResponse, error)

	GetStudentSchedule(ctx context.Context, yearID, studentID string) ([]dto.StudentLunchTimeResponse, error)
	ReplaceStudentSchedule(ctx context.Context, yearID, studentID string, req *dto.ReplaceStudentScheduleRequest) error
	ReplaceTeacherSchedule(ctx context.Context, yearID, teacherID string, req *dto.ReplaceTeacherScheduleRequest) error
	ReplaceGradeSchedule(ctx context.Context, yearID, grade string, req *dto.ReplaceGradeScheduleRequest) error

	// Resolve 解析就餐者某日的午餐时间
	Resolve(ctx context.Context, yearID string, q *dto.ResolveQuery) (*dto.ResolvedLunchtimeResponse, error)
	// ExportCalendar 导出日期范围内已分配午餐时间的 iCalendar
	ExportCalendar(ctx context.Context, yearID string, q *dto.CalendarQuery) ([]byte, string, error)
}

type lunchtimeService struct {
	cfg    *config.Config
	repo   *repository.Repository
	cache  Cache
	logger *zap.Logger
}

// NewLunchtimeService 创建 LunchtimeService 实例
func NewLunchtimeService(cfg *config.Config, repo *repository.Repository, cache Cache, logger *zap.Logger) LunchtimeService {
	return &lunchtimeService{cfg: cfg, repo: repo, cache: cache, logger: logger}
}

func (s *lunchtimeService) GetSchoolYear(ctx context.Context, yearID string) (*dto.SchoolYearResponse, error) {
	year, err := s.loadYear(ctx, yearID)
	if err != nil {
		return nil, err
	}
	resp := toSchoolYearResponse(year)
	return &resp, nil
}

func (s *lunchtimeService) UpdateSchoolYear(ctx context.Context, callerID, yearID string, req *dto.UpdateSchoolYearRequest) (*dto.SchoolYearResponse, error) {
	year, err := s.loadYear(ctx, yearID)
	if err != nil {
		return nil, err
	}

	grades, err := parseGrades(req.GradesAssignedByClass)
	if err != nil {
		return nil, err
	}
	defaults := make([]model.SchoolYearLunchTime, 0, len(req.LunchTimes))
	days := newDaySet()
	for i, in := range req.LunchTimes {
		if err := days.add(i, in.DayOfWeek); err != nil {
			return nil, err
		}
		times, err := normalizeTimes(i, in.Times)
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, model.SchoolYearLunchTime{
			SchoolYearID: year.SchoolYearID,
			DayOfWeek:    in.DayOfWeek,
			Times:        times,
		})
	}

	year.Version = req.Version
	year.GradesAssignedByClass = grades
	year.UpdatedBy = &callerID
	if err := s.repo.SchoolYear.UpdateSettings(ctx, year, defaults); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrVersionConflict
		}
		s.logger.Error("更新学年设置失败", zap.String("school_year_id", yearID), zap.Error(err))
		return nil, err
	}
	invalidate(ctx, s.cache, s.logger, reportAllPattern)

	s.logger.Info("学年午餐设置已更新", zap.String("school_year_id", yearID), zap.Int("version", year.Version))
	resp := toSchoolYearResponse(year)
	return &resp, nil
}

func (s *lunchtimeService) GetStudentSchedule(ctx context.Context, yearID, studentID string) ([]dto.StudentLunchTimeResponse, error) {
	if _, err := s.loadYear(ctx, yearID); err != nil {
		return nil, err
	}
	rows, err := s.repo.SchoolYear.ListStudentLunchTimes(ctx, yearID, studentID)
	if err != nil {
		s.logger.Error("查询学生排班失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	out := make([]dto.StudentLunchTimeResponse, 0, len(rows))
	for _, r := range rows {
		item := dto.StudentLunchTimeResponse{
			DayOfWeek: r.DayOfWeek,
			Weekday:   calendar.Weekday(r.DayOfWeek).String(),
			Grade:     string(r.Grade),
			Time:      r.Time,
			TeacherID: r.TeacherID,
		}
		if r.Teacher != nil {
			item.TeacherName = r.Teacher.DisplayName()
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *lunchtimeService) ReplaceStudentSchedule(ctx context.Context, yearID, studentID string, req *dto.ReplaceStudentScheduleRequest) error {
	if _, err := s.loadYear(ctx, yearID); err != nil {
		return err
	}
	if _, err := s.repo.Student.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDinerNotFound
		}
		return err
	}

	rows := make([]model.StudentLunchTime, 0, len(req.Rows))
	days := newDaySet()
	var teacherIDs []string
	for i, in := range req.Rows {
		if err := days.add(i, in.DayOfWeek); err != nil {
			return err
		}
		grade, err := model.ParseGrade(in.Grade)
		if err != nil {
			return fmt.Errorf("%w: 第 %d 行: %v", ErrInvalidSchedule, i+1, err)
		}
		row := model.StudentLunchTime{
			SchoolYearID: yearID,
			StudentID:    studentID,
			Grade:        grade,
			DayOfWeek:    in.DayOfWeek,
		}
		if in.Time != "" {
			t, err := calendar.NormalizeClock(in.Time)
			if err != nil {
				return fmt.Errorf("%w: 第 %d 行: %v", ErrInvalidSchedule, i+1, err)
			}
			row.Time = t
		}
		if in.TeacherID != nil && *in.TeacherID != "" {
			id := *in.TeacherID
			row.TeacherID = &id
			teacherIDs = append(teacherIDs, id)
		}
		rows = append(rows, row)
	}
	if err := s.checkTeachers(ctx, teacherIDs); err != nil {
		return err
	}

	if err := s.repo.SchoolYear.ReplaceStudentLunchTimes(ctx, yearID, studentID, rows); err != nil {
		s.logger.Error("替换学生排班失败", zap.String("student_id", studentID), zap.Error(err))
		return err
	}
	invalidate(ctx, s.cache, s.logger, reportAllPattern)
	return nil
}

func (s *lunchtimeService) ReplaceTeacherSchedule(ctx context.Context, yearID, teacherID string, req *dto.ReplaceTeacherScheduleRequest) error {
	if _, err := s.loadYear(ctx, yearID); err != nil {
		return err
	}
	if err := s.checkTeachers(ctx, []string{teacherID}); err != nil {
		return err
	}

	rows := make([]model.TeacherLunchTime, 0, len(req.Rows))
	days := newDaySet()
	for i, in := range req.Rows {
		if err := days.add(i, in.DayOfWeek); err != nil {
			return err
		}
		times, err := normalizeTimes(i, in.Times)
		if err != nil {
			return err
		}
		grades, err := parseGrades(in.Grades)
		if err != nil {
			return err
		}
		rows = append(rows, model.TeacherLunchTime{
			SchoolYearID: yearID,
			TeacherID:    teacherID,
			DayOfWeek:    in.DayOfWeek,
			Times:        times,
			Grades:       grades,
		})
	}

	if err := s.repo.SchoolYear.ReplaceTeacherLunchTimes(ctx, yearID, teacherID, rows); err != nil {
		s.logger.Error("替换教师排班失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return err
	}
	invalidate(ctx, s.cache, s.logger, reportAllPattern)
	return nil
}

func (s *lunchtimeService) ReplaceGradeSchedule(ctx context.Context, yearID, grade string, req *dto.ReplaceGradeScheduleRequest) error {
	if _, err := s.loadYear(ctx, yearID); err != nil {
		return err
	}
	g, err := model.ParseGrade(grade)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	rows := make([]model.GradeLunchTime, 0, len(req.Rows))
	days := newDaySet()
	for i, in := range req.Rows {
		if err := days.add(i, in.DayOfWeek); err != nil {
			return err
		}
		times, err := normalizeTimes(i, in.Times)
		if err != nil {
			return err
		}
		rows = append(rows, model.GradeLunchTime{
			SchoolYearID: yearID,
			Grade:        g,
			DayOfWeek:    in.DayOfWeek,
			Times:        times,
		})
	}

	if err := s.repo.SchoolYear.ReplaceGradeLunchTimes(ctx, yearID, g, rows); err != nil {
		s.logger.Error("替换年级默认时间失败", zap.String("grade", grade), zap.Error(err))
		return err
	}
	invalidate(ctx, s.cache, s.logger, reportAllPattern)
	return nil
}

func (s *lunchtimeService) Resolve(ctx context.Context, yearID string, q *dto.ResolveQuery) (*dto.ResolvedLunchtimeResponse, error) {
	date, err := calendar.ParseDate(q.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	year, err := s.loadYear(ctx, yearID)
	if err != nil {
		return nil, err
	}
	diner, err := s.loadDiner(ctx, model.DinerKind(q.Kind), q.DinerID)
	if err != nil {
		return nil, err
	}

	slot := lunch.NewResolver(year).Resolve(diner, date, "")
	return toResolvedResponse(date, slot), nil
}

func (s *lunchtimeService) ExportCalendar(ctx context.Context, yearID string, q *dto.CalendarQuery) ([]byte, string, error) {
	from, err := calendar.ParseDate(q.From)
	if err != nil {
		return nil, "", ErrInvalidDate
	}
	to, err := calendar.ParseDate(q.To)
	if err != nil {
		return nil, "", ErrInvalidDate
	}
	if to.Before(from) {
		return nil, "", ErrInvalidDate
	}
	if int(to.Sub(from).Hours()/24) >= maxCalendarDays {
		return nil, "", ErrRangeTooLarge
	}

	year, err := s.loadYear(ctx, yearID)
	if err != nil {
		return nil, "", err
	}
	diner, err := s.loadDiner(ctx, model.DinerKind(q.Kind), q.DinerID)
	if err != nil {
		return nil, "", err
	}

	loc := s.cfg.School.Location()
	duration := s.cfg.School.LunchDuration
	resolver := lunch.NewResolver(year)
	now := time.Now()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//LunchSystem//Lunchtime//EN")
	cal.SetName("Lunch - " + year.Name)

	events := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !year.Contains(d) {
			continue
		}
		slot := resolver.Resolve(diner, d, "")
		if !slot.Assigned() {
			continue
		}
		start, err := calendar.At(d, slot.Time, loc)
		if err != nil {
			s.logger.Warn("跳过无法解析的午餐时间",
				zap.String("diner_id", diner.ID), zap.String("time", slot.Time), zap.Error(err))
			continue
		}
		ev := cal.AddEvent(fmt.Sprintf("%s-%s@lunch", diner.ID, calendar.ToCanonicalDateString(d)))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(duration))
		ev.SetSummary("Lunch " + calendar.ToTwelveHourTime(slot.Time))
		ev.SetDescription("Source: " + slot.Source.String())
		events++
	}

	s.logger.Info("导出午餐日历",
		zap.String("diner_id", diner.ID), zap.String("from", q.From), zap.String("to", q.To), zap.Int("events", events))
	filename := fmt.Sprintf("lunch-%s-%s.ics", diner.ID, q.From)
	return []byte(cal.Serialize()), filename, nil
}

// ── 内部工具 ──

func (s *lunchtimeService) loadYear(ctx context.Context, yearID string) (*model.SchoolYear, error) {
	year, err := s.repo.SchoolYear.GetByID(ctx, yearID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSchoolYearNotFound
		}
		s.logger.Error("查询学年失败", zap.String("school_year_id", yearID), zap.Error(err))
		return nil, err
	}
	return year, nil
}

func (s *lunchtimeService) loadDiner(ctx context.Context, kind model.DinerKind, id string) (lunch.Diner, error) {
	d := lunch.Diner{ID: id, Kind: kind}
	switch kind {
	case model.DinerStudent:
		if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return d, ErrDinerNotFound
			}
			return d, err
		}
	case model.DinerStaff:
		if _, err := s.repo.User.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return d, ErrDinerNotFound
			}
			return d, err
		}
	default:
		return d, ErrDinerNotFound
	}
	return d, nil
}

// checkTeachers 教师须为教职工或管理员账号
func (s *lunchtimeService) checkTeachers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	ok := make(map[string]bool, len(users))
	for _, u := range users {
		if u.Role == model.RoleStaff || u.Role == model.RoleAdmin {
			ok[u.UserID] = true
		}
	}
	for _, id := range ids {
		if !ok[id] {
			return fmt.Errorf("%w: 教师 %s 不存在", ErrInvalidSchedule, id)
		}
	}
	return nil
}

type daySet map[int]bool

func newDaySet() daySet { return make(daySet) }

func (s daySet) add(row, day int) error {
	if !calendar.Weekday(day).Valid() {
		return fmt.Errorf("%w: 第 %d 行: 星期 %d 超出 0-6", ErrInvalidSchedule, row+1, day)
	}
	if s[day] {
		return fmt.Errorf("%w: 第 %d 行: 星期 %d 重复", ErrInvalidSchedule, row+1, day)
	}
	s[day] = true
	return nil
}

func normalizeTimes(row int, in []string) (model.PipeList, error) {
	out := make(model.PipeList, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		n, err := calendar.NormalizeClock(t)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行: %v", ErrInvalidSchedule, row+1, err)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

func parseGrades(in []string) (model.GradeList, error) {
	out := make(model.GradeList, 0, len(in))
	for _, s := range in {
		g, err := model.ParseGrade(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		if !out.Contains(g) {
			out = append(out, g)
		}
	}
	return out, nil
}

func toSchoolYearResponse(year *model.SchoolYear) dto.SchoolYearResponse {
	resp := dto.SchoolYearResponse{
		ID:                    year.SchoolYearID,
		Name:                  year.Name,
		StartDate:             calendar.ToCanonicalDateString(year.StartDate),
		EndDate:               calendar.ToCanonicalDateString(year.EndDate),
		IsCurrent:             year.IsCurrent,
		GradesAssignedByClass: make([]string, 0, len(year.GradesAssignedByClass)),
		LunchTimes:            make([]dto.WeekdayTimesResponse, 0, len(year.LunchTimes)),
		Version:               year.Version,
	}
	for _, g := range year.GradesAssignedByClass {
		resp.GradesAssignedByClass = append(resp.GradesAssignedByClass, string(g))
	}
	for _, lt := range year.LunchTimes {
		resp.LunchTimes = append(resp.LunchTimes, dto.WeekdayTimesResponse{
			DayOfWeek: lt.DayOfWeek,
			Weekday:   calendar.Weekday(lt.DayOfWeek).String(),
			Times:     append([]string{}, lt.Times...),
		})
	}
	return resp
}

func toResolvedResponse(date time.Time, slot lunch.Slot) *dto.ResolvedLunchtimeResponse {
	resp := &dto.ResolvedLunchtimeResponse{
		Date:    calendar.ToCanonicalDateString(date),
		Weekday: calendar.DayOfWeek(date).String(),
		Source:  slot.Source.String(),
	}
	if slot.Assigned() {
		resp.Time = slot.Time
		resp.DisplayTime = calendar.ToTwelveHourTime(slot.Time)
	}
	return resp
}
