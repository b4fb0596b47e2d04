package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	pkgerrors "github.com/TonyV66/LunchSystem-sub000/pkg/errors"
)

// SchoolYearRepository 学年与午餐时间数据访问接口。
// 排班行按（学年，就餐者）整体替换：同一事务内先删后插。
type SchoolYearRepository interface {
	// GetByID 加载学年及全部排班（含教师）
	GetByID(ctx context.Context, id string) (*model.SchoolYear, error)
	// GetForDate 日期所在学年，优先 is_current
	GetForDate(ctx context.Context, date time.Time) (*model.SchoolYear, error)
	// UpdateSettings 乐观锁更新 grades_assigned_by_class 并替换默认午餐时间
	UpdateSettings(ctx context.Context, year *model.SchoolYear, defaults []model.SchoolYearLunchTime) error

	ListStudentLunchTimes(ctx context.Context, yearID, studentID string) ([]model.StudentLunchTime, error)
	ReplaceStudentLunchTimes(ctx context.Context, yearID, studentID string, rows []model.StudentLunchTime) error
	ReplaceTeacherLunchTimes(ctx context.Context, yearID, teacherID string, rows []model.TeacherLunchTime) error
	ReplaceGradeLunchTimes(ctx context.Context, yearID string, grade model.Grade, rows []model.GradeLunchTime) error
}

type schoolYearRepo struct {
	db *gorm.DB
}

// NewSchoolYearRepo 创建 SchoolYearRepository 实例
func NewSchoolYearRepo(db *gorm.DB) SchoolYearRepository {
	return &schoolYearRepo{db: db}
}

func withSchedules(db *gorm.DB) *gorm.DB {
	return db.
		Preload("LunchTimes", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week") }).
		Preload("StudentLunchTimes").
		Preload("StudentLunchTimes.Teacher").
		Preload("TeacherLunchTimes").
		Preload("TeacherLunchTimes.Teacher").
		Preload("GradeLunchTimes")
}

func (r *schoolYearRepo) GetByID(ctx context.Context, id string) (*model.SchoolYear, error) {
	var year model.SchoolYear
	err := withSchedules(r.db.WithContext(ctx)).
		Where("school_year_id = ?", id).
		First(&year).Error
	if err != nil {
		return nil, err
	}
	return &year, nil
}

func (r *schoolYearRepo) GetForDate(ctx context.Context, date time.Time) (*model.SchoolYear, error) {
	var year model.SchoolYear
	day := date.Format("2006-01-02")
	err := withSchedules(r.db.WithContext(ctx)).
		Where("start_date <= ? AND end_date >= ?", day, day).
		Order("is_current DESC, start_date DESC").
		First(&year).Error
	if err != nil {
		return nil, err
	}
	return &year, nil
}

func (r *schoolYearRepo) UpdateSettings(ctx context.Context, year *model.SchoolYear, defaults []model.SchoolYearLunchTime) error {
	oldVersion := year.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.SchoolYear{}).
			Where("school_year_id = ? AND version = ?", year.SchoolYearID, oldVersion).
			Updates(map[string]interface{}{
				"grades_assigned_by_class": year.GradesAssignedByClass,
				"updated_by":               year.UpdatedBy,
				"updated_at":               time.Now(),
				"version":                  oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		return replaceRows(tx, &model.SchoolYearLunchTime{}, defaults,
			"school_year_id = ?", year.SchoolYearID)
	})
	if err != nil {
		return err
	}
	year.Version = oldVersion + 1
	year.LunchTimes = defaults
	return nil
}

func (r *schoolYearRepo) ListStudentLunchTimes(ctx context.Context, yearID, studentID string) ([]model.StudentLunchTime, error) {
	var rows []model.StudentLunchTime
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("school_year_id = ? AND student_id = ?", yearID, studentID).
		Order("day_of_week").
		Find(&rows).Error
	return rows, err
}

func (r *schoolYearRepo) ReplaceStudentLunchTimes(ctx context.Context, yearID, studentID string, rows []model.StudentLunchTime) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceRows(tx, &model.StudentLunchTime{}, rows,
			"school_year_id = ? AND student_id = ?", yearID, studentID)
	})
}

func (r *schoolYearRepo) ReplaceTeacherLunchTimes(ctx context.Context, yearID, teacherID string, rows []model.TeacherLunchTime) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceRows(tx, &model.TeacherLunchTime{}, rows,
			"school_year_id = ? AND teacher_id = ?", yearID, teacherID)
	})
}

func (r *schoolYearRepo) ReplaceGradeLunchTimes(ctx context.Context, yearID string, grade model.Grade, rows []model.GradeLunchTime) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceRows(tx, &model.GradeLunchTime{}, rows,
			"school_year_id = ? AND grade = ?", yearID, grade)
	})
}

// replaceRows 硬删除匹配行后批量插入（替换场景，无需软删除审计）
func replaceRows[T any](tx *gorm.DB, table interface{}, rows []T, query string, args ...interface{}) error {
	if err := tx.Where(query, args...).Delete(table).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Omit("Teacher").Create(&rows).Error
}
