package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Student    StudentRepository
	Menu       MenuRepository
	SchoolYear SchoolYearRepository
	Order      OrderRepository
	Meal       MealRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Student:    NewStudentRepo(db),
		Menu:       NewMenuRepo(db),
		SchoolYear: NewSchoolYearRepo(db),
		Order:      NewOrderRepo(db),
		Meal:       NewMealRepo(db),
		db:         db,
	}
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
