package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
)

// MealRepository 餐点查询接口（报表）
type MealRepository interface {
	// ListByDate 某日全部餐点，预加载明细与就餐者
	ListByDate(ctx context.Context, date time.Time) ([]model.Meal, error)
}

type mealRepo struct {
	db *gorm.DB
}

// NewMealRepo 创建 MealRepository 实例
func NewMealRepo(db *gorm.DB) MealRepository {
	return &mealRepo{db: db}
}

func (r *mealRepo) ListByDate(ctx context.Context, date time.Time) ([]model.Meal, error) {
	var meals []model.Meal
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, meal_item_id") }).
		Preload("Student").
		Preload("Staff").
		Where("date = ?", date.Format("2006-01-02")).
		Order("created_at, meal_id").
		Find(&meals).Error
	return meals, err
}
