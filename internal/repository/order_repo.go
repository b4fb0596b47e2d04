package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
)

// OrderRepository 订单数据访问接口；订单、餐点、明细只创建和删除
type OrderRepository interface {
	// Create 在一个事务内写入订单、餐点与明细
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Order, int64, error)
	// Delete 在一个事务内删除订单及其餐点与明细
	Delete(ctx context.Context, id string) error
}

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepo 创建 OrderRepository 实例
func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meals := order.Meals
		if err := tx.Omit("Meals").Create(order).Error; err != nil {
			return err
		}
		for i := range meals {
			meals[i].OrderID = order.OrderID
			items := meals[i].Items
			if err := tx.Omit("Items", "Student", "Staff").Create(&meals[i]).Error; err != nil {
				return err
			}
			for j := range items {
				items[j].MealID = meals[i].MealID
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func withMeals(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Meals", func(db *gorm.DB) *gorm.DB { return db.Order("date, created_at, meal_id") }).
		Preload("Meals.Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, meal_item_id") })
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := withMeals(r.db.WithContext(ctx)).Where("order_id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.Order, int64, error) {
	var (
		orders []model.Order
		total  int64
	)
	db := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := withMeals(db).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mealIDs := tx.Model(&model.Meal{}).Select("meal_id").Where("order_id = ?", id)
		if err := tx.Where("meal_id IN (?)", mealIDs).Delete(&model.MealItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&model.Meal{}).Error; err != nil {
			return err
		}
		result := tx.Where("order_id = ?", id).Delete(&model.Order{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
