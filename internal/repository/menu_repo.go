package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
)

// MenuRepository 每日菜单数据访问接口；Items 按 daily_menu_items.sort_order 排列
type MenuRepository interface {
	Create(ctx context.Context, menu *model.DailyMenu) error
	GetByID(ctx context.Context, id string) (*model.DailyMenu, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.DailyMenu, error)
}

type menuRepo struct {
	db *gorm.DB
}

// NewMenuRepo 创建 MenuRepository 实例
func NewMenuRepo(db *gorm.DB) MenuRepository {
	return &menuRepo{db: db}
}

// Create 创建菜单，Items 顺序写入 sort_order（菜品需已存在）
func (r *menuRepo) Create(ctx context.Context, menu *model.DailyMenu) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := menu.Items
		if err := tx.Omit("Items").Create(menu).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		links := make([]model.DailyMenuItem, len(items))
		for i, p := range items {
			links[i] = model.DailyMenuItem{DailyMenuID: menu.DailyMenuID, PantryItemID: p.PantryItemID, SortOrder: i}
		}
		return tx.Create(&links).Error
	})
}

func (r *menuRepo) GetByID(ctx context.Context, id string) (*model.DailyMenu, error) {
	menus, err := r.ListByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(menus) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &menus[0], nil
}

type menuItemRow struct {
	DailyMenuID string
	model.PantryItem
}

func (r *menuRepo) ListByIDs(ctx context.Context, ids []string) ([]model.DailyMenu, error) {
	var menus []model.DailyMenu
	if len(ids) == 0 {
		return menus, nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("daily_menu_id IN ?", ids).Order("date, daily_menu_id").Find(&menus).Error; err != nil {
		return nil, err
	}

	// 多对多预加载无法按关联表排序，手动装配
	var rows []menuItemRow
	err := db.Table("daily_menu_items AS dmi").
		Select("dmi.daily_menu_id, p.*").
		Joins("JOIN pantry_items AS p ON p.pantry_item_id = dmi.pantry_item_id").
		Where("dmi.daily_menu_id IN ?", ids).
		Order("dmi.daily_menu_id, dmi.sort_order, p.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(menus))
	for i := range menus {
		index[menus[i].DailyMenuID] = i
		menus[i].Items = []model.PantryItem{}
	}
	for _, row := range rows {
		if i, ok := index[row.DailyMenuID]; ok {
			menus[i].Items = append(menus[i].Items, row.PantryItem)
		}
	}
	return menus, nil
}
