package model

import (
	"fmt"
	"strings"
	"time"
)

// Category 菜品类别
type Category string

const (
	CategoryEntree  Category = "ENTREE"
	CategorySide    Category = "SIDE"
	CategoryDessert Category = "DESSERT"
	CategoryDrink   Category = "DRINK"
)

// Categories 固定的类别输出顺序
var Categories = []Category{CategoryEntree, CategorySide, CategoryDessert, CategoryDrink}

// Ordinal 类别序号：主菜 < 配菜 < 甜点 < 饮品；未知类别排在最后
func (c Category) Ordinal() int {
	for i, x := range Categories {
		if x == c {
			return i
		}
	}
	return len(Categories)
}

// Valid 是否为已知类别
func (c Category) Valid() bool { return c.Ordinal() < len(Categories) }

// ParseCategory 不区分大小写解析类别
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("无效的菜品类别 %q", s)
	}
	return c, nil
}

// PantryItem 菜品目录 — 对应 pantry_items
type PantryItem struct {
	PantryItemID string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"pantry_item_id"`
	Name         string   `gorm:"type:varchar(100);not null"                     json:"name"`
	Category     Category `gorm:"type:varchar(10);not null"                      json:"category"`
	BaseModel
}

// TableName 指定表名
func (PantryItem) TableName() string { return "pantry_items" }

// DailyMenu 每日菜单 — 对应 daily_menus
type DailyMenu struct {
	DailyMenuID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"daily_menu_id"`
	Date             time.Time `gorm:"type:date;not null;index"                       json:"date"`
	Price            Money     `gorm:"column:price_cents;not null;default:0"          json:"price"`
	DrinkOnlyPrice   Money     `gorm:"column:drink_only_price_cents;not null;default:0" json:"drink_only_price"`
	NumSidesWithMeal int       `gorm:"not null;default:0"                             json:"num_sides_with_meal"` // 0 表示全部配菜自动包含
	BaseModel

	// 关联（菜单内顺序由 daily_menu_items.sort_order 决定）
	Items []PantryItem `gorm:"many2many:daily_menu_items;foreignKey:DailyMenuID;joinForeignKey:DailyMenuID;references:PantryItemID;joinReferences:PantryItemID" json:"items,omitempty"`
}

// TableName 指定表名
func (DailyMenu) TableName() string { return "daily_menus" }

// DailyMenuItem 菜单菜品关联表 — 对应 daily_menu_items
type DailyMenuItem struct {
	DailyMenuID  string `gorm:"type:uuid;primaryKey" json:"daily_menu_id"`
	PantryItemID string `gorm:"type:uuid;primaryKey" json:"pantry_item_id"`
	SortOrder    int    `gorm:"not null;default:0"   json:"sort_order"`
}

// TableName 指定表名
func (DailyMenuItem) TableName() string { return "daily_menu_items" }
