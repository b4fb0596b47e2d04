package model

import "time"

// DinerKind 就餐者类型
type DinerKind string

const (
	DinerStudent DinerKind = "STUDENT"
	DinerStaff   DinerKind = "STAFF"
)

// Valid 是否为已知类型
func (k DinerKind) Valid() bool { return k == DinerStudent || k == DinerStaff }

// Order 订单表 — 对应 orders
type Order struct {
	OrderID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"order_id"`
	UserID  string `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Total   Money  `gorm:"column:total_cents;not null;default:0"          json:"total"`
	BaseModel

	// 关联
	Meals []Meal `gorm:"foreignKey:OrderID;references:OrderID" json:"meals,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// Meal 餐点表 — 对应 meals；下单后不再修改，取消订单时删除
type Meal struct {
	MealID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"meal_id"`
	OrderID   string    `gorm:"type:uuid;not null;index"                       json:"order_id"`
	Date      time.Time `gorm:"type:date;not null;index"                       json:"date"`
	Time      string    `gorm:"type:varchar(5);not null;default:''"            json:"time"` // 空表示由午餐时间规则解析
	DinerID   string    `gorm:"type:uuid;not null;index"                       json:"diner_id"`
	DinerKind DinerKind `gorm:"type:varchar(10);not null"                      json:"diner_kind"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Items   []MealItem `gorm:"foreignKey:MealID;references:MealID"   json:"items,omitempty"`
	Student *Student   `gorm:"foreignKey:DinerID;references:StudentID" json:"student,omitempty"`
	Staff   *User      `gorm:"foreignKey:DinerID;references:UserID"    json:"staff,omitempty"`
}

// TableName 指定表名
func (Meal) TableName() string { return "meals" }

// DinerName 就餐者展示名称（需预加载 Student/Staff）；缺失时退回 ID
func (m *Meal) DinerName() string {
	switch {
	case m.DinerKind == DinerStudent && m.Student != nil:
		if n := m.Student.DisplayName(); n != "" {
			return n
		}
	case m.DinerKind == DinerStaff && m.Staff != nil:
		if n := m.Staff.DisplayName(); n != "" {
			return n
		}
	}
	return m.DinerID
}

// MealItem 餐点明细 — 对应 meal_items；名称、类别与价格在下单时固化
type MealItem struct {
	MealItemID   string    `gorm:"type:uuid;primaryKey"                 json:"meal_item_id"`
	MealID       string    `gorm:"type:uuid;not null;index"             json:"meal_id"`
	PantryItemID string    `gorm:"type:uuid;not null"                   json:"pantry_item_id"`
	Name         string    `gorm:"type:varchar(100);not null"           json:"name"`
	Category     Category  `gorm:"type:varchar(10);not null"            json:"category"`
	Price        Money     `gorm:"column:price_cents;not null;default:0" json:"price"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"   json:"created_at"`
}

// TableName 指定表名
func (MealItem) TableName() string { return "meal_items" }

// ShoppingCart 购物车（请求级数据，不落库）
type ShoppingCart struct {
	Items []ShoppingCartItem `json:"items"`
}

// ShoppingCartItem 购物车行
type ShoppingCartItem struct {
	DinerID         string    `json:"diner_id"`
	DinerKind       DinerKind `json:"diner_kind"`
	DailyMenuID     string    `json:"daily_menu_id"`
	IsDrinkOnly     bool      `json:"is_drink_only"`
	SelectedItemIDs []string  `json:"selected_item_ids"` // 仅在类别可选项多于一个时用于区分
	Time            string    `json:"time,omitempty"`    // 显式就餐时间（教职工自选）
}
