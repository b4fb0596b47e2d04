package dto

import "github.com/TonyV66/LunchSystem-sub000/internal/model"

// ── 订单模块 DTO ──

// CartItemRequest 购物车行
type CartItemRequest struct {
	DinerID         string   `json:"diner_id"          binding:"required"`
	DinerKind       string   `json:"diner_kind"        binding:"required,oneof=STUDENT STAFF"`
	DailyMenuID     string   `json:"daily_menu_id"     binding:"required"`
	IsDrinkOnly     bool     `json:"is_drink_only"`
	SelectedItemIDs []string `json:"selected_item_ids"`
	Time            string   `json:"time"              binding:"omitempty,max=5"`
}

// CheckoutRequest 下单请求
type CheckoutRequest struct {
	Items []CartItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

// ListOrdersRequest 订单列表查询
type ListOrdersRequest struct {
	PaginationRequest
}

// ── 响应 ──

// MealItemResponse 餐点明细
type MealItemResponse struct {
	ID           string         `json:"id"`
	PantryItemID string         `json:"pantry_item_id"`
	Name         string         `json:"name"`
	Category     model.Category `json:"category"`
	Price        model.Money    `json:"price"`
}

// PreviewResponse 单行预览
type PreviewResponse struct {
	Items []MealItemResponse `json:"items"`
	Total model.Money        `json:"total"`
}

// MealResponse 餐点
type MealResponse struct {
	ID        string             `json:"id"`
	Date      string             `json:"date"`
	Time      string             `json:"time,omitempty"`
	DinerID   string             `json:"diner_id"`
	DinerKind model.DinerKind    `json:"diner_kind"`
	Items     []MealItemResponse `json:"items"`
	Total     model.Money        `json:"total"`
}

// OrderResponse 订单
type OrderResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Total     model.Money    `json:"total"`
	Meals     []MealResponse `json:"meals"`
	CreatedAt string         `json:"created_at"`
}

// SelectionErrorDetail 选择数量错误详情
type SelectionErrorDetail struct {
	Category model.Category `json:"category"`
	Expected int            `json:"expected"`
	Actual   int            `json:"actual"`
}
