package service

import (
	"context"
	"errors"
	"testing"

	"github.com/TonyV66/LunchSystem-sub000/internal/dto"
	"github.com/TonyV66/LunchSystem-sub000/internal/lunch"
	"github.com/TonyV66/LunchSystem-sub000/internal/model"
)

func setupTestOrderService() (OrderService, *fixture) {
	fx := newFixture()
	return NewOrderService(fx.repo, fx.cache, fx.logger), fx
}

func fullMeal(dinerID string, kind model.DinerKind) dto.CartItemRequest {
	return dto.CartItemRequest{
		DinerID:         dinerID,
		DinerKind:       string(kind),
		DailyMenuID:     "menu-1",
		SelectedItemIDs: []string{"entreeA", "sideX", "sideY"},
	}
}

func TestPreview_FullMeal(t *testing.T) {
	svc, _ := setupTestOrderService()

	req := fullMeal("S1", model.DinerStudent)
	result, err := svc.Preview(context.Background(), &req)
	if err != nil {
		t.Fatalf("Preview 应成功，但返回错误: %v", err)
	}
	// Pizza, Apple, Carrots, Cookie, Milk
	if len(result.Items) != 5 {
		t.Fatalf("期望 5 项，实际 %d 项: %+v", len(result.Items), result.Items)
	}
	if result.Total != 500 {
		t.Errorf("期望合计 500，实际 %d", result.Total)
	}
	if result.Items[0].Name != "Pizza" || result.Items[0].Price != 500 {
		t.Errorf("首项应为 Pizza@500，实际 %+v", result.Items[0])
	}
}

func TestPreview_DrinkOnly(t *testing.T) {
	svc, _ := setupTestOrderService()

	req := dto.CartItemRequest{DinerID: "S1", DinerKind: "STUDENT", DailyMenuID: "menu-1", IsDrinkOnly: true}
	result, err := svc.Preview(context.Background(), &req)
	if err != nil {
		t.Fatalf("Preview 应成功，但返回错误: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "Milk" || result.Total != 200 {
		t.Errorf("仅饮品应为 Milk@200，实际 %+v", result)
	}
}

func TestPreview_MenuNotFound(t *testing.T) {
	svc, _ := setupTestOrderService()

	req := fullMeal("S1", model.DinerStudent)
	req.DailyMenuID = "ghost"
	_, err := svc.Preview(context.Background(), &req)
	if !errors.Is(err, ErrMenuNotFound) {
		t.Errorf("期望 ErrMenuNotFound，实际: %v", err)
	}
}

func TestPreview_InvalidTime(t *testing.T) {
	svc, _ := setupTestOrderService()

	req := fullMeal("T", model.DinerStaff)
	req.Time = "25:99"
	_, err := svc.Preview(context.Background(), &req)
	if !errors.Is(err, ErrInvalidMealTime) {
		t.Errorf("期望 ErrInvalidMealTime，实际: %v", err)
	}
}

func TestCheckout_Success(t *testing.T) {
	svc, fx := setupTestOrderService()
	ctx := context.Background()

	// 预置该日期的报表缓存，下单后应失效
	_ = fx.cache.SetJSON(ctx, reportCacheKey("", "2026-10-21"), map[string]int{"x": 1}, 0)
	_ = fx.cache.SetJSON(ctx, reportCacheKey("", "2026-10-22"), map[string]int{"x": 1}, 0)

	staff := fullMeal("T", model.DinerStaff)
	staff.Time = "12:15"
	result, err := svc.Checkout(ctx, "T", model.RoleStaff, &dto.CheckoutRequest{Items: []dto.CartItemRequest{staff}})
	if err != nil {
		t.Fatalf("Checkout 应成功，但返回错误: %v", err)
	}
	if result.Total != 500 || len(result.Meals) != 1 {
		t.Fatalf("期望 1 份餐点合计 500，实际 %+v", result)
	}
	meal := result.Meals[0]
	if meal.Date != "2026-10-21" || meal.Time != "12:15" || meal.DinerKind != model.DinerStaff {
		t.Errorf("餐点字段错误: %+v", meal)
	}

	stored := fx.orders.orders[result.ID]
	if stored == nil {
		t.Fatal("订单未持久化")
	}
	for _, it := range stored.Meals[0].Items {
		if it.MealID != stored.Meals[0].MealID {
			t.Errorf("明细 %s 的 MealID 未回填", it.Name)
		}
	}

	if _, ok := fx.cache.data[reportCacheKey("", "2026-10-21")]; ok {
		t.Error("下单日期的报表缓存应失效")
	}
	if _, ok := fx.cache.data[reportCacheKey("", "2026-10-22")]; !ok {
		t.Error("其他日期的报表缓存不应受影响")
	}
}

func TestCheckout_ParentForOwnChild(t *testing.T) {
	svc, _ := setupTestOrderService()

	req := &dto.CheckoutRequest{Items: []dto.CartItemRequest{fullMeal("S1", model.DinerStudent)}}
	if _, err := svc.Checkout(context.Background(), "P", model.RoleParent, req); err != nil {
		t.Fatalf("家长为自己的孩子下单应成功，实际: %v", err)
	}
}

func TestCheckout_DinerNotAllowed(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		role   string
		item   dto.CartItemRequest
	}{
		{"家长为他人孩子", "P", model.RoleParent, fullMeal("S2", model.DinerStudent)},
		{"家长为教职工", "P", model.RoleParent, fullMeal("T", model.DinerStaff)},
		{"教职工为他人", "T", model.RoleStaff, fullMeal("admin", model.DinerStaff)},
		{"学生不存在", "admin", model.RoleAdmin, fullMeal("ghost", model.DinerStudent)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fx := setupTestOrderService()
			_, err := svc.Checkout(context.Background(), tt.caller, tt.role, &dto.CheckoutRequest{Items: []dto.CartItemRequest{tt.item}})
			if !errors.Is(err, ErrDinerNotAllowed) {
				t.Errorf("期望 ErrDinerNotAllowed，实际: %v", err)
			}
			if len(fx.orders.orders) != 0 {
				t.Error("失败时不应写入订单")
			}
		})
	}
}

func TestCheckout_AdminForAnyone(t *testing.T) {
	svc, _ := setupTestOrderService()

	req := &dto.CheckoutRequest{Items: []dto.CartItemRequest{
		fullMeal("S2", model.DinerStudent),
		fullMeal("T", model.DinerStaff),
	}}
	result, err := svc.Checkout(context.Background(), "admin", model.RoleAdmin, req)
	if err != nil {
		t.Fatalf("管理员下单应成功，实际: %v", err)
	}
	if result.Total != 1000 {
		t.Errorf("期望合计 1000，实际 %d", result.Total)
	}
}

func TestCheckout_IncompleteSelection(t *testing.T) {
	svc, fx := setupTestOrderService()

	item := fullMeal("S1", model.DinerStudent)
	item.SelectedItemIDs = []string{"sideX"}
	_, err := svc.Checkout(context.Background(), "P", model.RoleParent, &dto.CheckoutRequest{Items: []dto.CartItemRequest{item}})
	if !errors.Is(err, ErrIncompleteSelection) {
		t.Fatalf("期望 ErrIncompleteSelection，实际: %v", err)
	}

	details := lunch.IncompleteSelections(err)
	if len(details) != 2 {
		t.Fatalf("期望 2 条选择错误（主菜、配菜），实际 %d", len(details))
	}
	if details[0].Category != model.CategoryEntree || details[0].Expected != 1 || details[0].Actual != 0 {
		t.Errorf("主菜错误详情不符: %+v", details[0])
	}
	if details[1].Category != model.CategorySide || details[1].Expected != 2 || details[1].Actual != 1 {
		t.Errorf("配菜错误详情不符: %+v", details[1])
	}
	if len(fx.orders.orders) != 0 {
		t.Error("失败时不应写入订单")
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _ := setupTestOrderService()

	_, err := svc.Checkout(context.Background(), "P", model.RoleParent, &dto.CheckoutRequest{})
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("期望 ErrEmptyCart，实际: %v", err)
	}
}

func TestCheckout_MenuNotFound(t *testing.T) {
	svc, _ := setupTestOrderService()

	item := fullMeal("S1", model.DinerStudent)
	item.DailyMenuID = "ghost"
	_, err := svc.Checkout(context.Background(), "P", model.RoleParent, &dto.CheckoutRequest{Items: []dto.CartItemRequest{item}})
	if !errors.Is(err, ErrMenuNotFound) {
		t.Errorf("期望 ErrMenuNotFound，实际: %v", err)
	}
}

func TestGetAndCancelOrder(t *testing.T) {
	svc, fx := setupTestOrderService()
	ctx := context.Background()

	created, err := svc.Checkout(ctx, "P", model.RoleParent, &dto.CheckoutRequest{Items: []dto.CartItemRequest{fullMeal("S1", model.DinerStudent)}})
	if err != nil {
		t.Fatalf("Checkout 失败: %v", err)
	}

	if _, err := svc.GetOrder(ctx, "P2", model.RoleParent, created.ID); !errors.Is(err, ErrOrderForbidden) {
		t.Errorf("他人查看订单应返回 ErrOrderForbidden，实际: %v", err)
	}
	got, err := svc.GetOrder(ctx, "admin", model.RoleAdmin, created.ID)
	if err != nil || got.ID != created.ID {
		t.Errorf("管理员应能查看订单，err=%v", err)
	}

	if err := svc.Cancel(ctx, "P2", model.RoleParent, created.ID); !errors.Is(err, ErrOrderForbidden) {
		t.Errorf("他人取消订单应返回 ErrOrderForbidden，实际: %v", err)
	}
	if err := svc.Cancel(ctx, "P", model.RoleParent, created.ID); err != nil {
		t.Fatalf("Cancel 失败: %v", err)
	}
	if len(fx.orders.orders) != 0 {
		t.Error("取消后订单应被删除")
	}
	if _, err := svc.GetOrder(ctx, "P", model.RoleParent, created.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("期望 ErrOrderNotFound，实际: %v", err)
	}
	if n := len(fx.cache.deleted); n < 2 {
		t.Errorf("下单与取消都应清除报表缓存，实际清除 %d 次", n)
	}
}

func TestListOrders_Pagination(t *testing.T) {
	svc, _ := setupTestOrderService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Checkout(ctx, "P", model.RoleParent, &dto.CheckoutRequest{Items: []dto.CartItemRequest{fullMeal("S1", model.DinerStudent)}}); err != nil {
			t.Fatalf("Checkout 失败: %v", err)
		}
	}

	req := &dto.ListOrdersRequest{PaginationRequest: dto.PaginationRequest{Page: 2, PageSize: 2}}
	list, total, err := svc.ListOrders(ctx, "P", req)
	if err != nil {
		t.Fatalf("ListOrders 失败: %v", err)
	}
	if total != 3 || len(list) != 1 {
		t.Errorf("期望 total=3 第二页 1 条，实际 total=%d len=%d", total, len(list))
	}

	others, total, _ := svc.ListOrders(ctx, "P2", &dto.ListOrdersRequest{})
	if total != 0 || len(others) != 0 {
		t.Errorf("P2 不应看到 P 的订单")
	}
}
