package lunch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
)

// ── 菜单选择解析 ──────────────────────────────────────────
//
// 将购物车行与其引用的每日菜单组合为带价格的餐点明细。
//
// 规则：
//   - 输出顺序固定为 主菜 → 配菜 → 甜点 → 饮品，类别内保持菜单顺序
//   - 类别只有 0/1 个可选项时自动包含，无需选择
//   - 仅饮品订单不含主菜、配菜、甜点；饮品始终参与计算
//   - 主菜计 menu.Price（仅饮品时为 0），饮品仅在仅饮品订单中计 menu.DrinkOnlyPrice
//   - 每个明细分配新的代理 ID，目录 ID 保存在 PantryItemID
// ─────────────────────────────────────────────────────────────

// Composer 餐点组合器；newID 生成明细代理 ID
type Composer struct {
	newID func() string
}

// NewComposer 创建组合器；newID 为 nil 时使用 UUID
func NewComposer(newID func() string) *Composer {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Composer{newID: newID}
}

var defaultComposer = NewComposer(nil)

// Compose 使用默认组合器组合一行购物车
func Compose(item *model.ShoppingCartItem, menu *model.DailyMenu) ([]model.MealItem, error) {
	return defaultComposer.Compose(item, menu)
}

// RequiredSelectionCount 类别需要的选择数量；0 表示全部自动包含
//
//   - 主菜/甜点/饮品：可选项多于 1 个时需选 1 个
//   - 配菜：0 < NumSidesWithMeal < 可选数量 时需选 NumSidesWithMeal 个，
//     NumSidesWithMeal 为 0 或不小于可选数量时全部包含
func RequiredSelectionCount(category model.Category, available int, menu *model.DailyMenu) int {
	if category == model.CategorySide {
		n := 0
		if menu != nil {
			n = menu.NumSidesWithMeal
		}
		if n > 0 && n < available {
			return n
		}
		return 0
	}
	if available > 1 {
		return 1
	}
	return 0
}

// Compose 组合一行购物车；失败时不返回部分结果
func (c *Composer) Compose(item *model.ShoppingCartItem, menu *model.DailyMenu) ([]model.MealItem, error) {
	if item == nil {
		return nil, errors.New("购物车行为空")
	}
	if menu == nil || menu.DailyMenuID != item.DailyMenuID {
		return nil, &MenuNotFoundError{DailyMenuID: item.DailyMenuID}
	}

	byCategory := make(map[model.Category][]model.PantryItem, len(model.Categories))
	for _, p := range menu.Items {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	selected := make(map[string]struct{}, len(item.SelectedItemIDs))
	for _, id := range item.SelectedItemIDs {
		selected[id] = struct{}{}
	}

	var (
		chosen []model.PantryItem
		errs   []error
	)
	for _, category := range model.Categories {
		if item.IsDrinkOnly && category != model.CategoryDrink {
			continue
		}
		available := byCategory[category]
		required := RequiredSelectionCount(category, len(available), menu)
		if required == 0 {
			chosen = append(chosen, available...)
			continue
		}

		var picked []model.PantryItem
		for _, p := range available {
			if _, ok := selected[p.PantryItemID]; ok {
				picked = append(picked, p)
			}
		}
		if len(picked) != required {
			errs = append(errs, &IncompleteSelectionError{
				Category: category,
				Expected: required,
				Actual:   len(picked),
			})
			continue
		}
		chosen = append(chosen, picked...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	items := make([]model.MealItem, 0, len(chosen))
	for _, p := range chosen {
		items = append(items, model.MealItem{
			MealItemID:   c.newID(),
			PantryItemID: p.PantryItemID,
			Name:         p.Name,
			Category:     p.Category,
			Price:        itemPrice(p.Category, item.IsDrinkOnly, menu),
		})
	}
	return items, nil
}

func itemPrice(category model.Category, drinkOnly bool, menu *model.DailyMenu) model.Money {
	switch category {
	case model.CategoryEntree:
		if !drinkOnly {
			return menu.Price
		}
	case model.CategoryDrink:
		if drinkOnly {
			return menu.DrinkOnlyPrice
		}
	}
	return 0
}

// ComposedLine 一行购物车的组合结果
type ComposedLine struct {
	CartItem model.ShoppingCartItem
	Menu     *model.DailyMenu
	Items    []model.MealItem
}

// ComposeCart 组合整个购物车；menus 以 DailyMenuID 为键。
// 任一行失败即返回错误，错误信息带行号。
func (c *Composer) ComposeCart(cart *model.ShoppingCart, menus map[string]*model.DailyMenu) ([]ComposedLine, error) {
	if cart == nil {
		return nil, nil
	}
	lines := make([]ComposedLine, 0, len(cart.Items))
	for i := range cart.Items {
		ci := cart.Items[i]
		menu, ok := menus[ci.DailyMenuID]
		if !ok {
			return nil, fmt.Errorf("第 %d 行: %w", i+1, &MenuNotFoundError{DailyMenuID: ci.DailyMenuID})
		}
		items, err := c.Compose(&ci, menu)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", i+1, err)
		}
		ci.SelectedItemIDs = append([]string(nil), ci.SelectedItemIDs...)
		lines = append(lines, ComposedLine{CartItem: ci, Menu: menu, Items: items})
	}
	return lines, nil
}

// MealTotal 明细合计金额
func MealTotal(items []model.MealItem) model.Money {
	var total model.Money
	for _, it := range items {
		total += it.Price
	}
	return total
}
