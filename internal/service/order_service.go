package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/internal/dto"
	"github.com/TonyV66/LunchSystem-sub000/internal/lunch"
	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
)

// ── 订单模块业务错误 ──

var (
	ErrEmptyCart           = errors.New("购物车为空")
	ErrMenuNotFound        = lunch.ErrMenuNotFound
	ErrIncompleteSelection = lunch.ErrIncompleteSelection
	ErrDinerNotAllowed     = errors.New("无权为该就餐者下单")
	ErrInvalidMealTime     = errors.New("午餐时间格式无效")
	ErrOrderNotFound       = errors.New("订单不存在")
	ErrOrderForbidden      = errors.New("无权操作该订单")
)

// OrderService 订单业务接口
type OrderService interface {
	// Preview 组合单行购物车并返回价格，不写库
	Preview(ctx context.Context, req *dto.CartItemRequest) (*dto.PreviewResponse, error)
	// Checkout 组合整个购物车并在一个事务内写入订单
	Checkout(ctx context.Context, callerID, role string, req *dto.CheckoutRequest) (*dto.OrderResponse, error)
	GetOrder(ctx context.Context, callerID, role, orderID string) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, callerID string, req *dto.ListOrdersRequest) ([]dto.OrderResponse, int64, error)
	// Cancel 删除订单及其餐点，仅订单所有者或管理员
	Cancel(ctx context.Context, callerID, role, orderID string) error
}

type orderService struct {
	repo     *repository.Repository
	composer *lunch.Composer
	cache    Cache
	logger   *zap.Logger
}

// NewOrderService 创建 OrderService 实例
func NewOrderService(repo *repository.Repository, cache Cache, logger *zap.Logger) OrderService {
	return &orderService{
		repo:     repo,
		composer: lunch.NewComposer(nil),
		cache:    cache,
		logger:   logger,
	}
}

func (s *orderService) Preview(ctx context.Context, req *dto.CartItemRequest) (*dto.PreviewResponse, error) {
	item, err := toCartItem(req)
	if err != nil {
		return nil, err
	}
	menu, err := s.repo.Menu.GetByID(ctx, item.DailyMenuID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &lunch.MenuNotFoundError{DailyMenuID: item.DailyMenuID}
		}
		s.logger.Error("查询每日菜单失败", zap.String("daily_menu_id", item.DailyMenuID), zap.Error(err))
		return nil, err
	}

	items, err := s.composer.Compose(&item, menu)
	if err != nil {
		return nil, err
	}
	return &dto.PreviewResponse{Items: toMealItemResponses(items), Total: lunch.MealTotal(items)}, nil
}

func (s *orderService) Checkout(ctx context.Context, callerID, role string, req *dto.CheckoutRequest) (*dto.OrderResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// 1. 转换并校验购物车
	cart := &model.ShoppingCart{Items: make([]model.ShoppingCartItem, 0, len(req.Items))}
	for i := range req.Items {
		item, err := toCartItem(&req.Items[i])
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", i+1, err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := s.checkDiners(ctx, callerID, role, cart.Items); err != nil {
		return nil, err
	}

	// 2. 一次查询全部菜单
	menuIDs := make([]string, 0, len(cart.Items))
	seen := make(map[string]bool)
	for _, it := range cart.Items {
		if !seen[it.DailyMenuID] {
			seen[it.DailyMenuID] = true
			menuIDs = append(menuIDs, it.DailyMenuID)
		}
	}
	menus, err := s.repo.Menu.ListByIDs(ctx, menuIDs)
	if err != nil {
		s.logger.Error("查询每日菜单失败", zap.Error(err))
		return nil, err
	}
	byID := make(map[string]*model.DailyMenu, len(menus))
	for i := range menus {
		byID[menus[i].DailyMenuID] = &menus[i]
	}

	// 3. 组合
	lines, err := s.composer.ComposeCart(cart, byID)
	if err != nil {
		return nil, err
	}

	// 4. 构建订单
	order := &model.Order{OrderID: uuid.NewString(), UserID: callerID}
	order.CreatedBy = &callerID
	dates := make(map[string]bool)
	for _, line := range lines {
		meal := model.Meal{
			MealID:    uuid.NewString(),
			OrderID:   order.OrderID,
			Date:      calendar.CivilDate(line.Menu.Date),
			Time:      line.CartItem.Time,
			DinerID:   line.CartItem.DinerID,
			DinerKind: line.CartItem.DinerKind,
			Items:     line.Items,
		}
		for j := range meal.Items {
			meal.Items[j].MealID = meal.MealID
		}
		order.Total += lunch.MealTotal(line.Items)
		order.Meals = append(order.Meals, meal)
		dates[calendar.ToCanonicalDateString(meal.Date)] = true
	}

	// 5. 持久化
	if err := s.repo.Order.Create(ctx, order); err != nil {
		s.logger.Error("创建订单失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}
	for d := range dates {
		invalidate(ctx, s.cache, s.logger, reportDatePattern(d))
	}

	s.logger.Info("订单已创建",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", callerID),
		zap.Int("meals", len(order.Meals)),
		zap.Int64("total_cents", int64(order.Total)),
	)
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *orderService) GetOrder(ctx context.Context, callerID, role, orderID string) (*dto.OrderResponse, error) {
	order, err := s.getOwnedOrder(ctx, callerID, role, orderID)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *orderService) ListOrders(ctx context.Context, callerID string, req *dto.ListOrdersRequest) ([]dto.OrderResponse, int64, error) {
	orders, total, err := s.repo.Order.ListByUser(ctx, callerID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询订单列表失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		list = append(list, toOrderResponse(&orders[i]))
	}
	return list, total, nil
}

func (s *orderService) Cancel(ctx context.Context, callerID, role, orderID string) error {
	order, err := s.getOwnedOrder(ctx, callerID, role, orderID)
	if err != nil {
		return err
	}
	if err := s.repo.Order.Delete(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		s.logger.Error("删除订单失败", zap.String("order_id", orderID), zap.Error(err))
		return err
	}

	dates := make(map[string]bool)
	for _, m := range order.Meals {
		dates[calendar.ToCanonicalDateString(m.Date)] = true
	}
	for d := range dates {
		invalidate(ctx, s.cache, s.logger, reportDatePattern(d))
	}
	s.logger.Info("订单已取消", zap.String("order_id", orderID), zap.String("by", callerID))
	return nil
}

func (s *orderService) getOwnedOrder(ctx context.Context, callerID, role, orderID string) (*model.Order, error) {
	order, err := s.repo.Order.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		s.logger.Error("查询订单失败", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	if order.UserID != callerID && role != model.RoleAdmin {
		return nil, ErrOrderForbidden
	}
	return order, nil
}

// checkDiners 教职工只能为自己下单；学生须为下单人的子女。管理员不受限，但学生须存在。
func (s *orderService) checkDiners(ctx context.Context, callerID, role string, items []model.ShoppingCartItem) error {
	var studentIDs []string
	for _, it := range items {
		switch it.DinerKind {
		case model.DinerStaff:
			if role == model.RoleAdmin {
				continue
			}
			if role != model.RoleStaff || it.DinerID != callerID {
				return ErrDinerNotAllowed
			}
		case model.DinerStudent:
			studentIDs = append(studentIDs, it.DinerID)
		default:
			return ErrDinerNotAllowed
		}
	}
	if len(studentIDs) == 0 {
		return nil
	}

	students, err := s.repo.Student.ListByIDs(ctx, studentIDs)
	if err != nil {
		s.logger.Error("查询学生失败", zap.Error(err))
		return err
	}
	parents := make(map[string]string, len(students))
	for _, st := range students {
		parents[st.StudentID] = st.ParentID
	}
	for _, id := range studentIDs {
		parent, ok := parents[id]
		if !ok {
			return ErrDinerNotAllowed
		}
		if role != model.RoleAdmin && parent != callerID {
			return ErrDinerNotAllowed
		}
	}
	return nil
}

func toCartItem(req *dto.CartItemRequest) (model.ShoppingCartItem, error) {
	item := model.ShoppingCartItem{
		DinerID:         req.DinerID,
		DinerKind:       model.DinerKind(req.DinerKind),
		DailyMenuID:     req.DailyMenuID,
		IsDrinkOnly:     req.IsDrinkOnly,
		SelectedItemIDs: append([]string(nil), req.SelectedItemIDs...),
	}
	if req.Time != "" {
		t, err := calendar.NormalizeClock(req.Time)
		if err != nil {
			return item, ErrInvalidMealTime
		}
		item.Time = t
	}
	return item, nil
}

func toMealItemResponses(items []model.MealItem) []dto.MealItemResponse {
	out := make([]dto.MealItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.MealItemResponse{
			ID:           it.MealItemID,
			PantryItemID: it.PantryItemID,
			Name:         it.Name,
			Category:     it.Category,
			Price:        it.Price,
		})
	}
	return out
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:        order.OrderID,
		UserID:    order.UserID,
		Total:     order.Total,
		Meals:     make([]dto.MealResponse, 0, len(order.Meals)),
		CreatedAt: order.CreatedAt.Format(time.RFC3339),
	}
	for _, m := range order.Meals {
		resp.Meals = append(resp.Meals, dto.MealResponse{
			ID:        m.MealID,
			Date:      calendar.ToCanonicalDateString(m.Date),
			Time:      m.Time,
			DinerID:   m.DinerID,
			DinerKind: m.DinerKind,
			Items:     toMealItemResponses(m.Items),
			Total:     lunch.MealTotal(m.Items),
		})
	}
	return resp
}
