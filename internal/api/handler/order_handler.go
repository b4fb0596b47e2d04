package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TonyV66/LunchSystem-sub000/internal/dto"
	"github.com/TonyV66/LunchSystem-sub000/internal/lunch"
	"github.com/TonyV66/LunchSystem-sub000/internal/service"
	"github.com/TonyV66/LunchSystem-sub000/pkg/response"
)

// OrderHandler 订单模块 HTTP 处理器
type OrderHandler struct {
	orderSvc service.OrderService
}

// NewOrderHandler 创建 OrderHandler
func NewOrderHandler(orderSvc service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// Preview 预览单行购物车的菜品与价格
// POST /api/v1/orders/preview
func (h *OrderHandler) Preview(c *gin.Context) {
	var req dto.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	result, err := h.orderSvc.Preview(c.Request.Context(), &req)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.OK(c, result)
}

// Checkout 提交购物车
// POST /api/v1/orders
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.Checkout(c.Request.Context(), callerID, role, &req)
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.Created(c, order)
}

// ListOrders 当前用户的订单
// GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.orderSvc.ListOrders(c.Request.Context(), callerID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetOrder 订单详情
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	order, err := h.orderSvc.GetOrder(c.Request.Context(), callerID, role, c.Param("id"))
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.OK(c, order)
}

// CancelOrder 取消订单
// DELETE /api/v1/orders/:id
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	callerID, role, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.orderSvc.Cancel(c.Request.Context(), callerID, role, c.Param("id")); err != nil {
		h.handleOrderError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *OrderHandler) handleOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrIncompleteSelection):
		details := make([]dto.SelectionErrorDetail, 0)
		for _, e := range lunch.IncompleteSelections(err) {
			details = append(details, dto.SelectionErrorDetail{
				Category: e.Category,
				Expected: e.Expected,
				Actual:   e.Actual,
			})
		}
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, response.CodeIncompleteSelection, err.Error(), details)
	case errors.Is(err, service.ErrEmptyCart):
		response.BadRequest(c, response.CodeEmptyCart, "购物车为空")
	case errors.Is(err, service.ErrInvalidMealTime):
		response.BadRequest(c, response.CodeInvalidParams, "午餐时间格式无效，应为 HH:MM")
	case errors.Is(err, service.ErrMenuNotFound):
		response.NotFound(c, response.CodeMenuNotFound, err.Error())
	case errors.Is(err, service.ErrDinerNotAllowed):
		response.Forbidden(c, response.CodeDinerNotAllowed, "无权为该就餐者下单")
	case errors.Is(err, service.ErrOrderNotFound):
		response.NotFound(c, response.CodeOrderNotFound, "订单不存在")
	case errors.Is(err, service.ErrOrderForbidden):
		response.Forbidden(c, response.CodeOrderForbidden, "无权操作该订单")
	default:
		response.InternalError(c)
	}
}
