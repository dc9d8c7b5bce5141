package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

// OrderHandler serves checkout, the staff order board and the dashboard.
type OrderHandler struct {
	Orders *service.Coordinator
	Log    *slog.Logger
}

func NewOrderHandler(coord *service.Coordinator, log *slog.Logger) *OrderHandler {
	if coord == nil {
		panic("nil coordinator passed to NewOrderHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &OrderHandler{Orders: coord, Log: log}
}

// ----- DTOs -----

type placeReq struct {
	Items     []model.OrderItem `json:"items" validate:"required,min=1,dive"`
	Amount    float64           `json:"amount" validate:"gte=0"`
	Address   model.Address     `json:"address"`
	OrderType model.OrderType   `json:"orderType"`
	TableID   string            `json:"tableId"`
}

type statusReq struct {
	OrderID  string            `json:"orderId" validate:"required"`
	Status   model.OrderStatus `json:"status" validate:"required"`
	Override bool              `json:"override"`
}

// Place: checkout for users and guests. Dine-in orders claim their table.
func (h *OrderHandler) Place(c echo.Context) error {
	var req placeReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.Orders.Place(ctx, service.PlaceRequest{
		UserID:    middleware.UserID(c),
		Items:     req.Items,
		Amount:    req.Amount,
		Address:   req.Address,
		OrderType: req.OrderType,
		TableID:   req.TableID,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Order Placed Successfully", "orderId": order.ID})
}

// Status: staff moves an order along its lifecycle.
func (h *OrderHandler) Status(c echo.Context) error {
	var req statusReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.Orders.UpdateStatus(ctx, req.OrderID, req.Status, req.Override)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Status Updated", "data": order})
}

// Delete: DELETE /order/delete/:id
func (h *OrderHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Orders.DeleteOrder(ctx, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Order Deleted"})
}

func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	orders, err := h.Orders.Orders(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": orders})
}

// UserOrders lists the caller's own orders.
func (h *OrderHandler) UserOrders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	orders, err := h.Orders.UserOrders(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": orders})
}

func (h *OrderHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Orders.Stats(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": stats})
}
