package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

// TableHandler exposes seat administration and the public seat list.
type TableHandler struct {
	Seats *service.Coordinator
	Log   *slog.Logger
}

func NewTableHandler(coord *service.Coordinator, log *slog.Logger) *TableHandler {
	if coord == nil {
		panic("nil coordinator passed to NewTableHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &TableHandler{Seats: coord, Log: log}
}

type addTableReq struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

type tableStatusReq struct {
	Name   string           `json:"name" validate:"required"`
	Status model.SeatStatus `json:"status" validate:"required"`
}

type clearTableReq struct {
	TableID string `json:"tableId" validate:"required"`
}

type removeTableReq struct {
	ID string `json:"id" validate:"required"`
}

func (h *TableHandler) Add(c echo.Context) error {
	var req addTableReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	seat, err := h.Seats.CreateSeat(ctx, req.Name, req.Capacity)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"message": "Table Added", "data": seat})
}

func (h *TableHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	seats, err := h.Seats.Seats(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"data": seats})
}

// UpdateStatus overwrites a table's status by name.
func (h *TableHandler) UpdateStatus(c echo.Context) error {
	var req tableStatusReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	seat, err := h.Seats.SetSeatStatus(ctx, req.Name, req.Status)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Table Updated", "data": seat})
}

func (h *TableHandler) Clear(c echo.Context) error {
	var req clearTableReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	seat, err := h.Seats.ClearSeat(ctx, req.TableID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Table Cleared", "data": seat})
}

func (h *TableHandler) Remove(c echo.Context) error {
	var req removeTableReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Seats.RemoveSeat(ctx, req.ID); err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Table Removed"})
}
