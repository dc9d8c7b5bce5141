package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

// CartHandler reads and edits the caller's working cart.
type CartHandler struct {
	Store repository.Store
	Log   *slog.Logger
}

func NewCartHandler(store repository.Store, log *slog.Logger) *CartHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CartHandler{Store: store, Log: log}
}

// cartReq accepts the item array or, from older clients, a
// {foodId: quantity} map under cartData.
type cartReq struct {
	CartItems *[]model.CartItem `json:"cartItems"`
	CartData  map[string]int    `json:"cartData"`
}

// cartItemReq names one menu item for /cart/add and /cart/remove. Name and
// price are only used when the item is new to the cart.
type cartItemReq struct {
	ItemID string  `json:"itemId" validate:"required"`
	Name   string  `json:"name"`
	Price  float64 `json:"price" validate:"gte=0"`
}

type cartItems struct {
	Items []model.CartItem `json:"cartItems" validate:"dive"`
}

func (h *CartHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Store.Carts().Get(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"cartData": items})
}

func (h *CartHandler) Update(c echo.Context) error {
	var req cartReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.Log, &service.ValidationError{Msg: "invalid request body"})
	}
	var items []model.CartItem
	switch {
	case req.CartItems != nil:
		items = *req.CartItems
	case req.CartData != nil:
		items = model.CartFromLegacy(req.CartData)
	default:
		return fail(c, h.Log, &service.ValidationError{Msg: "cartItems is required"})
	}
	if err := c.Validate(&cartItems{Items: items}); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Store.Carts().Replace(ctx, middleware.UserID(c), items); err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Cart Updated", "cartData": items})
}

func (h *CartHandler) Clear(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Store.Carts().Clear(ctx, middleware.UserID(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Cart Cleared"})
}

// Add puts one more unit of an item in the cart.
func (h *CartHandler) Add(c echo.Context) error {
	var req cartItemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	items, err := h.edit(c, func(items []model.CartItem) []model.CartItem {
		return model.AddCartItem(items, model.CartItem{FoodID: req.ItemID, Name: req.Name, Price: req.Price})
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Added To Cart", "cartData": items})
}

// Remove takes one unit of an item off the cart.
func (h *CartHandler) Remove(c echo.Context) error {
	var req cartItemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	items, err := h.edit(c, func(items []model.CartItem) []model.CartItem {
		return model.RemoveCartItem(items, req.ItemID)
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "Removed From Cart", "cartData": items})
}

// edit applies fn to the caller's cart in one unit of work so concurrent
// increments are not lost.
func (h *CartHandler) edit(c echo.Context, fn func([]model.CartItem) []model.CartItem) ([]model.CartItem, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	userID := middleware.UserID(c)
	var items []model.CartItem
	err := h.Store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Carts().Get(ctx, userID)
		if err != nil {
			return err
		}
		items = fn(current)
		return tx.Carts().Replace(ctx, userID, items)
	})
	return items, err
}
