package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/service"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

const secret = "handler-secret"

type env struct {
	e     *echo.Echo
	store *repository.MemoryStore
	coord *service.Coordinator
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repository.NewMemoryStore("http://localhost:5173")
	coord := service.NewCoordinator(store, nil, quiet(), metrics.New(false))
	if _, err := coord.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e := echo.New()
	e.Validator = NewRequestValidator()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, BcryptCost: 4}

	o := NewOrderHandler(coord, quiet())
	e.POST("/order/place", o.Place, middleware.OptionalAuth(secret))
	e.POST("/order/status", o.Status)
	e.DELETE("/order/delete/:id", o.Delete)
	e.GET("/order/list", o.List)
	e.POST("/order/userorders", o.UserOrders, middleware.JWTAuth(secret))
	e.GET("/order/dashboard", o.Dashboard)

	tb := NewTableHandler(coord, quiet())
	e.POST("/table/add", tb.Add)
	e.GET("/table/list", tb.List)
	e.POST("/table/update-status", tb.UpdateStatus)
	e.POST("/table/clear", tb.Clear)
	e.POST("/table/remove", tb.Remove)

	c := NewCartHandler(store, quiet())
	e.POST("/cart/get", c.Get, middleware.JWTAuth(secret))
	e.POST("/cart/update", c.Update, middleware.JWTAuth(secret))
	e.POST("/cart/add", c.Add, middleware.JWTAuth(secret))
	e.POST("/cart/remove", c.Remove, middleware.JWTAuth(secret))
	e.POST("/cart/clear", c.Clear, middleware.JWTAuth(secret))

	a := NewAuthHandler(cfg, store.Users(), quiet())
	e.POST("/user/register", a.Register)
	e.POST("/user/login", a.Login)

	return &env{e: e, store: store, coord: coord}
}

func (v *env) do(t *testing.T, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("token", token)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func (v *env) seatID(t *testing.T, name string) string {
	t.Helper()
	s, err := v.store.Seats().GetByName(context.Background(), name)
	if err != nil {
		t.Fatalf("seat %s: %v", name, err)
	}
	return s.ID
}

const dosa = `[{"foodId":"f1","name":"Masala Dosa","quantity":2,"price":125}]`

func TestPlaceGuestTakeaway(t *testing.T) {
	v := newEnv(t)
	code, body := v.do(t, http.MethodPost, "/order/place",
		`{"items":`+dosa+`,"amount":250,"orderType":"takeaway"}`, "")
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("status = %d body=%v", code, body)
	}
	id, _ := body["orderId"].(string)
	order, err := v.store.Orders().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("order not stored: %v", err)
	}
	if order.UserID != model.GuestUserID || order.Address.FirstName != "Guest" {
		t.Errorf("unexpected guest order %+v", order)
	}
}

func TestPlaceDineInConflictIsConflict(t *testing.T) {
	v := newEnv(t)
	table := v.seatID(t, "Table 1")
	place := `{"items":` + dosa + `,"amount":250,"orderType":"dine-in","tableId":"` + table + `"}`

	if code, body := v.do(t, http.MethodPost, "/order/place", place, ""); code != http.StatusOK {
		t.Fatalf("first placement: %d %v", code, body)
	}
	code, body := v.do(t, http.MethodPost, "/order/place", place, "")
	if code != http.StatusConflict || body["success"] != false {
		t.Fatalf("second placement: %d %v", code, body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, `"Table 1" is already occupied`) {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestPlaceValidation(t *testing.T) {
	v := newEnv(t)
	cases := map[string]string{
		"no items":      `{"items":[],"amount":0,"orderType":"takeaway"}`,
		"bad quantity":  `{"items":[{"foodId":"f1","name":"Idli","quantity":0,"price":40}],"amount":0}`,
		"dine-in table": `{"items":` + dosa + `,"amount":250,"orderType":"dine-in"}`,
		"bad type":      `{"items":` + dosa + `,"amount":250,"orderType":"drone"}`,
		"not json":      `{"items":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			code, out := v.do(t, http.MethodPost, "/order/place", body, "")
			if code != http.StatusBadRequest || out["success"] != false {
				t.Fatalf("status = %d body=%v", code, out)
			}
		})
	}
}

func TestPlaceUnknownTableIsNotFound(t *testing.T) {
	v := newEnv(t)
	code, _ := v.do(t, http.MethodPost, "/order/place",
		`{"items":`+dosa+`,"amount":250,"orderType":"dine-in","tableId":"nope"}`, "")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d", code)
	}
}

func TestStatusTransitionsAndDelete(t *testing.T) {
	v := newEnv(t)
	table := v.seatID(t, "Cabin 1")
	_, placed := v.do(t, http.MethodPost, "/order/place",
		`{"items":`+dosa+`,"amount":250,"orderType":"dine-in","tableId":"`+table+`"}`, "")
	id := placed["orderId"].(string)

	if code, _ := v.do(t, http.MethodDelete, "/order/delete/"+id, "", ""); code != http.StatusConflict {
		t.Fatalf("deleting a preparing order: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/order/status", `{"orderId":"`+id+`","status":"Completed"}`, ""); code != http.StatusConflict {
		t.Fatalf("illegal transition without override: %d", code)
	}
	code, body := v.do(t, http.MethodPost, "/order/status", `{"orderId":"`+id+`","status":"Completed","override":true}`, "")
	if code != http.StatusOK {
		t.Fatalf("override: %d %v", code, body)
	}
	if data, _ := body["data"].(map[string]any); data["status"] != "Completed" {
		t.Errorf("unexpected order %v", body["data"])
	}
	seat, _ := v.store.Seats().GetByID(context.Background(), table)
	if seat.Status != model.SeatAvailable {
		t.Errorf("seat still %s after completion", seat.Status)
	}

	if code, _ := v.do(t, http.MethodDelete, "/order/delete/"+id, "", ""); code != http.StatusOK {
		t.Fatalf("delete completed order: %d", code)
	}
	if code, _ := v.do(t, http.MethodDelete, "/order/delete/"+id, "", ""); code != http.StatusNotFound {
		t.Fatalf("delete missing order: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/order/status", `{"orderId":"x","status":"Sleeping"}`, ""); code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d", code)
	}
}

func TestListAndDashboard(t *testing.T) {
	v := newEnv(t)
	for i := 0; i < 2; i++ {
		v.do(t, http.MethodPost, "/order/place", `{"items":`+dosa+`,"amount":250,"orderType":"takeaway"}`, "")
	}
	_, list := v.do(t, http.MethodGet, "/order/list", "", "")
	if orders, _ := list["data"].([]any); len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %v", list["data"])
	}
	_, dash := v.do(t, http.MethodGet, "/order/dashboard", "", "")
	stats, _ := dash["data"].(map[string]any)
	if stats["totalOrders"] != float64(2) || stats["activeOrders"] != float64(2) {
		t.Errorf("unexpected stats %v", stats)
	}
}

func TestTableAdministration(t *testing.T) {
	v := newEnv(t)
	code, body := v.do(t, http.MethodPost, "/table/add", `{"name":"Patio 1","capacity":6}`, "")
	if code != http.StatusCreated {
		t.Fatalf("add: %d %v", code, body)
	}
	seat := body["data"].(map[string]any)
	if seat["qrCodeLink"] != "http://localhost:5173?table=Patio%201" || seat["status"] != "available" {
		t.Errorf("unexpected seat %v", seat)
	}
	if code, _ := v.do(t, http.MethodPost, "/table/add", `{"name":"patio 1"}`, ""); code != http.StatusConflict {
		t.Fatalf("duplicate name: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/table/add", `{}`, ""); code != http.StatusBadRequest {
		t.Fatalf("missing name: %d", code)
	}

	code, body = v.do(t, http.MethodPost, "/table/update-status", `{"name":"Patio 1","status":"reserved"}`, "")
	if code != http.StatusOK || body["data"].(map[string]any)["status"] != "reserved" {
		t.Fatalf("update-status: %d %v", code, body)
	}
	id := seat["_id"].(string)
	if code, _ := v.do(t, http.MethodPost, "/table/clear", `{"tableId":"`+id+`"}`, ""); code != http.StatusOK {
		t.Fatalf("clear: %d", code)
	}

	_, list := v.do(t, http.MethodGet, "/table/list", "", "")
	if seats, _ := list["data"].([]any); len(seats) != len(service.DefaultSeats)+1 {
		t.Fatalf("expected %d seats, got %d", len(service.DefaultSeats)+1, len(seats))
	}

	table := v.seatID(t, "Table 2")
	v.do(t, http.MethodPost, "/order/place", `{"items":`+dosa+`,"amount":250,"orderType":"dine-in","tableId":"`+table+`"}`, "")
	if code, _ := v.do(t, http.MethodPost, "/table/remove", `{"id":"`+table+`"}`, ""); code != http.StatusConflict {
		t.Fatalf("remove occupied: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/table/remove", `{"id":"`+id+`"}`, ""); code != http.StatusOK {
		t.Fatalf("remove free: %d", code)
	}
}

func TestCartAcceptsItemsAndLegacyMap(t *testing.T) {
	v := newEnv(t)
	tok, _ := utils.NewAccessToken(secret, "u1", model.RoleUser, 5)

	code, body := v.do(t, http.MethodPost, "/cart/update",
		`{"cartItems":[{"_id":"f1","name":"Filter Coffee","price":30,"quantity":2}]}`, tok.Token)
	if code != http.StatusOK {
		t.Fatalf("update: %d %v", code, body)
	}
	_, got := v.do(t, http.MethodPost, "/cart/get", "", tok.Token)
	items, _ := got["cartData"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["name"] != "Filter Coffee" {
		t.Fatalf("unexpected cart %v", got["cartData"])
	}

	if code, _ := v.do(t, http.MethodPost, "/cart/update", `{"cartData":{"f2":3,"f3":0}}`, tok.Token); code != http.StatusOK {
		t.Fatalf("legacy update: %d", code)
	}
	_, got = v.do(t, http.MethodPost, "/cart/get", "", tok.Token)
	items, _ = got["cartData"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["_id"] != "f2" || items[0].(map[string]any)["quantity"] != float64(3) {
		t.Fatalf("unexpected legacy cart %v", got["cartData"])
	}

	if code, _ := v.do(t, http.MethodPost, "/cart/update", `{}`, tok.Token); code != http.StatusBadRequest {
		t.Fatalf("empty body: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/cart/update", `{"cartItems":[{"_id":"f1","quantity":0}]}`, tok.Token); code != http.StatusBadRequest {
		t.Fatalf("zero quantity: %d", code)
	}

	v.do(t, http.MethodPost, "/cart/clear", "", tok.Token)
	_, got = v.do(t, http.MethodPost, "/cart/get", "", tok.Token)
	if items, _ := got["cartData"].([]any); len(items) != 0 {
		t.Fatalf("cart not cleared: %v", got["cartData"])
	}
}

func TestCartAddAndRemoveOneUnit(t *testing.T) {
	v := newEnv(t)
	tok, _ := utils.NewAccessToken(secret, "u2", model.RoleUser, 5)

	for i := 0; i < 2; i++ {
		code, body := v.do(t, http.MethodPost, "/cart/add", `{"itemId":"f1","name":"Filter Coffee","price":30}`, tok.Token)
		if code != http.StatusOK || body["message"] != "Added To Cart" {
			t.Fatalf("add: %d %v", code, body)
		}
	}
	v.do(t, http.MethodPost, "/cart/add", `{"itemId":"f2"}`, tok.Token)
	_, got := v.do(t, http.MethodPost, "/cart/get", "", tok.Token)
	items, _ := got["cartData"].([]any)
	if len(items) != 2 || items[0].(map[string]any)["quantity"] != float64(2) || items[0].(map[string]any)["name"] != "Filter Coffee" {
		t.Fatalf("unexpected cart %v", got["cartData"])
	}

	code, body := v.do(t, http.MethodPost, "/cart/remove", `{"itemId":"f2"}`, tok.Token)
	if code != http.StatusOK || body["message"] != "Removed From Cart" {
		t.Fatalf("remove: %d %v", code, body)
	}
	v.do(t, http.MethodPost, "/cart/remove", `{"itemId":"f1"}`, tok.Token)
	v.do(t, http.MethodPost, "/cart/remove", `{"itemId":"unknown"}`, tok.Token)
	_, got = v.do(t, http.MethodPost, "/cart/get", "", tok.Token)
	items, _ = got["cartData"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["_id"] != "f1" || items[0].(map[string]any)["quantity"] != float64(1) {
		t.Fatalf("unexpected cart after removes %v", got["cartData"])
	}

	if code, _ := v.do(t, http.MethodPost, "/cart/add", `{}`, tok.Token); code != http.StatusBadRequest {
		t.Errorf("missing itemId: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/cart/add", `{"itemId":"f1"}`, ""); code != http.StatusUnauthorized {
		t.Errorf("anonymous add: %d", code)
	}
}

func TestRegisterLoginAndOrderAsUser(t *testing.T) {
	v := newEnv(t)
	code, body := v.do(t, http.MethodPost, "/user/register",
		`{"name":"Asha","email":"Asha@Example.com","password":"masala-dosa","phone":"98450"}`, "")
	if code != http.StatusCreated || body["token"] == "" {
		t.Fatalf("register: %d %v", code, body)
	}
	if code, _ := v.do(t, http.MethodPost, "/user/register",
		`{"name":"Asha","email":"asha@example.com","password":"masala-dosa"}`, ""); code != http.StatusConflict {
		t.Fatalf("duplicate register: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/user/register",
		`{"name":"Asha","email":"not-an-email","password":"masala-dosa"}`, ""); code != http.StatusBadRequest {
		t.Fatalf("bad email: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/user/login",
		`{"email":"asha@example.com","password":"wrong-password"}`, ""); code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", code)
	}
	if code, _ := v.do(t, http.MethodPost, "/user/login",
		`{"email":"nobody@example.com","password":"masala-dosa"}`, ""); code != http.StatusUnauthorized {
		t.Fatalf("unknown email: %d", code)
	}

	code, body = v.do(t, http.MethodPost, "/user/login", `{"email":"ASHA@example.com","password":"masala-dosa"}`, "")
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, body)
	}
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	if user["role"] != model.RoleUser || user["email"] != "asha@example.com" {
		t.Errorf("unexpected user %v", user)
	}

	v.do(t, http.MethodPost, "/order/place", `{"items":`+dosa+`,"amount":250,"orderType":"delivery","address":{"address":"MG Road","city":"Bengaluru"}}`, token)
	_, mine := v.do(t, http.MethodPost, "/order/userorders", "", token)
	orders, _ := mine["data"].([]any)
	if len(orders) != 1 {
		t.Fatalf("expected one order for the user, got %v", mine["data"])
	}
	addr := orders[0].(map[string]any)["address"].(map[string]any)
	if addr["firstName"] != "Asha" || addr["city"] != "Bengaluru" || addr["phone"] != "98450" {
		t.Errorf("unexpected address snapshot %v", addr)
	}
}

type brokenCarts struct{}

func (brokenCarts) Get(context.Context, string) ([]model.CartItem, error) {
	return nil, errors.New("disk on fire")
}
func (brokenCarts) Replace(context.Context, string, []model.CartItem) error {
	return errors.New("disk on fire")
}
func (brokenCarts) Clear(context.Context, string) error { return errors.New("disk on fire") }

type brokenCartStore struct{ repository.Store }

func (brokenCartStore) Carts() repository.CartStore { return brokenCarts{} }

func TestInternalErrorsAreGeneric(t *testing.T) {
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.POST("/cart/get", NewCartHandler(brokenCartStore{repository.NewMemoryStore("")}, quiet()).Get)
	v := &env{e: e}

	code, body := v.do(t, http.MethodPost, "/cart/get", "", "")
	if code != http.StatusInternalServerError || body["message"] != "internal error" {
		t.Fatalf("status = %d body=%v", code, body)
	}
}
