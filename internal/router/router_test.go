package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/realtime"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/service"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

const secret = "router-secret"

func newServer(t *testing.T) (http.Handler, *realtime.Hub) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(false)
	store := repository.NewMemoryStore("http://localhost:5173")
	hub := realtime.NewHub(log, m, nil, 8)
	coord := service.NewCoordinator(store, hub, log, m)
	if _, err := coord.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, BcryptCost: 4, CORSOrigins: []string{"*"}}
	return New(Deps{Cfg: cfg, Store: store, Coord: coord, Hub: hub, Metrics: m, Log: log}), hub
}

func call(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestOperationalEndpoints(t *testing.T) {
	h, _ := newServer(t)
	if rec := call(h, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body)
	}
	rec := call(h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "cafe_seat_release_failures_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestRoutesAreMountedAtRootAndUnderAPI(t *testing.T) {
	h, _ := newServer(t)
	for _, path := range []string{"/table/list", "/api/table/list"} {
		if rec := call(h, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("%s: %d", path, rec.Code)
		}
	}
	body := `{"items":[{"foodId":"f1","name":"Vada","quantity":1,"price":35}],"amount":35,"orderType":"takeaway"}`
	if rec := call(h, http.MethodPost, "/api/order/place", body, ""); rec.Code != http.StatusOK {
		t.Errorf("/api/order/place: %d %s", rec.Code, rec.Body)
	}
}

func TestStaffRoutesRequireAdmin(t *testing.T) {
	h, _ := newServer(t)
	user, _ := utils.NewAccessToken(secret, "u1", model.RoleUser, 5)
	admin, _ := utils.NewAccessToken(secret, "a1", model.RoleAdmin, 5)

	cases := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"garbage", http.StatusUnauthorized},
		{user.Token, http.StatusForbidden},
		{admin.Token, http.StatusOK},
	}
	for _, tc := range cases {
		for _, path := range []string{"/order/list", "/api/order/dashboard"} {
			if rec := call(h, http.MethodGet, path, "", tc.token); rec.Code != tc.want {
				t.Errorf("%s with %q: got %d want %d", path, tc.token, rec.Code, tc.want)
			}
		}
	}
	if rec := call(h, http.MethodPost, "/table/add", `{"name":"Patio"}`, user.Token); rec.Code != http.StatusForbidden {
		t.Errorf("user adding a table: %d", rec.Code)
	}
	if rec := call(h, http.MethodPost, "/cart/get", "", user.Token); rec.Code != http.StatusOK {
		t.Errorf("user reading cart: %d", rec.Code)
	}
	if rec := call(h, http.MethodPost, "/api/cart/add", `{"itemId":"f1"}`, user.Token); rec.Code != http.StatusOK {
		t.Errorf("user adding to cart: %d", rec.Code)
	}
	if rec := call(h, http.MethodPost, "/cart/remove", `{"itemId":"f1"}`, admin.Token); rec.Code != http.StatusForbidden {
		t.Errorf("admin editing a cart: %d", rec.Code)
	}
	if rec := call(h, http.MethodPost, "/order/userorders", "", user.Token); rec.Code != http.StatusOK {
		t.Errorf("user reading own orders: %d", rec.Code)
	}
}

func TestCORSAllowsTokenHeader(t *testing.T) {
	h, _ := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/order/place", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("no CORS headers: %v", rec.Header())
	}
	if !strings.Contains(strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "token") {
		t.Errorf("token header not allowed: %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestWebsocketReceivesNewOrder(t *testing.T) {
	h, hub := newServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	body := `{"items":[{"foodId":"f1","name":"Vada","quantity":1,"price":35}],"amount":35}`
	resp, err := http.Post(srv.URL+"/order/place", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame realtime.Event
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Name != realtime.EventNewOrder {
		t.Errorf("expected %s, got %s", realtime.EventNewOrder, frame.Name)
	}
}
