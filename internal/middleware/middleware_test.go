package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cafe-ordering/internal/config"
    "github.com/iliyamo/cafe-ordering/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": Role(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthAcceptsTokenHeaderAndBearer(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(secret))
    tok, _ := utils.NewAccessToken(secret, "u1", "USER", 5)

    for name, set := range map[string]func(*http.Request){
        "token header": func(r *http.Request) { r.Header.Set("token", tok.Token) },
        "bearer":       func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok.Token) },
    } {
        t.Run(name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodGet, "/me", nil)
            set(req)
            rec := serve(e, req)
            if rec.Code != http.StatusOK {
                t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
            }
        })
    }

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
    if rec.Code != http.StatusUnauthorized {
        t.Errorf("missing token: status = %d", rec.Code)
    }
    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("token", "garbage")
    if rec := serve(e, req); rec.Code != http.StatusUnauthorized {
        t.Errorf("bad token: status = %d", rec.Code)
    }
}

func TestOptionalAuthFallsBackToGuest(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, OptionalAuth(secret))

    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("token", "garbage")
    rec := serve(e, req)
    if rec.Code != http.StatusOK || rec.Body.String() != "{\"role\":\"\",\"user\":\"\"}\n" {
        t.Errorf("bad token: %d %s", rec.Code, rec.Body)
    }

    tok, _ := utils.NewAccessToken(secret, "u2", "ADMIN", 5)
    req = httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("token", tok.Token)
    rec = serve(e, req)
    if rec.Body.String() != "{\"role\":\"ADMIN\",\"user\":\"u2\"}\n" {
        t.Errorf("valid token: %s", rec.Body)
    }
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/admin", whoami, JWTAuth(secret), RequireRole("ADMIN"))

    user, _ := utils.NewAccessToken(secret, "u1", "USER", 5)
    admin, _ := utils.NewAccessToken(secret, "u2", "ADMIN", 5)

    req := httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("token", user.Token)
    if rec := serve(e, req); rec.Code != http.StatusForbidden {
        t.Errorf("USER: status = %d", rec.Code)
    }
    req = httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("token", admin.Token)
    if rec := serve(e, req); rec.Code != http.StatusOK {
        t.Errorf("ADMIN: status = %d", rec.Code)
    }
}

func TestDisabledRedisMiddlewarePassThrough(t *testing.T) {
    e := echo.New()
    e.GET("/x", whoami,
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
        NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil))
    if rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)); rec.Code != http.StatusOK {
        t.Errorf("status = %d", rec.Code)
    }
}

func TestRateKeyStrategies(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/order/place", nil)
    req.Header.Set("X-Real-IP", "10.0.0.1")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/order/place")
    c.Set(CtxUserID, "u1")

    cases := map[string]string{
        "ip":            "rl:ip:10.0.0.1",
        "ip_route":      "rl:ip:10.0.0.1:route:POST /order/place",
        "ip_user_route": "rl:ip:10.0.0.1:user:u1:route:POST /order/place",
    }
    for strategy, want := range cases {
        got := RateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
        if got != want {
            t.Errorf("%s: got %q want %q", strategy, got, want)
        }
    }
}
