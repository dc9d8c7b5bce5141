package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/realtime"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

// Deps is everything the HTTP surface needs. Redis may be nil.
type Deps struct {
	Cfg     config.Config
	Store   repository.Store
	Coord   *service.Coordinator
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
	Redis   *redis.Client
	Log     *slog.Logger
}

// New builds the echo instance with global middleware and every route,
// mounted both at the root and under /api.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(requestLogger(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "token"},
	}))

	RegisterRoutes(e, d)
	for _, g := range []*echo.Group{e.Group(""), e.Group("/api")} {
		RegisterAuth(g, handler.NewAuthHandler(d.Cfg, d.Store.Users(), d.Log))
		RegisterOrders(g, handler.NewOrderHandler(d.Coord, d.Log), d)
		RegisterTables(g, handler.NewTableHandler(d.Coord, d.Log), d.Cfg.JWTSecret)
		RegisterCart(g, handler.NewCartHandler(d.Store, d.Log), d.Cfg.JWTSecret)
	}
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
	if d.Hub != nil {
		e.GET("/ws", handler.Realtime(d.Hub, d.Log))
	}
}

// RegisterAuth registers account creation and login.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler) {
	u := g.Group("/user")
	u.POST("/register", a.Register)
	u.POST("/login", a.Login)
}

// RegisterOrders registers checkout and the staff order endpoints. Placing
// an order is open to guests and rate limited; the dashboard is cached.
func RegisterOrders(g *echo.Group, o *handler.OrderHandler, d Deps) {
	secret := d.Cfg.JWTSecret
	admin := []echo.MiddlewareFunc{middleware.JWTAuth(secret), middleware.RequireRole(model.RoleAdmin)}

	og := g.Group("/order")
	og.POST("/place", o.Place,
		middleware.OptionalAuth(secret),
		middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log))
	og.POST("/userorders", o.UserOrders,
		middleware.JWTAuth(secret), middleware.RequireRole(model.RoleUser, model.RoleAdmin))

	og.POST("/status", o.Status, admin...)
	og.DELETE("/delete/:id", o.Delete, admin...)
	og.GET("/list", o.List, admin...)
	og.GET("/dashboard", o.Dashboard, append(admin, middleware.NewRedisCache(d.Cfg.Cache, d.Redis, d.Log))...)
}

// RegisterTables registers seat administration. Listing is public so the
// checkout page can offer free tables.
func RegisterTables(g *echo.Group, t *handler.TableHandler, jwtSecret string) {
	tg := g.Group("/table")
	tg.GET("/list", t.List)

	admin := tg.Group("", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/add", t.Add)
	admin.POST("/update-status", t.UpdateStatus)
	admin.POST("/clear", t.Clear)
	admin.POST("/remove", t.Remove)
}

// RegisterCart registers the signed-in user's cart endpoints.
func RegisterCart(g *echo.Group, h *handler.CartHandler, jwtSecret string) {
	cg := g.Group("/cart", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleUser))
	cg.POST("/get", h.Get)
	cg.POST("/update", h.Update)
	cg.POST("/add", h.Add)
	cg.POST("/remove", h.Remove)
	cg.POST("/clear", h.Clear)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			log.LogAttrs(c.Request().Context(), level, "http: request", attrs...)
			return nil
		},
	})
}
