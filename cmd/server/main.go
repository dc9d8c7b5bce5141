package main // Entry point package

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/database"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/queue"
	"github.com/iliyamo/cafe-ordering/internal/realtime"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/router"
	"github.com/iliyamo/cafe-ordering/internal/service"
)

func main() {
	seed := flag.Bool("seed", false, "create the default tables and the ADMIN_EMAIL account before serving")
	flag.Parse()

	_ = godotenv.Load() // .env is optional
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("open store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.New(true)
	hub := realtime.NewHub(logger, m, cfg.CORSOrigins, realtime.DefaultBuffer)
	notifiers := realtime.Fanout{hub}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pub *queue.Publisher
	if cfg.AMQPURL != "" {
		pub, err = queue.NewPublisher(cfg.AMQPURL, logger, m)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events not mirrored", slog.String("error", err.Error()))
		} else {
			notifiers = append(notifiers, pub)
			consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, Dir: cfg.AuditLogDir, Log: logger}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = config.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, rate limit and cache disabled", slog.String("error", err.Error()))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	coord := service.NewCoordinator(store, notifiers, logger, m)
	if *seed {
		if err := runSeed(ctx, coord, store, cfg, logger); err != nil {
			logger.Error("seed failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	e := router.New(router.Deps{
		Cfg:     cfg,
		Store:   store,
		Coord:   coord,
		Hub:     hub,
		Metrics: m,
		Redis:   rdb,
		Log:     logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.String("error", err.Error()))
	}
	hub.Close()
	if pub != nil {
		_ = pub.Close()
	}
}

// openStore picks the storage backend from STORE_DRIVER.
func openStore(cfg config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(cfg.FrontendURL), func() {}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := database.MigrateUp(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied")
	}
	return repository.NewSQLStore(db, cfg.FrontendURL), func() { _ = db.Close() }, nil
}

func runSeed(ctx context.Context, coord *service.Coordinator, store repository.Store, cfg config.Config, logger *slog.Logger) error {
	if _, err := coord.Seed(ctx); err != nil {
		return err
	}
	if cfg.AdminEmail == "" || cfg.AdminPass == "" {
		return nil
	}
	admin := &model.User{Name: "Admin", Email: cfg.AdminEmail, Role: model.RoleAdmin}
	err := store.Users().Create(ctx, admin, cfg.AdminPass, cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("admin account created", slog.String("user_id", admin.ID))
	return nil
}
