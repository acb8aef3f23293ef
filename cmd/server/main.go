package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/user-service/internal/auth"
	"github.com/iliyamo/user-service/internal/config"
	"github.com/iliyamo/user-service/internal/database"
	"github.com/iliyamo/user-service/internal/gateway"
	"github.com/iliyamo/user-service/internal/handler"
	"github.com/iliyamo/user-service/internal/logging"
	"github.com/iliyamo/user-service/internal/middleware"
	"github.com/iliyamo/user-service/internal/queue"
	"github.com/iliyamo/user-service/internal/repository"
	"github.com/iliyamo/user-service/internal/router"
	"github.com/iliyamo/user-service/internal/telemetry"
)

const serviceName = "user-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTELEndpoint, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DB.Driver); err != nil {
			return err
		}
		log.Info("migrations applied", "driver", cfg.DB.Driver)
	}

	metrics := telemetry.NewMetrics()
	gw := gateway.NewSQLGateway(db, gateway.Dialect(cfg.DB.Driver),
		gateway.WithTimeout(cfg.DB.CallTimeout),
		gateway.WithObserver(metrics),
	)
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTTLMin)*time.Minute)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting disabled", "addr", cfg.Redis.Address())
	} else {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.Nop{}
	if cfg.Events.Enabled {
		events = queue.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Queue, log)
	}
	defer events.Close()

	if cfg.Events.AuditConsumer {
		consumer := &queue.AuditConsumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogPath: cfg.Events.AuditLogPath, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", "err", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(
		echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}),
		echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
				log.Info("request",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency", v.Latency,
					"request_id", v.RequestID,
				)
				return nil
			},
		}),
		metrics.Middleware(),
		echomw.Recover(),
		echomw.BodyLimit("1M"),
	)

	users := handler.NewUserHandler(repository.NewUserRepo(gw), tokens, events, log)
	router.RegisterRoutes(e, db, metrics.Handler())
	router.RegisterUsers(e, cfg.RoutePrefix, users, tokens, middleware.RateLimit(cfg.RateLimit, rdb, log))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "prefix", cfg.RoutePrefix)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
