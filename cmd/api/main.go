package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/campushub/college-admin-api/api/swagger"
	"github.com/campushub/college-admin-api/internal/handler"
	"github.com/campushub/college-admin-api/internal/middleware"
	"github.com/campushub/college-admin-api/internal/repository"
	"github.com/campushub/college-admin-api/internal/service"
	"github.com/campushub/college-admin-api/pkg/cache"
	"github.com/campushub/college-admin-api/pkg/config"
	"github.com/campushub/college-admin-api/pkg/database"
	"github.com/campushub/college-admin-api/pkg/logger"
	"github.com/campushub/college-admin-api/pkg/mailer"
	corsmiddleware "github.com/campushub/college-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushub/college-admin-api/pkg/middleware/requestid"
)

// @title College Admin API
// @version 1.0.0
// @description Role-based college administration backend: timetable scheduling with conflict detection, notifications and events.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	userRepo := repository.NewUserRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	eventRepo := repository.NewEventRepository(db)

	var sender mailer.Sender
	switch cfg.Email.Backend {
	case "sendgrid":
		sender = mailer.NewSendGridSender(cfg.Email.SendGridKey, cfg.Email.FromName, cfg.Email.FromAddress)
	default:
		sender = mailer.NewConsoleSender(logr)
	}

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, sender, service.NotificationQueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		EmailCopy:  cfg.Notifications.EmailCopy,
	}, validate, logr)

	timetableSvc := service.NewTimetableService(timetableRepo, userRepo, notificationSvc, cacheSvc, metricsSvc, validate, logr, cfg.Academics.CurrentSemester)
	eventSvc := service.NewEventService(eventRepo, userRepo, validate, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	audience := ""
	if len(cfg.JWT.Audience) > 0 {
		audience = cfg.JWT.Audience[0]
	}
	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, audience)

	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, cfg.APIPrefix, verifier, apiHandlers{
		timetable:     timetableHandler,
		notifications: notificationHandler,
		events:        eventHandler,
		metrics:       metricsHandler,
	}, cfg.Env != config.EnvProduction)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
