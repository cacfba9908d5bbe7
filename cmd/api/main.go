package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialout/internal/auth"
	"dialout/internal/campaign"
	"dialout/internal/config"
	"dialout/internal/dialer"
	"dialout/internal/httpapi"
	"dialout/internal/ingest"
	"dialout/internal/phone"
	"dialout/internal/records"
	"dialout/internal/runlog"
	"dialout/internal/scheduler"
	"dialout/internal/usage"
	"dialout/internal/webhook"
	"dialout/pkg/logger"
	"dialout/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	store := records.NewPostgresStore(db)
	eventRepo := runlog.NewPostgresRepo(db)
	if err := store.Migrate(rootCtx); err != nil {
		log.Error("records migration failed", "err", err)
		os.Exit(1)
	}
	if err := eventRepo.Migrate(rootCtx); err != nil {
		log.Error("runlog migration failed", "err", err)
		os.Exit(1)
	}
	if err := usage.Migrate(rootCtx, db); err != nil {
		log.Error("usage migration failed", "err", err)
		os.Exit(1)
	}

	events := runlog.NewService(eventRepo)
	usageSvc := usage.NewService(db, cfg.Usage.MonthlyCallLimit)

	vapi := dialer.NewVapiClient(dialer.VapiConfig{
		APIKey:            cfg.Vapi.APIKey,
		BaseURL:           cfg.Vapi.BaseURL,
		PhoneNumberID:     cfg.Vapi.PhoneNumberID,
		WebhookBaseURL:    cfg.Vapi.WebhookBaseURL,
		RequestsPerSecond: cfg.Vapi.RequestsPerSecond,
	}, log)

	pipeline := ingest.NewPipeline(phone.E164Normalizer{Region: cfg.Phone.DefaultRegion}, nil, log)

	ctrl := campaign.NewController(
		store,
		vapi,
		events,
		pipeline,
		scheduler.Config{
			MaxConcurrentCalls: cfg.Dialing.MaxConcurrentCalls,
			MaxCallsPerHour:    cfg.Dialing.MaxCallsPerHour,
			MaxCallsPerDay:     cfg.Dialing.MaxCallsPerDay,
			MaxRetries:         cfg.Dialing.MaxRetries,
			RetryDelay:         cfg.Dialing.RetryDelay,
			WindowStart:        cfg.Dialing.WindowStart,
			WindowEnd:          cfg.Dialing.WindowEnd,
			Timezone:           cfg.Location(),
			PacingDelay:        cfg.Dialing.PacingDelay,
		},
		dialer.AgentConfig{AssistantID: cfg.Vapi.AssistantID, PhoneNumberID: cfg.Vapi.PhoneNumberID},
		log,
	)

	h := httpapi.Handlers{
		Auth:     authManager,
		Campaign: ctrl,
		Usage:    usageSvc,
		Events:   events,
		Redis:    rdb,
	}
	wh := webhook.Handler{
		Store:  store,
		Secret: cfg.Vapi.WebhookSecret,
		Redis:  rdb,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, authManager, h, wh)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
