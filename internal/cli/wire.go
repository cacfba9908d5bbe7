// Package cli implements the operator commands: ingest, call, export, status.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"dialout/internal/campaign"
	"dialout/internal/config"
	"dialout/internal/dialer"
	"dialout/internal/ingest"
	"dialout/internal/phone"
	"dialout/internal/records"
	"dialout/internal/runlog"
	"dialout/internal/scheduler"
	"dialout/pkg/logger"
	"dialout/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// app bundles everything a command needs, built once per invocation.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	store  records.Store
	events *runlog.Service
	ctrl   *campaign.Controller

	close func()
}

// buildApp loads config, opens Postgres, runs migrations, and wires the
// campaign controller. suppressionPath is optional.
func buildApp(ctx context.Context, suppressionPath string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	store := records.NewPostgresStore(db)
	eventRepo := runlog.NewPostgresRepo(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("records migration: %w", err)
	}
	if err := eventRepo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog migration: %w", err)
	}

	normalizer := phone.E164Normalizer{Region: cfg.Phone.DefaultRegion}
	suppressed, err := ingest.LoadSuppressionFile(suppressionPath, normalizer)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("suppression list: %w", err)
	}

	events := runlog.NewService(eventRepo)
	vapi := dialer.NewVapiClient(dialer.VapiConfig{
		APIKey:            cfg.Vapi.APIKey,
		BaseURL:           cfg.Vapi.BaseURL,
		PhoneNumberID:     cfg.Vapi.PhoneNumberID,
		WebhookBaseURL:    cfg.Vapi.WebhookBaseURL,
		RequestsPerSecond: cfg.Vapi.RequestsPerSecond,
	}, log)

	ctrl := campaign.NewController(
		store,
		vapi,
		events,
		ingest.NewPipeline(normalizer, suppressed, log),
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

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		events: events,
		ctrl:   ctrl,
		close:  func() { db.Close() },
	}, nil
}
