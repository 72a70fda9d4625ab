package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicvoice/healthie-agent/internal/actions"
	"github.com/clinicvoice/healthie-agent/internal/api/router"
	appconfig "github.com/clinicvoice/healthie-agent/internal/config"
	"github.com/clinicvoice/healthie-agent/internal/healthie"
	"github.com/clinicvoice/healthie-agent/internal/mailotp"
	"github.com/clinicvoice/healthie-agent/internal/observability/metrics"
	"github.com/clinicvoice/healthie-agent/pkg/logging"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting healthie-agent",
		"env", cfg.Env,
		"port", cfg.Port,
		"headless", cfg.Headless,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	otpRetriever := mailotp.NewRetriever(cfg.IMAPHost, cfg.MailEmail, cfg.MailPassword,
		mailotp.WithPollInterval(cfg.OTPPollInterval),
		mailotp.WithLogger(logger),
	)

	sessions, err := healthie.NewSessionManager(healthie.SessionConfig{
		Email:          cfg.HealthieEmail,
		Password:       cfg.HealthiePassword,
		BaseURL:        cfg.HealthieBaseURL,
		Headless:       cfg.Headless,
		OTPGracePeriod: cfg.OTPGracePeriod,
		OTPTimeout:     cfg.OTPTimeout,
	}, otpRetriever, logger)
	if err != nil {
		logger.Error("failed to initialize portal session manager", "error", err)
		os.Exit(1)
	}

	finder := healthie.NewFinder(sessions, logger)
	scheduler := healthie.NewScheduler(sessions, logger)
	actionMetrics := metrics.NewActionMetrics(nil)
	actionsHandler := actions.NewHandler(finder, scheduler, actionMetrics, logger)

	r := router.New(&router.Config{
		Logger:         logger,
		Actions:        actionsHandler,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// Portal actions drive a real browser and can legitimately take
		// minutes, so the write timeout is generous.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if err := sessions.Release(); err != nil {
		logger.Error("failed to close portal session", "error", err)
	}

	logger.Info("server stopped")
}
