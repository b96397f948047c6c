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

	"github.com/vozsalud/cita-platform/internal/api/router"
	"github.com/vozsalud/cita-platform/internal/app/bootstrap"
	"github.com/vozsalud/cita-platform/internal/chat"
	appconfig "github.com/vozsalud/cita-platform/internal/config"
	"github.com/vozsalud/cita-platform/internal/dialog"
	"github.com/vozsalud/cita-platform/internal/nlu"
	"github.com/vozsalud/cita-platform/internal/notify"
	"github.com/vozsalud/cita-platform/internal/observability/metrics"
	"github.com/vozsalud/cita-platform/pkg/logging"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cita-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"directory_backend", cfg.DirectoryBackend,
	)

	ctx := context.Background()

	store, closeStore, err := bootstrap.BuildDirectoryStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build directory store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	roster, err := dialog.LoadRoster(ctx, store)
	if err != nil {
		logger.Error("failed to load physician roster", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	sessions := bootstrap.BuildSessionStore(cfg, redisClient, logger)
	transcripts := chat.NewTranscriptStore(redisClient)

	archiveDB := bootstrap.BuildArchiveDB(cfg, logger)
	if archiveDB != nil {
		defer archiveDB.Close()
	}
	archive := chat.NewArchiveStore(archiveDB)

	chatMetrics := metrics.NewChatMetrics(nil)

	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		logger.Info("booking confirmation email disabled")
	}
	notifier := notify.NewBookingNotifier(emailSender, chatMetrics, logger)

	machine := dialog.NewMachine(dialog.MachineConfig{
		NLU:       nlu.New(roster.Physicians(), logger),
		Store:     store,
		Roster:    roster,
		Predictor: bootstrap.BuildPredictor(cfg, logger),
		Notifier:  notifier,
		Logger:    logger,
	})

	engine := chat.NewEngine(chat.EngineConfig{
		Machine:     machine,
		Sessions:    sessions,
		Transcripts: transcripts,
		Archive:     archive,
		Metrics:     chatMetrics,
		Logger:      logger,
	})

	var transcriber chat.Transcriber
	if tr := bootstrap.BuildTranscriber(cfg, logger); tr != nil {
		transcriber = tr
	}
	chatHandler := chat.NewHandler(engine, transcriber, chat.WidgetJS, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
