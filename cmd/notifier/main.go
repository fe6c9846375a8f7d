package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopstock/stock-backend/internal/notify"
	"github.com/shopstock/stock-backend/internal/stock/repository"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/database"
	"github.com/shopstock/stock-backend/pkg/httputil"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("notifier")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("notifier", cfg.Server.Environment)
	log.Info().Msg("starting Notifier")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	loc, err := time.LoadLocation(cfg.Upload.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("time_zone", cfg.Upload.TimeZone).Msg("unknown time zone, using UTC")
		loc = time.UTC
	}

	mailer, err := notify.NewSMTPMailer(cfg.Mail, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure mailer")
	}

	notifier := notify.NewNotifier(repository.NewStore(db), notify.NewComposer(loc), mailer, log.WithComponent("notifier"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := notify.NewTransferConsumer(rmq, notifier, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transfer consumer")
	}
	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start transfer consumer")
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Recoverer(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "notifier",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down notifier")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("notifier stopped")
}
