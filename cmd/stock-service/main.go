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
	"github.com/go-chi/cors"
	"github.com/shopstock/stock-backend/internal/auth/jwt"
	"github.com/shopstock/stock-backend/internal/stock/adapter"
	"github.com/shopstock/stock-backend/internal/stock/consumers"
	"github.com/shopstock/stock-backend/internal/stock/events"
	"github.com/shopstock/stock-backend/internal/stock/handler"
	"github.com/shopstock/stock-backend/internal/stock/repository"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/snapshot"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/database"
	"github.com/shopstock/stock-backend/pkg/httputil"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
)

func main() {
	// Fails fast in production if required config is missing
	cfg, err := config.LoadWithValidation("stock-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("stock-service", cfg.Server.Environment)
	log.Info().Msg("starting Stock Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewStockEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	st := repository.NewStore(db)

	// Services
	sweeper := service.NewSweeper(st, log.WithComponent("sweeper"))
	services := handler.Services{
		Items:      service.NewItemService(st, log),
		Transfers:  service.NewTransferService(st, publisher, log),
		Reconciler: service.NewReconciler(st, sweeper, adapter.FromConfig(cfg.Adapter), publisher, log.WithComponent("reconcile")),
		Exporter:   service.NewExporter(st, cfg.Upload.TimeZone, log),
		Config:     service.NewConfigService(st, log),
	}

	if cfg.Snapshot.Enabled() {
		client, err := snapshot.NewClient(cfg.Snapshot)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create snapshot client")
		}
		snapshots := snapshot.New(client, cfg.Snapshot, log)
		if err := snapshots.EnsureBucket(ctx); err != nil {
			log.Error().Err(err).Msg("snapshot bucket unavailable, snapshots disabled")
		} else {
			services.Snapshots = snapshots
		}
	}

	// Keep stock_users in step with the identity service
	userConsumer, err := consumers.NewUserEventConsumer(rmq, consumers.NewUserSync(st, log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}
	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	scheduler := service.NewSweepScheduler(sweeper, cfg.Sweeper.Interval, log.WithComponent("sweeper"))
	scheduler.Start(ctx)

	jwtManager := jwt.NewManager(&cfg.JWT)
	h := handler.New(services, cfg.Upload.MaxBytes, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "stock-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtManager.Middleware(log))
		h.Routes(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stops the consumer and the sweep scheduler
	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
