package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/eta"
	healthHandler "github.com/medisync/clinic-queue/internal/handler/health"
	queueHandler "github.com/medisync/clinic-queue/internal/handler/queue"
	"github.com/medisync/clinic-queue/internal/queue"
	"github.com/medisync/clinic-queue/internal/repository/postgres"
	"github.com/medisync/clinic-queue/internal/router"
	"github.com/medisync/clinic-queue/internal/scheduler"
	notificationService "github.com/medisync/clinic-queue/internal/service/notification"
	"github.com/medisync/clinic-queue/internal/worker"
	"github.com/medisync/clinic-queue/pkg/logger"
	"github.com/medisync/clinic-queue/pkg/messaging"
	"github.com/medisync/clinic-queue/pkg/messaging/redis"
	"github.com/medisync/clinic-queue/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup("queue-api", cfg.Log.Level, cfg.Log.Pretty)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker
	broker, err = redis.NewRedisBroker(cfg.Redis, &log.Logger)
	if err != nil {
		// Notifications degrade to durable records only.
		log.Warn().Err(err).Msg("redis unavailable, running without pub/sub")
		broker = nil
	} else {
		defer broker.Close()
	}

	patientRepo := postgres.NewPatientRepository(db)
	queueStateRepo := postgres.NewQueueStateRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	m := metrics.NewMetrics("clinic_queue")

	scorer := queue.NewScorer(cfg.Queue)
	store := queue.NewStore(scorer)
	state := queue.NewState(0, time.Now())

	osrm := eta.NewOSRMProvider(cfg.Geo.OSRMBaseURL, cfg.Geo.Timeout)
	engine := eta.NewEngine(osrm, cfg.Geo, cfg.Queue, log.Logger)
	engine.SetMetrics(m)

	notifier := notificationService.NewService(notificationRepo, broker, log.Logger)

	sched := scheduler.New(cfg.Queue, scheduler.Deps{
		Store:      store,
		State:      state,
		Engine:     engine,
		Patients:   patientRepo,
		QueueState: queueStateRepo,
		Doctors:    doctorRepo,
		Notifier:   notifier,
		Metrics:    m,
	}, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to restore queue state")
	}

	go worker.NewTickWorker(sched, cfg.Queue.TickInterval, log.Logger).Start(ctx)

	r := router.NewRouter(
		healthHandler.NewHandler(db),
		queueHandler.NewHandler(sched),
		router.DefaultConfig(),
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting queue API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
