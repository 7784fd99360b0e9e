package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/medisync/clinic-queue/internal/config"
	notificationService "github.com/medisync/clinic-queue/internal/service/notification"
	"github.com/medisync/clinic-queue/pkg/logger"
	"github.com/medisync/clinic-queue/pkg/messaging"
	"github.com/medisync/clinic-queue/pkg/messaging/redis"
)

// The dispatch worker subscribes to the queue event channel and delivers
// notifications to patients. Delivery currently logs the message; the SMS
// gateway hook plugs in here.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup("queue-dispatch", cfg.Log.Level, cfg.Log.Pretty)

	broker, err := redis.NewRedisBroker(cfg.Redis, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create redis broker")
	}
	defer broker.Close()

	setupHealthCheck()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	messages, err := broker.Subscribe(ctx, notificationService.Channel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to queue events")
	}

	log.Info().Str("channel", notificationService.Channel).Msg("dispatch worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			dispatch(raw)
		}
	}
}

func dispatch(raw []byte) {
	var msg messaging.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Error().Err(err).Msg("failed to decode queue event")
		return
	}
	// TODO: hand off to the SMS gateway once the clinic account is provisioned.
	log.Info().
		Str("type", msg.Type).
		Interface("payload", msg.Payload).
		Msg("notification dispatched")
}

func setupHealthCheck() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}
