package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/config"
	"github.com/example/sms-dispatch/internal/dispatch"
	"github.com/example/sms-dispatch/internal/kafka/consumer"
	"github.com/example/sms-dispatch/internal/kafka/producer"
	kafkapublisher "github.com/example/sms-dispatch/internal/kafka/publisher"
	"github.com/example/sms-dispatch/internal/logger"
	"github.com/example/sms-dispatch/internal/transport"
	"github.com/example/sms-dispatch/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "dispatch-worker").Logger()

	kafkaLogger := log.With().Str("component", "kafka").Logger()
	prod, err := producer.New(cfg.Kafka.Brokers, kafkaLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	consumerLogger := log.With().Str("component", "consumer").Logger()
	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, consumerLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	outcomePublisher := kafkapublisher.NewOutcomePublisher(prod, cfg.Kafka.OutcomeTopic, log.With().Str("component", "outcome-publisher").Logger())
	if outcomePublisher == nil {
		log.Fatal().Msg("failed to create outcome publisher")
	}

	tr, err := newTransport(cfg.Provider.Backend, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise sms transport")
	}

	engine, err := dispatch.New(tr, dispatch.Config{
		DefaultRegion: cfg.Dispatch.DefaultRegion,
		Concurrency:   cfg.Dispatch.Concurrency,
	}, dispatch.Dependencies{
		Logger: log.With().Str("component", "dispatch-engine").Logger(),
		Now:    time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dispatch engine")
	}

	handler, err := worker.NewHandler(engine, outcomePublisher, worker.Config{
		RequestTimeout: time.Duration(cfg.Dispatch.RequestTimeoutSeconds) * time.Second,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise request handler")
	}

	topics := []string{cfg.Kafka.RequestTopic}

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, topics, handler.Bridge()); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("request_topic", cfg.Kafka.RequestTopic).
		Str("outcome_topic", cfg.Kafka.OutcomeTopic).
		Str("backend", cfg.Provider.Backend).
		Msg("dispatch worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}
}

func newTransport(backend string, log zerolog.Logger) (transport.Transport, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "mock":
		providerLogger := log.With().Str("component", "mock-provider").Logger()
		return transport.NewMockProvider(providerLogger,
			transport.WithLatency(25*time.Millisecond),
		), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider backend %q", backend)
	}
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("dispatch worker init failed")
}
