package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "development" || cfg.App.LogLevel != "info" {
		t.Fatalf("unexpected app defaults: %+v", cfg.App)
	}
	if cfg.Kafka.RequestTopic != "sms.dispatch.requests" {
		t.Fatalf("unexpected request topic default: %q", cfg.Kafka.RequestTopic)
	}
	if cfg.Dispatch.DefaultRegion != "US" || cfg.Dispatch.Concurrency != 10 {
		t.Fatalf("unexpected dispatch defaults: %+v", cfg.Dispatch)
	}
	if cfg.Provider.Backend != "mock" {
		t.Fatalf("unexpected provider default: %q", cfg.Provider.Backend)
	}
}

func TestLoadBrokerList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092 ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected broker list: %v", cfg.Kafka.Brokers)
	}
}

func TestLoadAccumulatesErrors(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("DISPATCH_CONCURRENCY", "0")
	t.Setenv("DISPATCH_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "DISPATCH_CONCURRENCY") {
		t.Fatalf("missing concurrency error: %v", err)
	}
	if !strings.Contains(msg, "DISPATCH_REQUEST_TIMEOUT_SECONDS") {
		t.Fatalf("missing timeout error: %v", err)
	}
}
