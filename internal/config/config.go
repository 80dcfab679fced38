// Package config loads the dispatch worker's runtime configuration from the
// environment, with optional .env support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the dispatch worker.
type Config struct {
	App      AppConfig
	Kafka    KafkaConfig
	Dispatch DispatchConfig
	Provider ProviderConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// KafkaConfig defines the broker list and the topics the worker touches.
type KafkaConfig struct {
	Brokers       []string
	RequestTopic  string
	OutcomeTopic  string
	ConsumerGroup string
}

// DispatchConfig tunes the bulk dispatch engine.
type DispatchConfig struct {
	// DefaultRegion is the ISO region assumed for recipients supplied in
	// national format when the request carries no hint.
	DefaultRegion string
	// Concurrency caps simultaneous transport calls.
	Concurrency int
	// RequestTimeoutSeconds bounds one whole dispatch call end to end.
	RequestTimeoutSeconds int
}

// ProviderConfig selects the transport backend.
type ProviderConfig struct {
	Backend string
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", true)
	cfg.Kafka.RequestTopic = ldr.getString("KAFKA_DISPATCH_REQUEST_TOPIC", "sms.dispatch.requests", false)
	cfg.Kafka.OutcomeTopic = ldr.getString("KAFKA_DISPATCH_OUTCOME_TOPIC", "sms.dispatch.outcomes", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("KAFKA_CONSUMER_GROUP", "sms-dispatch-worker", false)

	cfg.Dispatch.DefaultRegion = ldr.getString("DISPATCH_DEFAULT_REGION", "US", false)
	cfg.Dispatch.Concurrency = ldr.getInt("DISPATCH_CONCURRENCY", 10, false)
	cfg.Dispatch.RequestTimeoutSeconds = ldr.getInt("DISPATCH_REQUEST_TIMEOUT_SECONDS", 60, false)

	cfg.Provider.Backend = strings.ToLower(ldr.getString("SMS_PROVIDER", "mock", false))

	if cfg.Dispatch.Concurrency < 1 {
		ldr.addError("DISPATCH_CONCURRENCY must be at least 1")
	}
	if cfg.Dispatch.RequestTimeoutSeconds < 1 {
		ldr.addError("DISPATCH_REQUEST_TIMEOUT_SECONDS must be at least 1")
	}

	if err := ldr.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
