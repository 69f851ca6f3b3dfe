package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Notification backends.
const (
	NotifyLog   = "log"
	NotifyKafka = "kafka"
	NotifyMQTT  = "mqtt"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	StoreBackend string
	SQLitePath   string

	// OpenWeatherMap rainfall source.
	WeatherBaseURL     string
	WeatherTimeout     time.Duration
	BreakerFailures    int
	BreakerOpenTimeout time.Duration

	VaultAccount string
	VaultBalance uint64

	NotifyBackends []string

	KafkaBrokers     []string
	KafkaEventsTopic string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parsePositiveDuration("OWM_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	breakerOpen, err := parsePositiveDuration("BREAKER_OPEN_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	breakerFailures, err := strconv.Atoi(sharedcfg.EnvOrDefault("BREAKER_FAILURES", "5"))
	if err != nil || breakerFailures < 1 {
		return nil, errors.New("invalid BREAKER_FAILURES: must be a positive integer")
	}

	vaultBalance, err := strconv.ParseUint(sharedcfg.EnvOrDefault("VAULT_BALANCE", "1000"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid VAULT_BALANCE: must be a non-negative integer")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreBackend: sharedcfg.EnvOrDefault("STORE_BACKEND", StoreMemory),
		SQLitePath:   sharedcfg.EnvOrDefault("SQLITE_PATH", "policy.db"),

		WeatherBaseURL:     sharedcfg.EnvOrDefault("OWM_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		WeatherTimeout:     weatherTimeout,
		BreakerFailures:    breakerFailures,
		BreakerOpenTimeout: breakerOpen,

		VaultAccount: sharedcfg.EnvOrDefault("VAULT_ACCOUNT", "vault"),
		VaultBalance: vaultBalance,

		NotifyBackends: parseList(sharedcfg.EnvOrDefault("NOTIFY_BACKEND", NotifyLog)),

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "policy-events"),

		MQTTBroker:   sharedcfg.EnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTTopic:    sharedcfg.EnvOrDefault("MQTT_TOPIC", "insurance/policy-events"),
		MQTTClientID: sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "rainfall-insurer"),
		MQTTUsername: os.Getenv("MQTT_USERNAME"),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NotifyEnabled reports whether the named notification backend is configured.
func (c *Config) NotifyEnabled(backend string) bool {
	for _, b := range c.NotifyBackends {
		if b == backend {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORE_BACKEND is sqlite")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: must be memory or sqlite", c.StoreBackend)
	}

	if c.WeatherBaseURL == "" {
		return errors.New("OWM_BASE_URL is required")
	}
	if c.VaultAccount == "" {
		return errors.New("VAULT_ACCOUNT is required")
	}

	for _, b := range c.NotifyBackends {
		switch b {
		case NotifyLog, NotifyKafka, NotifyMQTT:
		default:
			return fmt.Errorf("invalid NOTIFY_BACKEND entry %q: must be log, kafka or mqtt", b)
		}
	}
	if c.NotifyEnabled(NotifyKafka) {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when NOTIFY_BACKEND includes kafka")
		}
		if c.KafkaEventsTopic == "" {
			return errors.New("KAFKA_EVENTS_TOPIC is required when NOTIFY_BACKEND includes kafka")
		}
	}
	if c.NotifyEnabled(NotifyMQTT) {
		if c.MQTTBroker == "" {
			return errors.New("MQTT_BROKER is required when NOTIFY_BACKEND includes mqtt")
		}
		if c.MQTTTopic == "" {
			return errors.New("MQTT_TOPIC is required when NOTIFY_BACKEND includes mqtt")
		}
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(strings.ToLower(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
