package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, "policy.db", cfg.SQLitePath)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", cfg.WeatherBaseURL)
	assert.Equal(t, 5*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 5, cfg.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)
	assert.Equal(t, "vault", cfg.VaultAccount)
	assert.Equal(t, uint64(1000), cfg.VaultBalance)
	assert.Equal(t, []string{NotifyLog}, cfg.NotifyBackends)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "policy-events", cfg.KafkaEventsTopic)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "insurance/policy-events", cfg.MQTTTopic)
	assert.Equal(t, "rainfall-insurer", cfg.MQTTClientID)
	assert.Empty(t, cfg.MQTTUsername)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/var/lib/insurer/policy.db")
	t.Setenv("OWM_BASE_URL", "http://weather.internal/data/2.5/weather")
	t.Setenv("OWM_TIMEOUT", "2s")
	t.Setenv("BREAKER_FAILURES", "3")
	t.Setenv("BREAKER_OPEN_TIMEOUT", "1m")
	t.Setenv("VAULT_ACCOUNT", "treasury")
	t.Setenv("VAULT_BALANCE", "5000")
	t.Setenv("NOTIFY_BACKEND", "log, Kafka,mqtt")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_EVENTS_TOPIC", "custom-events")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	t.Setenv("MQTT_TOPIC", "custom/topic")
	t.Setenv("MQTT_CLIENT_ID", "insurer-1")
	t.Setenv("MQTT_USERNAME", "guest")
	t.Setenv("MQTT_PASSWORD", "guest")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "/var/lib/insurer/policy.db", cfg.SQLitePath)
	assert.Equal(t, "http://weather.internal/data/2.5/weather", cfg.WeatherBaseURL)
	assert.Equal(t, 2*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 3, cfg.BreakerFailures)
	assert.Equal(t, time.Minute, cfg.BreakerOpenTimeout)
	assert.Equal(t, "treasury", cfg.VaultAccount)
	assert.Equal(t, uint64(5000), cfg.VaultBalance)
	assert.Equal(t, []string{NotifyLog, NotifyKafka, NotifyMQTT}, cfg.NotifyBackends)
	assert.True(t, cfg.NotifyEnabled(NotifyKafka))
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-events", cfg.KafkaEventsTopic)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTTBroker)
	assert.Equal(t, "custom/topic", cfg.MQTTTopic)
	assert.Equal(t, "insurer-1", cfg.MQTTClientID)
	assert.Equal(t, "guest", cfg.MQTTUsername)
	assert.Equal(t, "guest", cfg.MQTTPassword)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidWeatherTimeout(t *testing.T) {
	t.Setenv("OWM_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OWM_TIMEOUT")
}

func TestLoad_NegativeBreakerOpenTimeout(t *testing.T) {
	t.Setenv("BREAKER_OPEN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BREAKER_OPEN_TIMEOUT")
}

func TestLoad_InvalidBreakerFailures(t *testing.T) {
	t.Setenv("BREAKER_FAILURES", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BREAKER_FAILURES")
}

func TestLoad_InvalidVaultBalance(t *testing.T) {
	t.Setenv("VAULT_BALANCE", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAULT_BALANCE")
}

func TestLoad_UnknownStoreBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoad_UnknownNotifyBackend(t *testing.T) {
	t.Setenv("NOTIFY_BACKEND", "log,smtp")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp")
}
