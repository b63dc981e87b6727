package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("ALLOWED_EMAIL_DOMAINS", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:8081", cfg.BackendURL)
	assert.Equal(t, []string{"@gmail.com", "@duoc.cl", "@profesor.duoc.cl"}, cfg.AllowedEmailDomains)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com/")
	t.Setenv("BACKEND_TIMEOUT", "2s")
	t.Setenv("BACKEND_RETRIES", "nope")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")

	cfg := Load()
	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, 2*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 3, cfg.BackendRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestInstanceIDPerProcess(t *testing.T) {
	t.Setenv("SERVICE_NAME", "storefront-api")
	t.Setenv("INSTANCE_ID", "")

	a, b := Load(), Load()
	assert.Equal(t, a.ServiceName, b.ServiceName)
	assert.NotEmpty(t, a.InstanceID)
	assert.NotEqual(t, a.InstanceID, b.InstanceID)

	t.Setenv("INSTANCE_ID", "api-0")
	assert.Equal(t, "api-0", Load().InstanceID)
}
