package testutil

import (
	"os"
	"testing"

	"github.com/google/uuid"

	"comanda/internal/config"
	"comanda/internal/infrastructure/rabbitmq"
)

// SetupTestBroker returns settings for the RabbitMQ at BROKER_HOST
// (default localhost, guest/guest) with a throwaway exchange, and skips the
// test when the broker is not reachable. The exchange is deleted on cleanup.
func SetupTestBroker(t *testing.T) config.BrokerConfig {
	cfg := config.BrokerConfig{
		Host:     envOr("BROKER_HOST", "localhost"),
		Port:     5672,
		User:     envOr("BROKER_USER", "guest"),
		Password: envOr("BROKER_PASSWORD", "guest"),
		VHost:    "/",
		Exchange: "comanda-test-" + uuid.NewString(),
	}

	conn, err := rabbitmq.Dial(cfg)
	if err != nil {
		t.Skipf("rabbitmq not available: %v", err)
	}

	t.Cleanup(func() {
		if ch, err := conn.Channel(); err == nil {
			_ = ch.ExchangeDelete(cfg.Exchange, false, false)
			_ = ch.Close()
		}
		_ = conn.Close()
	})
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
