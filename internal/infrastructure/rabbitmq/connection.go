package rabbitmq

import (
	"fmt"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"

	"comanda/internal/config"
)

// URL builds the AMQP URL for cfg. The vhost is path-escaped so the default
// "/" becomes "%2F".
func URL(cfg config.BrokerConfig) string {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password), cfg.Host, cfg.Port, url.PathEscape(vhost))
}

func Dial(cfg config.BrokerConfig) (*amqp.Connection, error) {
	conn, err := amqp.Dial(URL(cfg))
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the durable topic exchange that carries group
// broadcasts. Routing key = group name.
func DeclareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", name, err)
	}
	return nil
}
