package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/domain"
	"comanda/internal/infrastructure/rabbitmq"
)

// AMQPTransport opens sessions on a RabbitMQ topic exchange. Each session
// owns an exclusive auto-delete queue, so nothing is buffered for a client
// while it is disconnected.
type AMQPTransport struct {
	cfg config.BrokerConfig
}

func NewAMQPTransport(cfg config.BrokerConfig) *AMQPTransport {
	return &AMQPTransport{cfg: cfg}
}

func (t *AMQPTransport) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Dial(t.cfg)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := rabbitmq.DeclareExchange(ch, t.cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declaring session queue: %w", err)
	}

	return &amqpSession{conn: conn, ch: ch, queue: q.Name, exchange: t.cfg.Exchange, done: make(chan struct{})}, nil
}

type amqpSession struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	exchange string

	done      chan struct{}
	closeOnce sync.Once
}

func (s *amqpSession) Join(group string) error {
	if err := s.ch.QueueBind(s.queue, group, s.exchange, false, nil); err != nil {
		return fmt.Errorf("binding group %s: %w", group, err)
	}
	return nil
}

func (s *amqpSession) Subscribe() (<-chan Event, error) {
	deliveries, err := s.ch.Consume(s.queue, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consuming session queue: %w", err)
	}

	out := make(chan Event)
	go forward(deliveries, out, s.done)
	return out, nil
}

// forward turns deliveries into events until deliveries is closed or done
// is, then closes out.
func forward(deliveries <-chan amqp.Delivery, out chan<- Event, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case out <- Event{Type: d.Type, Body: d.Body}:
			case <-done:
				return
			}
		}
	}
}

func (s *amqpSession) Poll() (Event, bool, error) {
	d, ok, err := s.ch.Get(s.queue, true)
	if err != nil {
		return Event{}, false, fmt.Errorf("polling session queue: %w", err)
	}
	if !ok {
		return Event{}, false, nil
	}
	return Event{Type: d.Type, Body: d.Body}, true, nil
}

func (s *amqpSession) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	chErr := s.ch.Close()
	connErr := s.conn.Close()
	if errors.Is(chErr, amqp.ErrClosed) {
		chErr = nil
	}
	if errors.Is(connErr, amqp.ErrClosed) {
		connErr = nil
	}
	return errors.Join(chErr, connErr)
}

// Broadcaster is the server side of the channel: it publishes order events
// to a group with publisher confirms, redialing when the connection dropped.
type Broadcaster struct {
	cfg    config.BrokerConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// confirmation is the broker's pending verdict on one publishing.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

func NewBroadcaster(cfg config.BrokerConfig, logger *zap.Logger) (*Broadcaster, error) {
	b := &Broadcaster{cfg: cfg, logger: logger}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broadcaster) connect() error {
	conn, err := rabbitmq.Dial(b.cfg)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("enabling publisher confirms: %w", err)
	}

	if err := rabbitmq.DeclareExchange(ch, b.cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	b.conn = conn
	b.ch = ch
	return nil
}

// Publish sends order to group as an order-received event and waits for the
// broker to confirm that publishing. Each call waits on its own delivery tag,
// so an abandoned wait never answers for a later publish.
func (b *Broadcaster) Publish(ctx context.Context, group string, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}

	b.mu.Lock()
	if b.conn == nil || b.conn.IsClosed() || b.ch.IsClosed() {
		b.logger.Warn("broker connection closed, redialing")
		if err := b.connect(); err != nil {
			b.mu.Unlock()
			return err
		}
	}

	dc, err := b.ch.PublishWithDeferredConfirmWithContext(ctx, b.cfg.Exchange, group, false, false, amqp.Publishing{
		DeliveryMode: amqp.Transient,
		ContentType:  "application/json",
		Type:         EventOrderReceived,
		MessageId:    order.OrderNumber,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publishing order: %w", err)
	}

	return awaitConfirm(ctx, dc)
}

func awaitConfirm(ctx context.Context, c confirmation) error {
	acked, err := c.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for publish confirm: %w", err)
	}
	if !acked {
		return errors.New("publish NACK from broker")
	}
	return nil
}

func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}
