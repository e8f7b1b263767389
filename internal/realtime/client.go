package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"comanda/internal/domain"
)

const EventOrderReceived = "order-received"

var errConnectionLost = errors.New("connection lost")

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Status is what the operator sees about the channel.
type Status struct {
	State   State     `json:"-"`
	Label   string    `json:"state"`
	Polling bool      `json:"polling"`
	Groups  []string  `json:"groups"`
	Since   time.Time `json:"since"`
}

type Event struct {
	Type string
	Body []byte
}

// Transport opens one session to the notification server.
type Transport interface {
	Dial(ctx context.Context) (Session, error)
}

// Session is a single connection. Subscribe is the preferred push delivery;
// Poll is the fallback used when a push subscription cannot be opened.
// The Subscribe channel is closed when the connection drops.
type Session interface {
	Join(group string) error
	Subscribe() (<-chan Event, error)
	Poll() (Event, bool, error)
	Close() error
}

type OrderHandler func(order domain.Order)

type StateHandler func(status Status)

type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PollInterval   time.Duration
}

type handlerEntry struct {
	id uint64
	fn OrderHandler
}

type stateEntry struct {
	id uint64
	fn StateHandler
}

type Client struct {
	transport Transport
	logger    *zap.Logger
	opts      Options
	now       func() time.Time

	mu             sync.Mutex
	started        bool
	cancel         context.CancelFunc
	done           chan struct{}
	session        Session
	groups         []string
	status         Status
	handlers       []handlerEntry
	stateListeners []stateEntry
	nextID         uint64
}

func NewClient(transport Transport, opts Options, logger *zap.Logger) *Client {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Client{
		transport: transport,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		status:    Status{State: StateDisconnected, Label: StateDisconnected.String()},
	}
}

// Connect starts the connection supervisor. Calling it again while the
// client is running does nothing.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)
}

// Close stops the supervisor and waits for it to release the session.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.started = false
	c.mu.Unlock()

	cancel()
	<-done
}

// JoinGroup records name and, when a session is up, binds it immediately.
// Every recorded group is joined again after each reconnect.
func (c *Client) JoinGroup(name string) error {
	if name == "" {
		return errors.New("group name is required")
	}

	c.mu.Lock()
	known := false
	for _, g := range c.groups {
		if g == name {
			known = true
			break
		}
	}
	if !known {
		c.groups = append(c.groups, name)
		c.status.Groups = append([]string(nil), c.groups...)
	}
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		c.logger.Debug("group recorded, join deferred until connected", zap.String("group", name))
		return nil
	}
	if err := sess.Join(name); err != nil {
		return err
	}
	c.logger.Info("joined group", zap.String("group", name))
	return nil
}

// OnOrderReceived registers handler; the returned function removes it.
// Handlers run on the delivery goroutine, one event at a time, in arrival
// order.
func (c *Client) OnOrderReceived(handler OrderHandler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: handler})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, h := range c.handlers {
				if h.id == id {
					c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Client) HandlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

func (c *Client) OnStateChange(handler StateHandler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.stateListeners = append(c.stateListeners, stateEntry{id: id, fn: handler})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, l := range c.stateListeners {
				if l.id == id {
					c.stateListeners = append(c.stateListeners[:i], c.stateListeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.Groups = append([]string(nil), c.status.Groups...)
	return s
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setState(StateDisconnected, false)

	backoff := c.opts.InitialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting, false)
		sess, err := c.transport.Dial(ctx)
		if err != nil {
			c.logger.Warn("connecting to notification server failed", zap.Error(err), zap.Duration("retryIn", backoff))
			c.setState(StateDisconnected, false)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.opts.MaxBackoff)
			continue
		}

		if err := c.attach(sess); err != nil {
			c.logger.Warn("joining groups failed", zap.Error(err), zap.Duration("retryIn", backoff))
			c.detach(sess)
			c.setState(StateDisconnected, false)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.opts.MaxBackoff)
			continue
		}
		backoff = c.opts.InitialBackoff

		err = c.consume(ctx, sess)
		c.detach(sess)
		if ctx.Err() != nil {
			return
		}

		c.setState(StateDisconnected, false)
		c.logger.Warn("notification channel lost, reconnecting", zap.Error(err), zap.Duration("retryIn", backoff))
		if !sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, c.opts.MaxBackoff)
	}
}

// attach publishes sess and re-sends every recorded join on it.
func (c *Client) attach(sess Session) error {
	c.mu.Lock()
	c.session = sess
	groups := append([]string(nil), c.groups...)
	c.mu.Unlock()

	for _, g := range groups {
		if err := sess.Join(g); err != nil {
			return err
		}
		c.logger.Info("joined group", zap.String("group", g))
	}
	return nil
}

func (c *Client) detach(sess Session) {
	c.mu.Lock()
	if c.session == sess {
		c.session = nil
	}
	c.mu.Unlock()

	if err := sess.Close(); err != nil {
		c.logger.Debug("closing session", zap.Error(err))
	}
}

func (c *Client) consume(ctx context.Context, sess Session) error {
	events, err := sess.Subscribe()
	if err != nil {
		c.logger.Warn("push subscription unavailable, falling back to polling", zap.Error(err))
		return c.poll(ctx, sess)
	}

	c.setState(StateConnected, false)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errConnectionLost
			}
			c.dispatch(ev)
		}
	}
}

func (c *Client) poll(ctx context.Context, sess Session) error {
	c.setState(StateConnected, true)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := c.drain(sess); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Client) drain(sess Session) error {
	for {
		ev, ok, err := sess.Poll()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev Event) {
	if ev.Type != EventOrderReceived {
		c.logger.Debug("ignoring event", zap.String("type", ev.Type))
		return
	}

	var order domain.Order
	if err := json.Unmarshal(ev.Body, &order); err != nil {
		c.logger.Warn("dropping malformed order event", zap.Error(err))
		return
	}

	c.mu.Lock()
	handlers := make([]OrderHandler, len(c.handlers))
	for i, h := range c.handlers {
		handlers[i] = h.fn
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(order)
	}
}

func (c *Client) setState(state State, polling bool) {
	c.mu.Lock()
	if c.status.State == state && c.status.Polling == polling {
		c.mu.Unlock()
		return
	}
	c.status.State = state
	c.status.Label = state.String()
	c.status.Polling = polling
	c.status.Since = c.now()
	snapshot := c.status
	snapshot.Groups = append([]string(nil), c.status.Groups...)
	listeners := make([]StateHandler, len(c.stateListeners))
	for i, l := range c.stateListeners {
		listeners[i] = l.fn
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
