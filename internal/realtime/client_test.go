package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/domain"
)

type fakeSession struct {
	mu           sync.Mutex
	joined       []string
	events       chan Event
	dropOnce     sync.Once
	subscribeErr error
	polled       []Event
	closed       bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan Event, 16)}
}

func (s *fakeSession) Join(group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined = append(s.joined, group)
	return nil
}

func (s *fakeSession) Subscribe() (<-chan Event, error) {
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	return s.events, nil
}

func (s *fakeSession) Poll() (Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Event{}, false, errors.New("closed")
	}
	if len(s.polled) == 0 {
		return Event{}, false, nil
	}
	ev := s.polled[0]
	s.polled = s.polled[1:]
	return ev, true, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.drop()
	return nil
}

func (s *fakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) drop() {
	s.dropOnce.Do(func() { close(s.events) })
}

func (s *fakeSession) Joined() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.joined...)
}

type fakeTransport struct {
	mu        sync.Mutex
	sessions  []*fakeSession
	failFirst int
	dials     int
	prepare   func(*fakeSession)
}

func (t *fakeTransport) Dial(ctx context.Context) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.dials <= t.failFirst {
		return nil, errors.New("connection refused")
	}
	s := newFakeSession()
	if t.prepare != nil {
		t.prepare(s)
	}
	t.sessions = append(t.sessions, s)
	return s, nil
}

func (t *fakeTransport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) Session(i int) *fakeSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.sessions) {
		return nil
	}
	return t.sessions[i]
}

func orderEvent(t *testing.T, number string) Event {
	body, err := json.Marshal(domain.Order{
		OrderNumber: number,
		WaiterName:  "Alice",
		Destination: domain.DestinationKitchen,
		Items:       []domain.OrderLine{{FoodID: 1, Name: "Pizza", Quantity: 2, OrderType: domain.OrderTypeDineIn}},
	})
	require.NoError(t, err)
	return Event{Type: EventOrderReceived, Body: body}
}

func newTestClient(transport Transport) *Client {
	return NewClient(transport, Options{
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}, zap.NewNop())
}

type recorder struct {
	mu     sync.Mutex
	orders []string
}

func (r *recorder) handle(o domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o.OrderNumber)
}

func (r *recorder) Orders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.orders...)
}

func TestClient_JoinsAndDeliversInOrder(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)
	rec := &recorder{}
	client.OnOrderReceived(rec.handle)

	require.NoError(t, client.JoinGroup("admin"))
	client.Connect(context.Background())
	defer client.Close()

	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)
	sess := transport.Session(0)
	assert.Equal(t, []string{"admin"}, sess.Joined())

	for _, n := range []string{"1", "2", "3", "4"} {
		sess.events <- orderEvent(t, n)
	}

	require.Eventually(t, func() bool { return len(rec.Orders()) == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3", "4"}, rec.Orders())
}

func TestClient_RejoinsAfterReconnect(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)
	rec := &recorder{}
	client.OnOrderReceived(rec.handle)

	client.Connect(context.Background())
	defer client.Close()
	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)

	require.NoError(t, client.JoinGroup("admin"))
	assert.Equal(t, []string{"admin"}, transport.Session(0).Joined())

	transport.Session(0).drop()

	require.Eventually(t, func() bool {
		s := transport.Session(1)
		return s != nil && len(s.Joined()) == 1 && client.Status().State == StateConnected
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"admin"}, transport.Session(1).Joined())

	transport.Session(1).events <- orderEvent(t, "after-reconnect")
	require.Eventually(t, func() bool { return len(rec.Orders()) == 1 }, time.Second, time.Millisecond)
}

func TestClient_JoinGroupIsNotDuplicated(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)

	require.NoError(t, client.JoinGroup("admin"))
	require.NoError(t, client.JoinGroup("admin"))
	assert.Equal(t, []string{"admin"}, client.Status().Groups)

	assert.Error(t, client.JoinGroup(""))
}

func TestClient_UnsubscribeIsSymmetric(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)
	first := &recorder{}
	second := &recorder{}

	unsubscribe := client.OnOrderReceived(first.handle)
	client.OnOrderReceived(second.handle)
	assert.Equal(t, 2, client.HandlerCount())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, client.HandlerCount())

	client.Connect(context.Background())
	defer client.Close()
	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)

	transport.Session(0).events <- orderEvent(t, "42")
	require.Eventually(t, func() bool { return len(second.Orders()) == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, first.Orders())
}

func TestClient_DropsMalformedAndForeignEvents(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)
	rec := &recorder{}
	client.OnOrderReceived(rec.handle)

	client.Connect(context.Background())
	defer client.Close()
	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)

	sess := transport.Session(0)
	sess.events <- Event{Type: EventOrderReceived, Body: []byte("{not json")}
	sess.events <- Event{Type: "user-updated", Body: []byte("{}")}
	sess.events <- orderEvent(t, "ok")

	require.Eventually(t, func() bool { return len(rec.Orders()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"ok"}, rec.Orders())
	assert.Equal(t, 1, transport.Dials())
}

func TestClient_FallsBackToPolling(t *testing.T) {
	transport := &fakeTransport{
		prepare: func(s *fakeSession) {
			s.subscribeErr = errors.New("consume not permitted")
		},
	}
	client := newTestClient(transport)
	rec := &recorder{}
	client.OnOrderReceived(rec.handle)
	require.NoError(t, client.JoinGroup("admin"))

	client.Connect(context.Background())
	defer client.Close()
	require.Eventually(t, func() bool { return transport.Session(0) != nil }, time.Second, time.Millisecond)

	sess := transport.Session(0)
	sess.mu.Lock()
	sess.polled = append(sess.polled, orderEvent(t, "p1"), orderEvent(t, "p2"))
	sess.mu.Unlock()

	require.Eventually(t, func() bool { return len(rec.Orders()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"p1", "p2"}, rec.Orders())

	status := client.Status()
	assert.Equal(t, StateConnected, status.State)
	assert.True(t, status.Polling)
}

func TestClient_RetriesFailedDials(t *testing.T) {
	transport := &fakeTransport{failFirst: 2}
	client := newTestClient(transport)

	client.Connect(context.Background())
	defer client.Close()

	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)
	assert.Equal(t, 3, transport.Dials())
}

func TestClient_ConnectIsIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)

	client.Connect(context.Background())
	client.Connect(context.Background())
	defer client.Close()

	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, transport.Dials())
}

func TestClient_StateChangesAreSurfaced(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport)

	var mu sync.Mutex
	var states []State
	client.OnStateChange(func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	client.Connect(context.Background())
	require.Eventually(t, func() bool { return client.Status().State == StateConnected }, time.Second, time.Millisecond)
	client.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, states)
	assert.True(t, transport.Session(0).Closed())
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(20*time.Second, 30*time.Second))
}
