package feed

import (
	"sync"

	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/realtime"
)

// Channel is the part of the real-time client the feed needs.
type Channel interface {
	JoinGroup(name string) error
	OnOrderReceived(handler realtime.OrderHandler) func()
}

type Consumer func(orders []domain.Order)

type subscriber struct {
	id uint64
	fn Consumer
}

// Store holds the orders received during one admin session, newest first.
// Orders are keyed by order number: a redelivered order replaces the stored
// copy in place instead of appearing twice, keeping the destination the
// stored copy was last routed to.
type Store struct {
	group    string
	announce func(domain.Order)
	logger   *zap.Logger

	mu          sync.Mutex
	active      bool
	closed      bool
	orders      []domain.Order
	known       map[string]struct{}
	subscribers []subscriber
	nextID      uint64
	detach      func()
}

// NewStore creates an inactive feed for group. announce, when not nil, is
// called once for every order that is new to the feed.
func NewStore(group string, announce func(domain.Order), logger *zap.Logger) *Store {
	return &Store{
		group:    group,
		announce: announce,
		logger:   logger,
		known:    make(map[string]struct{}),
	}
}

// Activate wires the feed to ch for sessions holding the admin capability.
// Any other session leaves the feed empty and never touches the channel.
func (s *Store) Activate(session domain.Session, ch Channel) error {
	if session.Capability() != domain.CapabilityAdminView {
		s.logger.Debug("order feed stays inactive", zap.String("role", string(session.Role)))
		return nil
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	if s.closed {
		s.mu.Unlock()
		return apperrors.NewConflictError("order feed already closed")
	}
	s.active = true
	s.mu.Unlock()

	detach := ch.OnOrderReceived(func(order domain.Order) {
		s.Append(order)
	})
	if err := ch.JoinGroup(s.group); err != nil {
		detach()
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.detach = detach
	s.mu.Unlock()

	s.logger.Info("order feed active", zap.String("group", s.group), zap.String("username", session.Username))
	return nil
}

// Close removes the channel handler. The feed keeps its contents but
// accepts no further appends.
func (s *Store) Close() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.active = false
	s.closed = true
	s.subscribers = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
}

func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Append upserts order and reports whether it was new. Inactive feeds
// ignore it.
func (s *Store) Append(order domain.Order) bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}

	order = order.Clone()
	_, seen := s.known[order.OrderNumber]
	if seen {
		for i := range s.orders {
			if s.orders[i].OrderNumber == order.OrderNumber {
				order.Destination = s.orders[i].Destination
				s.orders[i] = order
				break
			}
		}
	} else {
		s.known[order.OrderNumber] = struct{}{}
		s.orders = append([]domain.Order{order}, s.orders...)
	}
	snapshot := s.snapshotLocked()
	consumers := s.consumersLocked()
	s.mu.Unlock()

	if seen {
		s.logger.Debug("duplicate order delivery collapsed", zap.String("orderNumber", order.OrderNumber))
	} else if s.announce != nil {
		s.announce(order)
	}

	for _, c := range consumers {
		c(snapshot)
	}
	return !seen
}

// Subscribe hands consumer the current feed right away and again after every
// append. The returned function unsubscribes.
func (s *Store) Subscribe(consumer Consumer) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: consumer})
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	consumer(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) Snapshot() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) Get(orderNumber string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == orderNumber {
			return o.Clone(), true
		}
	}
	return domain.Order{}, false
}

// SetDestination records where a ticket for orderNumber was routed.
func (s *Store) SetDestination(orderNumber string, dest domain.Destination) error {
	s.mu.Lock()
	found := false
	for i := range s.orders {
		if s.orders[i].OrderNumber == orderNumber {
			s.orders[i].Destination = dest
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("order " + orderNumber + " not in feed")
	}
	snapshot := s.snapshotLocked()
	consumers := s.consumersLocked()
	s.mu.Unlock()

	for _, c := range consumers {
		c(snapshot)
	}
	return nil
}

func (s *Store) snapshotLocked() []domain.Order {
	out := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

func (s *Store) consumersLocked() []Consumer {
	out := make([]Consumer, len(s.subscribers))
	for i, sub := range s.subscribers {
		out[i] = sub.fn
	}
	return out
}
