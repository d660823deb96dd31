package handler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/metrics"
)

type session struct {
	mu       sync.Mutex // held for the whole of one request
	cart     *domain.Cart
	lastSeen time.Time
}

// SessionRegistry holds one cart per customer. Requests of the same customer
// are serialised on the session's mutex; idle sessions are dropped by Sweep.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[int64]*session
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewSessionRegistry(ttl time.Duration, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[int64]*session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// WithCart runs fn with exclusive access to the customer's cart, creating the
// session on first use.
func (r *SessionRegistry) WithCart(customerID int64, fn func(cart *domain.Cart) error) error {
	s := r.acquire(customerID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.cart)
}

func (r *SessionRegistry) acquire(customerID int64) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[customerID]
	if !ok {
		s = &session{cart: domain.NewCart()}
		r.sessions[customerID] = s
		metrics.SetActiveSessions(len(r.sessions))
	}
	s.lastSeen = r.now()
	return s
}

// End drops the customer's session and its cart.
func (r *SessionRegistry) End(customerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, customerID)
	metrics.SetActiveSessions(len(r.sessions))
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were dropped. A session in the middle of a request is left alone.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	dropped := 0
	for id, s := range r.sessions {
		if !s.lastSeen.Before(cutoff) || !s.mu.TryLock() {
			continue
		}
		delete(r.sessions, id)
		s.mu.Unlock()
		dropped++
	}
	if dropped > 0 {
		metrics.SetActiveSessions(len(r.sessions))
		r.logger.Info("expired sessions dropped", zap.Int("dropped", dropped), zap.Int("active", len(r.sessions)))
	}
	return dropped
}

// StartSweeper runs Sweep every interval until Stop is called.
func (r *SessionRegistry) StartSweeper(interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit. Safe to call more than once.
func (r *SessionRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}
