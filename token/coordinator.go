package token

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// RefreshFunc performs one refresh round-trip against the identity service
// and returns the replacement credential pair.
type RefreshFunc func() (CredentialPair, error)

// Coordinator guarantees at most one outstanding refresh at any time.
//
// The first caller to arrive while no refresh is in flight becomes the leader
// and executes the RefreshFunc. Callers arriving while the leader is running
// are queued in arrival order and settle with the leader's outcome without
// issuing a refresh of their own. All callers of one flight receive the
// identical result: the same new pair, or the same error.
type Coordinator struct {
	log      zerolog.Logger
	onWait   func()
	mu       sync.Mutex
	inflight bool
	waiters  []chan settlement
}

type settlement struct {
	pair CredentialPair
	err  error
}

// CoordinatorOption modifies a Coordinator instance.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger sets the logger used for flight events.
func WithCoordinatorLogger(log zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithWaitHook registers a callback invoked each time a caller is queued
// behind an in-flight refresh. Used for metrics.
func WithWaitHook(hook func()) CoordinatorOption {
	return func(c *Coordinator) {
		c.onWait = hook
	}
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		log: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Do runs fn single-flight. The leader executes fn to completion; every other
// caller queued during the flight shares its outcome. Waiters settle in
// arrival order. A waiter whose context is cancelled stops waiting, but the
// flight itself always runs to completion.
func (c *Coordinator) Do(ctx context.Context, fn RefreshFunc) (CredentialPair, error) {
	c.mu.Lock()
	if c.inflight {
		ch := make(chan settlement, 1)
		c.waiters = append(c.waiters, ch)
		waiting := len(c.waiters)
		c.mu.Unlock()

		if c.onWait != nil {
			c.onWait()
		}
		c.log.Debug().Int("queued", waiting).Msg("refresh in flight, caller queued")

		select {
		case s := <-ch:
			return s.pair, s.err
		case <-ctx.Done():
			return CredentialPair{}, ctx.Err()
		}
	}
	c.inflight = true
	c.mu.Unlock()

	pair, err := fn()

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inflight = false
	c.mu.Unlock()

	s := settlement{pair: pair, err: err}
	for _, ch := range waiters {
		ch <- s
	}
	if err != nil {
		c.log.Debug().Err(err).Int("settled", len(waiters)+1).Msg("refresh flight failed")
	} else {
		c.log.Debug().Int("settled", len(waiters)+1).Msg("refresh flight settled")
	}
	return pair, err
}

// InFlight reports whether a refresh is currently outstanding.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

// Waiting returns the number of callers queued behind the current flight.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
