package ldapguard

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// holder owns exactly one live connection handle and applies the idle
// policy. All access is serialized by a single mutex: the timestamp
// check, teardown, redial and timestamp update form one critical
// section, so two callers can never both observe a stale handle and
// both redial, and no caller sees a handle mid-replacement.
//
// A nil conn is the authoritative "no live connection" marker. The
// handle's own internal state is not consulted: closing an *ldap.Conn
// does not necessarily move it to a terminal state.
type holder struct {
	factory     Factory
	idleTimeout time.Duration
	idleRefresh bool
	logger      zerolog.Logger
	metrics     Collector

	// now is the clock; replaced in tests.
	now func() time.Time

	mu         sync.Mutex
	conn       Conn
	lastAccess time.Time
}

// newHolder eagerly establishes the first handle. Establishment is also
// credential verification, so a bad bind DN or unreachable server
// fails construction instead of the first operation.
func newHolder(factory Factory, idleTimeout time.Duration, idleRefresh bool, logger zerolog.Logger, metrics Collector) (*holder, error) {
	h := &holder{
		factory:     factory,
		idleTimeout: idleTimeout,
		idleRefresh: idleRefresh,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}

	conn, err := factory.New()
	if err != nil {
		return nil, err
	}
	h.conn = conn
	h.lastAccess = h.now()
	h.metrics.ConnEstablished()

	return h, nil
}

// get returns a usable handle, replacing or rejecting an idle-expired
// one according to the refresh policy. Idleness is measured lazily,
// only here; there is no background timer. lastAccess moves only on
// paths that hand back a usable handle.
func (h *holder) get() (Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	idleAge := now.Sub(h.lastAccess)

	if h.conn != nil && idleAge < h.idleTimeout {
		h.lastAccess = now
		h.metrics.ConnReused()
		return h.conn, nil
	}

	if h.conn != nil {
		// Idle budget exceeded. Ownership is released before teardown
		// so a close failure cannot leave a retained-but-unusable
		// handle; the error is logged and the policy below still runs,
		// because the stale handle is gone either way.
		conn := h.conn
		h.conn = nil
		if err := conn.Close(); err != nil {
			h.metrics.TeardownFailed()
			h.logger.Warn().
				Err(&TeardownError{cause: err}).
				Dur("idle_age", idleAge).
				Msg("failed to close idle connection")
		}

		if !h.idleRefresh {
			h.metrics.StaleRejected()
			h.logger.Debug().
				Dur("idle_age", idleAge).
				Dur("idle_timeout", h.idleTimeout).
				Msg("connection idle budget exceeded, rejecting")
			return nil, &StaleError{IdleAge: idleAge}
		}
	}

	// No handle owned: either the idle one was just torn down under
	// the refresh policy, or Close/a stale rejection already cleared
	// it. Absence always forces a fresh establishment.
	conn, err := h.factory.New()
	if err != nil {
		return nil, err
	}
	h.conn = conn
	h.lastAccess = now
	h.metrics.ConnRefreshed()
	h.logger.Debug().
		Dur("idle_age", idleAge).
		Msg("ldap connection re-established")

	return conn, nil
}

// close tears down the owned handle, if any. Idempotent: once the
// handle is gone, further calls are no-ops. A teardown failure still
// releases ownership before it is reported.
func (h *holder) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn == nil {
		return nil
	}

	conn := h.conn
	h.conn = nil
	if err := conn.Close(); err != nil {
		h.metrics.TeardownFailed()
		return &TeardownError{cause: err}
	}
	return nil
}
