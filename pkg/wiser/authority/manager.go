// Package authority manages the server-held key that signs and pays for
// vault withdrawals and vault initialization.
package authority

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/solana"
)

const (
	metricsStructName = "authority.manager"

	defaultLoadTimeout = 15 * time.Second

	loadKey = "authority"
)

var (
	// ErrAuthorityNotInitialized is returned when signing is attempted before
	// the authority key has been loaded.
	ErrAuthorityNotInitialized = errors.New("authority keypair not initialized")
)

// State is the lifecycle state of the authority key.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Manager holds the authority signing key. The key is loaded at most once
// concurrently; callers racing on the first load share its result. A failed
// load leaves the manager in StateFailed, and a later lazy call retries it.
//
// The private key never leaves the manager.
type Manager struct {
	log         *logrus.Entry
	source      Source
	loadTimeout time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	state   State
	key     ed25519.PrivateKey
	lastErr error
}

// NewManager returns a Manager that loads its key from source.
func NewManager(source Source) *Manager {
	return &Manager{
		log:         logrus.StandardLogger().WithField("type", "wiser/authority"),
		source:      source,
		loadTimeout: defaultLoadTimeout,
	}
}

// Init eagerly loads the authority key, returning the load error if any.
func (m *Manager) Init(ctx context.Context) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Init")
	defer tracer.End()

	_, err := m.load(ctx)
	tracer.OnError(err)
	return err
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the error from the most recent failed load.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// PublicKey returns the authority public key if loaded, without triggering
// a load.
func (m *Manager) PublicKey() ed25519.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateReady {
		return nil
	}
	return m.key.Public().(ed25519.PublicKey)
}

// GetPublicKey returns the authority public key, loading it if needed. It
// returns nil if the key could not be loaded.
func (m *Manager) GetPublicKey(ctx context.Context) ed25519.PublicKey {
	key, err := m.load(ctx)
	if err != nil {
		return nil
	}
	return key.Public().(ed25519.PublicKey)
}

// SignTransaction sets the authority as fee payer and signs the transaction.
// Setting the fee payer discards any signatures already present.
func (m *Manager) SignTransaction(ctx context.Context, txn *solana.Transaction) error {
	key, err := m.readyKey()
	if err != nil {
		return err
	}

	txn.SetFeePayer(key.Public().(ed25519.PublicKey))
	if err := txn.Sign(key); err != nil {
		return errors.Wrap(err, "error signing transaction with authority")
	}
	return nil
}

// SignAllTransactions signs each transaction in order, stopping at the first
// failure.
func (m *Manager) SignAllTransactions(ctx context.Context, txns []*solana.Transaction) error {
	for i, txn := range txns {
		if err := m.SignTransaction(ctx, txn); err != nil {
			return errors.Wrapf(err, "error signing transaction %d", i)
		}
	}
	return nil
}

func (m *Manager) readyKey() (ed25519.PrivateKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateReady {
		return nil, ErrAuthorityNotInitialized
	}
	return m.key, nil
}

func (m *Manager) load(ctx context.Context) (ed25519.PrivateKey, error) {
	if key, err := m.readyKey(); err == nil {
		return key, nil
	}

	ch := m.group.DoChan(loadKey, func() (interface{}, error) {
		// Another caller may have finished loading between the check above
		// and joining the group.
		if key, err := m.readyKey(); err == nil {
			return key, nil
		}

		m.setState(StateLoading, nil, nil)

		// Shared by all waiters; detached from the initiating caller.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loadTimeout)
		defer cancel()

		key, err := m.source.Load(loadCtx)
		if err != nil {
			m.log.WithError(err).Warn("failed to load authority key")
			m.setState(StateFailed, nil, err)
			return nil, errors.Wrap(err, "error loading authority key")
		}

		m.setState(StateReady, key, nil)
		m.log.WithField("authority", base58.Encode(key.Public().(ed25519.PublicKey))).Info("authority key loaded")
		return key, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ed25519.PrivateKey), nil
	}
}

func (m *Manager) setState(state State, key ed25519.PrivateKey, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state
	if key != nil {
		m.key = key
	}
	m.lastErr = err
}
