package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the connection lifecycle state owned by the Manager
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDegraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Default timeouts applied when no options are given
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultPingTimeout    = 5 * time.Second
)

// Manager owns the single persistent connection to the tool provider and
// is the only component permitted to drive its lifecycle. All methods are
// safe for concurrent use; the mutex also serializes initialization, so at
// most one connect attempt is ever in flight.
type Manager struct {
	mu             sync.Mutex
	provider       ToolProvider
	state          State
	logger         *zap.Logger
	connectTimeout time.Duration
	pingTimeout    time.Duration
}

// ManagerOption defines a functional option for Manager
type ManagerOption func(*Manager)

// WithConnectTimeout sets the per-attempt connection timeout
func WithConnectTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.connectTimeout = d
	}
}

// WithPingTimeout sets the health probe timeout
func WithPingTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.pingTimeout = d
	}
}

// NewManager creates a manager around the given provider. The connection
// is not established until the first EnsureReady call.
func NewManager(p ToolProvider, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider:       p,
		state:          StateUninitialized,
		logger:         logger,
		connectTimeout: DefaultConnectTimeout,
		pingTimeout:    DefaultPingTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// EnsureReady makes the connection usable, reconnecting if needed.
// Idempotent: when the connection is already ready and a health probe
// succeeds it returns immediately. Concurrent callers block on the mutex
// until the in-flight attempt finishes, then observe its outcome.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateClosed:
		return ErrClosed
	case StateReady:
		if m.probeLocked(ctx) {
			return nil
		}
		m.logger.Warn("health probe failed on ready connection")
		m.state = StateDegraded
	}

	return m.reconnectLocked(ctx)
}

// HealthCheck issues one cheap probe against the provider. It never
// returns an error; an unreachable provider yields false.
func (m *Manager) HealthCheck(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady {
		return false
	}
	return m.probeLocked(ctx)
}

// Reconnect tears down any existing connection and performs full
// initialization from scratch.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return ErrClosed
	}
	return m.reconnectLocked(ctx)
}

// Close terminates the connection permanently. Idempotent; the first call
// returns any close error from the provider, later calls return nil.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosed {
		return nil
	}
	m.state = StateClosed
	return m.provider.Close()
}

// Invoke proxies a tool call over the managed connection. A
// connection-classified failure transitions the manager to Degraded; the
// next EnsureReady call performs the reconnect.
func (m *Manager) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireReadyLocked(); err != nil {
		return "", err
	}

	out, err := m.provider.Invoke(ctx, name, args)
	if err != nil {
		m.observeFailureLocked("invoke", err)
		return "", err
	}
	return out, nil
}

// ListCapabilities proxies a capability listing over the managed connection
func (m *Manager) ListCapabilities(ctx context.Context) ([]Capability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireReadyLocked(); err != nil {
		return nil, err
	}

	caps, err := m.provider.ListCapabilities(ctx)
	if err != nil {
		m.observeFailureLocked("list capabilities", err)
		return nil, err
	}
	return caps, nil
}

func (m *Manager) requireReadyLocked() error {
	switch m.state {
	case StateClosed:
		return ErrClosed
	case StateReady:
		return nil
	default:
		return ErrNotConnected
	}
}

// observeFailureLocked degrades the connection on transport failures.
// Tool-level failures leave the state untouched.
func (m *Manager) observeFailureLocked(op string, err error) {
	if !IsConnectionError(err) {
		return
	}
	m.logger.Warn("connection failure observed",
		zap.String("op", op),
		zap.Error(err),
	)
	m.state = StateDegraded
}

func (m *Manager) probeLocked(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()
	return m.provider.Ping(pctx) == nil
}

func (m *Manager) reconnectLocked(ctx context.Context) error {
	// Errors during close are swallowed; the old connection is already
	// presumed unusable.
	_ = m.provider.Close()

	m.state = StateInitializing
	m.logger.Info("connecting to tool provider")

	cctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	if err := m.provider.Connect(cctx); err != nil {
		m.state = StateDegraded
		m.logger.Error("tool provider connection failed", zap.Error(err))
		return err
	}

	m.state = StateReady
	m.logger.Info("tool provider ready")
	return nil
}
