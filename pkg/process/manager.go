// Package process runs external build processes and manages the lifecycle of
// the stress process itself.
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/corestress/corestress/pkg/logger"
)

// Manager turns termination signals into shutdown handler calls
type Manager struct {
	logger            logger.Logger
	shutdownHandlers  []func()
	heartbeatFunc     func()
	heartbeatInterval time.Duration
	stop              chan struct{}
	wg                sync.WaitGroup
	mu                sync.Mutex
	running           bool
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		logger:           log,
		shutdownHandlers: make([]func(), 0),
	}
}

// RegisterShutdownHandler adds a shutdown handler. Handlers run in reverse
// registration order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// SetHeartbeat calls fn every interval while the manager runs. A zero
// interval disables the heartbeat.
func (m *Manager) SetHeartbeat(interval time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeatInterval = interval
	m.heartbeatFunc = fn
}

// Start begins listening for SIGINT, SIGTERM and SIGHUP. The shutdown
// handlers run once, on the first signal or when ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case <-ctx.Done():
			m.handleShutdown()
		case sig := <-sigChan:
			m.logger.Warn("Received signal", logger.WithField("signal", sig))
			m.handleShutdown()
		case <-stop:
		}
	}()

	m.startHeartbeat(ctx, stop)
}

// Stop stops listening without running the shutdown handlers
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
}

// IsRunning checks if the process manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.mu.Lock()
	handlers := make([]func(), len(m.shutdownHandlers))
	copy(handlers, m.shutdownHandlers)
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}

func (m *Manager) startHeartbeat(ctx context.Context, stop <-chan struct{}) {
	m.mu.Lock()
	interval, fn := m.heartbeatInterval, m.heartbeatFunc
	m.mu.Unlock()

	if interval <= 0 || fn == nil {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
