package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager handles graceful shutdown coordination
type Manager struct {
	logger         *logrus.Logger
	shutdownChan   chan os.Signal
	handlers       []ShutdownHandler
	timeout        time.Duration
	mu             sync.Mutex
	isShuttingDown bool
}

// ShutdownHandler is a function that performs cleanup during shutdown
type ShutdownHandler func(ctx context.Context) error

// NewManager creates a new shutdown manager
func NewManager(timeout time.Duration, logger *logrus.Logger) *Manager {
	return &Manager{
		logger:       logger,
		shutdownChan: make(chan os.Signal, 1),
		handlers:     make([]ShutdownHandler, 0),
		timeout:      timeout,
	}
}

// RegisterHandler adds a shutdown handler to be called during shutdown
func (m *Manager) RegisterHandler(name string, handler ShutdownHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wrappedHandler := func(ctx context.Context) error {
		m.logger.WithField("handler", name).Info("Executing shutdown handler")
		start := time.Now()

		err := handler(ctx)

		duration := time.Since(start)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"handler":  name,
				"duration": duration.Seconds(),
				"error":    err.Error(),
			}).Error("Shutdown handler failed")
			return err
		}

		m.logger.WithFields(logrus.Fields{
			"handler":  name,
			"duration": duration.Seconds(),
		}).Info("Shutdown handler completed")
		return nil
	}

	m.handlers = append(m.handlers, wrappedHandler)
}

// WaitForShutdown blocks until a shutdown signal is received
func (m *Manager) WaitForShutdown() {
	m.WaitForShutdownOr(nil)
}

// WaitForShutdownOr blocks until a shutdown signal is received or done is
// closed, then runs the registered handlers. It returns the signal name,
// or "done" when the wait ended without one.
func (m *Manager) WaitForShutdownOr(done <-chan struct{}) string {
	signal.Notify(m.shutdownChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(m.shutdownChan)

	reason := "done"
	select {
	case sig := <-m.shutdownChan:
		reason = sig.String()
		m.logger.WithFields(logrus.Fields{
			"signal": reason,
		}).Warn("Shutdown signal received")
	case <-done:
	}

	m.Shutdown()
	return reason
}

// Shutdown executes all registered shutdown handlers
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.isShuttingDown {
		m.mu.Unlock()
		return
	}
	m.isShuttingDown = true
	m.mu.Unlock()

	m.logger.Info("Starting graceful shutdown")
	start := time.Now()

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	handlers := append([]ShutdownHandler(nil), m.handlers...)
	m.mu.Unlock()

	// Execute all handlers
	var wg sync.WaitGroup
	errors := make([]error, 0)
	errorsMu := sync.Mutex{}

	for _, handler := range handlers {
		wg.Add(1)
		go func(h ShutdownHandler) {
			defer wg.Done()

			if err := h(ctx); err != nil {
				errorsMu.Lock()
				errors = append(errors, err)
				errorsMu.Unlock()
			}
		}(handler)
	}

	// Wait for all handlers to complete or timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		duration := time.Since(start)
		if len(errors) > 0 {
			m.logger.WithFields(logrus.Fields{
				"duration": duration.Seconds(),
				"errors":   len(errors),
			}).Warn("Shutdown completed with errors")
		} else {
			m.logger.WithFields(logrus.Fields{
				"duration": duration.Seconds(),
			}).Info("Shutdown completed successfully")
		}
	case <-ctx.Done():
		m.logger.WithFields(logrus.Fields{
			"timeout": m.timeout.Seconds(),
		}).Error("Shutdown timeout exceeded")
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isShuttingDown
}

// TriggerShutdown manually triggers a shutdown (for testing or programmatic shutdown)
func (m *Manager) TriggerShutdown() {
	m.shutdownChan <- syscall.SIGTERM
}
