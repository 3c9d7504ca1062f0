// Package cleanup coordinates teardown: a LIFO stack of release functions
// that runs exactly once, surfacing the first error without masking the rest.
package cleanup

import (
	"sync"

	"go.uber.org/zap"
)

// Func is one teardown step. It returns an error if the step fails.
type Func func() error

// Manager manages the stack of cleanup functions.
type Manager struct {
	mu          sync.Mutex
	funcs       []Func
	err         error // First error encountered during cleanup
	logger      *zap.Logger
	cleanupOnce sync.Once
}

// NewManager creates a cleanup manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		funcs:  make([]Func, 0),
		logger: logger,
	}
}

// Add pushes a function onto the cleanup stack. Functions run in reverse
// registration order.
func (cm *Manager) Add(f Func) {
	if f == nil {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.funcs = append(cm.funcs, f)
}

// Execute runs all registered cleanup functions in LIFO order. It runs at
// most once; later calls return the stored result. The first error is
// returned, subsequent errors are logged without overwriting it.
func (cm *Manager) Execute() error {
	cm.cleanupOnce.Do(func() {
		cm.mu.Lock()
		defer cm.mu.Unlock()

		cm.logger.Debug("starting teardown")
		for i := len(cm.funcs) - 1; i >= 0; i-- {
			if err := cm.funcs[i](); err != nil {
				if cm.err == nil {
					cm.err = err
					cm.logger.Error("teardown error", zap.Error(err))
				} else {
					cm.logger.Error("additional teardown error", zap.Error(err))
				}
			}
		}
		cm.logger.Debug("teardown finished")

		// Ignore sync error as recommended by zap docs.
		_ = cm.logger.Sync()
	})
	return cm.err
}
