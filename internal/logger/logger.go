// Package logger initializes the kit's zap logger, preferring a zaptest
// logger when a *testing.T is available.
package logger

import (
	"fmt"
	"testing"

	"github.com/veiloq/pgtestkit/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Init returns a logger for the kit. With a non-nil *testing.T it builds a
// zaptest logger so output is attributed to the running test; otherwise it
// falls back to a zap development logger.
func Init(t *testing.T, settings *config.Settings) (*zap.Logger, error) {
	if t != nil {
		zaptestOpts := []zaptest.LoggerOption{}
		if settings != nil && settings.ZapTestLevel() != nil {
			zaptestOpts = append(zaptestOpts, zaptest.Level(*settings.ZapTestLevel()))
		}
		logger := zaptest.NewLogger(t, zaptestOpts...)
		if settings != nil && len(settings.ZapOptions()) > 0 {
			logger = logger.WithOptions(settings.ZapOptions()...)
		}
		return logger, nil
	}

	devConfig := zap.NewDevelopmentConfig()
	var zapOpts []zap.Option
	if settings != nil {
		zapOpts = settings.ZapOptions()
	}
	logger, err := devConfig.Build(zapOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create default zap logger: %w", err)
	}
	return logger, nil
}
