// Package server manages the optional embedded PostgreSQL instance used
// when the test suite cannot rely on an externally managed server.
package server

import (
	"context"
	"fmt"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/veiloq/pgtestkit/config"
	"github.com/veiloq/pgtestkit/connection"
	"github.com/veiloq/pgtestkit/internal/cleanup"
	"go.uber.org/zap"
)

// AssignRandomPort fills in cfg.Port with a free TCP port when it is 0.
// It modifies the provided config pointer directly.
func AssignRandomPort(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Port == 0 {
		freePort, err := connection.FreePort(cfg.Host)
		if err != nil {
			return fmt.Errorf("failed to get free port: %w", err)
		}
		cfg.Port = uint32(freePort)
		logger.Info("assigned random free port", zap.Uint32("port", cfg.Port))
	}
	return nil
}

// Start initializes and starts an embedded PostgreSQL instance described by
// cfg, storing runtime data under instanceWorkDir.
func Start(ctx context.Context, cfg config.Config, instanceWorkDir string, logger *zap.Logger) (*embeddedpostgres.EmbeddedPostgres, error) {
	embeddedConfig := embeddedpostgres.DefaultConfig().
		Version(embeddedpostgres.PostgresVersion(cfg.Version)).
		Port(cfg.Port).
		Database(cfg.Database).
		Username(cfg.Username).
		Password(cfg.Password).
		RuntimePath(instanceWorkDir).
		BinariesPath(cfg.BinariesPath).
		StartTimeout(cfg.StartTimeout)

	if cfg.RawLog != nil {
		embeddedConfig = embeddedConfig.Logger(cfg.RawLog)
	} else {
		embeddedConfig = embeddedConfig.Logger(nil)
	}

	if len(cfg.StartupParams) > 0 {
		// The embedded-postgres library has limited support for arbitrary
		// startup flags; some parameters may not take effect.
		logger.Warn("startup params may have limitations with the embedded server",
			zap.Any("params", cfg.StartupParams))
	}

	embedded := embeddedpostgres.NewDatabase(embeddedConfig)
	logger.Info("starting embedded postgres server",
		zap.Uint32("port", cfg.Port), zap.String("version", string(cfg.Version)))

	if err := embedded.Start(); err != nil {
		return nil, fmt.Errorf("failed to start embedded postgres: %w", err)
	}

	logger.Info("embedded postgres server started")
	return embedded, nil
}

// StopFunc returns a cleanup function that stops the embedded server. It
// takes a pointer-to-a-pointer so the original variable is nilled after a
// successful stop, making a second invocation a no-op.
func StopFunc(embeddedPtr **embeddedpostgres.EmbeddedPostgres, logger *zap.Logger) cleanup.Func {
	return func() error {
		embedded := *embeddedPtr
		if embedded == nil {
			logger.Debug("embedded postgres server already stopped or never started")
			return nil
		}
		logger.Debug("stopping embedded postgres server")
		if err := embedded.Stop(); err != nil {
			logger.Error("error stopping embedded postgres server", zap.Error(err))
			return fmt.Errorf("error stopping embedded postgres: %w", err)
		}
		*embeddedPtr = nil
		logger.Debug("embedded postgres server stopped")
		return nil
	}
}
