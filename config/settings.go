package config

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veiloq/pgtestkit/seed"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Settings holds configuration applied via functional options.
type Settings struct {
	seedAdapters   []seed.Adapter    // Seed adapters applied once, in order, after provisioning
	embeddedServer bool              // Start a dedicated embedded server instead of using Host:Port
	keepDatabase   bool              // Explicitly keep the ephemeral database via option
	namePrefix     string            // Prefix for generated database names
	extensions     []string          // Extensions installed into the ephemeral database before seeding
	dsnParams      map[string]string // Additional DSN parameters
	startupParams  map[string]string // Additional server startup parameters (embedded mode only)
	txOptions      *pgx.TxOptions    // Transaction options for the isolation boundary
	zapOptions     []zap.Option      // Options for zap logger creation (e.g., zap.AddCaller(false))
	zapTestLevel   *zap.AtomicLevel  // Specific level for the zaptest logger
	afterConnect   func(ctx context.Context, db *sql.DB, pool *pgxpool.Pool, logger *zap.Logger) error
}

// --- Getters ---

func (sts *Settings) SeedAdapters() []seed.Adapter {
	return sts.seedAdapters
}

func (sts *Settings) EmbeddedServer() bool {
	return sts.embeddedServer
}

func (sts *Settings) NamePrefix() string {
	return sts.namePrefix
}

func (sts *Settings) Extensions() []string {
	return sts.extensions
}

func (sts *Settings) ZapTestLevel() *zap.AtomicLevel {
	return sts.zapTestLevel
}

func (sts *Settings) ZapOptions() []zap.Option {
	return sts.zapOptions
}

func (sts *Settings) AfterConnectHook() func(ctx context.Context, db *sql.DB, pool *pgxpool.Pool, logger *zap.Logger) error {
	return sts.afterConnect
}

// Option defines a function type for configuring the test kit.
type Option func(*Settings)

// WithSeed appends seed adapters to be applied, in order, to the freshly
// provisioned database. Seeding runs exactly once, before any isolation
// boundary is opened.
func WithSeed(adapters ...seed.Adapter) Option {
	return func(sts *Settings) { sts.seedAdapters = append(sts.seedAdapters, adapters...) }
}

// WithEmbeddedServer starts a dedicated embedded PostgreSQL instance for
// this kit instead of connecting to the server described by the Config.
func WithEmbeddedServer() Option {
	return func(sts *Settings) { sts.embeddedServer = true }
}

// WithKeepDatabase prevents the ephemeral database from being dropped during teardown.
func WithKeepDatabase() Option {
	return func(sts *Settings) { sts.keepDatabase = true }
}

// WithNamePrefix overrides the prefix used for generated database names.
func WithNamePrefix(prefix string) Option {
	return func(sts *Settings) { sts.namePrefix = prefix }
}

// WithExtensions installs the named extensions into the ephemeral database
// before any seed adapter runs.
func WithExtensions(names ...string) Option {
	return func(sts *Settings) { sts.extensions = append(sts.extensions, names...) }
}

// WithTxOptions provides custom transaction options for the isolation boundary.
func WithTxOptions(txOpts pgx.TxOptions) Option {
	return func(sts *Settings) { sts.txOptions = &txOpts }
}

// WithDSNParams provides additional parameters to be appended to the DSN.
func WithDSNParams(params map[string]string) Option {
	return func(sts *Settings) {
		if sts.dsnParams == nil {
			sts.dsnParams = make(map[string]string)
		}
		for k, v := range params {
			sts.dsnParams[k] = v
		}
	}
}

// WithStartupParams provides additional parameters for the embedded server startup.
func WithStartupParams(params map[string]string) Option {
	return func(sts *Settings) {
		if sts.startupParams == nil {
			sts.startupParams = make(map[string]string)
		}
		for k, v := range params {
			sts.startupParams[k] = v
		}
	}
}

// WithZapOptions provides additional options for the zap logger.
func WithZapOptions(zapOpts ...zap.Option) Option {
	return func(sts *Settings) { sts.zapOptions = append(sts.zapOptions, zapOpts...) }
}

// WithZapTestLevel sets the minimum log level specifically for the zaptest logger.
func WithZapTestLevel(level zapcore.Level) Option {
	return func(sts *Settings) {
		atomicLevel := zap.NewAtomicLevelAt(level)
		sts.zapTestLevel = &atomicLevel
	}
}

// WithAfterConnectHook registers a function to run after database connections
// (sql.DB, pgxpool.Pool) are established but before seeding.
func WithAfterConnectHook(hook func(ctx context.Context, db *sql.DB, pool *pgxpool.Pool, logger *zap.Logger) error) Option {
	return func(sts *Settings) { sts.afterConnect = hook }
}

// ApplyOptions processes functional options and merges them into an initial
// Config. It returns the processed Settings struct and the final merged Config.
func ApplyOptions(initialConfig *Config, options ...Option) (*Settings, Config) {
	settings := &Settings{
		dsnParams:     make(map[string]string),
		startupParams: make(map[string]string),
		zapOptions:    make([]zap.Option, 0),
	}
	for _, opt := range options {
		opt(settings)
	}

	// Start with a copy of the initial config
	finalConfig := *initialConfig

	// Merge DSN params (options override config)
	mergedDSNParams := make(map[string]string)
	for k, v := range finalConfig.DSNParams {
		mergedDSNParams[k] = v
	}
	for k, v := range settings.dsnParams {
		mergedDSNParams[k] = v
	}
	finalConfig.DSNParams = mergedDSNParams

	// Merge startup params (options override config)
	mergedStartupParams := make(map[string]string)
	for k, v := range finalConfig.StartupParams {
		mergedStartupParams[k] = v
	}
	for k, v := range settings.startupParams {
		mergedStartupParams[k] = v
	}
	finalConfig.StartupParams = mergedStartupParams

	// Determine final KeepDatabase setting (config OR option enables it)
	finalConfig.KeepDatabase = finalConfig.KeepDatabase || settings.keepDatabase

	if settings.txOptions != nil {
		finalConfig.TxOptions = *settings.txOptions
	}

	return settings, finalConfig
}
