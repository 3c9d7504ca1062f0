package pgtestkit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/veiloq/pgtestkit/admin"
	"github.com/veiloq/pgtestkit/client"
	"github.com/veiloq/pgtestkit/config"
	"github.com/veiloq/pgtestkit/connection"
	"github.com/veiloq/pgtestkit/internal/cleanup"
	"github.com/veiloq/pgtestkit/internal/logger"
	"github.com/veiloq/pgtestkit/manager"
	"github.com/veiloq/pgtestkit/seed"
	"github.com/veiloq/pgtestkit/server"
)

// Base directory for embedded server runtime data.
const defaultRuntimeBasePath = ".pgtestkit"

// kit holds the state for one fixture lifecycle.
type kit struct {
	cfg      config.Config
	dbClient *client.Client
	pgClient *client.Client
	adm      *admin.Admin
	mgr      *manager.Manager
	sqlDB    *sql.DB
	pool     *pgxpool.Pool
	embedded *embeddedpostgres.EmbeddedPostgres
	dsn      string
	dbName   string
	logger   *zap.Logger
	cleanup  *cleanup.Manager
}

func (k *kit) DB() *client.Client        { return k.dbClient }
func (k *kit) PG() *client.Client        { return k.pgClient }
func (k *kit) Admin() *admin.Admin       { return k.adm }
func (k *kit) Manager() *manager.Manager { return k.mgr }
func (k *kit) SQL() *sql.DB              { return k.sqlDB }
func (k *kit) Pool() *pgxpool.Pool       { return k.pool }
func (k *kit) ConnectionString() string  { return k.dsn }
func (k *kit) DatabaseName() string      { return k.dbName }

// Teardown executes all registered cleanup functions in reverse order:
// client sessions and pools close before the database drop, and the drop
// happens before the admin session and any embedded server are released.
func (k *kit) Teardown() error {
	return k.cleanup.Execute()
}

// New provisions one ephemeral database and returns the connected Kit.
//
// The sequence is: validate config, apply options, (optionally) start an
// embedded server, open the admin session, create a uniquely named
// database, connect the pg/db clients and both pools, install requested
// extensions, apply the seed adapters exactly once, then register
// teardown. If t is non-nil, Teardown is registered with t.Cleanup and the
// logger is a zaptest logger; with a nil t the caller must defer Teardown.
func New(ctx context.Context, t *testing.T, initialConfig config.Config, opts ...config.Option) (_ Kit, err error) {
	if err := initialConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	settings, finalConfig := config.ApplyOptions(&initialConfig, opts...)

	log, err := logger.Init(t, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	k := &kit{
		cfg:     finalConfig,
		logger:  log,
		cleanup: cleanup.NewManager(log),
	}

	// If setup fails partway, unwind whatever was already registered and
	// return the original error.
	defer func() {
		if err != nil {
			if cleanupErr := k.Teardown(); cleanupErr != nil {
				log.Error("error during cleanup after setup failure", zap.Error(cleanupErr))
			}
		}
	}()

	if settings.EmbeddedServer() {
		if err = server.AssignRandomPort(&k.cfg, log); err != nil {
			return nil, fmt.Errorf("failed to assign port for embedded server: %w", err)
		}

		runtimeDirName := manager.GenerateName("runtime_")
		if err = os.MkdirAll(defaultRuntimeBasePath, 0750); err != nil {
			return nil, fmt.Errorf("failed to create base runtime directory %q: %w", defaultRuntimeBasePath, err)
		}
		var instanceWorkDir string
		instanceWorkDir, err = filepath.Abs(filepath.Join(defaultRuntimeBasePath, runtimeDirName))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve runtime directory: %w", err)
		}

		k.embedded, err = server.Start(ctx, k.cfg, instanceWorkDir, log)
		if err != nil {
			_ = os.RemoveAll(instanceWorkDir)
			return nil, fmt.Errorf("failed to start embedded server at %s: %w", instanceWorkDir, err)
		}
		// Runtime dir removal registered first so it runs last, after the
		// server has stopped.
		k.cleanup.Add(func() error {
			if err := os.RemoveAll(instanceWorkDir); err != nil {
				return fmt.Errorf("failed to remove runtime dir %q: %w", instanceWorkDir, err)
			}
			return nil
		})
		k.cleanup.Add(server.StopFunc(&k.embedded, log))
	}

	// Admin session to the administrative database on the target server.
	adminDSN := k.cfg.DSN()
	k.adm, err = admin.Open(ctx, adminDSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin session on %s:%d: %w", k.cfg.Host, k.cfg.Port, err)
	}
	k.cleanup.Add(k.adm.Close)

	// Provision the ephemeral database.
	k.mgr = manager.New(k.adm, settings.NamePrefix(), k.cfg.KeepDatabase, log)
	k.dbName, err = k.mgr.Provision(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("provisioned ephemeral database", zap.String("database", k.dbName))
	dbName := k.dbName
	k.cleanup.Add(func() error {
		return k.mgr.Release(context.Background(), dbName)
	})

	k.dsn = k.cfg.DSNFor(k.dbName)

	// Connection pools, then the two client sessions. Registration order
	// puts pool/session closes after the drop registration, so teardown
	// closes every connection before dropping the database.
	k.pool, err = connection.OpenPool(ctx, k.dsn, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect pgx pool: %w", err)
	}
	k.cleanup.Add(connection.ClosePoolFunc(&k.pool, k.dsn, log))

	k.sqlDB, err = connection.OpenSQL(ctx, k.dsn, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect sql.DB pool: %w", err)
	}
	k.cleanup.Add(connection.CloseSQLFunc(&k.sqlDB, k.dsn, log))

	k.pgClient, err = client.Connect(ctx, k.dsn, k.cfg.TxOptions, log.Named("pg"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect pg client: %w", err)
	}
	k.cleanup.Add(func() error { return k.pgClient.Close(context.Background()) })

	k.dbClient, err = client.Connect(ctx, k.dsn, k.cfg.TxOptions, log.Named("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect db client: %w", err)
	}
	k.cleanup.Add(func() error { return k.dbClient.Close(context.Background()) })

	if exts := settings.Extensions(); len(exts) > 0 {
		if err = k.adm.InstallExtensions(ctx, k.dsn, exts); err != nil {
			return nil, err
		}
	}

	if hook := settings.AfterConnectHook(); hook != nil {
		if err = hook(ctx, k.sqlDB, k.pool, log); err != nil {
			return nil, fmt.Errorf("afterConnectHook failed: %w", err)
		}
	}

	// Seeding runs exactly once, before any isolation boundary opens.
	sc := &seed.Context{
		Target: seed.Target{
			Host:     k.cfg.Host,
			Port:     k.cfg.Port,
			Username: k.cfg.Username,
			Password: k.cfg.Password,
			Database: k.dbName,
		},
		DSN:    k.dsn,
		Admin:  k.adm,
		PG:     k.pgClient,
		SQL:    k.sqlDB,
		Logger: log,
	}
	for _, adapter := range settings.SeedAdapters() {
		if err = adapter.Apply(ctx, sc); err != nil {
			return nil, err
		}
	}

	if t != nil {
		t.Cleanup(func() {
			if cleanupErr := k.Teardown(); cleanupErr != nil {
				t.Errorf("error during automatic kit teardown: %v", cleanupErr)
			}
		})
	} else {
		log.Warn("t *testing.T was nil; caller MUST call Teardown() manually (e.g., using defer)")
	}

	log.Info("kit initialization successful", zap.String("database", k.dbName))
	return k, nil
}
