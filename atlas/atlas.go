// Package atlas provides a seed adapter that applies Atlas migrations to
// the ephemeral test database using the core Atlas library.
package atlas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ariga.io/atlas/sql/migrate"
	postgres "ariga.io/atlas/sql/postgres"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"go.uber.org/zap"

	"github.com/veiloq/pgtestkit/seed"

	_ "github.com/jackc/pgx/v5/stdlib" // Blank import for database/sql driver registration
)

// Migrations returns a seed adapter that reads hclPath (an atlas.hcl file),
// resolves the migration directory it declares, and applies every pending
// migration to the target database. A missing or broken Atlas setup is a
// seed error: seeding failure is fatal to fixture setup.
func Migrations(hclPath string) seed.Adapter {
	return &migrator{hclPath: hclPath}
}

type migrator struct {
	hclPath string
}

func (m *migrator) Apply(ctx context.Context, sc *seed.Context) error {
	logger := sc.Logger.With(zap.String("adapter", "atlas"))

	dir, dirPath, err := m.resolveDir(logger)
	if err != nil {
		return &seed.Error{Adapter: "atlas", Err: err}
	}

	logger.Info("applying Atlas migrations",
		zap.String("database", sc.Target.Database),
		zap.String("source_dir", dirPath),
	)

	applyCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	drv, cleanup, err := openDriver(applyCtx, sc.DSN, logger)
	if err != nil {
		return &seed.Error{Adapter: "atlas", Err: err}
	}
	defer cleanup()

	exec, err := migrate.NewExecutor(drv, dir, migrate.NopRevisionReadWriter{},
		migrate.WithLogger(&zapMigrateLogger{logger: logger}))
	if err != nil {
		return &seed.Error{Adapter: "atlas", Err: fmt.Errorf("failed to create executor: %w", err)}
	}

	// n=0 applies all pending migrations.
	if err := exec.ExecuteN(applyCtx, 0); err != nil {
		if errors.Is(err, migrate.ErrNoPendingFiles) {
			logger.Info("no pending Atlas migrations")
			return nil
		}
		return &seed.Error{Adapter: "atlas", Err: fmt.Errorf("failed to apply migrations from %q: %w", dirPath, err)}
	}

	logger.Info("Atlas migrations applied", zap.String("database", sc.Target.Database))
	return nil
}

// resolveDir parses the HCL file and returns the migration directory it
// declares, preferring the 'local' env block.
func (m *migrator) resolveDir(logger *zap.Logger) (migrate.Dir, string, error) {
	absHCLPath, err := filepath.Abs(m.hclPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve atlas HCL path %q: %w", m.hclPath, err)
	}
	if _, err := os.Stat(absHCLPath); err != nil {
		return nil, "", fmt.Errorf("failed to stat atlas HCL file %q: %w", absHCLPath, err)
	}

	var conf atlasConfigHCL
	if err := hclsimple.DecodeFile(absHCLPath, nil, &conf); err != nil {
		return nil, "", fmt.Errorf("failed to decode atlas HCL file %q: %w", absHCLPath, err)
	}

	dirRel, found := findMigrationDir(&conf, logger)
	if !found {
		return nil, "", fmt.Errorf("no migration directory (env.migration.dir) declared in %q", absHCLPath)
	}

	hclDir := filepath.Dir(absHCLPath)
	relativePath := strings.TrimPrefix(dirRel, "file://")
	absDir, err := filepath.Abs(filepath.Join(hclDir, relativePath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve migration dir %q: %w", dirRel, err)
	}

	dir, err := migrate.NewLocalDir(absDir)
	if err != nil {
		return nil, absDir, fmt.Errorf("failed to open migration dir %q: %w", absDir, err)
	}
	return dir, absDir, nil
}

func findMigrationDir(conf *atlasConfigHCL, logger *zap.Logger) (string, bool) {
	// Prioritize the 'local' environment block.
	for _, env := range conf.Envs {
		if env.Name == "local" && env.Migration != nil && env.Migration.Dir != "" {
			return env.Migration.Dir, true
		}
	}
	// Fall back to the first environment block.
	if len(conf.Envs) > 0 && conf.Envs[0].Migration != nil && conf.Envs[0].Migration.Dir != "" {
		logger.Warn("atlas 'local' env not found, falling back to first env",
			zap.String("env", conf.Envs[0].Name), zap.String("dir", conf.Envs[0].Migration.Dir))
		return conf.Envs[0].Migration.Dir, true
	}
	return "", false
}

// openDriver opens a standard library connection via the pgx stdlib driver
// and wraps it in the Atlas postgres driver.
func openDriver(ctx context.Context, dsn string, logger *zap.Logger) (migrate.Driver, func(), error) {
	stdDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open connection for Atlas driver: %w", err)
	}
	cleanup := func() {
		if closeErr := stdDB.Close(); closeErr != nil {
			logger.Warn("error closing Atlas driver connection", zap.Error(closeErr))
		}
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := stdDB.PingContext(pingCtx); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("failed to ping database for Atlas driver: %w", err)
	}

	drv, err := postgres.Open(stdDB)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("failed to open Atlas postgres driver: %w", err)
	}
	return drv, cleanup, nil
}

// --- HCL parsing structs ---

type atlasConfigHCL struct {
	Envs []*atlasEnvHCL `hcl:"env,block"`
}

type atlasEnvHCL struct {
	Name      string             `hcl:"name,label"`
	Migration *atlasMigrationHCL `hcl:"migration,block"`
}

type atlasMigrationHCL struct {
	Dir string `hcl:"dir"`
}

// zapMigrateLogger adapts a *zap.Logger to the migrate.Logger interface.
type zapMigrateLogger struct {
	logger *zap.Logger
}

func (l *zapMigrateLogger) Log(entry migrate.LogEntry) {
	switch e := entry.(type) {
	case migrate.LogExecution:
		l.logger.Info("migration execution starting",
			zap.String("from_version", e.From),
			zap.String("to_version", e.To),
			zap.Int("num_files", len(e.Files)),
		)
	case migrate.LogFile:
		l.logger.Info("applying migration file", zap.String("file", e.File.Name()))
	case migrate.LogStmt:
		l.logger.Debug("executing statement", zap.String("sql", e.SQL))
	case migrate.LogError:
		l.logger.Error("migration error", zap.Stringp("sql", &e.SQL), zap.Error(e.Error))
	case migrate.LogDone:
		l.logger.Info("migration execution finished")
	default:
		l.logger.Debug("atlas log entry", zap.Any("entry", entry))
	}
}
