// Package connection opens and releases the database/sql and pgx pools
// bound to the ephemeral test database.
package connection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veiloq/pgtestkit/internal/cleanup"
	"go.uber.org/zap"

	_ "github.com/lib/pq" // Driver for sql.Open
)

// OpenSQL establishes a standard library connection pool to dsn and
// verifies it with a ping.
func OpenSQL(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql.DB connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %q (sql.DB): %w", DBNameFromDSN(dsn), err)
	}
	logger.Debug("connected sql.DB pool", zap.String("database", DBNameFromDSN(dsn)))
	return db, nil
}

// OpenPool establishes a pgx connection pool to dsn and verifies it with a ping.
func OpenPool(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pgxConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN for pgx pool: %w", err)
	}
	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	defer poolCancel()
	pool, err := pgxpool.NewWithConfig(poolCtx, pgxConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database %q (pgx pool): %w", DBNameFromDSN(dsn), err)
	}
	logger.Debug("connected pgx pool", zap.String("database", DBNameFromDSN(dsn)))
	return pool, nil
}

// CloseSQLFunc returns a cleanup function that closes the sql.DB pool. It
// takes a pointer-to-a-pointer so the original variable is nilled after a
// successful close, preventing double-close issues.
func CloseSQLFunc(dbPtr **sql.DB, dsn string, logger *zap.Logger) cleanup.Func {
	return func() error {
		db := *dbPtr
		if db == nil {
			return nil
		}
		logDBName := DBNameFromDSN(dsn)
		if err := db.Close(); err != nil {
			logger.Error("error closing sql.DB pool", zap.String("database", logDBName), zap.Error(err))
			return fmt.Errorf("error closing sql.DB pool (%s): %w", logDBName, err)
		}
		logger.Debug("closed sql.DB pool", zap.String("database", logDBName))
		*dbPtr = nil
		return nil
	}
}

// ClosePoolFunc returns a cleanup function that closes the pgx pool.
// Note: pgxpool.Pool.Close() does not return an error.
func ClosePoolFunc(poolPtr **pgxpool.Pool, dsn string, logger *zap.Logger) cleanup.Func {
	return func() error {
		pool := *poolPtr
		if pool == nil {
			return nil
		}
		pool.Close()
		logger.Debug("closed pgx pool", zap.String("database", DBNameFromDSN(dsn)))
		*poolPtr = nil
		return nil
	}
}

// DBNameFromDSN extracts the database name from a postgres:// DSN, used for
// log messages. Returns "unknown" when the DSN shape is unexpected.
func DBNameFromDSN(dsn string) string {
	lastSlash := strings.LastIndex(dsn, "/")
	if lastSlash == -1 || lastSlash == len(dsn)-1 {
		return "unknown"
	}
	dbPart := dsn[lastSlash+1:]
	if queryStart := strings.Index(dbPart, "?"); queryStart != -1 {
		return dbPart[:queryStart]
	}
	return dbPart
}
