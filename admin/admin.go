// Package admin holds the privileged session used to create, inspect and
// drop ephemeral test databases on the target server.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	_ "github.com/lib/pq" // Driver for sql.Open
)

// ProvisioningError reports a database create/drop/inspect failure on the
// privileged session.
type ProvisioningError struct {
	Op       string // "create", "drop", "exists", "extension"
	Database string
	Err      error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("admin: %s database %q: %v", e.Op, e.Database, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Admin wraps one privileged connection pool to the administrative database.
// Create and drop calls are serialized behind a mutex so a single Admin may
// be shared by parallel fixtures; concurrent CREATE/DROP DATABASE on the
// same session is not meaningful.
type Admin struct {
	mu     sync.Mutex
	db     *sql.DB
	dsn    string
	logger *zap.Logger
}

// Open connects the privileged session using adminDSN and verifies it with a ping.
func Open(ctx context.Context, adminDSN string, logger *zap.Logger) (*Admin, error) {
	db, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping admin database: %w", err)
	}
	logger.Debug("admin session established")
	return &Admin{db: db, dsn: adminDSN, logger: logger}, nil
}

// DB returns the underlying privileged connection pool.
func (a *Admin) DB() *sql.DB {
	return a.db
}

// Close releases the privileged session. Closing twice is a no-op.
func (a *Admin) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if err != nil {
		return fmt.Errorf("failed to close admin connection: %w", err)
	}
	return nil
}

// Create executes CREATE DATABASE for name.
func (a *Admin) Create(ctx context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return &ProvisioningError{Op: "create", Database: name, Err: fmt.Errorf("admin session closed")}
	}
	quoted := pgx.Identifier{name}.Sanitize()
	a.logger.Debug("creating database", zap.String("database", name))
	if _, err := a.db.ExecContext(ctx, "CREATE DATABASE "+quoted); err != nil {
		return &ProvisioningError{Op: "create", Database: name, Err: err}
	}
	a.logger.Info("created database", zap.String("database", name))
	return nil
}

// Drop terminates every remaining backend connected to name and then drops
// it. Termination failures are logged and the drop is still attempted; a
// failing drop is returned, never swallowed.
func (a *Admin) Drop(ctx context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return &ProvisioningError{Op: "drop", Database: name, Err: fmt.Errorf("admin session closed")}
	}

	termCtx, termCancel := context.WithTimeout(ctx, 15*time.Second)
	defer termCancel()
	_, termErr := a.db.ExecContext(termCtx,
		`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
		name,
	)
	if termErr != nil {
		a.logger.Warn("failed to terminate connections before drop, proceeding anyway",
			zap.String("database", name), zap.Error(termErr))
	}

	dropCtx, dropCancel := context.WithTimeout(ctx, 15*time.Second)
	defer dropCancel()
	quoted := pgx.Identifier{name}.Sanitize()
	if _, err := a.db.ExecContext(dropCtx, "DROP DATABASE IF EXISTS "+quoted); err != nil {
		return &ProvisioningError{Op: "drop", Database: name, Err: err}
	}
	a.logger.Info("dropped database", zap.String("database", name))
	return nil
}

// Exists reports whether a database named name exists on the server.
func (a *Admin) Exists(ctx context.Context, name string) (bool, error) {
	if a.db == nil {
		return false, &ProvisioningError{Op: "exists", Database: name, Err: fmt.Errorf("admin session closed")}
	}
	var exists bool
	err := a.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name,
	).Scan(&exists)
	if err != nil {
		return false, &ProvisioningError{Op: "exists", Database: name, Err: err}
	}
	return exists, nil
}

// InstallExtensions connects to the database identified by targetDSN and
// runs CREATE EXTENSION IF NOT EXISTS for each name, in order.
func (a *Admin) InstallExtensions(ctx context.Context, targetDSN string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	db, err := sql.Open("postgres", targetDSN)
	if err != nil {
		return &ProvisioningError{Op: "extension", Database: targetDSN, Err: err}
	}
	defer db.Close()

	for _, name := range names {
		quoted := pgx.Identifier{name}.Sanitize()
		if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS "+quoted); err != nil {
			return &ProvisioningError{Op: "extension", Database: name, Err: err}
		}
		a.logger.Debug("installed extension", zap.String("extension", name))
	}
	return nil
}
