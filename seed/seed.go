// Package seed defines composable strategies for populating a freshly
// provisioned test database with initial schema and data. Adapters run
// exactly once per database, in order, before any isolation boundary opens.
// Seeding is not wrapped in a transaction: the first failing statement
// aborts fixture setup and leaves partial state behind, surfacing the defect
// instead of hiding it.
package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/veiloq/pgtestkit/admin"
	"github.com/veiloq/pgtestkit/client"
	"go.uber.org/zap"
)

// Target identifies the ephemeral database a seed run is pointed at.
type Target struct {
	Host     string
	Port     uint32
	Username string
	Password string
	Database string
}

// Context bundles the handles a seed adapter may use. PG is the privileged
// client session connected to the target database; SQL is the standard
// library pool to the same database, used by adapters built on
// database/sql tooling.
type Context struct {
	Target Target
	DSN    string
	Admin  *admin.Admin
	PG     *client.Client
	SQL    *sql.DB
	Logger *zap.Logger
}

// Adapter is one seeding strategy. Apply runs synchronously against the
// target database and must be called at most once per database.
type Adapter interface {
	Apply(ctx context.Context, sc *Context) error
}

// Error wraps any failure raised while applying a seed adapter. Seeding
// failures are fatal to fixture setup.
type Error struct {
	Adapter string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("seed: %s adapter failed: %v", e.Adapter, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NoOp is an Adapter that seeds nothing, leaving the database empty.
type NoOp struct{}

// Apply implements Adapter.
func (NoOp) Apply(ctx context.Context, sc *Context) error {
	sc.Logger.Debug("seeding skipped (NoOp adapter)")
	return nil
}
