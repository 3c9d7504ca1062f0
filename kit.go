package pgtestkit

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veiloq/pgtestkit/admin"
	"github.com/veiloq/pgtestkit/client"
	"github.com/veiloq/pgtestkit/manager"
)

// Kit is the bundle returned for one fixture: a uniquely named ephemeral
// database, the handles bound to it, and an idempotent teardown.
type Kit interface {
	// DB returns the per-test client carrying the BeforeEach/AfterEach
	// isolation boundary.
	DB() *client.Client
	// PG returns the privileged client used for seeding and setup work.
	// DB and PG are deliberately distinct handles even while they connect
	// the same way; PG may gain superuser-only semantics later.
	PG() *client.Client
	// Admin returns the privileged handle that creates and drops databases.
	Admin() *admin.Admin
	// Manager returns the provisioner that owns the ephemeral database's
	// lifecycle.
	Manager() *manager.Manager
	// SQL returns a standard library connection pool to the ephemeral database.
	SQL() *sql.DB
	// Pool returns a pgx connection pool to the ephemeral database.
	Pool() *pgxpool.Pool
	// ConnectionString returns the DSN of the ephemeral database.
	ConnectionString() string
	// DatabaseName returns the generated name of the ephemeral database.
	DatabaseName() string
	// Teardown closes every connection and drops the ephemeral database.
	// It runs at most once; calling it again is a no-op returning the
	// first run's result.
	Teardown() error
}
