// Package manager generates unique ephemeral database names and drives the
// provision/release lifecycle of exactly one database per fixture.
package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/veiloq/pgtestkit/admin"
	"go.uber.org/zap"
)

// DefaultPrefix is used for generated database names unless overridden.
const DefaultPrefix = "pgtest_"

// Database identifiers are limited to 63 bytes on PostgreSQL.
const maxIdentifierLen = 63

// How many fresh names Provision tries before giving up on collisions.
const provisionAttempts = 3

// GenerateName returns a unique database name: the prefix followed by a
// UUID-derived suffix, lowercased, with hyphens replaced by underscores and
// clamped to the PostgreSQL identifier limit.
func GenerateName(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	name := strings.ToLower(prefix + suffix)
	name = strings.ReplaceAll(name, "-", "_")
	if len(name) > maxIdentifierLen {
		name = name[:maxIdentifierLen]
	}
	return name
}

// Manager provisions and releases ephemeral databases through a shared Admin.
type Manager struct {
	adm    *admin.Admin
	prefix string
	keep   bool
	logger *zap.Logger
}

// New creates a Manager. An empty prefix selects DefaultPrefix. keep
// disables the drop on Release (the database outlives the fixture).
func New(adm *admin.Admin, prefix string, keep bool, logger *zap.Logger) *Manager {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{adm: adm, prefix: prefix, keep: keep, logger: logger}
}

// Admin returns the privileged handle the manager drives.
func (m *Manager) Admin() *admin.Admin {
	return m.adm
}

// Provision creates one uniquely named database and returns its name.
// Name collisions are retried with fresh names a bounded number of times;
// any other creation failure surfaces immediately.
func (m *Manager) Provision(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt < provisionAttempts; attempt++ {
		name := GenerateName(m.prefix)
		exists, err := m.adm.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if exists {
			m.logger.Warn("generated database name already exists, retrying",
				zap.String("database", name), zap.Int("attempt", attempt+1))
			lastErr = fmt.Errorf("database %q already exists", name)
			continue
		}
		if err := m.adm.Create(ctx, name); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", &admin.ProvisioningError{Op: "create", Database: m.prefix + "*",
		Err: fmt.Errorf("exhausted %d name attempts: %w", provisionAttempts, lastErr)}
}

// Release drops the named database unless the manager was configured to
// keep it.
func (m *Manager) Release(ctx context.Context, name string) error {
	if m.keep {
		m.logger.Info("keeping database on release", zap.String("database", name))
		return nil
	}
	return m.adm.Drop(ctx, name)
}
