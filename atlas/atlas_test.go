package atlas

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/veiloq/pgtestkit/seed"
)

func applyTo(t *testing.T, hclPath string) error {
	sc := &seed.Context{Logger: zaptest.NewLogger(t)}
	return Migrations(hclPath).Apply(context.Background(), sc)
}

func writeHCL(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "atlas.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestMigrations_MissingHCLFile(t *testing.T) {
	err := applyTo(t, filepath.Join(t.TempDir(), "atlas.hcl"))

	var seedErr *seed.Error
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "atlas", seedErr.Adapter)
	assert.Contains(t, err.Error(), "failed to stat")
}

func TestMigrations_InvalidHCL(t *testing.T) {
	path := writeHCL(t, t.TempDir(), "env local {")

	err := applyTo(t, path)

	var seedErr *seed.Error
	require.ErrorAs(t, err, &seedErr)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestMigrations_NoMigrationDirDeclared(t *testing.T) {
	path := writeHCL(t, t.TempDir(), `env "local" {}`)

	err := applyTo(t, path)

	var seedErr *seed.Error
	require.ErrorAs(t, err, &seedErr)
	assert.Contains(t, err.Error(), "no migration directory")
}

func TestMigrations_MigrationDirDoesNotExist(t *testing.T) {
	dir := t.TempDir()
	path := writeHCL(t, dir, `
env "local" {
  migration {
    dir = "file://migrations"
  }
}
`)

	err := applyTo(t, path)

	var seedErr *seed.Error
	require.ErrorAs(t, err, &seedErr)
	assert.Contains(t, err.Error(), "failed to open migration dir")
}

func TestFindMigrationDir_PrefersLocalEnv(t *testing.T) {
	conf := &atlasConfigHCL{Envs: []*atlasEnvHCL{
		{Name: "prod", Migration: &atlasMigrationHCL{Dir: "file://prod-migrations"}},
		{Name: "local", Migration: &atlasMigrationHCL{Dir: "file://local-migrations"}},
	}}

	dir, found := findMigrationDir(conf, zaptest.NewLogger(t))
	require.True(t, found)
	assert.Equal(t, "file://local-migrations", dir)
}

func TestFindMigrationDir_FallsBackToFirstEnv(t *testing.T) {
	conf := &atlasConfigHCL{Envs: []*atlasEnvHCL{
		{Name: "dev", Migration: &atlasMigrationHCL{Dir: "file://dev-migrations"}},
	}}

	dir, found := findMigrationDir(conf, zaptest.NewLogger(t))
	require.True(t, found)
	assert.Equal(t, "file://dev-migrations", dir)
}

func TestFindMigrationDir_NoneDeclared(t *testing.T) {
	_, found := findMigrationDir(&atlasConfigHCL{}, zaptest.NewLogger(t))
	assert.False(t, found)
}
