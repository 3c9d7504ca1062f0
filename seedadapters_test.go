package pgtestkit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veiloq/pgtestkit"
	"github.com/veiloq/pgtestkit/config"
	"github.com/veiloq/pgtestkit/seed"
)

func TestSeedFiles_AppliesInOrder(t *testing.T) {
	ctx := context.Background()
	// posts.sql references users, so listing order matters.
	db := newKit(t, config.WithSeed(seed.Files("testdata/schema.sql", "testdata/posts.sql"))).DB()

	users, err := db.Many(ctx, "SELECT * FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	posts, err := db.Many(ctx, "SELECT * FROM posts ORDER BY id")
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestSeedFiles_MissingFileIsFatal(t *testing.T) {
	_, err := pgtestkit.New(context.Background(), t, sharedCfg,
		config.WithSeed(seed.Files("testdata/does_not_exist.sql")))
	require.Error(t, err, "seeding failure must abort fixture setup")

	var seedErr *seed.Error
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "files", seedErr.Adapter)
}

func TestSeedFiles_BadSQLIsFatal(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "broken.sql")
	require.NoError(t, os.WriteFile(tmp, []byte("CREATE TABLE ok (id INT);\nTHIS IS NOT SQL;"), 0o644))

	_, err := pgtestkit.New(context.Background(), t, sharedCfg, config.WithSeed(seed.Files(tmp)))
	require.Error(t, err)
	var seedErr *seed.Error
	require.ErrorAs(t, err, &seedErr)
}

func TestSeedFunc_SideEffectsBecomeSeededState(t *testing.T) {
	ctx := context.Background()
	db := newKit(t, config.WithSeed(seed.Func(func(ctx context.Context, sc *seed.Context) error {
		if _, err := sc.PG.Exec(ctx, "CREATE TABLE fn_probe (value TEXT)"); err != nil {
			return err
		}
		_, err := sc.PG.Exec(ctx, "INSERT INTO fn_probe VALUES ('seeded')")
		return err
	}))).DB()

	row, err := db.One(ctx, "SELECT value FROM fn_probe")
	require.NoError(t, err)
	assert.Equal(t, "seeded", row["value"])
}

func TestSeedCompose_RunsAdaptersInOrder(t *testing.T) {
	ctx := context.Background()
	var order []string
	step := func(name, sql string) seed.Adapter {
		return seed.Func(func(ctx context.Context, sc *seed.Context) error {
			order = append(order, name)
			_, err := sc.PG.Exec(ctx, sql)
			return err
		})
	}

	db := newKit(t, config.WithSeed(seed.Compose(
		step("first", "CREATE TABLE compose_probe (step INT)"),
		step("second", "INSERT INTO compose_probe VALUES (1)"),
		step("third", "INSERT INTO compose_probe VALUES (2)"),
	))).DB()

	assert.Equal(t, []string{"first", "second", "third"}, order)

	rows, err := db.Many(ctx, "SELECT step FROM compose_probe ORDER BY step")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["step"])
	assert.EqualValues(t, 2, rows[1]["step"])
}

func TestSeedGoose_AppliesMigrations(t *testing.T) {
	ctx := context.Background()
	db := newKit(t, config.WithSeed(seed.Goose("testdata/migrations"))).DB()

	row, err := db.One(ctx, `
		SELECT COUNT(*) AS count
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = 'widgets'
	`)
	require.NoError(t, err)
	assert.EqualValues(t, 1, row["count"], "widgets table should exist after goose migrations")
}

func TestSeedRunsBeforeFirstBoundary(t *testing.T) {
	ctx := context.Background()
	db := newKit(t, config.WithSeed(seed.Files("testdata/schema.sql"))).DB()

	// Seeded rows must be visible without any boundary ever having opened.
	users, err := db.ManyOrNone(ctx, "SELECT * FROM users")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
