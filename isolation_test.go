package pgtestkit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veiloq/pgtestkit/config"
	"github.com/veiloq/pgtestkit/seed"
)

// The canonical scenario: a users table seeded with two rows, an insert
// inside the boundary raising the count to three, and the rollback
// restoring the seeded state.
func TestIsolation_RollbackRevertsWrites(t *testing.T) {
	ctx := context.Background()
	db := newKit(t, config.WithSeed(seed.Files("testdata/schema.sql"))).DB()

	users, err := db.Many(ctx, "SELECT * FROM users ORDER BY id")
	require.NoError(t, err)
	require.Len(t, users, 2, "seeded data should be visible before any boundary")
	assert.Equal(t, "Alice", users[0]["name"])
	assert.Equal(t, "Bob", users[1]["name"])

	require.NoError(t, db.BeforeEach(ctx))

	_, err = db.Exec(ctx, "INSERT INTO users (name) VALUES ('Test')")
	require.NoError(t, err)
	row, err := db.One(ctx, "SELECT COUNT(*) AS count FROM users")
	require.NoError(t, err)
	assert.EqualValues(t, 3, row["count"], "the write should be visible inside the boundary")

	require.NoError(t, db.AfterEach(ctx))

	row, err = db.One(ctx, "SELECT COUNT(*) AS count FROM users")
	require.NoError(t, err)
	assert.EqualValues(t, 2, row["count"], "the write should be gone after rollback")
}

func TestIsolation_SeededDataSurvivesRepeatedCycles(t *testing.T) {
	ctx := context.Background()
	db := newKit(t, config.WithSeed(seed.Files("testdata/schema.sql"))).DB()

	for cycle := 0; cycle < 3; cycle++ {
		require.NoError(t, db.BeforeEach(ctx))

		row, err := db.One(ctx, "SELECT COUNT(*) AS count FROM users")
		require.NoError(t, err)
		assert.EqualValues(t, 2, row["count"], "cycle %d should start from seeded state", cycle)

		_, err = db.Exec(ctx, "INSERT INTO users (name) VALUES ('Transient')")
		require.NoError(t, err)

		require.NoError(t, db.AfterEach(ctx))
	}

	row, err := db.One(ctx, "SELECT COUNT(*) AS count FROM users")
	require.NoError(t, err)
	assert.EqualValues(t, 2, row["count"])
}

func TestIsolation_UpdatesAndDeletesRollBack(t *testing.T) {
	ctx := context.Background()
	db := newKit(t, config.WithSeed(seed.Files("testdata/schema.sql"))).DB()

	require.NoError(t, db.BeforeEach(ctx))

	_, err := db.Exec(ctx, "UPDATE users SET name = 'Renamed' WHERE name = 'Alice'")
	require.NoError(t, err)
	_, err = db.Exec(ctx, "DELETE FROM users WHERE name = 'Bob'")
	require.NoError(t, err)

	row, err := db.One(ctx, "SELECT name FROM users")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", row["name"])

	require.NoError(t, db.AfterEach(ctx))

	users, err := db.Many(ctx, "SELECT name FROM users ORDER BY id")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0]["name"])
	assert.Equal(t, "Bob", users[1]["name"])
}
