/*
Package pgtestkit provisions an isolated PostgreSQL database per test
fixture, seeds it once through composable adapters, and bounds each test in
a transaction + savepoint that is rolled back afterwards.

A fixture lifecycle:

  - a uniquely named database is created on the target server (or on an
    embedded instance the kit starts itself),
  - the configured seed adapters run exactly once against it,
  - each test wraps its work in DB().BeforeEach / DB().AfterEach so writes
    never leak between tests,
  - teardown closes every connection and drops the database.

Example usage (within a test function):

	func TestMyFeature(t *testing.T) {
		ctx := context.Background()
		cfg, err := config.FromEnv()
		if err != nil {
			t.Fatal(err)
		}
		k, err := pgtestkit.New(ctx, t, cfg,
			config.WithSeed(seed.Files("testdata/schema.sql")),
		)
		if err != nil {
			t.Fatalf("failed to initialize kit: %v", err)
		}
		// k.Teardown() is registered automatically via t.Cleanup.

		db := k.DB()
		if err := db.BeforeEach(ctx); err != nil {
			t.Fatal(err)
		}
		defer db.AfterEach(ctx)

		// Writes here are rolled back when AfterEach runs.
		if _, err := db.Exec(ctx, "INSERT INTO users (name) VALUES ($1)", "Test"); err != nil {
			t.Fatal(err)
		}
	}
*/
package pgtestkit
