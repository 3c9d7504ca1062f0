package config

// Supported PostgreSQL versions for the embedded server mode.
// Source: https://www.postgresql.org/support/versioning/
// (Add more versions as needed and supported by embedded-postgres.)
type PostgresVersion string

const (
	// PostgreSQL 17
	V17_0 PostgresVersion = "17.0.0"
	V17_1 PostgresVersion = "17.1.0"
	V17_2 PostgresVersion = "17.2.0"
	V17_3 PostgresVersion = "17.3.0"
	V17_4 PostgresVersion = "17.4.0"

	// PostgreSQL 16
	V16_0 PostgresVersion = "16.0.0"
	V16_1 PostgresVersion = "16.1.0"
	V16_2 PostgresVersion = "16.2.0"
	V16_3 PostgresVersion = "16.3.0"
	V16_4 PostgresVersion = "16.4.0"
	V16_8 PostgresVersion = "16.8.0"

	// PostgreSQL 15
	V15_8  PostgresVersion = "15.8.0"
	V15_12 PostgresVersion = "15.12.0"
)
