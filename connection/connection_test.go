package connection

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBNameFromDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"plain", "postgres://u:p@localhost:5432/mydb", "mydb"},
		{"with params", "postgres://u:p@localhost:5432/mydb?sslmode=disable", "mydb"},
		{"trailing slash", "postgres://u:p@localhost:5432/", "unknown"},
		{"no slash", "not-a-dsn", "unknown"},
		{"empty", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DBNameFromDSN(tt.dsn))
		})
	}
}

func TestFreePort(t *testing.T) {
	port, err := FreePort("localhost")
	require.NoError(t, err)
	require.Greater(t, port, 0)
	require.LessOrEqual(t, port, 65535)

	// The returned port must be bindable right after the call.
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	require.NoError(t, err)
	require.NoError(t, ln.Close())
}
