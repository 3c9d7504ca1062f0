package client

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_String(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "InTransaction", InTransaction.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestIsolationStateError(t *testing.T) {
	err := &IsolationStateError{Op: "AfterEach", State: Idle}
	assert.Equal(t, "client: AfterEach called in state Idle", err.Error())
}

func TestCardinalityError(t *testing.T) {
	err := &CardinalityError{SQL: "SELECT 1", Want: "exactly one", Got: 2}
	assert.Equal(t, `client: expected exactly one row(s), got 2 for query "SELECT 1"`, err.Error())
}

func TestConnError(t *testing.T) {
	closed := &ConnError{Op: "Query"}
	assert.Equal(t, "client: Query on closed connection", closed.Error())
	assert.NoError(t, errors.Unwrap(closed))

	cause := errors.New("broken pipe")
	lost := &ConnError{Op: "Exec", Err: cause}
	assert.Contains(t, lost.Error(), "connection lost")
	assert.ErrorIs(t, lost, cause)
}
