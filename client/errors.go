package client

import "fmt"

// State describes where a Client is in its isolation lifecycle.
type State int

const (
	// Idle means no isolation boundary is open; queries run in autocommit.
	Idle State = iota
	// InTransaction means BeforeEach has opened a boundary that AfterEach
	// has not yet rolled back.
	InTransaction
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case InTransaction:
		return "InTransaction"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsolationStateError reports BeforeEach/AfterEach/SetContext being called
// while the client is in the wrong state.
type IsolationStateError struct {
	Op    string // Operation that was attempted
	State State  // State the client was in at the time
}

func (e *IsolationStateError) Error() string {
	return fmt.Sprintf("client: %s called in state %s", e.Op, e.State)
}

// CardinalityError reports a query returning an unexpected number of rows
// to One, OneOrNone or Many.
type CardinalityError struct {
	SQL  string // Query that produced the rows
	Want string // Human-readable expected cardinality
	Got  int    // Actual row count
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("client: expected %s row(s), got %d for query %q", e.Want, e.Got, e.SQL)
}

// ConnError reports the underlying session being lost or closed while an
// operation was attempted.
type ConnError struct {
	Op  string
	Err error
}

func (e *ConnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("client: %s on closed connection", e.Op)
	}
	return fmt.Sprintf("client: %s: connection lost: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }
