package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Savepoint name used by the per-test boundary. One level only: a boundary
// is a transaction plus this single savepoint, never nested further.
const savepointName = "pgtestkit_each"

// BeforeEach opens the isolation boundary for one test: it begins a
// transaction and establishes a savepoint. Calling it while a boundary is
// already open is an IsolationStateError.
func (c *Client) BeforeEach(ctx context.Context) error {
	if c.state != Idle {
		return &IsolationStateError{Op: "BeforeEach", State: c.state}
	}
	tx, err := c.conn.BeginTx(ctx, c.txOpts)
	if err != nil {
		return fmt.Errorf("failed to begin isolation transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		// Leave no half-open boundary behind.
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			c.logger.Warn("failed to roll back after savepoint failure", zap.Error(rbErr))
		}
		return fmt.Errorf("failed to establish savepoint: %w", err)
	}
	c.tx = tx
	c.savepoint = true
	c.state = InTransaction
	c.logger.Debug("isolation boundary opened")
	return nil
}

// AfterEach rolls back to the savepoint and ends the transaction, discarding
// everything the test wrote inside the boundary. Calling it while Idle is an
// IsolationStateError.
func (c *Client) AfterEach(ctx context.Context) error {
	if c.state != InTransaction || !c.savepoint {
		return &IsolationStateError{Op: "AfterEach", State: c.state}
	}
	tx := c.tx
	c.tx = nil
	c.savepoint = false
	c.state = Idle

	_, spErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName)
	rbErr := tx.Rollback(ctx)
	if rbErr != nil && errors.Is(rbErr, pgx.ErrTxClosed) {
		rbErr = nil
	}
	if spErr != nil {
		return fmt.Errorf("failed to roll back to savepoint: %w", spErr)
	}
	if rbErr != nil {
		return fmt.Errorf("failed to end isolation transaction: %w", rbErr)
	}
	c.logger.Debug("isolation boundary rolled back")
	return nil
}

// SetContext sets session-scoped variables (for example simulated user
// identity read by row-level-security policies) inside the current boundary.
// The values are transaction-local and vanish when AfterEach rolls back.
// Valid only while InTransaction.
func (c *Client) SetContext(ctx context.Context, values map[string]string) error {
	if c.state != InTransaction {
		return &IsolationStateError{Op: "SetContext", State: c.state}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := c.tx.Exec(ctx, "SELECT set_config($1, $2, true)", k, values[k]); err != nil {
			return fmt.Errorf("failed to set session context %q: %w", k, err)
		}
	}
	return nil
}

// Begin opens a plain transaction without a savepoint, for callers driving
// transaction state by hand (e.g. seeding helpers). Pair with Commit or
// Rollback, not AfterEach.
func (c *Client) Begin(ctx context.Context) error {
	if c.state != Idle {
		return &IsolationStateError{Op: "Begin", State: c.state}
	}
	tx, err := c.conn.BeginTx(ctx, c.txOpts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = tx
	c.state = InTransaction
	return nil
}

// Commit commits a transaction opened with Begin.
func (c *Client) Commit(ctx context.Context) error {
	if c.state != InTransaction || c.savepoint {
		return &IsolationStateError{Op: "Commit", State: c.state}
	}
	tx := c.tx
	c.tx = nil
	c.state = Idle
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards a transaction opened with Begin.
func (c *Client) Rollback(ctx context.Context) error {
	if c.state != InTransaction || c.savepoint {
		return &IsolationStateError{Op: "Rollback", State: c.state}
	}
	tx := c.tx
	c.tx = nil
	c.state = Idle
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}
