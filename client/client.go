// Package client provides the per-fixture test client: deterministic query
// helpers over a single PostgreSQL session, plus the transaction + savepoint
// isolation boundary used to roll back each test's writes.
package client

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// Row is a single decoded result row keyed by column name.
type Row = map[string]any

// Result holds the decoded rows of one query execution.
type Result struct {
	Rows []Row
}

// executor is satisfied by both *pgx.Conn and pgx.Tx, so queries issued
// inside an isolation boundary transparently run on the boundary's
// transaction.
type executor interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Client wraps exactly one database session. The isolation boundary is
// session-scoped (transaction + savepoint), so a Client must never be backed
// by a pool. A Client is not safe for concurrent use; one fixture owns it.
type Client struct {
	conn   *pgx.Conn
	txOpts pgx.TxOptions
	logger *zap.Logger

	state     State
	tx        pgx.Tx
	savepoint bool
}

// Connect dials a single session to the database identified by dsn.
func Connect(ctx context.Context, dsn string, txOpts pgx.TxOptions, logger *zap.Logger) (*Client, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect client session: %w", err)
	}
	return &Client{
		conn:   conn,
		txOpts: txOpts,
		logger: logger,
		state:  Idle,
	}, nil
}

// Conn exposes the raw pgx session for callers that need driver-level access.
func (c *Client) Conn() *pgx.Conn {
	return c.conn
}

// State returns the client's current isolation state.
func (c *Client) State() State {
	return c.state
}

// Close terminates the session. Closing twice is a no-op.
func (c *Client) Close(ctx context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Close(ctx); err != nil {
		return fmt.Errorf("failed to close client session: %w", err)
	}
	return nil
}

func (c *Client) exec() (executor, error) {
	if c.conn == nil || c.conn.IsClosed() {
		return nil, &ConnError{Op: "execute"}
	}
	if c.tx != nil {
		return c.tx, nil
	}
	return c.conn, nil
}

// Query executes sql with the given arguments and decodes every row into a
// map keyed by column name.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (*Result, error) {
	ex, err := c.exec()
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	decoded, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return &Result{Rows: decoded}, nil
}

// Exec executes sql and returns the number of rows affected.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ex, err := c.exec()
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// One executes sql and returns its single row. A result with zero or more
// than one row is a CardinalityError.
func (c *Client) One(ctx context.Context, sql string, args ...any) (Row, error) {
	res, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) != 1 {
		return nil, &CardinalityError{SQL: sql, Want: "exactly one", Got: len(res.Rows)}
	}
	return res.Rows[0], nil
}

// OneOrNone executes sql and returns its single row, or nil when the result
// is empty. More than one row is a CardinalityError.
func (c *Client) OneOrNone(ctx context.Context, sql string, args ...any) (Row, error) {
	res, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	switch len(res.Rows) {
	case 0:
		return nil, nil
	case 1:
		return res.Rows[0], nil
	default:
		return nil, &CardinalityError{SQL: sql, Want: "at most one", Got: len(res.Rows)}
	}
}

// Many executes sql and returns its rows. An empty result is a CardinalityError.
func (c *Client) Many(ctx context.Context, sql string, args ...any) ([]Row, error) {
	res, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, &CardinalityError{SQL: sql, Want: "at least one", Got: 0}
	}
	return res.Rows, nil
}

// ManyOrNone executes sql and returns its rows; an empty result is allowed.
func (c *Client) ManyOrNone(ctx context.Context, sql string, args ...any) ([]Row, error) {
	res, err := c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}
