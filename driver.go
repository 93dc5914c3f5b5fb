package presto

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

func init() {
	d := &prestoDriver{}
	sql.Register("presto", d)
	sql.Register("trino", d)
}

// prestoDriver is registered as both "presto" and "trino"; the DSN scheme
// selects the dialect.
type prestoDriver struct{}

var (
	_ driver.Driver        = (*prestoDriver)(nil)
	_ driver.DriverContext = (*prestoDriver)(nil)
)

func (d *prestoDriver) Open(dsn string) (driver.Conn, error) {
	c, err := NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

func (d *prestoDriver) OpenConnector(dsn string) (driver.Connector, error) {
	return NewConnector(dsn)
}

// --- Connector ---

// ConnectorOption configures a connector built by NewConnector.
type ConnectorOption func(*connector)

// WithSessionSetup runs fn on every session the connector creates, after
// the DSN settings are applied.
func WithSessionSetup(fn func(*Session)) ConnectorOption {
	return func(c *connector) {
		c.setups = append(c.setups, fn)
	}
}

// WithRequestOptions attaches opts to every session, e.g. an auth header.
func WithRequestOptions(opts ...RequestOption) ConnectorOption {
	return WithSessionSetup(func(s *Session) {
		s.RequestOptions(opts...)
	})
}

// connector shares one Client between all connections of a sql.DB.
type connector struct {
	cfg    *dsnConfig
	setups []func(*Session)

	once   sync.Once
	client *Client
	err    error
}

var _ driver.Connector = (*connector)(nil)

// NewConnector returns a connector for sql.OpenDB.
func NewConnector(dsn string, opts ...ConnectorOption) (driver.Connector, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	c := &connector{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	c.once.Do(func() {
		c.client, c.err = NewClient(c.cfg.serverURL())
		if c.err == nil {
			c.client.IsTrino(c.cfg.isTrino)
		}
	})
	if c.err != nil {
		return nil, c.err
	}

	cfg := c.cfg
	s := c.client.NewSession()
	switch {
	case cfg.user != "" && cfg.password != "":
		s.UserPassword(cfg.user, cfg.password)
	case cfg.user != "":
		s.User(cfg.user)
	}
	s.Catalog(cfg.catalog).Schema(cfg.schema).TimeZone(cfg.timezone).
		ClientInfo(cfg.clientInfo).Source(cfg.source).ClientTags(cfg.clientTags...)
	for name, value := range cfg.properties {
		s.Property(name, value)
	}
	for _, setup := range c.setups {
		setup(s)
	}
	return &conn{session: s}, nil
}

func (c *connector) Driver() driver.Driver {
	return &prestoDriver{}
}

// --- Connection ---

type conn struct {
	session *Session
}

var (
	_ driver.Conn           = (*conn)(nil)
	_ driver.QueryerContext = (*conn)(nil)
	_ driver.ExecerContext  = (*conn)(nil)
	_ driver.ConnBeginTx    = (*conn)(nil)
)

// Session exposes the connection's session, e.g. through sql.Conn.Raw.
func (c *conn) Session() *Session {
	return c.session
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if sql.IsolationLevel(opts.Isolation) != sql.LevelDefault {
		return nil, fmt.Errorf("presto: isolation level %s is not supported", sql.IsolationLevel(opts.Isolation))
	}
	text := "START TRANSACTION"
	if opts.ReadOnly {
		text += " READ ONLY"
	}
	if _, err := c.exec(ctx, text); err != nil {
		return nil, fmt.Errorf("presto: starting transaction: %w", err)
	}
	return &tx{conn: c}, nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	text, err := interpolateParams(query, positional(args))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("statement", text).Msg("query")

	qr, _, err := c.session.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	// Columns may only show up after the queued replies.
	for len(qr.Columns) == 0 && qr.HasMoreBatch() {
		if err := qr.FetchNextBatch(ctx); err != nil {
			return nil, err
		}
	}
	return newRows(ctx, qr)
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	text, err := interpolateParams(query, positional(args))
	if err != nil {
		return nil, err
	}
	return c.exec(ctx, text)
}

// exec runs a statement to completion and keeps the update count of the
// last reply.
func (c *conn) exec(ctx context.Context, text string) (driver.Result, error) {
	log.Debug().Str("statement", text).Msg("exec")
	qr, _, err := c.session.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := qr.Drain(ctx, nil); err != nil {
		return nil, err
	}
	return result{updateCount: qr.UpdateCount}, nil
}

func positional(args []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	return values
}

// --- Result ---

type result struct {
	updateCount *int64
}

func (r result) LastInsertId() (int64, error) {
	return 0, errors.New("presto: LastInsertId is not supported")
}

func (r result) RowsAffected() (int64, error) {
	if r.updateCount == nil {
		return 0, nil
	}
	return *r.updateCount, nil
}

// --- Statement ---

// stmt re-sends its text on every execution; the coordinator has no
// server-side prepare in this protocol.
type stmt struct {
	conn  *conn
	query string
}

var (
	_ driver.StmtQueryContext = (*stmt)(nil)
	_ driver.StmtExecContext  = (*stmt)(nil)
)

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), named(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), named(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func named(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, v := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

// --- Transaction ---

type tx struct {
	conn *conn
}

func (t *tx) Commit() error {
	_, err := t.conn.exec(context.Background(), "COMMIT")
	return err
}

func (t *tx) Rollback() error {
	_, err := t.conn.exec(context.Background(), "ROLLBACK")
	return err
}
