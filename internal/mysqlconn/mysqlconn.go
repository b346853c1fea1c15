// Package mysqlconn provides the default session.Session implementation,
// backed by database/sql and the go-sql-driver/mysql driver. Each Session
// wraps exactly one physical MySQL connection: we cap the underlying
// *sql.DB at MaxOpenConns(1) so database/sql's own pooling never doubles up
// with ours, mirroring how the teacher pool wraps *sql.DB per PooledConn.
package mysqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/polaris-dbpool/dbpool/pkg/session"
)

// Endpoint identifies a MySQL host:port.
type Endpoint struct {
	Host string
	Port uint16
}

// Credentials authenticates against a MySQL server and selects a schema.
type Credentials struct {
	Username string
	Password string
	Database string
}

// Conn is a session.Session backed by a single *sql.DB connection.
type Conn struct {
	endpoint    Endpoint
	credentials Credentials
	dialTimeout time.Duration

	db *sql.DB
}

// New returns an unopened Conn for the given endpoint and credentials.
func New(endpoint Endpoint, credentials Credentials, dialTimeout time.Duration) *Conn {
	return &Conn{endpoint: endpoint, credentials: credentials, dialTimeout: dialTimeout}
}

// Opener builds a session.Opener that opens a fresh Conn on every call,
// suitable for passing to poolcore.New.
func Opener(endpoint Endpoint, credentials Credentials, dialTimeout time.Duration) session.Opener {
	return func(ctx context.Context) (session.Session, error) {
		c := New(endpoint, credentials, dialTimeout)
		if err := c.Open(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// dsn renders the go-sql-driver/mysql DSN for this endpoint/credentials.
func (c *Conn) dsn() string {
	timeout := c.dialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s&parseTime=true",
		c.credentials.Username, c.credentials.Password,
		c.endpoint.Host, c.endpoint.Port,
		c.credentials.Database, timeout)
}

// Open dials the MySQL server and verifies reachability with a ping.
func (c *Conn) Open(ctx context.Context) error {
	db, err := sql.Open("mysql", c.dsn())
	if err != nil {
		return fmt.Errorf("mysqlconn: open: %w", err)
	}

	// One physical connection per Conn — the pool, not database/sql, owns
	// lifecycle and reuse decisions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("mysqlconn: ping: %w", err)
	}

	c.db = db
	return nil
}

// Close releases the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Ping verifies the connection is still reachable.
func (c *Conn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Execute runs a statement via database/sql's ExecContext.
func (c *Conn) Execute(ctx context.Context, statement string, args ...any) (session.Result, error) {
	res, err := c.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return session.Result{}, fmt.Errorf("mysqlconn: exec: %w", err)
	}

	id, _ := res.LastInsertId()
	affected, _ := res.RowsAffected()
	return session.Result{LastInsertID: id, RowsAffected: affected}, nil
}
