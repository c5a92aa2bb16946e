package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrPoolClosed is returned by Acquire once Close has been called.
var ErrPoolClosed = errors.New("pool is closed")

// Options describes how to reach the database. URL, when set, is used as
// the DSN verbatim and the individual fields are ignored.
type Options struct {
	Driver   string
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	Table    string
}

// DSN builds the data source name handed to the driver.
func (o Options) DSN() string {
	if o.URL != "" {
		return o.URL
	}

	if o.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite", o.Database)
	}

	host := o.Host
	if o.Port > 0 {
		host = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.User, o.Password),
		Host:   host,
		Path:   "/" + o.Database,
	}
	if o.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {o.SSLMode}}.Encode()
	}
	return u.String()
}

// ValidateTable reports whether name can be used unquoted as a table name.
func ValidateTable(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTable, name)
	}
	return nil
}

// Pool is a bounded set of database connections shared by every request.
type Pool struct {
	db      *sql.DB
	dialect dialect
	table   string

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Conn is a checked-out connection. Close hands it back to the pool.
type Conn struct {
	*sql.Conn
	release sync.Once
	done    func()
}

func (c *Conn) Close() error {
	err := c.Conn.Close()
	c.release.Do(c.done)
	return err
}

// Open creates the pool and verifies the database is reachable. It does
// not retry.
func Open(ctx context.Context, opts Options) (*Pool, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if err := ValidateTable(opts.Table); err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
		db.SetMaxIdleConns(min(opts.MaxConns, 16))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &Pool{
		db:      db,
		dialect: d,
		table:   strings.ToLower(opts.Table),
	}, nil
}

// Acquire checks out one connection. Callers must Close it to hand it back.
// When the pool is at its bound, Acquire waits until a connection frees up
// or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.inflight.Done()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{Conn: conn, done: p.inflight.Done}, nil
}

// WithConn runs fn on a checked-out connection and returns it to the pool
// on every exit path, including panics.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn.Conn)
}

// Ping checks that the database still answers.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stats reports open and in-use connections.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Table is the lower-cased name of the poll table.
func (p *Pool) Table() string {
	return p.table
}

// Close refuses new checkouts, waits for outstanding ones to be handed
// back and then closes every connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()
	return p.db.Close()
}
