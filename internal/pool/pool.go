// Package pool implements a bounded MySQL connection pool with explicit
// acquire/release semantics, lazy connection establishment, and a background
// keep-alive loop that evicts dead connections.
//
// The pool never dials at construction time: a briefly unreachable database
// surfaces as failed acquires (and a DOWN health status), not a startup error.
package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// ErrExhausted is returned by Acquire when no connection became available
// within the acquire deadline.
var ErrExhausted = errors.New("pool: all connections are in use")

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool: closed")

// Config holds the pool's connection parameters and limits.
// Immutable after New.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// Size is the maximum number of concurrently checked-out connections.
	Size int

	// ConnectTimeout bounds dialing a new connection and keep-alive pings.
	ConnectTimeout time.Duration

	// AcquireTimeout bounds how long Acquire may block waiting for a free
	// slot before failing with ErrExhausted. Zero means the caller's context
	// is the only bound.
	AcquireTimeout time.Duration

	// KeepAliveInterval is the idle-connection ping cadence. Zero disables
	// the keep-alive loop.
	KeepAliveInterval time.Duration
}

// Conn is a single live database session, exclusively owned by its holder
// between Acquire and Release/Discard.
type Conn struct {
	id         int64
	sc         *sql.Conn
	lastActive time.Time
}

// ID returns the connection's pool-unique identity.
func (c *Conn) ID() int64 { return c.id }

// QueryContext runs a query on this connection.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.sc.QueryContext(ctx, query, args...)
}

// PingContext verifies the connection is still alive.
func (c *Conn) PingContext(ctx context.Context) error {
	return c.sc.PingContext(ctx)
}

// destroy tears down the underlying session. Raw returning driver.ErrBadConn
// tells database/sql to drop the session instead of recycling it.
func (c *Conn) destroy() {
	_ = c.sc.Raw(func(any) error { return driver.ErrBadConn })
	_ = c.sc.Close()
}

// Stats is a point-in-time view of pool bookkeeping.
type Stats struct {
	Size     int
	InUse    int
	Idle     int
	Acquires int64
}

// Pool owns a bounded set of database sessions. All bookkeeping is guarded
// by a single mutex; query execution happens outside it, so two concurrent
// holders never block each other beyond the brief acquire/release step.
type Pool struct {
	db     *sql.DB
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	idle     []*Conn
	total    int // idle + checked out
	waiters  []chan *Conn
	nextID   int64
	acquires int64
	closed   bool

	stopKeepAlive chan struct{}
}

// New creates a Pool over go-sql-driver/mysql. It does not dial.
func New(cfg Config, logger zerolog.Logger) (*Pool, error) {
	mc, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("pool: invalid connection config: %w", err)
	}
	db := sql.OpenDB(connector)
	return NewWithDB(db, cfg, logger)
}

// NewWithDB creates a Pool over an existing *sql.DB, which acts purely as
// the session factory. Used by New and by tests that register a fake driver.
func NewWithDB(db *sql.DB, cfg Config, logger zerolog.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("pool: size must be > 0, got %d", cfg.Size)
	}
	db.SetMaxOpenConns(cfg.Size)
	db.SetMaxIdleConns(cfg.Size)
	db.SetConnMaxLifetime(0)

	p := &Pool{
		db:            db,
		cfg:           cfg,
		logger:        logger,
		stopKeepAlive: make(chan struct{}),
	}
	if cfg.KeepAliveInterval > 0 {
		go p.keepAlive()
	}
	return p, nil
}

func driverConfig(cfg Config) (*mysql.Config, error) {
	if cfg.Host == "" {
		return nil, errors.New("pool: host must be non-empty")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("pool: port must be > 0, got %d", cfg.Port)
	}
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.Timeout = cfg.ConnectTimeout
	mc.ParseTime = true
	return mc, nil
}

// Acquire checks out a connection, dialing lazily up to Size. When the pool
// is at capacity it waits in FIFO order until a connection is released, the
// acquire deadline passes (ErrExhausted), or the caller's context ends.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.acquires++
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if n := len(p.idle); n > 0 {
			c := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()
			c.lastActive = time.Now()
			return c, nil
		}
		if p.total < p.cfg.Size {
			p.total++
			p.nextID++
			id := p.nextID
			p.mu.Unlock()
			return p.dial(ctx, id)
		}

		ch := make(chan *Conn, 1)
		p.waiters = append(p.waiters, ch)
		p.mu.Unlock()

		select {
		case c := <-ch:
			if c != nil {
				c.lastActive = time.Now()
				return c, nil
			}
			// A slot was freed without a reusable connection; retry.
		case <-ctx.Done():
			if !p.removeWaiter(ch) {
				// The channel was already popped, so a handoff is committed
				// and a value will arrive. Receive it, or the connection is
				// stranded in the abandoned buffer and its slot lost.
				if c := <-ch; c != nil {
					p.Release(c)
				} else {
					p.mu.Lock()
					if !p.closed {
						p.notifySlotFreedLocked()
					}
					p.mu.Unlock()
				}
			}
			return nil, fmt.Errorf("%w (size %d): %v", ErrExhausted, p.cfg.Size, ctx.Err())
		}
	}
}

func (p *Pool) dial(ctx context.Context, id int64) (*Conn, error) {
	sc, err := p.db.Conn(ctx)
	if err != nil {
		p.mu.Lock()
		p.total--
		p.notifySlotFreedLocked()
		p.mu.Unlock()
		return nil, fmt.Errorf("pool: failed to establish connection: %w", err)
	}
	p.logger.Debug().Int64("conn_id", id).Msg("connection established")
	return &Conn{id: id, sc: sc, lastActive: time.Now()}, nil
}

// Release returns a healthy connection to the idle set, handing it directly
// to the longest-waiting acquirer if one exists.
func (p *Pool) Release(c *Conn) {
	c.lastActive = time.Now()
	p.mu.Lock()
	if p.closed {
		p.total--
		p.mu.Unlock()
		c.destroy()
		return
	}
	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		ch <- c
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Discard destroys a connection whose state is unknown (failed ping, query
// timeout mid-flight) and frees its slot for lazy recreation.
func (p *Pool) Discard(c *Conn) {
	c.destroy()
	p.mu.Lock()
	p.total--
	p.notifySlotFreedLocked()
	p.mu.Unlock()
	p.logger.Debug().Int64("conn_id", c.id).Msg("connection discarded")
}

// notifySlotFreedLocked wakes one waiter so it can dial into the freed slot.
func (p *Pool) notifySlotFreedLocked() {
	if len(p.waiters) == 0 {
		return
	}
	ch := p.waiters[0]
	p.waiters = p.waiters[1:]
	ch <- nil
}

// removeWaiter unregisters a cancelled waiter. It reports whether the channel
// was still queued; false means Release, Discard, or Close already popped it
// and a send on the channel is guaranteed.
func (p *Pool) removeWaiter(ch chan *Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Ping performs one acquire/ping/release round trip. A failed ping discards
// the connection.
func (p *Pool) Ping(ctx context.Context) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := c.PingContext(ctx); err != nil {
		p.Discard(c)
		return fmt.Errorf("pool: ping failed: %w", err)
	}
	p.Release(c)
	return nil
}

// Stats returns current pool bookkeeping under a brief, bounded lock.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:     p.cfg.Size,
		InUse:    p.total - len(p.idle),
		Idle:     len(p.idle),
		Acquires: p.acquires,
	}
}

// PingOnce dials a single standalone connection with the given parameters,
// pings it, and tears it down. Used to validate credentials that differ from
// the pool's own configuration without the pool ever holding the session.
func PingOnce(ctx context.Context, cfg Config) error {
	mc, err := driverConfig(cfg)
	if err != nil {
		return err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return fmt.Errorf("pool: invalid connection config: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	db.SetMaxOpenConns(1)
	return db.PingContext(ctx)
}

// keepAlive pings idle connections on each tick and evicts any that fail,
// leaving their slots to be lazily refilled on the next acquire.
func (p *Pool) keepAlive() {
	ticker := time.NewTicker(p.cfg.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopKeepAlive:
			return
		case <-ticker.C:
			p.checkIdle()
		}
	}
}

func (p *Pool) checkIdle() {
	p.mu.Lock()
	conns := p.idle
	p.idle = nil
	p.mu.Unlock()

	timeout := p.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := c.PingContext(ctx)
		cancel()
		if err != nil {
			p.logger.Warn().Int64("conn_id", c.id).Err(err).Msg("idle connection failed keep-alive ping")
			p.Discard(c)
			continue
		}
		p.Release(c)
	}
}

// Close stops the keep-alive loop, destroys idle connections, fails pending
// waiters, and closes the underlying session factory.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stopKeepAlive)
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, c := range idle {
		c.destroy()
	}
	for _, ch := range waiters {
		ch <- nil
	}
	_ = p.db.Close()
}
