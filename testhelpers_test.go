package mysqlmcp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeEngineState is shared between a test and its fake driver. Stubs are
// matched against executed queries by substring, first match wins.
type fakeEngineState struct {
	mu      sync.Mutex
	stubs   []queryStub
	queries []string
	opened  int
	pingErr error

	// blockMatch makes matching queries hang until their context expires,
	// simulating a slow server.
	blockMatch string
}

type queryStub struct {
	match string
	cols  []string
	rows  [][]driver.Value
	err   error
}

func (s *fakeEngineState) addStub(match string, cols []string, rows [][]driver.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = append(s.stubs, queryStub{match: match, cols: cols, rows: rows})
}

func (s *fakeEngineState) addErrStub(match string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = append(s.stubs, queryStub{match: match, err: err})
}

func (s *fakeEngineState) recordedQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

type fakeEngineDriver struct {
	state *fakeEngineState
}

func (d *fakeEngineDriver) Open(name string) (driver.Conn, error) {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	d.state.opened++
	return &fakeEngineConn{state: d.state}, nil
}

type fakeEngineConn struct {
	state *fakeEngineState
}

func (c *fakeEngineConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("fake conn: prepare not supported")
}

func (c *fakeEngineConn) Close() error { return nil }

func (c *fakeEngineConn) Begin() (driver.Tx, error) {
	return nil, errors.New("fake conn: transactions not supported")
}

func (c *fakeEngineConn) Ping(ctx context.Context) error {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.pingErr
}

func (c *fakeEngineConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.state.mu.Lock()
	c.state.queries = append(c.state.queries, query)
	block := c.state.blockMatch != "" && strings.Contains(query, c.state.blockMatch)
	stubs := c.state.stubs
	c.state.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for _, stub := range stubs {
		if strings.Contains(query, stub.match) {
			if stub.err != nil {
				return nil, stub.err
			}
			return &fakeEngineRows{cols: stub.cols, rows: stub.rows}, nil
		}
	}
	return nil, errors.New("fake conn: no stub for query: " + query)
}

type fakeEngineRows struct {
	cols []string
	rows [][]driver.Value
	pos  int
}

func (r *fakeEngineRows) Columns() []string { return r.cols }
func (r *fakeEngineRows) Close() error      { return nil }

func (r *fakeEngineRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

// newTestEngine builds a MySQLMcp over a fake driver registered under a
// per-test name. The engine never dials anything real.
func newTestEngine(t *testing.T, cfg Config, state *fakeEngineState) *MySQLMcp {
	t.Helper()

	name := "enginefake-" + t.Name()
	sql.Register(name, &fakeEngineDriver{state: state})
	db, err := sql.Open(name, "fake")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}

	m, err := New(context.Background(), cfg, zerolog.Nop(), WithDB(db))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}
