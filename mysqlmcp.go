package mysqlmcp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rickchristie/mysql-mcp/internal/health"
	"github.com/rickchristie/mysql-mcp/internal/pool"
	"github.com/rickchristie/mysql-mcp/internal/sanitize"
)

// MySQLMcp is the core engine behind the five tools: ConnectDB,
// ListDatabases, ListTables, DescribeTable, and ExecuteQuery.
// All exported methods are safe for concurrent use from multiple goroutines.
type MySQLMcp struct {
	config       Config
	pool         *pool.Pool
	sanitizer    *sanitize.Sanitizer
	errPrompts   []compiledErrPrompt
	monitor      *health.Monitor
	logger       zerolog.Logger
	lastActivity atomic.Int64 // unix nanos of the last dispatched tool call
}

type compiledErrPrompt struct {
	pattern *regexp.Regexp
	message string
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	db *sql.DB
}

// WithDB supplies an existing *sql.DB as the pool's session factory instead
// of dialing MySQL from Config.Connection. Used by tests and by callers that
// configure the driver themselves.
func WithDB(db *sql.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// New creates a new MySQLMcp instance. It never dials the database: an
// unreachable MySQL shows up as DOWN health status and failed tool calls,
// not a constructor error.
// Panics on invalid config. Returns error only for runtime failures.
func New(ctx context.Context, config Config, logger zerolog.Logger, opts ...Option) (*MySQLMcp, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// --- Config validation (panics on invalid config) ---

	if config.Pool.Size < 0 {
		panic("mysqlmcp: pool.size must be > 0")
	}
	if config.Query.RowLimit < 0 {
		panic("mysqlmcp: query.row_limit must be > 0")
	}
	if config.Query.TimeoutMillis < 0 {
		panic("mysqlmcp: query.timeout_ms must be > 0")
	}

	// Apply defaults for zero values
	if config.Pool.Size == 0 {
		config.Pool.Size = 10
	}
	if config.Pool.ConnectTimeoutSeconds == 0 {
		config.Pool.ConnectTimeoutSeconds = 10
	}
	if config.Query.RowLimit == 0 {
		config.Query.RowLimit = 1000
	}
	if config.Query.TimeoutMillis == 0 {
		config.Query.TimeoutMillis = 10000
	}
	if config.Health.IntervalSeconds == 0 {
		config.Health.IntervalSeconds = 30
	}

	// --- Compile configured rules ---

	san, err := sanitize.NewSanitizer(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}
	prompts := make([]compiledErrPrompt, len(config.ErrorPrompts))
	for i, rule := range config.ErrorPrompts {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			panic(fmt.Sprintf("mysqlmcp: invalid error_prompts pattern %q: %v", rule.Pattern, err))
		}
		prompts[i] = compiledErrPrompt{pattern: re, message: rule.Message}
	}

	// --- Build pool ---

	queryTimeout := time.Duration(config.Query.TimeoutMillis) * time.Millisecond
	poolCfg := pool.Config{
		Host:     config.Connection.Host,
		Port:     config.Connection.Port,
		User:     config.Connection.User,
		Password: config.Connection.Password,
		Database: config.Connection.Database,
		Size:     config.Pool.Size,

		ConnectTimeout: time.Duration(config.Pool.ConnectTimeoutSeconds) * time.Second,
		// A caller waiting on the pool is bounded by the same budget as the
		// query itself, so a full pool cannot hang the protocol loop.
		AcquireTimeout:    queryTimeout,
		KeepAliveInterval: time.Duration(config.Pool.KeepAliveIntervalSeconds) * time.Second,
	}

	var p *pool.Pool
	if o.db != nil {
		p, err = pool.NewWithDB(o.db, poolCfg, logger)
	} else {
		p, err = pool.New(poolCfg, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	monitor := health.NewMonitor(p, health.Config{
		Interval:    time.Duration(config.Health.IntervalSeconds) * time.Second,
		PingTimeout: queryTimeout,
	}, logger)

	return &MySQLMcp{
		config:     config,
		pool:       p,
		sanitizer:  san,
		errPrompts: prompts,
		monitor:    monitor,
		logger:     logger,
	}, nil
}

// Ping performs one acquire/ping/release round trip against the database.
func (m *MySQLMcp) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

// RunHealthMonitor runs the liveness poller until ctx is cancelled. It is
// scheduled independently of the tool-dispatch path and shares no lock with
// it beyond brief pool-state reads.
func (m *MySQLMcp) RunHealthMonitor(ctx context.Context) {
	m.monitor.Run(ctx)
}

// HealthHandler serves the liveness snapshot: 200 when UP, 503 otherwise.
func (m *MySQLMcp) HealthHandler() http.HandlerFunc {
	return m.monitor.Handler()
}

// LastActivity returns the time of the most recent dispatched tool call,
// or the zero time if none happened yet. Used by the idle-shutdown watchdog.
func (m *MySQLMcp) LastActivity() time.Time {
	n := m.lastActivity.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (m *MySQLMcp) touch() {
	m.lastActivity.Store(time.Now().UnixNano())
}

// Close closes the connection pool.
func (m *MySQLMcp) Close(ctx context.Context) {
	m.pool.Close()
}

// decorate appends any matching error-prompt guidance to the error message.
func (m *MySQLMcp) decorate(te *ToolError) *ToolError {
	var matches []string
	for _, rule := range m.errPrompts {
		if rule.pattern.MatchString(te.Message) {
			matches = append(matches, rule.message)
		}
	}
	if len(matches) == 0 {
		return te
	}
	return &ToolError{Kind: te.Kind, Message: te.Message + "\n\n" + strings.Join(matches, "\n")}
}

// mapSanitizationRules converts config SanitizationRules to internal sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
		}
	}
	return result
}
