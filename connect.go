package mysqlmcp

import (
	"context"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/pool"
)

// ConnectDB verifies database connectivity. Without overrides it round-trips
// a ping through the pool. With overrides it dials a throwaway session with
// the merged settings, so the pool stays the only long-lived session holder.
func (m *MySQLMcp) ConnectDB(ctx context.Context, input ConnectInput) (*ConnectOutput, *ToolError) {
	timeout := time.Duration(m.config.Query.TimeoutMillis) * time.Millisecond
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !input.hasOverrides() {
		if err := m.pool.Ping(pingCtx); err != nil {
			return nil, classifyDBError(err)
		}
		return &ConnectOutput{
			Connected: true,
			Host:      m.config.Connection.Host,
			Port:      m.config.Connection.Port,
			Database:  m.config.Connection.Database,
		}, nil
	}

	cfg := m.mergedPoolConfig(input)
	if err := pool.PingOnce(pingCtx, cfg); err != nil {
		return nil, classifyDBError(err)
	}
	return &ConnectOutput{
		Connected: true,
		Host:      cfg.Host,
		Port:      cfg.Port,
		Database:  cfg.Database,
	}, nil
}

func (in ConnectInput) hasOverrides() bool {
	return in.Host != "" || in.Port != 0 || in.User != "" || in.Password != "" || in.Database != ""
}

// mergedPoolConfig overlays the request's override fields on the configured
// connection settings.
func (m *MySQLMcp) mergedPoolConfig(in ConnectInput) pool.Config {
	cfg := pool.Config{
		Host:           m.config.Connection.Host,
		Port:           m.config.Connection.Port,
		User:           m.config.Connection.User,
		Password:       m.config.Connection.Password,
		Database:       m.config.Connection.Database,
		ConnectTimeout: time.Duration(m.config.Pool.ConnectTimeoutSeconds) * time.Second,
	}
	if in.Host != "" {
		cfg.Host = in.Host
	}
	if in.Port != 0 {
		cfg.Port = in.Port
	}
	if in.User != "" {
		cfg.User = in.User
	}
	if in.Password != "" {
		cfg.Password = in.Password
	}
	if in.Database != "" {
		cfg.Database = in.Database
	}
	return cfg
}
