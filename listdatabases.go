package mysqlmcp

import (
	"context"
	"time"
)

// ListDatabases returns the names of all databases visible to the configured
// user, in server order.
func (m *MySQLMcp) ListDatabases(ctx context.Context) (*ListDatabasesOutput, *ToolError) {
	timeout := time.Duration(m.config.Query.TimeoutMillis) * time.Millisecond
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return nil, classifyDBError(err)
	}

	names, te := func() ([]string, *ToolError) {
		rows, err := conn.QueryContext(queryCtx, "SHOW DATABASES")
		if err != nil {
			return nil, classifyDBError(err)
		}
		defer rows.Close()

		names := []string{}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, classifyDBError(err)
			}
			names = append(names, name)
		}
		if err := rows.Err(); err != nil {
			return nil, classifyDBError(err)
		}
		return names, nil
	}()

	if te != nil && isConnErr(te) {
		m.pool.Discard(conn)
		return nil, te
	}
	m.pool.Release(conn)
	if te != nil {
		return nil, te
	}

	m.logger.Debug().Int("count", len(names)).Msg("Listed databases")
	return &ListDatabasesOutput{Databases: names}, nil
}
