package mysqlmcp

import (
	"context"
	"time"
)

const listTablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = ?
	ORDER BY table_name
`

// ListTables returns the table names in the given database, or in the
// configured default database when none is given.
func (m *MySQLMcp) ListTables(ctx context.Context, input ListTablesInput) (*ListTablesOutput, *ToolError) {
	database := input.Database
	if database == "" {
		database = m.config.Connection.Database
	}
	if database == "" {
		return nil, toolErrorf(KindMissingArgument,
			"list_tables requires a \"database\" argument when no default database is configured")
	}

	timeout := time.Duration(m.config.Query.TimeoutMillis) * time.Millisecond
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return nil, classifyDBError(err)
	}

	tables, te := func() ([]string, *ToolError) {
		rows, err := conn.QueryContext(queryCtx, listTablesQuery, database)
		if err != nil {
			return nil, classifyDBError(err)
		}
		defer rows.Close()

		tables := []string{}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, classifyDBError(err)
			}
			tables = append(tables, name)
		}
		if err := rows.Err(); err != nil {
			return nil, classifyDBError(err)
		}
		return tables, nil
	}()

	if te != nil && isConnErr(te) {
		m.pool.Discard(conn)
		return nil, te
	}
	m.pool.Release(conn)
	if te != nil {
		return nil, te
	}

	m.logger.Debug().
		Str("database", database).
		Int("count", len(tables)).
		Msg("Listed tables")
	return &ListTablesOutput{Database: database, Tables: tables}, nil
}
