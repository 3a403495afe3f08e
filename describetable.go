package mysqlmcp

import (
	"context"
	"database/sql"
	"time"
)

const describeTableQuery = `
	SELECT column_name, column_type, is_nullable, column_key, column_default, extra
	FROM information_schema.columns
	WHERE table_schema = ? AND table_name = ?
	ORDER BY ordinal_position
`

// DescribeTable returns the column definitions of a table. The table name is
// never interpolated into SQL: lookup goes through information_schema with
// bound parameters.
func (m *MySQLMcp) DescribeTable(ctx context.Context, input DescribeTableInput) (*DescribeTableOutput, *ToolError) {
	database := input.Database
	if database == "" {
		database = m.config.Connection.Database
	}
	if database == "" {
		return nil, toolErrorf(KindMissingArgument,
			"describe_table requires a \"database\" argument when no default database is configured")
	}

	timeout := time.Duration(m.config.Query.TimeoutMillis) * time.Millisecond
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return nil, classifyDBError(err)
	}

	columns, te := func() ([]ColumnInfo, *ToolError) {
		rows, err := conn.QueryContext(queryCtx, describeTableQuery, database, input.Table)
		if err != nil {
			return nil, classifyDBError(err)
		}
		defer rows.Close()

		columns := []ColumnInfo{}
		for rows.Next() {
			var (
				col      ColumnInfo
				nullable string
				dflt     sql.NullString
			)
			if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Key, &dflt, &col.Extra); err != nil {
				return nil, classifyDBError(err)
			}
			col.Nullable = nullable == "YES"
			if dflt.Valid {
				col.Default = &dflt.String
			}
			columns = append(columns, col)
		}
		if err := rows.Err(); err != nil {
			return nil, classifyDBError(err)
		}
		return columns, nil
	}()

	if te != nil && isConnErr(te) {
		m.pool.Discard(conn)
		return nil, te
	}
	m.pool.Release(conn)
	if te != nil {
		return nil, te
	}

	if len(columns) == 0 {
		return nil, toolErrorf(KindQueryFailed,
			"table %q not found in database %q", input.Table, database)
	}

	m.logger.Debug().
		Str("database", database).
		Str("table", input.Table).
		Int("columns", len(columns)).
		Msg("Described table")
	return &DescribeTableOutput{Database: database, Table: input.Table, Columns: columns}, nil
}
