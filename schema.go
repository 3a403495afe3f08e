package mysqlmcp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const schemaDumpQuery = `
	SELECT table_name, column_name, column_type, is_nullable, column_key, extra
	FROM information_schema.columns
	WHERE table_schema = ?
	ORDER BY table_name, ordinal_position
`

// SchemaDump renders a plain-text description of every table in a database,
// one block per table. Served as the schema:// MCP resource.
func (m *MySQLMcp) SchemaDump(ctx context.Context, database string) (string, *ToolError) {
	if database == "" {
		database = m.config.Connection.Database
	}
	if database == "" {
		return "", toolErrorf(KindMissingArgument, "no database given and no default database configured")
	}

	timeout := time.Duration(m.config.Query.TimeoutMillis) * time.Millisecond
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return "", classifyDBError(err)
	}

	dump, te := func() (string, *ToolError) {
		rows, err := conn.QueryContext(queryCtx, schemaDumpQuery, database)
		if err != nil {
			return "", classifyDBError(err)
		}
		defer rows.Close()

		var (
			b         strings.Builder
			lastTable string
		)
		for rows.Next() {
			var table, name, colType, nullable, key string
			var extra sql.NullString
			if err := rows.Scan(&table, &name, &colType, &nullable, &key, &extra); err != nil {
				return "", classifyDBError(err)
			}
			if table != lastTable {
				if lastTable != "" {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "Table: %s\n", table)
				lastTable = table
			}
			fmt.Fprintf(&b, "  %s %s", name, colType)
			if nullable == "NO" {
				b.WriteString(" NOT NULL")
			}
			if key == "PRI" {
				b.WriteString(" PRIMARY KEY")
			}
			if extra.Valid && strings.Contains(extra.String, "auto_increment") {
				b.WriteString(" AUTO_INCREMENT")
			}
			b.WriteString("\n")
		}
		if err := rows.Err(); err != nil {
			return "", classifyDBError(err)
		}
		if lastTable == "" {
			return fmt.Sprintf("Database %q has no tables.\n", database), nil
		}
		return b.String(), nil
	}()

	if te != nil && isConnErr(te) {
		m.pool.Discard(conn)
		return "", te
	}
	m.pool.Release(conn)
	if te != nil {
		return "", te
	}
	return dump, nil
}
