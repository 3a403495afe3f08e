package mysqlmcp

import (
	"context"
	"database/sql"
	"encoding/base64"
	"time"

	"github.com/rickchristie/mysql-mcp/internal/pool"
	"github.com/rickchristie/mysql-mcp/internal/validator"
)

// ExecuteQuery runs a read-only SQL statement and returns the shaped result
// set. The statement is classified before a connection is acquired, so a
// rejected write never consumes pool capacity.
func (m *MySQLMcp) ExecuteQuery(ctx context.Context, input QueryInput) (*QueryOutput, *ToolError) {
	decision := validator.Classify(input.Query)
	if !decision.Allowed {
		m.logger.Warn().
			Str("reason", string(decision.Reason)).
			Msg("Query rejected")
		return nil, rejectionError(decision.Reason)
	}

	start := time.Now()
	out, te := m.runQuery(ctx, decision.Normalized)
	elapsed := time.Since(start)

	if te != nil {
		m.logger.Error().
			Str("kind", string(te.Kind)).
			Dur("elapsed", elapsed).
			Msg("Query failed")
		return nil, te
	}

	m.logger.Info().
		Int("rows", out.RowCount).
		Bool("truncated", out.Truncated).
		Dur("elapsed", elapsed).
		Msg("Query executed")
	return out, nil
}

func (m *MySQLMcp) runQuery(ctx context.Context, query string) (*QueryOutput, *ToolError) {
	timeout := time.Duration(m.config.Query.TimeoutMillis) * time.Millisecond
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := m.pool.Acquire(queryCtx)
	if err != nil {
		return nil, classifyDBError(err)
	}

	out, te := m.queryOnConn(queryCtx, conn, query)
	if te != nil && isConnErr(te) {
		// The session may be left mid-protocol after a timeout or transport
		// error. Never return it to the pool.
		m.pool.Discard(conn)
		return nil, te
	}
	m.pool.Release(conn)
	return out, te
}

func (m *MySQLMcp) queryOnConn(ctx context.Context, conn *pool.Conn, query string) (*QueryOutput, *ToolError) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyDBError(err)
	}
	defer rows.Close()

	out, err := m.collectRows(rows)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if m.sanitizer.HasRules() {
		out.Rows = m.sanitizer.SanitizeRows(out.Rows)
	}
	return out, nil
}

func (m *MySQLMcp) collectRows(rows *sql.Rows) (*QueryOutput, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	out := &QueryOutput{
		Columns: make([]ColumnMeta, len(cols)),
		Rows:    [][]any{},
	}
	binary := make([]bool, len(cols))
	for i, col := range cols {
		out.Columns[i] = ColumnMeta{Name: col.Name(), Type: col.DatabaseTypeName()}
		binary[i] = isBinaryType(col.DatabaseTypeName())
	}

	limit := m.config.Query.RowLimit
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(any)
	}

	for len(out.Rows) < limit && rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		row := make([]any, len(cols))
		for i := range scan {
			row[i] = convertValue(*(scan[i].(*any)), binary[i])
		}
		out.Rows = append(out.Rows, row)
	}
	// One extra probe tells us whether the cap actually cut anything off.
	if len(out.Rows) == limit && rows.Next() {
		out.Truncated = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.RowCount = len(out.Rows)
	return out, nil
}

func rejectionError(reason validator.Reason) *ToolError {
	switch reason {
	case validator.ReasonWriteOperation:
		return toolErrorf(KindWriteOperationRejected,
			"only read-only statements are allowed: SELECT, SHOW, DESCRIBE, DESC, EXPLAIN")
	case validator.ReasonMultiStatement:
		return toolErrorf(KindMultiStatementRejected,
			"multiple statements are not allowed; send one statement per call")
	default:
		return toolErrorf(KindEmptyQueryRejected, "query is empty")
	}
}

// convertValue maps driver values to JSON-friendly representations. The MySQL
// driver hands back []byte for most text columns; binary column types are
// base64-encoded instead so arbitrary bytes survive the JSON trip.
func convertValue(v any, binaryCol bool) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if binaryCol {
			return base64.StdEncoding.EncodeToString(val)
		}
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}

func isBinaryType(dbType string) bool {
	switch dbType {
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"BINARY", "VARBINARY", "BIT", "GEOMETRY":
		return true
	}
	return false
}
