package mysqlmcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/rickchristie/mysql-mcp/internal/pool"
)

// ErrorKind is the closed taxonomy of tool error kinds. Driver-level errors
// are always translated into one of these; raw driver errors never cross the
// tool boundary.
type ErrorKind string

const (
	KindPoolExhausted          ErrorKind = "PoolExhausted"
	KindConnectionBroken       ErrorKind = "ConnectionBroken"
	KindWriteOperationRejected ErrorKind = "WriteOperationRejected"
	KindMultiStatementRejected ErrorKind = "MultiStatementRejected"
	KindEmptyQueryRejected     ErrorKind = "EmptyQueryRejected"
	KindMissingArgument        ErrorKind = "MissingArgument"
	KindUnknownTool            ErrorKind = "UnknownTool"
	KindQueryTimeout           ErrorKind = "QueryTimeout"
	KindDatabaseUnreachable    ErrorKind = "DatabaseUnreachable"
	// KindQueryFailed covers server-side errors on otherwise valid read
	// statements (bad syntax, unknown table, permissions).
	KindQueryFailed ErrorKind = "QueryFailed"
)

// ToolError is the error half of a ToolResult.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func toolErrorf(kind ErrorKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// classifyDBError translates a pool or driver error into the tool taxonomy.
func classifyDBError(err error) *ToolError {
	switch {
	case errors.Is(err, pool.ErrExhausted):
		return toolErrorf(KindPoolExhausted, "no database connection became available: %v", err)
	case errors.Is(err, pool.ErrClosed):
		return toolErrorf(KindConnectionBroken, "connection pool is closed")
	case errors.Is(err, context.DeadlineExceeded):
		return toolErrorf(KindQueryTimeout, "query exceeded its timeout and was abandoned")
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn):
		return toolErrorf(KindConnectionBroken, "database connection is broken: %v", err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return toolErrorf(KindQueryFailed, "MySQL error %d: %s", mysqlErr.Number, mysqlErr.Message)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return toolErrorf(KindDatabaseUnreachable, "database is unreachable: %v", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return toolErrorf(KindDatabaseUnreachable, "database is unreachable: %v", err)
	}

	return toolErrorf(KindQueryFailed, "%v", err)
}

// isConnErr reports whether the error indicates the connection's state is
// unknown, meaning it must be discarded rather than returned to the pool.
func isConnErr(te *ToolError) bool {
	switch te.Kind {
	case KindQueryTimeout, KindConnectionBroken, KindDatabaseUnreachable:
		return true
	}
	return false
}
