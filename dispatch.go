package mysqlmcp

import (
	"context"
	"fmt"
)

type toolKind int

const (
	toolUnknown toolKind = iota
	toolConnectDB
	toolListDatabases
	toolListTables
	toolDescribeTable
	toolExecuteQuery
)

func parseToolKind(name string) toolKind {
	switch name {
	case "connect_db":
		return toolConnectDB
	case "list_databases":
		return toolListDatabases
	case "list_tables":
		return toolListTables
	case "describe_table":
		return toolDescribeTable
	case "execute_query":
		return toolExecuteQuery
	default:
		return toolUnknown
	}
}

// Dispatch routes a tool request to its handler. Argument validation happens
// here, before any connection is acquired: a malformed request never touches
// the pool.
func (m *MySQLMcp) Dispatch(ctx context.Context, req ToolRequest) ToolResult {
	m.touch()

	fail := func(te *ToolError) ToolResult {
		return ToolResult{ID: req.ID, Err: m.decorate(te)}
	}
	ok := func(data any) ToolResult {
		return ToolResult{ID: req.ID, Data: data}
	}

	switch parseToolKind(req.Name) {
	case toolConnectDB:
		in := ConnectInput{
			Host:     stringArg(req.Args, "host"),
			Port:     intArg(req.Args, "port"),
			User:     stringArg(req.Args, "user"),
			Password: stringArg(req.Args, "password"),
			Database: stringArg(req.Args, "database"),
		}
		out, te := m.ConnectDB(ctx, in)
		if te != nil {
			return fail(te)
		}
		return ok(out)

	case toolListDatabases:
		out, te := m.ListDatabases(ctx)
		if te != nil {
			return fail(te)
		}
		return ok(out)

	case toolListTables:
		in := ListTablesInput{Database: stringArg(req.Args, "database")}
		out, te := m.ListTables(ctx, in)
		if te != nil {
			return fail(te)
		}
		return ok(out)

	case toolDescribeTable:
		table := stringArg(req.Args, "table")
		if table == "" {
			return fail(toolErrorf(KindMissingArgument, "describe_table requires a \"table\" argument"))
		}
		in := DescribeTableInput{Table: table, Database: stringArg(req.Args, "database")}
		out, te := m.DescribeTable(ctx, in)
		if te != nil {
			return fail(te)
		}
		return ok(out)

	case toolExecuteQuery:
		query, present := req.Args["query"]
		if !present {
			return fail(toolErrorf(KindMissingArgument, "execute_query requires a \"query\" argument"))
		}
		text, isString := query.(string)
		if !isString {
			return fail(toolErrorf(KindMissingArgument, "execute_query \"query\" argument must be a string, got %T", query))
		}
		out, te := m.ExecuteQuery(ctx, QueryInput{Query: text})
		if te != nil {
			return fail(te)
		}
		return ok(out)

	default:
		return fail(toolErrorf(KindUnknownTool, "unknown tool %q", req.Name))
	}
}

func stringArg(args map[string]any, key string) string {
	if v, present := args[key]; present {
		if s, isString := v.(string); isString {
			return s
		}
	}
	return ""
}

// intArg accepts float64 as well because JSON decoding produces float64 for
// all numbers.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}
