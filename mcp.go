package mysqlmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers ConnectDB, ListDatabases, ListTables,
// DescribeTable, and ExecuteQuery as MCP tools on the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, m *MySQLMcp) {
	// connect_db tool
	connectTool := mcp.NewTool("connect_db",
		mcp.WithDescription("Verify connectivity to the MySQL server. Optional arguments override the configured connection settings for this check only."),
		mcp.WithString("host", mcp.Description("MySQL host to connect to")),
		mcp.WithNumber("port", mcp.Description("MySQL port")),
		mcp.WithString("user", mcp.Description("MySQL user")),
		mcp.WithString("password", mcp.Description("MySQL password")),
		mcp.WithString("database", mcp.Description("Database name")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(connectTool, m.loggedToolHandler("connect_db"))

	// list_databases tool
	listDatabasesTool := mcp.NewTool("list_databases",
		mcp.WithDescription("List all databases visible to the current user."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(listDatabasesTool, m.loggedToolHandler("list_databases"))

	// list_tables tool
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables in a database. Uses the configured default database when none is given."),
		mcp.WithString("database", mcp.Description("Database name (defaults to the configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(listTablesTool, m.loggedToolHandler("list_tables"))

	// describe_table tool
	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the columns of a table: name, type, nullability, key, default, and extra attributes."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table name to describe"),
		),
		mcp.WithString("database", mcp.Description("Database name (defaults to the configured database)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(describeTableTool, m.loggedToolHandler("describe_table"))

	// execute_query tool
	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT, SHOW, DESCRIBE, EXPLAIN). Returns results as JSON."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL query to execute"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(executeQueryTool, m.loggedToolHandler("execute_query"))
}

// loggedToolHandler routes an MCP tool call through Dispatch and logs
// request and response lengths.
func (m *MySQLMcp) loggedToolHandler(tool string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := m.Dispatch(ctx, ToolRequest{Name: tool, Args: req.GetArguments()})

		var mcpResult *mcp.CallToolResult
		if result.Err != nil {
			mcpResult = mcp.NewToolResultError(fmt.Sprintf("%s: %s", result.Err.Kind, result.Err.Message))
		} else {
			jsonBytes, err := json.Marshal(result.Data)
			if err != nil {
				mcpResult = mcp.NewToolResultError("failed to marshal tool result")
			} else {
				mcpResult = mcp.NewToolResultText(string(jsonBytes))
			}
		}

		m.logger.Info().
			Str("tool", tool).
			Int("request_bytes", requestLength(req)).
			Int("response_bytes", resultLength(mcpResult)).
			Msg("tool call")
		return mcpResult, nil
	}
}

// RegisterMCPResources registers the schema://{database} resource template,
// a plain-text dump of every table definition in a database.
func RegisterMCPResources(mcpServer *server.MCPServer, m *MySQLMcp) {
	schemaTemplate := mcp.NewResourceTemplate(
		"schema://{database}",
		"Database Schema",
		mcp.WithTemplateDescription("Plain-text description of all tables and columns in a database"),
		mcp.WithTemplateMIMEType("text/plain"),
	)
	mcpServer.AddResourceTemplate(schemaTemplate, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		database := strings.TrimPrefix(req.Params.URI, "schema://")
		dump, te := m.SchemaDump(ctx, database)
		if te != nil {
			return nil, fmt.Errorf("%s: %s", te.Kind, te.Message)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     dump,
			},
		}, nil
	})
}

// RegisterMCPPrompts registers the connect_database prompt, a short guide
// that walks the client through verifying connectivity and exploring schema.
func RegisterMCPPrompts(mcpServer *server.MCPServer, m *MySQLMcp) {
	connectPrompt := mcp.NewPrompt("connect_database",
		mcp.WithPromptDescription("Guide for connecting to the MySQL database and exploring its schema"),
		mcp.WithArgument("database", mcp.ArgumentDescription("Database name to focus on")),
	)
	mcpServer.AddPrompt(connectPrompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		database := ""
		if args := req.Params.Arguments; args != nil {
			database = args["database"]
		}
		if database == "" {
			database = m.config.Connection.Database
		}

		var b strings.Builder
		b.WriteString("Connect to the MySQL server with the connect_db tool, then explore the data:\n\n")
		b.WriteString("1. Call connect_db to verify connectivity.\n")
		b.WriteString("2. Call list_databases to see what is available.\n")
		if database != "" {
			fmt.Fprintf(&b, "3. Call list_tables with database %q.\n", database)
			fmt.Fprintf(&b, "4. Call describe_table for any table of interest, or read schema://%s.\n", database)
		} else {
			b.WriteString("3. Call list_tables with a database name.\n")
			b.WriteString("4. Call describe_table for any table of interest, or read the schema:// resource.\n")
		}
		b.WriteString("5. Use execute_query for read-only SQL (SELECT, SHOW, DESCRIBE, EXPLAIN).\n")

		return mcp.NewGetPromptResult("MySQL Connection Guide", []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: b.String(),
				},
			},
		}), nil
	})
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
