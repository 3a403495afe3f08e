// Package mysqlmcp provides safe, read-only MySQL access for AI agents
// through the Model Context Protocol (MCP).
//
// It exposes five tools — ConnectDB, ListDatabases, ListTables,
// DescribeTable, and ExecuteQuery — backed by a bounded connection pool,
// a read-only statement classifier, result truncation, and a liveness
// monitor suitable for container health checks.
//
// Write statements never reach the server: every query is classified before
// a connection is acquired, and only SELECT, SHOW, DESCRIBE, DESC, and
// EXPLAIN statements pass. Multi-statement payloads are rejected with a
// quote- and comment-aware scan, so a semicolon inside a string literal is
// fine while a second statement is not.
//
// # Library Usage
//
//	m, err := mysqlmcp.New(ctx, mysqlmcp.Config{
//		Connection: mysqlmcp.ConnectionConfig{
//			Host: "localhost", Port: 3306,
//			User: "reader", Password: secret, Database: "app",
//		},
//		Pool:  mysqlmcp.PoolConfig{Size: 10},
//		Query: mysqlmcp.QueryConfig{RowLimit: 1000, TimeoutMillis: 10000},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close(ctx)
//
//	// Use directly
//	out, terr := m.ExecuteQuery(ctx, mysqlmcp.QueryInput{Query: "SELECT * FROM users LIMIT 10"})
//
//	// Or register as MCP tools
//	mysqlmcp.RegisterMCPTools(mcpServer, m)
//
// The constructor never dials MySQL. Connections are created lazily on
// first use, and an unreachable server surfaces as failed tool calls and a
// DOWN health status rather than a startup error.
package mysqlmcp
