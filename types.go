package mysqlmcp

// ToolRequest is a single tool invocation received from the protocol layer.
type ToolRequest struct {
	// Name is one of the five tool names: connect_db, list_databases,
	// list_tables, describe_table, execute_query.
	Name string `json:"name"`
	// Args maps argument names to primitive values.
	Args map[string]any `json:"args"`
	// ID correlates the result with the originating request. Opaque to the core.
	ID string `json:"id,omitempty"`
}

// ToolResult is the outcome of a tool invocation: exactly one of Data or Err
// is set. Every ToolRequest produces a ToolResult; there are no silent drops.
type ToolResult struct {
	ID   string     `json:"id,omitempty"`
	Data any        `json:"data,omitempty"`
	Err  *ToolError `json:"error,omitempty"`
}

// QueryInput is the input for the ExecuteQuery tool.
type QueryInput struct {
	Query string `json:"query"`
}

// ColumnMeta describes one result column. Always returned, even for
// zero-row results.
type ColumnMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryOutput is the output of the ExecuteQuery tool. Rows are positional,
// matching Columns; NULL cells are JSON null, binary cells base64 strings.
type QueryOutput struct {
	Columns   []ColumnMeta `json:"columns"`
	Rows      [][]any      `json:"rows"`
	RowCount  int          `json:"rowCount"`
	Truncated bool         `json:"truncated"`
}

// ConnectInput is the input for the ConnectDB tool. All fields are optional;
// zero values fall back to the configured connection.
type ConnectInput struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
}

// ConnectOutput is the output of the ConnectDB tool.
type ConnectOutput struct {
	Connected bool   `json:"connected"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database,omitempty"`
}

// ListDatabasesOutput is the output of the ListDatabases tool.
type ListDatabasesOutput struct {
	Databases []string `json:"databases"`
}

// ListTablesInput is the input for the ListTables tool.
type ListTablesInput struct {
	// Database to list; empty falls back to the configured default.
	Database string `json:"database,omitempty"`
}

// ListTablesOutput is the output of the ListTables tool.
type ListTablesOutput struct {
	Database string   `json:"database"`
	Tables   []string `json:"tables"`
}

// DescribeTableInput is the input for the DescribeTable tool.
type DescribeTableInput struct {
	Table    string `json:"table"`
	Database string `json:"database,omitempty"`
}

// ColumnInfo describes a single table column, mirroring MySQL's
// information_schema.columns shape.
type ColumnInfo struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Key      string  `json:"key,omitempty"`
	Default  *string `json:"default"`
	Extra    string  `json:"extra,omitempty"`
}

// DescribeTableOutput is the output of the DescribeTable tool.
type DescribeTableOutput struct {
	Database string       `json:"database"`
	Table    string       `json:"table"`
	Columns  []ColumnInfo `json:"columns"`
}
