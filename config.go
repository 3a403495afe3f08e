package mysqlmcp

// Config is the base configuration consumed by New(). The packaging layer
// (CLI, container entry point) is responsible for populating it; the core
// treats it as read-only after startup.
type Config struct {
	Connection   ConnectionConfig   `json:"connection"`
	Pool         PoolConfig         `json:"pool"`
	Query        QueryConfig        `json:"query"`
	Health       HealthConfig       `json:"health"`
	Sanitization []SanitizationRule `json:"sanitization"`
	ErrorPrompts []ErrorPromptRule  `json:"error_prompts"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`

	// IdleTimeoutSeconds shuts the server down after this long without any
	// tool activity. Zero disables the idle watchdog.
	IdleTimeoutSeconds int `json:"idle_timeout_seconds"`
}

// ConnectionConfig holds MySQL connection parameters.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	Database string `json:"database"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	// Size is the maximum number of concurrently checked-out connections.
	Size int `json:"size"`
	// ConnectTimeoutSeconds bounds dialing a single connection.
	ConnectTimeoutSeconds int `json:"connect_timeout_seconds"`
	// KeepAliveIntervalSeconds is the idle-connection ping cadence.
	// Zero disables keep-alive.
	KeepAliveIntervalSeconds int `json:"keep_alive_interval_seconds"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	// RowLimit caps rows returned per query; excess rows are truncated and
	// flagged, never an error.
	RowLimit int `json:"row_limit"`
	// TimeoutMillis bounds a single query execution.
	TimeoutMillis int `json:"timeout_ms"`
}

// HealthConfig holds liveness monitor settings.
type HealthConfig struct {
	// IntervalSeconds is the poll cadence of the liveness monitor.
	IntervalSeconds int `json:"interval_seconds"`
}

// ServerSettings holds HTTP server settings for CLI mode.
type ServerSettings struct {
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}

// SanitizationRule defines a regex-based cell sanitization rule applied to
// query results before they are returned.
type SanitizationRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

// ErrorPromptRule maps an error message pattern to a guidance message
// appended to tool errors, steering the agent toward a fix.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}
