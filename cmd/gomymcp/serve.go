package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	mysqlmcp "github.com/rickchristie/mysql-mcp"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func runServe() error {
	ctx := context.Background()

	// 1. Load ServerConfig (file, then environment overrides)
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if serverConfig.Server.Port <= 0 {
		panic("gomymcp: server.port must be > 0")
	}

	// 2. Resolve credentials
	if serverConfig.Connection.Password == "" && isTTY(os.Stdin.Fd()) {
		if serverConfig.Connection.User == "" {
			serverConfig.Connection.User = promptInput("Username: ")
		}
		serverConfig.Connection.Password = promptPassword("Password: ")
	}

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 4. Create MySQLMcp instance
	m, err := mysqlmcp.New(ctx, serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create MySQLMcp: %w", err)
	}
	defer m.Close(ctx)

	// 5. Test database connection. An unreachable server is not fatal: the
	// health endpoint reports DOWN and tool calls fail until it recovers.
	logger.Info().Msg("testing database connection")
	if err := m.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("database is not reachable yet, serving anyway")
	} else {
		logger.Info().Msg("database connection test successful")
	}

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("gomymcp", "1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(false),
		server.WithHooks(hooks),
	)

	mysqlmcp.RegisterMCPTools(mcpServer, m)
	mysqlmcp.RegisterMCPResources(mcpServer, m)
	mysqlmcp.RegisterMCPPrompts(mcpServer, m)

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	go m.RunHealthMonitor(serveCtx)

	// 7. Start HTTP server with optional health check
	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("gomymcp: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, m.HealthHandler())
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	if serverConfig.IdleTimeoutSeconds > 0 {
		go idleWatchdog(serveCtx, m, httpSrv, time.Duration(serverConfig.IdleTimeoutSeconds)*time.Second, logger)
	}

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting gomymcp server")
	err = streamableServer.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// idleWatchdog shuts the server down after no tool activity for the given
// duration. Startup counts as activity so a freshly launched server is not
// killed before the first call.
func idleWatchdog(ctx context.Context, m *mysqlmcp.MySQLMcp, srv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	start := time.Now()
	ticker := time.NewTicker(timeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := m.LastActivity()
			if last.IsZero() {
				last = start
			}
			if idle := time.Since(last); idle >= timeout {
				logger.Info().Dur("idle", idle).Msg("idle timeout reached, shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				srv.Shutdown(shutdownCtx)
				cancel()
				return
			}
		}
	}
}

func loadServerConfig() (*mysqlmcp.ServerConfig, error) {
	configPath := os.Getenv("GOMYMCP_CONFIG_PATH")
	explicit := configPath != ""
	if configPath == "" {
		configPath = ".gomymcp/config.json"
	}

	var config mysqlmcp.ServerConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine, environment variables can carry everything.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	applyEnvOverrides(&config)

	if config.Connection.Host == "" {
		config.Connection.Host = "localhost"
	}
	if config.Connection.Port == 0 {
		config.Connection.Port = 3306
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8030
	}
	return &config, nil
}

// applyEnvOverrides layers environment variables over the file config.
// The variable names match the ones the Python predecessor of this server
// used, so existing deployments keep working.
func applyEnvOverrides(config *mysqlmcp.ServerConfig) {
	if v := os.Getenv("MYSQL_HOST"); v != "" {
		config.Connection.Host = v
	}
	if v, ok := envInt("MYSQL_PORT"); ok {
		config.Connection.Port = v
	}
	if v := os.Getenv("MYSQL_USER"); v != "" {
		config.Connection.User = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		config.Connection.Password = v
	}
	if v := os.Getenv("MYSQL_DATABASE"); v != "" {
		config.Connection.Database = v
	}
	if v, ok := envInt("ROW_LIMIT"); ok {
		config.Query.RowLimit = v
	}
	if v, ok := envInt("QUERY_TIMEOUT"); ok {
		config.Query.TimeoutMillis = v
	}
	if v, ok := envInt("POOL_SIZE"); ok {
		config.Pool.Size = v
	}
	if v, ok := envInt("KEEP_ALIVE_INTERVAL"); ok {
		config.Pool.KeepAliveIntervalSeconds = v
	}
	if v, ok := envInt("TIMEOUT"); ok {
		config.IdleTimeoutSeconds = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v, ok := envInt("GOMYMCP_PORT"); ok {
		config.Server.Port = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func setupLogger(config mysqlmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
