package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	mysqlmcp "github.com/rickchristie/mysql-mcp"
	"github.com/rickchristie/mysql-mcp/internal/meta"
	"github.com/rickchristie/mysql-mcp/internal/pool"
)

// pingOnce dials MySQL once for the doctor connectivity check. Swapped out
// in tests.
var pingOnce = pool.PingOnce

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", ".gomymcp/config.json", "Path to configuration file")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *configPath)
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gomymcp %s\n\n", meta.Version)

	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gomymcp doctor' again.")
		return nil
	}

	// Connectivity is environmental, so a failure here still prints the
	// agent snippets: serve starts without a reachable database too.
	fmt.Fprintln(w)
	doctorCheckConnectivity(w, useColor, config)

	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorCheckConnectivity dials MySQL once with the loaded settings.
func doctorCheckConnectivity(w io.Writer, useColor bool, config *mysqlmcp.ServerConfig) {
	timeout := time.Duration(config.Pool.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	target := fmt.Sprintf("%s:%d", config.Connection.Host, config.Connection.Port)
	err := pingOnce(ctx, pool.Config{
		Host:           config.Connection.Host,
		Port:           config.Connection.Port,
		User:           config.Connection.User,
		Password:       config.Connection.Password,
		Database:       config.Connection.Database,
		ConnectTimeout: timeout,
	})
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("MySQL reachable at %s: %v", target, err))
		return
	}
	printCheck(w, useColor, true, fmt.Sprintf("MySQL reachable at %s", target))
}

// doctorValidateConfig loads and validates the config file, printing check results.
// Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*mysqlmcp.ServerConfig, bool) {
	allPassed := true

	// Check 1: Config file exists and is valid JSON
	data, err := os.ReadFile(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	var config mysqlmcp.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file is valid JSON: %v", err))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, "Config file is valid JSON")
	applyEnvOverrides(&config)

	// Check 2: connection.host is set
	if config.Connection.Host == "" {
		printCheck(w, useColor, false, "connection.host is set (or MYSQL_HOST)")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("connection.host is set (%s)", config.Connection.Host))
	}

	// Check 3: connection.user is set
	if config.Connection.User == "" {
		printCheck(w, useColor, false, "connection.user is set (or MYSQL_USER)")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("connection.user is set (%s)", config.Connection.User))
	}

	// Check 4: server.port > 0
	if config.Server.Port <= 0 {
		printCheck(w, useColor, false, "server.port is > 0")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("server.port is > 0 (%d)", config.Server.Port))
	}

	// Check 5: pool.size is not negative
	if config.Pool.Size < 0 {
		printCheck(w, useColor, false, fmt.Sprintf("pool.size is not negative (%d)", config.Pool.Size))
		allPassed = false
	} else if config.Pool.Size == 0 {
		printCheck(w, useColor, true, "pool.size uses the default (10)")
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("pool.size is valid (%d)", config.Pool.Size))
	}

	// Check 6: query.row_limit is not negative
	if config.Query.RowLimit < 0 {
		printCheck(w, useColor, false, fmt.Sprintf("query.row_limit is not negative (%d)", config.Query.RowLimit))
		allPassed = false
	} else if config.Query.RowLimit == 0 {
		printCheck(w, useColor, true, "query.row_limit uses the default (1000)")
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("query.row_limit is valid (%d)", config.Query.RowLimit))
	}

	// Check 7: query.timeout_ms is not negative
	if config.Query.TimeoutMillis < 0 {
		printCheck(w, useColor, false, fmt.Sprintf("query.timeout_ms is not negative (%d)", config.Query.TimeoutMillis))
		allPassed = false
	} else if config.Query.TimeoutMillis == 0 {
		printCheck(w, useColor, true, "query.timeout_ms uses the default (10000)")
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("query.timeout_ms is valid (%d)", config.Query.TimeoutMillis))
	}

	// Check 8: Health check path set when enabled
	if config.Server.HealthCheckEnabled {
		if config.Server.HealthCheckPath == "" {
			printCheck(w, useColor, false, "health_check_path is set (required when health_check_enabled)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("health_check_path is set (%s)", config.Server.HealthCheckPath))
		}
	}

	// Check 9: Regex patterns compile
	regexOK := true

	for i, rule := range config.ErrorPrompts {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("error_prompts[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Sanitization {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("sanitization[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	if regexOK {
		printCheck(w, useColor, true, "All regex patterns compile")
	}

	return &config, allPassed
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
func printAgentSnippets(w io.Writer, useColor bool, config *mysqlmcp.ServerConfig) {
	port := config.Server.Port
	url := fmt.Sprintf("http://localhost:%d/mcp", port)

	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	// Claude Code
	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http mysql %s\n\n", url)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Copilot CLI
	subheading("Copilot CLI (~/.copilot/mcp-config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Gemini CLI
	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Cursor
	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "url": "%s"
      }
    }
  }
`, url)
}
