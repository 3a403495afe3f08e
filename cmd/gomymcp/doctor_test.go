package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mysqlmcp "github.com/rickchristie/mysql-mcp"
	"github.com/rickchristie/mysql-mcp/internal/pool"
)

// stubPing replaces the doctor connectivity dial for the duration of a test.
// Tests using it cannot run in parallel.
func stubPing(t *testing.T, err error) {
	t.Helper()
	orig := pingOnce
	pingOnce = func(context.Context, pool.Config) error { return err }
	t.Cleanup(func() { pingOnce = orig })
}

func TestDoctorMissingConfigFile(t *testing.T) {
	t.Setenv("MYSQL_HOST", "")

	var buf bytes.Buffer
	err := doctor(&buf, false, filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "✗ Config file readable") {
		t.Errorf("expected failed readable check, got:\n%s", output)
	}
	if !strings.Contains(output, "Fix the issues above") {
		t.Errorf("expected fix-it hint, got:\n%s", output)
	}
}

func TestDoctorInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}
	if !strings.Contains(buf.String(), "✗ Config file is valid JSON") {
		t.Errorf("expected JSON check failure, got:\n%s", buf.String())
	}
}

func TestDoctorValidConfigPrintsSnippets(t *testing.T) {
	t.Setenv("MYSQL_HOST", "")
	t.Setenv("MYSQL_USER", "")
	stubPing(t, nil)

	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig())

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"✓ Config file readable",
		"✓ Config file is valid JSON",
		"✓ connection.host is set (db.internal)",
		"✓ connection.user is set (reader)",
		"✓ server.port is > 0 (8030)",
		"✓ pool.size is valid (5)",
		"✓ query.row_limit is valid (500)",
		"✓ query.timeout_ms is valid (5000)",
		"✓ MySQL reachable at db.internal:3306",
		"Agent Connection Snippets",
		"http://localhost:8030/mcp",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestDoctorUnreachableDatabaseStillPrintsSnippets(t *testing.T) {
	t.Setenv("MYSQL_HOST", "")
	t.Setenv("MYSQL_USER", "")
	stubPing(t, errors.New("dial tcp: connection refused"))

	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig())

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "✗ MySQL reachable at db.internal:3306") {
		t.Errorf("expected connectivity failure check, got:\n%s", output)
	}
	if !strings.Contains(output, "Agent Connection Snippets") {
		t.Errorf("connectivity failure must not suppress snippets, got:\n%s", output)
	}
}

func TestDoctorNegativePoolSettings(t *testing.T) {
	t.Setenv("MYSQL_HOST", "")
	t.Setenv("MYSQL_USER", "")

	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Pool.Size = -1
	cfg.Query.RowLimit = -5
	cfg.Query.TimeoutMillis = -100
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"✗ pool.size is not negative (-1)",
		"✗ query.row_limit is not negative (-5)",
		"✗ query.timeout_ms is not negative (-100)",
		"Fix the issues above",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestDoctorBadRegexPatterns(t *testing.T) {
	t.Setenv("MYSQL_HOST", "")
	t.Setenv("MYSQL_USER", "")

	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Sanitization = []mysqlmcp.SanitizationRule{{Pattern: "(unclosed", Replacement: "x"}}
	cfg.ErrorPrompts = []mysqlmcp.ErrorPromptRule{{Pattern: "[bad", Message: "y"}}
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "✗ sanitization[0] regex compiles") {
		t.Errorf("expected sanitization regex failure, got:\n%s", output)
	}
	if !strings.Contains(output, "✗ error_prompts[0] regex compiles") {
		t.Errorf("expected error_prompts regex failure, got:\n%s", output)
	}
}

func TestDoctorMissingHost(t *testing.T) {
	t.Setenv("MYSQL_HOST", "")

	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Connection.Host = ""
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("doctor should not return an error, got %v", err)
	}
	if !strings.Contains(buf.String(), "✗ connection.host is set") {
		t.Errorf("expected host check failure, got:\n%s", buf.String())
	}
}
