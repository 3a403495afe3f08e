package mysqlmcp

import (
	"context"
	"errors"
	"testing"
)

func TestConnectDBThroughPool(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	cfg := Config{Connection: ConnectionConfig{Host: "db.internal", Port: 3306, Database: "app"}}
	m := newTestEngine(t, cfg, state)

	out, te := m.ConnectDB(context.Background(), ConnectInput{})
	if te != nil {
		t.Fatalf("unexpected error: %v", te)
	}
	if !out.Connected {
		t.Error("expected Connected=true")
	}
	if out.Host != "db.internal" || out.Port != 3306 || out.Database != "app" {
		t.Errorf("expected configured identity echoed back, got %+v", out)
	}
	if got := m.pool.Stats().Acquires; got != 1 {
		t.Errorf("expected exactly one pool acquire, got %d", got)
	}
}

func TestConnectDBPingFailure(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{pingErr: errors.New("server has gone away")}
	m := newTestEngine(t, Config{}, state)

	_, te := m.ConnectDB(context.Background(), ConnectInput{})
	if te == nil {
		t.Fatal("expected error")
	}
	if te.Kind != KindQueryFailed && te.Kind != KindConnectionBroken && te.Kind != KindDatabaseUnreachable {
		t.Errorf("unexpected kind %s", te.Kind)
	}
}

func TestConnectInputHasOverrides(t *testing.T) {
	t.Parallel()

	if (ConnectInput{}).hasOverrides() {
		t.Error("empty input must not count as override")
	}
	if !(ConnectInput{Host: "other"}).hasOverrides() {
		t.Error("host override not detected")
	}
	if !(ConnectInput{Port: 3307}).hasOverrides() {
		t.Error("port override not detected")
	}
	if !(ConnectInput{Database: "other"}).hasOverrides() {
		t.Error("database override not detected")
	}
}

func TestMergedPoolConfig(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	cfg := Config{Connection: ConnectionConfig{
		Host: "db.internal", Port: 3306, User: "reader", Password: "secret", Database: "app",
	}}
	m := newTestEngine(t, cfg, state)

	merged := m.mergedPoolConfig(ConnectInput{Host: "replica.internal", Database: "reports"})
	if merged.Host != "replica.internal" {
		t.Errorf("expected override host, got %q", merged.Host)
	}
	if merged.Database != "reports" {
		t.Errorf("expected override database, got %q", merged.Database)
	}
	if merged.Port != 3306 || merged.User != "reader" || merged.Password != "secret" {
		t.Errorf("expected configured values for untouched fields, got %+v", merged)
	}
}
