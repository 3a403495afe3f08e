package mysqlmcp

import (
	"context"
	"database/sql/driver"
	"testing"
)

func describeCols() []string {
	return []string{"column_name", "column_type", "is_nullable", "column_key", "column_default", "extra"}
}

func TestDescribeTable(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	state.addStub("information_schema.columns", describeCols(), [][]driver.Value{
		{[]byte("id"), []byte("bigint unsigned"), []byte("NO"), []byte("PRI"), nil, []byte("auto_increment")},
		{[]byte("email"), []byte("varchar(255)"), []byte("NO"), []byte("UNI"), nil, []byte("")},
		{[]byte("nickname"), []byte("varchar(64)"), []byte("YES"), []byte(""), []byte("anon"), []byte("")},
	})
	m := newTestEngine(t, Config{Connection: ConnectionConfig{Database: "app"}}, state)

	out, te := m.DescribeTable(context.Background(), DescribeTableInput{Table: "users"})
	if te != nil {
		t.Fatalf("unexpected error: %v", te)
	}
	if out.Database != "app" || out.Table != "users" {
		t.Errorf("unexpected identity: %q.%q", out.Database, out.Table)
	}
	if len(out.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(out.Columns))
	}

	id := out.Columns[0]
	if id.Name != "id" || id.Type != "bigint unsigned" || id.Nullable || id.Key != "PRI" || id.Extra != "auto_increment" {
		t.Errorf("unexpected id column: %+v", id)
	}
	if id.Default != nil {
		t.Errorf("expected nil default for id, got %q", *id.Default)
	}

	nickname := out.Columns[2]
	if !nickname.Nullable {
		t.Error("nickname should be nullable")
	}
	if nickname.Default == nil || *nickname.Default != "anon" {
		t.Errorf("unexpected nickname default: %v", nickname.Default)
	}
}

func TestDescribeTableNotFound(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	state.addStub("information_schema.columns", describeCols(), nil)
	m := newTestEngine(t, Config{Connection: ConnectionConfig{Database: "app"}}, state)

	_, te := m.DescribeTable(context.Background(), DescribeTableInput{Table: "no_such_table"})
	if te == nil {
		t.Fatal("expected error")
	}
	if te.Kind != KindQueryFailed {
		t.Errorf("expected %s, got %s", KindQueryFailed, te.Kind)
	}
}

func TestDescribeTableNoDatabaseAnywhere(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	m := newTestEngine(t, Config{}, state)

	_, te := m.DescribeTable(context.Background(), DescribeTableInput{Table: "users"})
	if te == nil {
		t.Fatal("expected error")
	}
	if te.Kind != KindMissingArgument {
		t.Errorf("expected %s, got %s", KindMissingArgument, te.Kind)
	}
}
