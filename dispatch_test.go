package mysqlmcp

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
)

func TestDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	m := newTestEngine(t, Config{}, state)

	result := m.Dispatch(context.Background(), ToolRequest{Name: "drop_everything"})
	if result.Err == nil {
		t.Fatal("expected error")
	}
	if result.Err.Kind != KindUnknownTool {
		t.Errorf("expected %s, got %s", KindUnknownTool, result.Err.Kind)
	}
	if got := m.pool.Stats().Acquires; got != 0 {
		t.Errorf("unknown tool must not touch the pool, got %d acquires", got)
	}
}

func TestDispatchDescribeTableMissingArgument(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	m := newTestEngine(t, Config{}, state)

	result := m.Dispatch(context.Background(), ToolRequest{Name: "describe_table", Args: map[string]any{}})
	if result.Err == nil {
		t.Fatal("expected error")
	}
	if result.Err.Kind != KindMissingArgument {
		t.Errorf("expected %s, got %s", KindMissingArgument, result.Err.Kind)
	}
	if got := m.pool.Stats().Acquires; got != 0 {
		t.Errorf("malformed request must not touch the pool, got %d acquires", got)
	}
}

func TestDispatchExecuteQueryMissingArgument(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	m := newTestEngine(t, Config{}, state)

	result := m.Dispatch(context.Background(), ToolRequest{Name: "execute_query", Args: map[string]any{}})
	if result.Err == nil {
		t.Fatal("expected error")
	}
	if result.Err.Kind != KindMissingArgument {
		t.Errorf("expected %s, got %s", KindMissingArgument, result.Err.Kind)
	}
}

func TestDispatchExecuteQueryWrongArgumentType(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	m := newTestEngine(t, Config{}, state)

	result := m.Dispatch(context.Background(), ToolRequest{
		Name: "execute_query",
		Args: map[string]any{"query": 42},
	})
	if result.Err == nil {
		t.Fatal("expected error")
	}
	if result.Err.Kind != KindMissingArgument {
		t.Errorf("expected %s, got %s", KindMissingArgument, result.Err.Kind)
	}
}

func TestDispatchExecuteQuerySuccess(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	state.addStub("SELECT 1", []string{"1"}, [][]driver.Value{{int64(1)}})
	m := newTestEngine(t, Config{}, state)

	result := m.Dispatch(context.Background(), ToolRequest{
		Name: "execute_query",
		Args: map[string]any{"query": "SELECT 1"},
		ID:   "req-1",
	})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ID != "req-1" {
		t.Errorf("expected request ID to round-trip, got %q", result.ID)
	}
	out, ok := result.Data.(*QueryOutput)
	if !ok {
		t.Fatalf("expected *QueryOutput, got %T", result.Data)
	}
	if out.RowCount != 1 {
		t.Errorf("expected 1 row, got %d", out.RowCount)
	}
}

func TestDispatchResultIsExclusive(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	state.addStub("SELECT 1", []string{"1"}, [][]driver.Value{{int64(1)}})
	m := newTestEngine(t, Config{}, state)

	success := m.Dispatch(context.Background(), ToolRequest{
		Name: "execute_query",
		Args: map[string]any{"query": "SELECT 1"},
	})
	if success.Data == nil || success.Err != nil {
		t.Errorf("success result must carry data and no error: %+v", success)
	}

	failure := m.Dispatch(context.Background(), ToolRequest{Name: "nope"})
	if failure.Data != nil || failure.Err == nil {
		t.Errorf("failure result must carry an error and no data: %+v", failure)
	}
}

func TestDispatchTouchesActivity(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	m := newTestEngine(t, Config{}, state)

	if !m.LastActivity().IsZero() {
		t.Fatal("expected zero LastActivity before any dispatch")
	}
	m.Dispatch(context.Background(), ToolRequest{Name: "nope"})
	if m.LastActivity().IsZero() {
		t.Error("expected LastActivity to advance after dispatch")
	}
}

func TestDispatchErrorPromptGuidance(t *testing.T) {
	t.Parallel()

	state := &fakeEngineState{}
	cfg := Config{
		ErrorPrompts: []ErrorPromptRule{
			{Pattern: "only read-only statements", Message: "Try SELECT instead."},
		},
	}
	m := newTestEngine(t, cfg, state)

	result := m.Dispatch(context.Background(), ToolRequest{
		Name: "execute_query",
		Args: map[string]any{"query": "DELETE FROM users"},
	})
	if result.Err == nil {
		t.Fatal("expected error")
	}
	if want := "Try SELECT instead."; !strings.Contains(result.Err.Message, want) {
		t.Errorf("expected guidance %q appended, got %q", want, result.Err.Message)
	}
}

func TestIntArg(t *testing.T) {
	t.Parallel()

	args := map[string]any{
		"float":  float64(3306),
		"int":    3307,
		"string": "3308",
	}
	if got := intArg(args, "float"); got != 3306 {
		t.Errorf("float: got %d", got)
	}
	if got := intArg(args, "int"); got != 3307 {
		t.Errorf("int: got %d", got)
	}
	if got := intArg(args, "string"); got != 3308 {
		t.Errorf("string: got %d", got)
	}
	if got := intArg(args, "missing"); got != 0 {
		t.Errorf("missing: got %d", got)
	}
}
