package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"amplecache/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func fixtureDB(t *testing.T) (string, string) {
	t.Helper()
	fx := testutil.NewCache(t)
	fx.RequireFTS(t)
	id := uuid.NewString()
	fx.AddNote(testutil.Note{RemoteUUID: id, Name: "Groceries", Text: "milk"})
	fx.AddTask(testutil.Task{UUID: uuid.NewString(), Attrs: `{"flags":"U","createdAt":10}`, Content: testutil.TaskContent("buy milk")})
	return fx.Finish(), id
}

func TestCallPrintsJSON(t *testing.T) {
	path, _ := fixtureDB(t)
	out, _, err := runCLI(t, "call", "list_tasks", `{"flagsFilter":"urgent"}`, "--db", path)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var page struct {
		Items   []map[string]any `json:"items"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(page.Items) != 1 || page.HasMore {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Items[0]["is_urgent"] != true {
		t.Fatalf("expected urgent task, got %+v", page.Items[0])
	}
}

func TestCallPrintsYAML(t *testing.T) {
	path, id := fixtureDB(t)
	out, _, err := runCLI(t, "call", "get_note_by_uuid", `{"uuid":"`+id+`"}`, "--db", path, "-o", "yaml")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var note map[string]any
	if err := yaml.Unmarshal([]byte(out), &note); err != nil {
		t.Fatalf("decode yaml %q: %v", out, err)
	}
	if note["name"] != "Groceries" {
		t.Fatalf("expected Groceries, got %v", note["name"])
	}
}

func TestCallReportsUsageErrors(t *testing.T) {
	path, _ := fixtureDB(t)
	_, _, err := runCLI(t, "call", "query_tasks", `{"sort_by":"title"}`, "--db", path)
	if err == nil || !strings.Contains(err.Error(), "invalid query") {
		t.Fatalf("expected invalid query error, got %v", err)
	}

	_, _, err = runCLI(t, "call", "list_tasks", `[1,2]`, "--db", path)
	if err == nil {
		t.Fatalf("expected error for non-object arguments")
	}
}

func TestCallMissingDatabase(t *testing.T) {
	_, _, err := runCLI(t, "call", "list_tasks", "--db", filepath.Join(t.TempDir(), "missing.db"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestToolsListsEveryTool(t *testing.T) {
	out, _, err := runCLI(t, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 tools, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "get_note_by_name") {
		t.Fatalf("unexpected first tool line %q", lines[0])
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("expected %q, got %q", version, out)
	}
}

func TestPrettyLogsIncludeAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newPrettyHandler(&buf, parseLogLevel("debug"))
	slog.New(h).With("tool", "list_tasks").WithGroup("sql").Debug("tool call", "args", map[string]any{"limit": 5}, "attempts", 1)
	got := buf.String()
	for _, want := range []string{"DEBUG tool call", ` tool="list_tasks"`, ` sql.args={"limit":5}`, ` sql.attempts=1`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in:\n%s", want, got)
		}
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected a single line, got:\n%s", got)
	}

	buf.Reset()
	slog.New(newPrettyHandler(&buf, parseLogLevel("warn"))).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := parseLogLevel(raw).Level(); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
