package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/engine"
	"github.com/wallscreet/iso-agent/facts"
	"github.com/wallscreet/iso-agent/memory/embedder/mock"
	"github.com/wallscreet/iso-agent/memory/store/chromem"
	"github.com/wallscreet/iso-agent/tools"
)

// fakeWorkspace records file operations in memory.
type fakeWorkspace struct {
	files map[string]string
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{files: make(map[string]string)}
}

func (w *fakeWorkspace) CreateFile(ctx context.Context, path, content string) error {
	w.files[path] = content
	return nil
}

func (w *fakeWorkspace) EditFile(ctx context.Context, path, content string) error {
	if _, ok := w.files[path]; !ok {
		return fmt.Errorf("file %q does not exist", path)
	}
	w.files[path] = content
	return nil
}

func (w *fakeWorkspace) DeleteFile(ctx context.Context, path string) error {
	if _, ok := w.files[path]; !ok {
		return fmt.Errorf("file %q does not exist", path)
	}
	delete(w.files, path)
	return nil
}

// scriptedClient returns canned results in order.
type scriptedClient struct {
	results []*engine.ChatResult
}

func (c *scriptedClient) GetResponse(ctx context.Context, model string, messages []engine.ChatMessage, tools []engine.ToolDefinition) (*engine.ChatResult, error) {
	if len(c.results) == 0 {
		return nil, fmt.Errorf("scripted client exhausted")
	}
	result := c.results[0]
	c.results = c.results[1:]
	return result, nil
}

func newFactStore(t *testing.T) *facts.Store {
	t.Helper()
	index, err := chromem.New(mock.New())
	if err != nil {
		t.Fatal(err)
	}
	store, err := facts.New(filepath.Join(t.TempDir(), "facts.yaml"), index)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRegisterIsoTools(t *testing.T) {
	registry := engine.NewToolRegistry()
	if err := tools.RegisterIsoTools(registry, newFactStore(t), newFakeWorkspace()); err != nil {
		t.Fatalf("RegisterIsoTools: %v", err)
	}

	wantNames := []string{"add_fact", "create_file", "edit_file", "delete_file"}
	defs := registry.Definitions()
	if len(defs) != len(wantNames) {
		t.Fatalf("registered %d tools, want %d", len(defs), len(wantNames))
	}
	for i, want := range wantNames {
		if defs[i].Name != want {
			t.Errorf("defs[%d].Name = %q, want %q", i, defs[i].Name, want)
		}
	}

	// add_fact's schema requires the full triple.
	addFact := defs[0].InputSchema
	if addFact["type"] != "object" {
		t.Errorf("add_fact schema type = %v", addFact["type"])
	}
	required, ok := addFact["required"].([]string)
	if !ok || len(required) != 3 {
		t.Fatalf("add_fact required = %v", addFact["required"])
	}
	props, ok := addFact["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("add_fact properties = %v", addFact["properties"])
	}
	for _, field := range []string{"subject", "predicate", "object"} {
		prop, ok := props[field].(map[string]interface{})
		if !ok || prop["type"] != "string" {
			t.Errorf("add_fact property %q = %v", field, props[field])
		}
	}

	// Registering the same set twice must fail on the first duplicate.
	if err := tools.RegisterIsoTools(registry, newFactStore(t), newFakeWorkspace()); err == nil {
		t.Error("double registration succeeded")
	}
}

// The model asks for add_fact, the orchestrator dispatches it, and the
// model answers after seeing the result. The fact lands in the durable
// store and the sequence grows by exactly the call and its result.
func TestAddFact_ThroughOrchestrator(t *testing.T) {
	ctx := context.Background()
	factStore := newFactStore(t)

	registry := engine.NewToolRegistry()
	if err := tools.RegisterIsoTools(registry, factStore, newFakeWorkspace()); err != nil {
		t.Fatal(err)
	}

	client := &scriptedClient{results: []*engine.ChatResult{
		{ToolCalls: []engine.ToolCall{{
			ID:        "call-1",
			Name:      "add_fact",
			Arguments: json.RawMessage(`{"subject":"sun","predicate":"rises_in","object":"east"}`),
		}}},
		{Content: "I'll remember that the sun rises in the east."},
	}}
	orch := engine.NewOrchestrator(client, registry)

	initial := []engine.ChatMessage{
		{Role: core.RoleSystem, Content: "You are Juliet."},
		{Role: core.RoleUser, Content: "User Request: the sun rises in the east"},
	}
	out, err := orch.Run(ctx, engine.Input{Model: "m", Messages: initial})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.Content != "I'll remember that the sun rises in the east." {
		t.Errorf("content = %q", out.Content)
	}
	if len(out.Messages) != len(initial)+2 {
		t.Errorf("sequence length = %d, want %d", len(out.Messages), len(initial)+2)
	}
	if !strings.Contains(out.Messages[len(initial)+1].Content, "sun rises_in east") {
		t.Errorf("tool result = %q", out.Messages[len(initial)+1].Content)
	}

	stored, err := factStore.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("fact store holds %d facts, want 1", len(stored))
	}
	if stored[0] != (core.Fact{Subject: "sun", Predicate: "rises_in", Object: "east"}) {
		t.Errorf("stored fact = %+v", stored[0])
	}
}

func TestAddFact_RejectsIncompleteTriple(t *testing.T) {
	registry := engine.NewToolRegistry()
	if err := tools.RegisterIsoTools(registry, newFactStore(t), newFakeWorkspace()); err != nil {
		t.Fatal(err)
	}
	handler, ok := registry.Get("add_fact")
	if !ok {
		t.Fatal("add_fact not registered")
	}

	for _, args := range []string{
		`{"subject":"sun"}`,
		`{"subject":"sun","predicate":"rises_in"}`,
		`{"subject":"","predicate":"rises_in","object":"east"}`,
		`not json`,
	} {
		if _, err := handler(context.Background(), json.RawMessage(args)); err == nil {
			t.Errorf("add_fact accepted %q", args)
		}
	}
}

func TestFileTools(t *testing.T) {
	ctx := context.Background()
	ws := newFakeWorkspace()
	registry := engine.NewToolRegistry()
	if err := tools.RegisterIsoTools(registry, newFactStore(t), ws); err != nil {
		t.Fatal(err)
	}

	call := func(name, args string) (interface{}, error) {
		handler, ok := registry.Get(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		return handler(ctx, json.RawMessage(args))
	}

	if _, err := call("create_file", `{"path":"notes.txt","content":"first draft"}`); err != nil {
		t.Fatalf("create_file: %v", err)
	}
	if ws.files["notes.txt"] != "first draft" {
		t.Errorf("created content = %q", ws.files["notes.txt"])
	}

	result, err := call("edit_file", `{"path":"notes.txt","content":"second draft"}`)
	if err != nil {
		t.Fatalf("edit_file: %v", err)
	}
	if ws.files["notes.txt"] != "second draft" {
		t.Errorf("edited content = %q", ws.files["notes.txt"])
	}
	status, ok := result.(map[string]interface{})
	if !ok || status["status"] != "ok" || status["action"] != "edited" {
		t.Errorf("edit_file result = %+v", result)
	}

	if _, err := call("delete_file", `{"path":"notes.txt"}`); err != nil {
		t.Fatalf("delete_file: %v", err)
	}
	if _, exists := ws.files["notes.txt"]; exists {
		t.Error("file survived delete_file")
	}

	// Missing path fails before touching the workspace.
	if _, err := call("create_file", `{"content":"orphan"}`); err == nil {
		t.Error("create_file accepted empty path")
	}
	// Editing a missing file surfaces the workspace error.
	if _, err := call("edit_file", `{"path":"ghost.txt","content":"x"}`); err == nil {
		t.Error("edit_file accepted missing file")
	}
}
