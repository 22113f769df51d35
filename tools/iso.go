// Package tools defines the default tool set the agent exposes to the
// model, plus JSON-schema helpers for describing tool arguments.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/engine"
)

// FactAppender writes facts through the fact store. Satisfied by
// *facts.Store.
type FactAppender interface {
	Append(ctx context.Context, fact core.Fact) error
}

// Workspace is the external file-workspace collaborator the file tools
// mutate. Workspace side effects are not rolled back on a canceled run.
type Workspace interface {
	CreateFile(ctx context.Context, path, content string) error
	EditFile(ctx context.Context, path, content string) error
	DeleteFile(ctx context.Context, path string) error
}

// RegisterIsoTools registers the standard tool set: add_fact writes
// through the fact store, and the file tools mutate the workspace.
func RegisterIsoTools(reg *engine.ToolRegistry, store FactAppender, ws Workspace) error {
	type registration struct {
		def     engine.ToolDefinition
		handler engine.Handler
	}

	regs := []registration{
		{
			def: engine.ToolDefinition{
				Name:        "add_fact",
				Description: "Store a long-term fact as a subject-predicate-object triple. Use this when the user shares durable information worth remembering.",
				InputSchema: ObjectSchema(map[string]interface{}{
					"subject":   StringProperty("The entity the fact is about (e.g., 'sun')"),
					"predicate": StringProperty("The relationship or property (e.g., 'rises_in')"),
					"object":    StringProperty("The value or target of the relationship (e.g., 'east')"),
				}, "subject", "predicate", "object"),
			},
			handler: addFactHandler(store),
		},
		{
			def: engine.ToolDefinition{
				Name:        "create_file",
				Description: "Create a new file in the workspace with the given content.",
				InputSchema: ObjectSchema(map[string]interface{}{
					"path":    StringProperty("Workspace-relative file path"),
					"content": StringProperty("Full file content"),
				}, "path", "content"),
			},
			handler: fileHandler(ws, "created", func(ctx context.Context, ws Workspace, path, content string) error {
				return ws.CreateFile(ctx, path, content)
			}),
		},
		{
			def: engine.ToolDefinition{
				Name:        "edit_file",
				Description: "Replace the content of an existing workspace file.",
				InputSchema: ObjectSchema(map[string]interface{}{
					"path":    StringProperty("Workspace-relative file path"),
					"content": StringProperty("New file content"),
				}, "path", "content"),
			},
			handler: fileHandler(ws, "edited", func(ctx context.Context, ws Workspace, path, content string) error {
				return ws.EditFile(ctx, path, content)
			}),
		},
		{
			def: engine.ToolDefinition{
				Name:        "delete_file",
				Description: "Delete a file from the workspace.",
				InputSchema: ObjectSchema(map[string]interface{}{
					"path": StringProperty("Workspace-relative file path"),
				}, "path"),
			},
			handler: fileHandler(ws, "deleted", func(ctx context.Context, ws Workspace, path, _ string) error {
				return ws.DeleteFile(ctx, path)
			}),
		},
	}

	for _, r := range regs {
		if err := reg.Register(r.def, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func addFactHandler(store FactAppender) engine.Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var fact core.Fact
		if err := json.Unmarshal(args, &fact); err != nil {
			return nil, fmt.Errorf("parse add_fact args: %w", err)
		}
		if fact.Subject == "" || fact.Predicate == "" || fact.Object == "" {
			return nil, fmt.Errorf("add_fact requires subject, predicate, and object")
		}
		if err := store.Append(ctx, fact); err != nil {
			return nil, fmt.Errorf("append fact: %w", err)
		}
		return map[string]interface{}{
			"status": "ok",
			"fact":   fact.MemoryString(),
		}, nil
	}
}

func fileHandler(ws Workspace, verb string, op func(ctx context.Context, ws Workspace, path, content string) error) engine.Handler {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var input struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("parse file tool args: %w", err)
		}
		if input.Path == "" {
			return nil, fmt.Errorf("path is required")
		}
		if err := op(ctx, ws, input.Path, input.Content); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"status": "ok",
			"path":   input.Path,
			"action": verb,
		}, nil
	}
}
