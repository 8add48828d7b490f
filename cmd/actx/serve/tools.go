package serve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flarebyte/active-context/internal/activectx"
)

type processChangesInput struct {
	FileName string `json:"file_name" jsonschema:"descriptor file name under actions/, e.g. 000012_add_cache.yml"`
}

type taskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"id returned by process_changes"`
}

type listTasksInput struct {
	RunningOnly bool `json:"running_only,omitempty" jsonschema:"only list running tasks"`
}

type loadContextsInput struct {
	Files []string `json:"files" jsonschema:"file paths relative to the project source directory"`
}

// tools exposes the manager operations as MCP tool handlers.
type tools struct {
	manager *activectx.Manager
}

func (t tools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_changes",
		Description: "Start a background task updating the active context documents of the directories a task descriptor touches. Returns the task id.",
	}, t.processChanges)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "task_status",
		Description: "Return the state of an active context task.",
	}, t.taskStatus)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List active context tasks in start order.",
	}, t.listTasks)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_active_contexts",
		Description: "Return the active context documents covering files, and the files no document covers.",
	}, t.loadContexts)
}

func (t tools) processChanges(ctx context.Context, _ *mcp.CallToolRequest, in processChangesInput) (*mcp.CallToolResult, any, error) {
	id, err := t.manager.ProcessChanges(ctx, in.FileName)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(map[string]string{"task_id": id})
}

func (t tools) taskStatus(_ context.Context, _ *mcp.CallToolRequest, in taskStatusInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(t.manager.TaskStatus(in.TaskID))
}

func (t tools) listTasks(_ context.Context, _ *mcp.CallToolRequest, in listTasksInput) (*mcp.CallToolResult, any, error) {
	if in.RunningOnly {
		return jsonResult(t.manager.RunningTasks())
	}
	return jsonResult(t.manager.AllTasks())
}

func (t tools) loadContexts(_ context.Context, _ *mcp.CallToolRequest, in loadContextsInput) (*mcp.CallToolResult, any, error) {
	return jsonResult(t.manager.LoadActiveContextsForFiles(in.Files))
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
