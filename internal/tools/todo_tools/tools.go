package todo_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskdeck/internal/calendar"
	"github.com/teemow/taskdeck/internal/server"
	"github.com/teemow/taskdeck/internal/store"
	"github.com/teemow/taskdeck/internal/tools/common"
)

// getDayKeyFromArgs extracts the day key from request arguments, defaulting
// to today's bucket.
func getDayKeyFromArgs(args map[string]interface{}) string {
	if key, ok := args["dayKey"].(string); ok && key != "" {
		return key
	}
	return store.DayKey(time.Now())
}

// getIndexFromArgs extracts the task index. JSON numbers arrive as float64.
func getIndexFromArgs(args map[string]interface{}) (int, bool) {
	switch v := args["index"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// RegisterTodoTools registers all taskdeck tools with the MCP server.
func RegisterTodoTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerTaskTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register task tools: %w", err)
	}

	if err := registerDigestTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register digest tools: %w", err)
	}

	return nil
}

// registerTaskTools registers day-bucket task management tools
func registerTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List tasks tool (read-only, always available)
	listTasksTool := mcp.NewTool("todo_list_tasks",
		mcp.WithDescription("List the tasks of a day bucket"),
		mcp.WithString("dayKey",
			mcp.Description("Day bucket key in the form 'todos_YYYY-MM-DD' (default: today)"),
		),
	)

	s.AddTool(listTasksTool, common.InstrumentedToolHandler("todo_list_tasks", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		dayKey := getDayKeyFromArgs(args)

		tasks, err := sc.Synchronizer().Tasks(ctx, dayKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list tasks: %v", err)), nil
		}
		if tasks == nil {
			tasks = []store.Task{}
		}

		result, _ := json.MarshalIndent(map[string]any{"dayKey": dayKey, "tasks": tasks}, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}))

	if readOnly {
		return nil
	}

	// Add local task tool
	addTaskTool := mcp.NewTool("todo_add_task",
		mcp.WithDescription("Add a task with no calendar link to a day bucket"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The task title"),
		),
		mcp.WithString("dayKey",
			mcp.Description("Day bucket key in the form 'todos_YYYY-MM-DD' (default: today)"),
		),
	)

	s.AddTool(addTaskTool, common.InstrumentedToolHandler("todo_add_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		dayKey := getDayKeyFromArgs(args)

		title, ok := args["title"].(string)
		if !ok || title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}

		task, err := sc.Synchronizer().AddLocalTask(ctx, dayKey, title)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to add task: %v", err)), nil
		}

		result, _ := json.MarshalIndent(task, "", "  ")
		return mcp.NewToolResultText(fmt.Sprintf("Task added to %s:\n%s", dayKey, string(result))), nil
	}))

	// Create event tool
	createEventTool := mcp.NewTool("todo_create_event",
		mcp.WithDescription("Create a calendar event and record a linked task under the event's date"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event and task title"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Event start time (RFC3339 format)"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Event end time (RFC3339 format)"),
		),
		mcp.WithString("timeZone",
			mcp.Required(),
			mcp.Description("IANA timezone of the event, e.g. 'Europe/Berlin'"),
		),
		mcp.WithString("notes",
			mcp.Description("Optional event description"),
		),
		mcp.WithString("colorId",
			mcp.Description("Optional Google Calendar color ID for the event"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandler("todo_create_event", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		title, ok := args["title"].(string)
		if !ok || title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}

		startStr, _ := args["start"].(string)
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("start must be RFC3339: %v", err)), nil
		}

		endStr, _ := args["end"].(string)
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("end must be RFC3339: %v", err)), nil
		}

		timeZone, ok := args["timeZone"].(string)
		if !ok || timeZone == "" {
			return mcp.NewToolResultError("timeZone is required"), nil
		}

		notes, _ := args["notes"].(string)
		colorID, _ := args["colorId"].(string)

		created, err := sc.Synchronizer().CreateFromForm(ctx, calendar.EventInput{
			Title:    title,
			Notes:    notes,
			Start:    start,
			End:      end,
			TimeZone: timeZone,
			ColorID:  colorID,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create event: %v", err)), nil
		}

		result, _ := json.MarshalIndent(created, "", "  ")
		return mcp.NewToolResultText(fmt.Sprintf("Event created successfully:\n%s", string(result))), nil
	}))

	// Toggle done tool
	toggleDoneTool := mcp.NewTool("todo_toggle_done",
		mcp.WithDescription("Toggle a task's done state; linked calendar events are updated to match"),
		mcp.WithString("dayKey",
			mcp.Description("Day bucket key in the form 'todos_YYYY-MM-DD' (default: today)"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Zero-based index of the task within its bucket"),
		),
		mcp.WithBoolean("done",
			mcp.Required(),
			mcp.Description("The new done state"),
		),
	)

	s.AddTool(toggleDoneTool, common.InstrumentedToolHandler("todo_toggle_done", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		dayKey := getDayKeyFromArgs(args)

		index, ok := getIndexFromArgs(args)
		if !ok {
			return mcp.NewToolResultError("index is required"), nil
		}

		done, ok := args["done"].(bool)
		if !ok {
			return mcp.NewToolResultError("done is required"), nil
		}

		task, err := sc.Synchronizer().ToggleDone(ctx, dayKey, index, done)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to toggle task: %v", err)), nil
		}

		result, _ := json.MarshalIndent(task, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}))

	// Delete task tool
	deleteTaskTool := mcp.NewTool("todo_delete_task",
		mcp.WithDescription("Delete a task; a linked calendar event is deleted as well"),
		mcp.WithString("dayKey",
			mcp.Description("Day bucket key in the form 'todos_YYYY-MM-DD' (default: today)"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Zero-based index of the task within its bucket"),
		),
	)

	s.AddTool(deleteTaskTool, common.InstrumentedToolHandler("todo_delete_task", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		dayKey := getDayKeyFromArgs(args)

		index, ok := getIndexFromArgs(args)
		if !ok {
			return mcp.NewToolResultError("index is required"), nil
		}

		task, err := sc.Synchronizer().DeleteTask(ctx, dayKey, index)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete task: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task %q deleted from %s", task.Title, dayKey)), nil
	}))

	// Clear completed tool
	clearCompletedTool := mcp.NewTool("todo_clear_completed",
		mcp.WithDescription("Remove all finished tasks from a day bucket; calendar events are kept"),
		mcp.WithString("dayKey",
			mcp.Description("Day bucket key in the form 'todos_YYYY-MM-DD' (default: today)"),
		),
	)

	s.AddTool(clearCompletedTool, common.InstrumentedToolHandler("todo_clear_completed", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		dayKey := getDayKeyFromArgs(args)

		remaining, err := sc.Synchronizer().ClearCompleted(ctx, dayKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to clear completed tasks: %v", err)), nil
		}
		if remaining == nil {
			remaining = []store.Task{}
		}

		result, _ := json.MarshalIndent(remaining, "", "  ")
		return mcp.NewToolResultText(fmt.Sprintf("Completed tasks cleared from %s, remaining:\n%s", dayKey, string(result))), nil
	}))

	return nil
}

// registerDigestTools registers digest and notification preference tools
func registerDigestTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Preference inspection tool (read-only, always available)
	getPreferencesTool := mcp.NewTool("todo_get_preferences",
		mcp.WithDescription("Show the notification preference and the next scheduled digest"),
	)

	s.AddTool(getPreferencesTool, common.InstrumentedToolHandler("todo_get_preferences", sc, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pref, err := sc.Gate().Preference(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read preference: %v", err)), nil
		}

		data := map[string]any{"preference": pref}
		if scheduler := sc.Scheduler(); scheduler != nil && scheduler.Armed() {
			data["nextDigest"] = scheduler.NextFire().Format(time.RFC3339)
		}

		result, _ := json.MarshalIndent(data, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	}))

	if readOnly {
		return nil
	}

	// Send digest now tool
	sendNowTool := mcp.NewTool("todo_email_unfinished_now",
		mcp.WithDescription("Send the unfinished-task digest immediately, including today's bucket"),
	)

	s.AddTool(sendNowTool, common.InstrumentedToolHandler("todo_email_unfinished_now", sc, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		scheduler := sc.Scheduler()
		if scheduler == nil {
			return mcp.NewToolResultError("digest scheduler is not configured"), nil
		}

		if err := scheduler.SendNow(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to send digest: %v", err)), nil
		}

		return mcp.NewToolResultText("Digest sent"), nil
	}))

	// Notification toggle tool
	notifyToggleTool := mcp.NewTool("todo_notify_toggle",
		mcp.WithDescription("Enable or disable digest notification emails"),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("Whether digest notifications should be sent"),
		),
		mcp.WithString("email",
			mcp.Description("Recipient address, required when enabling"),
		),
	)

	s.AddTool(notifyToggleTool, common.InstrumentedToolHandler("todo_notify_toggle", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		enabled, ok := args["enabled"].(bool)
		if !ok {
			return mcp.NewToolResultError("enabled is required"), nil
		}

		email, _ := args["email"].(string)

		pref, err := sc.Gate().SetEnabled(ctx, enabled, email)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to update notification preference: %v", err)), nil
		}

		result, _ := json.MarshalIndent(pref, "", "  ")
		return mcp.NewToolResultText(fmt.Sprintf("Notification preference updated:\n%s", string(result))), nil
	}))

	return nil
}
