package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/internal/chat"
)

const taskSystemPrompt = `You are an agent specialized in task management.
Your job is to create, list, update and delete tasks using the available tools.

When creating tasks only the 'description' field is required.
All other fields are optional with these defaults:
- priority: 'medium'
- category: 'general'
- status: 'pending'

Create and update inputs use the 'field=value' pipe-delimited encoding,
for example: description=Buy groceries|priority=high.
Update inputs prefix the task id: <id>|field=value|...
Always provide clear and organized answers.`

// taskDefaults are applied to fields the caller omits on create.
func taskDefaults() map[string]any {
	return map[string]any{
		"priority": "medium",
		"category": "general",
		"status":   "pending",
	}
}

// TaskAgent is the specialized handler for the tasks CRUD API. The API has
// no single-record read, so lookups go through the list.
type TaskAgent struct {
	engine llm.AgentClient
	api    TaskAPI
}

func NewTaskAgent(engine llm.AgentClient, api TaskAPI) *TaskAgent {
	return &TaskAgent{engine: engine, api: api}
}

// Capability returns the coordinator-facing routing capability.
func (a *TaskAgent) Capability() chat.Capability {
	return chat.Capability{
		Name:        "route_to_task_agent",
		Description: "Handles any request about tasks or to-dos: creating, listing, viewing, updating or deleting them.",
		Parameters:  llm.GenerateSchema[routeArgs](),
		Invoke: func(ctx context.Context, call chat.CallContext) (string, error) {
			args, err := llm.ParseToolArguments[routeArgs](call.Arguments)
			if err != nil {
				return "", fmt.Errorf("parsing routing arguments: %w", err)
			}

			ctx = logger.WithLogFields(ctx, logger.LogFields{Agent: logger.Ptr("task")})
			slog.InfoContext(ctx, "routing to task agent",
				"query", logger.Truncate(args.Query, 200))

			return runSubAgent(ctx, a.engine, taskSystemPrompt, call, args.Query, a.capabilities())
		},
	}
}

func (a *TaskAgent) capabilities() []chat.Capability {
	return []chat.Capability{
		{
			Name:        "get_tasks",
			Description: "Lists all tasks. Use when the user wants to see every task.",
			Parameters:  llm.GenerateSchema[struct{}](),
			Invoke:      a.list,
		},
		{
			Name:        "get_task",
			Description: "Gets the details of one task by its id.",
			Parameters:  llm.GenerateSchema[recordIDArgs](),
			Invoke:      a.get,
		},
		{
			Name:        "create_task",
			Description: "Creates a new task from field=value pipe-delimited data, e.g. description=Buy groceries|priority=high. Only 'description' is required.",
			Parameters:  llm.GenerateSchema[recordInputArgs](),
			Invoke:      a.create,
		},
		{
			Name:        "update_task",
			Description: "Updates an existing task. Input: <id>|field=value|... with only the fields to change.",
			Parameters:  llm.GenerateSchema[recordInputArgs](),
			Invoke:      a.update,
		},
		{
			Name:        "delete_task",
			Description: "Deletes a task by its id.",
			Parameters:  llm.GenerateSchema[recordIDArgs](),
			Invoke:      a.del,
		},
	}
}

func (a *TaskAgent) list(ctx context.Context, call chat.CallContext) (string, error) {
	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Fetching tasks...")

	tasks, err := a.api.List(ctx)
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to fetch tasks")
		return fmt.Sprintf("Error listing tasks: %s", err), nil
	}

	if len(tasks) == 0 {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "No tasks found")
		return "No tasks found.", nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, fmt.Sprintf("Found %d tasks", len(tasks)))

	var b strings.Builder
	b.WriteString("Here are all your tasks:\n\n")
	for _, t := range tasks {
		writeTask(&b, t)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Task list retrieved")
	return b.String(), nil
}

func (a *TaskAgent) get(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordIDArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	if strings.TrimSpace(args.ID) == "" {
		return "Please provide the ID of the task you want to get.", nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Fetching task details...")

	tasks, err := a.api.List(ctx)
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to fetch tasks")
		return fmt.Sprintf("Error getting task: %s", err), nil
	}

	for _, t := range tasks {
		if taskID(t) == args.ID {
			var b strings.Builder
			b.WriteString("Task details:\n\n")
			writeTask(&b, t)
			chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Task retrieved")
			return b.String(), nil
		}
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Task not found")
	return fmt.Sprintf("Task with ID %s not found.", args.ID), nil
}

func (a *TaskAgent) create(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordInputArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Creating task...")

	if strings.TrimSpace(args.Input) == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No task data provided")
		return "Please provide the task data you want to create.", nil
	}

	fields := parseFields(args.Input, taskFieldAliases)
	description := strings.TrimSpace(fields["description"])
	if description == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Validation failed: description required")
		return "The description field is required and cannot be empty.", nil
	}

	record := taskDefaults()
	record["description"] = description
	for field, value := range fields {
		if field != "description" {
			record[field] = value
		}
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, "Submitting task to API...")

	created, err := a.api.Create(ctx, record)
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to create task")
		return fmt.Sprintf("Error creating task: %s", err), nil
	}

	var result string
	if id := taskID(created); id != "" {
		result = fmt.Sprintf("Task created successfully!\nID: %s", id)
	} else {
		result = "Task created successfully, but no ID was returned."
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, result)
	return result, nil
}

func (a *TaskAgent) update(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordInputArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Updating task...")

	id, rest := splitUpdateInput(args.Input)
	if id == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No task id provided")
		return "Invalid format. Use: '<task_id>|field1=value1|field2=value2|...'", nil
	}

	fields := parseFields(rest, taskFieldAliases)
	if len(fields) == 0 {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No fields to update")
		return "No fields to update were provided.", nil
	}

	updates := make(map[string]any, len(fields))
	for field, value := range fields {
		updates[field] = value
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, "Submitting update to API...")

	if _, err := a.api.Update(ctx, id, updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Task not found")
			return fmt.Sprintf("Task with ID %s not found.", id), nil
		}
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to update task")
		return fmt.Sprintf("Error updating task: %s", err), nil
	}

	result := fmt.Sprintf("Task updated successfully!\nID: %s", id)
	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, result)
	return result, nil
}

func (a *TaskAgent) del(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordIDArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Deleting task...")

	if strings.TrimSpace(args.ID) == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No task id provided")
		return "Please provide the ID of the task you want to delete.", nil
	}

	err = a.api.Delete(ctx, args.ID)
	if errors.Is(err, ErrNotFound) {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Task not found")
		return fmt.Sprintf("Task with ID %s not found.", args.ID), nil
	}
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to delete task")
		return fmt.Sprintf("Error deleting task: %s", err), nil
	}

	result := fmt.Sprintf("Task %s deleted successfully!", args.ID)
	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, result)
	return result, nil
}

// taskID extracts a record id tolerating the casing drift between the
// API's response shapes.
func taskID(task map[string]any) string {
	for _, key := range []string{"id", "ID", "Id"} {
		if v, ok := task[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func writeTask(b *strings.Builder, task map[string]any) {
	description, _ := task["description"].(string)
	if description == "" {
		if v, ok := task["Description"].(string); ok {
			description = v
		}
	}
	if description == "" {
		description = "No description"
	}
	fmt.Fprintf(b, "**%s**\n", description)

	keys := make([]string, 0, len(task))
	for k := range task {
		if !strings.EqualFold(k, "description") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(b, "- **%s:** %v\n", k, task[k])
	}
	b.WriteString("\n")
}
