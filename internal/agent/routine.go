package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/internal/chat"
)

const routineSystemPrompt = `You are an agent specialized in routine management.
Your job is to create, list, update and delete routines using the available tools.

When creating or updating routines only the 'name' field is required.
All other fields are optional with these defaults:
- status: 'pending'
- schedule: '09:00'
- frequency: 'daily'
- priority: 'low'

Omit optional fields entirely rather than sending them empty.
Create and update inputs use the 'field=value' pipe-delimited encoding,
for example: name=Exercise|schedule=07:00|priority=high.
Update inputs prefix the routine id: <id>|field=value|...`

var (
	routineValidStatus    = []string{"pending", "in_progress", "completed", "cancelled"}
	routineValidFrequency = []string{"daily", "weekly", "monthly", "weekdays", "weekends", "custom"}
	routineValidPriority  = []string{"low", "medium", "high"}
)

// routineDefaults are applied to fields the caller omits on create.
func routineDefaults() map[string]any {
	return map[string]any{
		"status":             "pending",
		"schedule":           "09:00",
		"frequency":          "daily",
		"priority":           "low",
		"tags":               []string{},
		"estimated_duration": 0,
		"description":        "",
	}
}

// RoutineAgent is the specialized handler for the routines CRUD API. It
// runs its own function-calling cycle with a private capability set and is
// exposed to the coordinator as a single routing capability.
type RoutineAgent struct {
	engine llm.AgentClient
	api    RoutineAPI
}

func NewRoutineAgent(engine llm.AgentClient, api RoutineAPI) *RoutineAgent {
	return &RoutineAgent{engine: engine, api: api}
}

type routeArgs struct {
	Query string `json:"query" jsonschema:"description=The user's request, restated with all relevant details"`
}

type recordIDArgs struct {
	ID string `json:"id" jsonschema:"description=The record identifier"`
}

type recordInputArgs struct {
	Input string `json:"input" jsonschema:"description=Pipe-delimited field=value data"`
}

// Capability returns the coordinator-facing routing capability.
func (a *RoutineAgent) Capability() chat.Capability {
	return chat.Capability{
		Name:        "route_to_routine_agent",
		Description: "Handles any request about routines: creating, listing, viewing, updating or deleting them.",
		Parameters:  llm.GenerateSchema[routeArgs](),
		Invoke: func(ctx context.Context, call chat.CallContext) (string, error) {
			args, err := llm.ParseToolArguments[routeArgs](call.Arguments)
			if err != nil {
				return "", fmt.Errorf("parsing routing arguments: %w", err)
			}

			ctx = logger.WithLogFields(ctx, logger.LogFields{Agent: logger.Ptr("routine")})
			slog.InfoContext(ctx, "routing to routine agent",
				"query", logger.Truncate(args.Query, 200))

			return runSubAgent(ctx, a.engine, routineSystemPrompt, call, args.Query, a.capabilities())
		},
	}
}

func (a *RoutineAgent) capabilities() []chat.Capability {
	return []chat.Capability{
		{
			Name:        "list_routines",
			Description: "Lists all routines. Use when the user wants to see every routine.",
			Parameters:  llm.GenerateSchema[struct{}](),
			Invoke:      a.list,
		},
		{
			Name:        "get_routine",
			Description: "Gets the details of one routine by its id.",
			Parameters:  llm.GenerateSchema[recordIDArgs](),
			Invoke:      a.get,
		},
		{
			Name:        "create_routine",
			Description: "Creates a new routine from field=value pipe-delimited data, e.g. name=Exercise|priority=high. Only 'name' is required.",
			Parameters:  llm.GenerateSchema[recordInputArgs](),
			Invoke:      a.create,
		},
		{
			Name:        "update_routine",
			Description: "Updates an existing routine. Input: <id>|field=value|... with only the fields to change.",
			Parameters:  llm.GenerateSchema[recordInputArgs](),
			Invoke:      a.update,
		},
		{
			Name:        "delete_routine",
			Description: "Deletes a routine by its id.",
			Parameters:  llm.GenerateSchema[recordIDArgs](),
			Invoke:      a.del,
		},
	}
}

func (a *RoutineAgent) list(ctx context.Context, call chat.CallContext) (string, error) {
	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Listing routines...")

	routines, err := a.api.List(ctx)
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to fetch routines")
		return fmt.Sprintf("Error listing routines: %s", err), nil
	}

	if len(routines) == 0 {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "No routines found")
		return "No routines found.", nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, fmt.Sprintf("Found %d routines", len(routines)))

	var b strings.Builder
	b.WriteString("Here are all your routines:\n\n")
	for _, r := range routines {
		writeRoutine(&b, r)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Routine list retrieved")
	return b.String(), nil
}

func (a *RoutineAgent) get(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordIDArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	if strings.TrimSpace(args.ID) == "" {
		return "Please provide the ID of the routine you want to get.", nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Fetching routine details...")

	routine, err := a.api.Get(ctx, args.ID)
	if errors.Is(err, ErrNotFound) {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Routine not found")
		return fmt.Sprintf("Routine with ID %s not found.", args.ID), nil
	}
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to fetch routine")
		return fmt.Sprintf("Error getting routine: %s", err), nil
	}

	var b strings.Builder
	b.WriteString("Routine details:\n\n")
	writeRoutine(&b, routine)

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Routine retrieved")
	return b.String(), nil
}

func (a *RoutineAgent) create(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordInputArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Creating routine...")

	if strings.TrimSpace(args.Input) == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No routine data provided")
		return "Please provide the routine data you want to create.", nil
	}

	fields := parseFields(args.Input, routineFieldAliases)
	record, msg := buildRoutineRecord(fields)
	if msg != "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Validation failed: "+msg)
		return msg, nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, "Submitting routine to API...")

	created, err := a.api.Create(ctx, record)
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to create routine")
		return fmt.Sprintf("Error creating routine: %s", err), nil
	}

	id, _ := created["id"].(string)
	var result string
	if id != "" {
		result = fmt.Sprintf("Routine created successfully!\nID: %s", id)
	} else {
		result = "Routine created successfully, but no ID was returned."
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, result)
	return result, nil
}

func (a *RoutineAgent) update(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordInputArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Updating routine...")

	id, rest := splitUpdateInput(args.Input)
	if id == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No routine id provided")
		return "Invalid format. Use: '<routine_id>|field1=value1|field2=value2|...'", nil
	}

	updates, msg := routineUpdates(parseFields(rest, routineFieldAliases))
	if msg != "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Validation failed: "+msg)
		return msg, nil
	}
	if len(updates) == 0 {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No fields to update")
		return "No fields to update were provided.", nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, "Fetching existing routine...")

	existing, err := a.api.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Routine not found")
		return fmt.Sprintf("Routine with ID %s not found.", id), nil
	}
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to fetch routine")
		return fmt.Sprintf("Error fetching existing routine: %s", err), nil
	}

	// Last-write-wins merge onto the stored record. Two racing updates on
	// the same id can clobber each other; accepted limitation.
	merged := make(map[string]any, len(existing)+len(updates))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}

	if msg := validateRoutineFields(merged); msg != "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Validation failed: "+msg)
		return msg, nil
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallInfo, "Submitting update to API...")

	if _, err := a.api.Update(ctx, id, merged); err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to update routine")
		return fmt.Sprintf("Error updating routine: %s", err), nil
	}

	result := fmt.Sprintf("Routine updated successfully!\nID: %s", id)
	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, result)
	return result, nil
}

func (a *RoutineAgent) del(ctx context.Context, call chat.CallContext) (string, error) {
	args, err := llm.ParseToolArguments[recordIDArgs](call.Arguments)
	if err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}

	chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Deleting routine...")

	if strings.TrimSpace(args.ID) == "" {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "No routine id provided")
		return "Please provide the ID of the routine you want to delete.", nil
	}

	err = a.api.Delete(ctx, args.ID)
	if errors.Is(err, ErrNotFound) {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Routine not found")
		return fmt.Sprintf("Routine with ID %s not found.", args.ID), nil
	}
	if err != nil {
		chat.Notify(ctx, call.Channel, chat.EventFunctionCallError, "Failed to delete routine")
		return fmt.Sprintf("Error deleting routine: %s", err), nil
	}

	result := fmt.Sprintf("Routine %s deleted successfully!", args.ID)
	chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, result)
	return result, nil
}

// buildRoutineRecord turns parsed create fields into a full record:
// defaults applied, types converted, everything validated. A non-empty
// message is a user-visible validation failure.
func buildRoutineRecord(fields map[string]string) (map[string]any, string) {
	name := strings.TrimSpace(fields["name"])
	if name == "" {
		return nil, "The name field is required and cannot be empty."
	}

	record := routineDefaults()
	record["name"] = name

	typed, msg := routineUpdates(fields)
	if msg != "" {
		return nil, msg
	}
	for k, v := range typed {
		record[k] = v
	}

	if msg := validateRoutineFields(record); msg != "" {
		return nil, msg
	}
	return record, ""
}

// routineUpdates converts raw string fields to their record types.
func routineUpdates(fields map[string]string) (map[string]any, string) {
	updates := make(map[string]any, len(fields))
	for field, value := range fields {
		switch field {
		case "tags":
			updates[field] = splitTags(value)
		case "estimated_duration":
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Sprintf("Invalid value for estimated_duration: %s. Must be an integer.", value)
			}
			updates[field] = n
		default:
			updates[field] = value
		}
	}
	return updates, ""
}

// validateRoutineFields checks enumerated values and formats on whichever
// fields are present. A non-empty return is the user-visible failure.
func validateRoutineFields(record map[string]any) string {
	if v, ok := record["status"].(string); ok && v != "" && !slices.Contains(routineValidStatus, v) {
		return fmt.Sprintf("Invalid value for 'status'. Allowed values: %s", strings.Join(routineValidStatus, ", "))
	}
	if v, ok := record["frequency"].(string); ok && v != "" && !slices.Contains(routineValidFrequency, v) {
		return fmt.Sprintf("Invalid value for 'frequency'. Allowed values: %s", strings.Join(routineValidFrequency, ", "))
	}
	if v, ok := record["priority"].(string); ok && v != "" && !slices.Contains(routineValidPriority, v) {
		return fmt.Sprintf("Invalid value for 'priority'. Allowed values: %s", strings.Join(routineValidPriority, ", "))
	}
	if v, ok := record["schedule"].(string); ok && v != "" {
		if _, err := time.Parse("15:04", v); err != nil {
			return "Invalid time format for 'schedule'. Use HH:MM."
		}
	}
	for _, field := range []string{"start_date", "end_date"} {
		if v, ok := record[field].(string); ok && v != "" {
			if !validISODate(v) {
				return fmt.Sprintf("Invalid date format for '%s'. Use ISO format (YYYY-MM-DD).", field)
			}
		}
	}
	if n, ok := record["estimated_duration"].(int); ok && n < 0 {
		return "Duration must be greater than or equal to zero."
	}
	return ""
}

func validISODate(v string) bool {
	if _, err := time.Parse("2006-01-02", v); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, v)
	return err == nil
}

// writeRoutine renders one routine record as a markdown block with the
// name as the title.
func writeRoutine(b *strings.Builder, routine map[string]any) {
	name, _ := routine["name"].(string)
	if name == "" {
		name = "No name"
	}
	fmt.Fprintf(b, "**%s**\n", name)

	keys := make([]string, 0, len(routine))
	for k := range routine {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := routine[k]
		switch typed := v.(type) {
		case []any:
			parts := make([]string, 0, len(typed))
			for _, item := range typed {
				parts = append(parts, fmt.Sprint(item))
			}
			v = strings.Join(parts, ", ")
		case []string:
			v = strings.Join(typed, ", ")
		}
		fmt.Fprintf(b, "- **%s:** %v\n", k, v)
	}
	b.WriteString("\n")
}
