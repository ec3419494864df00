package tools

import (
	"context"
	"fmt"
	"time"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/internal/chat"
)

func datetimeCapability(now func() time.Time) chat.Capability {
	return chat.Capability{
		Name:        "datetime_info",
		Description: "Gives the current date, weekday and time. Use for any question about today's date or the current time.",
		Parameters:  llm.GenerateSchema[struct{}](),
		Invoke: func(ctx context.Context, call chat.CallContext) (string, error) {
			chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Getting current date and time...")

			t := now()
			result := fmt.Sprintf("Current date and time:\n- Date: %s\n- Weekday: %s\n- Time: %s",
				t.Format("January 2, 2006"), t.Weekday(), t.Format("15:04"))

			chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Date and time retrieved")
			return result, nil
		},
	}
}
