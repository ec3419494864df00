// Package tools holds the stateless utility capabilities shared by every
// session. The notification channel arrives per call, never at
// construction, so nothing here can leak across sessions.
package tools

import (
	"time"

	"maestro.app/gateway/internal/chat"
)

// Registry returns the fixed utility capability catalog.
func Registry() []chat.Capability {
	return []chat.Capability{
		similarityCapability(),
		datetimeCapability(time.Now),
		formatCapability(),
		lookupCapability(NewEncyclopedia()),
	}
}
