package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/internal/chat"
)

const wikipediaAPI = "https://en.wikipedia.org/w/api.php"

const noResultMessage = "Sorry, I couldn't find relevant information about your search."

// Encyclopedia looks up queries against the Wikipedia API: full-text
// search to find the best page, then the intro extract of that page.
type Encyclopedia struct {
	apiURL string
	client *http.Client
}

func NewEncyclopedia() *Encyclopedia {
	return &Encyclopedia{
		apiURL: wikipediaAPI,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Lookup returns the intro extract of the first search hit, or the
// no-result message when the search misses or anything fails.
func (e *Encyclopedia) Lookup(ctx context.Context, query string) string {
	title, err := e.search(ctx, query)
	if err != nil || title == "" {
		if err != nil {
			slog.WarnContext(ctx, "encyclopedia search failed",
				"query", logger.Truncate(query, 120), "error", err)
		}
		return noResultMessage
	}

	extract, err := e.extract(ctx, title)
	if err != nil || extract == "" {
		if err != nil {
			slog.WarnContext(ctx, "encyclopedia extract failed",
				"title", title, "error", err)
		}
		return noResultMessage
	}

	return fmt.Sprintf("According to Wikipedia:\n\n%s", extract)
}

func (e *Encyclopedia) search(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"utf8":     {"1"},
	}

	var payload struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := e.get(ctx, params, &payload); err != nil {
		return "", err
	}
	if len(payload.Query.Search) == 0 {
		return "", nil
	}
	return payload.Query.Search[0].Title, nil
}

func (e *Encyclopedia) extract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"titles":      {title},
		"utf8":        {"1"},
	}

	var payload struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := e.get(ctx, params, &payload); err != nil {
		return "", err
	}
	for _, page := range payload.Query.Pages {
		if page.Extract != "" {
			return page.Extract, nil
		}
	}
	return "", nil
}

func (e *Encyclopedia) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling wikipedia api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia api: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type lookupArgs struct {
	Query string `json:"query" jsonschema:"description=The topic to look up"`
}

func lookupCapability(enc *Encyclopedia) chat.Capability {
	return chat.Capability{
		Name:        "encyclopedia_lookup",
		Description: "Looks up a topic on Wikipedia and returns a summary. Use for factual questions about the world.",
		Parameters:  llm.GenerateSchema[lookupArgs](),
		Invoke: func(ctx context.Context, call chat.CallContext) (string, error) {
			args, err := llm.ParseToolArguments[lookupArgs](call.Arguments)
			if err != nil {
				return "", fmt.Errorf("parsing arguments: %w", err)
			}

			chat.Notify(ctx, call.Channel, chat.EventFunctionCallStart, "Searching Wikipedia...")
			result := enc.Lookup(ctx, args.Query)

			if result == noResultMessage {
				chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "No results found")
			} else {
				chat.Notify(ctx, call.Channel, chat.EventFunctionCallEnd, "Search completed")
			}
			return result, nil
		},
	}
}
