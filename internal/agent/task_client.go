package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TaskAPI is the external tasks CRUD surface.
type TaskAPI interface {
	List(ctx context.Context) ([]map[string]any, error)
	Create(ctx context.Context, record map[string]any) (map[string]any, error)
	Update(ctx context.Context, id string, fields map[string]any) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}

type taskClient struct {
	baseURL string
	client  *http.Client
}

// NewTaskClient builds the HTTP client for the tasks CRUD API.
func NewTaskClient(baseURL string) TaskAPI {
	return &taskClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// List tolerates both response shapes the API has produced over time: a
// Lambda envelope with an Items array (body possibly stringified) and a
// direct JSON list.
func (c *taskClient) List(ctx context.Context) ([]map[string]any, error) {
	doc, err := c.do(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	var items struct {
		Items []map[string]any `json:"Items"`
	}
	if err := json.Unmarshal(doc, &items); err == nil && items.Items != nil {
		return items.Items, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(doc, &list); err != nil {
		return nil, fmt.Errorf("decoding task list: %w", err)
	}
	return list, nil
}

func (c *taskClient) Create(ctx context.Context, record map[string]any) (map[string]any, error) {
	doc, err := c.do(ctx, http.MethodPost, c.baseURL, record)
	if err != nil {
		return nil, err
	}
	return decodeTaskRecord(doc)
}

func (c *taskClient) Update(ctx context.Context, id string, fields map[string]any) (map[string]any, error) {
	doc, err := c.do(ctx, http.MethodPatch, c.baseURL+"/"+id, fields)
	if err != nil {
		return nil, err
	}
	return decodeTaskRecord(doc)
}

func (c *taskClient) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+"/"+id, nil)
	return err
}

func decodeTaskRecord(doc json.RawMessage) (map[string]any, error) {
	var record map[string]any
	if err := json.Unmarshal(doc, &record); err != nil {
		return nil, fmt.Errorf("decoding task record: %w", err)
	}
	return record, nil
}

func (c *taskClient) do(ctx context.Context, method, url string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	slog.DebugContext(ctx, "task api call",
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode == http.StatusNoContent {
		return json.RawMessage("{}"), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}

	return decodeEnvelope(raw)
}
