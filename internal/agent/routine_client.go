package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrNotFound reports that the external API has no record for the id.
var ErrNotFound = errors.New("record not found")

// RoutineAPI is the external routines CRUD surface. Records travel as loose
// documents so the merge-on-update path preserves fields this service does
// not model.
type RoutineAPI interface {
	List(ctx context.Context) ([]map[string]any, error)
	Get(ctx context.Context, id string) (map[string]any, error)
	Create(ctx context.Context, record map[string]any) (map[string]any, error)
	Update(ctx context.Context, id string, record map[string]any) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}

type routineClient struct {
	baseURL string
	client  *http.Client
}

// NewRoutineClient builds the HTTP client for the routines CRUD API.
func NewRoutineClient(baseURL string) RoutineAPI {
	return &routineClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *routineClient) List(ctx context.Context) ([]map[string]any, error) {
	doc, err := c.do(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("decoding routine list: %w", err)
	}
	return payload.Data, nil
}

func (c *routineClient) Get(ctx context.Context, id string) (map[string]any, error) {
	doc, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+id, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("decoding routine: %w", err)
	}
	if payload.Data == nil {
		return nil, ErrNotFound
	}
	return payload.Data, nil
}

func (c *routineClient) Create(ctx context.Context, record map[string]any) (map[string]any, error) {
	doc, err := c.do(ctx, http.MethodPost, c.baseURL, record)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("decoding created routine: %w", err)
	}
	return payload.Data, nil
}

func (c *routineClient) Update(ctx context.Context, id string, record map[string]any) (map[string]any, error) {
	doc, err := c.do(ctx, http.MethodPut, c.baseURL+"/"+id, record)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("decoding updated routine: %w", err)
	}
	return payload.Data, nil
}

func (c *routineClient) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+"/"+id, nil)
	return err
}

// do performs one request and returns the innermost response document.
func (c *routineClient) do(ctx context.Context, method, url string, body any) (json.RawMessage, error) {
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

	slog.DebugContext(ctx, "routine api call",
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
		if doc, decodeErr := decodeEnvelope(raw); decodeErr == nil {
			if msg := envelopeMessage(doc); msg != "" {
				return nil, fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}

	return decodeEnvelope(raw)
}
