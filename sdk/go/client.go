package orderlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Orderline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// WorkOrder represents the API work order model.
type WorkOrder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	StartDate   string `json:"start_date,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// TimeEntry represents one registered work interval.
type TimeEntry struct {
	ID            string  `json:"id"`
	WorkOrderID   string  `json:"work_order_id"`
	WorkerID      string  `json:"worker_id"`
	Date          string  `json:"date"`
	Start         string  `json:"start"`
	End           *string `json:"end,omitempty"`
	BreakMinutes  int     `json:"break_minutes"`
	TravelMinutes int     `json:"travel_minutes"`
	Description   string  `json:"description,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// TimesheetRow pairs an entry with its computed worked time. Open entries
// carry no minutes.
type TimesheetRow struct {
	Entry   TimeEntry `json:"entry"`
	Open    bool      `json:"open"`
	Minutes *int      `json:"minutes,omitempty"`
	Hours   string    `json:"hours,omitempty"`
}

// WorkerTotal is a per-worker sum within the requested period.
type WorkerTotal struct {
	WorkerID string `json:"worker_id"`
	Name     string `json:"name"`
	Minutes  int    `json:"minutes"`
	Hours    string `json:"hours"`
}

// Timesheet is the aggregated view of a work order's entries. Totals are
// present only when a period was requested.
type Timesheet struct {
	WorkOrderID        string         `json:"work_order_id"`
	Period             string         `json:"period,omitempty"`
	Rows               []TimesheetRow `json:"rows"`
	WorkerTotals       []WorkerTotal  `json:"worker_totals,omitempty"`
	PeriodTotalMinutes *int           `json:"period_total_minutes,omitempty"`
	PeriodTotalHours   string         `json:"period_total_hours,omitempty"`
}

// Worker represents a registered worker.
type Worker struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// APIKey represents an issued key. Key is only set in the create response.
type APIKey struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	WorkerID   string `json:"worker_id"`
	Payload    string `json:"payload_json,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Period selects a reporting window for timesheet calls. Set at most one
// field: Day and Week take a date (2006-01-02), Month takes 2006-01.
type Period struct {
	Day   string
	Week  string
	Month string
}

func (p Period) query() url.Values {
	q := url.Values{}
	if p.Day != "" {
		q.Set("day", p.Day)
	}
	if p.Week != "" {
		q.Set("week", p.Week)
	}
	if p.Month != "" {
		q.Set("month", p.Month)
	}
	return q
}

// CreateWorkOrder creates a work order.
func (c *Client) CreateWorkOrder(ctx context.Context, title string, fields map[string]any) (WorkOrder, error) {
	body := map[string]any{"title": title}
	for k, v := range fields {
		body[k] = v
	}
	var resp WorkOrder
	err := c.do(ctx, http.MethodPost, "v0/workorders", body, &resp)
	return resp, err
}

// GetWorkOrder fetches a work order by id.
func (c *Client) GetWorkOrder(ctx context.Context, id string) (WorkOrder, error) {
	var resp WorkOrder
	err := c.do(ctx, http.MethodGet, "v0/workorders/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListWorkOrders returns work orders, optionally filtered by status.
func (c *Client) ListWorkOrders(ctx context.Context, status string) ([]WorkOrder, error) {
	endpoint := "v0/workorders"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []WorkOrder
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// RegisterTime registers a time entry against a work order. Fields follow
// the API request body (date, start, end, break, travel, description,
// worker_id).
func (c *Client) RegisterTime(ctx context.Context, workOrderID string, fields map[string]any) (TimeEntry, error) {
	var resp TimeEntry
	endpoint := fmt.Sprintf("v0/workorders/%s/entries", url.PathEscape(workOrderID))
	err := c.do(ctx, http.MethodPost, endpoint, fields, &resp)
	return resp, err
}

// Timesheet returns the aggregated timesheet for a work order.
func (c *Client) Timesheet(ctx context.Context, workOrderID string, period Period) (Timesheet, error) {
	endpoint := fmt.Sprintf("v0/workorders/%s/timesheet", url.PathEscape(workOrderID))
	if q := period.query().Encode(); q != "" {
		endpoint += "?" + q
	}
	var resp Timesheet
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// ExportTimesheet downloads a rendered timesheet. Format is "xlsx" or
// "html"; the returned filename comes from the Content-Disposition header.
func (c *Client) ExportTimesheet(ctx context.Context, workOrderID, format string, period Period) (data []byte, filename string, err error) {
	endpoint := fmt.Sprintf("v0/workorders/%s/timesheet/export", url.PathEscape(workOrderID))
	q := period.query()
	if format != "" {
		q.Set("format", format)
	}
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	resp, err := c.raw(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if _, params, perr := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); perr == nil {
		filename = params["filename"]
	}
	return data, filename, nil
}

// UpsertWorker creates or renames a worker.
func (c *Client) UpsertWorker(ctx context.Context, id, name string) (Worker, error) {
	var resp Worker
	err := c.do(ctx, http.MethodPost, "v0/workers", map[string]any{"id": id, "name": name}, &resp)
	return resp, err
}

// CreateAPIKey issues an API key for a worker. The raw key is only present
// in this response.
func (c *Client) CreateAPIKey(ctx context.Context, workerID, name string) (APIKey, error) {
	var resp APIKey
	endpoint := fmt.Sprintf("v0/workers/%s/api-keys", url.PathEscape(workerID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"name": name}, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.raw(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	return c.HTTPClient.Do(req)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
