package teamforgesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Teamforge HTTP API client.
type Client struct {
	BaseURL     string
	WorkspaceID string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, workspaceID string) *Client {
	return &Client{
		BaseURL:     baseURL,
		WorkspaceID: workspaceID,
		Timeout:     10 * time.Second,
	}
}

// Workspace represents the API workspace model (partial).
type Workspace struct {
	ID          string `json:"id"`
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// OwnedCategory is one titled group of owned items.
type OwnedCategory struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Role represents the API role model (partial).
type Role struct {
	ID               string          `json:"id"`
	WorkspaceID      string          `json:"workspace_id"`
	Title            string          `json:"title"`
	PrimaryType      string          `json:"primary_type,omitempty"`
	SecondaryType    string          `json:"secondary_type,omitempty"`
	Owns             []OwnedCategory `json:"owns,omitempty"`
	DoesNotOwn       []string        `json:"does_not_own,omitempty"`
	OverseesStageIDs []string        `json:"oversees_stage_ids,omitempty"`
}

// Overlap is one contested ownership item.
type Overlap struct {
	Item   string   `json:"item"`
	Owners []string `json:"owners"`
}

// Health is the workspace health score.
type Health struct {
	IssueCount    int    `json:"issue_count"`
	SLARatio      string `json:"sla_ratio"`
	StaffingRatio string `json:"staffing_ratio"`
	Severity      string `json:"severity"`
}

// Report is the diagnostics response (partial; raw sections are kept for
// callers that want everything).
type Report struct {
	Focus    string          `json:"focus"`
	Message  string          `json:"message"`
	Overlaps []Overlap       `json:"overlaps,omitempty"`
	Health   *Health         `json:"health,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// Event represents a log entry.
type Event struct {
	ID          int64          `json:"id"`
	TS          string         `json:"ts"`
	Type        string         `json:"type"`
	WorkspaceID string         `json:"workspace_id"`
	EntityID    string         `json:"entity_id"`
	EntityKind  string         `json:"entity_kind"`
	Payload     map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateWorkspace creates a workspace. The calling actor becomes its owner.
func (c *Client) CreateWorkspace(ctx context.Context, id, orgID, name string) (Workspace, error) {
	body := map[string]any{
		"id":     id,
		"org_id": orgID,
		"name":   name,
	}
	var resp Workspace
	err := c.do(ctx, http.MethodPost, "v1/workspaces", body, &resp)
	return resp, err
}

// Workspaces lists workspaces visible to the caller.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var resp []Workspace
	err := c.do(ctx, http.MethodGet, "v1/workspaces", nil, &resp)
	return resp, err
}

// CreateRole creates a role with ownership claims.
func (c *Client) CreateRole(ctx context.Context, title string, owns []OwnedCategory) (Role, error) {
	body := map[string]any{
		"title": title,
	}
	if owns != nil {
		body["owns"] = owns
	}
	var resp Role
	err := c.do(ctx, http.MethodPost, c.workspacePath("roles"), body, &resp)
	return resp, err
}

// Roles lists the workspace's roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var resp []Role
	err := c.do(ctx, http.MethodGet, c.workspacePath("roles"), nil, &resp)
	return resp, err
}

// Diagnose runs diagnostics for the given focus area ("" means full).
func (c *Client) Diagnose(ctx context.Context, focus string) (Report, error) {
	endpoint := c.workspacePath("diagnostics")
	if focus != "" {
		endpoint = fmt.Sprintf("%s?focus=%s", endpoint, url.QueryEscape(focus))
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return Report{}, err
	}
	var resp Report
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Report{}, err
	}
	resp.Raw = raw
	return resp, nil
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := c.workspacePath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
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

func (c *Client) workspacePath(p string) string {
	workspace := url.PathEscape(c.WorkspaceID)
	return fmt.Sprintf("v1/workspaces/%s/%s", workspace, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
