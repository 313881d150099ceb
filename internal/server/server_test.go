package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/db"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine"
	"github.com/Lbridge2222/Teamforge-sub001/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("ws-1")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	if _, err := e.InitWorkspace(context.Background(), "ws-1", "org-1", "Test Workspace", "", "tester"); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asTester() map[string]string {
	return map[string]string{"X-Actor-Id": "tester"}
}

func TestDedicatedReportEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/workspaces/ws-1"

	res, data := doJSON(t, client, http.MethodPost, base+"/roles", map[string]any{
		"id":    "role-1",
		"title": "Pipeline Manager",
		"owns": []map[string]any{
			{"title": "Reporting", "items": []string{"Pipeline Reports"}},
		},
	}, asTester())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create role status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/roles", map[string]any{
		"id":    "role-2",
		"title": "Sales Analyst",
		"owns": []map[string]any{
			{"title": "Analytics", "items": []string{"pipeline reports"}},
		},
	}, asTester())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create role status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/activities", map[string]any{
		"id":   "act-1",
		"name": "Qualify leads",
	}, asTester())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create activity status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics/overlaps", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("overlaps status %d: %s", res.StatusCode, string(data))
	}
	var overlaps []struct {
		Item   string   `json:"item"`
		Owners []string `json:"owners"`
	}
	if err := json.Unmarshal(data, &overlaps); err != nil {
		t.Fatalf("unmarshal overlaps: %v", err)
	}
	if len(overlaps) != 1 || overlaps[0].Item != "pipeline reports" {
		t.Fatalf("overlaps = %s", string(data))
	}

	// Summary and coverage are exposed directly, not only inside focus=full.
	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics/summary", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d: %s", res.StatusCode, string(data))
	}
	var summary struct {
		Total      int `json:"total"`
		Unassigned int `json:"unassigned"`
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Total != 1 || summary.Unassigned != 1 {
		t.Fatalf("summary = %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics/coverage", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("coverage status %d: %s", res.StatusCode, string(data))
	}
	var coverage []struct {
		Role     string `json:"role"`
		Assigned int    `json:"assigned"`
	}
	if err := json.Unmarshal(data, &coverage); err != nil {
		t.Fatalf("unmarshal coverage: %v", err)
	}
	if len(coverage) != 2 {
		t.Fatalf("coverage entries = %d: %s", len(coverage), string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics/health", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
	var health struct {
		IssueCount int    `json:"issue_count"`
		Severity   string `json:"severity"`
	}
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if health.IssueCount != 2 || health.Severity != "yellow" {
		t.Fatalf("health = %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics/belbin/composition", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("composition status %d: %s", res.StatusCode, string(data))
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		t.Fatalf("composition should be an array: %s", string(data))
	}
}

func TestDiagnosticsRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/workspaces/ws-1"

	res, data := doJSON(t, client, http.MethodPost, base+"/roles", map[string]any{
		"id":    "role-1",
		"title": "Pipeline Manager",
		"owns": []map[string]any{
			{"title": "Reporting", "items": []string{"Pipeline Reports"}},
		},
	}, asTester())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create role status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/roles", map[string]any{
		"id":    "role-2",
		"title": "Sales Analyst",
		"owns": []map[string]any{
			{"title": "Analytics", "items": []string{" pipeline reports "}},
		},
	}, asTester())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create role status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("diagnostics status %d: %s", res.StatusCode, string(data))
	}
	var report struct {
		Focus    string `json:"focus"`
		Message  string `json:"message"`
		Overlaps []struct {
			Item   string   `json:"item"`
			Owners []string `json:"owners"`
		} `json:"overlaps"`
		Health *struct {
			IssueCount    int    `json:"issue_count"`
			SLARatio      string `json:"sla_ratio"`
			StaffingRatio string `json:"staffing_ratio"`
			Severity      string `json:"severity"`
		} `json:"health"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.Focus != "full" {
		t.Fatalf("focus = %q, want full", report.Focus)
	}
	if len(report.Overlaps) != 1 {
		t.Fatalf("overlaps = %d, want 1: %s", len(report.Overlaps), string(data))
	}
	if report.Overlaps[0].Item != "pipeline reports" {
		t.Fatalf("overlap item = %q", report.Overlaps[0].Item)
	}
	if len(report.Overlaps[0].Owners) != 2 || report.Overlaps[0].Owners[0] != "Pipeline Manager" {
		t.Fatalf("overlap owners = %v", report.Overlaps[0].Owners)
	}
	if report.Health == nil {
		t.Fatalf("health missing: %s", string(data))
	}
	if report.Health.IssueCount != 1 || report.Health.Severity != "yellow" {
		t.Fatalf("health = %+v, want 1 issue / yellow", report.Health)
	}
	if report.Health.SLARatio != "0/0" || report.Health.StaffingRatio != "0/0" {
		t.Fatalf("ratios = %q %q, want literal 0/0", report.Health.SLARatio, report.Health.StaffingRatio)
	}
	if report.Message == "" {
		t.Fatalf("expected status message")
	}
}

func TestDiagnosticsFocusSelection(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/workspaces/ws-1"

	res, data := doJSON(t, client, http.MethodGet, base+"/diagnostics?focus=gaps", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("focus=gaps status %d: %s", res.StatusCode, string(data))
	}
	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report["focus"] != "gaps" {
		t.Fatalf("focus = %v", report["focus"])
	}
	if _, ok := report["gaps"]; !ok {
		t.Fatalf("gaps section missing: %s", string(data))
	}
	if _, ok := report["overlaps"]; ok {
		t.Fatalf("overlaps should be omitted under gaps focus: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/diagnostics?focus=bogus", nil, asTester())
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid focus status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("error code = %q: %s", envelope.Error.Code, string(data))
	}
}

func TestCreateRoleRejectsUnknownBelbinType(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/workspaces/ws-1/roles", map[string]any{
		"title":        "Pipeline Manager",
		"primary_type": "mastermind",
	}, asTester())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", res.StatusCode, string(data))
	}
	if !strings.Contains(string(data), "unknown Belbin type") {
		t.Fatalf("unexpected body: %s", string(data))
	}
}

func TestGetMissingRoleReturnsNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces/ws-1/roles/nope", nil, asTester())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestRequestsWithoutCredentialsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workspaces/ws-1/roles", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401: %s", res.StatusCode, string(data))
	}
}

func TestEventsPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/workspaces/ws-1"

	for _, title := range []string{"Role A", "Role B", "Role C"} {
		res, data := doJSON(t, client, http.MethodPost, base+"/roles", map[string]any{"title": title}, asTester())
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create role status %d: %s", res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodGet, base+"/events?limit=2", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var page struct {
		Items []struct {
			Type string `json:"type"`
		} `json:"items"`
		NextCursor string `json:"next_cursor"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.NextCursor == "" {
		t.Fatalf("expected next_cursor")
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/events?limit=2&cursor="+page.NextCursor, nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events page 2 status %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page 2: %v", err)
	}
	if len(page.Items) == 0 {
		t.Fatalf("expected more events after cursor")
	}
}

func TestDevLoginIssuesUsableToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"actor_id": "jwt-user",
		"org_id":   "org-1",
		"scopes":   []string{"model.read", "diagnostics.read"},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if login.Token == "" {
		t.Fatalf("empty token")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "jwt-user" || me.OrgID != "org-1" {
		t.Fatalf("me = %+v", me)
	}
	if len(me.Permissions) != 2 {
		t.Fatalf("permissions = %v", me.Permissions)
	}
}

func TestWorkspaceConfigRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v1/workspaces/ws-1"

	res, data := doJSON(t, client, http.MethodGet, base+"/config", nil, asTester())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get config status %d: %s", res.StatusCode, string(data))
	}
	var cfg WorkspaceConfigResponse
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if cfg.Workspace.ID != "ws-1" {
		t.Fatalf("config workspace = %q", cfg.Workspace.ID)
	}
	if _, ok := cfg.RBAC.Roles["owner"]; !ok {
		t.Fatalf("owner role missing: %s", string(data))
	}
}

func TestMCPAnalyseWorkspace(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	mcpURL := srv.URL + "/mcp"

	postJSONRPC(t, client, mcpURL, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "teamforge-test",
				"version": "1.0.0",
			},
		},
	})

	_, decoded := postJSONRPC(t, client, mcpURL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params": map[string]any{
			"name": "teamforge.analyse_workspace",
			"arguments": map[string]any{
				"workspace_id": "ws-1",
				"focus_area":   "health",
			},
		},
	})
	content, ok := decoded.Result["content"].([]any)
	if !ok || len(content) == 0 {
		t.Fatalf("tool result content missing: %#v", decoded.Result)
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected content entry: %#v", content[0])
	}
	text, _ := first["text"].(string)
	var report struct {
		Focus  string `json:"focus"`
		Health *struct {
			Severity string `json:"severity"`
		} `json:"health"`
	}
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		t.Fatalf("unmarshal tool report: %v (%s)", err, text)
	}
	if report.Focus != "health" {
		t.Fatalf("focus = %q", report.Focus)
	}
	if report.Health == nil || report.Health.Severity != "green" {
		t.Fatalf("health = %+v", report.Health)
	}
}

type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := res.Body.Close(); err != nil {
		t.Fatalf("close body: %v", err)
	}
	return res, decoded
}
