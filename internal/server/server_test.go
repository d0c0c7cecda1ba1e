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
	"time"

	"github.com/golang-jwt/jwt/v5"

	"orderline/internal/config"
	"orderline/internal/db"
	"orderline/internal/engine"
	"orderline/internal/migrate"
)

const testJWTSecret = "test-secret"

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
	cfg := config.Default()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testJWTSecret, AllowWorkerHeader: true},
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
	req.Header.Set("X-Worker-Id", "tester")
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

func createTestOrder(t *testing.T, srv *testServer, title string) WorkOrderResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/workorders", map[string]any{
		"title": title,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create work order status %d: %s", res.StatusCode, string(data))
	}
	var created WorkOrderResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal work order: %v", err)
	}
	return created
}

func TestWorkOrderLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	created := createTestOrder(t, srv, "Boiler replacement")
	if created.Status != "open" || created.StatusLabel != "Open" {
		t.Fatalf("unexpected status: %+v", created)
	}

	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v0/workorders/"+created.ID, map[string]any{
		"status": "in_progress",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", res.StatusCode, string(data))
	}
	var updated WorkOrderResponse
	_ = json.Unmarshal(data, &updated)
	if updated.Status != "in_progress" || updated.StatusLabel != "In Progress" {
		t.Fatalf("unexpected updated order: %+v", updated)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders?status=in_progress", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var listed []WorkOrderResponse
	_ = json.Unmarshal(data, &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected list: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/workorders/"+created.ID, map[string]any{
		"status": "bogus",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "bad_request" {
		t.Fatalf("expected bad_request envelope, got %s", string(data))
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/workorders/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d: %s", res.StatusCode, string(data))
	}
}

func TestRegisterTimeAndTimesheet(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	order := createTestOrder(t, srv, "Timesheet order")

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/workers", map[string]any{"id": "anna", "name": "Anna Smit"}, nil)

	entries := []map[string]any{
		{"worker_id": "anna", "date": "2024-11-06", "start": "08:00", "end": "17:00", "break": "60", "travel": "30"},
		{"worker_id": "anna", "date": "2024-11-05", "start": "08:00", "end": "12:00", "break": "0"},
		{"worker_id": "anna", "date": "2024-11-04", "start": "13:00", "break": "0"}, // open
		{"worker_id": "anna", "date": "2024-11-12", "start": "08:00", "end": "10:00", "break": "0"},
	}
	for _, body := range entries {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/workorders/"+order.ID+"/entries", body, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("register status %d: %s", res.StatusCode, string(data))
		}
	}

	// malformed registration
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/workorders/"+order.ID+"/entries", map[string]any{
		"worker_id": "anna", "date": "2024-11-06", "start": "10:00", "end": "09:00",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for end before start, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+order.ID+"/timesheet?week=2024-11-06", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("timesheet status %d: %s", res.StatusCode, string(data))
	}
	var sheet TimesheetResponse
	if err := json.Unmarshal(data, &sheet); err != nil {
		t.Fatalf("unmarshal timesheet: %v", err)
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("expected 3 rows in week, got %d: %s", len(sheet.Rows), string(data))
	}
	if sheet.PeriodTotalMinutes == nil || *sheet.PeriodTotalMinutes != 480+240 {
		t.Fatalf("unexpected period total: %s", string(data))
	}
	if sheet.PeriodTotalHours != "12:00" {
		t.Fatalf("unexpected period hours %q", sheet.PeriodTotalHours)
	}
	if len(sheet.WorkerTotals) != 1 || sheet.WorkerTotals[0].Name != "Anna Smit" || sheet.WorkerTotals[0].Minutes != 720 {
		t.Fatalf("unexpected worker totals: %s", string(data))
	}
	if !sheet.Rows[2].Open || sheet.Rows[2].Minutes != nil {
		t.Fatalf("expected oldest row open with no minutes: %s", string(data))
	}
	if !strings.HasPrefix(sheet.Period, "Week 45") {
		t.Fatalf("unexpected period label %q", sheet.Period)
	}

	// all-time: rows only, no totals
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+order.ID+"/timesheet", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("all-time status %d: %s", res.StatusCode, string(data))
	}
	var all TimesheetResponse
	_ = json.Unmarshal(data, &all)
	if len(all.Rows) != 4 || all.PeriodTotalMinutes != nil || len(all.WorkerTotals) != 0 {
		t.Fatalf("expected plain all-time listing: %s", string(data))
	}

	// conflicting selectors
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+order.ID+"/timesheet?day=2024-11-06&week=2024-11-06", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for conflicting selectors, got %d: %s", res.StatusCode, string(data))
	}
	// malformed period date must not fall back to all-time
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+order.ID+"/timesheet?week=garbage", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed week, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/missing/timesheet", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown order, got %d: %s", res.StatusCode, string(data))
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	order := createTestOrder(t, srv, "Export order")
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/workorders/"+order.ID+"/entries", map[string]any{
		"worker_id": "anna", "date": "2024-11-06", "start": "08:00", "end": "17:00",
	}, nil)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+order.ID+"/timesheet/export?format=xlsx", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export status %d: %s", res.StatusCode, string(data))
	}
	if got := res.Header.Get("Content-Disposition"); got != `attachment; filename="workorder-`+order.ID+`-timesheet.xlsx"` {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if len(data) == 0 {
		t.Fatalf("expected workbook bytes")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/workorders/"+order.ID+"/timesheet/export?format=html&day=2024-11-06", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("html export status %d: %s", res.StatusCode, string(data))
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.Contains(data, []byte("Export order")) {
		t.Fatalf("expected order title in document")
	}
}

func TestAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	// health is open
	res, err := client.Get(srv.URL + "/v0/health")
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("health: %v %d", err, res.StatusCode)
	}
	res.Body.Close()

	// bare request is rejected
	res, err = client.Get(srv.URL + "/v0/workorders")
	if err != nil || res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.StatusCode)
	}
	res.Body.Close()

	// JWT subject becomes the acting worker
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "anna",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v0/workorders", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	res, err = client.Do(req)
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("jwt request: %v %d", err, res.StatusCode)
	}
	res.Body.Close()

	// issued API key authenticates its worker
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/workers", map[string]any{"id": "bram", "name": "Bram de Vries"}, nil)
	keyRes, keyData := doJSON(t, client, http.MethodPost, srv.URL+"/v0/workers/bram/api-keys", map[string]any{"name": "cli"}, nil)
	if keyRes.StatusCode != http.StatusCreated {
		t.Fatalf("create api key status %d: %s", keyRes.StatusCode, string(keyData))
	}
	var issued APIKeyResponse
	if err := json.Unmarshal(keyData, &issued); err != nil || issued.Key == "" {
		t.Fatalf("expected raw key in response: %s", string(keyData))
	}
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v0/workorders", nil)
	req.Header.Set("X-Api-Key", issued.Key)
	res, err = client.Do(req)
	if err != nil || res.StatusCode != http.StatusOK {
		t.Fatalf("api key request: %v %d", err, res.StatusCode)
	}
	res.Body.Close()

	// listing keys never exposes the raw key again
	listRes, listData := doJSON(t, client, http.MethodGet, srv.URL+"/v0/workers/bram/api-keys", nil, nil)
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list keys status %d: %s", listRes.StatusCode, string(listData))
	}
	var keys []APIKeyResponse
	_ = json.Unmarshal(listData, &keys)
	if len(keys) != 1 || keys[0].Key != "" {
		t.Fatalf("unexpected key listing: %s", string(listData))
	}
}
