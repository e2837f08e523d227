package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/elements/internal/logging"
	"github.com/vango-dev/elements/pkg/element"
	"github.com/vango-dev/elements/pkg/element/elementtest"
	"github.com/vango-dev/elements/pkg/telemetry"
)

func newTestServer(t *testing.T, cfg *Config, opts ...Option) (*Server, *element.Engine) {
	t.Helper()
	eng := element.New(elementtest.NewPlatform("button"))
	return New(eng, cfg, append([]Option{WithLogger(logging.Discard())}, opts...)...), eng
}

func do(t *testing.T, s *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Element string `json:"element"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

func TestHealth(t *testing.T) {
	s, eng := newTestServer(t, nil)
	if err := eng.Define(context.Background(), "x-a", nil); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[HealthResponse](t, rec)
	if got.Status != "ok" || got.Stats.Definitions != 1 {
		t.Errorf("health = %+v", got)
	}
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("request id header: %v", err)
	}
}

func TestRequestID_PreservesValidHeader(t *testing.T) {
	s, _ := newTestServer(t, nil)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/elements/x-missing", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Errorf("header = %q, want %q", got, id)
	}
	if got := decode[errorBody](t, rec).RequestID; got != id {
		t.Errorf("body requestId = %q, want %q", got, id)
	}
}

func TestDeclareThenDefine(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/declarations", "application/json",
		`{"name": "fancy-button", "extends": "button", "attributes": "label"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("declare status = %d: %s", rec.Code, rec.Body)
	}
	declared := decode[DeclareResponse](t, rec)
	if declared.Status != element.StatusAwaitingDefinition {
		t.Errorf("status = %v, want awaiting-definition", declared.Status)
	}

	rec = do(t, s, http.MethodGet, "/pending", "", "")
	pending := decode[[]element.PendingRequest](t, rec)
	if len(pending) != 1 || pending[0].ID != declared.ID || pending[0].WaitingOn != "fancy-button" {
		t.Errorf("pending = %+v", pending)
	}

	rec = do(t, s, http.MethodPost, "/definitions", "application/json",
		`{"name": "fancy-button", "members": {"greeting": "hi"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("define status = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[DefineResponse](t, rec); !got.Registered || len(got.Errors) != 0 {
		t.Errorf("define = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/elements/fancy-button", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var proto struct {
		Name       string   `json:"name"`
		Chain      []string `json:"chain"`
		Attributes []string `json:"attributes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &proto); err != nil {
		t.Fatal(err)
	}
	if proto.Name != "fancy-button" || len(proto.Chain) < 2 || proto.Chain[1] != element.BaseLinkName {
		t.Errorf("prototype = %+v", proto)
	}

	rec = do(t, s, http.MethodGet, "/elements", "", "")
	if list := decode[[]json.RawMessage](t, rec); len(list) != 1 {
		t.Errorf("elements = %d, want 1", len(list))
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		status      int
		code        string
	}{
		{"unknown element", http.MethodGet, "/elements/x-missing", "", "", http.StatusNotFound, "E221"},
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound, "E221"},
		{"malformed definition", http.MethodPost, "/definitions", "application/json", `{"name":`, http.StatusBadRequest, "E220"},
		{"unknown field", http.MethodPost, "/definitions", "application/json", `{"name": "x-a", "extra": 1}`, http.StatusBadRequest, "E220"},
		{"missing name", http.MethodPost, "/definitions", "application/json", `{"members": {}}`, http.StatusBadRequest, "E220"},
		{"trailing data", http.MethodPost, "/declarations", "application/json", `{"name": "x-a"} {}`, http.StatusBadRequest, "E220"},
		{"invalid name", http.MethodPost, "/declarations", "application/json", `{"name": "Widget"}`, http.StatusBadRequest, "E204"},
		{"bad document", http.MethodPost, "/documents", "application/yaml", "elements: [", http.StatusBadRequest, "E211"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			rec := do(t, s, tt.method, tt.path, tt.contentType, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if got := decode[errorBody](t, rec).Error.Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestUnsupportedContentType(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/definitions", "application/xml", `<x/>`)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestDocuments(t *testing.T) {
	s, eng := newTestServer(t, nil)

	body := `element "hcl-widget" {
  extends = "button"
}
script "hcl-widget" {
  members = { size = 2 }
}
`
	rec := do(t, s, http.MethodPost, "/documents", "application/hcl", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[DocumentResponse](t, rec)
	if len(got.Requests) != 1 || got.Requests[0].Status != element.StatusRegistered {
		t.Errorf("requests = %+v", got.Requests)
	}
	p, ok := eng.Registered("hcl-widget")
	if !ok {
		t.Fatal("hcl-widget not registered")
	}
	if v, _ := p.Member("size"); v != 2 {
		t.Errorf("size = %v", v)
	}
}

func TestDocuments_ReportsRegistrationErrors(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodPost, "/documents", "application/json",
		`{"elements": [{"name": "x-orphan", "extends": "x-nobody-defines-this", "noscript": true}, {"name": "NoHyphen"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[DocumentResponse](t, rec)
	if len(got.Requests) != 1 || got.Requests[0].Status != element.StatusAwaitingSupertype {
		t.Errorf("requests = %+v", got.Requests)
	}
	if len(got.Errors) != 1 || got.Errors[0].Code != "E204" {
		t.Errorf("errors = %+v", got.Errors)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, &Config{RateLimit: 0.001, Burst: 1})

	first := do(t, s, http.MethodPost, "/definitions", "application/json", `{"name": "x-a"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := do(t, s, http.MethodPost, "/definitions", "application/json", `{"name": "x-b"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if got := decode[errorBody](t, second).Error.Code; got != "E222" {
		t.Errorf("code = %q, want E222", got)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	if rec := do(t, s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := element.New(elementtest.NewPlatform(),
		element.WithObserver(telemetry.NewMetrics(telemetry.WithRegistry(reg))))
	s := New(eng, nil, WithMetricsHandler(telemetry.Handler(reg)))

	if err := eng.Define(context.Background(), "x-a", nil); err != nil {
		t.Fatal(err)
	}
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "elements_definitions_total 1") {
		t.Errorf("metrics missing definitions counter:\n%s", rec.Body)
	}

	s, _ = newTestServer(t, nil)
	if rec := do(t, s, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unconfigured /metrics status = %d, want 404", rec.Code)
	}
}

func TestHTTPInstrumentation(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := telemetry.NewHTTPMetrics(telemetry.WithRegistry(reg))
	s := New(element.New(elementtest.NewPlatform()), nil,
		WithMiddleware(httpMetrics.Middleware),
		WithMetricsHandler(telemetry.Handler(reg)))

	do(t, s, http.MethodGet, "/elements/x-missing", "", "")
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	want := `elements_http_requests_total{method="GET",route="/elements/{name}",status="404"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics missing %s:\n%s", want, rec.Body)
	}
}

func TestEvents(t *testing.T) {
	s, eng := newTestServer(t, nil)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if _, err := eng.RequestRegistration(ctx, element.Declaration{Name: "x-live"}); err != nil {
		t.Fatal(err)
	}
	if err := eng.Define(ctx, "x-live", nil); err != nil {
		t.Fatal(err)
	}

	var kinds []element.EventKind
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev element.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read after %v: %v", kinds, err)
		}
		if ev.Name != "x-live" {
			continue
		}
		kinds = append(kinds, ev.Kind)
		if ev.Kind == element.EventRegistered {
			break
		}
	}
	if kinds[0] != element.EventRequested {
		t.Errorf("kinds = %v, want requested first", kinds)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &Config{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := (&Config{Addr: "127.0.0.1:9000"}).withDefaults()
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	d := DefaultConfig()
	if cfg.RateLimit != d.RateLimit || cfg.Burst != d.Burst || cfg.EventBuffer != d.EventBuffer {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.CheckOrigin == nil {
		t.Error("CheckOrigin should default")
	}
}
