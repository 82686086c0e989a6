package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"diagramgen/internal/config"
	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"
	"diagramgen/internal/handler/sse"
	"diagramgen/internal/repository/memory"
	"diagramgen/internal/service/diagram"
	"diagramgen/internal/service/registry"
)

const testXML = `<mxfile><diagram><mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/></root></mxGraphModel></diagram></mxfile>`

// fakeGeneration returns canned results and records the last request
type fakeGeneration struct {
	result *models.GenerationResult
	err    error
	events []models.GenerationEvent
	probe  []llmSvc.ProbeResult

	mu   sync.Mutex
	last *models.GenerationRequest
}

func (f *fakeGeneration) record(req *models.GenerationRequest) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
}

func (f *fakeGeneration) lastRequest() *models.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeGeneration) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	f.record(req)
	return f.result, f.err
}

func (f *fakeGeneration) Stream(ctx context.Context, req *models.GenerationRequest) <-chan models.GenerationEvent {
	f.record(req)
	ch := make(chan models.GenerationEvent)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (f *fakeGeneration) Probe(ctx context.Context) []llmSvc.ProbeResult {
	return f.probe
}

type testServer struct {
	*httptest.Server
	gen *fakeGeneration
	reg *registry.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.New(logger)
	err := registry.Bootstrap(reg, &config.Config{
		DefaultAIName:    "system",
		DefaultAIBaseURL: "https://system.example.com/v1",
		DefaultAIAPIKey:  "sk-secret",
		DefaultAIModel:   "sys-model",
	})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	gen := &fakeGeneration{}
	mux := http.NewServeMux()
	RegisterRoutes(mux, Handlers{
		Generate:  NewGenerateHandler(gen, &sse.Config{KeepAliveInterval: time.Hour}, logger),
		Providers: NewProviderConfigHandler(reg, logger),
		Diagrams:  NewDiagramHandler(diagram.NewService(memory.NewDiagramRepository(), logger), logger),
	}, nil)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, gen: gen, reg: reg}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestGenerateDiagram(t *testing.T) {
	s := newTestServer(t)
	s.gen.result = &models.GenerationResult{
		Document:     testXML,
		ProviderUsed: "system",
		History: []models.ConversationTurn{
			{Role: models.RoleUser, Content: "draw a box"},
			{Role: models.RoleAssistant, Content: testXML},
		},
	}

	status, body := s.do(t, http.MethodPost, "/api/generate-diagram",
		`{"prompt":"  draw a box ","messages":[],"skip_apis":["other"],"system_prompt":"sys"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["xml"] != testXML || body["prompt"] != "draw a box" || body["api_used"] != "system" {
		t.Errorf("body = %v", body)
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %v", body["messages"])
	}

	last := s.gen.lastRequest()
	if last.Prompt != "draw a box" || len(last.ExcludedProviders) != 1 || last.SystemPrompt == nil || *last.SystemPrompt != "sys" {
		t.Errorf("request passed to service = %+v", last)
	}
}

func TestGenerateDiagramErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "invalid json",
			body:   `{"prompt":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "blank prompt",
			body:   `{"prompt":"   "}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad history role",
			body:   `{"prompt":"x","messages":[{"role":"system","content":"y"}]}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "validation failure",
			body:   `{"prompt":"x"}`,
			err:    &llmSvc.ValidationFailure{Provider: "A", Reason: "missing model"},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]any) {
				if body["kind"] != "validation_failed" || body["reason"] != "missing model" || body["provider"] != "A" {
					t.Errorf("body = %v", body)
				}
			},
		},
		{
			name:   "exhausted",
			body:   `{"prompt":"x"}`,
			err:    &llmSvc.ExhaustedError{LastError: "no providers available"},
			status: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				if body["kind"] != "failed" || body["last_error"] != "no providers available" {
					t.Errorf("body = %v", body)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.gen.err = tt.err

			status, body := s.do(t, http.MethodPost, "/api/generate-diagram", tt.body)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.status, body)
			}
			if body["status"] != float64(tt.status) {
				t.Errorf("problem status = %v", body["status"])
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestGenerateDiagramStream(t *testing.T) {
	s := newTestServer(t)
	s.gen.events = []models.GenerationEvent{
		{Type: models.EventSkip, Provider: "A"},
		{Type: models.EventStart, Provider: "B"},
		{Type: models.EventContent, Fragment: "<mxfile>"},
		{Type: models.EventComplete, Document: testXML, ProviderUsed: "B"},
	}

	resp, err := http.Post(s.URL+"/api/generate-diagram-stream", "application/json", strings.NewReader(`{"prompt":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var (
		names  []string
		frames []map[string]any
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			names = append(names, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			var frame map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
				t.Fatalf("bad data line %q: %v", line, err)
			}
			frames = append(frames, frame)
		}
	}

	if strings.Join(names, ",") != "skip,start,content,complete" {
		t.Fatalf("events = %v", names)
	}
	if frames[0]["api"] != "A" || frames[2]["content"] != "<mxfile>" {
		t.Errorf("frames = %v", frames)
	}
	if frames[3]["type"] != "complete" || frames[3]["xml"] != testXML || frames[3]["api_used"] != "B" {
		t.Errorf("complete frame = %v", frames[3])
	}
}

func TestGenerateDiagramStreamRejectsBadRequest(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodPost, "/api/generate-diagram-stream", `{"prompt":""}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %v", status, body)
	}
}

func TestTestProviders(t *testing.T) {
	s := newTestServer(t)
	s.gen.probe = []llmSvc.ProbeResult{{Provider: "system", Status: "ok", StatusCode: 200, ResponsePreview: "hi"}}

	status, body := s.do(t, http.MethodGet, "/api/test-ai", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	results, _ := body["test_results"].([]any)
	if len(results) != 1 {
		t.Fatalf("test_results = %v", body["test_results"])
	}
	first := results[0].(map[string]any)
	if first["api"] != "system" || first["status"] != "ok" {
		t.Errorf("result = %v", first)
	}
}

func TestProviderConfigLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/ai-configs",
		`{"name":"backup","base_url":"https://backup.example.com/v1","api_key":"k","model":"m","priority":5}`)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, body = %v", status, body)
	}
	created := body["config"].(map[string]any)
	id := created["id"].(string)
	if created["enabled"] != true || created["is_system"] != false {
		t.Errorf("created = %v", created)
	}

	status, body = s.do(t, http.MethodGet, "/api/ai-configs", "")
	if status != http.StatusOK || body["total"] != float64(2) {
		t.Fatalf("list = %d %v", status, body)
	}
	configs := body["configs"].([]any)
	system := configs[0].(map[string]any)
	if system["name"] != "system" || system["base_url"] != systemMask || system["api_key"] != systemMask {
		t.Errorf("system record not masked: %v", system)
	}
	if configs[1].(map[string]any)["id"] != id {
		t.Errorf("configs not in priority order: %v", configs)
	}

	status, body = s.do(t, http.MethodPatch, "/api/ai-configs/"+id, `{"priority":-1,"enabled":false}`)
	if status != http.StatusOK {
		t.Fatalf("patch status = %d, body = %v", status, body)
	}
	updated := body["config"].(map[string]any)
	if updated["priority"] != float64(-1) || updated["enabled"] != false || updated["model"] != "m" {
		t.Errorf("updated = %v", updated)
	}

	status, _ = s.do(t, http.MethodPut, "/api/ai-configs/"+id, `{"model":null}`)
	if status != http.StatusBadRequest {
		t.Errorf("null model status = %d, want 400", status)
	}

	status, body = s.do(t, http.MethodGet, "/api/ai-configs/"+id, "")
	if status != http.StatusOK || body["config"].(map[string]any)["priority"] != float64(-1) {
		t.Errorf("get = %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodDelete, "/api/ai-configs/"+id, "")
	if status != http.StatusOK {
		t.Errorf("delete status = %d", status)
	}
	status, _ = s.do(t, http.MethodGet, "/api/ai-configs/"+id, "")
	if status != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", status)
	}
}

func TestProviderConfigSystemProtection(t *testing.T) {
	s := newTestServer(t)
	systemID := s.reg.ListAll()[0].ID

	status, body := s.do(t, http.MethodPatch, "/api/ai-configs/"+systemID, `{"enabled":false,"model":"other"}`)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if fields, _ := body["fields"].([]any); len(fields) != 1 || fields[0] != "model" {
		t.Errorf("fields = %v", body["fields"])
	}

	status, body = s.do(t, http.MethodPatch, "/api/ai-configs/"+systemID, `{"enabled":false}`)
	if status != http.StatusOK || body["config"].(map[string]any)["enabled"] != false {
		t.Errorf("toggle enabled = %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodDelete, "/api/ai-configs/"+systemID, "")
	if status != http.StatusForbidden {
		t.Errorf("delete system = %d, want 403", status)
	}

	status, _ = s.do(t, http.MethodPost, "/api/ai-configs", `{"name":"","base_url":"ftp://x","model":"m"}`)
	if status != http.StatusBadRequest {
		t.Errorf("invalid create = %d, want 400", status)
	}
}

func TestDiagramLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/save-diagram", `{"xml":"`+strings.ReplaceAll(testXML, `"`, `\"`)+`"}`)
	if status != http.StatusOK {
		t.Fatalf("save status = %d, body = %v", status, body)
	}
	id := body["id"].(string)
	if body["name"] != "Diagram "+id[:8] {
		t.Errorf("default name = %v", body["name"])
	}

	status, body = s.do(t, http.MethodGet, "/api/diagram/"+id, "")
	if status != http.StatusOK || body["xml"] != testXML {
		t.Fatalf("get = %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPut, "/api/diagram/"+id, `{"xml":"<mxfile/>","name":"Renamed"}`)
	if status != http.StatusOK || body["id"] != id {
		t.Fatalf("update = %d %v", status, body)
	}

	status, body = s.do(t, http.MethodGet, "/api/diagrams", "")
	if status != http.StatusOK || body["total"] != float64(1) {
		t.Fatalf("list = %d %v", status, body)
	}
	summary := body["diagrams"].([]any)[0].(map[string]any)
	if summary["name"] != "Renamed" || summary["xml"] != nil {
		t.Errorf("summary = %v", summary)
	}

	status, body = s.do(t, http.MethodGet, "/health", "")
	if status != http.StatusOK || body["status"] != "healthy" || body["diagrams_count"] != float64(1) {
		t.Errorf("health = %d %v", status, body)
	}

	status, _ = s.do(t, http.MethodDelete, "/api/diagram/"+id, "")
	if status != http.StatusOK {
		t.Errorf("delete = %d", status)
	}
	status, _ = s.do(t, http.MethodGet, "/api/diagram/"+id, "")
	if status != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", status)
	}
	status, _ = s.do(t, http.MethodGet, "/api/diagram/not-a-uuid", "")
	if status != http.StatusNotFound {
		t.Errorf("malformed id = %d, want 404", status)
	}

	status, _ = s.do(t, http.MethodPost, "/api/save-diagram", `{"xml":""}`)
	if status != http.StatusBadRequest {
		t.Errorf("empty xml = %d, want 400", status)
	}
}
