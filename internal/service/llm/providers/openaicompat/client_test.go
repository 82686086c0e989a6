package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"diagramgen/internal/domain/models"
	llmSvc "diagramgen/internal/domain/services/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturedRequest struct {
	Path   string
	Auth   string
	Body   map[string]any
	Stream bool
}

func fakeBackend(t *testing.T, handler func(w http.ResponseWriter, req capturedRequest)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		stream, _ := body["stream"].(bool)
		req := capturedRequest{Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body, Stream: stream}
		seen = append(seen, req)
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func record(baseURL string) models.ProviderRecord {
	return models.ProviderRecord{ID: "1", Name: "fake", BaseURL: baseURL, APIKey: "sk-test", Model: "fake-model", Enabled: true}
}

func chatRequest() *llmSvc.ChatRequest {
	return &llmSvc.ChatRequest{
		Model: "fake-model",
		Messages: []models.ConversationTurn{
			{Role: models.RoleSystem, Content: "sys"},
			{Role: models.RoleUser, Content: "draw"},
		},
		Temperature: 0.7,
	}
}

func TestCompleteSendsOpenAIRequest(t *testing.T) {
	srv, seen := fakeBackend(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"<mxfile/>"}}]}`)
	})

	c := NewClient(record(srv.URL+"/v1/"), nil, testLogger())
	got, err := c.Complete(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "<mxfile/>" {
		t.Errorf("content = %q", got)
	}

	req := (*seen)[0]
	if req.Path != "/v1/chat/completions" {
		t.Errorf("path = %q", req.Path)
	}
	if req.Auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", req.Auth)
	}
	if req.Body["model"] != "fake-model" || req.Stream {
		t.Errorf("body = %v", req.Body)
	}
	msgs, _ := req.Body["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("messages = %v", req.Body["messages"])
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantEmpty  bool
	}{
		{name: "server error", status: 500, body: `{"error":{"message":"boom","type":"server_error"}}`, wantStatus: 500},
		{name: "unauthorized", status: 401, body: `{"error":{"message":"bad key"}}`, wantStatus: 401},
		{name: "malformed body", status: 200, body: `not json`},
		{name: "no choices", status: 200, body: `{"id":"x","choices":[]}`, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeBackend(t, func(w http.ResponseWriter, _ capturedRequest) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := NewClient(record(srv.URL), nil, testLogger()).Complete(context.Background(), chatRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantEmpty {
				if !errors.Is(err, llmSvc.ErrEmptyContent) {
					t.Errorf("err = %v, want ErrEmptyContent", err)
				}
				return
			}
			var te *llmSvc.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("err = %T %v, want TransportError", err, err)
			}
			if te.Provider != "fake" || te.StatusCode != tt.wantStatus {
				t.Errorf("TransportError = %+v", te)
			}
		})
	}
}

func TestStreamSkipsMalformedChunks(t *testing.T) {
	srv, seen := fakeBackend(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"1","choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
			`{"id":"1","choices":[{"index":0,"delta":{"content":"<mxfile>"}}]}`,
			`{broken`,
			`{"id":"1","choices":[]}`,
			`{"id":"1","choices":[{"index":0,"delta":{"content":"</mxfile>"}}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := NewClient(record(srv.URL), nil, testLogger()).Stream(context.Background(), chatRequest())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var parts []string
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		parts = append(parts, frag)
	}

	if strings.Join(parts, "|") != "|<mxfile>|</mxfile>" {
		t.Errorf("fragments = %q", parts)
	}
	if !(*seen)[0].Stream {
		t.Error("request should set stream=true")
	}
}

func TestStreamNon2xx(t *testing.T) {
	srv, _ := fakeBackend(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	})

	_, err := NewClient(record(srv.URL), nil, testLogger()).Stream(context.Background(), chatRequest())
	var te *llmSvc.TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want TransportError with 429", err)
	}
}

func TestFactoryCachesPerConfiguration(t *testing.T) {
	f := NewFactory(nil, testLogger())
	rec := record("https://a.example.com/v1")

	c1, _ := f.ClientFor(rec)
	c2, _ := f.ClientFor(rec)
	if c1 != c2 {
		t.Error("same record should reuse the client")
	}

	rec.APIKey = "rotated"
	c3, _ := f.ClientFor(rec)
	if c3 == c1 {
		t.Error("changed credential should build a new client")
	}
}
