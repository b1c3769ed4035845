package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"querypilot/config"
	"querypilot/errs"
)

const testEndpoint = "projects/p1/locations/us-central1/endpoints/42"

func testConfig() config.VertexAIConfig {
	return config.VertexAIConfig{
		ProjectID:       "p1",
		Location:        "us-central1",
		ModelName:       "text-bison@002",
		TunedModelID:    "123",
		EmbeddingModel:  "textembedding-gecko@003",
		MaxOutputTokens: 1024,
		Temperature:     0.9,
		TopP:            1,
	}
}

type fakeVertex struct {
	predictCalls atomic.Int32
	lastBody     map[string]any
	content      string
	status       int
}

func (f *fakeVertex) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/projects/p1/locations/us-central1/models/123":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"deployedModels": []map[string]any{{"endpoint": testEndpoint}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/"+testEndpoint+":predict":
			f.predictCalls.Add(1)
			if err := json.NewDecoder(r.Body).Decode(&f.lastBody); err != nil {
				t.Errorf("decode predict body: %v", err)
			}
			if f.status != 0 {
				w.WriteHeader(f.status)
				_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"predictions": []map[string]any{{"content": f.content}},
			})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/publishers/google/models/textembedding-gecko@003:predict"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"predictions": []map[string]any{{"embeddings": map[string]any{"values": []float32{0.1, 0.2, 0.3}}}},
			})
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestService(t *testing.T, fake *fakeVertex) *AIService {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	service, err := NewWithBaseURL(context.Background(), testConfig(), server.Client(), server.URL)
	if err != nil {
		t.Fatalf("NewWithBaseURL() error = %v", err)
	}
	return service
}

func TestNewResolvesTunedEndpoint(t *testing.T) {
	service := newTestService(t, &fakeVertex{content: "SELECT 1"})
	if service.Endpoint() != testEndpoint {
		t.Fatalf("Endpoint() = %q, want %q", service.Endpoint(), testEndpoint)
	}
}

func TestNewAcceptsEndpointResource(t *testing.T) {
	cfg := testConfig()
	cfg.TunedModelID = testEndpoint
	service, err := NewWithBaseURL(context.Background(), cfg, http.DefaultClient, "http://unused.invalid")
	if err != nil {
		t.Fatalf("NewWithBaseURL() error = %v", err)
	}
	if service.Endpoint() != testEndpoint {
		t.Fatalf("Endpoint() = %q", service.Endpoint())
	}
}

func TestNewFailsWhenModelNotDeployed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"deployedModels":[]}`))
	}))
	defer server.Close()

	_, err := NewWithBaseURL(context.Background(), testConfig(), server.Client(), server.URL)
	if !errs.IsKind(err, errs.KindConfiguration) {
		t.Fatalf("NewWithBaseURL() error = %v, want configuration error", err)
	}
}

func TestSubmitBlankPromptReturnsSentinelWithoutCall(t *testing.T) {
	fake := &fakeVertex{content: "SELECT 1"}
	service := newTestService(t, fake)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		got, err := service.Submit(context.Background(), prompt)
		if err != nil {
			t.Fatalf("Submit(%q) error = %v", prompt, err)
		}
		if got != InvalidPromptResponse {
			t.Fatalf("Submit(%q) = %q, want sentinel", prompt, got)
		}
	}
	if calls := fake.predictCalls.Load(); calls != 0 {
		t.Fatalf("predict calls = %d, want 0", calls)
	}
}

func TestSubmitSendsFixedParameters(t *testing.T) {
	fake := &fakeVertex{content: "SELECT region FROM sales;"}
	service := newTestService(t, fake)

	got, err := service.Submit(context.Background(), "total sales by region")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got != "SELECT region FROM sales;" {
		t.Fatalf("Submit() = %q", got)
	}

	params, _ := fake.lastBody["parameters"].(map[string]any)
	if params["candidateCount"] != float64(1) || params["maxOutputTokens"] != float64(1024) ||
		params["temperature"] != 0.9 || params["topP"] != float64(1) {
		t.Fatalf("parameters = %#v", params)
	}
	instances, _ := fake.lastBody["instances"].([]any)
	if len(instances) != 1 {
		t.Fatalf("instances = %#v", instances)
	}
}

func TestSubmitAPIErrorIsGenerationError(t *testing.T) {
	fake := &fakeVertex{status: http.StatusTooManyRequests}
	service := newTestService(t, fake)

	_, err := service.Submit(context.Background(), "question")
	if !errs.IsKind(err, errs.KindGeneration) {
		t.Fatalf("Submit() error = %v, want generation error", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Submit() error = %v, want API message", err)
	}
	if calls := fake.predictCalls.Load(); calls != 1 {
		t.Fatalf("predict calls = %d, want exactly 1 (no retries)", calls)
	}
}

func TestSubmitEmptyOutputIsGenerationError(t *testing.T) {
	service := newTestService(t, &fakeVertex{content: "  "})

	_, err := service.Submit(context.Background(), "question")
	if !errs.IsKind(err, errs.KindGeneration) {
		t.Fatalf("Submit() error = %v, want generation error", err)
	}
}

func TestEmbed(t *testing.T) {
	service := newTestService(t, &fakeVertex{})

	vector, err := service.Embed(context.Background(), "sales by region")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("Embed() = %v", vector)
	}
}
