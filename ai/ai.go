package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"querypilot/config"
	"querypilot/errs"
)

// InvalidPromptResponse is returned instead of calling the model when the
// composed prompt is blank.
const InvalidPromptResponse = "Please provide a valid prompt."

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Label Vertex AI puts on tuned models to name their base model.
const tuningBaseModelLabel = "google-vertex-llm-tuning-base-model-id"

// GenerationParameters are fixed for the lifetime of an AIService.
type GenerationParameters struct {
	CandidateCount  int     `json:"candidateCount"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
}

// AIService talks to a tuned Vertex AI text model and a Vertex AI embedding model.
type AIService struct {
	projectID          string
	location           string
	modelName          string
	embeddingModel     string
	parameters         GenerationParameters
	httpClient         *http.Client
	baseURL            string
	endpoint           string        // resolved endpoint serving the tuned model
	lastRequestTime    time.Time     // Track last request time for rate limiting
	requestMutex       sync.Mutex    // Mutex to protect lastRequestTime
	minRequestInterval time.Duration // Minimum time between requests
}

type predictRequest struct {
	Instances  []any `json:"instances"`
	Parameters any   `json:"parameters,omitempty"`
}

type textInstance struct {
	Prompt string `json:"prompt"`
}

type embeddingInstance struct {
	Content string `json:"content"`
}

type textPredictResponse struct {
	Predictions []struct {
		Content string `json:"content"`
	} `json:"predictions"`
}

type embeddingPredictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewHTTPClient returns a client authorized with Google application default
// credentials. ctx must outlive the client; token refreshes use it.
func NewHTTPClient(ctx context.Context, timeout time.Duration) (*http.Client, error) {
	tokenSource, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, errs.Configuration("load google application default credentials", err)
	}
	client := oauth2.NewClient(ctx, tokenSource)
	client.Timeout = timeout
	return client, nil
}

// New resolves the tuned model to its serving endpoint and returns a ready service.
func New(ctx context.Context, cfg config.VertexAIConfig, httpClient *http.Client) (*AIService, error) {
	return NewWithBaseURL(ctx, cfg, httpClient, fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", cfg.Location))
}

// NewWithBaseURL is New with an explicit API root, used against fakes in tests.
func NewWithBaseURL(ctx context.Context, cfg config.VertexAIConfig, httpClient *http.Client, baseURL string) (*AIService, error) {
	if httpClient == nil {
		return nil, errs.Configuration("vertex ai http client is required", nil)
	}
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ModelName == "" || cfg.TunedModelID == "" {
		return nil, errs.Configuration("missing necessary configuration for the text model", nil)
	}

	a := &AIService{
		projectID:      cfg.ProjectID,
		location:       cfg.Location,
		modelName:      cfg.ModelName,
		embeddingModel: cfg.EmbeddingModel,
		parameters: GenerationParameters{
			CandidateCount:  1,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
		},
		httpClient:         httpClient,
		baseURL:            strings.TrimRight(baseURL, "/"),
		minRequestInterval: cfg.MinInterval,
	}

	endpoint, err := a.resolveTunedEndpoint(ctx, cfg.TunedModelID)
	if err != nil {
		return nil, err
	}
	a.endpoint = endpoint
	slog.Info("vertex ai text model ready", "model", a.modelName, "endpoint", a.endpoint)
	return a, nil
}

func (a *AIService) Close() error {
	// HTTP client doesn't require explicit closing
	return nil
}

func (a *AIService) Endpoint() string {
	return a.endpoint
}

func (a *AIService) Parameters() GenerationParameters {
	return a.parameters
}

// resolveTunedEndpoint accepts an endpoint resource, a model resource or a
// bare model id and returns the endpoint the tuned model is deployed to.
func (a *AIService) resolveTunedEndpoint(ctx context.Context, tunedModelID string) (string, error) {
	id := strings.Trim(strings.TrimSpace(tunedModelID), "/")
	if strings.Contains(id, "/endpoints/") {
		return id, nil
	}
	modelResource := id
	if !strings.HasPrefix(id, "projects/") {
		modelResource = fmt.Sprintf("projects/%s/locations/%s/models/%s", a.projectID, a.location, id)
	}

	var model struct {
		Labels         map[string]string `json:"labels"`
		DeployedModels []struct {
			Endpoint string `json:"endpoint"`
		} `json:"deployedModels"`
	}
	if err := a.doJSON(ctx, http.MethodGet, a.baseURL+"/"+modelResource, nil, &model); err != nil {
		return "", errs.Configuration(fmt.Sprintf("look up tuned model %q", modelResource), err)
	}
	if len(model.DeployedModels) == 0 || model.DeployedModels[0].Endpoint == "" {
		return "", errs.Configuration(fmt.Sprintf("tuned model %q is not deployed to an endpoint", modelResource), nil)
	}
	if base := model.Labels[tuningBaseModelLabel]; base != "" && base != strings.ReplaceAll(a.modelName, "@", "-") {
		slog.Warn("tuned model base differs from configured model", "base_model", base, "model", a.modelName)
	}
	return model.DeployedModels[0].Endpoint, nil
}

// rateLimit ensures minimum time between requests to prevent burst rate errors
func (a *AIService) rateLimit(ctx context.Context) error {
	a.requestMutex.Lock()
	defer a.requestMutex.Unlock()

	timeSinceLastRequest := time.Since(a.lastRequestTime)
	if timeSinceLastRequest < a.minRequestInterval {
		timer := time.NewTimer(a.minRequestInterval - timeSinceLastRequest)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	a.lastRequestTime = time.Now()
	return nil
}

// Submit sends prompt to the tuned text model and returns the first candidate.
func (a *AIService) Submit(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return InvalidPromptResponse, nil
	}
	if err := a.rateLimit(ctx); err != nil {
		return "", errs.Generation("wait for rate limiter", err)
	}

	reqBody := predictRequest{
		Instances:  []any{textInstance{Prompt: prompt}},
		Parameters: a.parameters,
	}
	slog.Debug("submitting prompt", "endpoint", a.endpoint, "prompt_chars", len(prompt))

	var resp textPredictResponse
	if err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/"+a.endpoint+":predict", reqBody, &resp); err != nil {
		return "", errs.Generation("failed to generate content", err)
	}
	if len(resp.Predictions) == 0 || strings.TrimSpace(resp.Predictions[0].Content) == "" {
		return "", errs.Generation("no response from text model", nil)
	}
	return resp.Predictions[0].Content, nil
}

// Embed returns the embedding vector of text.
func (a *AIService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Generation("cannot embed empty text", nil)
	}
	url := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:predict",
		a.baseURL, a.projectID, a.location, a.embeddingModel)
	reqBody := predictRequest{Instances: []any{embeddingInstance{Content: text}}}

	var resp embeddingPredictResponse
	if err := a.doJSON(ctx, http.MethodPost, url, reqBody, &resp); err != nil {
		return nil, errs.Generation("failed to embed text", err)
	}
	if len(resp.Predictions) == 0 || len(resp.Predictions[0].Embeddings.Values) == 0 {
		return nil, errs.Generation("no embedding returned", nil)
	}
	return resp.Predictions[0].Embeddings.Values, nil
}

func (a *AIService) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp apiError
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error.Message != "" {
			return fmt.Errorf("API error (status %d): %s - %s", resp.StatusCode, errorResp.Error.Status, errorResp.Error.Message)
		}
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
