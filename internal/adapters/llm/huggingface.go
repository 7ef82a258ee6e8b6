package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// DefaultHuggingFaceModel is the hosted instruction model used when none is configured.
const DefaultHuggingFaceModel = "mistralai/Mistral-7B-Instruct-v0.3"

const huggingFaceInferenceURL = "https://api-inference.huggingface.co/models/"

// HuggingFaceAdapter implements ports.Generator against a text-generation
// inference endpoint.
type HuggingFaceAdapter struct {
	endpoint string
	token    string
	model    string
	client   *http.Client
	logger   *zap.Logger
}

// NewHuggingFaceAdapter creates a generator for model. An empty endpoint
// means the hosted inference API for model.
func NewHuggingFaceAdapter(endpoint, token, model string, logger *zap.Logger) (*HuggingFaceAdapter, error) {
	if token == "" {
		return nil, errors.New("HuggingFace API token not set")
	}
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	if endpoint == "" {
		endpoint = huggingFaceInferenceURL + model
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFaceAdapter{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		model:    model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}, nil
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens,omitempty"`
	Temperature    float64  `json:"temperature"`
	Stop           []string `json:"stop,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// Generate returns the generated continuation of prompt.
func (a *HuggingFaceAdapter) Generate(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	jsonData, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: opts.MaxTokens,
			Temperature:  opts.Temperature,
			Stop:         opts.Stop,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling HuggingFace: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HuggingFace returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	text, err := decodeGeneration(body)
	if err != nil {
		return "", err
	}

	a.logger.Debug("Completion received", zap.String("model", a.model), zap.Int("chars", len(text)))
	return text, nil
}

// decodeGeneration accepts both the list form returned by the hosted API
// and the single-object form returned by self-hosted TGI servers.
func decodeGeneration(body []byte) (string, error) {
	var list []hfGeneration
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return "", errors.New("HuggingFace returned no generations")
		}
		return list[0].GeneratedText, nil
	}
	var single hfGeneration
	if err := json.Unmarshal(body, &single); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return single.GeneratedText, nil
}
