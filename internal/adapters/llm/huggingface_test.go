package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

func TestHuggingFace_Generate(t *testing.T) {
	var got hfRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[{"generated_text":" H. pylori and NSAIDs.</s>"}]`))
	}))
	defer server.Close()

	adapter, err := NewHuggingFaceAdapter(server.URL, "hf_test", "", nil)
	require.NoError(t, err)

	out, err := adapter.Generate(context.Background(), "<s>[INST] q [/INST]", ports.GenerateOptions{
		MaxTokens:   512,
		Temperature: 0.1,
		Stop:        []string{"</s>"},
	})
	require.NoError(t, err)
	assert.Equal(t, " H. pylori and NSAIDs.</s>", out)

	assert.Equal(t, "<s>[INST] q [/INST]", got.Inputs)
	assert.Equal(t, 512, got.Parameters.MaxNewTokens)
	assert.False(t, got.Parameters.ReturnFullText)
	assert.Equal(t, []string{"</s>"}, got.Parameters.Stop)
}

func TestHuggingFace_SingleObjectResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text":"answer"}`))
	}))
	defer server.Close()

	adapter, err := NewHuggingFaceAdapter(server.URL, "tok", "m", nil)
	require.NoError(t, err)
	out, err := adapter.Generate(context.Background(), "p", ports.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestHuggingFace_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate limit"}`},
		{"model loading", http.StatusServiceUnavailable, `{"error":"loading"}`},
		{"empty list", http.StatusOK, `[]`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter, err := NewHuggingFaceAdapter(server.URL, "tok", "", nil)
			require.NoError(t, err)
			_, err = adapter.Generate(context.Background(), "p", ports.GenerateOptions{})
			assert.Error(t, err)
		})
	}
}

func TestHuggingFace_Defaults(t *testing.T) {
	_, err := NewHuggingFaceAdapter("", "", "", nil)
	assert.Error(t, err, "token is required")

	adapter, err := NewHuggingFaceAdapter("", "tok", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultHuggingFaceModel, adapter.model)
	assert.Equal(t, huggingFaceInferenceURL+DefaultHuggingFaceModel, adapter.endpoint)
}
