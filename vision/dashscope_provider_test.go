package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDashScopeProvider(t *testing.T, handler http.HandlerFunc) (*DashScopeProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := newDashScopeProvider(Config{
		Provider: "dashscope",
		APIKey:   "sk-test-key",
		BaseURL:  server.URL,
		Model:    "qwen3-vl-plus",
	})
	require.NoError(t, err)
	// No retry sleeps in tests
	provider.httpClient.RetryMax = 0
	return provider, server
}

func TestDashScopeProviderAnalyzeImage(t *testing.T) {
	var gotAuth string
	var gotBody chatCompletionRequest

	provider, _ := newTestDashScopeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"found\": true}"}}]}`))
	})

	frame := makeTestJPEG(t, 320, 240)
	result, err := provider.AnalyzeImage(context.Background(), frame, "describe the scene")
	require.NoError(t, err)

	assert.Equal(t, `{"found": true}`, result.Text)
	assert.Equal(t, "dashscope", result.Metadata["provider"])
	assert.Equal(t, "Bearer sk-test-key", gotAuth)

	require.Len(t, gotBody.Messages, 1)
	require.Len(t, gotBody.Messages[0].Content, 2)
	assert.Equal(t, "image_url", gotBody.Messages[0].Content[0].Type)
	assert.Contains(t, gotBody.Messages[0].Content[0].ImageURL.URL, "data:image/jpeg;base64,")
	assert.Equal(t, "describe the scene", gotBody.Messages[0].Content[1].Text)
}

func TestDashScopeProviderContentParts(t *testing.T) {
	provider, _ := newTestDashScopeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}}]}`))
	})

	result, err := provider.AnalyzeImage(context.Background(), makeTestJPEG(t, 64, 64), "p")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", result.Text)
}

func TestDashScopeProviderStripsReasoning(t *testing.T) {
	provider, _ := newTestDashScopeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<think>hmm</think>{\"ok\":1}"}}]}`))
	})

	result, err := provider.AnalyzeImage(context.Background(), makeTestJPEG(t, 64, 64), "p")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":1}`, result.Text)
}

func TestDashScopeProviderInvalidCredential(t *testing.T) {
	provider, _ := newTestDashScopeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := provider.AnalyzeImage(context.Background(), makeTestJPEG(t, 64, 64), "p")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestDashScopeProviderCredentialErrorInBody(t *testing.T) {
	provider, _ := newTestDashScopeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_api_key"}}`))
	})

	_, err := provider.AnalyzeImage(context.Background(), makeTestJPEG(t, 64, 64), "p")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestDashScopeProviderNoUsableText(t *testing.T) {
	provider, _ := newTestDashScopeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := provider.AnalyzeImage(context.Background(), makeTestJPEG(t, 64, 64), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable text")
}

func TestExtractCompletionText(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
		found    bool
	}{
		{
			name:     "Plain string content",
			payload:  `{"choices":[{"message":{"content":"hello"}}]}`,
			expected: "hello",
			found:    true,
		},
		{
			name:     "Legacy text field",
			payload:  `{"choices":[{"text":"legacy"}]}`,
			expected: "legacy",
			found:    true,
		},
		{
			name:    "Empty choices",
			payload: `{"choices":[]}`,
			found:   false,
		},
		{
			name:    "Missing choices",
			payload: `{}`,
			found:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &data))

			text, found := extractCompletionText(data)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, text)
		})
	}
}
