package vision

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

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const (
	// Beijing region endpoint; the Singapore region uses dashscope-intl.
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	DefaultModel = "qwen3-vl-plus"

	defaultRequestTimeout = 60 * time.Second
)

// ErrInvalidCredential indicates the remote API rejected the configured key.
var ErrInvalidCredential = errors.New("DashScope rejected the API key")

// DashScopeProvider calls the DashScope chat-completions API directly,
// without going through langchaingo
type DashScopeProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *retryablehttp.Client

	imageQuality int
	imageMaxSize int
}

func newDashScopeProvider(config Config) (*DashScopeProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"base_url": config.BaseURL,
		"model":    config.Model,
	})

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	// Configure retryablehttp client
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = defaultRequestTimeout
	client.Logger = logger

	logger.Info("Successfully initialized DashScope provider")
	return &DashScopeProvider{
		apiKey:       config.APIKey,
		baseURL:      baseURL,
		model:        model,
		httpClient:   client,
		imageQuality: config.ImageQuality,
		imageMaxSize: config.ImageMaxSize,
	}, nil
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

func (p *DashScopeProvider) AnalyzeImage(ctx context.Context, imageContent []byte, prompt string) (*Result, error) {
	logger := log.WithFields(logrus.Fields{
		"model": p.model,
	})
	logger.Debug("Starting DashScope analysis")

	prepared, err := PrepareJPEG(imageContent, p.imageQuality, p.imageMaxSize)
	if err != nil {
		return nil, fmt.Errorf("error preparing image: %w", err)
	}

	reqBody := chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContentPart{
					{Type: "image_url", ImageURL: &chatImageURL{URL: DataURI(prepared)}},
					{Type: "text", Text: prompt},
				},
			},
		},
		Stream: false,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(p.baseURL, "/") + "/chat/completions"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	t0 := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DashScope request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidCredential
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if isCredentialError(string(body)) {
			return nil, fmt.Errorf("%w: status %d", ErrInvalidCredential, resp.StatusCode)
		}
		return nil, fmt.Errorf("DashScope API error status: %d", resp.StatusCode)
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode DashScope response: %w", err)
	}

	text, ok := extractCompletionText(data)
	if !ok {
		log.Debugf("DashScope raw response: %+v", data)
		return nil, fmt.Errorf("no usable text found in DashScope response")
	}

	logger.WithFields(logrus.Fields{
		"latency_ms":     time.Since(t0).Milliseconds(),
		"content_length": len(text),
	}).Info("Successfully analyzed image")

	return &Result{
		Text: StripReasoning(text),
		Metadata: map[string]string{
			"provider": "dashscope",
			"model":    p.model,
		},
	}, nil
}

// extractCompletionText pulls the assistant text out of a chat-completions
// response. Compatible endpoints differ in where they put it, so several
// shapes are tried in order.
func extractCompletionText(data map[string]interface{}) (string, bool) {
	choices, ok := data["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]interface{})
	if !ok {
		return "", false
	}

	// 1) message.content as a plain string
	if message, ok := first["message"].(map[string]interface{}); ok {
		if contentStr, ok := message["content"].(string); ok && contentStr != "" {
			return contentStr, true
		}

		// 2) message.content as an array of {type,text} parts
		if contentArr, ok := message["content"].([]interface{}); ok {
			var out strings.Builder
			for _, part := range contentArr {
				if pm, ok := part.(map[string]interface{}); ok {
					if t, ok := pm["text"].(string); ok {
						out.WriteString(t)
					}
				}
			}
			if out.Len() > 0 {
				return out.String(), true
			}
		}
	}

	// 3) choices[0].text (older style)
	if txt, ok := first["text"].(string); ok && txt != "" {
		return txt, true
	}

	return "", false
}

func isCredentialError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "invalidapikey") ||
		strings.Contains(msg, "401")
}
