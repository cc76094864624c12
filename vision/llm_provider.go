package vision

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLMProvider implements scene analysis using langchaingo vision models
type LLMProvider struct {
	provider string
	model    string
	llm      llms.Model

	imageQuality int
	imageMaxSize int
}

func newLLMProvider(config Config) (*LLMProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": config.Provider,
		"model":    config.Model,
	})
	logger.Info("Creating new vision LLM provider")

	opts := []openai.Option{
		openai.WithModel(config.Model),
		openai.WithToken(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		logger.WithError(err).Error("Failed to create vision LLM client")
		return nil, fmt.Errorf("error creating vision LLM client: %w", err)
	}

	logger.Info("Successfully initialized vision LLM provider")
	return &LLMProvider{
		provider:     config.Provider,
		model:        config.Model,
		llm:          model,
		imageQuality: config.ImageQuality,
		imageMaxSize: config.ImageMaxSize,
	}, nil
}

func newOllamaProvider(config Config) (*LLMProvider, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating Ollama vision client: %w", err)
	}
	return &LLMProvider{
		provider:     config.Provider,
		model:        config.Model,
		llm:          model,
		imageQuality: config.ImageQuality,
		imageMaxSize: config.ImageMaxSize,
	}, nil
}

func (p *LLMProvider) AnalyzeImage(ctx context.Context, imageContent []byte, prompt string) (*Result, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": p.provider,
		"model":    p.model,
	})
	logger.Debug("Starting vision LLM analysis")

	prepared, err := PrepareJPEG(imageContent, p.imageQuality, p.imageMaxSize)
	if err != nil {
		logger.WithError(err).Error("Failed to prepare image")
		return nil, fmt.Errorf("error preparing image: %w", err)
	}

	// Ollama wants raw bytes, OpenAI-compatible endpoints want a data URI.
	var imagePart llms.ContentPart
	if strings.ToLower(p.provider) == "ollama" {
		imagePart = llms.BinaryPart("image/jpeg", prepared)
	} else {
		imagePart = llms.ImageURLPart(DataURI(prepared))
	}

	parts := []llms.ContentPart{
		imagePart,
		llms.TextPart(prompt),
	}

	logger.Debug("Sending request to vision model")
	completion, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Parts: parts,
			Role:  llms.ChatMessageTypeHuman,
		},
	})
	if err != nil {
		logger.WithError(err).Error("Failed to get response from vision model")
		if isCredentialError(err.Error()) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		return nil, fmt.Errorf("error getting response from vision model: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from vision model")
	}

	result := &Result{
		Text: StripReasoning(completion.Choices[0].Content),
		Metadata: map[string]string{
			"provider": p.provider,
			"model":    p.model,
		},
	}
	logger.WithField("content_length", len(result.Text)).Info("Successfully analyzed image")
	return result, nil
}
