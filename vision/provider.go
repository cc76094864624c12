package vision

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Result holds the raw output of a vision model call
type Result struct {
	// Raw model output (required)
	Text string

	// Additional provider-specific metadata
	Metadata map[string]string
}

// Provider defines the interface for vision model analysis
type Provider interface {
	AnalyzeImage(ctx context.Context, imageContent []byte, prompt string) (*Result, error)
}

// Config holds the vision provider configuration
type Config struct {
	// Provider type (e.g., "openai", "dashscope", "ollama")
	Provider string

	// DashScope settings
	APIKey  string
	BaseURL string
	Model   string

	// Image preparation settings
	ImageQuality int // JPEG re-encode quality (1-100)
	ImageMaxSize int // Max dimension in pixels before resizing
}

// NewProvider creates a new vision provider based on configuration
func NewProvider(config Config) (Provider, error) {
	log.Info("Initializing vision provider: ", config.Provider)

	switch config.Provider {
	case "openai":
		if config.APIKey == "" || config.Model == "" {
			return nil, fmt.Errorf("missing required OpenAI-compatible configuration")
		}
		log.WithFields(logrus.Fields{
			"base_url": config.BaseURL,
			"model":    config.Model,
		}).Info("Using OpenAI-compatible vision provider")
		return newLLMProvider(config)

	case "dashscope":
		if config.APIKey == "" {
			return nil, fmt.Errorf("missing required DashScope API key")
		}
		log.WithFields(logrus.Fields{
			"base_url": config.BaseURL,
			"model":    config.Model,
		}).Info("Using native DashScope vision provider")
		return newDashScopeProvider(config)

	case "ollama":
		log.WithField("model", config.Model).Info("Using Ollama vision provider")
		return newOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unsupported vision provider: %s", config.Provider)
	}
}

// SetLogLevel sets the logging level for the vision package
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
