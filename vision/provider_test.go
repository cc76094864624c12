package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported vision provider")
}

func TestNewProviderMissingDashScopeKey(t *testing.T) {
	_, err := NewProvider(Config{Provider: "dashscope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewProviderMissingOpenAIConfig(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openai", APIKey: "sk-x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required")
}

func TestNewProviderDashScopeDefaults(t *testing.T) {
	p, err := NewProvider(Config{Provider: "dashscope", APIKey: "sk-x"})
	require.NoError(t, err)

	ds, ok := p.(*DashScopeProvider)
	require.True(t, ok)
	assert.Equal(t, DefaultBaseURL, ds.baseURL)
	assert.Equal(t, DefaultModel, ds.model)
}
