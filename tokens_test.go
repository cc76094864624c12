package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTokenLimit(t *testing.T, limit int) {
	t.Helper()
	prevLimit := tokenLimit
	prevModel := visionModel
	tokenLimit = limit
	visionModel = "gpt-4o"
	t.Cleanup(func() {
		tokenLimit = prevLimit
		visionModel = prevModel
	})
}

func TestTruncateContentDisabledLimit(t *testing.T) {
	withTokenLimit(t, 0)

	content := strings.Repeat("long content ", 1000)
	got, err := truncateContentByTokens(content)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestTruncateContentUnderLimit(t *testing.T) {
	withTokenLimit(t, 1000)

	got, err := truncateContentByTokens("short content")
	require.NoError(t, err)
	assert.Equal(t, "short content", got)
}

func TestTruncateContentOverLimit(t *testing.T) {
	withTokenLimit(t, 50)

	content := strings.Repeat("用户正在解一元一次方程 ", 200)
	got, err := truncateContentByTokens(content)
	require.NoError(t, err)
	assert.Less(t, len(got), len(content))
	assert.LessOrEqual(t, getTokenCount(got), 50)
	assert.True(t, strings.HasPrefix(content, got))
}
