package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsCreatesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setTestSettings(t, Settings{})

	loadSettings()

	s := getSettings()
	assert.Equal(t, 0, s.AnalysisIntervalMs)
	assert.Equal(t, 3, s.MaxHintLevel)
	assert.True(t, s.AnswerCheckEnabled)

	_, err := os.Stat(filepath.Join(configDir, settingsFile))
	assert.NoError(t, err)
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	setTestSettings(t, Settings{
		AnalysisIntervalMs: 1500,
		MaxHintLevel:       2,
		AnswerCheckEnabled: false,
	})

	require.NoError(t, saveSettings())

	// Clobber the in-memory copy, then reload from disk
	settingsMutex.Lock()
	settings = Settings{}
	settingsMutex.Unlock()

	loadSettings()

	s := getSettings()
	assert.Equal(t, 1500, s.AnalysisIntervalMs)
	assert.Equal(t, 2, s.MaxHintLevel)
	assert.False(t, s.AnswerCheckEnabled)
}

func TestLoadSettingsCorruptFile(t *testing.T) {
	t.Chdir(t.TempDir())
	setTestSettings(t, Settings{})

	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, settingsFile), []byte("{not json"), 0644))

	loadSettings()

	s := getSettings()
	assert.Equal(t, 3, s.MaxHintLevel)
	assert.True(t, s.AnswerCheckEnabled)
}

func TestCurrentAnalysisInterval(t *testing.T) {
	previous := analysisInterval
	analysisInterval = 500 * time.Millisecond
	t.Cleanup(func() { analysisInterval = previous })

	setTestSettings(t, Settings{AnalysisIntervalMs: 0})
	assert.Equal(t, 500*time.Millisecond, currentAnalysisInterval())

	setTestSettings(t, Settings{AnalysisIntervalMs: 2000})
	assert.Equal(t, 2*time.Second, currentAnalysisInterval())
}
