package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	configDir    = "config"
	settingsFile = "settings.json"
)

// Settings are the runtime-tunable knobs, persisted across restarts
type Settings struct {
	// Min delay between analyses in milliseconds, measured from completion
	// of the previous one. 0 falls back to ANALYSIS_INTERVAL_MS.
	AnalysisIntervalMs int `json:"analysis_interval_ms"`

	// Cap on hint levels the reasoning agent may project (1-3)
	MaxHintLevel int `json:"max_hint_level"`

	// Whether CHECK_ANSWER decisions are acted on
	AnswerCheckEnabled bool `json:"answer_check_enabled"`
}

var (
	settings      Settings
	settingsMutex sync.RWMutex
)

// saveSettings saves the current settings to the settings.json file.
func saveSettings() error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	return saveSettingsLocked()
}

// saveSettingsLocked performs the actual saving without locking the mutex.
// This is to be called from functions that already hold the lock.
func saveSettingsLocked() error {
	// Ensure the config directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, settingsFile), data, 0644)
}

// loadSettings loads the settings from settings.json, creating it with
// defaults if it doesn't exist or is corrupt.
func loadSettings() {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settingsPath := filepath.Join(configDir, settingsFile)
	data, err := os.ReadFile(settingsPath)

	loadDefaultSettings := func() {
		settings = Settings{
			AnalysisIntervalMs: 0,
			MaxHintLevel:       3,
			AnswerCheckEnabled: true,
		}
	}

	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("Settings file not found at %s, creating with default values.", settingsPath)
			loadDefaultSettings()
			if err := saveSettingsLocked(); err != nil {
				log.Errorf("Failed to save default settings: %v", err)
			}
			return
		}
		log.Errorf("Failed to read settings file, using defaults: %v", err)
		loadDefaultSettings()
		return
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		log.Errorf("Settings file is corrupt, recreating with default values: %v", err)
		loadDefaultSettings()
		if err := saveSettingsLocked(); err != nil {
			log.Errorf("Failed to save default settings: %v", err)
		}
	}
}

// getSettings returns a copy of the current settings
func getSettings() Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings
}

// currentAnalysisInterval resolves the effective pacing interval: a runtime
// setting when present, the environment default otherwise
func currentAnalysisInterval() time.Duration {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	if settings.AnalysisIntervalMs > 0 {
		return time.Duration(settings.AnalysisIntervalMs) * time.Millisecond
	}
	return analysisInterval
}
