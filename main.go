package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"projection-tutor/internal/constants"
	"projection-tutor/vision"
)

// Global Variables and Constants
var (

	// Logger
	log = logrus.New()

	// Environment Variables (populated by loadConfig after .env is loaded)
	apiKey         string
	baseURL        string
	visionProvider string
	visionModel    string
	logLevel       string
	listenAddr     string
	imageQuality   int
	imageMaxSize   int
	tokenLimit     int
	rateLimitRPM   int
	llmMaxRetries  int

	// Min delay between analyses, measured from completion of the previous one
	analysisInterval time.Duration
)

// App struct to hold dependencies
type App struct {
	Vision     vision.Provider
	Database   *gorm.DB
	Perception *PerceptionAgent
	Reasoning  *ReasoningAgent

	// latest frame cache, written by the upload handler
	latestFrameMu sync.Mutex
	latestFrame   []byte

	// current analysis output
	dataMu   sync.RWMutex
	current  AnalysisState
	feedback *ReasoningFeedback

	// analysis pacing
	analysisMu       sync.Mutex
	analyzing        bool
	lastAnalysisDone time.Time
}

func main() {
	checkEnv := flag.Bool("check-env", false, "verify the .env configuration and exit")
	flag.Parse()

	// Load .env before anything reads the environment
	envLoaded := loadEnvFile()

	if *checkEnv {
		os.Exit(runEnvCheck(os.Stdout, envLoaded))
	}

	loadConfig()

	// Validate Environment Variables
	validateEnvVars()

	// Initialize logrus logger
	initLogger()

	// Load prompt templates
	loadTemplates()

	// Load runtime settings
	loadSettings()

	// Initialize Database
	database := InitializeDB()

	// Initialize vision provider
	provider, err := createVisionProvider()
	if err != nil {
		log.Fatalf("Failed to create vision provider: %v", err)
	}

	// Wrap with rate limiting and retries
	limited := NewRateLimitedProvider(provider, rateLimitRPM, llmMaxRetries)

	app := &App{
		Vision:     limited,
		Database:   database,
		Perception: NewPerceptionAgent(limited),
		Reasoning:  NewReasoningAgent(limited),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background analysis scheduler
	StartAnalysisScheduler(ctx, app)

	// Worker pool for on-demand analysis jobs
	startWorkerPool(ctx, app, 1)

	// Create a Gin router with default middleware (logger and recovery)
	router := gin.Default()

	// API routes
	api := router.Group("/api")
	{
		api.GET("/healthz", app.healthzHandler)

		api.POST("/frames", app.uploadFrameHandler)

		api.GET("/perception", app.getPerceptionHandler)
		api.GET("/decision", app.getDecisionHandler)
		api.GET("/overlay", app.getOverlayHandler)

		api.POST("/analyze", app.submitAnalysisJobHandler)
		api.GET("/jobs", app.getAllJobsHandler)
		api.GET("/jobs/:job_id", app.getJobStatusHandler)
		api.POST("/jobs/:job_id/cancel", app.cancelJobHandler)

		api.GET("/history", app.getHistoryHandler)
		api.GET("/history/:question_id", app.getQuestionHistoryHandler)

		api.GET("/prompts", getPromptsHandler)
		api.POST("/prompts", updatePromptsHandler)

		api.GET("/settings", getSettingsHandler)
		api.POST("/settings", updateSettingsHandler)
	}

	log.Infof("Server started on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// loadEnvFile loads the .env file from the working directory. The real
// environment wins over file values. Returns whether a file was loaded.
func loadEnvFile() bool {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Failed to load .env file: %v", err)
		}
		return false
	}
	return true
}

// loadConfig reads configuration from the environment into the globals
func loadConfig() {
	apiKey = os.Getenv(constants.EnvAPIKey)
	baseURL = envOrDefault(constants.EnvBaseURL, vision.DefaultBaseURL)
	visionProvider = strings.ToLower(envOrDefault(constants.EnvVisionProvider, "openai"))
	visionModel = envOrDefault(constants.EnvVisionModel, vision.DefaultModel)
	logLevel = strings.ToLower(os.Getenv(constants.EnvLogLevel))
	listenAddr = envOrDefault(constants.EnvListenAddr, ":8080")
	imageQuality = envInt(constants.EnvImageQuality, vision.DefaultImageQuality)
	imageMaxSize = envInt(constants.EnvImageMaxSize, vision.DefaultImageMaxSize)
	tokenLimit = envInt(constants.EnvTokenLimit, 0)
	rateLimitRPM = envInt(constants.EnvRateLimitRPM, 0)
	llmMaxRetries = envInt(constants.EnvMaxRetries, 3)
	analysisInterval = time.Duration(envInt(constants.EnvAnalysisInterval, 500)) * time.Millisecond
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Invalid value for %s: %q", key, v)
	}
	return n
}

func initLogger() {
	switch logLevel {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.Fatalf("Invalid log level: '%s'.", logLevel)
		}
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	vision.SetLogLevel(log.GetLevel())
}

// validateEnvVars ensures all necessary environment variables are set
func validateEnvVars() {
	switch visionProvider {
	case "openai", "dashscope":
		if apiKey == "" {
			log.Fatalf("Please set the %s environment variable. Run with -check-env to verify your .env file.", constants.EnvAPIKey)
		}
	case "ollama":
		// local server, no credential required
	default:
		log.Fatalf("Please set the %s environment variable to 'openai', 'dashscope' or 'ollama'.", constants.EnvVisionProvider)
	}

	if visionModel == "" {
		log.Fatalf("Please set the %s environment variable.", constants.EnvVisionModel)
	}
}

// createVisionProvider creates the vision client based on the provider
func createVisionProvider() (vision.Provider, error) {
	key := apiKey
	if visionProvider == "ollama" && key == "" {
		key = constants.DummyAPIKey
	}
	return vision.NewProvider(vision.Config{
		Provider:     visionProvider,
		APIKey:       key,
		BaseURL:      baseURL,
		Model:        visionModel,
		ImageQuality: imageQuality,
		ImageMaxSize: imageMaxSize,
	})
}
