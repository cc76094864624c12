package constants

// Environment variable names used across the application
const (
	// EnvAPIKey holds the DashScope credential. Keys are issued with an
	// "sk-" prefix and must not be quoted in the .env file.
	EnvAPIKey = "DASHSCOPE_API_KEY"

	// EnvBaseURL overrides the DashScope compatible-mode endpoint
	EnvBaseURL = "DASHSCOPE_BASE_URL"

	// EnvVisionProvider selects the vision backend (openai, dashscope, ollama)
	EnvVisionProvider = "VISION_LLM_PROVIDER"

	// EnvVisionModel selects the vision model
	EnvVisionModel = "VISION_LLM_MODEL"

	EnvLogLevel         = "LOG_LEVEL"
	EnvListenAddr       = "LISTEN_ADDR"
	EnvImageQuality     = "IMAGE_QUALITY"
	EnvImageMaxSize     = "IMAGE_MAX_SIZE"
	EnvAnalysisInterval = "ANALYSIS_INTERVAL_MS"
	EnvTokenLimit       = "TOKEN_LIMIT"
	EnvRateLimitRPM     = "LLM_RATE_LIMIT_RPM"
	EnvMaxRetries       = "LLM_MAX_RETRIES"
)

// DummyAPIKey is used as a placeholder when connecting to OpenAI-compatible
// services that don't require authentication. Many services expect a token in
// the request header but don't validate it.
const DummyAPIKey = "not-needed"
