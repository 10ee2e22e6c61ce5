package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the dictation engine service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Deepgram STT API configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2-medical"` // nova-2-medical, nova-2, enhanced, base
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`       // Language code (en-US, es, fr, etc.)

	// OpenAI configuration for AI text transforms.
	// When the key is empty, transform requests are rejected and the rest of
	// the engine runs normally.
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY" default:""`
	RefineModel      string `envconfig:"REFINE_MODEL" default:"gpt-3.5-turbo"`
	ImproveModel     string `envconfig:"IMPROVE_MODEL" default:"gpt-3.5-turbo"`
	StructuredModel  string `envconfig:"STRUCTURED_MODEL" default:"gpt-4o"`
	TransformTimeout int    `envconfig:"TRANSFORM_TIMEOUT" default:"60"` // seconds

	// Transcription pipeline configuration
	WorkerCount      int `envconfig:"WORKER_COUNT" default:"4"`          // Concurrent transcription workers
	SubmitQueueSize  int `envconfig:"SUBMIT_QUEUE_SIZE" default:"32"`    // Pending chunks before Submit blocks
	ReorderTimeoutMS int `envconfig:"REORDER_TIMEOUT_MS" default:"5000"` // Head-of-line wait before a slot is skipped

	// Audio capture configuration
	CaptureCommand     string  `envconfig:"CAPTURE_COMMAND" default:"arecord -q -f S16_LE -r 16000 -c 1 -t raw"` // Command producing raw PCM on stdout
	SampleRate         int     `envconfig:"SAMPLE_RATE" default:"16000"`          // Capture sample rate in Hz
	PhraseTimeLimitMS  int     `envconfig:"PHRASE_TIME_LIMIT_MS" default:"10000"` // Hard per-utterance cap
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for VAD
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"25"`      // Frames of silence to mark utterance end

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts (AI transforms only)
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Document persistence
	SavePath string `envconfig:"SAVE_PATH" default:"dictation.txt"` // Destination for the "save text" voice command

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.PhraseTimeLimitMS <= 0 {
		return nil, fmt.Errorf("PHRASE_TIME_LIMIT_MS must be positive, got %d", cfg.PhraseTimeLimitMS)
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("SAMPLE_RATE must be positive, got %d", cfg.SampleRate)
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
