package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Config holds all configuration values for the image-to-image demo.
// Everything is optional: with no environment at all the tool runs against a
// local Stable Diffusion WebUI backend and writes results next to the binary.
type Config struct {
	// Backend Configuration (local-first)
	SDWebUIURL string // Stable Diffusion WebUI API endpoint (img2img)

	// OpenAI Configuration (optional cloud fallback)
	OpenAIAPIKey  string // API key; empty disables the OpenAI provider
	OpenAIBaseURL string // Optional override for the OpenAI API base URL

	// Directories
	ResultsDir string // Where generated images and metadata sidecars land
	ModelsDir  string // Where downloaded model weights are stored
	SamplesDir string // Where synthetic demo inputs are written

	// Generation Defaults (per-model catalog values take precedence)
	DefaultStrength      float64 // Transformation strength, 0.0-1.0
	DefaultGuidanceScale float64 // Prompt adherence, 1.0-20.0
	DefaultSteps         int     // Denoising steps, 10-100
	NegativePrompt       string  // Default negative prompt for SD backends
	MaxImageSize         int     // Longest edge inputs are resized down to

	// Web Configuration
	WebPort        int    // Upload API port (default 5000)
	StudioPort     int    // Interactive UI port (default 7860)
	MaxUploadBytes int64  // Byte cap for uploaded and CLI input images
	WebPassword    string // Optional bcrypt hash gating the web endpoints

	// Persistence
	DatabasePath string // SQLite generation history (empty disables history)

	// Device selection: "auto", "cuda", or "cpu"
	Device string

	// Processing Configuration
	MaxRetries           int
	RetryDelay           time.Duration
	GenerationTimeout    time.Duration
	MaxConcurrent        int
	AllowSelfSignedCerts bool
}

// LoadConfig loads configuration from environment variables with sensible
// defaults for zero-config local use. Nothing is required.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		SDWebUIURL: EnvOrDefault("SD_WEBUI_URL", "http://127.0.0.1:7861"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		ResultsDir: EnvOrDefault("RESULTS_DIR", "./results"),
		ModelsDir:  EnvOrDefault("MODELS_DIR", "./models"),
		SamplesDir: EnvOrDefault("SAMPLES_DIR", "./sample_images"),

		DefaultStrength:      Float64Env("DEFAULT_STRENGTH", 0.75),
		DefaultGuidanceScale: Float64Env("DEFAULT_GUIDANCE_SCALE", 7.5),
		DefaultSteps:         IntEnv("DEFAULT_STEPS", 50),
		NegativePrompt:       os.Getenv("NEGATIVE_PROMPT"),
		MaxImageSize:         IntEnv("MAX_IMAGE_SIZE", 1024),

		WebPort:        IntEnv("WEB_PORT", 5000),
		StudioPort:     IntEnv("STUDIO_PORT", 7860),
		MaxUploadBytes: Int64Env("MAX_UPLOAD_BYTES", 16*1024*1024),
		WebPassword:    os.Getenv("WEB_PASSWORD"),

		DatabasePath: EnvOrDefault("DATABASE_PATH", "./results/history.sqlite"),

		Device: EnvOrDefault("DEVICE", "auto"),

		// 3 retries with 2s delay handles transient backend hiccups
		// without stalling interactive use.
		MaxRetries: IntEnv("MAX_RETRIES", 3),
		RetryDelay: SecondsEnv("RETRY_DELAY", 2),
		// Diffusion on CPU is slow; the timeout has to accommodate it.
		GenerationTimeout:    SecondsEnv("GENERATION_TIMEOUT", 300),
		MaxConcurrent:        IntEnv("MAX_CONCURRENT", 2),
		AllowSelfSignedCerts: BoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are in their documented ranges.
func (c *Config) Validate() error {
	if c.DefaultStrength < 0.0 || c.DefaultStrength > 1.0 {
		return fmt.Errorf("DEFAULT_STRENGTH must be between 0.0 and 1.0, got %.2f", c.DefaultStrength)
	}
	if c.DefaultGuidanceScale < 1.0 || c.DefaultGuidanceScale > 20.0 {
		return fmt.Errorf("DEFAULT_GUIDANCE_SCALE must be between 1.0 and 20.0, got %.2f", c.DefaultGuidanceScale)
	}
	if c.DefaultSteps < 10 || c.DefaultSteps > 100 {
		return fmt.Errorf("DEFAULT_STEPS must be between 10 and 100, got %d", c.DefaultSteps)
	}
	if c.MaxImageSize%8 != 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be divisible by 8, got %d", c.MaxImageSize)
	}
	if c.MaxImageSize < 128 || c.MaxImageSize > 2048 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be between 128 and 2048, got %d", c.MaxImageSize)
	}
	if c.WebPort < 1 || c.WebPort > 65535 {
		return fmt.Errorf("WEB_PORT must be a valid port, got %d", c.WebPort)
	}
	if c.StudioPort < 1 || c.StudioPort > 65535 {
		return fmt.Errorf("STUDIO_PORT must be a valid port, got %d", c.StudioPort)
	}
	if c.WebPort == c.StudioPort {
		return fmt.Errorf("WEB_PORT and STUDIO_PORT must differ, both are %d", c.WebPort)
	}
	if c.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1024, got %d", c.MaxUploadBytes)
	}
	if c.MaxConcurrent < 1 || c.MaxConcurrent > 10 {
		return fmt.Errorf("MAX_CONCURRENT must be between 1 and 10, got %d", c.MaxConcurrent)
	}
	switch c.Device {
	case "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("DEVICE must be auto, cuda, or cpu, got %q", c.Device)
	}
	return nil
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on
// AllowSelfSignedCerts. All requests to external backends should go through
// clients built here so the TLS configuration is respected everywhere.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// GetDefaultHTTPClient returns an HTTP client with a 30s timeout and the
// configured TLS settings.
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	return GetHTTPClient(cfg, 30*time.Second)
}
