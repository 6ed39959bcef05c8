package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OCR providers accepted by OCR_PROVIDER.
const (
	OCRProviderTesseract = "tesseract"
	OCRProviderBedrock   = "bedrock"
	OCRProviderNone      = "none"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	Version  string

	// Parsing
	DefaultTimezone string
	VocabularyPath  string
	ReferenceNow    string

	// OCR
	OCRProvider      string
	TesseractPath    string
	TesseractLang    string
	TesseractPSM     int
	OCRTSVConfidence bool
	OCRTimeout       time.Duration
	MaxUploadBytes   int64

	// AWS
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	BedrockVisionModelID string
	ImageBucket          string

	// Result cache
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	ResultCacheTTL time.Duration

	// HTTP
	CORSAllowedOrigins  []string
	ImageRateLimitRPS   float64
	ImageRateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("APP_VERSION", "dev"),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),
		VocabularyPath:  getEnv("VOCABULARY_PATH", ""),
		ReferenceNow:    getEnv("REFERENCE_NOW", ""),

		OCRProvider:      strings.ToLower(strings.TrimSpace(getEnv("OCR_PROVIDER", OCRProviderTesseract))),
		TesseractPath:    getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
		TesseractPSM:     getEnvAsInt("TESSERACT_PSM", 0),
		OCRTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", true),
		OCRTimeout:       getEnvAsDuration("OCR_TIMEOUT", 20*time.Second),
		MaxUploadBytes:   int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockVisionModelID: getEnv("BEDROCK_VISION_MODEL_ID", ""),
		ImageBucket:          getEnv("IMAGE_BUCKET", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		ResultCacheTTL: getEnvAsDuration("RESULT_CACHE_TTL", 24*time.Hour),

		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ImageRateLimitRPS:   getEnvAsFloat("IMAGE_RATE_LIMIT_RPS", 2),
		ImageRateLimitBurst: getEnvAsInt("IMAGE_RATE_LIMIT_BURST", 5),
	}
}

// Validate rejects combinations that would fail at first use rather than at
// startup.
func (c *Config) Validate() error {
	switch c.OCRProvider {
	case OCRProviderTesseract, OCRProviderNone:
	case OCRProviderBedrock:
		if strings.TrimSpace(c.BedrockVisionModelID) == "" {
			return fmt.Errorf("config: BEDROCK_VISION_MODEL_ID is required when OCR_PROVIDER=bedrock")
		}
	default:
		return fmt.Errorf("config: unknown OCR_PROVIDER %q", c.OCRProvider)
	}
	if strings.TrimSpace(c.DefaultTimezone) == "" {
		return fmt.Errorf("config: DEFAULT_TIMEZONE is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// OCREnabled reports whether image parsing is available.
func (c *Config) OCREnabled() bool {
	return c.OCRProvider != OCRProviderNone
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
