package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultPasses mirrors ocr.DefaultPasses; ocr depends on this package.
const defaultPasses = "enhanced:6,enhanced:4,original:6"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Image    ImageConfig
	Clean    CleanConfig
	LLM      LLMConfig
	Queue    QueueConfig
	Watch    WatchConfig
	Report   ReportConfig
	LogLevel string
}

// DatabaseConfig holds run-store configuration. An empty DSN disables the store.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
	AllowPaths  bool // Extract may read server-side paths
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Backend                 string // "exec" or "gosseract"
	TesseractPath           string
	TessdataDir             string
	Languages               []string
	EngineMode              int
	Passes                  string // comma separated recipe:psm list
	Parallel                bool
	Timeout                 time.Duration
	PreserveInterwordSpaces bool
}

type ImageConfig struct {
	MaxDimension    int
	ContrastFactor  float64
	SharpenSigma    float64
	ThresholdBlock  int
	ThresholdOffset int // 0 selects the default of 2
	DenoiseRadius   int // negative disables the median filter
}

type CleanConfig struct {
	Punctuation   string
	MinLineLength int
}

// LLMConfig holds the text-generation endpoint configuration.
type LLMConfig struct {
	Enabled         bool
	URL             string
	Model           string
	Temperature     float64
	NumCtx          int
	NumPredict      int
	TopP            float64
	Timeout         time.Duration
	MaxTextChars    int
	PromptFile      string
	RPS             float64
	BreakerFailures int
	BreakerCooldown time.Duration
}

type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

type WatchConfig struct {
	Dirs     []string
	Debounce time.Duration
}

type ReportConfig struct {
	Path string
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return NewAppError(CodeConfig, "loading .env", err)
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
			AllowPaths:  getEnvAsBool("GRPC_ALLOW_PATHS", false),
		},
		OCR: OCRConfig{
			Backend:                 getEnv("OCR_BACKEND", "exec"),
			TesseractPath:           getEnv("TESSERACT_PATH", "tesseract"),
			TessdataDir:             getEnv("TESSDATA_PREFIX", ""),
			Languages:               getEnvAsList("OCR_LANGS", []string{"eng"}),
			EngineMode:              getEnvAsInt("OCR_OEM", 3),
			Passes:                  getEnv("OCR_PASSES", defaultPasses),
			Parallel:                getEnvAsBool("OCR_PARALLEL", false),
			Timeout:                 getEnvAsDuration("OCR_TIMEOUT", 60*time.Second),
			PreserveInterwordSpaces: getEnvAsBool("OCR_PRESERVE_INTERWORD_SPACES", false),
		},
		Image: ImageConfig{
			MaxDimension:    getEnvAsInt("IMAGE_MAX_DIMENSION", 1200),
			ContrastFactor:  getEnvAsFloat64("IMAGE_CONTRAST", 2.0),
			SharpenSigma:    getEnvAsFloat64("IMAGE_SHARPEN_SIGMA", 1.0),
			ThresholdBlock:  getEnvAsInt("IMAGE_THRESHOLD_BLOCK", 11),
			ThresholdOffset: getEnvAsInt("IMAGE_THRESHOLD_OFFSET", 2),
			DenoiseRadius:   getEnvAsInt("IMAGE_DENOISE_RADIUS", 1),
		},
		Clean: CleanConfig{
			Punctuation:   getEnv("CLEAN_PUNCTUATION", ".,-/:()"),
			MinLineLength: getEnvAsInt("CLEAN_MIN_LINE_LENGTH", 2),
		},
		LLM: LLMConfig{
			Enabled:         getEnvAsBool("LLM_ENABLED", true),
			URL:             getEnv("LLM_URL", "http://localhost:11434/api/generate"),
			Model:           getEnv("LLM_MODEL", "phi3:mini"),
			Temperature:     getEnvAsFloat64("LLM_TEMPERATURE", 0.0),
			NumCtx:          getEnvAsInt("LLM_NUM_CTX", 2048),
			NumPredict:      getEnvAsInt("LLM_NUM_PREDICT", 100),
			TopP:            getEnvAsFloat64("LLM_TOP_P", 0.9),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			MaxTextChars:    getEnvAsInt("LLM_MAX_TEXT_CHARS", 3000),
			PromptFile:      getEnv("LLM_PROMPT_FILE", ""),
			RPS:             getEnvAsFloat64("LLM_RPS", 0),
			BreakerFailures: getEnvAsInt("LLM_BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvAsDuration("LLM_BREAKER_COOLDOWN", 30*time.Second),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("WORKERS", 4),
			Size:           getEnvAsInt("QUEUE_SIZE", 64),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 5*time.Minute),
		},
		Watch: WatchConfig{
			Dirs:     getEnvAsList("WATCH_DIRS", nil),
			Debounce: getEnvAsDuration("WATCH_DEBOUNCE", 750*time.Millisecond),
		},
		Report: ReportConfig{
			Path: getEnv("REPORT_PATH", "extracted_ids.txt"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits on commas and '+', dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OCR_BACKEND", c.OCR.Backend, OneOf("exec", "gosseract")).
		Field("OCR_LANGS", c.OCR.Languages, Required).
		Field("OCR_PASSES", c.OCR.Passes, Required).
		Field("OCR_TIMEOUT", c.OCR.Timeout, Positive).
		Field("IMAGE_MAX_DIMENSION", c.Image.MaxDimension, Positive).
		Field("IMAGE_CONTRAST", c.Image.ContrastFactor, Positive).
		Field("IMAGE_THRESHOLD_BLOCK", c.Image.ThresholdBlock, Positive).
		Field("CLEAN_MIN_LINE_LENGTH", c.Clean.MinLineLength, NonNegative).
		Field("WORKERS", c.Queue.Workers, Positive).
		Field("LOG_LEVEL", c.LogLevel, OneOf("debug", "info", "warn", "error"))
	if c.OCR.Backend == "exec" {
		v.Field("TESSERACT_PATH", c.OCR.TesseractPath, Required)
	}
	if c.LLM.Enabled {
		v.Field("LLM_URL", c.LLM.URL, HTTPURL).
			Field("LLM_MODEL", c.LLM.Model, Required).
			Field("LLM_TIMEOUT", c.LLM.Timeout, Positive).
			Field("LLM_MAX_TEXT_CHARS", c.LLM.MaxTextChars, Positive).
			Field("LLM_TEMPERATURE", c.LLM.Temperature, NonNegative).
			Field("LLM_RPS", c.LLM.RPS, NonNegative)
	}
	if err := v.Error(); err != nil {
		return NewSetupError(CodeConfig, err.Error(), ErrInvalidInput)
	}
	return nil
}
