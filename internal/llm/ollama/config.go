package ollama

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultURL   = "http://localhost:11434/api/generate"
	DefaultModel = "phi3:mini"
)

// Config for the Ollama generate client.
type Config struct {
	URL         string        // full generate endpoint
	Model       string        // e.g. "phi3:mini"
	Temperature float64       // 0 keeps answers deterministic
	NumCtx      int           // context window in tokens
	NumPredict  int           // max tokens to generate; 0 leaves the server default
	TopP        float64       // 0 leaves the server default
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.NumCtx <= 0 {
		cfg.NumCtx = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }
