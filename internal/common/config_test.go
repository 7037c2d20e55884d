package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "exec", cfg.OCR.Backend)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.Equal(t, "enhanced:6,enhanced:4,original:6", cfg.OCR.Passes)
	assert.Equal(t, 1200, cfg.Image.MaxDimension)
	assert.Equal(t, ".,-/:()", cfg.Clean.Punctuation)
	assert.Equal(t, 3000, cfg.LLM.MaxTextChars)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "", cfg.Database.DSN)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OCR_LANGS", "eng+hin")
	t.Setenv("LLM_URL", "http://llm.local:11434/api/generate")
	t.Setenv("LLM_MODEL", "llama3")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("LLM_MAX_TEXT_CHARS", "1500")
	t.Setenv("IMAGE_MAX_DIMENSION", "1600")
	t.Setenv("OCR_PARALLEL", "true")
	t.Setenv("WATCH_DIRS", "/a, /b")

	cfg := LoadConfig()

	assert.Equal(t, []string{"eng", "hin"}, cfg.OCR.Languages)
	assert.Equal(t, "http://llm.local:11434/api/generate", cfg.LLM.URL)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1500, cfg.LLM.MaxTextChars)
	assert.Equal(t, 1600, cfg.Image.MaxDimension)
	assert.True(t, cfg.OCR.Parallel)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Watch.Dirs)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "soon")
	t.Setenv("IMAGE_MAX_DIMENSION", "big")

	cfg := LoadConfig()
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1200, cfg.Image.MaxDimension)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"backend", func(c *Config) { c.OCR.Backend = "cloud" }, "OCR_BACKEND"},
		{"llm url", func(c *Config) { c.LLM.URL = "localhost:11434" }, "LLM_URL"},
		{"max chars", func(c *Config) { c.LLM.MaxTextChars = 0 }, "LLM_MAX_TEXT_CHARS"},
		{"languages", func(c *Config) { c.OCR.Languages = nil }, "OCR_LANGS"},
		{"dimension", func(c *Config) { c.Image.MaxDimension = -1 }, "IMAGE_MAX_DIMENSION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsSetupError(err))
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Equal(t, CodeConfig, ErrorCode(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateSkipsLLMWhenDisabled(t *testing.T) {
	cfg := LoadConfig()
	cfg.LLM.Enabled = false
	cfg.LLM.URL = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IDX_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("IDX_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("IDX_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("IDX_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestSetupErrorClassification(t *testing.T) {
	cause := errors.New("exec: not found")
	err := fmt.Errorf("run: %w", NewSetupError(CodeOCRUnavailable, "tesseract missing", cause))

	assert.True(t, IsSetupError(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeOCRUnavailable, ErrorCode(err))

	assert.False(t, IsSetupError(errors.New("llm timeout")))
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}
