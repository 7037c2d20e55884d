package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-extractor/internal/llm"
)

type options struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate implements llm.Generator with a single non-streaming request.
// An absent or empty response field is an empty answer, not a failure.
func (c *Client) Generate(ctx context.Context, prompt string) llm.Reply {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
	)

	body := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: options{
			Temperature: c.cfg.Temperature,
			NumCtx:      c.cfg.NumCtx,
			NumPredict:  c.cfg.NumPredict,
			TopP:        c.cfg.TopP,
		},
	}

	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.URL, body, nil, c.logger)
	if err != nil {
		kind := llm.ClassifyError(err)
		c.logger.Error("llm.generate.http_error",
			"req_id", rid, "error", err, "status", status, "failure", string(kind),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Reply{Failure: kind, Err: err, Duration: time.Since(start)}
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error("llm.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Reply{Failure: llm.FailureDecode, Err: fmt.Errorf("decode ollama response: %w", err), Duration: time.Since(start)}
	}

	c.logger.Info("llm.generate.ok",
		"req_id", rid,
		"response_len", len(out.Response),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Reply{Text: out.Response, Duration: time.Since(start)}
}

// Check performs a tiny generation so startup can report a dead endpoint.
func (c *Client) Check(ctx context.Context) error {
	r := c.Generate(ctx, "ping")
	if !r.OK() {
		return fmt.Errorf("ollama %s: %w", r.Failure, r.Err)
	}
	return nil
}
