package llm

import (
	"context"
	"time"
)

// FailureKind classifies a generation that produced no usable text.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureTimeout     FailureKind = "timeout"
	FailureCanceled    FailureKind = "canceled"
	FailureTransport   FailureKind = "transport"
	FailureHTTPStatus  FailureKind = "http_status"
	FailureDecode      FailureKind = "decode"
	FailureCircuitOpen FailureKind = "circuit_open"
	FailurePrompt      FailureKind = "prompt"
)

// Reply is the typed outcome of one generation request. Exactly one of Text
// (possibly empty) or Failure is meaningful.
type Reply struct {
	Text     string
	Failure  FailureKind
	Err      error
	Duration time.Duration
}

func (r Reply) OK() bool { return r.Failure == FailureNone }

// Generator sends a prompt to a text-generation endpoint. Implementations
// never return transport errors any other way than through Reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) Reply
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) Reply

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) Reply { return f(ctx, prompt) }
