package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// GuardConfig throttles and trips a Generator. Zero RPS disables the limiter;
// zero Failures disables the breaker.
type GuardConfig struct {
	Name     string
	RPS      float64
	Burst    int
	Failures uint32
	Cooldown time.Duration
}

// Guard wraps a Generator with a rate limiter and a circuit breaker. A reply
// carrying a Failure counts against the breaker.
type Guard struct {
	next    Generator
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[Reply]
	logger  *slog.Logger
}

var errFailedReply = errors.New("generation failed")

func NewGuard(next Generator, cfg GuardConfig, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	g := &Guard{next: next, logger: logger}

	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	if cfg.Failures > 0 {
		failures := cfg.Failures
		g.breaker = gobreaker.NewCircuitBreaker[Reply](gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("llm.breaker.state", "name", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return g
}

func (g *Guard) Generate(ctx context.Context, prompt string) Reply {
	start := time.Now()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Reply{Failure: ClassifyError(ctxErr(ctx, err)), Err: err, Duration: time.Since(start)}
		}
	}
	if g.breaker == nil {
		return g.next.Generate(ctx, prompt)
	}

	reply, err := g.breaker.Execute(func() (Reply, error) {
		r := g.next.Generate(ctx, prompt)
		if !r.OK() {
			return r, fmt.Errorf("%w: %s", errFailedReply, r.Failure)
		}
		return r, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.logger.Warn("llm.breaker.rejected", "error", err)
		return Reply{Failure: FailureCircuitOpen, Err: err, Duration: time.Since(start)}
	}
	return reply
}

// State reports the breaker state, or "disabled".
func (g *Guard) State() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}

// ctxErr prefers the context's own error so the limiter's "would exceed
// context deadline" is classified as a timeout.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if _, ok := ctx.Deadline(); ok {
		return context.DeadlineExceeded
	}
	return err
}
