package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
)

// LoggingInterceptor tags each call with a request id and logs its outcome.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		reqID := uuid.NewString()
		reqLogger := logger.With("req_id", reqID, "method", info.FullMethod)
		ctx = common.WithLogger(ctx, reqLogger)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if err != nil {
			reqLogger.Warn("grpc.request.failed", "code", code.String(), "duration_ms", time.Since(start).Milliseconds(), "error", err)
		} else {
			reqLogger.Info("grpc.request", "code", code.String(), "duration_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
