package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/idcard-extractor/internal/app"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/async"
	"github.com/joseph-ayodele/idcard-extractor/internal/ingest"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
	"github.com/joseph-ayodele/idcard-extractor/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	if err := common.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.Build(ctx, cfg, logger, app.Options{Registerer: reg})
	if err != nil {
		logger.Error("startup failed", "code", common.ErrorCode(err), "error", err)
		return 1
	}
	defer a.Close()
	if err := a.Check(ctx); err != nil {
		logger.Error("startup check failed", "code", common.ErrorCode(err), "error", err)
		return 1
	}

	// gRPC
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return 1
	}
	svc := server.NewService(a, a, a.Runs, server.Config{AllowPaths: cfg.Server.AllowPaths}, logger)
	grpcServer, healthServer := server.NewGRPCServer(svc, logger)
	go func() {
		logger.Info("idextractd grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	// metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Check(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	httpServer := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("idextractd metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics serve error", "error", err)
		}
	}()

	// watch mode
	var queue *async.ProcessorQueue
	if len(cfg.Watch.Dirs) > 0 {
		queue = async.NewProcessorQueue(a, logger,
			async.WithWorkers(cfg.Queue.Workers),
			async.WithQueueSize(cfg.Queue.Size),
			async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
			async.WithResultHandler(func(ctx context.Context, job async.Job, result core.Run, runErr error) {
				doc := report.FromRun(result)
				if runErr != nil {
					doc.Source = job.Path
				}
				_ = a.SaveRun(ctx, doc, job.ContentHash, runErr)
				if runErr != nil {
					return
				}
				if err := report.SaveText(report.SidecarPath(job.Path), doc); err != nil {
					logger.Warn("watch.report.write_failed", "path", job.Path, "error", err)
				}
			}),
		)
		if err := watch(ctx, cfg, a, queue, logger); err != nil {
			logger.Error("watcher start failed", "dirs", cfg.Watch.Dirs, "error", err)
			return 1
		}
	}

	<-ctx.Done()
	logger.Info("idextractd shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	return 0
}

// watch feeds new images under WATCH_DIRS into the queue, skipping content
// that already has a completed run.
func watch(ctx context.Context, cfg *common.Config, a *app.App, queue *async.ProcessorQueue, logger *slog.Logger) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.Watch.Dirs,
		InitialScan: true,
		Debounce:    cfg.Watch.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	go func() {
		for err := range errs {
			logger.Warn("watch.error", "error", err)
		}
	}()
	go func() {
		for path := range events {
			hash, _, err := ingest.HashFile(path)
			if err != nil {
				logger.Warn("watch.hash_failed", "path", path, "error", err)
				continue
			}
			if seen, err := a.Seen(ctx, hash); err == nil && seen {
				logger.Debug("watch.skip.duplicate", "path", path, "hash", hash)
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Path: path, ContentHash: hash}); err != nil {
				logger.Warn("watch.enqueue_failed", "path", path, "error", err)
			}
		}
	}()
	logger.Info("watching directories", "dirs", cfg.Watch.Dirs)
	return nil
}
