package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/idcard-extractor/internal/app"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/core/async"
	"github.com/joseph-ayodele/idcard-extractor/internal/export"
	"github.com/joseph-ayodele/idcard-extractor/internal/ingest"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	dir := flag.String("dir", "", "directory of card images (required)")
	xlsxPath := flag.String("xlsx", "extractions.xlsx", "workbook to write")
	workers := flag.Int("workers", 0, "concurrent extractions (default WORKERS)")
	force := flag.Bool("force", false, "process images already recorded in the store")
	sidecars := flag.Bool("reports", false, "write <image>.ids.txt next to each image")
	includeHidden := flag.Bool("include-hidden", false, "descend into hidden files and directories")
	noLLM := flag.Bool("no-llm", false, "disable the LLM fallback")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: idextract-batch -dir <images> [-xlsx out.xlsx] [-workers N] [-force] [-reports]")
		flag.PrintDefaults()
		return 2
	}

	if err := common.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Queue.Workers = *workers
	}
	logger := common.NewLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{DisableLLM: *noLLM})
	if err != nil {
		logger.Error("startup failed", "code", common.ErrorCode(err), "error", err)
		return 1
	}
	defer a.Close()
	if err := a.Check(ctx); err != nil {
		logger.Error("ocr engine unavailable", "error", err)
		return 1
	}

	var seen ingest.SeenFunc
	if !*force && a.Runs != nil {
		seen = a.Seen
	}
	candidates, stats, err := ingest.NewFSIngestor(seen, logger).IngestDirectory(ctx, *dir, !*includeHidden)
	if err != nil {
		logger.Error("scan failed", "dir", *dir, "error", err)
		return 1
	}

	start := time.Now()
	var (
		mu   sync.Mutex
		rows = map[string]export.Row{}
	)
	handler := func(ctx context.Context, job async.Job, result core.Run, runErr error) {
		doc := report.FromRun(result)
		if runErr != nil {
			doc.Source = job.Path
		}
		_ = a.SaveRun(ctx, doc, job.ContentHash, runErr)
		if runErr == nil && *sidecars {
			if err := report.SaveText(report.SidecarPath(job.Path), doc); err != nil {
				logger.Warn("batch.report.write_failed", "path", job.Path, "error", err)
			}
		}
		mu.Lock()
		rows[job.Path] = export.Row{Doc: doc, Err: runErr}
		mu.Unlock()
	}
	queue := async.NewProcessorQueue(a, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
		async.WithResultHandler(handler),
	)

	var ordered []string
	for _, c := range candidates {
		if c.Err != "" {
			mu.Lock()
			rows[c.Path] = export.Row{Doc: report.Document{Source: c.Path}, Err: errors.New(c.Err)}
			mu.Unlock()
			ordered = append(ordered, c.Path)
			continue
		}
		if c.Deduplicated {
			logger.Info("batch.skip.duplicate", "path", c.Path, "hash", c.HashHex)
			continue
		}
		if err := queue.Enqueue(ctx, async.Job{Path: c.Path, ContentHash: c.HashHex, Force: *force}); err != nil {
			logger.Warn("batch.enqueue_failed", "path", c.Path, "error", err)
			break
		}
		ordered = append(ordered, c.Path)
	}
	queue.Shutdown(ctx)

	mu.Lock()
	out := make([]export.Row, 0, len(ordered))
	failed := 0
	for _, p := range ordered {
		row, ok := rows[p]
		if !ok {
			row = export.Row{Doc: report.Document{Source: p}, Err: context.Canceled}
		}
		if row.Err != nil {
			failed++
		}
		out = append(out, row)
	}
	mu.Unlock()

	xlsx, err := export.NewService(logger).RunsXLSX(out)
	if err != nil {
		logger.Error("export failed", "error", err)
		return 1
	}
	if err := os.WriteFile(*xlsxPath, xlsx, 0o644); err != nil {
		logger.Error("writing workbook failed", "path", *xlsxPath, "error", err)
		return 1
	}

	logger.Info("batch.completed",
		"dir", *dir,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"processed", len(out),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"xlsx", *xlsxPath,
	)
	fmt.Printf("Processed %d images (%d failed, %d skipped as duplicates). Workbook: %s\n",
		len(out), failed, stats.Deduplicated, *xlsxPath)
	return 0
}
