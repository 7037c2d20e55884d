package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/idcard-extractor/internal/app"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/ingest"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	imagePath := flag.String("image", "", "path to the PAN or Aadhaar card image (required)")
	outPath := flag.String("out", "", "text report path (default REPORT_PATH or extracted_ids.txt)")
	asJSON := flag.Bool("json", false, "print the JSON document instead of the text report")
	noLLM := flag.Bool("no-llm", false, "disable the LLM fallback")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: idextract -image <path> [-out report.txt] [-json] [-no-llm]")
		flag.PrintDefaults()
		return 2
	}

	if err := common.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	if *outPath == "" {
		*outPath = cfg.Report.Path
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{DisableLLM: *noLLM})
	if err != nil {
		logger.Error("startup failed", "code", common.ErrorCode(err), "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()

	hash, _, _ := ingest.HashFile(*imagePath)
	result, err := a.ProcessPath(ctx, *imagePath)
	if err != nil {
		doc := report.FromRun(result)
		doc.Source = *imagePath
		_ = a.SaveRun(ctx, doc, hash, err)
		logger.Error("extraction failed", "image", *imagePath, "code", common.ErrorCode(err), "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	doc := report.FromRun(result)
	_ = a.SaveRun(ctx, doc, hash, nil)

	if err := report.SaveText(*outPath, doc); err != nil {
		logger.Error("writing report failed", "path", *outPath, "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *asJSON {
		b, err := report.MarshalJSON(doc)
		if err != nil {
			logger.Error("encoding report failed", "error", err)
			return 1
		}
		fmt.Println(string(b))
	} else if err := report.WriteText(os.Stdout, doc); err != nil {
		return 1
	}
	fmt.Fprintf(os.Stderr, "Results saved to %s\n", *outPath)
	return 0
}
