package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/core"
	"github.com/joseph-ayodele/idcard-extractor/internal/export"
	"github.com/joseph-ayodele/idcard-extractor/internal/ingest"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
	"github.com/joseph-ayodele/idcard-extractor/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// Pipeline runs one extraction.
type Pipeline interface {
	ProcessPath(ctx context.Context, path string) (core.Run, error)
	ProcessBytes(ctx context.Context, data []byte, source string) (core.Run, error)
}

// RunSaver persists finished runs.
type RunSaver interface {
	SaveRun(ctx context.Context, doc report.Document, contentHash string, runErr error) error
}

type Config struct {
	// AllowPaths lets Extract read server-side files named by "path".
	AllowPaths bool
	// MaxImageBytes bounds decoded uploads; 0 means 16 MiB.
	MaxImageBytes int
}

// Service implements ExtractorServer.
//
// Extract takes {"image": base64, "source": label} or, when AllowPaths is
// set, {"path": file}. It answers with the JSON report plus "text", the
// plain-text rendering. ListRuns and ExportRuns take an optional "limit" and
// need a run store.
type Service struct {
	pipeline Pipeline
	saver    RunSaver
	runs     repository.RunRepository
	exporter *export.Service
	cfg      Config
	logger   *slog.Logger
}

// NewService builds the service. saver and runs may be nil.
func NewService(pipeline Pipeline, saver RunSaver, runs repository.RunRepository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 16 << 20
	}
	return &Service{
		pipeline: pipeline,
		saver:    saver,
		runs:     runs,
		exporter: export.NewService(logger),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Service) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	logger := common.LoggerFromContext(ctx, s.logger)
	fields := req.GetFields()
	image := strings.TrimSpace(fields["image"].GetStringValue())
	path := strings.TrimSpace(fields["path"].GetStringValue())
	source := strings.TrimSpace(fields["source"].GetStringValue())

	var (
		run  core.Run
		hash string
		err  error
	)
	switch {
	case image != "" && path != "":
		return nil, common.InvalidArgumentError("set either image or path, not both")
	case image != "":
		data, decErr := base64.StdEncoding.DecodeString(image)
		if decErr != nil {
			return nil, common.InvalidArgumentErrorf("image must be base64: %v", decErr)
		}
		if len(data) > s.cfg.MaxImageBytes {
			return nil, status.Errorf(codes.ResourceExhausted, "image exceeds %d bytes", s.cfg.MaxImageBytes)
		}
		if source == "" {
			source = "upload"
		}
		sum := sha256.Sum256(data)
		hash = hex.EncodeToString(sum[:])
		run, err = s.pipeline.ProcessBytes(ctx, data, source)
	case path != "":
		if !s.cfg.AllowPaths {
			return nil, status.Error(codes.PermissionDenied, "path extraction is disabled")
		}
		source = path
		hash, _, _ = ingest.HashFile(path)
		run, err = s.pipeline.ProcessPath(ctx, path)
	default:
		return nil, common.InvalidArgumentError("image or path is required")
	}

	doc := report.FromRun(run)
	if err != nil {
		doc.Source = source
		s.save(ctx, logger, doc, hash, err)
		logger.Warn("extract.failed", "source", source, "code", common.ErrorCode(err), "error", err)
		return nil, common.ToStatus(err)
	}
	s.save(ctx, logger, doc, hash, nil)

	out, err := documentStruct(doc)
	if err != nil {
		logger.Error("extract.encode_failed", "run_id", doc.RunID, "error", err)
		return nil, common.InternalError("encode report")
	}
	var text bytes.Buffer
	if err := report.WriteText(&text, doc); err == nil {
		out.Fields["text"] = structpb.NewStringValue(text.String())
	}
	logger.Info("extract.completed", "run_id", doc.RunID, "source", source, "confidence", doc.Confidence)
	return out, nil
}

func (s *Service) save(ctx context.Context, logger *slog.Logger, doc report.Document, hash string, runErr error) {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveRun(ctx, doc, hash, runErr); err != nil {
		logger.Warn("extract.save_failed", "run_id", doc.RunID, "error", err)
	}
}

func (s *Service) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recs, err := s.recent(ctx, req)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(recs))
	for _, r := range recs {
		items = append(items, map[string]any{
			"id":               r.ID.String(),
			"source":           r.Source,
			"status":           string(r.Status),
			"aadhaar":          r.Aadhaar,
			"pan":              r.PAN,
			"confidence":       r.Confidence,
			"document_type":    r.DocumentType,
			"fallback_invoked": r.FallbackInvoked,
			"error":            r.ErrorMessage,
			"started_at":       r.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			"duration_ms":      float64(r.Duration.Milliseconds()),
		})
	}
	out, err := structpb.NewStruct(map[string]any{"runs": items})
	if err != nil {
		return nil, common.InternalErrorf("encode runs: %v", err)
	}
	return out, nil
}

func (s *Service) ExportRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recs, err := s.recent(ctx, req)
	if err != nil {
		return nil, err
	}
	rows := make([]export.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, export.Row{Doc: r.Document(), Err: r.Err()})
	}
	xlsx, err := s.exporter.RunsXLSX(rows)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		return nil, common.InternalError(err.Error())
	}
	out, err := structpb.NewStruct(map[string]any{
		"xlsx": base64.StdEncoding.EncodeToString(xlsx),
		"rows": float64(len(rows)),
	})
	if err != nil {
		return nil, common.InternalErrorf("encode export: %v", err)
	}
	return out, nil
}

func (s *Service) recent(ctx context.Context, req *structpb.Struct) ([]repository.RunRecord, error) {
	if s.runs == nil {
		return nil, status.Error(codes.FailedPrecondition, "run store is not configured")
	}
	limit := defaultListLimit
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
		if err := common.ValidateAndReturnError(common.NewValidator().
			Field("limit", limit, common.Positive, common.AtMost(maxListLimit))); err != nil {
			return nil, err
		}
	}
	recs, err := s.runs.Recent(ctx, limit)
	if err != nil {
		s.logger.Error("runs.list.failed", "error", err)
		return nil, common.InternalError("list runs failed")
	}
	return recs, nil
}

// documentStruct converts the schema-checked JSON report into a Struct.
func documentStruct(doc report.Document) (*structpb.Struct, error) {
	b, err := report.MarshalJSON(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

var _ ExtractorServer = (*Service)(nil)
