package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

const runsTable = "extraction_runs"

var runColumns = []string{
	"id", "source", "content_hash", "status", "aadhaar", "pan", "confidence",
	"document_type", "fallback_invoked", "fallback_failure", "error_message",
	"report_json", "started_at_ms", "duration_ms",
}

// RunRecord is one stored extraction run.
type RunRecord struct {
	ID              uuid.UUID
	Source          string
	ContentHash     string
	Status          constants.RunStatus
	Aadhaar         string
	PAN             string
	Confidence      string
	DocumentType    string
	FallbackInvoked bool
	FallbackFailure string
	ErrorMessage    string
	ReportJSON      string
	StartedAt       time.Time
	Duration        time.Duration
}

// NewRunRecord builds a record from a rendered report. runErr marks the run
// FAILED; doc may then be mostly empty.
func NewRunRecord(doc report.Document, contentHash string, runErr error) *RunRecord {
	rec := &RunRecord{
		Source:          doc.Source,
		ContentHash:     contentHash,
		Status:          constants.RunStatusCompleted,
		Confidence:      doc.Confidence,
		DocumentType:    string(doc.Details.DocumentType),
		FallbackInvoked: doc.Fallback.Invoked,
		FallbackFailure: doc.Fallback.Failure,
		StartedAt:       doc.StartedAt,
		Duration:        time.Duration(doc.ProcessingMS) * time.Millisecond,
	}
	if id, err := uuid.Parse(doc.RunID); err == nil {
		rec.ID = id
	}
	if doc.Aadhaar != nil {
		rec.Aadhaar = doc.Aadhaar.Value
	}
	if doc.PAN != nil {
		rec.PAN = doc.PAN.Value
	}
	if runErr != nil {
		rec.Status = constants.RunStatusFailed
		rec.ErrorMessage = runErr.Error()
		return rec
	}
	if b, err := report.MarshalJSON(doc); err == nil {
		rec.ReportJSON = string(b)
	}
	return rec
}

// Document decodes the stored report. Runs stored without one (FAILED runs)
// yield a document built from the indexed columns.
func (r RunRecord) Document() report.Document {
	var doc report.Document
	if r.ReportJSON != "" && json.Unmarshal([]byte(r.ReportJSON), &doc) == nil {
		return doc
	}
	doc = report.Document{
		RunID:        r.ID.String(),
		Source:       r.Source,
		Confidence:   r.Confidence,
		Fallback:     report.Fallback{Invoked: r.FallbackInvoked, Failure: r.FallbackFailure},
		StartedAt:    r.StartedAt.UTC(),
		ProcessingMS: r.Duration.Milliseconds(),
	}
	if r.Aadhaar != "" {
		doc.Aadhaar = &report.Number{Value: r.Aadhaar, Display: r.Aadhaar, Confidence: r.Confidence}
	}
	if r.PAN != "" {
		doc.PAN = &report.Number{Value: r.PAN, Display: r.PAN, Confidence: r.Confidence}
	}
	return doc
}

// Err returns the stored failure of a FAILED run.
func (r RunRecord) Err() error {
	if r.Status != constants.RunStatusFailed {
		return nil
	}
	return errors.New(r.ErrorMessage)
}

type RunRepository interface {
	Save(ctx context.Context, rec *RunRecord) error
	Get(ctx context.Context, id uuid.UUID) (*RunRecord, error)
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
	// FindByHash returns the newest COMPLETED run for a content hash.
	FindByHash(ctx context.Context, hash string) (*RunRecord, error)
}

type runRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{db: db, logger: logger}
}

func (r *runRepo) Save(ctx context.Context, rec *RunRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Confidence == "" {
		rec.Confidence = "low"
	}
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(runsTable).
		Columns(runColumns...).
		Values(
			rec.ID.String(), rec.Source, rec.ContentHash, string(rec.Status), rec.Aadhaar, rec.PAN,
			rec.Confidence, rec.DocumentType, rec.FallbackInvoked, rec.FallbackFailure,
			rec.ErrorMessage, rec.ReportJSON, rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
		).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("run save failed", "run_id", rec.ID, "error", err)
		return fmt.Errorf("%w: save run: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("run saved", "run_id", rec.ID, "status", rec.Status, "source", rec.Source)
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	b := entsql.Dialect(r.db.Dialect)
	sel := b.Select(runColumns...).
		From(b.Table(runsTable)).
		Where(entsql.EQ("id", id.String()))
	return r.one(ctx, sel)
}

func (r *runRepo) FindByHash(ctx context.Context, hash string) (*RunRecord, error) {
	b := entsql.Dialect(r.db.Dialect)
	sel := b.Select(runColumns...).
		From(b.Table(runsTable)).
		Where(entsql.And(
			entsql.EQ("content_hash", hash),
			entsql.EQ("status", string(constants.RunStatusCompleted)),
		)).
		OrderBy(entsql.Desc("started_at_ms")).
		Limit(1)
	return r.one(ctx, sel)
}

func (r *runRepo) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	b := entsql.Dialect(r.db.Dialect)
	query, args := b.Select(runColumns...).
		From(b.Table(runsTable)).
		OrderBy(entsql.Desc("started_at_ms")).
		Limit(limit).
		Query()

	rows, err := r.db.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *runRepo) one(ctx context.Context, sel *entsql.Selector) (*RunRecord, error) {
	query, args := sel.Query()
	rec, err := scanRun(r.db.SQL.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var (
		rec       RunRecord
		id        string
		status    string
		startedMS int64
		durMS     int64
	)
	err := s.Scan(&id, &rec.Source, &rec.ContentHash, &status, &rec.Aadhaar, &rec.PAN,
		&rec.Confidence, &rec.DocumentType, &rec.FallbackInvoked, &rec.FallbackFailure,
		&rec.ErrorMessage, &rec.ReportJSON, &startedMS, &durMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan run: %v", common.ErrDatabase, err)
	}
	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: run id %q: %v", common.ErrDatabase, id, err)
	}
	rec.Status = constants.RunStatus(status)
	rec.StartedAt = time.UnixMilli(startedMS)
	rec.Duration = time.Duration(durMS) * time.Millisecond
	return &rec, nil
}
