package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/idcard-extractor/constants"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	Seen   SeenFunc // nil disables deduplication
	logger *slog.Logger
}

func NewFSIngestor(seen SeenFunc, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Seen: seen, logger: logger}
}

// HashFile returns the hex SHA-256 of a file and its size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (Candidate, error) {
	out := Candidate{Path: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Warn("ingest.abs_path_error", "path", path, "error", err)
		return out, err
	}
	out.Path = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Debug("ingest.unsupported_extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	sum, size, err := HashFile(abs)
	if err != nil {
		i.logger.Warn("ingest.hash_error", "path", abs, "error", err)
		return out, err
	}
	out.HashHex = sum
	out.Size = size

	if i.Seen != nil {
		seen, err := i.Seen(ctx, sum)
		if err != nil {
			i.logger.Warn("ingest.dedup_lookup_error", "path", abs, "error", err)
			return out, err
		}
		out.Deduplicated = seen
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each image. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Candidate, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []Candidate
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Candidate{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		c, err := i.IngestPath(ctx, path)
		if err != nil {
			c.Err = err.Error()
			results = append(results, c)
			stats.Failed++
			return nil
		}

		results = append(results, c)
		stats.Succeeded++
		if c.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.scanned",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
