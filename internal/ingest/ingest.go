package ingest

import (
	"context"
)

// Candidate is one image found by a scan.
type Candidate struct {
	Path         string
	HashHex      string
	Size         int64
	Deduplicated bool // an earlier completed run has the same content hash
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// SeenFunc reports whether content with this hash was already extracted.
type SeenFunc func(ctx context.Context, hashHex string) (bool, error)

// Ingestor is the behavior batch mode depends on.
type Ingestor interface {
	IngestPath(ctx context.Context, path string) (Candidate, error)
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Candidate, DirStats, error)
}
