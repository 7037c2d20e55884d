package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteText renders the human-readable audit report.
func WriteText(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("EXTRACTION RESULTS\n")
	p("%s\n\n", strings.Repeat("=", 40))
	p("Source: %s\n", doc.Source)
	p("Run ID: %s\n\n", doc.RunID)

	if doc.Aadhaar == nil && doc.PAN == nil {
		p("No Aadhaar or PAN number found\n")
	}
	if doc.Aadhaar != nil {
		p("Aadhaar: %s (%s, %s)\n", doc.Aadhaar.Display, doc.Aadhaar.Confidence, doc.Aadhaar.Method)
	}
	if doc.PAN != nil {
		p("PAN: %s (%s, %s)\n", doc.PAN.Display, doc.PAN.Confidence, doc.PAN.Method)
	}

	d := doc.Details
	if d.DocumentType != "" {
		p("\nDocument Type: %s\n", d.DocumentType)
	}
	for _, kv := range [][2]string{
		{"Name", d.Name},
		{"Father's Name", d.FatherName},
		{"Date of Birth", d.DateOfBirth},
		{"Gender", d.Gender},
	} {
		if kv[1] != "" {
			p("%s: %s\n", kv[0], kv[1])
		}
	}

	if len(doc.Warnings) > 0 {
		p("\nWarnings:\n")
		for _, w := range doc.Warnings {
			p("- %s\n", w)
		}
	}
	if doc.Fallback.Invoked {
		outcome := "ok"
		if doc.Fallback.Failure != "" {
			outcome = doc.Fallback.Failure
		}
		p("\nLLM fallback: %s\n", outcome)
	}

	p("\nConfidence: %s\n", doc.Confidence)
	p("Processing Time: %.2fs\n", time.Duration(doc.ProcessingMS*int64(time.Millisecond)).Seconds())
	return bw.Flush()
}

// SaveText replaces path with the report via a temporary file and rename.
func SaveText(path string, doc Document) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod report: %w", err)
	}
	if err := WriteText(tmp, doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// SidecarPath returns the watch-mode report path for an image:
// "card.jpg" becomes "card.ids.txt".
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".ids.txt"
}
