// Package convert drives the external converter tool chain: anything-to-PDF
// conversion, thumbnail generation, page rasterization, and PDF page
// counting. All derived artifacts are keyed by document id and cached on
// disk, so repeated calls for the same id never redo tool work.
//
// Tool failures (missing binary, timeout, nonzero exit, reported success
// without an output file) degrade to ErrUnavailable; they never panic and
// never leave a returned path pointing at a partial file.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/runcmd"
)

// ErrUnavailable signals that a derived artifact could not be produced.
// Callers treat it as "feature not available", not as a fault.
var ErrUnavailable = errors.New("conversion unavailable")

// Rasterization widths. Thumbnails are previews; page images are the
// reading view and get more pixels.
const (
	ThumbnailWidth = 400
	PageImageWidth = 1200
)

// Dirs is the on-disk layout for originals and derived artifacts.
type Dirs struct {
	Uploads    string `yaml:"uploads"`
	Converted  string `yaml:"converted"`
	Thumbnails string `yaml:"thumbnails"`
}

func (d *Dirs) defaults() {
	if d.Uploads == "" {
		d.Uploads = "uploads"
	}
	if d.Converted == "" {
		d.Converted = "converted"
	}
	if d.Thumbnails == "" {
		d.Thumbnails = "thumbnails"
	}
}

// Ensure creates the three root directories plus the page-image subtree.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Uploads, d.Converted, d.Thumbnails, filepath.Join(d.Converted, "pages")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

// ConvertedPDF is the canonical converted-PDF path for a document.
func (d Dirs) ConvertedPDF(docID string) string {
	return filepath.Join(d.Converted, docID, docID+".pdf")
}

// ThumbnailPath is the canonical thumbnail path for a document.
func (d Dirs) ThumbnailPath(docID string) string {
	return filepath.Join(d.Thumbnails, docID+"_thumb.png")
}

// PageImagePath is the canonical raster path for one page of a document.
func (d Dirs) PageImagePath(docID string, page int) string {
	return filepath.Join(d.Converted, "pages", docID, fmt.Sprintf("page_%d.png", page))
}

// Config configures a Converter.
type Config struct {
	Dirs Dirs

	// Run executes external tools. Tests inject a fake to count and stub
	// tool invocations. Defaults to runcmd.Run.
	Run runcmd.Runner

	// ConvertTimeout bounds full conversions; ProbeTimeout bounds quick
	// metadata lookups like pdfinfo.
	ConvertTimeout time.Duration
	ProbeTimeout   time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	c.Dirs.defaults()
	if c.Run == nil {
		c.Run = runcmd.Run
	}
	if c.ConvertTimeout <= 0 {
		c.ConvertTimeout = runcmd.DefaultTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = runcmd.ProbeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Converter orchestrates external conversions with on-disk caching.
type Converter struct {
	dirs           Dirs
	run            runcmd.Runner
	convertTimeout time.Duration
	probeTimeout   time.Duration
	logger         *slog.Logger
}

// New creates a Converter with the given configuration.
func New(cfg Config) *Converter {
	cfg.defaults()
	return &Converter{
		dirs:           cfg.Dirs,
		run:            cfg.Run,
		convertTimeout: cfg.ConvertTimeout,
		probeTimeout:   cfg.ProbeTimeout,
		logger:         cfg.Logger,
	}
}

// Dirs returns the converter's directory layout.
func (c *Converter) Dirs() Dirs { return c.dirs }

// ToPDF converts path to {docID}.pdf under the conversion output directory.
// Idempotent: an existing output is returned without invoking any tool.
//
// The office-suite and TeX converters name their output after the input
// stem, so a successful run is followed by locating the actual output file
// and renaming it to the canonical name. A zero exit without an output file
// is a failure.
func (c *Converter) ToPDF(ctx context.Context, path, docID string) (string, error) {
	outputDir := filepath.Join(c.dirs.Converted, docID)
	finalPDF := filepath.Join(outputDir, docID+".pdf")
	if fileExists(finalPDF) {
		return finalPDF, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", outputDir, err)
	}

	ext := filetype.Ext(path)
	var name string
	var args []string
	switch {
	case filetype.IsMarkup(ext):
		name = "pandoc"
		args = []string{path, "-o", finalPDF}
	case filetype.IsLaTeX(ext):
		name = "pdflatex"
		args = []string{"-output-directory", outputDir, "-jobname", docID, path}
	default:
		// Office documents, and the universal fallback for everything else.
		name = "libreoffice"
		args = []string{"--headless", "--convert-to", "pdf", "--outdir", outputDir, path}
	}

	out := c.run(ctx, c.convertTimeout, name, args...)
	if out.Failed() {
		c.logger.Debug("pdf conversion failed",
			"doc_id", docID, "tool", name, "exit", out.ExitCode, "stderr", trim(out.Stderr))
		return "", fmt.Errorf("%w: %s exited %d", ErrUnavailable, name, out.ExitCode)
	}

	if fileExists(finalPDF) {
		return finalPDF, nil
	}
	// Tools that name output after the input stem.
	stemPDF := filepath.Join(outputDir, stem(path)+".pdf")
	if fileExists(stemPDF) {
		if err := os.Rename(stemPDF, finalPDF); err != nil {
			return "", fmt.Errorf("rename converter output: %w", err)
		}
		return finalPDF, nil
	}
	c.logger.Warn("converter reported success but produced no output",
		"doc_id", docID, "tool", name)
	return "", fmt.Errorf("%w: %s produced no output file", ErrUnavailable, name)
}

// PageCount returns the page count of a PDF via the pdfinfo tool. Page count
// is advisory: any failure (missing file, tool failure, unparsable output)
// yields 1, never 0 and never an error.
func (c *Converter) PageCount(ctx context.Context, pdfPath string) int {
	if !fileExists(pdfPath) {
		return 1
	}
	out := c.run(ctx, c.probeTimeout, "pdfinfo", pdfPath)
	if out.Failed() {
		return 1
	}
	for _, line := range strings.Split(out.Stdout, "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil || n < 1 {
			return 1
		}
		return n
	}
	return 1
}

// EstimatePages guesses a page count for documents that have not been
// converted: office files by size, plain text by line count, everything
// else 1.
func (c *Converter) EstimatePages(path string) int {
	ext := filetype.Ext(path)
	switch {
	case filetype.IsOffice(ext):
		info, err := os.Stat(path)
		if err != nil {
			return 1
		}
		pages := int(info.Size() / 1024 / 20)
		if pages < 1 {
			pages = 1
		}
		if pages > 200 {
			pages = 200
		}
		return pages
	case filetype.IsPlainText(ext):
		data, err := os.ReadFile(path)
		if err != nil {
			return 1
		}
		pages := strings.Count(string(data), "\n") / 50
		if pages < 1 {
			pages = 1
		}
		return pages
	default:
		return 1
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func trim(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
