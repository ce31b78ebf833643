// Package handler implements the per-category processing contract: every
// format category gets one handler exposing the same four operations.
//
// The error policy is uniform: expected failures (missing tool, malformed
// file, timeout) degrade to the absent value for that field (an empty path,
// a base Metadata) and never surface as errors. The registry is an
// immutable table built once at startup and passed explicitly to whoever
// composes the pipeline.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/convert"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/runcmd"
)

// ProcessResult is the outcome of a handler's end-to-end derivation.
// TotalPages is always at least 1; empty paths mean "not available".
type ProcessResult struct {
	TotalPages    int
	ConvertedPath string
	ThumbnailPath string
	IsPlainText   bool
	ExtractedPath string
	FileList      []string
}

func (r ProcessResult) normalized() ProcessResult {
	if r.TotalPages < 1 {
		r.TotalPages = 1
	}
	return r
}

// Handler is the capability contract shared by every format category.
type Handler interface {
	// Process runs the category's full derivation: page count, optional
	// conversion, optional thumbnail.
	Process(ctx context.Context, path, docID string) ProcessResult

	// ConvertToPDF returns the path of a PDF rendition, or "" when the
	// category has no meaningful PDF representation.
	ConvertToPDF(ctx context.Context, path, docID string) string

	// ExtractMetadata always succeeds, returning at least the
	// filesystem-derived fields when parsing fails.
	ExtractMetadata(ctx context.Context, path string) document.Metadata

	// Thumbnail returns the path of a preview image, or "" on failure or
	// when not applicable.
	Thumbnail(ctx context.Context, path, docID string) string
}

// Config configures a Registry.
type Config struct {
	Converter *convert.Converter

	// Run executes metadata probe tools (ffprobe, unrar, 7z). Defaults to
	// runcmd.Run; tests inject a fake.
	Run runcmd.Runner

	ProbeTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Converter == nil {
		c.Converter = convert.New(convert.Config{})
	}
	if c.Run == nil {
		c.Run = runcmd.Run
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = runcmd.ProbeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Registry maps each format category to its handler. It is immutable after
// construction; handler instances are stateless and safe for concurrent use.
type Registry struct {
	handlers map[filetype.Category]Handler
	fallback Handler
}

// NewRegistry builds the full category table.
func NewRegistry(cfg Config) *Registry {
	cfg.defaults()
	b := base{
		conv:         cfg.Converter,
		run:          cfg.Run,
		probeTimeout: cfg.ProbeTimeout,
		logger:       cfg.Logger,
	}
	fallback := &FallbackHandler{base: b}
	return &Registry{
		fallback: fallback,
		handlers: map[filetype.Category]Handler{
			filetype.CategoryPDF:     &PDFHandler{base: b},
			filetype.CategoryOffice:  &OfficeHandler{base: b},
			filetype.CategoryText:    &TextHandler{base: b},
			filetype.CategoryImage:   &ImageHandler{base: b},
			filetype.CategoryAudio:   &AudioHandler{base: b},
			filetype.CategoryVideo:   &VideoHandler{base: b},
			filetype.CategoryModel3D: &Model3DHandler{base: b},
			filetype.CategoryFont:    &FontHandler{base: b},
			filetype.CategoryEmail:   &EmailHandler{base: b},
			filetype.CategoryArchive: &ArchiveHandler{base: b},
			filetype.CategoryMisc:    &MiscHandler{base: b},
			filetype.CategoryDefault: fallback,
		},
	}
}

// ForCategory returns the handler for a category, falling back to the
// default handler for anything unmapped.
func (r *Registry) ForCategory(cat filetype.Category) Handler {
	if h, ok := r.handlers[cat]; ok {
		return h
	}
	return r.fallback
}

// ForFile classifies the file and returns the matching handler.
func (r *Registry) ForFile(filename, contentType string) Handler {
	return r.ForCategory(filetype.Classify(filename, contentType))
}

// base carries the collaborators shared by all handlers.
type base struct {
	conv         *convert.Converter
	run          runcmd.Runner
	probeTimeout time.Duration
	logger       *slog.Logger
}

// thumbnail degrades conversion errors to "".
func (b base) thumbnail(ctx context.Context, path, docID string) string {
	thumb, err := b.conv.Thumbnail(ctx, path, docID)
	if err != nil {
		b.logger.Debug("thumbnail unavailable", "doc_id", docID, "error", err)
		return ""
	}
	return thumb
}

// convertPDF degrades conversion errors to "".
func (b base) convertPDF(ctx context.Context, path, docID string) string {
	pdf, err := b.conv.ToPDF(ctx, path, docID)
	if err != nil {
		b.logger.Debug("pdf conversion unavailable", "doc_id", docID, "error", err)
		return ""
	}
	return pdf
}
