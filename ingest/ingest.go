// Package ingest drives the document pipeline: it persists uploads,
// routes them through the per-format handlers, serves page images on
// demand and registers composed documents as fresh uploads.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/convert"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/events"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/handler"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/organize"
)

var (
	ErrNotFound       = errors.New("ingest: document not found")
	ErrPageOutOfRange = errors.New("ingest: page number out of range")
	ErrUnsupported    = errors.New("ingest: unsupported file type")
)

type Config struct {
	Store       *document.Store
	Annotations *document.AnnotationStore
	Registry    *handler.Registry
	Converter   *convert.Converter
	Events      *events.Log
	Logger      *slog.Logger
	NewID       func() string
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
}

// Service owns the upload-to-document pipeline.
type Service struct {
	store       *document.Store
	annotations *document.AnnotationStore
	registry    *handler.Registry
	conv        *convert.Converter
	composer    *organize.Composer
	events      *events.Log
	logger      *slog.Logger
	newID       func() string
}

func New(cfg Config) *Service {
	cfg.defaults()
	s := &Service{
		store:       cfg.Store,
		annotations: cfg.Annotations,
		registry:    cfg.Registry,
		conv:        cfg.Converter,
		events:      cfg.Events,
		logger:      cfg.Logger,
		newID:       cfg.NewID,
	}
	s.composer = organize.New(organize.Config{Resolve: s.resolvePDF, Logger: cfg.Logger})
	return s
}

func (s *Service) Annotations() *document.AnnotationStore { return s.annotations }
func (s *Service) Dirs() convert.Dirs                     { return s.conv.Dirs() }

// Ingest saves an uploaded file under a fresh document id, runs it
// through its format handler and registers the resulting record.
// Unsupported extensions are rejected before anything touches disk.
func (s *Service) Ingest(ctx context.Context, originalName, contentType string, r io.Reader) (*document.Document, error) {
	if !filetype.Supported(originalName, contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(originalName))
	}

	docID := s.newID()
	path := filepath.Join(s.conv.Dirs().Uploads, docID+strings.ToLower(filepath.Ext(originalName)))
	if _, err := writeUpload(path, r); err != nil {
		return nil, fmt.Errorf("save upload %s: %w", originalName, err)
	}

	cat := filetype.Classify(originalName, contentType)
	s.events.Record(ctx, events.Event{Type: events.TypeUpload, DocumentID: docID, FileType: string(cat), Success: true})

	doc, err := s.process(ctx, docID, originalName, path, cat)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return doc, nil
}

// process runs the handler pipeline for a saved file and stores the
// resulting document record.
func (s *Service) process(ctx context.Context, docID, originalName, path string, cat filetype.Category) (*document.Document, error) {
	start := time.Now()
	h := s.registry.ForCategory(cat)
	res := h.Process(ctx, path, docID)
	md := h.ExtractMetadata(ctx, path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	now := time.Now()
	doc := &document.Document{
		ID:            docID,
		Name:          filepath.Base(path),
		OriginalName:  originalName,
		FileType:      string(cat),
		Size:          info.Size(),
		FilePath:      path,
		ConvertedPath: res.ConvertedPath,
		ThumbnailPath: res.ThumbnailPath,
		ExtractedPath: res.ExtractedPath,
		TotalPages:    res.TotalPages,
		IsPlainText:   res.IsPlainText,
		FileList:      res.FileList,
		Metadata:      md,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.store.Put(doc)

	if res.ConvertedPath != "" {
		s.events.Record(ctx, events.Event{
			Type: events.TypeConvert, DocumentID: docID, FileType: string(cat),
			Detail: fmt.Sprintf(`{"converted_path":%q}`, res.ConvertedPath), Success: true,
		})
	}
	s.events.Record(ctx, events.Event{
		Type: events.TypeProcess, DocumentID: docID, FileType: string(cat),
		Detail:  fmt.Sprintf(`{"pages":%d,"converted":%v}`, res.TotalPages, res.ConvertedPath != ""),
		Success: true, Duration: time.Since(start),
	})
	s.logger.Info("document processed",
		"doc_id", docID, "name", originalName, "category", cat,
		"pages", res.TotalPages, "elapsed", time.Since(start))
	return doc, nil
}

// Get returns a stored document record.
func (s *Service) Get(id string) (*document.Document, error) {
	doc := s.store.Get(id)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// PageImage returns the raster image for one page, generating and
// caching it on first request. Page numbers are 1-based.
func (s *Service) PageImage(ctx context.Context, docID string, page int) (string, error) {
	doc, err := s.Get(docID)
	if err != nil {
		return "", err
	}
	if page < 1 || page > doc.TotalPages {
		return "", fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, doc.TotalPages)
	}

	source := doc.FilePath
	if doc.ConvertedPath != "" {
		source = doc.ConvertedPath
	}
	start := time.Now()
	path, err := s.conv.PageImage(ctx, source, page, docID)
	s.events.Record(ctx, events.Event{
		Type: events.TypePageImage, DocumentID: docID, FileType: doc.FileType,
		Detail: fmt.Sprintf(`{"page":%d}`, page), Success: err == nil, Duration: time.Since(start),
	})
	if err != nil {
		return "", fmt.Errorf("page %d of %s: %w", page, docID, err)
	}
	return path, nil
}

// PreviewPath returns the file to serve as the document preview and
// whether it should be served as plain text.
func (s *Service) PreviewPath(docID string) (path string, plainText bool, err error) {
	doc, getErr := s.Get(docID)
	if getErr != nil {
		return "", false, getErr
	}
	if doc.IsPlainText {
		return doc.FilePath, true, nil
	}
	if doc.ConvertedPath != "" {
		return doc.ConvertedPath, false, nil
	}
	return doc.FilePath, false, nil
}

// Organize composes a new PDF from pages of existing documents and
// registers it as a fresh document run through the normal pipeline.
func (s *Service) Organize(ctx context.Context, steps []organize.Step) (*document.Document, error) {
	docID := s.newID()
	outPath := filepath.Join(s.conv.Dirs().Uploads, docID+".pdf")

	start := time.Now()
	err := s.composer.Compose(ctx, steps, outPath)
	s.events.Record(ctx, events.Event{
		Type: events.TypeOrganize, DocumentID: docID, FileType: string(filetype.CategoryPDF),
		Detail: fmt.Sprintf(`{"steps":%d}`, len(steps)), Success: err == nil, Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("organized_%s.pdf", time.Now().Format("20060102_150405"))
	doc, err := s.process(ctx, docID, name, outPath, filetype.CategoryPDF)
	if err != nil {
		os.Remove(outPath)
		return nil, err
	}
	return doc, nil
}

// resolvePDF maps a document id to its PDF content for composition.
// Non-PDF documents qualify only once a converted PDF exists.
func (s *Service) resolvePDF(docID string) (string, bool) {
	doc := s.store.Get(docID)
	if doc == nil {
		return "", false
	}
	if doc.FileType == string(filetype.CategoryPDF) {
		return doc.FilePath, true
	}
	if doc.ConvertedPath != "" {
		return doc.ConvertedPath, true
	}
	return "", false
}

func writeUpload(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}
