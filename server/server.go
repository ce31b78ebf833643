// Package server exposes the document pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/events"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/ingest"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/organize"
)

type Config struct {
	Ingest         *ingest.Service
	Events         *events.Log
	Logger         *slog.Logger
	MaxUploadBytes int64
	CORSOrigins    []string
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 50 << 20
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

// Service is the HTTP layer over the ingest pipeline.
type Service struct {
	ingest         *ingest.Service
	events         *events.Log
	logger         *slog.Logger
	maxUploadBytes int64
	corsOrigins    []string
}

func New(cfg Config) *Service {
	cfg.defaults()
	return &Service{
		ingest:         cfg.Ingest,
		events:         cfg.Events,
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		corsOrigins:    cfg.CORSOrigins,
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	r.Use(c.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Route("/{documentID}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Get("/preview", s.handlePreview)
				r.Get("/page/{pageNumber}", s.handlePageImage)
				r.Get("/thumbnail", s.handleThumbnail)
				r.Get("/download", s.handleDownload)
				r.Get("/metadata", s.handleMetadata)
				r.Get("/events", s.handleEvents)
				r.Post("/organize", s.handleOrganize)
				r.Get("/annotations", s.handleListAnnotations)
				r.Post("/annotations", s.handleCreateAnnotation)
			})
		})

		r.Route("/annotations/{annotationID}", func(r chi.Router) {
			r.Put("/", s.handleUpdateAnnotation)
			r.Delete("/", s.handleDeleteAnnotation)
		})
	})

	// Raw artifact directories, for clients that address derived files by
	// the paths embedded in document records.
	dirs := s.ingest.Dirs()
	mountDir(r, "/uploads", dirs.Uploads)
	mountDir(r, "/converted", dirs.Converted)
	mountDir(r, "/thumbnails", dirs.Thumbnails)

	return r
}

func mountDir(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", fs.ServeHTTP)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	doc, err := s.ingest.Ingest(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupported) {
			http.Error(w, fmt.Sprintf("Unsupported file type: %s (%s)", header.Filename, header.Header.Get("Content-Type")), http.StatusUnsupportedMediaType)
			return
		}
		s.logger.Error("upload failed", "name", header.Filename, "error", err)
		http.Error(w, "Upload failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Service) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Service) handleMetadata(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.Metadata)
}

func (s *Service) handlePreview(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")
	path, plain, err := s.ingest.PreviewPath(docID)
	if err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if plain {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	http.ServeFile(w, r, path)
}

func (s *Service) handlePageImage(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")
	page, err := strconv.Atoi(chi.URLParam(r, "pageNumber"))
	if err != nil {
		http.Error(w, "Invalid page number", http.StatusBadRequest)
		return
	}
	path, err := s.ingest.PageImage(r.Context(), docID, page)
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		http.Error(w, "Document not found", http.StatusNotFound)
	case errors.Is(err, ingest.ErrPageOutOfRange):
		http.Error(w, "Page number out of range", http.StatusBadRequest)
	case err != nil:
		http.Error(w, "Page image unavailable", http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, path)
	}
}

func (s *Service) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	if doc.ThumbnailPath == "" {
		http.Error(w, "No thumbnail available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, doc.ThumbnailPath)
}

func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	http.ServeFile(w, r, doc.FilePath)
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	list, err := s.events.Recent(r.Context(), doc.ID, 50)
	if err != nil {
		s.logger.Error("event query failed", "doc_id", doc.ID, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	writeJSON(w, http.StatusOK, list)
}

// organizeRequest is the body for POST /api/documents/{id}/organize.
// The path document id is the composition context; each step names
// its own source document.
type organizeRequest struct {
	Pages []organizeStep `json:"pages"`
}

type organizeStep struct {
	SourceDocumentID string `json:"sourceDocumentId"`
	SourcePageIndex  int    `json:"sourcePageIndex"`
	Rotation         int    `json:"rotation"`
}

func (req organizeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Pages, validation.Required, validation.Length(1, 500)),
	)
}

func (st organizeStep) Validate() error {
	return validation.ValidateStruct(&st,
		validation.Field(&st.SourceDocumentID, validation.Required),
		validation.Field(&st.SourcePageIndex, validation.Min(0)),
	)
}

func (s *Service) handleOrganize(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.document(w, r); !ok {
		return
	}

	var req organizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	steps := make([]organize.Step, len(req.Pages))
	for i, p := range req.Pages {
		steps[i] = organize.Step{
			SourceDocumentID: p.SourceDocumentID,
			PageIndex:        p.SourcePageIndex,
			Rotation:         p.Rotation,
		}
	}

	doc, err := s.ingest.Organize(r.Context(), steps)
	switch {
	case errors.Is(err, organize.ErrSourceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, organize.ErrPageOutOfRange),
		errors.Is(err, organize.ErrBadRotation),
		errors.Is(err, organize.ErrEmptyRecipe):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		s.logger.Error("organize failed", "error", err)
		http.Error(w, "Organize failed", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, doc)
	}
}

type annotationRequest struct {
	PageNumber     int                `json:"page_number"`
	AnnotationType string             `json:"annotation_type"`
	Content        string             `json:"content"`
	Coordinates    map[string]float64 `json:"coordinates"`
	Style          map[string]any     `json:"style"`
	CreatedBy      string             `json:"created_by"`
}

func (req annotationRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.PageNumber, validation.Required, validation.Min(1)),
		validation.Field(&req.AnnotationType, validation.Required),
		validation.Field(&req.Coordinates, validation.Required),
	)
}

func (s *Service) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	a := &document.Annotation{
		ID:             uuid.NewString(),
		DocumentID:     doc.ID,
		PageNumber:     req.PageNumber,
		AnnotationType: req.AnnotationType,
		Content:        req.Content,
		Coordinates:    req.Coordinates,
		Style:          req.Style,
		CreatedBy:      req.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.ingest.Annotations().Put(a)
	writeJSON(w, http.StatusOK, a)
}

func (s *Service) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	page := 0
	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			http.Error(w, "Invalid page number", http.StatusBadRequest)
			return
		}
		page = p
	}
	list := s.ingest.Annotations().ForDocument(doc.ID, page)
	if list == nil {
		list = []*document.Annotation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "annotationID")
	a := s.ingest.Annotations().Get(id)
	if a == nil {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.PageNumber = req.PageNumber
	a.AnnotationType = req.AnnotationType
	a.Content = req.Content
	a.Coordinates = req.Coordinates
	a.Style = req.Style
	a.UpdatedAt = time.Now()
	s.ingest.Annotations().Put(a)
	writeJSON(w, http.StatusOK, a)
}

func (s *Service) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "annotationID")
	if !s.ingest.Annotations().Delete(id) {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// document resolves the {documentID} URL parameter, writing a 404 on
// failure.
func (s *Service) document(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	doc, err := s.ingest.Get(chi.URLParam(r, "documentID"))
	if err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return nil, false
	}
	return doc, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
