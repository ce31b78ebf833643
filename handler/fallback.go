package handler

import (
	"context"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
)

// FallbackHandler serves unrecognized file types: minimal processing, with
// the office suite as a universal best-effort PDF converter.
type FallbackHandler struct {
	base
}

func (h *FallbackHandler) Process(_ context.Context, _, _ string) ProcessResult {
	return ProcessResult{TotalPages: 1}
}

func (h *FallbackHandler) ConvertToPDF(ctx context.Context, path, docID string) string {
	return h.convertPDF(ctx, path, docID)
}

func (h *FallbackHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *FallbackHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	return document.BaseMetadata(path)
}
