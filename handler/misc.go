package handler

import (
	"context"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// MiscHandler covers the odd formats with a dedicated extension mapping but
// no real tooling: saved mail containers, embroidery files, project plans.
// They render as text where that is at all plausible.
type MiscHandler struct {
	base
}

func (h *MiscHandler) Process(_ context.Context, path, _ string) ProcessResult {
	switch filetype.Ext(path) {
	case ".outlook", ".pes", ".pfm", ".mpp", ".mht":
		return ProcessResult{TotalPages: 1, IsPlainText: true}
	default:
		return ProcessResult{TotalPages: 1}
	}
}

func (h *MiscHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *MiscHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *MiscHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	return document.BaseMetadata(path)
}
