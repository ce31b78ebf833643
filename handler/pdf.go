package handler

import (
	"context"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFHandler serves PDFs, which need no conversion: page count and a
// first-page thumbnail are the only derivations.
type PDFHandler struct {
	base
}

func (h *PDFHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	return ProcessResult{
		TotalPages:    h.conv.PageCount(ctx, path),
		ThumbnailPath: h.thumbnail(ctx, path, docID),
	}.normalized()
}

// ConvertToPDF returns the file itself: a PDF is already its own rendition.
func (h *PDFHandler) ConvertToPDF(_ context.Context, path, _ string) string {
	return path
}

func (h *PDFHandler) Thumbnail(ctx context.Context, path, docID string) string {
	return h.thumbnail(ctx, path, docID)
}

// ExtractMetadata reads the document info dictionary. Any parse failure
// leaves the filesystem-derived fields in place.
func (h *PDFHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)

	pctx, err := api.ReadContextFile(path)
	if err != nil {
		h.logger.Debug("pdf metadata parse failed", "path", path, "error", err)
		return md
	}
	md.Pages = pctx.PageCount

	if pctx.Info == nil {
		return md
	}
	d, err := pctx.DereferenceDict(*pctx.Info)
	if err != nil || d == nil {
		return md
	}

	if v := infoString(pctx.XRefTable, d, "Title"); v != "" {
		md.Title = v
	}
	md.Author = infoString(pctx.XRefTable, d, "Author")
	md.Subject = infoString(pctx.XRefTable, d, "Subject")
	md.Keywords = infoString(pctx.XRefTable, d, "Keywords")
	md.Creator = infoString(pctx.XRefTable, d, "Creator")
	md.Producer = infoString(pctx.XRefTable, d, "Producer")
	return md
}

// infoString resolves one info-dict entry to text, handling indirect
// references and both string literal forms.
func infoString(xref *model.XRefTable, d types.Dict, key string) string {
	obj, found := d.Find(key)
	if !found {
		return ""
	}
	obj, err := xref.Dereference(obj)
	if err != nil {
		return ""
	}
	switch s := obj.(type) {
	case types.StringLiteral:
		if v, err := types.StringLiteralToString(s); err == nil {
			return v
		}
	case types.HexLiteral:
		if v, err := types.HexLiteralToString(s); err == nil {
			return v
		}
	}
	return ""
}
