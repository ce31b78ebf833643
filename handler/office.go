package handler

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// OfficeHandler converts office documents (word processing, spreadsheets,
// presentations) to PDF via the headless office suite and derives page count
// and thumbnail from the converted file.
type OfficeHandler struct {
	base
}

func (h *OfficeHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	converted := h.convertPDF(ctx, path, docID)

	pages := 1
	if converted != "" {
		pages = h.conv.PageCount(ctx, converted)
	} else {
		pages = h.conv.EstimatePages(path)
	}

	thumbSource := converted
	if thumbSource == "" {
		thumbSource = path
	}

	return ProcessResult{
		TotalPages:    pages,
		ConvertedPath: converted,
		ThumbnailPath: h.thumbnail(ctx, thumbSource, docID),
	}.normalized()
}

func (h *OfficeHandler) ConvertToPDF(ctx context.Context, path, docID string) string {
	return h.convertPDF(ctx, path, docID)
}

func (h *OfficeHandler) Thumbnail(ctx context.Context, path, docID string) string {
	return h.thumbnail(ctx, path, docID)
}

func (h *OfficeHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)
	if ext := filetype.Ext(path); ext == ".docx" || ext == ".xlsx" || ext == ".pptx" {
		probeOOXMLProperties(path, &md)
	}
	return md
}

// coreProperties is the docProps/core.xml shape shared by the OOXML family.
type coreProperties struct {
	Title       string `xml:"title"`
	Subject     string `xml:"subject"`
	Creator     string `xml:"creator"`
	Keywords    string `xml:"keywords"`
	Description string `xml:"description"`
}

// probeOOXMLProperties pulls document properties out of the OOXML zip
// container. Best effort: any failure leaves md untouched.
func probeOOXMLProperties(path string, md *document.Metadata) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return
		}
		data, err := io.ReadAll(io.LimitReader(rc, 1<<20))
		rc.Close()
		if err != nil {
			return
		}
		var props coreProperties
		if err := xml.Unmarshal(data, &props); err != nil {
			return
		}
		if props.Title != "" {
			md.Title = props.Title
		}
		md.Author = props.Creator
		md.Subject = props.Subject
		md.Keywords = props.Keywords
		if props.Description != "" {
			if md.AdditionalInfo == nil {
				md.AdditionalInfo = map[string]any{}
			}
			md.AdditionalInfo["description"] = props.Description
		}
		return
	}
}
