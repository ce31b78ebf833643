package handler

import (
	"context"
	"os"

	"golang.org/x/image/font/sfnt"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// FontHandler serves font files. Fonts never produce a thumbnail or a PDF;
// metadata comes from the name table of sfnt-based formats.
type FontHandler struct {
	base
}

func (h *FontHandler) Process(_ context.Context, _, _ string) ProcessResult {
	return ProcessResult{TotalPages: 1}
}

func (h *FontHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *FontHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *FontHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)

	// sfnt covers ttf and otf; woff/woff2/eot keep base metadata only.
	if ext := filetype.Ext(path); ext != ".ttf" && ext != ".otf" {
		return md
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return md
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		h.logger.Debug("font parse failed", "path", path, "error", err)
		return md
	}

	var buf sfnt.Buffer
	info := map[string]any{"glyphs": f.NumGlyphs()}
	nameFields := []struct {
		key string
		id  sfnt.NameID
	}{
		{"family", sfnt.NameIDFamily},
		{"subfamily", sfnt.NameIDSubfamily},
		{"full_name", sfnt.NameIDFull},
		{"version", sfnt.NameIDVersion},
	}
	for _, nf := range nameFields {
		if v, err := f.Name(&buf, nf.id); err == nil && v != "" {
			info[nf.key] = v
		}
	}
	md.AdditionalInfo = info
	return md
}
