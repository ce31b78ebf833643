package handler

import (
	"context"
	"image"
	"os"

	// Decoder registrations for DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
)

// ImageHandler serves raster and vector images: a resized thumbnail is the
// only derivation, and dimensions come from decoding just the header.
type ImageHandler struct {
	base
}

func (h *ImageHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	return ProcessResult{
		TotalPages:    1,
		ThumbnailPath: h.thumbnail(ctx, path, docID),
	}
}

// ConvertToPDF returns "": images are viewed natively.
func (h *ImageHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *ImageHandler) Thumbnail(ctx context.Context, path, docID string) string {
	return h.thumbnail(ctx, path, docID)
}

func (h *ImageHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)

	f, err := os.Open(path)
	if err != nil {
		return md
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return md
	}
	md.AdditionalInfo = map[string]any{
		"width":  cfg.Width,
		"height": cfg.Height,
		"format": format,
	}
	return md
}
