package handler

import (
	"context"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
)

// VideoHandler extracts one frame near the one-second mark as the preview;
// video has no PDF representation.
type VideoHandler struct {
	base
}

func (h *VideoHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	return ProcessResult{
		TotalPages:    1,
		ThumbnailPath: h.thumbnail(ctx, path, docID),
	}
}

func (h *VideoHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *VideoHandler) Thumbnail(ctx context.Context, path, docID string) string {
	return h.thumbnail(ctx, path, docID)
}

func (h *VideoHandler) ExtractMetadata(ctx context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)

	res := h.probeMedia(ctx, path)
	if res == nil {
		return md
	}
	info := map[string]any{"duration": res.duration()}
	if s := res.stream("video"); s != nil {
		info["width"] = s.Width
		info["height"] = s.Height
		if s.CodecName != "" {
			info["codec"] = s.CodecName
		}
	}
	md.AdditionalInfo = info
	return md
}
