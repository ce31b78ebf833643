package handler

import (
	"context"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
)

// AudioHandler renders a waveform image as the preview; audio has no PDF
// representation.
type AudioHandler struct {
	base
}

func (h *AudioHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	return ProcessResult{
		TotalPages:    1,
		ThumbnailPath: h.thumbnail(ctx, path, docID),
	}
}

func (h *AudioHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *AudioHandler) Thumbnail(ctx context.Context, path, docID string) string {
	return h.thumbnail(ctx, path, docID)
}

func (h *AudioHandler) ExtractMetadata(ctx context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)

	res := h.probeMedia(ctx, path)
	if res == nil {
		return md
	}
	info := map[string]any{"duration": res.duration()}
	if s := res.stream("audio"); s != nil {
		if s.SampleRate != "" {
			info["sample_rate"] = s.SampleRate
		}
		if s.BitRate != "" {
			info["bitrate"] = s.BitRate
		} else if res.Format.BitRate != "" {
			info["bitrate"] = res.Format.BitRate
		}
		if s.CodecName != "" {
			info["codec"] = s.CodecName
		}
	}
	md.AdditionalInfo = info
	return md
}
