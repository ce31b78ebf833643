package handler

import (
	"context"
	"net/mail"
	"os"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// EmailHandler converts email files to PDF via the office suite and, for
// RFC 822 messages, lifts the routing headers into metadata.
type EmailHandler struct {
	base
}

func (h *EmailHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	return ProcessResult{
		TotalPages:    1,
		ConvertedPath: h.convertPDF(ctx, path, docID),
		IsPlainText:   true,
	}
}

func (h *EmailHandler) ConvertToPDF(ctx context.Context, path, docID string) string {
	return h.convertPDF(ctx, path, docID)
}

func (h *EmailHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *EmailHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)

	// .msg is a proprietary container; only .eml parses as RFC 822.
	if filetype.Ext(path) != ".eml" {
		return md
	}
	f, err := os.Open(path)
	if err != nil {
		return md
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return md
	}
	if subject := msg.Header.Get("Subject"); subject != "" {
		md.Title = subject
	}
	md.Author = msg.Header.Get("From")
	info := map[string]any{}
	if to := msg.Header.Get("To"); to != "" {
		info["to"] = to
	}
	if date, err := msg.Header.Date(); err == nil {
		info["sent"] = date
	}
	if len(info) > 0 {
		md.AdditionalInfo = info
	}
	return md
}
