package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// Thumbnail produces {docID}_thumb.png under the thumbnails directory.
// Dispatch is by source category: PDFs rasterize their first page, images
// are resized with background flattening, videos contribute a frame near the
// one-second mark, audio renders a waveform. Fonts never get a thumbnail.
// Any other category is first converted to PDF and then rasterized; that
// fallback is attempted once, never re-entered.
//
// Tools always write to a working file; only a verified success is renamed
// into the canonical path, so a partial file from a failed or timed-out run
// can never satisfy a later cache check.
func (c *Converter) Thumbnail(ctx context.Context, sourcePath, docID string) (string, error) {
	thumbPath := c.dirs.ThumbnailPath(docID)
	if fileExists(thumbPath) {
		return thumbPath, nil
	}
	workPath := filepath.Join(c.dirs.Thumbnails, docID+"_thumb_work.png")

	ext := filetype.Ext(sourcePath)
	switch {
	case filetype.IsFont(ext):
		return "", fmt.Errorf("%w: no thumbnail for fonts", ErrUnavailable)

	case ext == ".pdf":
		return c.thumbnailFromPDF(ctx, sourcePath, docID)

	case filetype.IsImage(ext):
		// "[0]" selects the first frame of multi-frame formats.
		out := c.run(ctx, c.convertTimeout, "convert",
			sourcePath+"[0]",
			"-thumbnail", fmt.Sprintf("%dx%d>", ThumbnailWidth, ThumbnailWidth),
			"-background", "white", "-alpha", "remove",
			workPath)
		return c.finishThumbnail(workPath, thumbPath, docID, out.Failed())

	case filetype.IsVideo(ext):
		out := c.run(ctx, c.convertTimeout, "ffmpeg",
			"-ss", "00:00:01", "-i", sourcePath,
			"-vframes", "1", "-q:v", "3", "-y",
			workPath)
		return c.finishThumbnail(workPath, thumbPath, docID, out.Failed())

	case filetype.IsAudio(ext):
		out := c.run(ctx, c.convertTimeout, "ffmpeg",
			"-i", sourcePath,
			"-filter_complex", fmt.Sprintf("showwavespic=s=%dx240:colors=white", ThumbnailWidth),
			"-frames:v", "1", "-y",
			workPath)
		return c.finishThumbnail(workPath, thumbPath, docID, out.Failed())

	default:
		// Convert first, then rasterize the produced PDF directly. One
		// level only, so a failed conversion cannot loop back here.
		pdfPath, err := c.ToPDF(ctx, sourcePath, "thumb_temp_"+docID)
		if err != nil {
			return "", err
		}
		return c.thumbnailFromPDF(ctx, pdfPath, docID)
	}
}

// thumbnailFromPDF rasterizes page 1 at thumbnail width. pdftoppm appends a
// page-number suffix to the requested prefix, so the actual output file is
// discovered (exact name first, then pattern) and promoted on success.
func (c *Converter) thumbnailFromPDF(ctx context.Context, pdfPath, docID string) (string, error) {
	thumbPath := c.dirs.ThumbnailPath(docID)
	prefix := filepath.Join(c.dirs.Thumbnails, docID+"_thumb_temp")

	out := c.run(ctx, c.convertTimeout, "pdftoppm",
		"-png", "-f", "1", "-l", "1",
		"-scale-to-x", fmt.Sprint(ThumbnailWidth), "-scale-to-y", "-1",
		pdfPath, prefix)

	workPath := prefix + "-1.png"
	if !fileExists(workPath) {
		if matches, _ := filepath.Glob(prefix + "-*.png"); len(matches) > 0 {
			workPath = matches[0]
		}
	}
	return c.finishThumbnail(workPath, thumbPath, docID, out.Failed())
}

// finishThumbnail moves a working file into the canonical slot. A failed
// run never touches the slot, so its partial output stays as a work file
// that no returned path references.
func (c *Converter) finishThumbnail(workPath, thumbPath, docID string, failed bool) (string, error) {
	if !failed && fileExists(workPath) {
		if err := os.Rename(workPath, thumbPath); err == nil {
			return thumbPath, nil
		}
	}
	c.logger.Debug("thumbnail generation failed", "doc_id", docID)
	return "", fmt.Errorf("%w: thumbnail not produced", ErrUnavailable)
}
