package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// PageImage rasterizes one page of a document to PNG at reading width,
// materializing it under converted/pages/{docID}/page_{n}.png. The path is
// deterministic from (docID, pageNumber), so an existing file is returned
// without regenerating. Concurrent first requests may both generate, which
// is an accepted benign race, not a lock.
//
// Non-PDF sources are converted first (idempotently, keyed by docID).
// pageNumber is 1-based.
func (c *Converter) PageImage(ctx context.Context, sourcePath string, pageNumber int, docID string) (string, error) {
	if pageNumber < 1 {
		return "", fmt.Errorf("%w: invalid page number %d", ErrUnavailable, pageNumber)
	}

	pageDir := filepath.Join(c.dirs.Converted, "pages", docID)
	pagePath := c.dirs.PageImagePath(docID, pageNumber)
	if fileExists(pagePath) {
		return pagePath, nil
	}
	if err := os.MkdirAll(pageDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", pageDir, err)
	}

	pdfPath := sourcePath
	if ext := filepath.Ext(sourcePath); ext != ".pdf" && ext != ".PDF" {
		converted, err := c.ToPDF(ctx, sourcePath, docID)
		if err != nil {
			return "", err
		}
		pdfPath = converted
	}

	prefix := filepath.Join(pageDir, fmt.Sprintf("page_temp_%d", pageNumber))
	out := c.run(ctx, c.convertTimeout, "pdftoppm",
		"-png",
		"-f", fmt.Sprint(pageNumber), "-l", fmt.Sprint(pageNumber),
		"-scale-to-x", fmt.Sprint(PageImageWidth), "-scale-to-y", "-1",
		pdfPath, prefix)

	// pdftoppm appends "-<pagenr>" before the extension; discover and
	// rename. Only a successful run may populate the cache slot: a failed
	// run can leave a partial temp file behind, and renaming that into
	// pagePath would turn every later request into a bogus cache hit. The
	// "-" in the pattern keeps page 1 from matching page 12's temp output.
	if !out.Failed() {
		if matches, _ := filepath.Glob(prefix + "-*.png"); len(matches) > 0 {
			os.Rename(matches[0], pagePath)
		}
		if fileExists(pagePath) {
			return pagePath, nil
		}
	}
	c.logger.Debug("page rasterization failed",
		"doc_id", docID, "page", pageNumber, "exit", out.ExitCode)
	return "", fmt.Errorf("%w: page %d not produced", ErrUnavailable, pageNumber)
}
