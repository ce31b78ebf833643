package handler

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// ArchiveHandler lists and extracts archives. zip and the tar family are
// handled in-process; rar and 7z go through their command-line tools. The
// file-count metadata is always len(ListContents), so it stays consistent
// with the listing even when extraction fails.
type ArchiveHandler struct {
	base
}

func (h *ArchiveHandler) Process(ctx context.Context, path, docID string) ProcessResult {
	extractDir := filepath.Join(h.conv.Dirs().Converted, docID, "extracted")

	res := ProcessResult{
		TotalPages: 1,
		FileList:   h.ListContents(ctx, path),
	}
	if err := os.MkdirAll(extractDir, 0o755); err == nil && h.Extract(ctx, path, extractDir) {
		res.ExtractedPath = extractDir
	}
	return res
}

// ConvertToPDF returns "": archives have no PDF representation.
func (h *ArchiveHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *ArchiveHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *ArchiveHandler) ExtractMetadata(ctx context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)
	md.AdditionalInfo = map[string]any{
		"file_count": len(h.ListContents(ctx, path)),
	}
	return md
}

// ListContents returns the member names of an archive without extracting.
// Unreadable or unsupported archives yield an empty list.
func (h *ArchiveHandler) ListContents(ctx context.Context, path string) []string {
	switch filetype.Ext(path) {
	case ".zip":
		return listZip(path)
	case ".tar", ".gz", ".tgz", ".bz2", ".tbz2", ".xz", ".txz":
		return listTar(path)
	case ".rar":
		return h.listRar(ctx, path)
	case ".7z":
		return h.list7z(ctx, path)
	default:
		return nil
	}
}

// Extract unpacks the archive into outputDir. Any failure reports false,
// never an error.
func (h *ArchiveHandler) Extract(ctx context.Context, path, outputDir string) bool {
	var err error
	switch filetype.Ext(path) {
	case ".zip":
		err = extractZip(path, outputDir)
	case ".tar", ".gz", ".tgz", ".bz2", ".tbz2", ".xz", ".txz":
		err = extractTar(path, outputDir)
	case ".rar":
		out := h.run(ctx, 0, "unrar", "x", "-o+", path, outputDir+string(os.PathSeparator))
		if out.Failed() {
			err = fmt.Errorf("unrar exited %d", out.ExitCode)
		}
	case ".7z":
		out := h.run(ctx, 0, "7z", "x", "-y", "-o"+outputDir, path)
		if out.Failed() {
			err = fmt.Errorf("7z exited %d", out.ExitCode)
		}
	default:
		return false
	}
	if err != nil {
		h.logger.Debug("archive extraction failed", "path", path, "error", err)
		return false
	}
	return true
}

func listZip(path string) []string {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func extractZip(path, outputDir string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(outputDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFileFrom(target, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// openTarStream opens path and wraps it in the right decompressor for its
// extension.
func openTarStream(path string) (io.Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	switch filetype.Ext(path) {
	case ".gz", ".tgz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return zr, f, nil
	case ".bz2", ".tbz2":
		return bzip2.NewReader(f), f, nil
	case ".xz", ".txz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return xr, f, nil
	default:
		return f, f, nil
	}
}

func listTar(path string) []string {
	r, closer, err := openTarStream(path)
	if err != nil {
		return nil
	}
	defer closer.Close()

	var names []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	return names
}

func extractTar(path, outputDir string) error {
	r, closer, err := openTarStream(path)
	if err != nil {
		return fmt.Errorf("open tar: %w", err)
	}
	defer closer.Close()

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}
		target, err := safeJoin(outputDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeFileFrom(target, tr); err != nil {
				return err
			}
		}
	}
}

func (h *ArchiveHandler) listRar(ctx context.Context, path string) []string {
	// "lb" prints bare member names, one per line.
	out := h.run(ctx, h.probeTimeout, "unrar", "lb", path)
	if out.Failed() {
		return nil
	}
	return nonEmptyLines(out.Stdout)
}

func (h *ArchiveHandler) list7z(ctx context.Context, path string) []string {
	out := h.run(ctx, h.probeTimeout, "7z", "l", "-ba", "-slt", path)
	if out.Failed() {
		return nil
	}
	var names []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "Path = "); ok {
			names = append(names, after)
		}
	}
	return names
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// safeJoin rejects member names that would escape the extraction root.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member escapes extraction dir: %q", name)
	}
	return target, nil
}

func writeFileFrom(target string, r io.Reader) error {
	w, err := os.Create(target)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
