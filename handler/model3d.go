package handler

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// Model3DHandler serves 3D model files. The viewer renders them client-side,
// so there is no conversion and no thumbnail; metadata is mesh statistics.
type Model3DHandler struct {
	base
}

func (h *Model3DHandler) Process(_ context.Context, _, _ string) ProcessResult {
	return ProcessResult{TotalPages: 1}
}

func (h *Model3DHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *Model3DHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *Model3DHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)
	info := map[string]any{"type": "3D Model"}

	switch filetype.Ext(path) {
	case ".obj":
		if vertices, faces, ok := scanOBJ(path); ok {
			info["vertices"] = vertices
			info["faces"] = faces
		}
	case ".stl":
		if format, ok := detectSTLFormat(path); ok {
			info["format"] = format
		}
	}

	md.AdditionalInfo = info
	return md
}

// scanOBJ counts vertex and face statements in a Wavefront OBJ file.
func scanOBJ(path string) (vertices, faces int, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "v "):
			vertices++
		case strings.HasPrefix(line, "f "):
			faces++
		}
	}
	return vertices, faces, true
}

// detectSTLFormat distinguishes ASCII from binary STL by the leading header.
func detectSTLFormat(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	header := make([]byte, 80)
	n, err := f.Read(header)
	if err != nil || n == 0 {
		return "", false
	}
	if bytes.Contains(bytes.ToLower(header[:n]), []byte("solid")) {
		return "ASCII", true
	}
	return "Binary", true
}
