package handler

import (
	"bufio"
	"context"
	"os"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
)

// TextHandler serves plain text, code, and config files. They render
// directly in the viewer, so no conversion or thumbnail is produced up
// front; the page-image path converts on demand via pandoc.
type TextHandler struct {
	base
}

func (h *TextHandler) Process(_ context.Context, _, _ string) ProcessResult {
	return ProcessResult{
		TotalPages:  1,
		IsPlainText: true,
	}
}

// ConvertToPDF returns "": text renders natively and converts lazily when a
// page raster is actually requested.
func (h *TextHandler) ConvertToPDF(_ context.Context, _, _ string) string {
	return ""
}

func (h *TextHandler) Thumbnail(_ context.Context, _, _ string) string {
	return ""
}

func (h *TextHandler) ExtractMetadata(_ context.Context, path string) document.Metadata {
	md := document.BaseMetadata(path)
	md.Language = languageFor(filetype.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return md
	}
	defer f.Close()

	lines, chars := 0, 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines++
		chars += len(scanner.Text()) + 1
	}
	md.LinesOfCode = lines
	md.CharacterCount = chars
	return md
}

var languageNames = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".rb":    "Ruby",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".dart":  "Dart",
	".rs":    "Rust",
	".pl":    "Perl",
	".r":     "R",
	".jl":    "Julia",
	".html":  "HTML",
	".css":   "CSS",
	".xml":   "XML",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".toml":  "TOML",
	".md":    "Markdown",
	".tex":   "LaTeX",
	".sql":   "SQL",
	".sh":    "Shell",
}

func languageFor(ext string) string {
	return languageNames[ext]
}
