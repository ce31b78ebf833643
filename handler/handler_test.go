package handler

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/convert"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/filetype"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/runcmd"
)

// failingRunner simulates an environment with no external tools installed.
type failingRunner struct {
	calls []string
}

func (f *failingRunner) run(_ context.Context, _ time.Duration, name string, _ ...string) runcmd.Outcome {
	f.calls = append(f.calls, name)
	return runcmd.Outcome{ExitCode: runcmd.ExitNotRun, Stderr: "command not found"}
}

func testRegistry(t *testing.T) (*Registry, *failingRunner) {
	t.Helper()
	root := t.TempDir()
	dirs := convert.Dirs{
		Uploads:    filepath.Join(root, "uploads"),
		Converted:  filepath.Join(root, "converted"),
		Thumbnails: filepath.Join(root, "thumbnails"),
	}
	if err := dirs.Ensure(); err != nil {
		t.Fatal(err)
	}
	fake := &failingRunner{}
	conv := convert.New(convert.Config{Dirs: dirs, Run: fake.run})
	return NewRegistry(Config{Converter: conv, Run: fake.run}), fake
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRegistryCoversEveryCategory(t *testing.T) {
	reg, _ := testRegistry(t)
	for _, cat := range filetype.Categories() {
		if reg.ForCategory(cat) == nil {
			t.Errorf("no handler for category %q", cat)
		}
	}
	// Unknown category falls back.
	if reg.ForCategory(filetype.Category("bogus")) == nil {
		t.Error("no fallback for unknown category")
	}
	if reg.ForFile("a.xyz123", "") != reg.ForCategory(filetype.CategoryDefault) {
		t.Error("unknown extension should map to the default handler")
	}
}

func TestTotalPagesAlwaysAtLeastOne(t *testing.T) {
	reg, _ := testRegistry(t)
	// One representative file per category, including a zero-byte file for
	// the default handler. Every external tool fails, so all counts come
	// from fallbacks.
	files := []string{
		"a.pdf", "a.docx", "a.txt", "a.png", "a.mp3", "a.mp4",
		"a.stl", "a.ttf", "a.eml", "a.zip", "a.mpp", "a.zerobyte",
	}
	for _, name := range files {
		path := writeTemp(t, name, "")
		h := reg.ForFile(name, "")
		res := h.Process(context.Background(), path, "doc-"+name)
		if res.TotalPages < 1 {
			t.Errorf("%s: TotalPages = %d, want >= 1", name, res.TotalPages)
		}
	}
}

func TestTextMetadata(t *testing.T) {
	reg, _ := testRegistry(t)
	path := writeTemp(t, "main.go", "package main\n\nfunc main() {}\n")

	h := reg.ForCategory(filetype.CategoryText)
	md := h.ExtractMetadata(context.Background(), path)
	if md.Language != "Go" {
		t.Errorf("Language = %q, want Go", md.Language)
	}
	if md.LinesOfCode != 3 {
		t.Errorf("LinesOfCode = %d, want 3", md.LinesOfCode)
	}
	if md.CharacterCount == 0 {
		t.Error("CharacterCount = 0")
	}
	if md.Title != "main" {
		t.Errorf("Title = %q, want main", md.Title)
	}

	res := h.Process(context.Background(), path, "d1")
	if !res.IsPlainText {
		t.Error("text files must be flagged plain text")
	}
}

func TestFontThumbnailAlwaysAbsent(t *testing.T) {
	reg, fake := testRegistry(t)
	path := writeTemp(t, "face.ttf", "not a real font")

	h := reg.ForCategory(filetype.CategoryFont)
	if got := h.Thumbnail(context.Background(), path, "d1"); got != "" {
		t.Errorf("Thumbnail = %q, want empty", got)
	}
	if got := h.ConvertToPDF(context.Background(), path, "d1"); got != "" {
		t.Errorf("ConvertToPDF = %q, want empty", got)
	}
	if len(fake.calls) != 0 {
		t.Errorf("tools invoked for font: %v", fake.calls)
	}
	// Malformed font still yields base metadata, never a panic.
	md := h.ExtractMetadata(context.Background(), path)
	if md.Title != "face" {
		t.Errorf("Title = %q, want face", md.Title)
	}
}

func TestZipListExtractAndCountConsistency(t *testing.T) {
	reg, _ := testRegistry(t)

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"readme.txt":    "hello",
		"sub/notes.txt": "world",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	zw.Close()
	f.Close()

	h := reg.ForCategory(filetype.CategoryArchive).(*ArchiveHandler)

	list := h.ListContents(context.Background(), zipPath)
	if len(list) != 2 {
		t.Fatalf("ListContents = %v, want 2 entries", list)
	}

	md := h.ExtractMetadata(context.Background(), zipPath)
	if got := md.AdditionalInfo["file_count"]; got != len(list) {
		t.Errorf("file_count = %v, want %d", got, len(list))
	}

	outDir := filepath.Join(dir, "out")
	os.MkdirAll(outDir, 0o755)
	if !h.Extract(context.Background(), zipPath, outDir) {
		t.Fatal("Extract = false")
	}
	data, err := os.ReadFile(filepath.Join(outDir, "sub", "notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "world" {
		t.Errorf("extracted content = %q", data)
	}
}

func TestCorruptArchiveDegrades(t *testing.T) {
	reg, _ := testRegistry(t)
	path := writeTemp(t, "broken.zip", "this is not a zip file")

	h := reg.ForCategory(filetype.CategoryArchive).(*ArchiveHandler)
	if list := h.ListContents(context.Background(), path); len(list) != 0 {
		t.Errorf("ListContents(corrupt) = %v, want empty", list)
	}
	if h.Extract(context.Background(), path, t.TempDir()) {
		t.Error("Extract(corrupt) = true, want false")
	}
	md := h.ExtractMetadata(context.Background(), path)
	if got := md.AdditionalInfo["file_count"]; got != 0 {
		t.Errorf("file_count = %v, want 0", got)
	}
}

func TestTarGzListing(t *testing.T) {
	reg, _ := testRegistry(t)

	dir := t.TempDir()
	tgzPath := filepath.Join(dir, "bundle.tgz")
	f, err := os.Create(tgzPath)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	content := []byte("hello")
	tw.WriteHeader(&tar.Header{Name: "data.txt", Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg})
	tw.Write(content)
	tw.Close()
	gw.Close()
	f.Close()

	h := reg.ForCategory(filetype.CategoryArchive).(*ArchiveHandler)
	list := h.ListContents(context.Background(), tgzPath)
	if len(list) != 1 || list[0] != "data.txt" {
		t.Errorf("ListContents = %v, want [data.txt]", list)
	}

	outDir := filepath.Join(dir, "out")
	os.MkdirAll(outDir, 0o755)
	if !h.Extract(context.Background(), tgzPath, outDir) {
		t.Fatal("Extract = false")
	}
	if _, err := os.Stat(filepath.Join(outDir, "data.txt")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestOBJMetadata(t *testing.T) {
	reg, _ := testRegistry(t)
	path := writeTemp(t, "cube.obj", "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 3\n")

	h := reg.ForCategory(filetype.CategoryModel3D)
	md := h.ExtractMetadata(context.Background(), path)
	if md.AdditionalInfo["vertices"] != 3 {
		t.Errorf("vertices = %v, want 3", md.AdditionalInfo["vertices"])
	}
	if md.AdditionalInfo["faces"] != 1 {
		t.Errorf("faces = %v, want 1", md.AdditionalInfo["faces"])
	}
}

func TestEmailMetadata(t *testing.T) {
	reg, _ := testRegistry(t)
	raw := "From: Alice <alice@example.com>\r\nTo: bob@example.com\r\nSubject: Quarterly report\r\nDate: Mon, 02 Jan 2006 15:04:05 -0700\r\n\r\nBody here.\r\n"
	path := writeTemp(t, "mail.eml", raw)

	h := reg.ForCategory(filetype.CategoryEmail)
	md := h.ExtractMetadata(context.Background(), path)
	if md.Title != "Quarterly report" {
		t.Errorf("Title = %q, want subject line", md.Title)
	}
	if md.Author == "" {
		t.Error("Author empty, want From header")
	}
	if md.AdditionalInfo["to"] != "bob@example.com" {
		t.Errorf("to = %v", md.AdditionalInfo["to"])
	}
}

func TestPDFHandlerDegradedProcess(t *testing.T) {
	reg, _ := testRegistry(t)
	path := writeTemp(t, "doc.pdf", "%PDF-1.4 garbage")

	h := reg.ForCategory(filetype.CategoryPDF)
	res := h.Process(context.Background(), path, "d1")
	// pdfinfo is unavailable and the file is malformed: everything
	// degrades, nothing errors.
	if res.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", res.TotalPages)
	}
	if res.ThumbnailPath != "" {
		t.Errorf("ThumbnailPath = %q, want empty", res.ThumbnailPath)
	}
	md := h.ExtractMetadata(context.Background(), path)
	if md.Title != "doc" {
		t.Errorf("Title = %q, want doc", md.Title)
	}
	if h.ConvertToPDF(context.Background(), path, "d1") != path {
		t.Error("pdf ConvertToPDF should return the input path")
	}
}
