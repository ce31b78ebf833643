// Package document holds the document and annotation records produced by the
// processing pipeline, plus the in-memory stores that own them for the
// process lifetime. The pipeline creates derived artifact files; the store
// only keeps references to them.
package document

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Metadata describes a processed file. Everything except FileSize and the
// timestamps is optional; handlers fill in what their category supports.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`

	CreationDate     time.Time `json:"creation_date"`
	ModificationDate time.Time `json:"modification_date"`

	Pages    int    `json:"pages,omitempty"`
	FileSize string `json:"file_size"`

	// Text/code specific.
	Language       string `json:"language,omitempty"`
	LinesOfCode    int    `json:"lines_of_code,omitempty"`
	CharacterCount int    `json:"character_count,omitempty"`

	// Open-ended category-specific bag (image dimensions, audio duration,
	// archive file_count, font names, ...).
	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
}

// BaseMetadata returns the filesystem-derived metadata every handler starts
// from: human-readable size, timestamps, and the file stem as title. It never
// fails; a stat error just leaves size and timestamps zero.
func BaseMetadata(path string) Metadata {
	md := Metadata{Title: Stem(path)}
	info, err := os.Stat(path)
	if err != nil {
		md.FileSize = "0 B"
		return md
	}
	md.FileSize = humanize.Bytes(uint64(info.Size()))
	// Creation time is not portably available; file mtime stands in for both.
	md.CreationDate = info.ModTime()
	md.ModificationDate = info.ModTime()
	return md
}

// Stem returns the filename without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Document is the stored record for one ingested file.
type Document struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	Size         int64  `json:"size"`

	FilePath      string `json:"file_path"`
	ConvertedPath string `json:"converted_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	ExtractedPath string `json:"extracted_path,omitempty"`

	TotalPages  int      `json:"total_pages"`
	IsPlainText bool     `json:"is_plain_text"`
	FileList    []string `json:"file_list,omitempty"`

	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Annotation is a user mark on one page of a document.
type Annotation struct {
	ID             string             `json:"id"`
	DocumentID     string             `json:"document_id"`
	PageNumber     int                `json:"page_number"`
	AnnotationType string             `json:"annotation_type"`
	Content        string             `json:"content,omitempty"`
	Coordinates    map[string]float64 `json:"coordinates"`
	Style          map[string]any     `json:"style,omitempty"`
	CreatedBy      string             `json:"created_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
